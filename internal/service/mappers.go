package service

import (
	"time"

	"logospos/internal/arqueo"
	"logospos/internal/dto"
	"logospos/internal/model"

	"github.com/google/uuid"
)

const fechaISO = "2006-01-02"

func formatTime(t time.Time) string { return t.Format(time.RFC3339) }

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func sesionToResponse(s *model.SesionCaja) *dto.SesionCajaResponse {
	return &dto.SesionCajaResponse{
		ID:                    s.ID.String(),
		Estado:                s.Estado,
		FechaApertura:         formatTime(s.FechaApertura),
		FechaCierre:           formatTimePtr(s.FechaCierre),
		MontoInicial:          s.MontoInicial,
		MontoFinal:            s.MontoFinal,
		TotalVentasEfectivo:   s.TotalVentasEfectivo,
		TotalVentasTarjeta:    s.TotalVentasTarjeta,
		TotalEntradas:         s.TotalEntradas,
		TotalSalidas:          s.TotalSalidas,
		MontoEsperado:         s.MontoEsperado,
		MontoReal:             s.MontoReal,
		Diferencia:            s.Diferencia,
		UsuarioApertura:       s.UsuarioApertura.String(),
		UsuarioCierre:         uuidPtrString(s.UsuarioCierre),
		ObservacionesApertura: s.ObservacionesApertura,
		ObservacionesCierre:   s.ObservacionesCierre,
	}
}

func movimientoToResponse(m model.MovimientoCaja) dto.MovimientoResponse {
	return dto.MovimientoResponse{
		ID:          m.ID.String(),
		CajaID:      m.CajaID.String(),
		Tipo:        m.Tipo,
		MetodoPago:  m.MetodoPago,
		Descripcion: m.Descripcion,
		Monto:       m.Monto,
		Referencia:  m.Referencia,
		UsuarioID:   m.UsuarioID.String(),
		Fecha:       formatTime(m.Fecha),
	}
}

func arqueoToResponse(a *model.ArqueoCaja, estado string) *dto.ArqueoResponse {
	return &dto.ArqueoResponse{
		SesionCajaID: a.CajaID.String(),
		Conteo: arqueo.Conteo{
			Billetes2000: a.Billetes2000,
			Billetes1000: a.Billetes1000,
			Billetes500:  a.Billetes500,
			Billetes200:  a.Billetes200,
			Billetes100:  a.Billetes100,
			Billetes50:   a.Billetes50,
			Monedas25:    a.Monedas25,
			Monedas10:    a.Monedas10,
			Monedas5:     a.Monedas5,
			Monedas1:     a.Monedas1,
		},
		TotalBilletes: a.TotalBilletes,
		TotalMonedas:  a.TotalMonedas,
		TotalContado:  a.TotalContado,
		TotalEsperado: a.TotalEsperado,
		Diferencia:    a.Diferencia,
		Clasificacion: arqueo.Clasificar(a.Diferencia, a.TotalEsperado),
		Observaciones: a.Observaciones,
		Estado:        estado,
	}
}

func cuentaToResponse(c *model.CuentaPorCobrar) dto.CuentaResponse {
	return dto.CuentaResponse{
		ID:               c.ID.String(),
		VentaID:          uuidPtrString(c.VentaID),
		ClienteID:        c.ClienteID.String(),
		ClienteNombre:    c.ClienteNombre(),
		Concepto:         c.Concepto,
		MontoTotal:       c.MontoTotal,
		MontoPagado:      c.MontoPagado,
		MontoPendiente:   c.MontoPendiente,
		FechaVenta:       c.FechaVenta.Format(fechaISO),
		FechaVencimiento: c.FechaVencimiento.Format(fechaISO),
		Estado:           c.Estado,
		Notas:            c.Notas,
	}
}

func pagoToResponse(p model.PagoCuenta) dto.PagoResponse {
	return dto.PagoResponse{
		ID:         p.ID.String(),
		CuentaID:   p.CuentaID.String(),
		Monto:      p.Monto,
		MetodoPago: p.MetodoPago,
		FechaPago:  p.FechaPago.Format(fechaISO),
		Referencia: p.Referencia,
		Notas:      p.Notas,
		UsuarioID:  p.UsuarioID.String(),
	}
}

func recordatorioToResponse(r *model.Recordatorio) dto.RecordatorioResponse {
	return dto.RecordatorioResponse{
		ID:              r.ID.String(),
		CuentaID:        r.CuentaID.String(),
		ClienteID:       r.ClienteID.String(),
		ClienteNombre:   r.ClienteNombre,
		Tipo:            r.Tipo,
		Mensaje:         r.Mensaje,
		FechaProgramada: formatTime(r.FechaProgramada),
		FechaEnviado:    formatTimePtr(r.FechaEnviado),
		Estado:          r.Estado,
		Canal:           r.Canal,
		Telefono:        r.Telefono,
		Email:           r.Email,
		Notas:           r.Notas,
	}
}

func clienteToResponse(c *model.Cliente) dto.ClienteResponse {
	return dto.ClienteResponse{
		ID:        c.ID.String(),
		Nombre:    c.Nombre,
		Documento: c.Documento,
		Telefono:  c.Telefono,
		Email:     c.Email,
	}
}
