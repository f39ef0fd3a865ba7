package dto

import (
	"logospos/internal/arqueo"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirCajaRequest struct {
	MontoInicial  decimal.Decimal `json:"monto_inicial" validate:"min=0"`
	Observaciones *string         `json:"observaciones" validate:"omitempty,max=500"`
	// ConfirmarMontoCero must be true to open with an empty float.
	ConfirmarMontoCero bool `json:"confirmar_monto_cero"`
}

type MovimientoRequest struct {
	SesionCajaID string          `json:"sesion_caja_id" validate:"omitempty,uuid"`
	Tipo         string          `json:"tipo"           validate:"required,oneof=entrada salida venta"`
	MetodoPago   *string         `json:"metodo_pago"    validate:"omitempty,oneof=efectivo tarjeta"`
	Monto        decimal.Decimal `json:"monto"          validate:"required,gt=0"`
	Descripcion  string          `json:"descripcion"    validate:"required,min=1,max=255"`
	Referencia   *string         `json:"referencia"     validate:"omitempty,max=100"`
}

type ArqueoRequest struct {
	SesionCajaID  string        `json:"sesion_caja_id" validate:"omitempty,uuid"`
	Conteo        arqueo.Conteo `json:"conteo"`
	Observaciones *string       `json:"observaciones"  validate:"omitempty,max=1000"`
}

type NotaCierreRequest struct {
	Nota string `json:"nota" validate:"required,min=1,max=500"`
}

// HistorialFilter is bound from query string of GET /v1/caja/historial.
type HistorialFilter struct {
	Page  int `form:"page,default=1"   validate:"min=1"`
	Limit int `form:"limit,default=20" validate:"min=1,max=100"`
	// Todos lists every operator's sessions; supervisors only.
	Todos bool `form:"todos"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SesionCajaResponse struct {
	ID                    string           `json:"id"`
	Estado                string           `json:"estado"`
	FechaApertura         string           `json:"fecha_apertura"`
	FechaCierre           *string          `json:"fecha_cierre"`
	MontoInicial          decimal.Decimal  `json:"monto_inicial"`
	MontoFinal            *decimal.Decimal `json:"monto_final"`
	TotalVentasEfectivo   *decimal.Decimal `json:"total_ventas_efectivo"`
	TotalVentasTarjeta    *decimal.Decimal `json:"total_ventas_tarjeta"`
	TotalEntradas         *decimal.Decimal `json:"total_entradas"`
	TotalSalidas          *decimal.Decimal `json:"total_salidas"`
	MontoEsperado         *decimal.Decimal `json:"monto_esperado"`
	MontoReal             *decimal.Decimal `json:"monto_real"`
	Diferencia            *decimal.Decimal `json:"diferencia"`
	UsuarioApertura       string           `json:"usuario_apertura"`
	UsuarioCierre         *string          `json:"usuario_cierre"`
	ObservacionesApertura *string          `json:"observaciones_apertura"`
	ObservacionesCierre   *string          `json:"observaciones_cierre"`
}

type MovimientoResponse struct {
	ID          string          `json:"id"`
	CajaID      string          `json:"caja_id"`
	Tipo        string          `json:"tipo"`
	MetodoPago  *string         `json:"metodo_pago"`
	Descripcion string          `json:"descripcion"`
	Monto       decimal.Decimal `json:"monto"`
	Referencia  *string         `json:"referencia"`
	UsuarioID   string          `json:"usuario_id"`
	Fecha       string          `json:"fecha"`
}

type TotalesResponse struct {
	SesionCajaID   string          `json:"sesion_caja_id"`
	MontoInicial   decimal.Decimal `json:"monto_inicial"`
	VentasEfectivo decimal.Decimal `json:"ventas_efectivo"`
	VentasTarjeta  decimal.Decimal `json:"ventas_tarjeta"`
	Entradas       decimal.Decimal `json:"entradas"`
	Salidas        decimal.Decimal `json:"salidas"`
	MontoEsperado  decimal.Decimal `json:"monto_esperado"`
	Movimientos    int             `json:"movimientos"`
}

type ArqueoResponse struct {
	SesionCajaID  string          `json:"sesion_caja_id"`
	Conteo        arqueo.Conteo   `json:"conteo"`
	TotalBilletes decimal.Decimal `json:"total_billetes"`
	TotalMonedas  decimal.Decimal `json:"total_monedas"`
	TotalContado  decimal.Decimal `json:"total_contado"`
	TotalEsperado decimal.Decimal `json:"total_esperado"`
	Diferencia    decimal.Decimal `json:"diferencia"`
	Clasificacion string          `json:"clasificacion"` // normal | advertencia | critico
	Observaciones *string         `json:"observaciones"`
	Estado        string          `json:"estado"`
}

type ReporteCajaResponse struct {
	Sesion      SesionCajaResponse   `json:"sesion"`
	Totales     TotalesResponse      `json:"totales"`
	Movimientos []MovimientoResponse `json:"movimientos"`
	Arqueo      *ArqueoResponse      `json:"arqueo"`
}

type HistorialResponse struct {
	Data  []SesionCajaResponse `json:"data"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}
