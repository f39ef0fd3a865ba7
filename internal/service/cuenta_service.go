package service

import (
	"context"
	"errors"
	"time"

	"logospos/internal/dto"
	"logospos/internal/metrics"
	"logospos/internal/model"
	"logospos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type CuentaService interface {
	Crear(ctx context.Context, req dto.CrearCuentaRequest) (*dto.CuentaResponse, error)
	// Listar never fails: store errors resolve to an empty list.
	Listar(ctx context.Context, f dto.CuentaFilter) []dto.CuentaResponse
	ObtenerConPagos(ctx context.Context, id uuid.UUID) (*dto.CuentaConPagosResponse, error)
	AplicarPago(ctx context.Context, op model.Operador, cuentaID uuid.UUID, req dto.RegistrarPagoRequest) (*dto.AplicarPagoResponse, error)
	Resumen(ctx context.Context) (*dto.ResumenCuentasResponse, error)
}

type cuentaService struct {
	repo     repository.CuentaRepository
	clientes repository.ClienteRepository
	loc      *time.Location
}

func NewCuentaService(repo repository.CuentaRepository, clientes repository.ClienteRepository, loc *time.Location) CuentaService {
	if loc == nil {
		loc = time.UTC
	}
	return &cuentaService{repo: repo, clientes: clientes, loc: loc}
}

func (s *cuentaService) hoy() time.Time { return model.SoloFecha(time.Now().In(s.loc)) }

func (s *cuentaService) parseFecha(v string) (time.Time, error) {
	t, err := time.ParseInLocation(fechaISO, v, s.loc)
	if err != nil {
		return time.Time{}, ErrFechaInvalida
	}
	return t, nil
}

func (s *cuentaService) Crear(ctx context.Context, req dto.CrearCuentaRequest) (*dto.CuentaResponse, error) {
	if !req.MontoTotal.IsPositive() {
		return nil, ErrMontoInvalido
	}
	clienteID, err := uuid.Parse(req.ClienteID)
	if err != nil {
		return nil, ErrIDInvalido
	}
	cliente, err := s.clientes.FindByID(ctx, clienteID)
	if err != nil {
		if errors.Is(err, repository.ErrNoEncontrado) {
			return nil, ErrClienteNoEncontrado
		}
		return nil, err
	}

	hoy := s.hoy()
	fechaVenta := hoy
	if req.FechaVenta != "" {
		if fechaVenta, err = s.parseFecha(req.FechaVenta); err != nil {
			return nil, err
		}
	}
	vencimiento, err := s.parseFecha(req.FechaVencimiento)
	if err != nil {
		return nil, err
	}

	cuenta := &model.CuentaPorCobrar{
		ClienteID:        clienteID,
		Concepto:         req.Concepto,
		MontoTotal:       req.MontoTotal.Round(2),
		MontoPagado:      decimal.Zero,
		FechaVenta:       fechaVenta,
		FechaVencimiento: vencimiento,
		Notas:            req.Notas,
	}
	if req.VentaID != nil {
		ventaID, err := uuid.Parse(*req.VentaID)
		if err != nil {
			return nil, ErrIDInvalido
		}
		cuenta.VentaID = &ventaID
	}
	cuenta.Recalcular(hoy)

	if err := s.repo.Create(ctx, cuenta); err != nil {
		return nil, err
	}
	cuenta.Cliente = cliente
	resp := cuentaToResponse(cuenta)
	return &resp, nil
}

func (s *cuentaService) Listar(ctx context.Context, f dto.CuentaFilter) []dto.CuentaResponse {
	hoy := s.hoy()
	rows, err := s.repo.List(ctx, f, hoy)
	if err != nil {
		log.Error().Err(err).Str("estado", f.Estado).Msg("listar cuentas por cobrar")
		return []dto.CuentaResponse{}
	}
	out := make([]dto.CuentaResponse, 0, len(rows))
	for i := range rows {
		// Estado is derived on read so an overdue account never shows as pendiente.
		rows[i].Recalcular(hoy)
		out = append(out, cuentaToResponse(&rows[i]))
	}
	return out
}

func (s *cuentaService) ObtenerConPagos(ctx context.Context, id uuid.UUID) (*dto.CuentaConPagosResponse, error) {
	cuenta, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNoEncontrado) {
			return nil, ErrCuentaNoEncontrada
		}
		return nil, err
	}
	cuenta.Recalcular(s.hoy())

	pagos, err := s.repo.ListPagos(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := &dto.CuentaConPagosResponse{
		Cuenta: cuentaToResponse(cuenta),
		Pagos:  make([]dto.PagoResponse, 0, len(pagos)),
	}
	for _, p := range pagos {
		resp.Pagos = append(resp.Pagos, pagoToResponse(p))
	}
	return resp, nil
}

// AplicarPago locks the receivable, checks the amount against the current
// pending balance, then inserts the payment and persists the new balance and
// estado in the same transaction.
func (s *cuentaService) AplicarPago(ctx context.Context, op model.Operador, cuentaID uuid.UUID, req dto.RegistrarPagoRequest) (*dto.AplicarPagoResponse, error) {
	if !req.Monto.IsPositive() {
		return nil, ErrMontoInvalido
	}
	monto := req.Monto.Round(2)
	hoy := s.hoy()
	fechaPago := hoy
	if req.FechaPago != "" {
		var err error
		if fechaPago, err = s.parseFecha(req.FechaPago); err != nil {
			return nil, err
		}
	}

	var (
		cuenta *model.CuentaPorCobrar
		pago   *model.PagoCuenta
	)
	err := s.repo.Transaction(ctx, func(tx repository.CuentaRepository) error {
		c, err := tx.FindForUpdate(ctx, cuentaID)
		if err != nil {
			if errors.Is(err, repository.ErrNoEncontrado) {
				return ErrCuentaNoEncontrada
			}
			return err
		}
		if monto.GreaterThan(c.MontoTotal.Sub(c.MontoPagado)) {
			return ErrPagoExcedePendiente
		}

		p := &model.PagoCuenta{
			CuentaID:   c.ID,
			Monto:      monto,
			MetodoPago: req.MetodoPago,
			FechaPago:  fechaPago,
			Referencia: req.Referencia,
			Notas:      req.Notas,
			UsuarioID:  op.ID,
			CreatedAt:  time.Now().UTC(),
		}
		if err := tx.CreatePago(ctx, p); err != nil {
			return err
		}
		c.MontoPagado = c.MontoPagado.Add(monto)
		c.Recalcular(hoy)
		if err := tx.UpdateSaldo(ctx, c); err != nil {
			return err
		}
		cuenta, pago = c, p
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrPagoExcedePendiente) {
			metrics.PagosRechazados.Inc()
		}
		return nil, err
	}

	if full, err := s.repo.FindByID(ctx, cuenta.ID); err == nil {
		cuenta.Cliente = full.Cliente
	}
	metrics.Pagos.WithLabelValues(pago.MetodoPago).Inc()
	log.Info().
		Str("cuenta_id", cuenta.ID.String()).
		Str("monto", monto.StringFixed(2)).
		Str("pendiente", cuenta.MontoPendiente.StringFixed(2)).
		Str("estado", cuenta.Estado).
		Msg("pago aplicado")

	return &dto.AplicarPagoResponse{
		Pago:   pagoToResponse(*pago),
		Cuenta: cuentaToResponse(cuenta),
	}, nil
}

func (s *cuentaService) Resumen(ctx context.Context) (*dto.ResumenCuentasResponse, error) {
	hoy := s.hoy()
	rows, err := s.repo.List(ctx, dto.CuentaFilter{}, hoy)
	if err != nil {
		return nil, err
	}
	resp := &dto.ResumenCuentasResponse{
		PorEstado:      make(map[string]dto.ResumenEstado, 4),
		TotalPendiente: decimal.Zero,
		TotalVencido:   decimal.Zero,
	}
	for _, e := range []string{model.EstadoCuentaPendiente, model.EstadoCuentaParcial, model.EstadoCuentaPagada, model.EstadoCuentaVencida} {
		resp.PorEstado[e] = dto.ResumenEstado{MontoPendiente: decimal.Zero}
	}
	for i := range rows {
		c := &rows[i]
		c.Recalcular(hoy)
		r := resp.PorEstado[c.Estado]
		r.Cantidad++
		r.MontoPendiente = r.MontoPendiente.Add(c.MontoPendiente)
		resp.PorEstado[c.Estado] = r
		resp.TotalPendiente = resp.TotalPendiente.Add(c.MontoPendiente)
		if c.Estado == model.EstadoCuentaVencida {
			resp.TotalVencido = resp.TotalVencido.Add(c.MontoPendiente)
		}
	}
	return resp, nil
}
