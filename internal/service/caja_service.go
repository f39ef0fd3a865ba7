package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"logospos/internal/arqueo"
	"logospos/internal/dto"
	"logospos/internal/metrics"
	"logospos/internal/model"
	"logospos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

type CajaService interface {
	Abrir(ctx context.Context, op model.Operador, req dto.AbrirCajaRequest) (*dto.SesionCajaResponse, error)
	Cerrar(ctx context.Context, sesionID uuid.UUID, t TotalesCierre) (*dto.SesionCajaResponse, error)
	// VerificarSesionAbierta never fails: store errors and a missing operator resolve to nil.
	VerificarSesionAbierta(ctx context.Context, operadorID uuid.UUID, forceRefresh bool) *dto.SesionCajaResponse
	RegistrarMovimiento(ctx context.Context, op model.Operador, req dto.MovimientoRequest) (*dto.MovimientoResponse, error)
	ListarMovimientos(ctx context.Context, sesionID uuid.UUID) []dto.MovimientoResponse
	Totales(ctx context.Context, sesionID uuid.UUID) (*dto.TotalesResponse, error)
	Arqueo(ctx context.Context, op model.Operador, req dto.ArqueoRequest) (*dto.ArqueoResponse, error)
	ObtenerReporte(ctx context.Context, sesionID uuid.UUID) (*dto.ReporteCajaResponse, error)
	AgregarNotaCierre(ctx context.Context, sesionID uuid.UUID, nota string) (*dto.SesionCajaResponse, error)
	// Historial lists sessions most-recent-first; operadorID nil lists every operator.
	Historial(ctx context.Context, operadorID *uuid.UUID, f dto.HistorialFilter) *dto.HistorialResponse
	Store() *SesionStore
}

// CierreNotificador is told about every closed session so the closing report
// can be mailed asynchronously. worker.Dispatcher satisfies it.
type CierreNotificador interface {
	EnqueueReporteCierre(ctx context.Context, sesionID uuid.UUID) error
}

// TotalesCierre bundles every closing field written in the open → cerrada transition.
type TotalesCierre struct {
	MontoReal     decimal.Decimal
	MontoEsperado decimal.Decimal
	Diferencia    decimal.Decimal
	Totales       arqueo.Totales
	UsuarioCierre uuid.UUID
	Observaciones *string
}

type cajaService struct {
	repo     repository.CajaRepository
	store    *SesionStore
	verifs   singleflight.Group
	notifier CierreNotificador

	// gens advances whenever an operator's cached session is replaced or a
	// refresh is forced; only a lookup started in the current generation
	// may write the store.
	genMu sync.Mutex
	gens  map[uuid.UUID]uint64
}

// NewCajaService wires the session lifecycle. notifier may be nil.
func NewCajaService(repo repository.CajaRepository, notifier CierreNotificador) CajaService {
	return &cajaService{repo: repo, store: NewSesionStore(), notifier: notifier, gens: make(map[uuid.UUID]uint64)}
}

func (s *cajaService) generacion(operadorID uuid.UUID, avanzar bool) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if avanzar {
		s.gens[operadorID]++
	}
	return s.gens[operadorID]
}

// fijarActual records a known state and retires lookups still in flight.
func (s *cajaService) fijarActual(operadorID uuid.UUID, sesion *model.SesionCaja) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.gens[operadorID]++
	s.store.SetActual(operadorID, sesion)
}

// guardarVerificada writes a lookup result unless a newer generation started.
func (s *cajaService) guardarVerificada(operadorID uuid.UUID, gen uint64, sesion *model.SesionCaja) bool {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.gens[operadorID] != gen {
		return false
	}
	s.store.SetActual(operadorID, sesion)
	return true
}

func (s *cajaService) Store() *SesionStore { return s.store }

// ── Abrir ─────────────────────────────────────────────────────────────────────

func (s *cajaService) Abrir(ctx context.Context, op model.Operador, req dto.AbrirCajaRequest) (*dto.SesionCajaResponse, error) {
	if req.MontoInicial.IsNegative() {
		return nil, ErrMontoInicialNegativo
	}
	if req.MontoInicial.IsZero() && !req.ConfirmarMontoCero {
		return nil, ErrMontoCeroSinConfirmar
	}
	// Pre-check against the last known state only; the partial unique index
	// on cajas settles concurrent opens.
	if actual, ok := s.store.Actual(op.ID); ok && actual != nil {
		metrics.SesionesDuplicadas.Inc()
		return nil, ErrSesionDuplicada
	}

	sesion := &model.SesionCaja{
		FechaApertura:         time.Now().UTC(),
		MontoInicial:          req.MontoInicial.Round(2),
		Estado:                model.EstadoCajaAbierta,
		UsuarioApertura:       op.ID,
		ObservacionesApertura: req.Observaciones,
	}
	if err := s.repo.CreateSesion(ctx, sesion); err != nil {
		if errors.Is(err, repository.ErrDuplicado) {
			// Another device opened first; make the next verify re-query.
			s.generacion(op.ID, true)
			s.store.Olvidar(op.ID)
			metrics.SesionesDuplicadas.Inc()
			return nil, ErrSesionDuplicada
		}
		return nil, err
	}

	s.fijarActual(op.ID, sesion)
	s.store.InvalidarHistorial(op.ID)
	metrics.SesionesAbiertas.Inc()
	log.Info().
		Str("sesion_id", sesion.ID.String()).
		Str("usuario", op.Username).
		Str("monto_inicial", sesion.MontoInicial.StringFixed(2)).
		Msg("caja abierta")
	return sesionToResponse(sesion), nil
}

// ── Cerrar ────────────────────────────────────────────────────────────────────

func (s *cajaService) Cerrar(ctx context.Context, sesionID uuid.UUID, t TotalesCierre) (*dto.SesionCajaResponse, error) {
	sesion, err := s.cerrarEn(ctx, s.repo, sesionID, t)
	if err != nil {
		return nil, err
	}
	s.despuesDeCerrar(ctx, sesion)
	return sesionToResponse(sesion), nil
}

// cerrarEn runs the single open → cerrada UPDATE through repo, which may be
// bound to a transaction.
func (s *cajaService) cerrarEn(ctx context.Context, repo repository.CajaRepository, sesionID uuid.UUID, t TotalesCierre) (*model.SesionCaja, error) {
	ok, err := repo.CerrarSesion(ctx, sesionID, repository.CierreSesion{
		MontoFinal:          t.MontoReal,
		TotalVentasEfectivo: t.Totales.VentasEfectivo,
		TotalVentasTarjeta:  t.Totales.VentasTarjeta,
		TotalEntradas:       t.Totales.Entradas,
		TotalSalidas:        t.Totales.Salidas,
		MontoEsperado:       t.MontoEsperado,
		MontoReal:           t.MontoReal,
		Diferencia:          t.Diferencia,
		UsuarioCierre:       t.UsuarioCierre,
		ObservacionesCierre: t.Observaciones,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, err := repo.FindSesionByID(ctx, sesionID); errors.Is(err, repository.ErrNoEncontrado) {
			return nil, ErrSesionNoEncontrada
		}
		return nil, ErrSesionNoAbierta
	}
	return repo.FindSesionByID(ctx, sesionID)
}

func (s *cajaService) despuesDeCerrar(ctx context.Context, sesion *model.SesionCaja) {
	s.fijarActual(sesion.UsuarioApertura, nil)
	s.store.InvalidarHistorial(sesion.UsuarioApertura)
	metrics.SesionesCerradas.Inc()

	l := log.Info().Str("sesion_id", sesion.ID.String())
	if sesion.Diferencia != nil {
		l = l.Str("diferencia", sesion.Diferencia.StringFixed(2))
	}
	l.Msg("caja cerrada")

	if s.notifier != nil {
		if err := s.notifier.EnqueueReporteCierre(ctx, sesion.ID); err != nil {
			log.Warn().Err(err).Str("sesion_id", sesion.ID.String()).Msg("no se pudo encolar el reporte de cierre")
		}
	}
}

// ── VerificarSesionAbierta ────────────────────────────────────────────────────

func (s *cajaService) VerificarSesionAbierta(ctx context.Context, operadorID uuid.UUID, forceRefresh bool) *dto.SesionCajaResponse {
	sesion := s.verificar(ctx, operadorID, forceRefresh)
	if sesion == nil {
		return nil
	}
	return sesionToResponse(sesion)
}

// verificar shares one in-flight store query among concurrent callers for the
// same operator. forceRefresh detaches the key so a fresh query starts; callers
// already waiting keep the old result.
func (s *cajaService) verificar(ctx context.Context, operadorID uuid.UUID, forceRefresh bool) *model.SesionCaja {
	if operadorID == uuid.Nil {
		return nil
	}
	key := operadorID.String()
	gen := s.generacion(operadorID, forceRefresh)
	if forceRefresh {
		s.verifs.Forget(key)
	}
	ch := s.verifs.DoChan(key, func() (any, error) {
		// Detached from the first caller so its cancellation does not fail the rest.
		sesion, err := s.repo.FindSesionAbiertaPorUsuario(context.WithoutCancel(ctx), operadorID)
		if err != nil {
			return nil, err
		}
		if !s.guardarVerificada(operadorID, gen, sesion) {
			log.Debug().Str("usuario_id", key).Msg("verificación superada por una más reciente")
		}
		return sesion, nil
	})

	select {
	case <-ctx.Done():
		return nil
	case res := <-ch:
		resultado := "consulta"
		if res.Shared {
			resultado = "compartida"
		}
		metrics.VerificacionesSesion.WithLabelValues(resultado).Inc()
		if res.Err != nil {
			log.Error().Err(res.Err).Str("usuario_id", key).Msg("verificar sesión abierta")
			return nil
		}
		sesion, _ := res.Val.(*model.SesionCaja)
		return sesion
	}
}

// ── Movimientos ───────────────────────────────────────────────────────────────

func (s *cajaService) RegistrarMovimiento(ctx context.Context, op model.Operador, req dto.MovimientoRequest) (*dto.MovimientoResponse, error) {
	if !req.Monto.IsPositive() {
		return nil, ErrMontoInvalido
	}
	descripcion := strings.TrimSpace(req.Descripcion)
	if descripcion == "" {
		return nil, ErrDescripcionRequerida
	}
	var metodo *string
	switch req.Tipo {
	case model.TipoMovimientoEntrada, model.TipoMovimientoSalida:
	case model.TipoMovimientoVenta:
		if req.MetodoPago == nil || (*req.MetodoPago != model.MetodoPagoEfectivo && *req.MetodoPago != model.MetodoPagoTarjeta) {
			return nil, ErrMetodoPagoRequerido
		}
		m := *req.MetodoPago
		metodo = &m
	default:
		return nil, ErrTipoMovimientoInvalido
	}

	sesion, err := s.sesionAbierta(ctx, op, req.SesionCajaID)
	if err != nil {
		return nil, err
	}

	mov := &model.MovimientoCaja{
		CajaID:      sesion.ID,
		Tipo:        req.Tipo,
		MetodoPago:  metodo,
		Descripcion: descripcion,
		Monto:       req.Monto.Round(2),
		Referencia:  req.Referencia,
		UsuarioID:   op.ID,
		Fecha:       time.Now().UTC(),
	}
	if err := s.repo.CreateMovimiento(ctx, mov); err != nil {
		return nil, err
	}
	metrics.Movimientos.WithLabelValues(mov.Tipo).Inc()
	resp := movimientoToResponse(*mov)
	return &resp, nil
}

// sesionAbierta resolves the session a write targets: the explicit id when
// given, otherwise the operator's current open session.
func (s *cajaService) sesionAbierta(ctx context.Context, op model.Operador, rawID string) (*model.SesionCaja, error) {
	if rawID == "" {
		sesion := s.verificar(ctx, op.ID, false)
		if sesion == nil {
			return nil, ErrSesionNoAbierta
		}
		return sesion, nil
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ErrIDInvalido
	}
	sesion, err := s.repo.FindSesionByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNoEncontrado) {
			return nil, ErrSesionNoEncontrada
		}
		return nil, err
	}
	if !sesion.Abierta() {
		return nil, ErrSesionNoAbierta
	}
	return sesion, nil
}

func (s *cajaService) ListarMovimientos(ctx context.Context, sesionID uuid.UUID) []dto.MovimientoResponse {
	movs, err := s.repo.ListMovimientos(ctx, sesionID)
	if err != nil {
		log.Error().Err(err).Str("sesion_id", sesionID.String()).Msg("listar movimientos")
		return []dto.MovimientoResponse{}
	}
	out := make([]dto.MovimientoResponse, 0, len(movs))
	for _, m := range movs {
		out = append(out, movimientoToResponse(m))
	}
	return out
}

func (s *cajaService) Totales(ctx context.Context, sesionID uuid.UUID) (*dto.TotalesResponse, error) {
	sesion, err := s.repo.FindSesionByID(ctx, sesionID)
	if err != nil {
		if errors.Is(err, repository.ErrNoEncontrado) {
			return nil, ErrSesionNoEncontrada
		}
		return nil, err
	}
	movs, err := s.repo.ListMovimientos(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	return totalesResponse(sesion, movs), nil
}

func totalesResponse(sesion *model.SesionCaja, movs []model.MovimientoCaja) *dto.TotalesResponse {
	t := arqueo.Totalizar(movs)
	return &dto.TotalesResponse{
		SesionCajaID:   sesion.ID.String(),
		MontoInicial:   sesion.MontoInicial,
		VentasEfectivo: t.VentasEfectivo,
		VentasTarjeta:  t.VentasTarjeta,
		Entradas:       t.Entradas,
		Salidas:        t.Salidas,
		MontoEsperado:  t.Esperado(sesion.MontoInicial),
		Movimientos:    len(movs),
	}
}

// ── Arqueo ────────────────────────────────────────────────────────────────────
// Count, compare and close in one transaction: the reconciliation row and the
// session transition either both land or neither does.

func (s *cajaService) Arqueo(ctx context.Context, op model.Operador, req dto.ArqueoRequest) (*dto.ArqueoResponse, error) {
	sesion, err := s.sesionAbierta(ctx, op, req.SesionCajaID)
	if err != nil {
		return nil, err
	}
	movs, err := s.repo.ListMovimientos(ctx, sesion.ID)
	if err != nil {
		return nil, err
	}

	totales := arqueo.Totalizar(movs)
	esperado := totales.Esperado(sesion.MontoInicial)
	contado := arqueo.CalcularContado(req.Conteo)
	diferencia := arqueo.CalcularDiferencia(contado.Total, esperado)

	if !diferencia.IsZero() && (req.Observaciones == nil || strings.TrimSpace(*req.Observaciones) == "") {
		return nil, ErrObservacionesRequeridas
	}

	registro := &model.ArqueoCaja{
		CajaID:        sesion.ID,
		Billetes2000:  req.Conteo.Billetes2000,
		Billetes1000:  req.Conteo.Billetes1000,
		Billetes500:   req.Conteo.Billetes500,
		Billetes200:   req.Conteo.Billetes200,
		Billetes100:   req.Conteo.Billetes100,
		Billetes50:    req.Conteo.Billetes50,
		Monedas25:     req.Conteo.Monedas25,
		Monedas10:     req.Conteo.Monedas10,
		Monedas5:      req.Conteo.Monedas5,
		Monedas1:      req.Conteo.Monedas1,
		TotalBilletes: contado.Billetes,
		TotalMonedas:  contado.Monedas,
		TotalContado:  contado.Total,
		TotalEsperado: esperado,
		Diferencia:    diferencia,
		Observaciones: req.Observaciones,
	}

	var cerrada *model.SesionCaja
	err = s.repo.Transaction(ctx, func(tx repository.CajaRepository) error {
		if err := tx.CreateArqueo(ctx, registro); err != nil {
			if errors.Is(err, repository.ErrDuplicado) {
				return ErrSesionNoAbierta
			}
			return err
		}
		var err error
		cerrada, err = s.cerrarEn(ctx, tx, sesion.ID, TotalesCierre{
			MontoReal:     contado.Total,
			MontoEsperado: esperado,
			Diferencia:    diferencia,
			Totales:       totales,
			UsuarioCierre: op.ID,
			Observaciones: req.Observaciones,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.despuesDeCerrar(ctx, cerrada)

	resp := arqueoToResponse(registro, cerrada.Estado)
	metrics.DiferenciaArqueo.WithLabelValues(resp.Clasificacion).Observe(diferencia.Abs().InexactFloat64())
	return resp, nil
}

// ── Reporte / notas / historial ───────────────────────────────────────────────

func (s *cajaService) ObtenerReporte(ctx context.Context, sesionID uuid.UUID) (*dto.ReporteCajaResponse, error) {
	sesion, err := s.repo.FindSesionByID(ctx, sesionID)
	if err != nil {
		if errors.Is(err, repository.ErrNoEncontrado) {
			return nil, ErrSesionNoEncontrada
		}
		return nil, err
	}
	movs, err := s.repo.ListMovimientos(ctx, sesionID)
	if err != nil {
		return nil, err
	}

	resp := &dto.ReporteCajaResponse{
		Sesion:      *sesionToResponse(sesion),
		Totales:     *totalesResponse(sesion, movs),
		Movimientos: make([]dto.MovimientoResponse, 0, len(movs)),
	}
	for _, m := range movs {
		resp.Movimientos = append(resp.Movimientos, movimientoToResponse(m))
	}
	if sesion.Arqueo != nil {
		resp.Arqueo = arqueoToResponse(sesion.Arqueo, sesion.Estado)
	}
	return resp, nil
}

func (s *cajaService) AgregarNotaCierre(ctx context.Context, sesionID uuid.UUID, nota string) (*dto.SesionCajaResponse, error) {
	nota = strings.TrimSpace(nota)
	if nota == "" {
		return nil, ErrNotaRequerida
	}
	sesion, err := s.repo.FindSesionByID(ctx, sesionID)
	if err != nil {
		if errors.Is(err, repository.ErrNoEncontrado) {
			return nil, ErrSesionNoEncontrada
		}
		return nil, err
	}
	if sesion.Abierta() {
		return nil, ErrSesionAbierta
	}
	if err := s.repo.AppendNotaCierre(ctx, sesionID, nota); err != nil {
		return nil, err
	}
	s.store.InvalidarHistorial(sesion.UsuarioApertura)

	actualizada, err := s.repo.FindSesionByID(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	return sesionToResponse(actualizada), nil
}

func (s *cajaService) Historial(ctx context.Context, operadorID *uuid.UUID, f dto.HistorialFilter) *dto.HistorialResponse {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	key := uuid.Nil
	if operadorID != nil {
		key = *operadorID
	}
	if h, ok := s.store.Historial(key, f.Page, f.Limit); ok {
		return &h
	}

	rows, total, err := s.repo.ListSesiones(ctx, operadorID, f.Page, f.Limit)
	if err != nil {
		log.Error().Err(err).Msg("listar historial de caja")
		return &dto.HistorialResponse{Data: []dto.SesionCajaResponse{}, Page: f.Page, Limit: f.Limit}
	}
	h := dto.HistorialResponse{
		Data:  make([]dto.SesionCajaResponse, 0, len(rows)),
		Total: total,
		Page:  f.Page,
		Limit: f.Limit,
	}
	for i := range rows {
		h.Data = append(h.Data, *sesionToResponse(&rows[i]))
	}
	s.store.GuardarHistorial(key, f.Page, f.Limit, h)
	return &h
}
