package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"logospos/internal/dto"
	"logospos/internal/metrics"
	"logospos/internal/model"
	"logospos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ReminderTransport delivers a rendered reminder over one channel. contacto is
// a phone number or an email address depending on the channel.
type ReminderTransport interface {
	Send(ctx context.Context, contacto, mensaje string) error
}

// Transportes maps a canal to its transport.
type Transportes map[string]ReminderTransport

// EnvioEncolador hands reminder deliveries to the background workers.
// worker.Dispatcher satisfies it.
type EnvioEncolador interface {
	EnqueueRecordatorio(ctx context.Context, recordatorioID uuid.UUID) error
}

type RecordatorioService interface {
	// ProgramarVencimientos creates a due-soon reminder for every open
	// receivable due within horizonteDias that does not already have one pending.
	ProgramarVencimientos(ctx context.Context, horizonteDias int) (*dto.ProgramarRecordatoriosResponse, error)
	Crear(ctx context.Context, req dto.CrearRecordatorioRequest) (*dto.RecordatorioResponse, error)
	Enviar(ctx context.Context, id uuid.UUID) (*dto.RecordatorioResponse, error)
	// Encolar schedules Enviar on the worker pool, or runs it inline when no queue is wired.
	Encolar(ctx context.Context, id uuid.UUID) error
	// EncolarPendientes enqueues up to limit pending reminders whose fecha_programada has passed.
	EncolarPendientes(ctx context.Context, limit int) (int, error)
	Cancelar(ctx context.Context, id uuid.UUID) (*dto.RecordatorioResponse, error)
	Listar(ctx context.Context, f dto.RecordatorioFilter) *dto.RecordatorioListResponse
}

type recordatorioService struct {
	repo        repository.RecordatorioRepository
	cuentas     repository.CuentaRepository
	transportes Transportes
	encolador   EnvioEncolador
	loc         *time.Location
}

// NewRecordatorioService wires the scheduler. encolador may be nil. The
// llamada channel needs no transport and is added when missing.
func NewRecordatorioService(
	repo repository.RecordatorioRepository,
	cuentas repository.CuentaRepository,
	transportes Transportes,
	encolador EnvioEncolador,
	loc *time.Location,
) RecordatorioService {
	t := make(Transportes, len(transportes)+1)
	for canal, tr := range transportes {
		if tr != nil {
			t[canal] = tr
		}
	}
	if _, ok := t[model.CanalLlamada]; !ok {
		t[model.CanalLlamada] = LlamadaTransport{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &recordatorioService{repo: repo, cuentas: cuentas, transportes: t, encolador: encolador, loc: loc}
}

func (s *recordatorioService) hoy() time.Time { return model.SoloFecha(time.Now().In(s.loc)) }

// ── Programar ─────────────────────────────────────────────────────────────────

func (s *recordatorioService) ProgramarVencimientos(ctx context.Context, horizonteDias int) (*dto.ProgramarRecordatoriosResponse, error) {
	if horizonteDias < 0 {
		horizonteDias = 0
	}
	hoy := s.hoy()
	// Inclusive of the whole last day of the horizon.
	hasta := hoy.AddDate(0, 0, horizonteDias+1).Add(-time.Nanosecond)

	cuentas, err := s.cuentas.ListParaRecordatorio(ctx, hasta)
	if err != nil {
		return nil, err
	}

	resp := &dto.ProgramarRecordatoriosResponse{Recordatorios: []dto.RecordatorioResponse{}}
	ahora := time.Now().UTC()
	for i := range cuentas {
		c := &cuentas[i]
		existe, err := s.repo.ExistePendiente(ctx, c.ID, model.TipoRecordatorioVencimiento)
		if err != nil {
			return resp, err
		}
		if existe {
			resp.Omitidos++
			continue
		}
		c.Recalcular(hoy)

		rec := &model.Recordatorio{
			CuentaID:        c.ID,
			ClienteID:       c.ClienteID,
			ClienteNombre:   c.ClienteNombre(),
			Tipo:            model.TipoRecordatorioVencimiento,
			Canal:           model.CanalWhatsApp,
			Mensaje:         Renderizar(plantillaPara(model.TipoRecordatorioVencimiento, model.CanalWhatsApp), c.ClienteNombre(), c.MontoPendiente, c.FechaVencimiento.In(s.loc)),
			FechaProgramada: ahora,
			Estado:          model.EstadoRecordatorioPendiente,
		}
		if c.Cliente != nil {
			rec.Telefono = c.Cliente.Telefono
			rec.Email = c.Cliente.Email
		}
		if err := s.repo.Create(ctx, rec); err != nil {
			if errors.Is(err, repository.ErrDuplicado) {
				// A concurrent scan created it between the check and the insert.
				resp.Omitidos++
				continue
			}
			return resp, err
		}
		resp.Creados++
		resp.Recordatorios = append(resp.Recordatorios, recordatorioToResponse(rec))
	}

	metrics.RecordatoriosProgramados.Add(float64(resp.Creados))
	log.Info().
		Int("horizonte_dias", horizonteDias).
		Int("creados", resp.Creados).
		Int("omitidos", resp.Omitidos).
		Msg("recordatorios de vencimiento programados")
	return resp, nil
}

// ── Crear ─────────────────────────────────────────────────────────────────────

func (s *recordatorioService) Crear(ctx context.Context, req dto.CrearRecordatorioRequest) (*dto.RecordatorioResponse, error) {
	cuentaID, err := uuid.Parse(req.CuentaID)
	if err != nil {
		return nil, ErrIDInvalido
	}
	if !canalConocido(req.Canal) {
		return nil, ErrCanalInvalido
	}
	cuenta, err := s.cuentas.FindByID(ctx, cuentaID)
	if err != nil {
		if errors.Is(err, repository.ErrNoEncontrado) {
			return nil, ErrCuentaNoEncontrada
		}
		return nil, err
	}
	cuenta.Recalcular(s.hoy())

	tipo := req.Tipo
	if tipo == "" {
		tipo = model.TipoRecordatorioManual
	}
	plantilla := plantillaPara(tipo, req.Canal)
	if req.Mensaje != nil && strings.TrimSpace(*req.Mensaje) != "" {
		plantilla = *req.Mensaje
	}
	mensaje := Renderizar(plantilla, cuenta.ClienteNombre(), cuenta.MontoPendiente, cuenta.FechaVencimiento.In(s.loc))
	programada := time.Now().UTC()
	if req.FechaProgramada != nil {
		programada = req.FechaProgramada.UTC()
	}

	rec := &model.Recordatorio{
		CuentaID:        cuenta.ID,
		ClienteID:       cuenta.ClienteID,
		ClienteNombre:   cuenta.ClienteNombre(),
		Tipo:            tipo,
		Mensaje:         mensaje,
		FechaProgramada: programada,
		Estado:          model.EstadoRecordatorioPendiente,
		Canal:           req.Canal,
		Telefono:        req.Telefono,
		Email:           req.Email,
		Notas:           req.Notas,
	}
	// Contact falls back to the customer record.
	if cuenta.Cliente != nil {
		if vacio(rec.Telefono) {
			rec.Telefono = cuenta.Cliente.Telefono
		}
		if vacio(rec.Email) {
			rec.Email = cuenta.Cliente.Email
		}
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicado) {
			return nil, ErrRecordatorioDuplicado
		}
		return nil, err
	}
	resp := recordatorioToResponse(rec)
	return &resp, nil
}

func canalConocido(canal string) bool {
	switch canal {
	case model.CanalWhatsApp, model.CanalEmail, model.CanalSMS, model.CanalLlamada:
		return true
	}
	return false
}

func vacio(p *string) bool { return p == nil || strings.TrimSpace(*p) == "" }

// ── Enviar ────────────────────────────────────────────────────────────────────

// Enviar delivers a pending reminder once. The row stays locked while the
// transport runs, so a concurrent send waits and then finds it terminal.
func (s *recordatorioService) Enviar(ctx context.Context, id uuid.UUID) (*dto.RecordatorioResponse, error) {
	var rec *model.Recordatorio
	err := s.repo.Transaction(ctx, func(tx repository.RecordatorioRepository) error {
		r, err := tx.FindForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNoEncontrado) {
				return ErrRecordatorioNoEncontrado
			}
			return err
		}
		if r.Terminal() {
			return ErrRecordatorioTerminal
		}

		estado := model.EstadoRecordatorioEnviado
		var fechaEnviado *time.Time
		if envioErr := s.entregar(ctx, r); envioErr != nil {
			estado = model.EstadoRecordatorioFallido
			log.Warn().Err(envioErr).
				Str("recordatorio_id", r.ID.String()).
				Str("canal", r.Canal).
				Msg("envío de recordatorio fallido")
		} else {
			now := time.Now().UTC()
			fechaEnviado = &now
		}

		ok, err := tx.Transicionar(ctx, r.ID, estado, fechaEnviado)
		if err != nil {
			return err
		}
		if !ok {
			return ErrRecordatorioTerminal
		}
		r.Estado = estado
		r.FechaEnviado = fechaEnviado
		rec = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordatoriosEnviados.WithLabelValues(rec.Canal, rec.Estado).Inc()

	resp := recordatorioToResponse(rec)
	return &resp, nil
}

// entregar validates the contact the channel needs and calls its transport.
func (s *recordatorioService) entregar(ctx context.Context, rec *model.Recordatorio) error {
	var contacto string
	switch rec.Canal {
	case model.CanalWhatsApp, model.CanalSMS:
		if vacio(rec.Telefono) {
			return ErrContactoRequerido
		}
		contacto = strings.TrimSpace(*rec.Telefono)
	case model.CanalEmail:
		if vacio(rec.Email) {
			return ErrContactoRequerido
		}
		contacto = strings.TrimSpace(*rec.Email)
	case model.CanalLlamada:
	default:
		return ErrCanalInvalido
	}
	tr, ok := s.transportes[rec.Canal]
	if !ok {
		return errors.New("canal " + rec.Canal + " sin transporte configurado")
	}
	return tr.Send(ctx, contacto, rec.Mensaje)
}

func (s *recordatorioService) buscar(ctx context.Context, id uuid.UUID) (*model.Recordatorio, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNoEncontrado) {
			return nil, ErrRecordatorioNoEncontrado
		}
		return nil, err
	}
	return rec, nil
}

func (s *recordatorioService) Encolar(ctx context.Context, id uuid.UUID) error {
	if s.encolador == nil {
		_, err := s.Enviar(ctx, id)
		return err
	}
	rec, err := s.buscar(ctx, id)
	if err != nil {
		return err
	}
	if rec.Terminal() {
		return ErrRecordatorioTerminal
	}
	return s.encolador.EnqueueRecordatorio(ctx, rec.ID)
}

func (s *recordatorioService) EncolarPendientes(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	pendientes, err := s.repo.ListPendientesHasta(ctx, time.Now().UTC(), limit)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, rec := range pendientes {
		if err := s.Encolar(ctx, rec.ID); err != nil {
			log.Warn().Err(err).Str("recordatorio_id", rec.ID.String()).Msg("no se pudo encolar recordatorio")
			continue
		}
		n++
	}
	return n, nil
}

// ── Cancelar / Listar ─────────────────────────────────────────────────────────

// Cancelar is a no-op on an already cancelled reminder; sent and failed
// reminders cannot be cancelled.
func (s *recordatorioService) Cancelar(ctx context.Context, id uuid.UUID) (*dto.RecordatorioResponse, error) {
	rec, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	switch rec.Estado {
	case model.EstadoRecordatorioCancelado:
		resp := recordatorioToResponse(rec)
		return &resp, nil
	case model.EstadoRecordatorioEnviado, model.EstadoRecordatorioFallido:
		return nil, ErrRecordatorioTerminal
	}

	ok, err := s.repo.Transicionar(ctx, id, model.EstadoRecordatorioCancelado, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race with another transition; report what won.
		actual, err := s.buscar(ctx, id)
		if err != nil {
			return nil, err
		}
		if actual.Estado != model.EstadoRecordatorioCancelado {
			return nil, ErrRecordatorioTerminal
		}
		rec = actual
	}
	rec.Estado = model.EstadoRecordatorioCancelado
	resp := recordatorioToResponse(rec)
	return &resp, nil
}

func (s *recordatorioService) Listar(ctx context.Context, f dto.RecordatorioFilter) *dto.RecordatorioListResponse {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 50
	}
	resp := &dto.RecordatorioListResponse{Data: []dto.RecordatorioResponse{}, Page: f.Page, Limit: f.Limit}
	rows, total, err := s.repo.List(ctx, f)
	if err != nil {
		log.Error().Err(err).Msg("listar recordatorios")
		return resp
	}
	resp.Total = total
	for i := range rows {
		resp.Data = append(resp.Data, recordatorioToResponse(&rows[i]))
	}
	return resp
}

// LlamadaTransport backs the llamada channel: calls are placed by staff from
// the reminder list, so recording the attempt always succeeds.
type LlamadaTransport struct{}

func (LlamadaTransport) Send(_ context.Context, _, mensaje string) error {
	log.Info().Str("canal", model.CanalLlamada).Str("guion", mensaje).Msg("llamada registrada")
	return nil
}
