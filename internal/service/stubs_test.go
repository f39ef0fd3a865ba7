package service

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"logospos/internal/dto"
	"logospos/internal/model"
	"logospos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Caja ──────────────────────────────────────────────────────────────────────

type stubCajaRepo struct {
	mu          sync.Mutex
	sesiones    map[uuid.UUID]model.SesionCaja
	movimientos []model.MovimientoCaja
	arqueos     map[uuid.UUID]model.ArqueoCaja

	consultas   atomic.Int32
	bloqueo     chan struct{} // FindSesionAbiertaPorUsuario waits on it when set
	pausas      map[int32]chan struct{}
	errConsulta error
}

var _ repository.CajaRepository = (*stubCajaRepo)(nil)

func newStubCajaRepo() *stubCajaRepo {
	return &stubCajaRepo{
		sesiones: make(map[uuid.UUID]model.SesionCaja),
		arqueos:  make(map[uuid.UUID]model.ArqueoCaja),
	}
}

func (r *stubCajaRepo) Transaction(_ context.Context, fn func(tx repository.CajaRepository) error) error {
	return fn(r)
}

func (r *stubCajaRepo) CreateSesion(_ context.Context, s *model.SesionCaja) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existente := range r.sesiones {
		if existente.UsuarioApertura == s.UsuarioApertura && existente.Abierta() {
			return repository.ErrDuplicado
		}
	}
	_ = s.BeforeCreate(nil)
	r.sesiones[s.ID] = *s
	return nil
}

// FindSesionAbiertaPorUsuario reads before it waits, like a query whose
// snapshot predates writes made while it is in flight. Call n waits on
// pausas[n] when present, otherwise on bloqueo.
func (r *stubCajaRepo) FindSesionAbiertaPorUsuario(_ context.Context, usuarioID uuid.UUID) (*model.SesionCaja, error) {
	n := r.consultas.Add(1)
	r.mu.Lock()
	var sesion *model.SesionCaja
	for _, s := range r.sesiones {
		if s.UsuarioApertura == usuarioID && s.Abierta() {
			cp := s
			sesion = &cp
			break
		}
	}
	pausa := r.pausas[n]
	r.mu.Unlock()

	switch {
	case pausa != nil:
		<-pausa
	case r.bloqueo != nil:
		<-r.bloqueo
	}
	if r.errConsulta != nil {
		return nil, r.errConsulta
	}
	return sesion, nil
}

func (r *stubCajaRepo) FindSesionByID(_ context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sesiones[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if a, ok := r.arqueos[id]; ok {
		s.Arqueo = &a
	}
	return &s, nil
}

func (r *stubCajaRepo) CerrarSesion(_ context.Context, id uuid.UUID, c repository.CierreSesion) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sesiones[id]
	if !ok || !s.Abierta() {
		return false, nil
	}
	now := time.Now().UTC()
	s.Estado = model.EstadoCajaCerrada
	s.FechaCierre = &now
	s.MontoFinal = &c.MontoFinal
	s.TotalVentasEfectivo = &c.TotalVentasEfectivo
	s.TotalVentasTarjeta = &c.TotalVentasTarjeta
	s.TotalEntradas = &c.TotalEntradas
	s.TotalSalidas = &c.TotalSalidas
	s.MontoEsperado = &c.MontoEsperado
	s.MontoReal = &c.MontoReal
	s.Diferencia = &c.Diferencia
	s.UsuarioCierre = &c.UsuarioCierre
	s.ObservacionesCierre = c.ObservacionesCierre
	r.sesiones[id] = s
	return true, nil
}

func (r *stubCajaRepo) AppendNotaCierre(_ context.Context, id uuid.UUID, nota string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sesiones[id]
	if s.ObservacionesCierre == nil || *s.ObservacionesCierre == "" {
		s.ObservacionesCierre = &nota
	} else {
		v := *s.ObservacionesCierre + "\n" + nota
		s.ObservacionesCierre = &v
	}
	r.sesiones[id] = s
	return nil
}

func (r *stubCajaRepo) ListSesiones(_ context.Context, usuarioID *uuid.UUID, page, limit int) ([]model.SesionCaja, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rows []model.SesionCaja
	for _, s := range r.sesiones {
		if usuarioID == nil || s.UsuarioApertura == *usuarioID {
			rows = append(rows, s)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].FechaApertura.After(rows[j].FechaApertura) })
	total := int64(len(rows))
	desde := (page - 1) * limit
	if desde >= len(rows) {
		return []model.SesionCaja{}, total, nil
	}
	hasta := min(desde+limit, len(rows))
	return rows[desde:hasta], total, nil
}

func (r *stubCajaRepo) CreateMovimiento(_ context.Context, m *model.MovimientoCaja) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = m.BeforeCreate(nil)
	r.movimientos = append(r.movimientos, *m)
	return nil
}

func (r *stubCajaRepo) ListMovimientos(_ context.Context, cajaID uuid.UUID) ([]model.MovimientoCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.MovimientoCaja{}
	for _, m := range r.movimientos {
		if m.CajaID == cajaID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *stubCajaRepo) CreateArqueo(_ context.Context, a *model.ArqueoCaja) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.arqueos[a.CajaID]; ok {
		return repository.ErrDuplicado
	}
	_ = a.BeforeCreate(nil)
	r.arqueos[a.CajaID] = *a
	return nil
}

func (r *stubCajaRepo) FindArqueo(_ context.Context, cajaID uuid.UUID) (*model.ArqueoCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.arqueos[cajaID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &a, nil
}

type stubNotificador struct {
	mu       sync.Mutex
	sesiones []uuid.UUID
}

func (n *stubNotificador) EnqueueReporteCierre(_ context.Context, id uuid.UUID) error {
	n.mu.Lock()
	n.sesiones = append(n.sesiones, id)
	n.mu.Unlock()
	return nil
}

// ── Clientes / cuentas ────────────────────────────────────────────────────────

type stubClienteRepo struct {
	mu       sync.Mutex
	clientes map[uuid.UUID]model.Cliente
}

var _ repository.ClienteRepository = (*stubClienteRepo)(nil)

func newStubClienteRepo() *stubClienteRepo {
	return &stubClienteRepo{clientes: make(map[uuid.UUID]model.Cliente)}
}

func (r *stubClienteRepo) Create(_ context.Context, c *model.Cliente) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = c.BeforeCreate(nil)
	r.clientes[c.ID] = *c
	return nil
}

func (r *stubClienteRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Cliente, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clientes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r *stubClienteRepo) List(_ context.Context, busqueda string) ([]model.Cliente, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Cliente{}
	for _, c := range r.clientes {
		if c.Activo && strings.Contains(strings.ToLower(c.Nombre), strings.ToLower(busqueda)) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nombre < out[j].Nombre })
	return out, nil
}

type stubCuentaRepo struct {
	mu       sync.Mutex
	cuentas  map[uuid.UUID]model.CuentaPorCobrar
	pagos    []model.PagoCuenta
	clientes *stubClienteRepo
}

var _ repository.CuentaRepository = (*stubCuentaRepo)(nil)

func newStubCuentaRepo(clientes *stubClienteRepo) *stubCuentaRepo {
	return &stubCuentaRepo{cuentas: make(map[uuid.UUID]model.CuentaPorCobrar), clientes: clientes}
}

func (r *stubCuentaRepo) Transaction(_ context.Context, fn func(tx repository.CuentaRepository) error) error {
	r.mu.Lock()
	snapshot := make(map[uuid.UUID]model.CuentaPorCobrar, len(r.cuentas))
	for k, v := range r.cuentas {
		snapshot[k] = v
	}
	pagos := len(r.pagos)
	r.mu.Unlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.cuentas = snapshot
		r.pagos = r.pagos[:pagos]
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *stubCuentaRepo) Create(_ context.Context, c *model.CuentaPorCobrar) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = c.BeforeCreate(nil)
	cp := *c
	cp.Cliente = nil
	r.cuentas[c.ID] = cp
	return nil
}

func (r *stubCuentaRepo) conCliente(c model.CuentaPorCobrar) model.CuentaPorCobrar {
	if r.clientes != nil {
		if cl, err := r.clientes.FindByID(context.Background(), c.ClienteID); err == nil {
			c.Cliente = cl
		}
	}
	return c
}

func (r *stubCuentaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.CuentaPorCobrar, error) {
	r.mu.Lock()
	c, ok := r.cuentas[id]
	r.mu.Unlock()
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c = r.conCliente(c)
	return &c, nil
}

func (r *stubCuentaRepo) FindForUpdate(_ context.Context, id uuid.UUID) (*model.CuentaPorCobrar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cuentas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r *stubCuentaRepo) List(_ context.Context, f dto.CuentaFilter, hoy time.Time) ([]model.CuentaPorCobrar, error) {
	r.mu.Lock()
	var rows []model.CuentaPorCobrar
	for _, c := range r.cuentas {
		if f.ClienteID != "" && c.ClienteID.String() != f.ClienteID {
			continue
		}
		if f.Estado != "" && f.Estado != "all" &&
			model.EstadoCuenta(c.MontoTotal, c.MontoPagado, c.FechaVencimiento, hoy) != f.Estado {
			continue
		}
		rows = append(rows, c)
	}
	r.mu.Unlock()
	sort.Slice(rows, func(i, j int) bool { return rows[i].FechaVencimiento.Before(rows[j].FechaVencimiento) })
	for i := range rows {
		rows[i] = r.conCliente(rows[i])
	}
	return rows, nil
}

func (r *stubCuentaRepo) ListParaRecordatorio(_ context.Context, hasta time.Time) ([]model.CuentaPorCobrar, error) {
	r.mu.Lock()
	var rows []model.CuentaPorCobrar
	for _, c := range r.cuentas {
		if c.Estado != model.EstadoCuentaPagada && c.MontoPendiente.IsPositive() && !c.FechaVencimiento.After(hasta) {
			rows = append(rows, c)
		}
	}
	r.mu.Unlock()
	sort.Slice(rows, func(i, j int) bool { return rows[i].FechaVencimiento.Before(rows[j].FechaVencimiento) })
	for i := range rows {
		rows[i] = r.conCliente(rows[i])
	}
	return rows, nil
}

func (r *stubCuentaRepo) UpdateSaldo(_ context.Context, c *model.CuentaPorCobrar) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	actual := r.cuentas[c.ID]
	actual.MontoPagado = c.MontoPagado
	actual.MontoPendiente = c.MontoPendiente
	actual.Estado = c.Estado
	r.cuentas[c.ID] = actual
	return nil
}

func (r *stubCuentaRepo) CreatePago(_ context.Context, p *model.PagoCuenta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = p.BeforeCreate(nil)
	r.pagos = append(r.pagos, *p)
	return nil
}

func (r *stubCuentaRepo) ListPagos(_ context.Context, cuentaID uuid.UUID) ([]model.PagoCuenta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.PagoCuenta{}
	for i := len(r.pagos) - 1; i >= 0; i-- {
		if r.pagos[i].CuentaID == cuentaID {
			out = append(out, r.pagos[i])
		}
	}
	return out, nil
}

// ── Recordatorios ─────────────────────────────────────────────────────────────

type stubRecordatorioRepo struct {
	mu    sync.Mutex
	recs  map[uuid.UUID]model.Recordatorio
	orden []uuid.UUID

	// txMu serializes Transaction bodies like a row lock would.
	txMu sync.Mutex
}

var _ repository.RecordatorioRepository = (*stubRecordatorioRepo)(nil)

func newStubRecordatorioRepo() *stubRecordatorioRepo {
	return &stubRecordatorioRepo{recs: make(map[uuid.UUID]model.Recordatorio)}
}

func (r *stubRecordatorioRepo) Create(_ context.Context, rec *model.Recordatorio) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.Tipo == model.TipoRecordatorioVencimiento && rec.Estado == model.EstadoRecordatorioPendiente {
		for _, otro := range r.recs {
			if otro.CuentaID == rec.CuentaID && otro.Tipo == rec.Tipo && otro.Estado == rec.Estado {
				return repository.ErrDuplicado
			}
		}
	}
	_ = rec.BeforeCreate(nil)
	r.recs[rec.ID] = *rec
	r.orden = append(r.orden, rec.ID)
	return nil
}

func (r *stubRecordatorioRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Recordatorio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &rec, nil
}

func (r *stubRecordatorioRepo) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Recordatorio, error) {
	return r.FindByID(ctx, id)
}

func (r *stubRecordatorioRepo) Transaction(_ context.Context, fn func(tx repository.RecordatorioRepository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return fn(r)
}

func (r *stubRecordatorioRepo) List(_ context.Context, f dto.RecordatorioFilter) ([]model.Recordatorio, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Recordatorio{}
	for _, id := range r.orden {
		rec := r.recs[id]
		if f.Estado != "" && f.Estado != "all" && rec.Estado != f.Estado {
			continue
		}
		if f.Canal != "" && rec.Canal != f.Canal {
			continue
		}
		if f.CuentaID != "" && rec.CuentaID.String() != f.CuentaID {
			continue
		}
		out = append(out, rec)
	}
	return out, int64(len(out)), nil
}

func (r *stubRecordatorioRepo) ExistePendiente(_ context.Context, cuentaID uuid.UUID, tipo string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.recs {
		if rec.CuentaID == cuentaID && rec.Tipo == tipo && rec.Estado == model.EstadoRecordatorioPendiente {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubRecordatorioRepo) Transicionar(_ context.Context, id uuid.UUID, estado string, fechaEnviado *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recs[id]
	if !ok || rec.Estado != model.EstadoRecordatorioPendiente {
		return false, nil
	}
	rec.Estado = estado
	rec.FechaEnviado = fechaEnviado
	r.recs[id] = rec
	return true, nil
}

func (r *stubRecordatorioRepo) ListPendientesHasta(_ context.Context, hasta time.Time, limit int) ([]model.Recordatorio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Recordatorio
	for _, id := range r.orden {
		rec := r.recs[id]
		if rec.Estado == model.EstadoRecordatorioPendiente && !rec.FechaProgramada.After(hasta) {
			out = append(out, rec)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type stubEncolador struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (e *stubEncolador) EnqueueRecordatorio(_ context.Context, id uuid.UUID) error {
	e.mu.Lock()
	e.ids = append(e.ids, id)
	e.mu.Unlock()
	return nil
}

// transporteSimulado stands in for a delivery gateway: it succeeds with
// probability exito using the injected source.
type transporteSimulado struct {
	exito float64
	rnd   *rand.Rand

	mu     sync.Mutex
	envios []string
}

func (t *transporteSimulado) Send(_ context.Context, contacto, _ string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.envios = append(t.envios, contacto)
	if t.rnd.Float64() < t.exito {
		return nil
	}
	return errEnvioSimulado
}

var errEnvioSimulado = errorString("gateway rechazó el envío")

type errorString string

func (e errorString) Error() string { return string(e) }

// ── Usuarios ──────────────────────────────────────────────────────────────────

type stubUsuarioRepo struct {
	mu       sync.Mutex
	usuarios map[uuid.UUID]model.Usuario
}

var _ repository.UsuarioRepository = (*stubUsuarioRepo)(nil)

func newStubUsuarioRepo() *stubUsuarioRepo {
	return &stubUsuarioRepo{usuarios: make(map[uuid.UUID]model.Usuario)}
}

func (r *stubUsuarioRepo) Create(_ context.Context, u *model.Usuario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existente := range r.usuarios {
		if existente.Username == u.Username {
			return repository.ErrDuplicado
		}
	}
	_ = u.BeforeCreate(nil)
	r.usuarios[u.ID] = *u
	return nil
}

func (r *stubUsuarioRepo) FindByUsername(_ context.Context, username string) (*model.Usuario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.usuarios {
		if u.Activo && u.Username == username {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUsuarioRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Usuario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.usuarios[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *stubUsuarioRepo) List(_ context.Context) ([]model.Usuario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Usuario
	for _, u := range r.usuarios {
		if u.Activo {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *stubUsuarioRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.usuarios[id]
	u.Activo = false
	r.usuarios[id] = u
	return nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strPtr(s string) *string { return &s }

func nuevoOperador(rol string) model.Operador {
	return model.Operador{ID: uuid.New(), Username: "op-" + rol, Rol: rol}
}
