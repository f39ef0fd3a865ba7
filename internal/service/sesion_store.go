package service

import (
	"sync"

	"logospos/internal/dto"
	"logospos/internal/model"

	"github.com/google/uuid"
)

const (
	EventoSesionAbierta = "abierta"
	EventoSesionCerrada = "cerrada"
	EventoHistorial     = "historial"
)

// EventoSesion is published to subscribers whenever the store changes.
type EventoSesion struct {
	Tipo       string    `json:"tipo"`
	OperadorID uuid.UUID `json:"operador_id"`
	SesionID   uuid.UUID `json:"sesion_id,omitempty"`
}

type historialKey struct {
	operador    uuid.UUID // uuid.Nil caches the all-operators listing
	page, limit int
}

// SesionStore caches each operator's current session and recent history
// listings. It is owned by the caja service, which invalidates it after every
// write; readers fall back to the repository on a miss.
type SesionStore struct {
	mu        sync.RWMutex
	actual    map[uuid.UUID]*model.SesionCaja
	historial map[historialKey]dto.HistorialResponse
	subs      map[uuid.UUID]map[chan EventoSesion]struct{}
}

func NewSesionStore() *SesionStore {
	return &SesionStore{
		actual:    make(map[uuid.UUID]*model.SesionCaja),
		historial: make(map[historialKey]dto.HistorialResponse),
		subs:      make(map[uuid.UUID]map[chan EventoSesion]struct{}),
	}
}

// Actual returns the last known current session. ok is false when the store
// has not loaded the operator yet; a nil session with ok=true means "none open".
func (s *SesionStore) Actual(operadorID uuid.UUID) (sesion *model.SesionCaja, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sesion, ok = s.actual[operadorID]
	if sesion != nil {
		cp := *sesion
		sesion = &cp
	}
	return sesion, ok
}

// SetActual records the operator's current session (nil for none).
func (s *SesionStore) SetActual(operadorID uuid.UUID, sesion *model.SesionCaja) {
	var cp *model.SesionCaja
	if sesion != nil {
		c := *sesion
		c.Movimientos = nil
		cp = &c
	}
	s.mu.Lock()
	prev, known := s.actual[operadorID]
	s.actual[operadorID] = cp
	s.mu.Unlock()

	switch {
	case cp != nil && (!known || prev == nil || prev.ID != cp.ID):
		s.publish(EventoSesion{Tipo: EventoSesionAbierta, OperadorID: operadorID, SesionID: cp.ID})
	case cp == nil && prev != nil:
		s.publish(EventoSesion{Tipo: EventoSesionCerrada, OperadorID: operadorID, SesionID: prev.ID})
	}
}

// Olvidar drops the cached current session so the next read hits the store.
func (s *SesionStore) Olvidar(operadorID uuid.UUID) {
	s.mu.Lock()
	delete(s.actual, operadorID)
	s.mu.Unlock()
}

func (s *SesionStore) Historial(operadorID uuid.UUID, page, limit int) (dto.HistorialResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.historial[historialKey{operadorID, page, limit}]
	return h, ok
}

func (s *SesionStore) GuardarHistorial(operadorID uuid.UUID, page, limit int, h dto.HistorialResponse) {
	s.mu.Lock()
	s.historial[historialKey{operadorID, page, limit}] = h
	s.mu.Unlock()
}

// InvalidarHistorial drops the operator's cached pages and the all-operators pages.
func (s *SesionStore) InvalidarHistorial(operadorID uuid.UUID) {
	s.mu.Lock()
	for k := range s.historial {
		if k.operador == operadorID || k.operador == uuid.Nil {
			delete(s.historial, k)
		}
	}
	s.mu.Unlock()
	s.publish(EventoSesion{Tipo: EventoHistorial, OperadorID: operadorID})
}

// Subscribe returns a channel of store events for one operator and a cancel
// func that must be called to release it. Slow subscribers miss events
// rather than block writers.
func (s *SesionStore) Subscribe(operadorID uuid.UUID) (<-chan EventoSesion, func()) {
	ch := make(chan EventoSesion, 8)
	s.mu.Lock()
	if s.subs[operadorID] == nil {
		s.subs[operadorID] = make(map[chan EventoSesion]struct{})
	}
	s.subs[operadorID][ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs[operadorID], ch)
			if len(s.subs[operadorID]) == 0 {
				delete(s.subs, operadorID)
			}
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *SesionStore) publish(ev EventoSesion) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subs[ev.OperadorID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
