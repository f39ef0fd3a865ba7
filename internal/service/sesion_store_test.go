package service

import (
	"testing"
	"time"

	"logospos/internal/dto"
	"logospos/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recibir(t *testing.T, ch <-chan EventoSesion) EventoSesion {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("sin evento")
		return EventoSesion{}
	}
}

func TestSesionStore_ActualDevuelveCopia(t *testing.T) {
	st := NewSesionStore()
	op := uuid.New()

	_, ok := st.Actual(op)
	assert.False(t, ok)

	st.SetActual(op, nil)
	s, ok := st.Actual(op)
	assert.True(t, ok)
	assert.Nil(t, s)

	sesion := &model.SesionCaja{ID: uuid.New(), Estado: model.EstadoCajaAbierta}
	st.SetActual(op, sesion)
	s, _ = st.Actual(op)
	s.Estado = model.EstadoCajaCerrada

	again, _ := st.Actual(op)
	assert.Equal(t, model.EstadoCajaAbierta, again.Estado)

	st.Olvidar(op)
	_, ok = st.Actual(op)
	assert.False(t, ok)
}

func TestSesionStore_Eventos(t *testing.T) {
	st := NewSesionStore()
	op := uuid.New()
	otro := uuid.New()

	ch, cancel := st.Subscribe(op)
	chOtro, cancelOtro := st.Subscribe(otro)
	defer cancelOtro()

	sesion := &model.SesionCaja{ID: uuid.New()}
	st.SetActual(op, sesion)
	ev := recibir(t, ch)
	assert.Equal(t, EventoSesionAbierta, ev.Tipo)
	assert.Equal(t, sesion.ID, ev.SesionID)

	// Re-setting the same session is not a new opening.
	st.SetActual(op, sesion)
	st.SetActual(op, nil)
	ev = recibir(t, ch)
	assert.Equal(t, EventoSesionCerrada, ev.Tipo)
	assert.Equal(t, sesion.ID, ev.SesionID)

	st.InvalidarHistorial(op)
	assert.Equal(t, EventoHistorial, recibir(t, ch).Tipo)

	select {
	case ev := <-chOtro:
		t.Fatalf("evento ajeno recibido: %+v", ev)
	default:
	}

	cancel()
	cancel()
	_, abierto := <-ch
	assert.False(t, abierto)
	st.SetActual(op, &model.SesionCaja{ID: uuid.New()})
}

func TestSesionStore_SuscriptorLentoNoBloquea(t *testing.T) {
	st := NewSesionStore()
	op := uuid.New()
	_, cancel := st.Subscribe(op)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			st.InvalidarHistorial(op)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish bloqueó al escritor")
	}
}

func TestSesionStore_InvalidarHistorial(t *testing.T) {
	st := NewSesionStore()
	op, otro := uuid.New(), uuid.New()
	h := dto.HistorialResponse{Total: 1}

	st.GuardarHistorial(op, 1, 20, h)
	st.GuardarHistorial(otro, 1, 20, h)
	st.GuardarHistorial(uuid.Nil, 1, 20, h)

	st.InvalidarHistorial(op)

	_, ok := st.Historial(op, 1, 20)
	assert.False(t, ok)
	_, ok = st.Historial(uuid.Nil, 1, 20)
	assert.False(t, ok, "the all-operators listing includes op")
	got, ok := st.Historial(otro, 1, 20)
	require.True(t, ok)
	assert.EqualValues(t, 1, got.Total)
}
