package repository

import (
	"context"
	"testing"
	"time"

	"logospos/internal/dto"
	"logospos/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nuevoRecordatorio(cuentaID uuid.UUID, tipo, canal string, programada time.Time) *model.Recordatorio {
	return &model.Recordatorio{
		CuentaID:        cuentaID,
		ClienteID:       uuid.New(),
		ClienteNombre:   "Ana",
		Tipo:            tipo,
		Mensaje:         "Hola Ana",
		FechaProgramada: programada,
		Estado:          model.EstadoRecordatorioPendiente,
		Canal:           canal,
	}
}

func TestRecordatorioRepo_TransicionarSoloDesdePendiente(t *testing.T) {
	repo := NewRecordatorioRepository(newTestDB(t))
	ctx := context.Background()
	rec := nuevoRecordatorio(uuid.New(), model.TipoRecordatorioManual, model.CanalSMS, time.Now().UTC())
	require.NoError(t, repo.Create(ctx, rec))

	enviado := time.Now().UTC()
	ok, err := repo.Transicionar(ctx, rec.ID, model.EstadoRecordatorioEnviado, &enviado)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Transicionar(ctx, rec.ID, model.EstadoRecordatorioCancelado, nil)
	require.NoError(t, err)
	assert.False(t, ok, "terminal states are final")

	got, err := repo.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EstadoRecordatorioEnviado, got.Estado)
	assert.NotNil(t, got.FechaEnviado)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNoEncontrado)
}

func TestRecordatorioRepo_ExistePendiente(t *testing.T) {
	repo := NewRecordatorioRepository(newTestDB(t))
	ctx := context.Background()
	cuenta := uuid.New()
	rec := nuevoRecordatorio(cuenta, model.TipoRecordatorioVencimiento, model.CanalWhatsApp, time.Now().UTC())
	require.NoError(t, repo.Create(ctx, rec))

	existe, err := repo.ExistePendiente(ctx, cuenta, model.TipoRecordatorioVencimiento)
	require.NoError(t, err)
	assert.True(t, existe)

	existe, err = repo.ExistePendiente(ctx, cuenta, model.TipoRecordatorioSeguimiento)
	require.NoError(t, err)
	assert.False(t, existe)

	_, err = repo.Transicionar(ctx, rec.ID, model.EstadoRecordatorioFallido, nil)
	require.NoError(t, err)
	existe, err = repo.ExistePendiente(ctx, cuenta, model.TipoRecordatorioVencimiento)
	require.NoError(t, err)
	assert.False(t, existe)
}

func TestRecordatorioRepo_ListYPendientes(t *testing.T) {
	repo := NewRecordatorioRepository(newTestDB(t))
	ctx := context.Background()
	cuenta := uuid.New()
	ahora := time.Now().UTC()

	viejo := nuevoRecordatorio(cuenta, model.TipoRecordatorioManual, model.CanalSMS, ahora.Add(-2*time.Hour))
	reciente := nuevoRecordatorio(cuenta, model.TipoRecordatorioManual, model.CanalEmail, ahora.Add(-time.Hour))
	futuro := nuevoRecordatorio(uuid.New(), model.TipoRecordatorioManual, model.CanalSMS, ahora.Add(time.Hour))
	for _, r := range []*model.Recordatorio{viejo, reciente, futuro} {
		require.NoError(t, repo.Create(ctx, r))
	}

	pend, err := repo.ListPendientesHasta(ctx, ahora, 10)
	require.NoError(t, err)
	require.Len(t, pend, 2)
	assert.Equal(t, viejo.ID, pend[0].ID, "oldest first")

	pend, err = repo.ListPendientesHasta(ctx, ahora, 1)
	require.NoError(t, err)
	assert.Len(t, pend, 1)

	rows, total, err := repo.List(ctx, dto.RecordatorioFilter{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, rows, 2)
	assert.Equal(t, futuro.ID, rows[0].ID, "most recent schedule first")

	rows, total, err = repo.List(ctx, dto.RecordatorioFilter{Canal: model.CanalSMS, CuentaID: cuenta.String(), Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, viejo.ID, rows[0].ID)

	_, err = repo.Transicionar(ctx, reciente.ID, model.EstadoRecordatorioCancelado, nil)
	require.NoError(t, err)
	_, total, err = repo.List(ctx, dto.RecordatorioFilter{Estado: model.EstadoRecordatorioCancelado, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestRecordatorioRepo_UnVencimientoPendientePorCuenta(t *testing.T) {
	repo := NewRecordatorioRepository(newTestDB(t))
	ctx := context.Background()
	cuenta := uuid.New()
	ahora := time.Now().UTC()

	primero := nuevoRecordatorio(cuenta, model.TipoRecordatorioVencimiento, model.CanalWhatsApp, ahora)
	require.NoError(t, repo.Create(ctx, primero))

	otro := nuevoRecordatorio(cuenta, model.TipoRecordatorioVencimiento, model.CanalSMS, ahora)
	assert.ErrorIs(t, repo.Create(ctx, otro), ErrDuplicado)

	// Other tipos and other receivables are unaffected.
	require.NoError(t, repo.Create(ctx, nuevoRecordatorio(cuenta, model.TipoRecordatorioManual, model.CanalSMS, ahora)))
	require.NoError(t, repo.Create(ctx, nuevoRecordatorio(uuid.New(), model.TipoRecordatorioVencimiento, model.CanalSMS, ahora)))

	// Once the first one is sent the receivable can be scheduled again.
	enviado := ahora
	ok, err := repo.Transicionar(ctx, primero.ID, model.EstadoRecordatorioEnviado, &enviado)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, repo.Create(ctx, nuevoRecordatorio(cuenta, model.TipoRecordatorioVencimiento, model.CanalWhatsApp, ahora)))
}

func TestRecordatorioRepo_TransactionConBloqueo(t *testing.T) {
	repo := NewRecordatorioRepository(newTestDB(t))
	ctx := context.Background()
	rec := nuevoRecordatorio(uuid.New(), model.TipoRecordatorioManual, model.CanalSMS, time.Now().UTC())
	require.NoError(t, repo.Create(ctx, rec))

	err := repo.Transaction(ctx, func(tx RecordatorioRepository) error {
		got, err := tx.FindForUpdate(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, model.EstadoRecordatorioPendiente, got.Estado)
		_, err = tx.Transicionar(ctx, rec.ID, model.EstadoRecordatorioFallido, nil)
		require.NoError(t, err)
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	got, err := repo.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EstadoRecordatorioPendiente, got.Estado, "rolled back")

	_, err = repo.FindForUpdate(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNoEncontrado)
}
