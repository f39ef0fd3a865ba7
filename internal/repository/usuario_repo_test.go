package repository

import (
	"context"
	"testing"

	"logospos/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsuarioRepo(t *testing.T) {
	db := newTestDB(t)
	repo := NewUsuarioRepository(db)
	ctx := context.Background()

	u := &model.Usuario{Username: "maria", Nombre: "María", Email: ptr("Maria@Example.com"), PasswordHash: "x", Rol: "cajero", Activo: true}
	require.NoError(t, repo.Create(ctx, u))

	dup := &model.Usuario{Username: "maria", Nombre: "Otra", PasswordHash: "x", Rol: "cajero", Activo: true}
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrDuplicado)

	got, err := repo.FindByUsername(ctx, "maria@example.com")
	require.NoError(t, err, "login by email is case-insensitive")
	assert.Equal(t, u.ID, got.ID)

	require.NoError(t, repo.SoftDelete(ctx, u.ID))
	_, err = repo.FindByUsername(ctx, "maria")
	assert.ErrorIs(t, err, ErrNoEncontrado)

	byID, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, byID.Activo)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestClienteRepo_Busqueda(t *testing.T) {
	db := newTestDB(t)
	repo := NewClienteRepository(db)
	ctx := context.Background()

	crearCliente(t, db, "Ana Pérez")
	crearCliente(t, db, "Luis Gómez")
	inactivo := &model.Cliente{Nombre: "Ana Inactiva", Activo: true}
	require.NoError(t, repo.Create(ctx, inactivo))
	require.NoError(t, db.Model(inactivo).Update("activo", false).Error)

	rows, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ana Pérez", rows[0].Nombre)

	rows, err = repo.List(ctx, "  ana ")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ana Pérez", rows[0].Nombre)
}
