package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrDuplicado is returned when an insert hits a unique constraint.
// Callers branch on it with errors.Is instead of parsing driver messages.
var ErrDuplicado = errors.New("registro duplicado")

// ErrNoEncontrado wraps gorm.ErrRecordNotFound for callers outside this package.
var ErrNoEncontrado = gorm.ErrRecordNotFound

// traducirError maps unique-constraint violations to ErrDuplicado.
// gorm.ErrDuplicatedKey covers drivers with TranslateError enabled; the
// pgconn check covers connections opened without it.
func traducirError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicado
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicado
	}
	return err
}
