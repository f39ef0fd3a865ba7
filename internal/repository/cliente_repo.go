package repository

import (
	"context"
	"strings"

	"logospos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClienteRepository interface {
	Create(ctx context.Context, c *model.Cliente) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Cliente, error)
	List(ctx context.Context, busqueda string) ([]model.Cliente, error)
}

type clienteRepo struct{ db *gorm.DB }

func NewClienteRepository(db *gorm.DB) ClienteRepository { return &clienteRepo{db: db} }

func (r *clienteRepo) Create(ctx context.Context, c *model.Cliente) error {
	return traducirError(r.db.WithContext(ctx).Create(c).Error)
}

func (r *clienteRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Cliente, error) {
	var c model.Cliente
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *clienteRepo) List(ctx context.Context, busqueda string) ([]model.Cliente, error) {
	q := r.db.WithContext(ctx).Where("activo = ?", true)
	if b := strings.TrimSpace(busqueda); b != "" {
		q = q.Where("LOWER(nombre) LIKE ?", "%"+strings.ToLower(b)+"%")
	}
	var rows []model.Cliente
	err := q.Order("nombre ASC").Find(&rows).Error
	return rows, err
}
