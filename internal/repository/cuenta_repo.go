package repository

import (
	"context"
	"time"

	"logospos/internal/dto"
	"logospos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var estadosAbiertos = []string{
	model.EstadoCuentaPendiente,
	model.EstadoCuentaParcial,
	model.EstadoCuentaVencida,
}

type CuentaRepository interface {
	// Transaction runs fn against a repository bound to a single DB transaction.
	Transaction(ctx context.Context, fn func(tx CuentaRepository) error) error

	Create(ctx context.Context, c *model.CuentaPorCobrar) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CuentaPorCobrar, error)
	// FindForUpdate locks the row until the surrounding transaction ends.
	FindForUpdate(ctx context.Context, id uuid.UUID) (*model.CuentaPorCobrar, error)
	List(ctx context.Context, filter dto.CuentaFilter, hoy time.Time) ([]model.CuentaPorCobrar, error)
	// ListParaRecordatorio returns receivables with a pending balance due on or before hasta.
	ListParaRecordatorio(ctx context.Context, hasta time.Time) ([]model.CuentaPorCobrar, error)
	UpdateSaldo(ctx context.Context, c *model.CuentaPorCobrar) error

	CreatePago(ctx context.Context, p *model.PagoCuenta) error
	ListPagos(ctx context.Context, cuentaID uuid.UUID) ([]model.PagoCuenta, error)
}

type cuentaRepo struct{ db *gorm.DB }

func NewCuentaRepository(db *gorm.DB) CuentaRepository { return &cuentaRepo{db: db} }

func (r *cuentaRepo) Transaction(ctx context.Context, fn func(tx CuentaRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&cuentaRepo{db: tx})
	})
}

func (r *cuentaRepo) Create(ctx context.Context, c *model.CuentaPorCobrar) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *cuentaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CuentaPorCobrar, error) {
	var c model.CuentaPorCobrar
	if err := r.db.WithContext(ctx).Preload("Cliente").First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *cuentaRepo) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.CuentaPorCobrar, error) {
	var c model.CuentaPorCobrar
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&c, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *cuentaRepo) List(ctx context.Context, filter dto.CuentaFilter, hoy time.Time) ([]model.CuentaPorCobrar, error) {
	q := r.db.WithContext(ctx).Model(&model.CuentaPorCobrar{})

	// Overdue is derived from the due date, so the stored estado alone is not enough.
	switch filter.Estado {
	case "", "all":
	case model.EstadoCuentaVencida:
		q = q.Where("estado IN ? AND monto_pendiente > 0 AND fecha_vencimiento < ?", estadosAbiertos, hoy)
	case model.EstadoCuentaPendiente, model.EstadoCuentaParcial:
		q = q.Where("estado = ? AND fecha_vencimiento >= ?", filter.Estado, hoy)
	default:
		q = q.Where("estado = ?", filter.Estado)
	}
	if filter.ClienteID != "" {
		q = q.Where("cliente_id = ?", filter.ClienteID)
	}

	var rows []model.CuentaPorCobrar
	err := q.Preload("Cliente").Order("fecha_vencimiento ASC").Find(&rows).Error
	return rows, err
}

func (r *cuentaRepo) ListParaRecordatorio(ctx context.Context, hasta time.Time) ([]model.CuentaPorCobrar, error) {
	var rows []model.CuentaPorCobrar
	err := r.db.WithContext(ctx).
		Preload("Cliente").
		Where("estado IN ? AND monto_pendiente > 0 AND fecha_vencimiento <= ?", estadosAbiertos, hasta).
		Order("fecha_vencimiento ASC").
		Find(&rows).Error
	return rows, err
}

func (r *cuentaRepo) UpdateSaldo(ctx context.Context, c *model.CuentaPorCobrar) error {
	return r.db.WithContext(ctx).Model(&model.CuentaPorCobrar{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{
			"monto_pagado":    c.MontoPagado,
			"monto_pendiente": c.MontoPendiente,
			"estado":          c.Estado,
		}).Error
}

func (r *cuentaRepo) CreatePago(ctx context.Context, p *model.PagoCuenta) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *cuentaRepo) ListPagos(ctx context.Context, cuentaID uuid.UUID) ([]model.PagoCuenta, error) {
	var pagos []model.PagoCuenta
	err := r.db.WithContext(ctx).
		Where("cuenta_id = ?", cuentaID).
		Order("fecha_pago DESC, created_at DESC").
		Find(&pagos).Error
	return pagos, err
}
