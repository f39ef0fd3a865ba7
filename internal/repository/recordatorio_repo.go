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

type RecordatorioRepository interface {
	// Transaction runs fn against a repository bound to a single DB transaction.
	Transaction(ctx context.Context, fn func(tx RecordatorioRepository) error) error

	// Create returns ErrDuplicado when the receivable already has a pending
	// vencimiento_proximo reminder.
	Create(ctx context.Context, r *model.Recordatorio) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Recordatorio, error)
	// FindForUpdate locks the row until the surrounding transaction ends.
	FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Recordatorio, error)
	List(ctx context.Context, filter dto.RecordatorioFilter) ([]model.Recordatorio, int64, error)
	// ExistePendiente reports whether the receivable already has a pending reminder of the given tipo.
	ExistePendiente(ctx context.Context, cuentaID uuid.UUID, tipo string) (bool, error)
	// Transicionar moves a pending reminder to estado. It reports false when the
	// reminder was no longer pending.
	Transicionar(ctx context.Context, id uuid.UUID, estado string, fechaEnviado *time.Time) (bool, error)
	ListPendientesHasta(ctx context.Context, hasta time.Time, limit int) ([]model.Recordatorio, error)
}

type recordatorioRepo struct{ db *gorm.DB }

func NewRecordatorioRepository(db *gorm.DB) RecordatorioRepository {
	return &recordatorioRepo{db: db}
}

func (r *recordatorioRepo) Transaction(ctx context.Context, fn func(tx RecordatorioRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&recordatorioRepo{db: tx})
	})
}

func (r *recordatorioRepo) Create(ctx context.Context, rec *model.Recordatorio) error {
	return traducirError(r.db.WithContext(ctx).Create(rec).Error)
}

func (r *recordatorioRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Recordatorio, error) {
	var rec model.Recordatorio
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *recordatorioRepo) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Recordatorio, error) {
	var rec model.Recordatorio
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&rec, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *recordatorioRepo) List(ctx context.Context, filter dto.RecordatorioFilter) ([]model.Recordatorio, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Recordatorio{})
	if filter.Estado != "" && filter.Estado != "all" {
		q = q.Where("estado = ?", filter.Estado)
	}
	if filter.Canal != "" {
		q = q.Where("canal = ?", filter.Canal)
	}
	if filter.CuentaID != "" {
		q = q.Where("cuenta_id = ?", filter.CuentaID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []model.Recordatorio
	err := q.Order("fecha_programada DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&rows).Error
	return rows, total, err
}

func (r *recordatorioRepo) ExistePendiente(ctx context.Context, cuentaID uuid.UUID, tipo string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Recordatorio{}).
		Where("cuenta_id = ? AND tipo = ? AND estado = ?", cuentaID, tipo, model.EstadoRecordatorioPendiente).
		Count(&n).Error
	return n > 0, err
}

func (r *recordatorioRepo) Transicionar(ctx context.Context, id uuid.UUID, estado string, fechaEnviado *time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Recordatorio{}).
		Where("id = ? AND estado = ?", id, model.EstadoRecordatorioPendiente).
		Updates(map[string]any{
			"estado":        estado,
			"fecha_enviado": fechaEnviado,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *recordatorioRepo) ListPendientesHasta(ctx context.Context, hasta time.Time, limit int) ([]model.Recordatorio, error) {
	var rows []model.Recordatorio
	err := r.db.WithContext(ctx).
		Where("estado = ? AND fecha_programada <= ?", model.EstadoRecordatorioPendiente, hasta).
		Order("fecha_programada ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
