package repository

import (
	"context"
	"errors"

	"logospos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CierreSesion bundles every closing field written by CerrarSesion.
type CierreSesion struct {
	MontoFinal          decimal.Decimal
	TotalVentasEfectivo decimal.Decimal
	TotalVentasTarjeta  decimal.Decimal
	TotalEntradas       decimal.Decimal
	TotalSalidas        decimal.Decimal
	MontoEsperado       decimal.Decimal
	MontoReal           decimal.Decimal
	Diferencia          decimal.Decimal
	UsuarioCierre       uuid.UUID
	ObservacionesCierre *string
}

type CajaRepository interface {
	// Transaction runs fn against a repository bound to a single DB transaction.
	Transaction(ctx context.Context, fn func(tx CajaRepository) error) error

	CreateSesion(ctx context.Context, s *model.SesionCaja) error
	FindSesionAbiertaPorUsuario(ctx context.Context, usuarioID uuid.UUID) (*model.SesionCaja, error)
	FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error)
	// CerrarSesion flips an open session to cerrada; it reports false when
	// the session was not open anymore.
	CerrarSesion(ctx context.Context, id uuid.UUID, c CierreSesion) (bool, error)
	AppendNotaCierre(ctx context.Context, id uuid.UUID, nota string) error
	ListSesiones(ctx context.Context, usuarioID *uuid.UUID, page, limit int) ([]model.SesionCaja, int64, error)

	CreateMovimiento(ctx context.Context, m *model.MovimientoCaja) error
	ListMovimientos(ctx context.Context, cajaID uuid.UUID) ([]model.MovimientoCaja, error)

	CreateArqueo(ctx context.Context, a *model.ArqueoCaja) error
	FindArqueo(ctx context.Context, cajaID uuid.UUID) (*model.ArqueoCaja, error)
}

type cajaRepo struct{ db *gorm.DB }

func NewCajaRepository(db *gorm.DB) CajaRepository { return &cajaRepo{db: db} }

func (r *cajaRepo) Transaction(ctx context.Context, fn func(tx CajaRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&cajaRepo{db: tx})
	})
}

func (r *cajaRepo) CreateSesion(ctx context.Context, s *model.SesionCaja) error {
	return traducirError(r.db.WithContext(ctx).Create(s).Error)
}

func (r *cajaRepo) FindSesionAbiertaPorUsuario(ctx context.Context, usuarioID uuid.UUID) (*model.SesionCaja, error) {
	var rows []model.SesionCaja
	err := r.db.WithContext(ctx).
		Where("usuario_apertura = ? AND estado = ?", usuarioID, model.EstadoCajaAbierta).
		Order("fecha_apertura DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (r *cajaRepo) FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := r.db.WithContext(ctx).Preload("Arqueo").First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *cajaRepo) CerrarSesion(ctx context.Context, id uuid.UUID, c CierreSesion) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.SesionCaja{}).
		Where("id = ? AND estado = ?", id, model.EstadoCajaAbierta).
		Updates(map[string]any{
			"fecha_cierre":          gorm.Expr("CURRENT_TIMESTAMP"),
			"monto_final":           c.MontoFinal,
			"total_ventas_efectivo": c.TotalVentasEfectivo,
			"total_ventas_tarjeta":  c.TotalVentasTarjeta,
			"total_entradas":        c.TotalEntradas,
			"total_salidas":         c.TotalSalidas,
			"monto_esperado":        c.MontoEsperado,
			"monto_real":            c.MontoReal,
			"diferencia":            c.Diferencia,
			"estado":                model.EstadoCajaCerrada,
			"usuario_cierre":        c.UsuarioCierre,
			"observaciones_cierre":  c.ObservacionesCierre,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *cajaRepo) AppendNotaCierre(ctx context.Context, id uuid.UUID, nota string) error {
	var s model.SesionCaja
	if err := r.db.WithContext(ctx).Select("id", "estado", "observaciones_cierre").First(&s, "id = ?", id).Error; err != nil {
		return err
	}
	if s.Abierta() {
		return errors.New("la sesión sigue abierta")
	}
	texto := nota
	if s.ObservacionesCierre != nil && *s.ObservacionesCierre != "" {
		texto = *s.ObservacionesCierre + "\n" + nota
	}
	return r.db.WithContext(ctx).Model(&model.SesionCaja{}).
		Where("id = ?", id).
		Update("observaciones_cierre", texto).Error
}

func (r *cajaRepo) ListSesiones(ctx context.Context, usuarioID *uuid.UUID, page, limit int) ([]model.SesionCaja, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.SesionCaja{})
	if usuarioID != nil {
		q = q.Where("usuario_apertura = ?", *usuarioID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []model.SesionCaja
	err := q.Order("fecha_apertura DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&rows).Error
	return rows, total, err
}

func (r *cajaRepo) CreateMovimiento(ctx context.Context, m *model.MovimientoCaja) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *cajaRepo) ListMovimientos(ctx context.Context, cajaID uuid.UUID) ([]model.MovimientoCaja, error) {
	var movs []model.MovimientoCaja
	err := r.db.WithContext(ctx).Where("caja_id = ?", cajaID).Order("fecha DESC").Find(&movs).Error
	return movs, err
}

func (r *cajaRepo) CreateArqueo(ctx context.Context, a *model.ArqueoCaja) error {
	return traducirError(r.db.WithContext(ctx).Create(a).Error)
}

func (r *cajaRepo) FindArqueo(ctx context.Context, cajaID uuid.UUID) (*model.ArqueoCaja, error) {
	var a model.ArqueoCaja
	if err := r.db.WithContext(ctx).First(&a, "caja_id = ?", cajaID).Error; err != nil {
		return nil, err
	}
	return &a, nil
}
