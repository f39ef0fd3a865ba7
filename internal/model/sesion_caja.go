package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	EstadoCajaAbierta = "abierta"
	EstadoCajaCerrada = "cerrada"
)

// SesionCaja is one operator's open-to-close cash drawer period.
// Closing fields stay NULL until the single open → cerrada transition.
type SesionCaja struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	FechaApertura time.Time `gorm:"not null;index"`
	FechaCierre   *time.Time
	MontoInicial  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// MontoFinal is the physical count declared at close
	MontoFinal          *decimal.Decimal `gorm:"type:decimal(12,2)"`
	TotalVentasEfectivo *decimal.Decimal `gorm:"type:decimal(12,2)"`
	TotalVentasTarjeta  *decimal.Decimal `gorm:"type:decimal(12,2)"`
	TotalEntradas       *decimal.Decimal `gorm:"type:decimal(12,2)"`
	TotalSalidas        *decimal.Decimal `gorm:"type:decimal(12,2)"`
	MontoEsperado       *decimal.Decimal `gorm:"type:decimal(12,2)"`
	MontoReal           *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Diferencia          *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Estado              string           `gorm:"type:varchar(20);not null;default:'abierta'"`
	// One open session per operator, enforced by a partial unique index.
	UsuarioApertura       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_cajas_usuario_abierta,where:estado = 'abierta'"`
	UsuarioCierre         *uuid.UUID `gorm:"type:uuid"`
	ObservacionesApertura *string
	ObservacionesCierre   *string

	Movimientos []MovimientoCaja `gorm:"foreignKey:CajaID"`
	Arqueo      *ArqueoCaja      `gorm:"foreignKey:CajaID"`
}

func (SesionCaja) TableName() string { return "cajas" }

func (s *SesionCaja) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.FechaApertura.IsZero() {
		s.FechaApertura = time.Now().UTC()
	}
	return nil
}

func (s *SesionCaja) Abierta() bool { return s.Estado == EstadoCajaAbierta }

const (
	TipoMovimientoEntrada = "entrada"
	TipoMovimientoSalida  = "salida"
	TipoMovimientoVenta   = "venta"

	MetodoPagoEfectivo = "efectivo"
	MetodoPagoTarjeta  = "tarjeta"
)

// MovimientoCaja is an immutable cash event inside a session.
// Monto is always a positive magnitude; the sign is implied by Tipo.
// MetodoPago is set for ventas only.
type MovimientoCaja struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CajaID      uuid.UUID       `gorm:"type:uuid;index;not null"`
	Tipo        string          `gorm:"type:varchar(20);not null"`
	MetodoPago  *string         `gorm:"type:varchar(20)"`
	Descripcion string          `gorm:"not null"`
	Monto       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Referencia  *string
	UsuarioID   uuid.UUID `gorm:"type:uuid;not null"`
	Fecha       time.Time `gorm:"not null;index"`
}

func (MovimientoCaja) TableName() string { return "movimientos_caja" }

func (m *MovimientoCaja) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Fecha.IsZero() {
		m.Fecha = time.Now().UTC()
	}
	return nil
}
