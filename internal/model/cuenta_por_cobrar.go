package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	EstadoCuentaPendiente = "pendiente"
	EstadoCuentaParcial   = "parcial"
	EstadoCuentaPagada    = "pagada"
	EstadoCuentaVencida   = "vencida"
)

// CuentaPorCobrar is an amount owed by a customer for a sale.
// MontoPendiente = MontoTotal - MontoPagado, persisted together with Estado
// in the same transaction that inserts a PagoCuenta.
type CuentaPorCobrar struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	VentaID          *uuid.UUID      `gorm:"type:uuid;index"`
	ClienteID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Concepto         string          `gorm:"not null"`
	MontoTotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MontoPagado      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	MontoPendiente   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	FechaVenta       time.Time       `gorm:"not null"`
	FechaVencimiento time.Time       `gorm:"not null;index"`
	Estado           string          `gorm:"type:varchar(20);not null;default:'pendiente';index"`
	Notas            *string
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Cliente *Cliente     `gorm:"foreignKey:ClienteID"`
	Pagos   []PagoCuenta `gorm:"foreignKey:CuentaID"`
}

func (CuentaPorCobrar) TableName() string { return "cuentas_por_cobrar" }

func (c *CuentaPorCobrar) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// ClienteNombre returns the denormalized customer display name, if loaded.
func (c *CuentaPorCobrar) ClienteNombre() string {
	if c.Cliente == nil {
		return ""
	}
	return c.Cliente.Nombre
}

// Recalcular derives MontoPendiente and Estado from the stored totals.
func (c *CuentaPorCobrar) Recalcular(hoy time.Time) {
	c.MontoPendiente = c.MontoTotal.Sub(c.MontoPagado)
	if c.MontoPendiente.IsNegative() {
		c.MontoPendiente = decimal.Zero
	}
	c.Estado = EstadoCuenta(c.MontoTotal, c.MontoPagado, c.FechaVencimiento, hoy)
}

// EstadoCuenta is the receivable state machine:
//   - pagada   when nothing is pending
//   - vencida  when something is pending and the due date is before hoy
//   - parcial  when 0 < pagado < total
//   - pendiente otherwise
func EstadoCuenta(total, pagado decimal.Decimal, vencimiento, hoy time.Time) string {
	pendiente := total.Sub(pagado)
	switch {
	case !pendiente.IsPositive():
		return EstadoCuentaPagada
	case SoloFecha(vencimiento.In(hoy.Location())).Before(SoloFecha(hoy)):
		return EstadoCuentaVencida
	case pagado.IsPositive():
		return EstadoCuentaParcial
	default:
		return EstadoCuentaPendiente
	}
}

// SoloFecha truncates t to midnight in its own location.
func SoloFecha(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// PagoCuenta is one immutable payment applied against a receivable.
type PagoCuenta struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CuentaID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Monto      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MetodoPago string          `gorm:"type:varchar(20);not null"`
	FechaPago  time.Time       `gorm:"not null"`
	Referencia *string
	Notas      *string
	UsuarioID  uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt  time.Time
}

func (PagoCuenta) TableName() string { return "pagos_cuentas_cobrar" }

func (p *PagoCuenta) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
