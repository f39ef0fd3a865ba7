package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ArqueoCaja is the physical count captured when a session is closed.
// Written once per session and never mutated afterwards.
type ArqueoCaja struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	CajaID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`

	Billetes2000 int `gorm:"column:billetes_2000;not null;default:0"`
	Billetes1000 int `gorm:"column:billetes_1000;not null;default:0"`
	Billetes500  int `gorm:"column:billetes_500;not null;default:0"`
	Billetes200  int `gorm:"column:billetes_200;not null;default:0"`
	Billetes100  int `gorm:"column:billetes_100;not null;default:0"`
	Billetes50   int `gorm:"column:billetes_50;not null;default:0"`
	Monedas25    int `gorm:"column:monedas_25;not null;default:0"`
	Monedas10    int `gorm:"column:monedas_10;not null;default:0"`
	Monedas5     int `gorm:"column:monedas_5;not null;default:0"`
	Monedas1     int `gorm:"column:monedas_1;not null;default:0"`

	TotalBilletes decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalMonedas  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalContado  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalEsperado decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Diferencia    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Observaciones *string
	CreatedAt     time.Time
}

func (ArqueoCaja) TableName() string { return "arqueos_caja" }

func (a *ArqueoCaja) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
