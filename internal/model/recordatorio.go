package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TipoRecordatorioVencimiento = "vencimiento_proximo"
	TipoRecordatorioSeguimiento = "seguimiento"
	TipoRecordatorioManual      = "manual"

	EstadoRecordatorioPendiente = "pendiente"
	EstadoRecordatorioEnviado   = "enviado"
	EstadoRecordatorioFallido   = "fallido"
	EstadoRecordatorioCancelado = "cancelado"

	CanalWhatsApp = "whatsapp"
	CanalEmail    = "email"
	CanalSMS      = "sms"
	CanalLlamada  = "llamada"
)

// Recordatorio is a scheduled or sent payment reminder.
// Estado moves pendiente → enviado | fallido | cancelado; the last three are terminal.
// A receivable has at most one pending vencimiento_proximo reminder, enforced
// by a partial unique index.
type Recordatorio struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	CuentaID        uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_recordatorios_vencimiento_pendiente,where:tipo = 'vencimiento_proximo' AND estado = 'pendiente'"`
	ClienteID       uuid.UUID `gorm:"type:uuid;not null"`
	ClienteNombre   string    `gorm:"not null"`
	Tipo            string    `gorm:"type:varchar(30);not null"`
	Mensaje         string    `gorm:"type:text;not null"`
	FechaProgramada time.Time `gorm:"not null;index"`
	FechaEnviado    *time.Time
	Estado          string  `gorm:"type:varchar(20);not null;default:'pendiente';index"`
	Canal           string  `gorm:"type:varchar(20);not null"`
	Telefono        *string `gorm:"type:varchar(30)"`
	Email           *string
	Notas           *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (Recordatorio) TableName() string { return "recordatorios_pago" }

func (r *Recordatorio) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (r *Recordatorio) Terminal() bool { return r.Estado != EstadoRecordatorioPendiente }
