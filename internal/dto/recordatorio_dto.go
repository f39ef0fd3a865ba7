package dto

import "time"

// RecordatorioFilter is bound from query string of GET /v1/recordatorios.
type RecordatorioFilter struct {
	Estado   string `form:"estado"    validate:"omitempty,oneof=all pendiente enviado fallido cancelado"`
	Canal    string `form:"canal"     validate:"omitempty,oneof=whatsapp email sms llamada"`
	CuentaID string `form:"cuenta_id" validate:"omitempty,uuid"`
	Page     int    `form:"page,default=1"   validate:"min=1"`
	Limit    int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearRecordatorioRequest struct {
	CuentaID string `json:"cuenta_id" validate:"required,uuid"`
	Tipo     string `json:"tipo"      validate:"omitempty,oneof=vencimiento_proximo seguimiento manual"`
	Canal    string `json:"canal"     validate:"required,oneof=whatsapp email sms llamada"`
	// Mensaje overrides the template for (tipo, canal) when set.
	Mensaje         *string    `json:"mensaje"          validate:"omitempty,min=1,max=1000"`
	FechaProgramada *time.Time `json:"fecha_programada"`
	Telefono        *string    `json:"telefono"         validate:"omitempty,max=30"`
	Email           *string    `json:"email"            validate:"omitempty,email"`
	Notas           *string    `json:"notas"            validate:"omitempty,max=500"`
}

type ProgramarRecordatoriosRequest struct {
	HorizonteDias *int `json:"horizonte_dias" validate:"omitempty,min=0,max=60"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type RecordatorioResponse struct {
	ID              string  `json:"id"`
	CuentaID        string  `json:"cuenta_id"`
	ClienteID       string  `json:"cliente_id"`
	ClienteNombre   string  `json:"cliente_nombre"`
	Tipo            string  `json:"tipo"`
	Mensaje         string  `json:"mensaje"`
	FechaProgramada string  `json:"fecha_programada"`
	FechaEnviado    *string `json:"fecha_enviado"`
	Estado          string  `json:"estado"`
	Canal           string  `json:"canal"`
	Telefono        *string `json:"telefono"`
	Email           *string `json:"email"`
	Notas           *string `json:"notas"`
}

type RecordatorioListResponse struct {
	Data  []RecordatorioResponse `json:"data"`
	Total int64                  `json:"total"`
	Page  int                    `json:"page"`
	Limit int                    `json:"limit"`
}

type ProgramarRecordatoriosResponse struct {
	Creados       int                    `json:"creados"`
	Omitidos      int                    `json:"omitidos"`
	Recordatorios []RecordatorioResponse `json:"recordatorios"`
}
