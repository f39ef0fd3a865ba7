package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

// CuentaFilter is bound from query string of GET /v1/cuentas.
type CuentaFilter struct {
	Estado    string `form:"estado"     validate:"omitempty,oneof=all pendiente parcial pagada vencida"`
	ClienteID string `form:"cliente_id" validate:"omitempty,uuid"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearCuentaRequest struct {
	ClienteID        string          `json:"cliente_id"        validate:"required,uuid"`
	VentaID          *string         `json:"venta_id"          validate:"omitempty,uuid"`
	Concepto         string          `json:"concepto"          validate:"required,min=1,max=255"`
	MontoTotal       decimal.Decimal `json:"monto_total"       validate:"required,gt=0"`
	FechaVenta       string          `json:"fecha_venta"       validate:"omitempty,datetime=2006-01-02"`
	FechaVencimiento string          `json:"fecha_vencimiento" validate:"required,datetime=2006-01-02"`
	Notas            *string         `json:"notas"             validate:"omitempty,max=500"`
}

type RegistrarPagoRequest struct {
	Monto      decimal.Decimal `json:"monto"       validate:"required,gt=0"`
	MetodoPago string          `json:"metodo_pago" validate:"required,oneof=efectivo tarjeta transferencia cheque"`
	FechaPago  string          `json:"fecha_pago"  validate:"omitempty,datetime=2006-01-02"`
	Referencia *string         `json:"referencia"  validate:"omitempty,max=100"`
	Notas      *string         `json:"notas"       validate:"omitempty,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type CuentaResponse struct {
	ID               string          `json:"id"`
	VentaID          *string         `json:"venta_id"`
	ClienteID        string          `json:"cliente_id"`
	ClienteNombre    string          `json:"cliente_nombre"`
	Concepto         string          `json:"concepto"`
	MontoTotal       decimal.Decimal `json:"monto_total"`
	MontoPagado      decimal.Decimal `json:"monto_pagado"`
	MontoPendiente   decimal.Decimal `json:"monto_pendiente"`
	FechaVenta       string          `json:"fecha_venta"`
	FechaVencimiento string          `json:"fecha_vencimiento"`
	Estado           string          `json:"estado"`
	Notas            *string         `json:"notas"`
}

type PagoResponse struct {
	ID         string          `json:"id"`
	CuentaID   string          `json:"cuenta_id"`
	Monto      decimal.Decimal `json:"monto"`
	MetodoPago string          `json:"metodo_pago"`
	FechaPago  string          `json:"fecha_pago"`
	Referencia *string         `json:"referencia"`
	Notas      *string         `json:"notas"`
	UsuarioID  string          `json:"usuario_id"`
}

type CuentaConPagosResponse struct {
	Cuenta CuentaResponse `json:"cuenta"`
	Pagos  []PagoResponse `json:"pagos"`
}

type AplicarPagoResponse struct {
	Pago   PagoResponse   `json:"pago"`
	Cuenta CuentaResponse `json:"cuenta"`
}

type ResumenEstado struct {
	Cantidad       int             `json:"cantidad"`
	MontoPendiente decimal.Decimal `json:"monto_pendiente"`
}

type ResumenCuentasResponse struct {
	PorEstado      map[string]ResumenEstado `json:"por_estado"`
	TotalPendiente decimal.Decimal          `json:"total_pendiente"`
	TotalVencido   decimal.Decimal          `json:"total_vencido"`
}
