// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
// Code is set for business-rule conflicts so clients can branch on it
// instead of parsing Detail.
type APIError struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Conflict returns an APIError carrying a machine-readable code.
func Conflict(code, msg string) *APIError {
	return &APIError{Detail: msg, Code: code}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}

const (
	CodeSesionDuplicada     = "SESION_DUPLICADA"
	CodeSesionNoAbierta     = "SESION_NO_ABIERTA"
	CodeSesionAbierta       = "SESION_ABIERTA"
	CodePagoExcedePendiente = "PAGO_EXCEDE_PENDIENTE"
	CodeRecordatorioFinal   = "RECORDATORIO_TERMINAL"
	CodeRecordatorioDoble   = "RECORDATORIO_DUPLICADO"
	CodeUsuarioDuplicado    = "USUARIO_DUPLICADO"
)
