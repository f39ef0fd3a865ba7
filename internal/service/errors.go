package service

import "errors"

// Validation errors are caught before any store call and map to 400/422.
var (
	ErrMontoInvalido           = errors.New("el monto debe ser mayor a cero")
	ErrMontoInicialNegativo    = errors.New("el monto inicial no puede ser negativo")
	ErrMontoCeroSinConfirmar   = errors.New("abrir la caja con monto inicial cero requiere confirmación")
	ErrDescripcionRequerida    = errors.New("la descripción es obligatoria")
	ErrNotaRequerida           = errors.New("la nota no puede estar vacía")
	ErrTipoMovimientoInvalido  = errors.New("tipo de movimiento inválido")
	ErrMetodoPagoRequerido     = errors.New("las ventas requieren metodo_pago efectivo o tarjeta")
	ErrObservacionesRequeridas = errors.New("el arqueo tiene diferencia: se requieren observaciones")
	ErrContactoRequerido       = errors.New("el canal requiere un dato de contacto")
	ErrCanalInvalido           = errors.New("canal de envío desconocido")
	ErrIDInvalido              = errors.New("identificador inválido")
	ErrFechaInvalida           = errors.New("fecha inválida, se espera AAAA-MM-DD")
)

// Business-rule conflicts map to 409 and carry an apierror code.
var (
	ErrSesionDuplicada       = errors.New("ya existe una caja abierta para este operador")
	ErrSesionNoAbierta       = errors.New("la sesión de caja no está abierta")
	ErrSesionAbierta         = errors.New("la sesión sigue abierta: las notas de cierre solo se agregan a sesiones cerradas")
	ErrPagoExcedePendiente   = errors.New("el pago excede el monto pendiente")
	ErrRecordatorioTerminal  = errors.New("el recordatorio ya fue procesado")
	ErrRecordatorioDuplicado = errors.New("la cuenta ya tiene un recordatorio de vencimiento pendiente")
)

// Lookup misses map to 404.
var (
	ErrSesionNoEncontrada       = errors.New("sesión de caja no encontrada")
	ErrCuentaNoEncontrada       = errors.New("cuenta por cobrar no encontrada")
	ErrClienteNoEncontrado      = errors.New("cliente no encontrado")
	ErrRecordatorioNoEncontrado = errors.New("recordatorio no encontrado")
)
