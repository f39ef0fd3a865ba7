package apierror

import (
	"errors"
	"net/http"
	"sync"
)

// MensajeInterno is the only detail a client sees for an unmapped error.
const MensajeInterno = "Error interno del servidor"

type regla struct {
	status int
	code   string
	errs   []error
}

var (
	mu     sync.RWMutex
	reglas []regla
)

// Registrar maps errs (matched with errors.Is) to status. code is optional and
// is echoed in the envelope so clients can branch without parsing Detail.
// Rules are checked in registration order.
func Registrar(status int, code string, errs ...error) {
	mu.Lock()
	defer mu.Unlock()
	reglas = append(reglas, regla{status: status, code: code, errs: errs})
}

// Resolver returns the status and envelope for err. Registered errors keep
// their message; anything else becomes a 500 with MensajeInterno.
func Resolver(err error) (int, *APIError) {
	mu.RLock()
	defer mu.RUnlock()
	for _, r := range reglas {
		for _, target := range r.errs {
			if errors.Is(err, target) {
				return r.status, &APIError{Detail: err.Error(), Code: r.code}
			}
		}
	}
	return http.StatusInternalServerError, New(MensajeInterno)
}
