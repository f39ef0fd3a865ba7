package infra

import (
	"context"
	"errors"
	"sync"
	"time"

	"logospos/internal/metrics"

	"github.com/rs/zerolog/log"
)

// EstadoGateway is a delivery gateway's availability as seen by its breaker.
// The numeric value is what logospos_gateway_estado exports.
type EstadoGateway int

const (
	GatewayDisponible EstadoGateway = iota // deliveries flow
	GatewayEnPrueba                        // one trial delivery at a time
	GatewayCaido                           // deliveries refused without calling out
)

func (e EstadoGateway) String() string {
	switch e {
	case GatewayDisponible:
		return "disponible"
	case GatewayEnPrueba:
		return "en_prueba"
	case GatewayCaido:
		return "caido"
	default:
		return "desconocido"
	}
}

// ErrGatewayCaido is returned without calling the gateway while its breaker is
// open, or while another trial delivery is in flight.
var ErrGatewayCaido = errors.New("gateway no disponible")

type BreakerConfig struct {
	Gateway string        // label on logs, /health and the gauge
	Fallos  int           // consecutive failures that take the gateway down (default 5)
	Exitos  int           // trial successes that bring it back (default 2)
	Espera  time.Duration // time down before a trial delivery (default 60s)
}

// BreakerPorDefecto is the configuration used for the reminder gateways.
func BreakerPorDefecto(gateway string) BreakerConfig {
	return BreakerConfig{Gateway: gateway, Fallos: 5, Exitos: 2, Espera: 60 * time.Second}
}

// GatewayBreaker guards one delivery gateway. Every state change is logged and
// written to metrics.GatewayEstado, which /metrics exports and /health reads
// back through Estado.
type GatewayBreaker struct {
	gateway string
	fallos  int
	exitos  int
	espera  time.Duration

	mu             sync.Mutex
	estado         EstadoGateway
	fallosSeguidos int
	exitosPrueba   int
	caidoDesde     time.Time
	enPrueba       bool
}

func NewGatewayBreaker(cfg BreakerConfig) *GatewayBreaker {
	def := BreakerPorDefecto(cfg.Gateway)
	if cfg.Fallos <= 0 {
		cfg.Fallos = def.Fallos
	}
	if cfg.Exitos <= 0 {
		cfg.Exitos = def.Exitos
	}
	if cfg.Espera <= 0 {
		cfg.Espera = def.Espera
	}
	b := &GatewayBreaker{gateway: cfg.Gateway, fallos: cfg.Fallos, exitos: cfg.Exitos, espera: cfg.Espera}
	metrics.GatewayEstado.WithLabelValues(b.gateway).Set(float64(GatewayDisponible))
	return b
}

func (b *GatewayBreaker) Gateway() string { return b.gateway }

// Estado returns the current state, moving a gateway that has been down for
// Espera into trial.
func (b *GatewayBreaker) Estado() EstadoGateway {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.vencerEspera()
	return b.estado
}

// Ejecutar runs fn unless the gateway is down. A failure after ctx was
// cancelled is the caller giving up and does not count against the gateway.
func (b *GatewayBreaker) Ejecutar(ctx context.Context, fn func(context.Context) error) error {
	prueba, err := b.admitir()
	if err != nil {
		metrics.GatewayRechazos.WithLabelValues(b.gateway).Inc()
		return err
	}
	err = fn(ctx)
	b.registrar(prueba, err != nil && ctx.Err() == nil, err == nil)
	return err
}

func (b *GatewayBreaker) admitir() (prueba bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.vencerEspera()
	switch b.estado {
	case GatewayCaido:
		return false, ErrGatewayCaido
	case GatewayEnPrueba:
		if b.enPrueba {
			return false, ErrGatewayCaido
		}
		b.enPrueba = true
		return true, nil
	}
	return false, nil
}

func (b *GatewayBreaker) registrar(prueba, fallo, exito bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if prueba {
		b.enPrueba = false
	}
	switch {
	case fallo:
		b.fallosSeguidos++
		if b.estado == GatewayEnPrueba || (b.estado == GatewayDisponible && b.fallosSeguidos >= b.fallos) {
			b.cambiar(GatewayCaido)
		}
	case exito:
		switch b.estado {
		case GatewayDisponible:
			b.fallosSeguidos = 0
		case GatewayEnPrueba:
			b.exitosPrueba++
			if b.exitosPrueba >= b.exitos {
				b.cambiar(GatewayDisponible)
			}
		}
	}
}

// vencerEspera must be called with mu held.
func (b *GatewayBreaker) vencerEspera() {
	if b.estado == GatewayCaido && time.Since(b.caidoDesde) >= b.espera {
		b.cambiar(GatewayEnPrueba)
	}
}

// cambiar must be called with mu held.
func (b *GatewayBreaker) cambiar(nuevo EstadoGateway) {
	anterior := b.estado
	b.estado = nuevo
	b.fallosSeguidos = 0
	b.exitosPrueba = 0
	if nuevo == GatewayCaido {
		b.caidoDesde = time.Now()
	}
	metrics.GatewayEstado.WithLabelValues(b.gateway).Set(float64(nuevo))

	evt := log.Info()
	if nuevo == GatewayCaido {
		evt = log.Warn()
	}
	evt.Str("gateway", b.gateway).
		Str("desde", anterior.String()).
		Str("estado", nuevo.String()).
		Msg("gateway cambió de estado")
}
