// Package metrics declares the Prometheus collectors exported on /metrics.
// Collectors are package-level so services can record without wiring; they
// are only exposed once Register has been called.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "logospos"

var (
	SesionesAbiertas = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "caja", Name: "sesiones_abiertas_total",
		Help: "Cash sessions opened.",
	})
	SesionesCerradas = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "caja", Name: "sesiones_cerradas_total",
		Help: "Cash sessions closed.",
	})
	SesionesDuplicadas = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "caja", Name: "sesiones_duplicadas_total",
		Help: "Open attempts rejected because the operator already had an open session.",
	})
	Movimientos = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "caja", Name: "movimientos_total",
		Help: "Cash movements recorded, by tipo.",
	}, []string{"tipo"})
	DiferenciaArqueo = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "caja", Name: "diferencia_arqueo",
		Help:    "Absolute reconciliation difference at close, by clasificacion.",
		Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
	}, []string{"clasificacion"})
	VerificacionesSesion = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "caja", Name: "verificaciones_total",
		Help: "Open-session verifications, by whether a store query was issued.",
	}, []string{"resultado"})

	Pagos = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "cuentas", Name: "pagos_total",
		Help: "Payments applied to receivables, by metodo_pago.",
	}, []string{"metodo"})
	PagosRechazados = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "cuentas", Name: "pagos_rechazados_total",
		Help: "Payments rejected for exceeding the pending balance.",
	})

	RecordatoriosProgramados = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "recordatorios", Name: "programados_total",
		Help: "Reminders created by the due-date scan.",
	})
	RecordatoriosEnviados = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "recordatorios", Name: "envios_total",
		Help: "Reminder delivery attempts, by canal and resultado.",
	}, []string{"canal", "resultado"})

	GatewayEstado = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "gateway", Name: "estado",
		Help: "Delivery gateway breaker state: 0 disponible, 1 en_prueba, 2 caido.",
	}, []string{"gateway"})
	GatewayRechazos = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "gateway", Name: "rechazos_total",
		Help: "Deliveries refused without calling the gateway because it was down.",
	}, []string{"gateway"})

	JobsProcesados = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "worker", Name: "jobs_total",
		Help: "Background jobs processed, by type and resultado.",
	}, []string{"type", "resultado"})

	HTTPDuracion = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

var registerOnce sync.Once

// Register exposes every collector on the default registry with env and
// instance as constant labels. Safe to call more than once.
func Register(env, instance string) error {
	var err error
	registerOnce.Do(func() {
		reg := prometheus.WrapRegistererWith(prometheus.Labels{"env": env, "instance": instance}, prometheus.DefaultRegisterer)
		for _, c := range []prometheus.Collector{
			SesionesAbiertas, SesionesCerradas, SesionesDuplicadas, Movimientos, DiferenciaArqueo,
			VerificacionesSesion, Pagos, PagosRechazados, RecordatoriosProgramados,
			RecordatoriosEnviados, GatewayEstado, GatewayRechazos, JobsProcesados, HTTPDuracion,
		} {
			if e := reg.Register(c); e != nil && err == nil {
				err = e
			}
		}
	})
	return err
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// Middleware records request latency by matched route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPDuracion.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
