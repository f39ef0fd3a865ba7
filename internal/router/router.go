package router

import (
	"time"

	"logospos/internal/config"
	"logospos/internal/handler"
	"logospos/internal/infra"
	"logospos/internal/metrics"
	"logospos/internal/middleware"
	"logospos/internal/repository"
	"logospos/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services is the business layer shared by the HTTP API and the workers.
type Services struct {
	Auth         service.AuthService
	Caja         service.CajaService
	Clientes     service.ClienteService
	Cuentas      service.CuentaService
	Recordatorio service.RecordatorioService
}

// Colas is what the services hand async work to. worker.Dispatcher satisfies it.
type Colas interface {
	service.CierreNotificador
	service.EnvioEncolador
}

// NewServices wires Service ← Repository ← DB. colas may be nil, in which case
// closing reports are not mailed and reminders are sent inline.
func NewServices(cfg *config.Config, db *gorm.DB, colas Colas, transportes service.Transportes) Services {
	usuarioRepo := repository.NewUsuarioRepository(db)
	cajaRepo := repository.NewCajaRepository(db)
	clienteRepo := repository.NewClienteRepository(db)
	cuentaRepo := repository.NewCuentaRepository(db)
	recordatorioRepo := repository.NewRecordatorioRepository(db)

	var (
		notificador service.CierreNotificador
		encolador   service.EnvioEncolador
	)
	if colas != nil {
		notificador, encolador = colas, colas
	}
	loc := cfg.Location()

	return Services{
		Auth:         service.NewAuthService(usuarioRepo, cfg),
		Caja:         service.NewCajaService(cajaRepo, notificador),
		Clientes:     service.NewClienteService(clienteRepo),
		Cuentas:      service.NewCuentaService(cuentaRepo, clienteRepo, loc),
		Recordatorio: service.NewRecordatorioService(recordatorioRepo, cuentaRepo, transportes, encolador, loc),
	}
}

// New returns a configured Gin engine serving svcs.
// breakers are the delivery gateways /health reports on.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, svcs Services, breakers []*infra.GatewayBreaker) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigin))
	if cfg.MetricsEnabled {
		r.Use(metrics.Middleware())
	}
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(rdb, "global", 1000, time.Minute)) // 1000 req/min per IP

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(svcs.Auth)
	usuariosH := handler.NewUsuariosHandler(svcs.Auth)
	cajaH := handler.NewCajaHandler(svcs.Caja)
	clientesH := handler.NewClientesHandler(svcs.Clientes)
	cuentasH := handler.NewCuentasHandler(svcs.Cuentas)
	recordatoriosH := handler.NewRecordatoriosHandler(svcs.Recordatorio, cfg.RecordatorioHorizonteDias)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, breakers))
	if cfg.MetricsEnabled {
		r.GET("/metrics", metrics.Handler())
	}

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(rdb), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	todos := middleware.RequireRole("cajero", "supervisor", "administrador")
	gestion := middleware.RequireRole("supervisor", "administrador")

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		caja := v1.Group("/caja", todos)
		{
			caja.POST("/abrir", cajaH.Abrir)
			caja.POST("/movimiento", cajaH.RegistrarMovimiento)
			caja.GET("/activa", cajaH.GetActiva)
			caja.POST("/arqueo", cajaH.Arqueo)
			caja.GET("/historial", cajaH.Historial)
			caja.GET("/eventos", cajaH.Eventos)
			caja.GET("/:id/movimientos", cajaH.ListarMovimientos)
			caja.GET("/:id/totales", cajaH.Totales)
			caja.GET("/:id/reporte", cajaH.ObtenerReporte)
			caja.GET("/:id/reporte.pdf", cajaH.ReportePDF)
			caja.POST("/:id/notas", gestion, cajaH.AgregarNota)
		}

		clientes := v1.Group("/clientes", todos)
		{
			clientes.POST("", clientesH.Crear)
			clientes.GET("", clientesH.Listar)
			clientes.GET("/:id", clientesH.ObtenerPorID)
		}

		cuentas := v1.Group("/cuentas", todos)
		{
			cuentas.POST("", cuentasH.Crear)
			cuentas.GET("", cuentasH.Listar)
			cuentas.GET("/resumen", gestion, cuentasH.Resumen)
			cuentas.GET("/:id", cuentasH.ObtenerPorID)
			cuentas.POST("/:id/pagos", cuentasH.RegistrarPago)
		}

		recs := v1.Group("/recordatorios", todos)
		{
			recs.POST("", recordatoriosH.Crear)
			recs.GET("", recordatoriosH.Listar)
			recs.POST("/programar", gestion, recordatoriosH.Programar)
			recs.POST("/:id/enviar", recordatoriosH.Enviar)
			recs.POST("/:id/cancelar", recordatoriosH.Cancelar)
		}

		usuarios := v1.Group("/usuarios", middleware.RequireRole("administrador"))
		{
			usuarios.POST("", usuariosH.Crear)
			usuarios.GET("", usuariosH.Listar)
			usuarios.DELETE("/:id", usuariosH.Desactivar)
		}
	}

	// Swagger UI, only outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
