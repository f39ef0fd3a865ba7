package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"logospos/internal/config"
	"logospos/internal/infra"
	"logospos/internal/metrics"
	"logospos/internal/model"
	"logospos/internal/router"
	"logospos/internal/service"
	"logospos/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// @title LogosPOS API
// @version 1.0
// @description Caja y cuentas por cobrar.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	if cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	if cfg.RunMigrations {
		if err := infra.Migrate(db); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	rdb, err := infra.NewRedis(context.Background(), cfg.RedisURL, cfg.WorkerPoolSize)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	if cfg.MetricsEnabled {
		host, _ := os.Hostname()
		if err := metrics.Register(cfg.Env, host); err != nil {
			log.Fatal().Err(err).Msg("failed to register metrics")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Delivery channels ────────────────────────────────────────────────────
	mailer := infra.NewMailer(cfg)
	whatsapp := infra.NewWhatsAppClient(cfg.WhatsAppGatewayURL, cfg.WhatsAppToken, nil)
	sms := infra.NewSMSClient(cfg.SMSGatewayURL, cfg.SMSToken, nil)
	transportes := service.Transportes{
		model.CanalEmail:    mailer,
		model.CanalWhatsApp: whatsapp,
		model.CanalSMS:      sms,
	}
	breakers := []*infra.GatewayBreaker{whatsapp.Breaker(), sms.Breaker()}

	// ── Services and background work ─────────────────────────────────────────
	// Worker handlers are wired here (composition root) so the pool shares
	// the same services as the HTTP API.
	dispatcher := worker.NewDispatcher(rdb)
	svcs := router.NewServices(cfg, db, dispatcher, transportes)

	workers := worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, worker.Handlers{
		worker.JobRecordatorio:  worker.NewRecordatorioWorker(svcs.Recordatorio).Process,
		worker.JobReporteCierre: worker.NewEmailWorker(svcs.Caja, mailer, cfg.ReporteCierreEmail, cfg.PDFStoragePath).Process,
	})
	worker.StartRecordatorioCron(ctx, worker.RecordatorioCronConfig{
		Servicio:      svcs.Recordatorio,
		RDB:           rdb,
		Intervalo:     cfg.RecordatorioCronInterval,
		HorizonteDias: cfg.RecordatorioHorizonteDias,
		AutoEnvio:     cfg.RecordatorioAutoEnvio,
	})

	r := router.New(cfg, db, rdb, svcs, breakers)

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     r,
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: /v1/caja/eventos holds the response open.
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("LogosPOS backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	cancel()
	workers.Wait()
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = rdb.Close()
	log.Info().Msg("server exited")
}
