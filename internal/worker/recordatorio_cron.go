package worker

// Periodic reminder scheduling. Every tick creates due-soon reminders for the
// configured horizon and, when auto-send is on, enqueues the pending ones whose
// fecha_programada has passed. A Redis SETNX lock keeps multiple API replicas
// from scheduling the same tick.

import (
	"context"
	"os"
	"time"

	"logospos/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	cronLockKey   = "lock:recordatorios_cron"
	cronBatchSize = 100
)

// RecordatorioCronConfig holds all dependencies for the scheduling goroutine.
type RecordatorioCronConfig struct {
	Servicio      service.RecordatorioService
	RDB           *redis.Client
	Intervalo     time.Duration
	HorizonteDias int
	AutoEnvio     bool
}

// StartRecordatorioCron runs one tick immediately and then one per Intervalo
// until ctx is cancelled.
func StartRecordatorioCron(ctx context.Context, cfg RecordatorioCronConfig) {
	go func() {
		ticker := time.NewTicker(cfg.Intervalo)
		defer ticker.Stop()

		log.Info().Dur("intervalo", cfg.Intervalo).Msg("recordatorio_cron: started")
		ejecutarTick(ctx, cfg)

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("recordatorio_cron: shutting down")
				return
			case <-ticker.C:
				ejecutarTick(ctx, cfg)
			}
		}
	}()
}

// ejecutarTick reports whether this replica held the lock and ran the tick.
func ejecutarTick(ctx context.Context, cfg RecordatorioCronConfig) bool {
	if cfg.RDB != nil {
		owner, _ := os.Hostname()
		// Lock expires before the next tick so a crashed holder never blocks scheduling.
		ttl := cfg.Intervalo / 2
		if ttl < time.Second {
			ttl = time.Second
		}
		ok, err := cfg.RDB.SetNX(ctx, cronLockKey, owner, ttl).Result()
		if err != nil {
			log.Warn().Err(err).Msg("recordatorio_cron: lock unavailable, skipping tick")
			return false
		}
		if !ok {
			log.Debug().Msg("recordatorio_cron: another replica holds the lock")
			return false
		}
	}

	res, err := cfg.Servicio.ProgramarVencimientos(ctx, cfg.HorizonteDias)
	if err != nil {
		log.Error().Err(err).Msg("recordatorio_cron: scheduling failed")
		return true
	}
	if res.Creados > 0 {
		log.Info().Int("creados", res.Creados).Int("omitidos", res.Omitidos).Msg("recordatorio_cron: reminders scheduled")
	}

	if !cfg.AutoEnvio {
		return true
	}
	n, err := cfg.Servicio.EncolarPendientes(ctx, cronBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("recordatorio_cron: enqueue failed")
		return true
	}
	if n > 0 {
		log.Info().Int("encolados", n).Msg("recordatorio_cron: pending reminders enqueued")
	}
	return true
}
