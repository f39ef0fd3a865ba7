package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"logospos/internal/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueRecordatorios = "jobs:recordatorios"
	QueueEmail         = "jobs:email"

	JobRecordatorio  = "recordatorio"
	JobReporteCierre = "reporte_cierre"

	// MaxJobAttempts is how many times a job runs before it lands in the DLQ.
	MaxJobAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Handler processes one job payload. Returning an error re-queues the job
// until MaxJobAttempts; ErrDescartar drops it without retrying.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Handlers maps a job type to its handler.
type Handlers map[string]Handler

// ErrDescartar marks a job whose payload can never succeed.
var ErrDescartar = errors.New("worker: job descartado")

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// RecordatorioPayload is the body of a JobRecordatorio.
type RecordatorioPayload struct {
	RecordatorioID string `json:"recordatorio_id"`
}

// ReporteCierrePayload is the body of a JobReporteCierre.
type ReporteCierrePayload struct {
	SesionID string `json:"sesion_id"`
}

// EnqueueRecordatorio satisfies service.EnvioEncolador.
func (d *Dispatcher) EnqueueRecordatorio(ctx context.Context, id uuid.UUID) error {
	return d.enqueue(ctx, QueueRecordatorios, Job{
		Type: JobRecordatorio, Payload: mustJSON(RecordatorioPayload{RecordatorioID: id.String()}),
	})
}

// EnqueueReporteCierre satisfies service.CierreNotificador.
func (d *Dispatcher) EnqueueReporteCierre(ctx context.Context, sesionID uuid.UUID) error {
	return d.enqueue(ctx, QueueEmail, Job{
		Type: JobReporteCierre, Payload: mustJSON(ReporteCierrePayload{SesionID: sesionID.String()}),
	})
}

func (d *Dispatcher) enqueue(ctx context.Context, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("worker: marshal payload: %v", err))
	}
	return data
}

// StartWorkerPool launches numWorkers goroutines consuming both queues.
// Each goroutine blocks on BRPOP, so idle workers cost nothing. The returned
// WaitGroup completes once every worker has seen ctx cancelled.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, numWorkers int, handlers Handlers) *sync.WaitGroup {
	p := &pool{rdb: rdb, handlers: handlers}
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.run(ctx, id)
		}(i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
	return &wg
}

type pool struct {
	rdb      *redis.Client
	handlers Handlers
}

func (p *pool) run(ctx context.Context, id int) {
	queues := []string{QueueRecordatorios, QueueEmail}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop; waits up to 5s then loops to check ctx
			result, err := p.rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue
			}
			if len(result) < 2 {
				continue
			}
			p.process(ctx, result[0], result[1])
		}
	}
}

func (p *pool) process(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		// Kept as a JSON string: the raw bytes are not valid JSON.
		SendToDLQ(ctx, p.rdb, queue, Job{Payload: mustJSON(raw)}, err.Error())
		return
	}
	handler, ok := p.handlers[job.Type]
	if !ok {
		log.Error().Str("type", job.Type).Str("queue", queue).Msg("no handler for job type")
		SendToDLQ(ctx, p.rdb, queue, job, "unknown job type")
		return
	}

	job.Attempts++
	err := handler(ctx, job.Payload)
	switch {
	case err == nil:
		metrics.JobsProcesados.WithLabelValues(job.Type, "ok").Inc()
	case errors.Is(err, ErrDescartar):
		metrics.JobsProcesados.WithLabelValues(job.Type, "descartado").Inc()
		log.Warn().Err(err).Str("type", job.Type).Msg("job dropped")
	case job.Attempts >= MaxJobAttempts:
		metrics.JobsProcesados.WithLabelValues(job.Type, "dlq").Inc()
		SendToDLQ(ctx, p.rdb, queue, job, err.Error())
	default:
		metrics.JobsProcesados.WithLabelValues(job.Type, "reintento").Inc()
		log.Warn().Err(err).Str("type", job.Type).Int("attempt", job.Attempts).Msg("job failed, re-queued")
		encoded, mErr := json.Marshal(job)
		if mErr == nil {
			mErr = p.rdb.LPush(ctx, queue, encoded).Err()
		}
		if mErr != nil {
			SendToDLQ(ctx, p.rdb, queue, job, mErr.Error())
		}
	}
}
