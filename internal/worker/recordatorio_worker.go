package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"logospos/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RecordatorioWorker delivers queued payment reminders.
type RecordatorioWorker struct {
	svc service.RecordatorioService
}

func NewRecordatorioWorker(svc service.RecordatorioService) *RecordatorioWorker {
	return &RecordatorioWorker{svc: svc}
}

// Process sends one reminder. A reminder that is gone or already settled is
// dropped; transport failures are recorded on the reminder by the service
// itself, so only storage errors come back for a retry.
func (w *RecordatorioWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload RecordatorioPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrDescartar, err)
	}
	id, err := uuid.Parse(payload.RecordatorioID)
	if err != nil {
		return fmt.Errorf("%w: recordatorio_id inválido", ErrDescartar)
	}

	resp, err := w.svc.Enviar(ctx, id)
	switch {
	case errors.Is(err, service.ErrRecordatorioTerminal), errors.Is(err, service.ErrRecordatorioNoEncontrado):
		log.Debug().Str("recordatorio_id", payload.RecordatorioID).Err(err).Msg("recordatorio_worker: skipped")
		return nil
	case err != nil:
		return err
	}
	log.Info().
		Str("recordatorio_id", resp.ID).
		Str("canal", resp.Canal).
		Str("estado", resp.Estado).
		Msg("recordatorio_worker: processed")
	return nil
}
