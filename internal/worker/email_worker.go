package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"logospos/internal/infra"
	"logospos/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ReporteMailer is the part of infra.Mailer the closing report needs.
type ReporteMailer interface {
	SendReporteCierre(to, subject, body, pdfPath string) error
}

// EmailWorker renders the closing report of a session to PDF and mails it to
// the back office.
type EmailWorker struct {
	caja        service.CajaService
	mailer      ReporteMailer
	to          string
	storagePath string
}

func NewEmailWorker(caja service.CajaService, mailer ReporteMailer, to, storagePath string) *EmailWorker {
	return &EmailWorker{caja: caja, mailer: mailer, to: to, storagePath: storagePath}
}

func (w *EmailWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ReporteCierrePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrDescartar, err)
	}
	sesionID, err := uuid.Parse(payload.SesionID)
	if err != nil {
		return fmt.Errorf("%w: sesion_id inválido", ErrDescartar)
	}

	rep, err := w.caja.ObtenerReporte(ctx, sesionID)
	if errors.Is(err, service.ErrSesionNoEncontrada) {
		return fmt.Errorf("%w: %v", ErrDescartar, err)
	}
	if err != nil {
		return err
	}

	pdfPath, err := infra.SaveReporteCierrePDF(rep, w.storagePath)
	if err != nil {
		return err
	}
	log.Info().Str("pdf", pdfPath).Str("sesion_id", payload.SesionID).Msg("email_worker: closing report generated")

	if w.to == "" {
		return nil
	}
	subject := fmt.Sprintf("Cierre de caja %s", rep.Sesion.ID)
	body := fmt.Sprintf("Monto esperado: %s\nMonto contado: %s\nDiferencia: %s",
		service.FormatearMonto(rep.Totales.MontoEsperado),
		service.FormatearMonto(decimalOrZero(rep.Sesion.MontoReal)),
		service.FormatearMonto(decimalOrZero(rep.Sesion.Diferencia)),
	)
	err = w.mailer.SendReporteCierre(w.to, subject, body, pdfPath)
	if errors.Is(err, infra.ErrMailerNoConfigurado) {
		log.Warn().Str("sesion_id", payload.SesionID).Msg("email_worker: SMTP not configured, report kept on disk")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info().Str("to", w.to).Str("sesion_id", payload.SesionID).Msg("email_worker: closing report sent")
	return nil
}

func decimalOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
