package infra

// pdf.go: closing report for a cash session using go-pdf/fpdf.
// A4 portrait with:
//   - Session header (id, operator, open/close timestamps)
//   - Totals block (float, cash/card sales, entries, exits, expected)
//   - Reconciliation block (denomination count, counted, difference)
//   - Movement table, most recent first

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"logospos/internal/arqueo"
	"logospos/internal/dto"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// WriteReporteCierrePDF renders the report into w.
func WriteReporteCierrePDF(rep *dto.ReporteCajaResponse, w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("") // UTF-8 → cp1252 for the core fonts

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 15)
	pdf.CellFormat(contentW, 8, "LogosPOS", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW, 6, tr("Reporte de cierre de caja"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	s := rep.Sesion
	pdf.SetFont("Helvetica", "", 9)
	fila(pdf, tr, contentW, "Sesión", s.ID)
	fila(pdf, tr, contentW, "Estado", s.Estado)
	fila(pdf, tr, contentW, "Apertura", fechaHora(s.FechaApertura))
	if s.FechaCierre != nil {
		fila(pdf, tr, contentW, "Cierre", fechaHora(*s.FechaCierre))
	}
	pdf.Ln(3)
	separador(pdf, pageW)

	// ── Totals ───────────────────────────────────────────────────────────────
	t := rep.Totales
	seccion(pdf, tr, contentW, "Totales")
	monto(pdf, tr, contentW, "Monto inicial", t.MontoInicial)
	monto(pdf, tr, contentW, "Ventas en efectivo", t.VentasEfectivo)
	monto(pdf, tr, contentW, "Ventas con tarjeta", t.VentasTarjeta)
	monto(pdf, tr, contentW, "Entradas", t.Entradas)
	monto(pdf, tr, contentW, "Salidas", t.Salidas)
	pdf.SetFont("Helvetica", "B", 10)
	monto(pdf, tr, contentW, "Esperado en caja", t.MontoEsperado)
	pdf.Ln(3)

	// ── Reconciliation ───────────────────────────────────────────────────────
	if a := rep.Arqueo; a != nil {
		separador(pdf, pageW)
		seccion(pdf, tr, contentW, "Arqueo")
		pdf.SetFont("Helvetica", "", 9)
		billetes, monedas := a.Conteo.PorDenominacion()
		for _, v := range arqueo.Billetes {
			if n := billetes[v]; n > 0 {
				fila(pdf, tr, contentW, fmt.Sprintf("Billetes de %d", v), fmt.Sprintf("x%d", n))
			}
		}
		for _, v := range arqueo.Monedas {
			if n := monedas[v]; n > 0 {
				fila(pdf, tr, contentW, fmt.Sprintf("Monedas de %d", v), fmt.Sprintf("x%d", n))
			}
		}
		monto(pdf, tr, contentW, "Total contado", a.TotalContado)
		monto(pdf, tr, contentW, "Total esperado", a.TotalEsperado)
		pdf.SetFont("Helvetica", "B", 10)
		monto(pdf, tr, contentW, "Diferencia", a.Diferencia)
		pdf.SetFont("Helvetica", "", 9)
		fila(pdf, tr, contentW, "Clasificación", a.Clasificacion)
		if a.Observaciones != nil && *a.Observaciones != "" {
			pdf.MultiCell(contentW, 5, tr("Observaciones: "+*a.Observaciones), "", "L", false)
		}
		pdf.Ln(3)
	}

	// ── Movements ────────────────────────────────────────────────────────────
	separador(pdf, pageW)
	seccion(pdf, tr, contentW, "Movimientos")
	col := []float64{contentW * 0.22, contentW * 0.14, contentW * 0.14, contentW * 0.32, contentW * 0.18}
	pdf.SetFont("Helvetica", "B", 8)
	for i, h := range []string{"Fecha", "Tipo", "Método", "Descripción", "Monto"} {
		align := "L"
		if i == 4 {
			align = "R"
		}
		pdf.CellFormat(col[i], 5, tr(h), "B", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 8)
	for _, m := range rep.Movimientos {
		metodo := ""
		if m.MetodoPago != nil {
			metodo = *m.MetodoPago
		}
		desc := m.Descripcion
		if len([]rune(desc)) > 38 {
			desc = string([]rune(desc)[:37]) + "…"
		}
		pdf.CellFormat(col[0], 5, fechaHora(m.Fecha), "", 0, "L", false, 0, "")
		pdf.CellFormat(col[1], 5, m.Tipo, "", 0, "L", false, 0, "")
		pdf.CellFormat(col[2], 5, metodo, "", 0, "L", false, 0, "")
		pdf.CellFormat(col[3], 5, tr(desc), "", 0, "L", false, 0, "")
		pdf.CellFormat(col[4], 5, "RD$"+m.Monto.StringFixed(2), "", 1, "R", false, 0, "")
	}
	if len(rep.Movimientos) == 0 {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(contentW, 5, "Sin movimientos", "", 1, "L", false, 0, "")
	}

	return pdf.Output(w)
}

// SaveReporteCierrePDF writes the report to storagePath/cierre_{id}.pdf and
// returns the file path.
func SaveReporteCierrePDF(rep *dto.ReporteCajaResponse, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, fmt.Sprintf("cierre_%s.pdf", rep.Sesion.ID))
	f, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("pdf: create file: %w", err)
	}
	if err := WriteReporteCierrePDF(rep, f); err != nil {
		f.Close()
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("pdf: close file: %w", err)
	}
	return filePath, nil
}

func seccion(pdf *fpdf.Fpdf, tr func(string) string, w float64, titulo string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(w, 7, tr(titulo), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
}

func fila(pdf *fpdf.Fpdf, tr func(string) string, w float64, etiqueta, valor string) {
	pdf.CellFormat(w*0.5, 5, tr(etiqueta+":"), "", 0, "L", false, 0, "")
	pdf.CellFormat(w*0.5, 5, tr(valor), "", 1, "R", false, 0, "")
}

func monto(pdf *fpdf.Fpdf, tr func(string) string, w float64, etiqueta string, v decimal.Decimal) {
	fila(pdf, tr, w, etiqueta, "RD$"+v.StringFixed(2))
}

func separador(pdf *fpdf.Fpdf, pageW float64) {
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(2)
}

func fechaHora(rfc3339 string) string {
	t, err := time.Parse(time.RFC3339, rfc3339)
	if err != nil {
		return rfc3339
	}
	return t.Format("02/01/2006 15:04")
}
