package service

import (
	"strconv"
	"strings"
	"time"

	"logospos/internal/model"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type plantillaKey struct{ tipo, canal string }

// Placeholders: {cliente}, {monto}, {fecha_vencimiento}. Anything else is left as is.
var plantillas = map[plantillaKey]string{
	{model.TipoRecordatorioVencimiento, model.CanalWhatsApp}: "Hola {cliente}, le recordamos que su saldo de {monto} vence el {fecha_vencimiento}. ¡Gracias por su preferencia!",
	{model.TipoRecordatorioVencimiento, model.CanalEmail}: "Estimado/a {cliente}:\n\n" +
		"Le recordamos que tiene un saldo pendiente de {monto} con vencimiento el {fecha_vencimiento}.\n\n" +
		"Si ya realizó el pago, por favor ignore este mensaje.\n\nSaludos cordiales.",
	{model.TipoRecordatorioVencimiento, model.CanalSMS}:     "{cliente}: su saldo de {monto} vence el {fecha_vencimiento}.",
	{model.TipoRecordatorioVencimiento, model.CanalLlamada}: "Llamar a {cliente}: saldo de {monto}, vence el {fecha_vencimiento}.",

	{model.TipoRecordatorioSeguimiento, model.CanalWhatsApp}: "Hola {cliente}, su saldo de {monto} venció el {fecha_vencimiento}. Por favor contáctenos para regularizarlo.",
	{model.TipoRecordatorioSeguimiento, model.CanalEmail}: "Estimado/a {cliente}:\n\n" +
		"Su cuenta registra un saldo vencido de {monto} desde el {fecha_vencimiento}.\n\n" +
		"Le agradecemos comunicarse con nosotros para acordar el pago.\n\nSaludos cordiales.",
	{model.TipoRecordatorioSeguimiento, model.CanalSMS}:     "{cliente}: su saldo de {monto} venció el {fecha_vencimiento}. Contáctenos.",
	{model.TipoRecordatorioSeguimiento, model.CanalLlamada}: "Llamar a {cliente} por saldo vencido de {monto} (venció el {fecha_vencimiento}).",
}

const plantillaManual = "Hola {cliente}, le recordamos que tiene un saldo pendiente de {monto} con vencimiento el {fecha_vencimiento}."

// plantillaPara falls back to the whatsapp text of the same tipo, then to the generic one.
func plantillaPara(tipo, canal string) string {
	if p, ok := plantillas[plantillaKey{tipo, canal}]; ok {
		return p
	}
	if p, ok := plantillas[plantillaKey{tipo, model.CanalWhatsApp}]; ok {
		return p
	}
	return plantillaManual
}

// Renderizar substitutes the known placeholders in plantilla.
func Renderizar(plantilla, cliente string, monto decimal.Decimal, vencimiento time.Time) string {
	return strings.NewReplacer(
		"{cliente}", cliente,
		"{monto}", FormatearMonto(monto),
		"{fecha_vencimiento}", FormatearFecha(vencimiento),
	).Replace(plantilla)
}

// FormatearMonto renders an amount as RD$1,234.56. Digits come from the
// decimal itself, so large balances keep their cents.
func FormatearMonto(d decimal.Decimal) string {
	r := d.Round(2)
	entero, frac, _ := strings.Cut(r.Abs().StringFixed(2), ".")
	signo := ""
	if r.IsNegative() {
		signo = "-"
	}
	return "RD$" + signo + agruparMiles(entero) + "." + frac
}

var impresoraMiles = message.NewPrinter(language.English)

func agruparMiles(digitos string) string {
	if n, err := strconv.ParseInt(digitos, 10, 64); err == nil {
		return impresoraMiles.Sprintf("%d", n)
	}
	// Beyond int64: group by hand.
	var b strings.Builder
	for i, c := range digitos {
		if i > 0 && (len(digitos)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// FormatearFecha renders a date as dd/mm/yyyy.
func FormatearFecha(t time.Time) string { return t.Format("02/01/2006") }
