// Package arqueo holds the reconciliation arithmetic used when a cash session
// is closed: expected total from the ledger, counted total from the physical
// denomination count, and the signed difference between them.
//
// Everything here is pure; persistence lives in the caja service.
package arqueo

import (
	"logospos/internal/model"

	"github.com/shopspring/decimal"
)

// Billetes and Monedas list the fixed peso face values in the order they are counted.
var (
	Billetes = []int64{2000, 1000, 500, 200, 100, 50}
	Monedas  = []int64{25, 10, 5, 1}
)

// Conteo is the physical count of each denomination in the drawer.
// Negative values are not rejected here; the HTTP layer validates min=0.
type Conteo struct {
	Billetes2000 int `json:"billetes_2000" validate:"min=0"`
	Billetes1000 int `json:"billetes_1000" validate:"min=0"`
	Billetes500  int `json:"billetes_500"  validate:"min=0"`
	Billetes200  int `json:"billetes_200"  validate:"min=0"`
	Billetes100  int `json:"billetes_100"  validate:"min=0"`
	Billetes50   int `json:"billetes_50"   validate:"min=0"`
	Monedas25    int `json:"monedas_25"    validate:"min=0"`
	Monedas10    int `json:"monedas_10"    validate:"min=0"`
	Monedas5     int `json:"monedas_5"     validate:"min=0"`
	Monedas1     int `json:"monedas_1"     validate:"min=0"`
}

// PorDenominacion returns the count keyed by face value.
func (c Conteo) PorDenominacion() (billetes, monedas map[int64]int) {
	billetes = map[int64]int{
		2000: c.Billetes2000,
		1000: c.Billetes1000,
		500:  c.Billetes500,
		200:  c.Billetes200,
		100:  c.Billetes100,
		50:   c.Billetes50,
	}
	monedas = map[int64]int{
		25: c.Monedas25,
		10: c.Monedas10,
		5:  c.Monedas5,
		1:  c.Monedas1,
	}
	return billetes, monedas
}

// Sumar adds two counts denomination by denomination.
func (c Conteo) Sumar(o Conteo) Conteo {
	return Conteo{
		Billetes2000: c.Billetes2000 + o.Billetes2000,
		Billetes1000: c.Billetes1000 + o.Billetes1000,
		Billetes500:  c.Billetes500 + o.Billetes500,
		Billetes200:  c.Billetes200 + o.Billetes200,
		Billetes100:  c.Billetes100 + o.Billetes100,
		Billetes50:   c.Billetes50 + o.Billetes50,
		Monedas25:    c.Monedas25 + o.Monedas25,
		Monedas10:    c.Monedas10 + o.Monedas10,
		Monedas5:     c.Monedas5 + o.Monedas5,
		Monedas1:     c.Monedas1 + o.Monedas1,
	}
}

// Desglose is the counted result split into bills and coins.
type Desglose struct {
	Billetes decimal.Decimal `json:"total_billetes"`
	Monedas  decimal.Decimal `json:"total_monedas"`
	Total    decimal.Decimal `json:"total_contado"`
}

// CalcularContado returns Σ count × face value over the ten denominations.
func CalcularContado(c Conteo) Desglose {
	billetes, monedas := c.PorDenominacion()
	d := Desglose{
		Billetes: subtotal(Billetes, billetes),
		Monedas:  subtotal(Monedas, monedas),
	}
	d.Total = d.Billetes.Add(d.Monedas)
	return d
}

func subtotal(valores []int64, conteo map[int64]int) decimal.Decimal {
	total := decimal.Zero
	for _, v := range valores {
		total = total.Add(decimal.NewFromInt(v).Mul(decimal.NewFromInt(int64(conteo[v]))))
	}
	return total
}

// CalcularEsperado is inicial + ventas en efectivo + entradas − salidas.
// Card sales never reach the drawer and are not part of it.
func CalcularEsperado(inicial, ventasEfectivo, entradas, salidas decimal.Decimal) decimal.Decimal {
	return inicial.Add(ventasEfectivo).Add(entradas).Sub(salidas)
}

// CalcularDiferencia is contado − esperado: positive is a surplus, negative a shortage.
func CalcularDiferencia(contado, esperado decimal.Decimal) decimal.Decimal {
	return contado.Sub(esperado).Round(2)
}

// Totales aggregates a session's movements by category.
type Totales struct {
	VentasEfectivo decimal.Decimal `json:"total_ventas_efectivo"`
	VentasTarjeta  decimal.Decimal `json:"total_ventas_tarjeta"`
	Entradas       decimal.Decimal `json:"total_entradas"`
	Salidas        decimal.Decimal `json:"total_salidas"`
}

// Totalizar partitions movements by tipo and, for ventas, by metodo_pago.
// Ventas without a recognised payment method are left out of both buckets.
func Totalizar(movs []model.MovimientoCaja) Totales {
	t := Totales{
		VentasEfectivo: decimal.Zero,
		VentasTarjeta:  decimal.Zero,
		Entradas:       decimal.Zero,
		Salidas:        decimal.Zero,
	}
	for _, m := range movs {
		switch m.Tipo {
		case model.TipoMovimientoEntrada:
			t.Entradas = t.Entradas.Add(m.Monto)
		case model.TipoMovimientoSalida:
			t.Salidas = t.Salidas.Add(m.Monto)
		case model.TipoMovimientoVenta:
			if m.MetodoPago == nil {
				continue
			}
			switch *m.MetodoPago {
			case model.MetodoPagoEfectivo:
				t.VentasEfectivo = t.VentasEfectivo.Add(m.Monto)
			case model.MetodoPagoTarjeta:
				t.VentasTarjeta = t.VentasTarjeta.Add(m.Monto)
			}
		}
	}
	return t
}

// Esperado applies CalcularEsperado to the aggregated totals.
func (t Totales) Esperado(inicial decimal.Decimal) decimal.Decimal {
	return CalcularEsperado(inicial, t.VentasEfectivo, t.Entradas, t.Salidas)
}

const (
	ClasificacionNormal      = "normal"
	ClasificacionAdvertencia = "advertencia"
	ClasificacionCritico     = "critico"
)

// Clasificar grades a difference by its size relative to the expected total:
// normal ≤ 1%, advertencia ≤ 5%, critico > 5%. A non-zero difference against
// a zero expectation is always critico.
func Clasificar(diferencia, esperado decimal.Decimal) string {
	if diferencia.IsZero() {
		return ClasificacionNormal
	}
	if esperado.IsZero() {
		return ClasificacionCritico
	}
	pct := diferencia.Div(esperado).Mul(decimal.NewFromInt(100)).Abs()
	switch {
	case pct.LessThanOrEqual(decimal.NewFromInt(1)):
		return ClasificacionNormal
	case pct.LessThanOrEqual(decimal.NewFromInt(5)):
		return ClasificacionAdvertencia
	default:
		return ClasificacionCritico
	}
}
