package arqueo

import (
	"testing"

	"logospos/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strPtr(s string) *string { return &s }

func TestCalcularContado_Escenario(t *testing.T) {
	d := CalcularContado(Conteo{Billetes2000: 1, Billetes500: 1, Monedas25: 4})

	assert.True(t, dec("2500").Equal(d.Billetes))
	assert.True(t, dec("100").Equal(d.Monedas))
	assert.True(t, dec("2600").Equal(d.Total))
}

func TestCalcularContado_TodasLasDenominaciones(t *testing.T) {
	c := Conteo{
		Billetes2000: 1, Billetes1000: 1, Billetes500: 1, Billetes200: 1, Billetes100: 1, Billetes50: 1,
		Monedas25: 1, Monedas10: 1, Monedas5: 1, Monedas1: 1,
	}
	d := CalcularContado(c)
	assert.Equal(t, "3850", d.Billetes.String())
	assert.Equal(t, "41", d.Monedas.String())
	assert.Equal(t, "3891", d.Total.String())
}

func TestCalcularContado_Aditivo(t *testing.T) {
	c1 := Conteo{Billetes2000: 3, Billetes200: 7, Monedas10: 12, Monedas1: 9}
	c2 := Conteo{Billetes1000: 2, Billetes50: 5, Monedas25: 3, Monedas5: 11}

	suma := CalcularContado(c1.Sumar(c2))
	separado := CalcularContado(c1).Total.Add(CalcularContado(c2).Total)
	assert.True(t, separado.Equal(suma.Total))
}

func TestCalcularContado_Vacio(t *testing.T) {
	assert.True(t, CalcularContado(Conteo{}).Total.IsZero())
}

func TestCalcularEsperado(t *testing.T) {
	got := CalcularEsperado(dec("1000"), dec("500"), dec("200"), dec("0"))
	assert.True(t, dec("1700").Equal(got))

	got = CalcularEsperado(dec("1000.50"), dec("0"), dec("0"), dec("250.25"))
	assert.Equal(t, "750.25", got.StringFixed(2))
}

func TestCalcularDiferencia(t *testing.T) {
	assert.Equal(t, "900.00", CalcularDiferencia(dec("2600"), dec("1700")).StringFixed(2))
	assert.Equal(t, "-100.00", CalcularDiferencia(dec("1600"), dec("1700")).StringFixed(2))
	assert.True(t, CalcularDiferencia(dec("1700.00"), dec("1700")).IsZero())
}

func TestTotalizar(t *testing.T) {
	movs := []model.MovimientoCaja{
		{Tipo: model.TipoMovimientoVenta, MetodoPago: strPtr(model.MetodoPagoEfectivo), Monto: dec("500")},
		{Tipo: model.TipoMovimientoVenta, MetodoPago: strPtr(model.MetodoPagoTarjeta), Monto: dec("300")},
		{Tipo: model.TipoMovimientoVenta, Monto: dec("999")},
		{Tipo: model.TipoMovimientoEntrada, Monto: dec("200")},
		{Tipo: model.TipoMovimientoSalida, Monto: dec("50")},
		{Tipo: model.TipoMovimientoSalida, Monto: dec("25")},
	}
	tot := Totalizar(movs)

	assert.Equal(t, "500", tot.VentasEfectivo.String())
	assert.Equal(t, "300", tot.VentasTarjeta.String())
	assert.Equal(t, "200", tot.Entradas.String())
	assert.Equal(t, "75", tot.Salidas.String())
	assert.Equal(t, "1625", tot.Esperado(dec("1000")).String())
}

func TestClasificar(t *testing.T) {
	cases := []struct {
		name       string
		diferencia string
		esperado   string
		want       string
	}{
		{"exacto", "0", "1700", ClasificacionNormal},
		{"uno por ciento", "-17", "1700", ClasificacionNormal},
		{"cuatro por ciento", "-200", "5000", ClasificacionAdvertencia},
		{"diez por ciento", "-1000", "10000", ClasificacionCritico},
		{"sobrante grande", "900", "1700", ClasificacionCritico},
		{"esperado cero", "10", "0", ClasificacionCritico},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Clasificar(dec(tc.diferencia), dec(tc.esperado)))
		})
	}
}
