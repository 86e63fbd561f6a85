package kardex_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Kardex-api/internal/domain/kardex"
)

// ──────────────────────────────────────────────────────────────────────────────
// TestCostCalculator valida la fórmula de costo promedio ponderado con el
// vector de referencia del sistema:
//
//	100 unidades a $58.00 + 20 unidades a $60.00
//	= (100*58 + 20*60) / 120 = 7000/120 = 58.3333...
//
// Si alguien altera la fórmula, este test falla de inmediato: todo el costeo
// del kardex depende de ella.
// ──────────────────────────────────────────────────────────────────────────────

func TestCostCalculator_VectorReferencia(t *testing.T) {
	nuevo := kardex.CostCalculator(100, decimal.NewFromInt(58), 20, decimal.NewFromInt(60))
	assert.Equal(t, "58.33", nuevo.StringFixed(2),
		"100@58 + 20@60 debe promediar a 58.33")
}

func TestCostCalculator_StockVacioTomaCostoEntrada(t *testing.T) {
	nuevo := kardex.CostCalculator(0, decimal.Zero, 50, decimal.NewFromFloat(12.5))
	assert.True(t, nuevo.Equal(decimal.NewFromFloat(12.5)),
		"con stock cero el promedio es el costo de la entrada, se obtuvo %s", nuevo)
}

func TestCostCalculator_MismoCostoNoSeMueve(t *testing.T) {
	costo := decimal.NewFromFloat(99.99)
	nuevo := kardex.CostCalculator(10, costo, 90, costo)
	assert.True(t, nuevo.Equal(costo),
		"entradas al mismo costo no deben mover el promedio, se obtuvo %s", nuevo)
}

func TestCostCalculator_SumaNoPositivaDevuelveCero(t *testing.T) {
	nuevo := kardex.CostCalculator(0, decimal.Zero, 0, decimal.NewFromInt(100))
	assert.True(t, nuevo.IsZero(), "sin unidades no hay promedio que calcular")
}

func TestCostCalculator_EntradaGrandeDominaElPromedio(t *testing.T) {
	nuevo := kardex.CostCalculator(1, decimal.NewFromInt(1000), 9999, decimal.NewFromInt(10))
	assert.True(t, nuevo.LessThan(decimal.NewFromInt(11)),
		"una entrada masiva barata debe arrastrar el promedio hacia su costo, se obtuvo %s", nuevo)
}
