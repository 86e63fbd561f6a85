package kardex

import "github.com/shopspring/decimal"

// CostCalculator implementa la lógica de costo promedio ponderado (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
// Es la única fórmula de costo del sistema: toda entrada (INITIAL_LOAD, PURCHASE,
// TRANSFER_IN, ajuste positivo con reset) pasa por aquí; las salidas no tocan el costo.
func CostCalculator(stockActual int64, costoActual decimal.Decimal, cantEntrada int64, costoEntrada decimal.Decimal) decimal.Decimal {
	prev := decimal.NewFromInt(stockActual)
	in := decimal.NewFromInt(cantEntrada)
	sum := prev.Add(in)
	if sum.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	num := prev.Mul(costoActual).Add(in.Mul(costoEntrada))
	return num.Div(sum)
}
