package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// LocationBalance es el saldo materializado de un producto en una ubicación.
// Derivado de los asientos del kardex; es una caché, nunca la fuente de verdad:
// debe poder regenerarse byte a byte reproduciendo el ledger desde cero.
type LocationBalance struct {
	ProductID   string
	LocationID  string
	OnHand      int64           // último BalanceAfter de la clave
	Reserved    int64           // suma de reservas activas contra la clave
	AverageCost decimal.Decimal // último AverageCostAfter de la clave
	UpdatedAt   time.Time
}

// Available es el stock vendible ahora mismo. Puede quedar negativo de forma
// transitoria (señal de backorder); nunca se recorta en silencio.
func (b *LocationBalance) Available() int64 {
	return b.OnHand - b.Reserved
}

// Backordered indica que hay más comprometido que stock físico en la ubicación.
func (b *LocationBalance) Backordered() bool {
	return b.Available() < 0
}

// LocationStock es la vista por ubicación dentro del agregado de producto.
type LocationStock struct {
	Stock     int64 `json:"stock"`
	Reserved  int64 `json:"reserved"`
	Available int64 `json:"available"`
}

// ProductStockAggregate es el consolidado de stock de un producto sobre todas
// sus ubicaciones. Vista materializada con un único escritor (el agregador);
// escribirla por fuera de las operaciones de movimiento es una violación del
// modelo.
type ProductStockAggregate struct {
	ProductID      string
	StockQuantity  int64 // Σ OnHand sobre todas las ubicaciones
	AvailableStock int64 // Σ Available sobre todas las ubicaciones
	Inventory      map[string]LocationStock
	UpdatedAt      time.Time
}
