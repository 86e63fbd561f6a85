package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterMovementRequest body para POST /api/kardex/movements.
// Para INITIAL_LOAD/PURCHASE/SALE/ADJUSTMENT: product_id, location_id, type,
// quantity; unit_cost obligatorio en entradas. Para TRANSFER usar
// from_location_id y to_location_id.
type RegisterMovementRequest struct {
	ProductID      string           `json:"product_id"`
	LocationID     string           `json:"location_id,omitempty"`
	FromLocationID string           `json:"from_location_id,omitempty"`
	ToLocationID   string           `json:"to_location_id,omitempty"`
	Type           string           `json:"type"`
	Quantity       int64            `json:"quantity"`
	UnitCost       *decimal.Decimal `json:"unit_cost,omitempty"`
	ReferenceID    string           `json:"reference_id,omitempty"`
	ReferenceType  string           `json:"reference_type,omitempty"`
	Timestamp      *time.Time       `json:"timestamp,omitempty"` // backfill histórico
	Notes          string           `json:"notes,omitempty"`
	AllowBackorder bool             `json:"allow_backorder,omitempty"`
	Backfill       bool             `json:"backfill,omitempty"`
	CostReset      bool             `json:"cost_reset,omitempty"` // ADJUSTMENT por reconteo
}

// TransferRequest body para POST /api/kardex/transfers.
type TransferRequest struct {
	ProductID      string     `json:"product_id"`
	FromLocationID string     `json:"from_location_id"`
	ToLocationID   string     `json:"to_location_id"`
	Quantity       int64      `json:"quantity"`
	ReferenceID    string     `json:"reference_id,omitempty"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
	Notes          string     `json:"notes,omitempty"`
}

// ReserveRequest body para POST /api/reservations.
type ReserveRequest struct {
	ProductID   string `json:"product_id"`
	LocationID  string `json:"location_id"`
	Quantity    int64  `json:"quantity"`
	ReferenceID string `json:"reference_id,omitempty"`
}

// LedgerEntryDTO asiento del kardex en respuestas.
type LedgerEntryDTO struct {
	ID                string          `json:"id"`
	ProductID         string          `json:"product_id"`
	LocationID        string          `json:"location_id"`
	Type              string          `json:"type"`
	QuantityChange    int64           `json:"quantity_change"`
	BalanceAfter      int64           `json:"balance_after"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	AverageCostBefore decimal.Decimal `json:"average_cost_before"`
	AverageCostAfter  decimal.Decimal `json:"average_cost_after"`
	ReferenceID       string          `json:"reference_id,omitempty"`
	ReferenceType     string          `json:"reference_type,omitempty"`
	Timestamp         time.Time       `json:"timestamp"`
	UserID            string          `json:"user_id,omitempty"`
	Notes             string          `json:"notes,omitempty"`
}

// LocationBalanceDTO saldo de una clave (producto, ubicación).
type LocationBalanceDTO struct {
	ProductID   string          `json:"product_id"`
	LocationID  string          `json:"location_id"`
	OnHand      int64           `json:"on_hand"`
	Reserved    int64           `json:"reserved"`
	Available   int64           `json:"available"`
	AverageCost decimal.Decimal `json:"average_cost"`
	Backordered bool            `json:"backordered,omitempty"`
}

// AggregateDTO consolidado de stock de un producto.
type AggregateDTO struct {
	ProductID      string                       `json:"product_id"`
	StockQuantity  int64                        `json:"stock_quantity"`
	AvailableStock int64                        `json:"available_stock"`
	Inventory      map[string]LocationStockDTO  `json:"inventory"`
}

// LocationStockDTO entrada del mapa inventory del agregado.
type LocationStockDTO struct {
	Stock     int64 `json:"stock"`
	Reserved  int64 `json:"reserved"`
	Available int64 `json:"available"`
}

// ReservationResponse respuesta al crear/consultar una reserva.
type ReservationResponse struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	LocationID string `json:"location_id"`
	Quantity   int64  `json:"quantity"`
	Status     string `json:"status"`
}

// FindingDTO hallazgo de reconciliación.
type FindingDTO struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}
