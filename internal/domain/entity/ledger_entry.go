package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Kardex-api/internal/domain"
)

// Tipos de movimiento del kardex.
const (
	MovementTypeINITIAL_LOAD = "INITIAL_LOAD" // carga inicial
	MovementTypePURCHASE     = "PURCHASE"     // compra / reposición
	MovementTypeSALE         = "SALE"         // venta
	MovementTypeADJUSTMENT   = "ADJUSTMENT"   // ajuste (positivo o negativo)
	MovementTypeTRANSFER_OUT = "TRANSFER_OUT" // salida por traslado entre ubicaciones
	MovementTypeTRANSFER_IN  = "TRANSFER_IN"  // entrada por traslado entre ubicaciones
)

// Tipos de referencia al documento de negocio que originó el movimiento.
const (
	ReferenceTypeORDER    = "ORDER"
	ReferenceTypePURCHASE = "PURCHASE_ORDER"
	ReferenceTypeTRANSFER = "TRANSFER"
	ReferenceTypeADJUST   = "ADJUSTMENT_TICKET"
	ReferenceTypeBACKFILL = "BACKFILL"
)

// StockKey identifica la clave (producto, ubicación) sobre la que se serializa
// toda mutación del kardex.
type StockKey struct {
	ProductID  string
	LocationID string
}

// LedgerEntry es un asiento del kardex: registro inmutable de un movimiento de
// stock en una ubicación. Una vez escrito nunca se edita ni se borra; las
// correcciones son nuevos asientos ADJUSTMENT.
type LedgerEntry struct {
	ID             string
	ProductID      string
	LocationID     string // "MAIN", "AMAZON_FBA", "MELI_FULL", ...
	Type           string
	QuantityChange int64 // positivo entrada, negativo salida; nunca cero
	BalanceAfter   int64 // saldo en la ubicación justo después de este asiento

	UnitCost          decimal.Decimal // costo atribuido al movimiento
	AverageCostBefore decimal.Decimal // costo promedio antes del asiento
	AverageCostAfter  decimal.Decimal // costo promedio después del asiento

	ReferenceID   string // id del documento de negocio (orden, traslado, ticket)
	ReferenceType string

	// Timestamp es el tiempo de negocio del movimiento; puede ser anterior al
	// último asiento escrito (backfill histórico). InsertionSeq lo asigna el
	// store al persistir y desempata asientos con el mismo timestamp.
	Timestamp    time.Time
	InsertionSeq int64

	UserID string // actor humano o de sistema
	Notes  string

	// Backorder marca una venta autorizada por encima del stock físico; es la
	// única forma legítima de que el saldo corrido quede negativo.
	Backorder bool
	// CostReset marca un ajuste por reconteo que fija el costo promedio al
	// UnitCost suministrado en lugar de arrastrarlo.
	CostReset bool

	CreatedAt time.Time
}

// IsInbound indica si el tipo de movimiento suma stock (las entradas recalculan
// el costo promedio; las salidas lo arrastran sin cambio).
func (e *LedgerEntry) IsInbound() bool {
	return e.QuantityChange > 0
}

// Key devuelve la clave (producto, ubicación) del asiento.
func (e *LedgerEntry) Key() StockKey {
	return StockKey{ProductID: e.ProductID, LocationID: e.LocationID}
}

// Validate verifica los invariantes mínimos de un asiento antes de persistirlo.
func (e *LedgerEntry) Validate() error {
	if e.ProductID == "" || e.LocationID == "" {
		return domain.ErrInvalidEntry
	}
	if e.QuantityChange == 0 {
		return domain.ErrInvalidEntry
	}
	if e.Timestamp.IsZero() {
		return domain.ErrInvalidEntry
	}
	switch e.Type {
	case MovementTypeINITIAL_LOAD, MovementTypePURCHASE, MovementTypeTRANSFER_IN:
		if e.QuantityChange < 0 {
			return domain.ErrInvalidEntry
		}
	case MovementTypeSALE, MovementTypeTRANSFER_OUT:
		if e.QuantityChange > 0 {
			return domain.ErrInvalidEntry
		}
	case MovementTypeADJUSTMENT:
		// cualquier signo
	default:
		return domain.ErrInvalidEntry
	}
	if e.UnitCost.IsNegative() {
		return domain.ErrInvalidEntry
	}
	return nil
}
