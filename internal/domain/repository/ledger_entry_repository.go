package repository

import (
	"time"

	"github.com/jhoicas/Kardex-api/internal/domain/entity"
)

// LedgerEntryRepository define el puerto de persistencia del kardex.
// Append es la única mutación: el store jamás actualiza ni borra un asiento.
// Toda lista vuelve ordenada por (Timestamp, InsertionSeq), el orden total del
// ledger; InsertionSeq lo asigna el store en Append.
type LedgerEntryRepository interface {
	Append(entry *entity.LedgerEntry) error
	// ListByProductLocation devuelve los asientos de una clave; until acota por
	// Timestamp (inclusive) para consultas as-of. nil = sin corte.
	ListByProductLocation(productID, locationID string, until *time.Time) ([]*entity.LedgerEntry, error)
	ListByProduct(productID string) ([]*entity.LedgerEntry, error)
	// ListLocations devuelve las ubicaciones con al menos un asiento del producto.
	ListLocations(productID string) ([]string, error)
	// ListByReference devuelve los asientos ligados a un documento de negocio
	// (p.ej. las dos mitades de un traslado).
	ListByReference(referenceType, referenceID string) ([]*entity.LedgerEntry, error)
}
