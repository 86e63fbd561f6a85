package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

var _ repository.LedgerEntryRepository = (*LedgerEntryRepo)(nil)

const entryColumns = `id, product_id, location_id, type, quantity_change, balance_after,
		unit_cost, average_cost_before, average_cost_after,
		reference_id, reference_type, ts, insertion_seq, user_id, notes,
		backorder, cost_reset, created_at`

// LedgerEntryRepo implementación del kardex sobre PostgreSQL (usable con pool o tx).
// La tabla kardex_entries solo conoce INSERT: nunca se actualiza ni borra una fila.
type LedgerEntryRepo struct {
	q Querier
}

// NewLedgerEntryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerEntryRepository(q Querier) *LedgerEntryRepo {
	return &LedgerEntryRepo{q: q}
}

// Append persiste un asiento. insertion_seq lo asigna la secuencia de la tabla
// y queda grabado en la entidad.
func (r *LedgerEntryRepo) Append(e *entity.LedgerEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	query := `
		INSERT INTO kardex_entries (id, product_id, location_id, type, quantity_change, balance_after,
			unit_cost, average_cost_before, average_cost_after,
			reference_id, reference_type, ts, user_id, notes, backorder, cost_reset, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING insertion_seq`
	userID := (*string)(nil)
	if e.UserID != "" {
		userID = &e.UserID
	}
	err := r.q.QueryRow(context.Background(), query,
		e.ID, e.ProductID, e.LocationID, e.Type, e.QuantityChange, e.BalanceAfter,
		e.UnitCost, e.AverageCostBefore, e.AverageCostAfter,
		e.ReferenceID, e.ReferenceType, e.Timestamp, userID, e.Notes,
		e.Backorder, e.CostReset, e.CreatedAt,
	).Scan(&e.InsertionSeq)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrInvalidEntry
		}
		return fmt.Errorf("append kardex entry: %w", err)
	}
	return nil
}

// ListByProductLocation lista los asientos de la clave en orden total
// (ts, insertion_seq). until acota por ts inclusive (consultas as-of).
func (r *LedgerEntryRepo) ListByProductLocation(productID, locationID string, until *time.Time) ([]*entity.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + `
		FROM kardex_entries WHERE product_id = $1 AND location_id = $2`
	args := []any{productID, locationID}
	if until != nil {
		query += ` AND ts <= $3`
		args = append(args, *until)
	}
	query += ` ORDER BY ts, insertion_seq`
	return r.list(query, args...)
}

// ListByProduct lista los asientos del producto en todas sus ubicaciones.
func (r *LedgerEntryRepo) ListByProduct(productID string) ([]*entity.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + `
		FROM kardex_entries WHERE product_id = $1 ORDER BY ts, insertion_seq`
	return r.list(query, productID)
}

// ListLocations devuelve las ubicaciones con al menos un asiento del producto.
func (r *LedgerEntryRepo) ListLocations(productID string) ([]string, error) {
	query := `SELECT DISTINCT location_id FROM kardex_entries WHERE product_id = $1 ORDER BY location_id`
	rows, err := r.q.Query(context.Background(), query, productID)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()
	var locs []string
	for rows.Next() {
		var loc string
		if err := rows.Scan(&loc); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locs = append(locs, loc)
	}
	return locs, rows.Err()
}

// ListByReference lista los asientos ligados a un documento de negocio.
func (r *LedgerEntryRepo) ListByReference(referenceType, referenceID string) ([]*entity.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + `
		FROM kardex_entries WHERE reference_type = $1 AND reference_id = $2
		ORDER BY ts, insertion_seq`
	return r.list(query, referenceType, referenceID)
}

func (r *LedgerEntryRepo) list(query string, args ...any) ([]*entity.LedgerEntry, error) {
	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list kardex entries: %w", err)
	}
	defer rows.Close()
	var list []*entity.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan kardex entry: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func scanEntry(row pgx.Row) (*entity.LedgerEntry, error) {
	var e entity.LedgerEntry
	var referenceID, referenceType, userID, notes *string
	err := row.Scan(
		&e.ID, &e.ProductID, &e.LocationID, &e.Type, &e.QuantityChange, &e.BalanceAfter,
		&e.UnitCost, &e.AverageCostBefore, &e.AverageCostAfter,
		&referenceID, &referenceType, &e.Timestamp, &e.InsertionSeq, &userID, &notes,
		&e.Backorder, &e.CostReset, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if referenceID != nil {
		e.ReferenceID = *referenceID
	}
	if referenceType != nil {
		e.ReferenceType = *referenceType
	}
	if userID != nil {
		e.UserID = *userID
	}
	if notes != nil {
		e.Notes = *notes
	}
	return &e, nil
}
