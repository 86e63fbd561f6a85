package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/Kardex-api/internal/application/kardex"
	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

var _ kardex.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL, serializando
// el acceso por clave (producto, ubicación) con advisory locks de transacción.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner. lockTimeout acota la espera por cada
// advisory lock; agotado, la operación falla con ErrContention (reintenable).
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration) *TxRunner {
	if lockTimeout <= 0 {
		lockTimeout = 2 * time.Second
	}
	return &TxRunner{pool: pool, lockTimeout: lockTimeout}
}

// Run inicia una transacción, toma los advisory locks de las claves en orden
// estable, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Los locks son pg_advisory_xact_lock: se liberan solos al terminar la tx.
func (r *TxRunner) Run(ctx context.Context, keys []entity.StockKey, fn func(
	entryRepo repository.LedgerEntryRepository,
	balanceRepo repository.BalanceRepository,
	reservationRepo repository.ReservationRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	millis := r.lockTimeout.Milliseconds()
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", millis)); err != nil {
		return fmt.Errorf("set lock_timeout: %w", err)
	}

	sorted := make([]entity.StockKey, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ProductID != sorted[j].ProductID {
			return sorted[i].ProductID < sorted[j].ProductID
		}
		return sorted[i].LocationID < sorted[j].LocationID
	})
	for _, k := range sorted {
		if _, err := tx.Exec(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
			k.ProductID+"/"+k.LocationID,
		); err != nil {
			if isLockTimeout(err) {
				return fmt.Errorf("%w: %s/%s", domain.ErrContention, k.ProductID, k.LocationID)
			}
			return fmt.Errorf("advisory lock: %w", err)
		}
	}

	entryRepo := NewLedgerEntryRepository(tx)
	balanceRepo := NewBalanceRepository(tx)
	reservationRepo := NewReservationRepository(tx)

	if err := fn(entryRepo, balanceRepo, reservationRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
