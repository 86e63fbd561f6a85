package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

var _ repository.BalanceRepository = (*BalanceRepo)(nil)

// BalanceRepo persiste las vistas materializadas de saldo (caché del ledger).
type BalanceRepo struct {
	q Querier
}

// NewBalanceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBalanceRepository(q Querier) *BalanceRepo {
	return &BalanceRepo{q: q}
}

// GetLocation obtiene el saldo materializado de una clave. nil si nunca se materializó.
func (r *BalanceRepo) GetLocation(productID, locationID string) (*entity.LocationBalance, error) {
	query := `
		SELECT product_id, location_id, on_hand, reserved, average_cost, updated_at
		FROM location_balances WHERE product_id = $1 AND location_id = $2`
	var b entity.LocationBalance
	err := r.q.QueryRow(context.Background(), query, productID, locationID).Scan(
		&b.ProductID, &b.LocationID, &b.OnHand, &b.Reserved, &b.AverageCost, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get location balance: %w", err)
	}
	return &b, nil
}

// UpsertLocation inserta o reemplaza el saldo materializado de la clave.
func (r *BalanceRepo) UpsertLocation(b *entity.LocationBalance) error {
	query := `
		INSERT INTO location_balances (product_id, location_id, on_hand, reserved, average_cost, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (product_id, location_id)
		DO UPDATE SET on_hand = EXCLUDED.on_hand, reserved = EXCLUDED.reserved,
			average_cost = EXCLUDED.average_cost, updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(context.Background(), query,
		b.ProductID, b.LocationID, b.OnHand, b.Reserved, b.AverageCost, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert location balance: %w", err)
	}
	return nil
}

// GetAggregate obtiene el consolidado materializado del producto. nil si no existe.
func (r *BalanceRepo) GetAggregate(productID string) (*entity.ProductStockAggregate, error) {
	query := `
		SELECT product_id, stock_quantity, available_stock, inventory, updated_at
		FROM product_stock_aggregates WHERE product_id = $1`
	var a entity.ProductStockAggregate
	var inventoryJSON []byte
	err := r.q.QueryRow(context.Background(), query, productID).Scan(
		&a.ProductID, &a.StockQuantity, &a.AvailableStock, &inventoryJSON, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get aggregate: %w", err)
	}
	if err := json.Unmarshal(inventoryJSON, &a.Inventory); err != nil {
		return nil, fmt.Errorf("decode inventory map: %w", err)
	}
	return &a, nil
}

// UpsertAggregate inserta o reemplaza el consolidado del producto. El mapa
// inventory se guarda como JSONB.
func (r *BalanceRepo) UpsertAggregate(a *entity.ProductStockAggregate) error {
	inventoryJSON, err := json.Marshal(a.Inventory)
	if err != nil {
		return fmt.Errorf("encode inventory map: %w", err)
	}
	query := `
		INSERT INTO product_stock_aggregates (product_id, stock_quantity, available_stock, inventory, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id)
		DO UPDATE SET stock_quantity = EXCLUDED.stock_quantity,
			available_stock = EXCLUDED.available_stock,
			inventory = EXCLUDED.inventory, updated_at = EXCLUDED.updated_at`
	_, err = r.q.Exec(context.Background(), query,
		a.ProductID, a.StockQuantity, a.AvailableStock, inventoryJSON, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert aggregate: %w", err)
	}
	return nil
}
