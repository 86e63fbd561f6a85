package repository

import "github.com/jhoicas/Kardex-api/internal/domain/entity"

// BalanceRepository define el puerto de las vistas materializadas de saldo
// (LocationBalance y ProductStockAggregate). Son caché pura del ledger: el
// único escritor es el agregador tras cada movimiento, y siempre pueden
// regenerarse con un replay completo.
type BalanceRepository interface {
	GetLocation(productID, locationID string) (*entity.LocationBalance, error)
	UpsertLocation(balance *entity.LocationBalance) error
	GetAggregate(productID string) (*entity.ProductStockAggregate, error)
	UpsertAggregate(aggregate *entity.ProductStockAggregate) error
}
