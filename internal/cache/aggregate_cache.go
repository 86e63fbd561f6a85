package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

// CachedBalanceRepository decora un BalanceRepository con lectura read-through
// del consolidado en Redis. Las escrituras invalidan la clave: la verdad sigue
// siendo el ledger y su vista materializada, la caché solo abarata lecturas de
// catálogo.
type CachedBalanceRepository struct {
	repo  repository.BalanceRepository
	cache Cache
	ttl   time.Duration
}

var _ repository.BalanceRepository = (*CachedBalanceRepository)(nil)

// NewCachedBalanceRepository construye el decorador.
func NewCachedBalanceRepository(repo repository.BalanceRepository, cache Cache, ttl time.Duration) *CachedBalanceRepository {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedBalanceRepository{repo: repo, cache: cache, ttl: ttl}
}

func aggregateKey(productID string) string {
	return fmt.Sprintf("kardex:aggregate:%s", productID)
}

// GetLocation delega sin caché: los saldos por ubicación se piden poco.
func (r *CachedBalanceRepository) GetLocation(productID, locationID string) (*entity.LocationBalance, error) {
	return r.repo.GetLocation(productID, locationID)
}

// UpsertLocation delega e invalida el consolidado del producto.
func (r *CachedBalanceRepository) UpsertLocation(b *entity.LocationBalance) error {
	if err := r.repo.UpsertLocation(b); err != nil {
		return err
	}
	_ = r.cache.Del(context.Background(), aggregateKey(b.ProductID))
	return nil
}

// GetAggregate lee read-through: caché, y en miss la vista materializada.
func (r *CachedBalanceRepository) GetAggregate(productID string) (*entity.ProductStockAggregate, error) {
	ctx := context.Background()
	var cached entity.ProductStockAggregate
	err := r.cache.Get(ctx, aggregateKey(productID), &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, ErrMiss) {
		// Redis caído no debe tumbar la lectura: seguimos a la fuente.
		_ = err
	}
	agg, err := r.repo.GetAggregate(productID)
	if err != nil {
		return nil, err
	}
	if agg != nil {
		_ = r.cache.Set(ctx, aggregateKey(productID), agg, r.ttl)
	}
	return agg, nil
}

// UpsertAggregate delega e invalida para que la próxima lectura repueble.
func (r *CachedBalanceRepository) UpsertAggregate(a *entity.ProductStockAggregate) error {
	if err := r.repo.UpsertAggregate(a); err != nil {
		return err
	}
	_ = r.cache.Del(context.Background(), aggregateKey(a.ProductID))
	return nil
}
