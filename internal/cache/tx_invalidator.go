package cache

import (
	"context"

	appkardex "github.com/jhoicas/Kardex-api/internal/application/kardex"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

// InvalidatingTxRunner decora un TxRunner: tras una transacción exitosa borra
// de la caché el consolidado de cada producto tocado, de modo que la próxima
// lectura repueble desde la vista materializada recién escrita. Las escrituras
// transaccionales usan repositorios atados a la transacción, no el decorador
// de lecturas, así que la invalidación tiene que colgar del runner.
type InvalidatingTxRunner struct {
	inner appkardex.TxRunner
	cache Cache
}

var _ appkardex.TxRunner = (*InvalidatingTxRunner)(nil)

// NewInvalidatingTxRunner construye el decorador.
func NewInvalidatingTxRunner(inner appkardex.TxRunner, cache Cache) *InvalidatingTxRunner {
	return &InvalidatingTxRunner{inner: inner, cache: cache}
}

// Run delega en el runner interno y, si la transacción confirma, invalida el
// consolidado de los productos de keys. Mejor esfuerzo: si Redis no responde,
// la clave expira por TTL.
func (r *InvalidatingTxRunner) Run(ctx context.Context, keys []entity.StockKey, fn func(
	entryRepo repository.LedgerEntryRepository,
	balanceRepo repository.BalanceRepository,
	reservationRepo repository.ReservationRepository,
) error) error {
	if err := r.inner.Run(ctx, keys, fn); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(keys))
	cacheKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, dup := seen[k.ProductID]; dup {
			continue
		}
		seen[k.ProductID] = struct{}{}
		cacheKeys = append(cacheKeys, aggregateKey(k.ProductID))
	}
	if len(cacheKeys) > 0 {
		_ = r.cache.Del(context.WithoutCancel(ctx), cacheKeys...)
	}
	return nil
}
