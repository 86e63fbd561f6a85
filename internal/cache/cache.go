// Package cache provee la caché de lectura del consolidado de stock.
// Es estrictamente para mostrar: la validación de un movimiento jamás lee de
// aquí; siempre re-pliega el ledger bajo su bloqueo.
package cache

import (
	"context"
	"time"
)

// ErrMiss indica que la clave no está en caché.
type missError struct{}

func (missError) Error() string { return "cache miss" }

// ErrMiss valor centinela para distinguir miss de fallo de infraestructura.
var ErrMiss error = missError{}

// Cache define las operaciones de caché. Los valores se serializan como JSON.
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Close() error
}
