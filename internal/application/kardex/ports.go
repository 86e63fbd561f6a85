package kardex

import (
	"context"

	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción del store, pasando
// repositorios atados a esa transacción. Antes de invocar fn adquiere el
// bloqueo de cada clave (producto, ubicación) declarada en keys, ordenadas
// para evitar deadlocks, de modo que la validación contra el fold y el append
// sean atómicos por clave. Si un bloqueo no se obtiene dentro de la ventana
// configurada devuelve domain.ErrContention (reintenable).
//
// Claves distintas avanzan en paralelo: no hay bloqueo global.
type TxRunner interface {
	Run(ctx context.Context, keys []entity.StockKey, fn func(
		entryRepo repository.LedgerEntryRepository,
		balanceRepo repository.BalanceRepository,
		reservationRepo repository.ReservationRepository,
	) error) error
}

// KardexPDFGenerator genera la representación PDF del kardex valorizado de un
// producto en una ubicación.
type KardexPDFGenerator interface {
	GenerateKardexPDF(ctx context.Context, report *KardexReport) ([]byte, error)
}
