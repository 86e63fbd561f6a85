package kardex

import (
	"context"
	"time"

	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/kardex"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

// StockQueryUseCase resuelve las consultas de saldo y el consolidado de stock.
// Las lecturas usan repositorios atados al pool (no bloquean escritores) y
// pueden quedar levemente por detrás del último append; sirven para mostrar,
// nunca como base de validación de un movimiento; eso se re-lee bajo bloqueo.
type StockQueryUseCase struct {
	entryRepo       repository.LedgerEntryRepository
	balanceRepo     repository.BalanceRepository
	reservationRepo repository.ReservationRepository
	txRunner        TxRunner
}

// NewStockQueryUseCase construye el caso de uso con repositorios de lectura.
func NewStockQueryUseCase(
	entryRepo repository.LedgerEntryRepository,
	balanceRepo repository.BalanceRepository,
	reservationRepo repository.ReservationRepository,
	txRunner TxRunner,
) *StockQueryUseCase {
	return &StockQueryUseCase{
		entryRepo:       entryRepo,
		balanceRepo:     balanceRepo,
		reservationRepo: reservationRepo,
		txRunner:        txRunner,
	}
}

// CurrentBalance reconstruye el saldo vigente de la clave plegando su ledger
// y sumando las reservas activas.
func (uc *StockQueryUseCase) CurrentBalance(_ context.Context, productID, locationID string) (*entity.LocationBalance, error) {
	if productID == "" || locationID == "" {
		return nil, domain.ErrInvalidInput
	}
	entries, err := uc.entryRepo.ListByProductLocation(productID, locationID, nil)
	if err != nil {
		return nil, err
	}
	state, err := kardex.Fold(entries)
	if err != nil {
		return nil, err
	}
	reserved, err := uc.reservationRepo.SumActive(productID, locationID)
	if err != nil {
		return nil, err
	}
	return &entity.LocationBalance{
		ProductID:   productID,
		LocationID:  locationID,
		OnHand:      state.OnHand,
		Reserved:    reserved,
		AverageCost: state.AverageCost,
		UpdatedAt:   time.Now().UTC(),
	}, nil
}

// BalanceAsOf reconstruye el saldo de la clave a una fecha pasada: mismo fold
// restringido a asientos con Timestamp <= asOf. Los asientos insertados fuera
// de orden quedan en su posición correcta para toda consulta que los cubra.
func (uc *StockQueryUseCase) BalanceAsOf(_ context.Context, productID, locationID string, asOf time.Time) (kardex.BalanceState, error) {
	if productID == "" || locationID == "" {
		return kardex.BalanceState{}, domain.ErrInvalidInput
	}
	until := asOf
	entries, err := uc.entryRepo.ListByProductLocation(productID, locationID, &until)
	if err != nil {
		return kardex.BalanceState{}, err
	}
	return kardex.Fold(entries)
}

// Aggregate devuelve el consolidado del producto. Lee la vista materializada
// si existe; si no, lo reconstruye (y materializa) desde el ledger.
func (uc *StockQueryUseCase) Aggregate(ctx context.Context, productID string) (*entity.ProductStockAggregate, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	cached, err := uc.balanceRepo.GetAggregate(productID)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}
	return uc.Rebuild(ctx, productID)
}

// Rebuild recalcula y persiste las vistas materializadas del producto con un
// replay completo del ledger, bajo los bloqueos de todas sus claves.
func (uc *StockQueryUseCase) Rebuild(ctx context.Context, productID string) (*entity.ProductStockAggregate, error) {
	locations, err := uc.entryRepo.ListLocations(productID)
	if err != nil {
		return nil, err
	}
	keys := make([]entity.StockKey, 0, len(locations))
	for _, loc := range locations {
		keys = append(keys, entity.StockKey{ProductID: productID, LocationID: loc})
	}
	err = uc.txRunner.Run(ctx, keys, func(
		entryRepo repository.LedgerEntryRepository,
		balanceRepo repository.BalanceRepository,
		reservationRepo repository.ReservationRepository,
	) error {
		return refreshAggregate(entryRepo, balanceRepo, reservationRepo, productID, time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}
	return uc.balanceRepo.GetAggregate(productID)
}

// ListEntries devuelve el kardex de la clave en su orden total.
func (uc *StockQueryUseCase) ListEntries(_ context.Context, productID, locationID string) ([]*entity.LedgerEntry, error) {
	if productID == "" || locationID == "" {
		return nil, domain.ErrInvalidInput
	}
	return uc.entryRepo.ListByProductLocation(productID, locationID, nil)
}
