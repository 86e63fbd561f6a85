package kardex

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/kardex"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

// ReservationUseCase administra las retenciones de stock contra el disponible
// de una clave. Una reserva nunca toca el stock físico ni el ledger: solo al
// confirmarse se convierte en un movimiento SALE, en la misma transacción que
// libera la retención: el puente entre "stock prometido" y "stock deducido".
type ReservationUseCase struct {
	txRunner        TxRunner
	reservationRead repository.ReservationRepository // lecturas fuera de transacción
	movements       *MovementUseCase
}

// NewReservationUseCase construye el caso de uso.
func NewReservationUseCase(
	txRunner TxRunner,
	reservationRead repository.ReservationRepository,
	movements *MovementUseCase,
) *ReservationUseCase {
	return &ReservationUseCase{
		txRunner:        txRunner,
		reservationRead: reservationRead,
		movements:       movements,
	}
}

// ReserveInput entrada para crear una reserva.
type ReserveInput struct {
	ProductID   string
	LocationID  string
	Quantity    int64
	ReferenceID string
	UserID      string
}

// Reserve retiene cantidad contra el disponible de la clave. Falla con
// ErrInsufficientAvailable si onHand - reservado < cantidad. La validación y
// el alta se hacen bajo el bloqueo de la clave.
func (uc *ReservationUseCase) Reserve(ctx context.Context, input ReserveInput) (string, error) {
	if input.ProductID == "" || input.LocationID == "" || input.Quantity <= 0 {
		return "", domain.ErrInvalidInput
	}
	key := entity.StockKey{ProductID: input.ProductID, LocationID: input.LocationID}
	id := uuid.New().String()

	err := uc.txRunner.Run(ctx, []entity.StockKey{key}, func(
		entryRepo repository.LedgerEntryRepository,
		balanceRepo repository.BalanceRepository,
		reservationRepo repository.ReservationRepository,
	) error {
		entries, err := entryRepo.ListByProductLocation(input.ProductID, input.LocationID, nil)
		if err != nil {
			return err
		}
		state, err := kardex.Fold(entries)
		if err != nil {
			return err
		}
		reserved, err := reservationRepo.SumActive(input.ProductID, input.LocationID)
		if err != nil {
			return err
		}
		if state.OnHand-reserved < input.Quantity {
			return fmt.Errorf("%w: se piden %d y quedan %d disponibles en %s/%s",
				domain.ErrInsufficientAvailable, input.Quantity, state.OnHand-reserved,
				input.ProductID, input.LocationID)
		}
		now := time.Now().UTC()
		if err := reservationRepo.Create(&entity.Reservation{
			ID:          id,
			ProductID:   input.ProductID,
			LocationID:  input.LocationID,
			Quantity:    input.Quantity,
			Status:      entity.ReservationStatusACTIVE,
			ReferenceID: input.ReferenceID,
			UserID:      input.UserID,
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		return refreshAggregate(entryRepo, balanceRepo, reservationRepo, input.ProductID, now)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Release libera la retención sin tocar el stock físico (nunca se consumió).
func (uc *ReservationUseCase) Release(ctx context.Context, reservationID string) error {
	res, err := uc.lookup(reservationID)
	if err != nil {
		return err
	}
	return uc.txRunner.Run(ctx, []entity.StockKey{res.Key()}, func(
		entryRepo repository.LedgerEntryRepository,
		balanceRepo repository.BalanceRepository,
		reservationRepo repository.ReservationRepository,
	) error {
		current, err := reservationRepo.GetByID(reservationID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		if !current.Active() {
			return domain.ErrReservationNotActive
		}
		if err := reservationRepo.UpdateStatus(reservationID, entity.ReservationStatusRELEASED); err != nil {
			return err
		}
		return refreshAggregate(entryRepo, balanceRepo, reservationRepo, current.ProductID, time.Now().UTC())
	})
}

// Commit convierte la reserva en un movimiento SALE por la misma cantidad y la
// libera, todo en una transacción: o la venta queda asentada y la retención
// cerrada, o nada.
func (uc *ReservationUseCase) Commit(ctx context.Context, reservationID, userID string) error {
	res, err := uc.lookup(reservationID)
	if err != nil {
		return err
	}
	return uc.txRunner.Run(ctx, []entity.StockKey{res.Key()}, func(
		entryRepo repository.LedgerEntryRepository,
		balanceRepo repository.BalanceRepository,
		reservationRepo repository.ReservationRepository,
	) error {
		current, err := reservationRepo.GetByID(reservationID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		if !current.Active() {
			return domain.ErrReservationNotActive
		}
		// Se cierra antes de asentar la venta para que el refresco del agregado
		// ya no la cuente como retención.
		if err := reservationRepo.UpdateStatus(reservationID, entity.ReservationStatusCOMMITTED); err != nil {
			return err
		}
		referenceID := current.ReferenceID
		if referenceID == "" {
			referenceID = current.ID
		}
		return uc.movements.applyInTx(entryRepo, balanceRepo, reservationRepo, MovementInput{
			ProductID:     current.ProductID,
			LocationID:    current.LocationID,
			Type:          entity.MovementTypeSALE,
			Quantity:      current.Quantity,
			ReferenceID:   referenceID,
			ReferenceType: entity.ReferenceTypeORDER,
			UserID:        userID,
			Notes:         fmt.Sprintf("commit de reserva %s", current.ID),
		})
	})
}

// Get devuelve la reserva por id (lectura sin bloqueo).
func (uc *ReservationUseCase) Get(_ context.Context, reservationID string) (*entity.Reservation, error) {
	return uc.lookup(reservationID)
}

func (uc *ReservationUseCase) lookup(reservationID string) (*entity.Reservation, error) {
	if reservationID == "" {
		return nil, domain.ErrInvalidInput
	}
	res, err := uc.reservationRead.GetByID(reservationID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, domain.ErrNotFound
	}
	return res, nil
}
