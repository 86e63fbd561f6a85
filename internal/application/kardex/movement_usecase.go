// Package kardex implementa los casos de uso del núcleo de inventario: las
// operaciones de movimiento sobre el ledger, las reservas, las consultas de
// saldo/agregado y la reconciliación.
package kardex

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/kardex"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

// TypeTransfer es el tipo de operación de traslado; produce un par balanceado
// de asientos TRANSFER_OUT/TRANSFER_IN, nunca un asiento propio.
const TypeTransfer = "TRANSFER"

// MovementUseCase registra movimientos del kardex de forma transaccional
// (INITIAL_LOAD, PURCHASE, SALE, ADJUSTMENT, TRANSFER) con bloqueo por clave
// (producto, ubicación) y Commit/Rollback. Es la única vía sancionada para
// añadir asientos: validación contra el fold real y append son atómicos bajo
// el mismo bloqueo.
type MovementUseCase struct {
	txRunner TxRunner
}

// NewMovementUseCase construye el caso de uso.
func NewMovementUseCase(txRunner TxRunner) *MovementUseCase {
	return &MovementUseCase{txRunner: txRunner}
}

// MovementInput entrada para registrar un movimiento.
// Para INITIAL_LOAD/PURCHASE/SALE/ADJUSTMENT: ProductID, LocationID, Type,
// Quantity (magnitud positiva; ADJUSTMENT con signo); UnitCost obligatorio en
// entradas. Para TRANSFER: ProductID, FromLocationID, ToLocationID, Quantity.
// Timestamp vacío = ahora; un Timestamp pasado inserta el asiento en su
// posición lógica (backfill).
type MovementInput struct {
	ProductID      string
	LocationID     string
	FromLocationID string
	ToLocationID   string
	Type           string
	Quantity       int64
	UnitCost       *decimal.Decimal
	ReferenceID    string
	ReferenceType  string
	Timestamp      *time.Time
	UserID         string
	Notes          string
	AllowBackorder bool // SALE: permitir venta por encima del stock (señal de backorder)
	Backfill       bool // INITIAL_LOAD: omitir la precondición de saldo cero
	CostReset      bool // ADJUSTMENT: reconteo completo, fija el costo promedio a UnitCost
}

// RegisterMovement valida la entrada, adquiere los bloqueos de clave y aplica
// la operación. Todo o nada: si algo falla no queda ningún asiento escrito.
func (uc *MovementUseCase) RegisterMovement(ctx context.Context, input MovementInput) error {
	keys, err := uc.validate(input)
	if err != nil {
		return err
	}
	return uc.txRunner.Run(ctx, keys, func(
		entryRepo repository.LedgerEntryRepository,
		balanceRepo repository.BalanceRepository,
		reservationRepo repository.ReservationRepository,
	) error {
		if input.Type == TypeTransfer {
			return uc.doTransfer(entryRepo, balanceRepo, reservationRepo, input)
		}
		return uc.applyInTx(entryRepo, balanceRepo, reservationRepo, input)
	})
}

// validate revisa tipo y campos, y devuelve las claves a bloquear.
func (uc *MovementUseCase) validate(input MovementInput) ([]entity.StockKey, error) {
	switch input.Type {
	case entity.MovementTypeINITIAL_LOAD, entity.MovementTypePURCHASE:
		if input.ProductID == "" || input.LocationID == "" || input.Quantity <= 0 {
			return nil, domain.ErrInvalidInput
		}
		if input.UnitCost == nil || input.UnitCost.IsNegative() {
			return nil, domain.ErrInvalidInput
		}
	case entity.MovementTypeSALE:
		if input.ProductID == "" || input.LocationID == "" || input.Quantity <= 0 {
			return nil, domain.ErrInvalidInput
		}
	case entity.MovementTypeADJUSTMENT:
		if input.ProductID == "" || input.LocationID == "" || input.Quantity == 0 {
			return nil, domain.ErrInvalidInput
		}
		if input.CostReset && (input.UnitCost == nil || input.UnitCost.IsNegative()) {
			return nil, domain.ErrInvalidInput
		}
	case TypeTransfer:
		if input.ProductID == "" || input.FromLocationID == "" || input.ToLocationID == "" {
			return nil, domain.ErrInvalidInput
		}
		if input.FromLocationID == input.ToLocationID || input.Quantity <= 0 {
			return nil, domain.ErrInvalidInput
		}
		return []entity.StockKey{
			{ProductID: input.ProductID, LocationID: input.FromLocationID},
			{ProductID: input.ProductID, LocationID: input.ToLocationID},
		}, nil
	default:
		return nil, domain.ErrInvalidInput
	}
	return []entity.StockKey{{ProductID: input.ProductID, LocationID: input.LocationID}}, nil
}

// applyInTx aplica una operación de un solo asiento usando los repositorios de
// la transacción en curso. También lo invoca el caso de uso de reservas al
// confirmar (misma transacción del commit).
func (uc *MovementUseCase) applyInTx(
	entryRepo repository.LedgerEntryRepository,
	balanceRepo repository.BalanceRepository,
	reservationRepo repository.ReservationRepository,
	input MovementInput,
) error {
	now := time.Now().UTC()
	ts := now
	if input.Timestamp != nil {
		ts = input.Timestamp.UTC()
	}

	entries, err := entryRepo.ListByProductLocation(input.ProductID, input.LocationID, nil)
	if err != nil {
		return err
	}
	// Estado en la posición lógica del asiento: fold de los asientos con
	// Timestamp <= ts. Para un registro al día equivale al saldo actual.
	state, err := kardex.FoldAsOf(entries, ts)
	if err != nil {
		return err
	}

	entry := &entity.LedgerEntry{
		ID:            uuid.New().String(),
		ProductID:     input.ProductID,
		LocationID:    input.LocationID,
		Type:          input.Type,
		ReferenceID:   input.ReferenceID,
		ReferenceType: input.ReferenceType,
		Timestamp:     ts,
		UserID:        input.UserID,
		Notes:         input.Notes,
		CreatedAt:     now,
	}

	switch input.Type {
	case entity.MovementTypeINITIAL_LOAD:
		if state.OnHand != 0 && !input.Backfill {
			return fmt.Errorf("%w: carga inicial sobre saldo %d en %s/%s",
				domain.ErrInvalidInput, state.OnHand, input.ProductID, input.LocationID)
		}
		entry.QuantityChange = input.Quantity
		entry.UnitCost = *input.UnitCost

	case entity.MovementTypePURCHASE:
		entry.QuantityChange = input.Quantity
		entry.UnitCost = *input.UnitCost

	case entity.MovementTypeSALE:
		if state.OnHand < input.Quantity {
			if !input.AllowBackorder {
				return fmt.Errorf("%w: se requieren %d y hay %d en %s/%s",
					domain.ErrInsufficientStock, input.Quantity, state.OnHand, input.ProductID, input.LocationID)
			}
			entry.Backorder = true
		}
		entry.QuantityChange = -input.Quantity
		entry.UnitCost = state.AverageCost

	case entity.MovementTypeADJUSTMENT:
		if state.OnHand+input.Quantity < 0 {
			return fmt.Errorf("%w: actual %d, ajuste %+d",
				domain.ErrInvalidAdjustment, state.OnHand, input.Quantity)
		}
		entry.QuantityChange = input.Quantity
		entry.CostReset = input.CostReset
		if input.CostReset {
			entry.UnitCost = *input.UnitCost
		} else {
			entry.UnitCost = state.AverageCost
		}

	default:
		return domain.ErrInvalidInput
	}

	if _, err := kardex.Stamp(state, entry); err != nil {
		return err
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	// Replay completo con el asiento en su posición lógica: un backfill no
	// puede dejar negativo ningún punto posterior de la historia.
	if _, err := kardex.Fold(insertOrdered(entries, entry)); err != nil {
		return replayRejection(input.Type, err)
	}
	if err := entryRepo.Append(entry); err != nil {
		return err
	}
	return refreshAggregate(entryRepo, balanceRepo, reservationRepo, input.ProductID, now)
}

// doTransfer registra el par balanceado TRANSFER_OUT/TRANSFER_IN compartiendo
// ReferenceID. El costo viaja con el stock: la entrada en destino usa el costo
// promedio del origen al momento del traslado. Ambos asientos se escriben en
// la misma transacción o ninguno.
func (uc *MovementUseCase) doTransfer(
	entryRepo repository.LedgerEntryRepository,
	balanceRepo repository.BalanceRepository,
	reservationRepo repository.ReservationRepository,
	input MovementInput,
) error {
	now := time.Now().UTC()
	ts := now
	if input.Timestamp != nil {
		ts = input.Timestamp.UTC()
	}
	transferID := input.ReferenceID
	if transferID == "" {
		transferID = uuid.New().String()
	}

	srcEntries, err := entryRepo.ListByProductLocation(input.ProductID, input.FromLocationID, nil)
	if err != nil {
		return err
	}
	srcState, err := kardex.FoldAsOf(srcEntries, ts)
	if err != nil {
		return err
	}
	if srcState.OnHand < input.Quantity {
		return fmt.Errorf("%w: traslado de %d con %d en %s/%s",
			domain.ErrInsufficientStock, input.Quantity, srcState.OnHand, input.ProductID, input.FromLocationID)
	}

	dstEntries, err := entryRepo.ListByProductLocation(input.ProductID, input.ToLocationID, nil)
	if err != nil {
		return err
	}
	dstState, err := kardex.FoldAsOf(dstEntries, ts)
	if err != nil {
		return err
	}

	out := &entity.LedgerEntry{
		ID:             uuid.New().String(),
		ProductID:      input.ProductID,
		LocationID:     input.FromLocationID,
		Type:           entity.MovementTypeTRANSFER_OUT,
		QuantityChange: -input.Quantity,
		UnitCost:       srcState.AverageCost,
		ReferenceID:    transferID,
		ReferenceType:  entity.ReferenceTypeTRANSFER,
		Timestamp:      ts,
		UserID:         input.UserID,
		Notes:          input.Notes,
		CreatedAt:      now,
	}
	in := &entity.LedgerEntry{
		ID:             uuid.New().String(),
		ProductID:      input.ProductID,
		LocationID:     input.ToLocationID,
		Type:           entity.MovementTypeTRANSFER_IN,
		QuantityChange: input.Quantity,
		UnitCost:       srcState.AverageCost,
		ReferenceID:    transferID,
		ReferenceType:  entity.ReferenceTypeTRANSFER,
		Timestamp:      ts,
		UserID:         input.UserID,
		Notes:          input.Notes,
		CreatedAt:      now,
	}

	if _, err := kardex.Stamp(srcState, out); err != nil {
		return err
	}
	if _, err := kardex.Stamp(dstState, in); err != nil {
		return err
	}
	if err := out.Validate(); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}
	if _, err := kardex.Fold(insertOrdered(srcEntries, out)); err != nil {
		return replayRejection(TypeTransfer, err)
	}
	if err := entryRepo.Append(out); err != nil {
		return err
	}
	if err := entryRepo.Append(in); err != nil {
		return err
	}
	return refreshAggregate(entryRepo, balanceRepo, reservationRepo, input.ProductID, now)
}

// replayRejection traduce un fallo de replay previo al append al error de
// negocio de la operación que lo provocó. El asiento nunca se escribe.
func replayRejection(opType string, err error) error {
	switch opType {
	case entity.MovementTypeADJUSTMENT:
		return fmt.Errorf("%w: el replay con el ajuste insertado queda negativo (%v)", domain.ErrInvalidAdjustment, err)
	case entity.MovementTypeSALE, TypeTransfer:
		return fmt.Errorf("%w: el replay con el movimiento insertado queda negativo (%v)", domain.ErrInsufficientStock, err)
	default:
		return err
	}
}

// insertOrdered devuelve una copia de entries con e insertado en su posición
// lógica: tras todo asiento con Timestamp <= e.Timestamp (el InsertionSeq del
// nuevo asiento siempre será mayor que los existentes).
func insertOrdered(entries []*entity.LedgerEntry, e *entity.LedgerEntry) []*entity.LedgerEntry {
	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].Timestamp.After(e.Timestamp)
	})
	merged := make([]*entity.LedgerEntry, 0, len(entries)+1)
	merged = append(merged, entries[:i]...)
	merged = append(merged, e)
	merged = append(merged, entries[i:]...)
	return merged
}

// refreshAggregate recalcula las vistas materializadas del producto a partir
// del ledger, dentro de la transacción del movimiento: saldo por ubicación y
// consolidado. El agregado es siempre función pura del ledger; nadie más lo
// escribe.
func refreshAggregate(
	entryRepo repository.LedgerEntryRepository,
	balanceRepo repository.BalanceRepository,
	reservationRepo repository.ReservationRepository,
	productID string,
	now time.Time,
) error {
	locations, err := entryRepo.ListLocations(productID)
	if err != nil {
		return err
	}
	agg := &entity.ProductStockAggregate{
		ProductID: productID,
		Inventory: make(map[string]entity.LocationStock, len(locations)),
		UpdatedAt: now,
	}
	for _, loc := range locations {
		entries, err := entryRepo.ListByProductLocation(productID, loc, nil)
		if err != nil {
			return err
		}
		state, err := kardex.Fold(entries)
		if err != nil {
			return err
		}
		reserved, err := reservationRepo.SumActive(productID, loc)
		if err != nil {
			return err
		}
		lb := &entity.LocationBalance{
			ProductID:   productID,
			LocationID:  loc,
			OnHand:      state.OnHand,
			Reserved:    reserved,
			AverageCost: state.AverageCost,
			UpdatedAt:   now,
		}
		if err := balanceRepo.UpsertLocation(lb); err != nil {
			return err
		}
		agg.StockQuantity += lb.OnHand
		agg.AvailableStock += lb.Available()
		agg.Inventory[loc] = entity.LocationStock{
			Stock:     lb.OnHand,
			Reserved:  lb.Reserved,
			Available: lb.Available(),
		}
	}
	return balanceRepo.UpsertAggregate(agg)
}
