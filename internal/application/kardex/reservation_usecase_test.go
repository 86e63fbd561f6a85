package kardex_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appkardex "github.com/jhoicas/Kardex-api/internal/application/kardex"
	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/infrastructure/memory"
)

type reservationFixture struct {
	*fixture
	reservations *appkardex.ReservationUseCase
}

func newReservationFixture(t *testing.T) *reservationFixture {
	t.Helper()
	store := memory.NewStore(2 * time.Second)
	movements := appkardex.NewMovementUseCase(store)
	queries := appkardex.NewStockQueryUseCase(store.EntryRepo(), store.BalanceRepo(), store.ReservationRepo(), store)
	reservations := appkardex.NewReservationUseCase(store, store.ReservationRepo(), movements)

	f := &reservationFixture{
		fixture:      &fixture{store: store, movements: movements, queries: queries},
		reservations: reservations,
	}
	// Stock base para todos los tests de reserva: 100 unidades a $58
	f.register(t, appkardex.MovementInput{
		ProductID: testSKU, LocationID: testMain,
		Type: entity.MovementTypeINITIAL_LOAD, Quantity: 100, UnitCost: costOf(58),
	})
	return f
}

func TestReserve_ReduceDisponibleNoElFisico(t *testing.T) {
	f := newReservationFixture(t)

	id, err := f.reservations.Reserve(context.Background(), appkardex.ReserveInput{
		ProductID: testSKU, LocationID: testMain, Quantity: 30, UserID: testUser,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	bal := f.balance(t, testMain)
	assert.Equal(t, int64(100), bal.OnHand, "reservar no toca el stock físico")
	assert.Equal(t, int64(30), bal.Reserved)
	assert.Equal(t, int64(70), bal.Available())

	agg, err := f.queries.Aggregate(context.Background(), testSKU)
	require.NoError(t, err)
	assert.Equal(t, int64(100), agg.StockQuantity)
	assert.Equal(t, int64(70), agg.AvailableStock)
}

func TestReserve_SobreElDisponibleFalla(t *testing.T) {
	f := newReservationFixture(t)

	_, err := f.reservations.Reserve(context.Background(), appkardex.ReserveInput{
		ProductID: testSKU, LocationID: testMain, Quantity: 80, UserID: testUser,
	})
	require.NoError(t, err)

	// Quedan 20 disponibles; pedir 21 debe fallar aunque haya 100 físicas
	_, err = f.reservations.Reserve(context.Background(), appkardex.ReserveInput{
		ProductID: testSKU, LocationID: testMain, Quantity: 21, UserID: testUser,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientAvailable)
}

func TestRelease_RestauraDisponibleSinTocarLedger(t *testing.T) {
	f := newReservationFixture(t)

	id, err := f.reservations.Reserve(context.Background(), appkardex.ReserveInput{
		ProductID: testSKU, LocationID: testMain, Quantity: 30, UserID: testUser,
	})
	require.NoError(t, err)

	require.NoError(t, f.reservations.Release(context.Background(), id))

	bal := f.balance(t, testMain)
	assert.Equal(t, int64(100), bal.OnHand)
	assert.Equal(t, int64(0), bal.Reserved)

	entries, err := f.queries.ListEntries(context.Background(), testSKU, testMain)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "liberar una reserva jamás escribe en el ledger")

	res, err := f.reservations.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationStatusRELEASED, res.Status)
}

func TestRelease_DobleLiberacionFalla(t *testing.T) {
	f := newReservationFixture(t)

	id, err := f.reservations.Reserve(context.Background(), appkardex.ReserveInput{
		ProductID: testSKU, LocationID: testMain, Quantity: 10, UserID: testUser,
	})
	require.NoError(t, err)
	require.NoError(t, f.reservations.Release(context.Background(), id))

	err = f.reservations.Release(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrReservationNotActive)
}

func TestCommit_ConvierteLaReservaEnVenta(t *testing.T) {
	f := newReservationFixture(t)

	id, err := f.reservations.Reserve(context.Background(), appkardex.ReserveInput{
		ProductID: testSKU, LocationID: testMain, Quantity: 30,
		ReferenceID: "ORD-77", UserID: testUser,
	})
	require.NoError(t, err)

	require.NoError(t, f.reservations.Commit(context.Background(), id, testUser))

	bal := f.balance(t, testMain)
	assert.Equal(t, int64(70), bal.OnHand, "el commit sí deduce el stock físico")
	assert.Equal(t, int64(0), bal.Reserved, "la retención quedó cerrada")

	entries, err := f.queries.ListEntries(context.Background(), testSKU, testMain)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	venta := entries[1]
	assert.Equal(t, entity.MovementTypeSALE, venta.Type)
	assert.Equal(t, int64(-30), venta.QuantityChange)
	assert.Equal(t, "ORD-77", venta.ReferenceID, "la venta hereda la referencia de la reserva")
	assert.Equal(t, entity.ReferenceTypeORDER, venta.ReferenceType)

	res, err := f.reservations.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationStatusCOMMITTED, res.Status)
}

func TestCommit_ReservaYaCerradaFalla(t *testing.T) {
	f := newReservationFixture(t)

	id, err := f.reservations.Reserve(context.Background(), appkardex.ReserveInput{
		ProductID: testSKU, LocationID: testMain, Quantity: 10, UserID: testUser,
	})
	require.NoError(t, err)
	require.NoError(t, f.reservations.Commit(context.Background(), id, testUser))

	err = f.reservations.Commit(context.Background(), id, testUser)
	assert.ErrorIs(t, err, domain.ErrReservationNotActive)

	assert.Equal(t, int64(90), f.balance(t, testMain).OnHand,
		"el segundo commit no puede deducir stock otra vez")
}

func TestReservation_GetInexistenteFalla(t *testing.T) {
	f := newReservationFixture(t)
	_, err := f.reservations.Get(context.Background(), "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReserve_EntradaInvalida(t *testing.T) {
	f := newReservationFixture(t)
	_, err := f.reservations.Reserve(context.Background(), appkardex.ReserveInput{
		ProductID: testSKU, LocationID: testMain, Quantity: 0, UserID: testUser,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
