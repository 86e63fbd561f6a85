package kardex_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appkardex "github.com/jhoicas/Kardex-api/internal/application/kardex"
	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	domkardex "github.com/jhoicas/Kardex-api/internal/domain/kardex"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
	"github.com/jhoicas/Kardex-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Los tests de movimientos corren contra el store en memoria, que implementa
// los mismos puertos que PostgreSQL: bloqueo por clave, vista transaccional y
// commit atómico. La semántica validada aquí es exactamente la de producción.
// ──────────────────────────────────────────────────────────────────────────────

const (
	testSKU  = "SKU-TEST-1"
	testMain = "MAIN"
	testFBA  = "AMAZON_FBA"
	testUser = "tester"
)

func costOf(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}

type fixture struct {
	store     *memory.Store
	movements *appkardex.MovementUseCase
	queries   *appkardex.StockQueryUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore(2 * time.Second)
	movements := appkardex.NewMovementUseCase(store)
	queries := appkardex.NewStockQueryUseCase(store.EntryRepo(), store.BalanceRepo(), store.ReservationRepo(), store)
	return &fixture{store: store, movements: movements, queries: queries}
}

func (f *fixture) register(t *testing.T, in appkardex.MovementInput) {
	t.Helper()
	if in.UserID == "" {
		in.UserID = testUser
	}
	require.NoError(t, f.movements.RegisterMovement(context.Background(), in))
}

func (f *fixture) balance(t *testing.T, locationID string) *entity.LocationBalance {
	t.Helper()
	bal, err := f.queries.CurrentBalance(context.Background(), testSKU, locationID)
	require.NoError(t, err)
	return bal
}

// TestRegisterMovement_FlujoCompleto recorre la vida de un SKU: carga inicial,
// compra que mueve el promedio, venta, traslado entre ubicaciones y ajuste
// final a cero.
func TestRegisterMovement_FlujoCompleto(t *testing.T) {
	f := newFixture(t)

	// Carga inicial: 100 unidades a $58.00
	f.register(t, appkardex.MovementInput{
		ProductID: testSKU, LocationID: testMain,
		Type: entity.MovementTypeINITIAL_LOAD, Quantity: 100, UnitCost: costOf(58),
	})
	bal := f.balance(t, testMain)
	assert.Equal(t, int64(100), bal.OnHand)
	assert.Equal(t, "58.00", bal.AverageCost.StringFixed(2))

	// Compra: 20 unidades a $60.00 → promedio 58.33
	f.register(t, appkardex.MovementInput{
		ProductID: testSKU, LocationID: testMain,
		Type: entity.MovementTypePURCHASE, Quantity: 20, UnitCost: costOf(60),
	})
	bal = f.balance(t, testMain)
	assert.Equal(t, int64(120), bal.OnHand)
	assert.Equal(t, "58.33", bal.AverageCost.StringFixed(2))

	// Venta: 30 unidades; el promedio no se mueve
	f.register(t, appkardex.MovementInput{
		ProductID: testSKU, LocationID: testMain,
		Type: entity.MovementTypeSALE, Quantity: 30,
	})
	bal = f.balance(t, testMain)
	assert.Equal(t, int64(90), bal.OnHand)
	assert.Equal(t, "58.33", bal.AverageCost.StringFixed(2))

	// Traslado: 40 unidades MAIN → AMAZON_FBA
	f.register(t, appkardex.MovementInput{
		ProductID: testSKU, FromLocationID: testMain, ToLocationID: testFBA,
		Type: appkardex.TypeTransfer, Quantity: 40,
	})
	assert.Equal(t, int64(50), f.balance(t, testMain).OnHand)
	fba := f.balance(t, testFBA)
	assert.Equal(t, int64(40), fba.OnHand)
	assert.Equal(t, "58.33", fba.AverageCost.StringFixed(2),
		"el costo viaja con el stock trasladado")

	// El consolidado conserva el total: un traslado no crea ni destruye stock
	agg, err := f.queries.Aggregate(context.Background(), testSKU)
	require.NoError(t, err)
	assert.Equal(t, int64(90), agg.StockQuantity)
	assert.Equal(t, int64(50), agg.Inventory[testMain].Stock)
	assert.Equal(t, int64(40), agg.Inventory[testFBA].Stock)

	// Ajuste que dejaría MAIN negativo: rechazado con los valores en el mensaje
	err = f.movements.RegisterMovement(context.Background(), appkardex.MovementInput{
		ProductID: testSKU, LocationID: testMain,
		Type: entity.MovementTypeADJUSTMENT, Quantity: -95, UserID: testUser,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidAdjustment)
	assert.Contains(t, err.Error(), "actual 50, ajuste -95")

	// Ajuste válido a cero
	f.register(t, appkardex.MovementInput{
		ProductID: testSKU, LocationID: testMain,
		Type: entity.MovementTypeADJUSTMENT, Quantity: -50,
	})
	assert.Equal(t, int64(0), f.balance(t, testMain).OnHand)
}

func TestRegisterMovement_VentaSinStockFalla(t *testing.T) {
	f := newFixture(t)
	f.register(t, appkardex.MovementInput{
		ProductID: testSKU, LocationID: testMain,
		Type: entity.MovementTypeINITIAL_LOAD, Quantity: 10, UnitCost: costOf(58),
	})

	err := f.movements.RegisterMovement(context.Background(), appkardex.MovementInput{
		ProductID: testSKU, LocationID: testMain,
		Type: entity.MovementTypeSALE, Quantity: 11, UserID: testUser,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	// Nada quedó escrito: el saldo sigue intacto
	assert.Equal(t, int64(10), f.balance(t, testMain).OnHand)
}

func TestRegisterMovement_VentaBackorderAutorizada(t *testing.T) {
	f := newFixture(t)
	f.register(t, appkardex.MovementInput{
		ProductID: testSKU, LocationID: testMain,
		Type: entity.MovementTypeINITIAL_LOAD, Quantity: 10, UnitCost: costOf(58),
	})

	f.register(t, appkardex.MovementInput{
		ProductID: testSKU, LocationID: testMain,
		Type: entity.MovementTypeSALE, Quantity: 25, AllowBackorder: true,
	})

	bal := f.balance(t, testMain)
	assert.Equal(t, int64(-15), bal.OnHand, "la venta autorizada puede dejar saldo negativo")
	assert.True(t, bal.Backordered())

	entries, err := f.queries.ListEntries(context.Background(), testSKU, testMain)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[1].Backorder, "el asiento queda marcado como backorder")
}

func TestRegisterMovement_CargaInicialSobreSaldoFalla(t *testing.T) {
	f := newFixture(t)
	f.register(t, appkardex.MovementInput{
		ProductID: testSKU, LocationID: testMain,
		Type: entity.MovementTypeINITIAL_LOAD, Quantity: 100, UnitCost: costOf(58),
	})

	err := f.movements.RegisterMovement(context.Background(), appkardex.MovementInput{
		ProductID: testSKU, LocationID: testMain,
		Type: entity.MovementTypeINITIAL_LOAD, Quantity: 50, UnitCost: costOf(58), UserID: testUser,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput,
		"INITIAL_LOAD exige saldo cero salvo backfill explícito")
}

func TestRegisterMovement_ValidacionDeEntrada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	casos := []struct {
		nombre string
		input  appkardex.MovementInput
	}{
		{"tipo desconocido", appkardex.MovementInput{
			ProductID: testSKU, LocationID: testMain, Type: "RESTOCK", Quantity: 1}},
		{"compra sin costo", appkardex.MovementInput{
			ProductID: testSKU, LocationID: testMain, Type: entity.MovementTypePURCHASE, Quantity: 5}},
		{"cantidad cero", appkardex.MovementInput{
			ProductID: testSKU, LocationID: testMain, Type: entity.MovementTypeSALE, Quantity: 0}},
		{"ajuste cero", appkardex.MovementInput{
			ProductID: testSKU, LocationID: testMain, Type: entity.MovementTypeADJUSTMENT, Quantity: 0}},
		{"traslado a la misma ubicación", appkardex.MovementInput{
			ProductID: testSKU, FromLocationID: testMain, ToLocationID: testMain,
			Type: appkardex.TypeTransfer, Quantity: 5}},
		{"traslado sin destino", appkardex.MovementInput{
			ProductID: testSKU, FromLocationID: testMain, Type: appkardex.TypeTransfer, Quantity: 5}},
		{"sin producto", appkardex.MovementInput{
			LocationID: testMain, Type: entity.MovementTypeSALE, Quantity: 5}},
	}
	for _, c := range casos {
		t.Run(c.nombre, func(t *testing.T) {
			c.input.UserID = testUser
			err := f.movements.RegisterMovement(ctx, c.input)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestRegisterMovement_TrasladoGeneraParBalanceado(t *testing.T) {
	f := newFixture(t)
	f.register(t, appkardex.MovementInput{
		ProductID: testSKU, LocationID: testMain,
		Type: entity.MovementTypeINITIAL_LOAD, Quantity: 100, UnitCost: costOf(58),
	})
	f.register(t, appkardex.MovementInput{
		ProductID: testSKU, FromLocationID: testMain, ToLocationID: testFBA,
		Type: appkardex.TypeTransfer, Quantity: 40, ReferenceID: "TRF-001",
	})

	pair, err := f.store.EntryRepo().ListByReference(entity.ReferenceTypeTRANSFER, "TRF-001")
	require.NoError(t, err)
	require.Len(t, pair, 2, "un traslado produce exactamente dos asientos")

	var out, in *entity.LedgerEntry
	for _, e := range pair {
		switch e.Type {
		case entity.MovementTypeTRANSFER_OUT:
			out = e
		case entity.MovementTypeTRANSFER_IN:
			in = e
		}
	}
	require.NotNil(t, out)
	require.NotNil(t, in)
	assert.Equal(t, out.QuantityChange, -in.QuantityChange, "el par debe ser la negación exacta")
	assert.True(t, out.UnitCost.Equal(in.UnitCost), "ambas mitades llevan el costo del origen")
}

func TestRegisterMovement_TrasladoSinStockNoDejaNada(t *testing.T) {
	f := newFixture(t)
	f.register(t, appkardex.MovementInput{
		ProductID: testSKU, LocationID: testMain,
		Type: entity.MovementTypeINITIAL_LOAD, Quantity: 10, UnitCost: costOf(58),
	})

	err := f.movements.RegisterMovement(context.Background(), appkardex.MovementInput{
		ProductID: testSKU, FromLocationID: testMain, ToLocationID: testFBA,
		Type: appkardex.TypeTransfer, Quantity: 40, UserID: testUser,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	entries, err := f.queries.ListEntries(context.Background(), testSKU, testFBA)
	require.NoError(t, err)
	assert.Empty(t, entries, "la mitad TRANSFER_IN jamás debe quedar sola")
}

// ── Backfill ─────────────────────────────────────────────────────────────────

func TestRegisterMovement_BackfillQuedaEnPosicionLogica(t *testing.T) {
	f := newFixture(t)
	f.register(t, appkardex.MovementInput{
		ProductID: testSKU, LocationID: testMain,
		Type: entity.MovementTypeINITIAL_LOAD, Quantity: 100, UnitCost: costOf(58),
	})
	f.register(t, appkardex.MovementInput{
		ProductID: testSKU, LocationID: testMain,
		Type: entity.MovementTypeSALE, Quantity: 30,
	})

	// Compra olvidada hace una hora, insertada ahora
	pasado := time.Now().UTC().Add(-time.Hour)
	f.register(t, appkardex.MovementInput{
		ProductID: testSKU, LocationID: testMain,
		Type: entity.MovementTypePURCHASE, Quantity: 20, UnitCost: costOf(60),
		Timestamp: &pasado,
	})

	// El saldo vigente incluye el backfill
	assert.Equal(t, int64(90), f.balance(t, testMain).OnHand)

	// A media hora atrás la carga inicial y la venta aún no existían: la única
	// historia visible es la compra backfilleada.
	state, err := f.queries.BalanceAsOf(context.Background(), testSKU, testMain, time.Now().UTC().Add(-30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(20), state.OnHand)

	state, err = f.queries.BalanceAsOf(context.Background(), testSKU, testMain, pasado.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(0), state.OnHand)
}

func TestRegisterMovement_VentaBackdatedQueNegativizaHistoriaFalla(t *testing.T) {
	f := newFixture(t)
	f.register(t, appkardex.MovementInput{
		ProductID: testSKU, LocationID: testMain,
		Type: entity.MovementTypeINITIAL_LOAD, Quantity: 100, UnitCost: costOf(58),
	})
	f.register(t, appkardex.MovementInput{
		ProductID: testSKU, LocationID: testMain,
		Type: entity.MovementTypeSALE, Quantity: 90,
	})

	// Venta retroactiva de 50: en su posición lógica habría stock (100), pero
	// el replay completo dejaría la historia en negativo tras la venta de 90.
	pasado := time.Now().UTC().Add(-time.Minute)
	err := f.movements.RegisterMovement(context.Background(), appkardex.MovementInput{
		ProductID: testSKU, LocationID: testMain,
		Type: entity.MovementTypeSALE, Quantity: 50, Timestamp: &pasado, UserID: testUser,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(10), f.balance(t, testMain).OnHand, "el asiento nunca se escribió")
}

// ── Cadena grabada ───────────────────────────────────────────────────────────

func TestRegisterMovement_CadenaGrabadaSobreviveAlReplay(t *testing.T) {
	f := newFixture(t)
	f.register(t, appkardex.MovementInput{
		ProductID: testSKU, LocationID: testMain,
		Type: entity.MovementTypeINITIAL_LOAD, Quantity: 100, UnitCost: costOf(58),
	})
	f.register(t, appkardex.MovementInput{
		ProductID: testSKU, LocationID: testMain,
		Type: entity.MovementTypePURCHASE, Quantity: 20, UnitCost: costOf(60),
	})
	f.register(t, appkardex.MovementInput{
		ProductID: testSKU, LocationID: testMain,
		Type: entity.MovementTypeSALE, Quantity: 30,
	})

	entries, err := f.queries.ListEntries(context.Background(), testSKU, testMain)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.NoError(t, domkardex.Verify(entries),
		"los campos grabados en registro al día deben coincidir con el replay")
	assert.Equal(t, int64(120), entries[1].BalanceAfter)
	assert.Equal(t, int64(90), entries[2].BalanceAfter)
}

// ── Concurrencia ─────────────────────────────────────────────────────────────

// TestRegisterMovement_VentasConcurrentesSoloUnaGana lanza dos ventas de 60
// sobre un stock de 100: la serialización por clave garantiza que exactamente
// una pasa y la otra recibe stock insuficiente.
func TestRegisterMovement_VentasConcurrentesSoloUnaGana(t *testing.T) {
	f := newFixture(t)
	f.register(t, appkardex.MovementInput{
		ProductID: testSKU, LocationID: testMain,
		Type: entity.MovementTypeINITIAL_LOAD, Quantity: 100, UnitCost: costOf(58),
	})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.movements.RegisterMovement(context.Background(), appkardex.MovementInput{
				ProductID: testSKU, LocationID: testMain,
				Type: entity.MovementTypeSALE, Quantity: 60, UserID: testUser,
			})
		}(i)
	}
	wg.Wait()

	exitos, fallos := 0, 0
	for _, err := range errs {
		if err == nil {
			exitos++
		} else {
			assert.ErrorIs(t, err, domain.ErrInsufficientStock)
			fallos++
		}
	}
	assert.Equal(t, 1, exitos)
	assert.Equal(t, 1, fallos)
	assert.Equal(t, int64(40), f.balance(t, testMain).OnHand)
}

// TestRegisterMovement_ContencionExpira verifica que un escritor que no
// consigue el bloqueo de la clave dentro de la ventana recibe ErrContention
// (reintentable) en lugar de colgarse.
func TestRegisterMovement_ContencionExpira(t *testing.T) {
	store := memory.NewStore(100 * time.Millisecond)
	movements := appkardex.NewMovementUseCase(store)

	require.NoError(t, movements.RegisterMovement(context.Background(), appkardex.MovementInput{
		ProductID: testSKU, LocationID: testMain,
		Type: entity.MovementTypeINITIAL_LOAD, Quantity: 100, UnitCost: costOf(58), UserID: testUser,
	}))

	key := entity.StockKey{ProductID: testSKU, LocationID: testMain}
	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- store.Run(context.Background(), []entity.StockKey{key}, func(
			repository.LedgerEntryRepository, repository.BalanceRepository, repository.ReservationRepository,
		) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	err := movements.RegisterMovement(context.Background(), appkardex.MovementInput{
		ProductID: testSKU, LocationID: testMain,
		Type: entity.MovementTypeSALE, Quantity: 1, UserID: testUser,
	})
	assert.ErrorIs(t, err, domain.ErrContention)

	close(release)
	require.NoError(t, <-done)
}
