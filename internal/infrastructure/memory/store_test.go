package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
	"github.com/jhoicas/Kardex-api/internal/infrastructure/memory"
)

func testEntry(id string, ts time.Time) *entity.LedgerEntry {
	return &entity.LedgerEntry{
		ID: id, ProductID: "SKU-1", LocationID: "MAIN",
		Type: entity.MovementTypePURCHASE, QuantityChange: 10,
		UnitCost: decimal.NewFromInt(5), Timestamp: ts,
	}
}

func TestStore_AppendAsignaSecuenciaCreciente(t *testing.T) {
	s := memory.NewStore(time.Second)
	repo := s.EntryRepo()
	now := time.Now().UTC()

	e1 := testEntry("a", now)
	e2 := testEntry("b", now)
	require.NoError(t, repo.Append(e1))
	require.NoError(t, repo.Append(e2))

	assert.Less(t, e1.InsertionSeq, e2.InsertionSeq,
		"la secuencia de inserción desempata asientos con el mismo timestamp")
}

func TestStore_AppendRechazaIDDuplicado(t *testing.T) {
	s := memory.NewStore(time.Second)
	repo := s.EntryRepo()
	now := time.Now().UTC()

	require.NoError(t, repo.Append(testEntry("dup", now)))
	err := repo.Append(testEntry("dup", now))
	assert.ErrorIs(t, err, domain.ErrInvalidEntry)
}

func TestStore_ListaEnOrdenLogico(t *testing.T) {
	s := memory.NewStore(time.Second)
	repo := s.EntryRepo()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	// Inserción fuera de orden temporal: c (más antiguo) entra de último
	require.NoError(t, repo.Append(testEntry("a", base.Add(10*time.Minute))))
	require.NoError(t, repo.Append(testEntry("b", base.Add(20*time.Minute))))
	require.NoError(t, repo.Append(testEntry("c", base.Add(5*time.Minute))))

	entries, err := repo.ListByProductLocation("SKU-1", "MAIN", nil)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "c", entries[0].ID, "el backfill aparece en su posición lógica")
	assert.Equal(t, "a", entries[1].ID)
	assert.Equal(t, "b", entries[2].ID)

	// Corte as-of inclusivo
	until := base.Add(10 * time.Minute)
	entries, err = repo.ListByProductLocation("SKU-1", "MAIN", &until)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "c", entries[0].ID)
	assert.Equal(t, "a", entries[1].ID)
}

func TestStore_RunFallidoNoDejaEscrituras(t *testing.T) {
	s := memory.NewStore(time.Second)
	key := entity.StockKey{ProductID: "SKU-1", LocationID: "MAIN"}
	boom := errors.New("boom")

	err := s.Run(context.Background(), []entity.StockKey{key}, func(
		entryRepo repository.LedgerEntryRepository,
		balanceRepo repository.BalanceRepository,
		reservationRepo repository.ReservationRepository,
	) error {
		require.NoError(t, entryRepo.Append(testEntry("fantasma", time.Now().UTC())))
		require.NoError(t, balanceRepo.UpsertLocation(&entity.LocationBalance{
			ProductID: "SKU-1", LocationID: "MAIN", OnHand: 10,
			AverageCost: decimal.NewFromInt(5), UpdatedAt: time.Now().UTC(),
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	entries, err := s.EntryRepo().ListByProductLocation("SKU-1", "MAIN", nil)
	require.NoError(t, err)
	assert.Empty(t, entries, "una transacción fallida no deja asientos")

	bal, err := s.BalanceRepo().GetLocation("SKU-1", "MAIN")
	require.NoError(t, err)
	assert.Nil(t, bal, "tampoco vistas materializadas")
}

func TestStore_LecturasEnTxVenLoPendiente(t *testing.T) {
	s := memory.NewStore(time.Second)
	key := entity.StockKey{ProductID: "SKU-1", LocationID: "MAIN"}

	err := s.Run(context.Background(), []entity.StockKey{key}, func(
		entryRepo repository.LedgerEntryRepository,
		balanceRepo repository.BalanceRepository,
		reservationRepo repository.ReservationRepository,
	) error {
		require.NoError(t, entryRepo.Append(testEntry("pendiente", time.Now().UTC())))
		entries, err := entryRepo.ListByProductLocation("SKU-1", "MAIN", nil)
		require.NoError(t, err)
		assert.Len(t, entries, 1, "la vista transaccional incluye lo aún no confirmado")
		return nil
	})
	require.NoError(t, err)

	entries, err := s.EntryRepo().ListByProductLocation("SKU-1", "MAIN", nil)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "tras el commit lo pendiente es visible para todos")
}

func TestStore_ContencionPorClave(t *testing.T) {
	s := memory.NewStore(80 * time.Millisecond)
	key := entity.StockKey{ProductID: "SKU-1", LocationID: "MAIN"}

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.Run(context.Background(), []entity.StockKey{key}, func(
			repository.LedgerEntryRepository, repository.BalanceRepository, repository.ReservationRepository,
		) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	err := s.Run(context.Background(), []entity.StockKey{key}, func(
		repository.LedgerEntryRepository, repository.BalanceRepository, repository.ReservationRepository,
	) error {
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrContention)

	// Una clave distinta no compite
	otra := entity.StockKey{ProductID: "SKU-1", LocationID: "OTRA"}
	err = s.Run(context.Background(), []entity.StockKey{otra}, func(
		repository.LedgerEntryRepository, repository.BalanceRepository, repository.ReservationRepository,
	) error {
		return nil
	})
	assert.NoError(t, err)

	close(release)
	require.NoError(t, <-done)
}

func TestStore_ContextoCanceladoAbortaLaEspera(t *testing.T) {
	s := memory.NewStore(5 * time.Second)
	key := entity.StockKey{ProductID: "SKU-1", LocationID: "MAIN"}

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.Run(context.Background(), []entity.StockKey{key}, func(
			repository.LedgerEntryRepository, repository.BalanceRepository, repository.ReservationRepository,
		) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := s.Run(ctx, []entity.StockKey{key}, func(
		repository.LedgerEntryRepository, repository.BalanceRepository, repository.ReservationRepository,
	) error {
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, <-done)
}
