// Package memory implementa los puertos del kardex sobre mapas en memoria.
// Se usa en tests y en modo desarrollo sin PostgreSQL. Las escrituras de una
// transacción se acumulan en una vista y se aplican al confirmar, de modo que
// un fallo a mitad de camino no deja nada escrito.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/Kardex-api/internal/application/kardex"
	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

// Store guarda el estado completo del kardex en memoria.
type Store struct {
	mu           sync.RWMutex
	entries      []*entity.LedgerEntry
	entriesByID  map[string]*entity.LedgerEntry
	seq          int64
	locations    map[entity.StockKey]*entity.LocationBalance
	aggregates   map[string]*entity.ProductStockAggregate
	reservations map[string]*entity.Reservation

	lockMu   sync.Mutex
	keyLocks map[entity.StockKey]chan struct{}
	lockWait time.Duration
}

var _ kardex.TxRunner = (*Store)(nil)

// NewStore construye el store. lockWait es la ventana máxima de espera por el
// bloqueo de una clave antes de fallar con ErrContention.
func NewStore(lockWait time.Duration) *Store {
	if lockWait <= 0 {
		lockWait = 2 * time.Second
	}
	return &Store{
		entriesByID:  make(map[string]*entity.LedgerEntry),
		locations:    make(map[entity.StockKey]*entity.LocationBalance),
		aggregates:   make(map[string]*entity.ProductStockAggregate),
		reservations: make(map[string]*entity.Reservation),
		keyLocks:     make(map[entity.StockKey]chan struct{}),
		lockWait:     lockWait,
	}
}

// ── TxRunner ─────────────────────────────────────────────────────────────────

// Run adquiere los bloqueos de las claves en orden estable, ejecuta fn sobre
// una vista transaccional y aplica las escrituras solo si fn no falla.
func (s *Store) Run(ctx context.Context, keys []entity.StockKey, fn func(
	entryRepo repository.LedgerEntryRepository,
	balanceRepo repository.BalanceRepository,
	reservationRepo repository.ReservationRepository,
) error) error {
	sorted := make([]entity.StockKey, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ProductID != sorted[j].ProductID {
			return sorted[i].ProductID < sorted[j].ProductID
		}
		return sorted[i].LocationID < sorted[j].LocationID
	})
	acquired := make([]entity.StockKey, 0, len(sorted))
	defer func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			s.release(acquired[i])
		}
	}()
	for _, k := range sorted {
		if err := s.acquire(ctx, k); err != nil {
			return err
		}
		acquired = append(acquired, k)
	}

	tx := &txView{store: s}
	if err := fn(&txEntryRepo{tx}, &txBalanceRepo{tx}, &txReservationRepo{tx}); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *Store) acquire(ctx context.Context, key entity.StockKey) error {
	s.lockMu.Lock()
	ch, ok := s.keyLocks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		s.keyLocks[key] = ch
	}
	s.lockMu.Unlock()

	timer := time.NewTimer(s.lockWait)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		return nil
	case <-timer.C:
		return domain.ErrContention
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release(key entity.StockKey) {
	s.lockMu.Lock()
	ch := s.keyLocks[key]
	s.lockMu.Unlock()
	<-ch
}

// ── Vista transaccional ──────────────────────────────────────────────────────

// txView acumula las escrituras de una transacción. Las lecturas ven lo
// confirmado más lo pendiente.
type txView struct {
	store               *Store
	pendingEntries      []*entity.LedgerEntry
	pendingLocations    map[entity.StockKey]*entity.LocationBalance
	pendingAggregates   map[string]*entity.ProductStockAggregate
	pendingReservations map[string]*entity.Reservation
}

func (tx *txView) commit() {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range tx.pendingEntries {
		s.entries = append(s.entries, e)
		s.entriesByID[e.ID] = e
	}
	for k, b := range tx.pendingLocations {
		s.locations[k] = b
	}
	for id, a := range tx.pendingAggregates {
		s.aggregates[id] = a
	}
	for id, r := range tx.pendingReservations {
		s.reservations[id] = r
	}
}

// snapshotEntries devuelve confirmados + pendientes que pasen el filtro.
func (tx *txView) snapshotEntries(match func(*entity.LedgerEntry) bool) []*entity.LedgerEntry {
	s := tx.store
	s.mu.RLock()
	out := make([]*entity.LedgerEntry, 0)
	for _, e := range s.entries {
		if match(e) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()
	for _, e := range tx.pendingEntries {
		if match(e) {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out
}

func sortEntries(entries []*entity.LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Timestamp.Before(entries[j].Timestamp)
		}
		return entries[i].InsertionSeq < entries[j].InsertionSeq
	})
}

// ── LedgerEntryRepository ────────────────────────────────────────────────────

type txEntryRepo struct{ tx *txView }

var _ repository.LedgerEntryRepository = (*txEntryRepo)(nil)

func (r *txEntryRepo) Append(e *entity.LedgerEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s := r.tx.store
	s.mu.Lock()
	if _, dup := s.entriesByID[e.ID]; dup {
		s.mu.Unlock()
		return domain.ErrInvalidEntry
	}
	s.seq++
	e.InsertionSeq = s.seq
	s.mu.Unlock()

	cp := *e
	r.tx.pendingEntries = append(r.tx.pendingEntries, &cp)
	return nil
}

func (r *txEntryRepo) ListByProductLocation(productID, locationID string, until *time.Time) ([]*entity.LedgerEntry, error) {
	return r.tx.snapshotEntries(func(e *entity.LedgerEntry) bool {
		if e.ProductID != productID || e.LocationID != locationID {
			return false
		}
		return until == nil || !e.Timestamp.After(*until)
	}), nil
}

func (r *txEntryRepo) ListByProduct(productID string) ([]*entity.LedgerEntry, error) {
	return r.tx.snapshotEntries(func(e *entity.LedgerEntry) bool {
		return e.ProductID == productID
	}), nil
}

func (r *txEntryRepo) ListLocations(productID string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, e := range r.tx.snapshotEntries(func(e *entity.LedgerEntry) bool { return e.ProductID == productID }) {
		seen[e.LocationID] = struct{}{}
	}
	locs := make([]string, 0, len(seen))
	for loc := range seen {
		locs = append(locs, loc)
	}
	sort.Strings(locs)
	return locs, nil
}

func (r *txEntryRepo) ListByReference(referenceType, referenceID string) ([]*entity.LedgerEntry, error) {
	return r.tx.snapshotEntries(func(e *entity.LedgerEntry) bool {
		return e.ReferenceType == referenceType && e.ReferenceID == referenceID
	}), nil
}

// ── BalanceRepository ────────────────────────────────────────────────────────

type txBalanceRepo struct{ tx *txView }

var _ repository.BalanceRepository = (*txBalanceRepo)(nil)

func (r *txBalanceRepo) GetLocation(productID, locationID string) (*entity.LocationBalance, error) {
	key := entity.StockKey{ProductID: productID, LocationID: locationID}
	if b, ok := r.tx.pendingLocations[key]; ok {
		cp := *b
		return &cp, nil
	}
	s := r.tx.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.locations[key]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (r *txBalanceRepo) UpsertLocation(b *entity.LocationBalance) error {
	if r.tx.pendingLocations == nil {
		r.tx.pendingLocations = make(map[entity.StockKey]*entity.LocationBalance)
	}
	cp := *b
	r.tx.pendingLocations[entity.StockKey{ProductID: b.ProductID, LocationID: b.LocationID}] = &cp
	return nil
}

func (r *txBalanceRepo) GetAggregate(productID string) (*entity.ProductStockAggregate, error) {
	if a, ok := r.tx.pendingAggregates[productID]; ok {
		return copyAggregate(a), nil
	}
	s := r.tx.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.aggregates[productID]; ok {
		return copyAggregate(a), nil
	}
	return nil, nil
}

func (r *txBalanceRepo) UpsertAggregate(a *entity.ProductStockAggregate) error {
	if r.tx.pendingAggregates == nil {
		r.tx.pendingAggregates = make(map[string]*entity.ProductStockAggregate)
	}
	r.tx.pendingAggregates[a.ProductID] = copyAggregate(a)
	return nil
}

func copyAggregate(a *entity.ProductStockAggregate) *entity.ProductStockAggregate {
	cp := *a
	cp.Inventory = make(map[string]entity.LocationStock, len(a.Inventory))
	for k, v := range a.Inventory {
		cp.Inventory[k] = v
	}
	return &cp
}

// ── ReservationRepository ────────────────────────────────────────────────────

type txReservationRepo struct{ tx *txView }

var _ repository.ReservationRepository = (*txReservationRepo)(nil)

func (r *txReservationRepo) Create(res *entity.Reservation) error {
	if r.tx.pendingReservations == nil {
		r.tx.pendingReservations = make(map[string]*entity.Reservation)
	}
	cp := *res
	r.tx.pendingReservations[res.ID] = &cp
	return nil
}

func (r *txReservationRepo) GetByID(id string) (*entity.Reservation, error) {
	if res, ok := r.tx.pendingReservations[id]; ok {
		cp := *res
		return &cp, nil
	}
	s := r.tx.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if res, ok := s.reservations[id]; ok {
		cp := *res
		return &cp, nil
	}
	return nil, nil
}

func (r *txReservationRepo) UpdateStatus(id, status string) error {
	res, err := r.GetByID(id)
	if err != nil {
		return err
	}
	if res == nil {
		return domain.ErrNotFound
	}
	now := time.Now().UTC()
	res.Status = status
	res.ResolvedAt = &now
	if r.tx.pendingReservations == nil {
		r.tx.pendingReservations = make(map[string]*entity.Reservation)
	}
	r.tx.pendingReservations[id] = res
	return nil
}

func (r *txReservationRepo) SumActive(productID, locationID string) (int64, error) {
	var total int64
	seen := make(map[string]struct{})
	for id, res := range r.tx.pendingReservations {
		seen[id] = struct{}{}
		if res.Active() && res.ProductID == productID && res.LocationID == locationID {
			total += res.Quantity
		}
	}
	s := r.tx.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, res := range s.reservations {
		if _, shadowed := seen[id]; shadowed {
			continue
		}
		if res.Active() && res.ProductID == productID && res.LocationID == locationID {
			total += res.Quantity
		}
	}
	return total, nil
}

// ── Repositorios de lectura (fuera de transacción) ───────────────────────────

// EntryRepo devuelve un LedgerEntryRepository de solo-consulta sobre el estado
// confirmado. Append funciona igual que dentro de transacción pero confirma de
// inmediato (lo usa únicamente la siembra de tests).
func (s *Store) EntryRepo() repository.LedgerEntryRepository {
	return &directEntryRepo{s}
}

// BalanceRepo devuelve la vista materializada confirmada.
func (s *Store) BalanceRepo() repository.BalanceRepository {
	return &directBalanceRepo{s}
}

// ReservationRepo devuelve las reservas confirmadas.
func (s *Store) ReservationRepo() repository.ReservationRepository {
	return &directReservationRepo{s}
}

type directEntryRepo struct{ s *Store }

var _ repository.LedgerEntryRepository = (*directEntryRepo)(nil)

func (r *directEntryRepo) Append(e *entity.LedgerEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.entriesByID[e.ID]; dup {
		return domain.ErrInvalidEntry
	}
	s.seq++
	e.InsertionSeq = s.seq
	cp := *e
	s.entries = append(s.entries, &cp)
	s.entriesByID[cp.ID] = &cp
	return nil
}

func (r *directEntryRepo) ListByProductLocation(productID, locationID string, until *time.Time) ([]*entity.LedgerEntry, error) {
	return (&txEntryRepo{&txView{store: r.s}}).ListByProductLocation(productID, locationID, until)
}

func (r *directEntryRepo) ListByProduct(productID string) ([]*entity.LedgerEntry, error) {
	return (&txEntryRepo{&txView{store: r.s}}).ListByProduct(productID)
}

func (r *directEntryRepo) ListLocations(productID string) ([]string, error) {
	return (&txEntryRepo{&txView{store: r.s}}).ListLocations(productID)
}

func (r *directEntryRepo) ListByReference(referenceType, referenceID string) ([]*entity.LedgerEntry, error) {
	return (&txEntryRepo{&txView{store: r.s}}).ListByReference(referenceType, referenceID)
}

type directBalanceRepo struct{ s *Store }

var _ repository.BalanceRepository = (*directBalanceRepo)(nil)

func (r *directBalanceRepo) GetLocation(productID, locationID string) (*entity.LocationBalance, error) {
	return (&txBalanceRepo{&txView{store: r.s}}).GetLocation(productID, locationID)
}

func (r *directBalanceRepo) UpsertLocation(b *entity.LocationBalance) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	s.locations[entity.StockKey{ProductID: b.ProductID, LocationID: b.LocationID}] = &cp
	return nil
}

func (r *directBalanceRepo) GetAggregate(productID string) (*entity.ProductStockAggregate, error) {
	return (&txBalanceRepo{&txView{store: r.s}}).GetAggregate(productID)
}

func (r *directBalanceRepo) UpsertAggregate(a *entity.ProductStockAggregate) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aggregates[a.ProductID] = copyAggregate(a)
	return nil
}

type directReservationRepo struct{ s *Store }

var _ repository.ReservationRepository = (*directReservationRepo)(nil)

func (r *directReservationRepo) Create(res *entity.Reservation) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *res
	s.reservations[res.ID] = &cp
	return nil
}

func (r *directReservationRepo) GetByID(id string) (*entity.Reservation, error) {
	return (&txReservationRepo{&txView{store: r.s}}).GetByID(id)
}

func (r *directReservationRepo) UpdateStatus(id, status string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now().UTC()
	res.Status = status
	res.ResolvedAt = &now
	return nil
}

func (r *directReservationRepo) SumActive(productID, locationID string) (int64, error) {
	return (&txReservationRepo{&txView{store: r.s}}).SumActive(productID, locationID)
}
