package memory

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/repositories"
)

type tables struct {
	ccps         map[uuid.UUID]*entities.CCP
	logs         map[uuid.UUID]*entities.CCPLog
	materials    map[uuid.UUID]*entities.RawMaterial
	lots         map[uuid.UUID]*entities.MaterialLot
	consumptions []*entities.LotConsumption
	products     map[uuid.UUID]*entities.FinishedProduct
	bomLines     map[uuid.UUID]*entities.BOMLine
	orders       map[uuid.UUID]*entities.ProductionOrder
	suppliers    map[uuid.UUID]*entities.Supplier
}

func newTables() *tables {
	return &tables{
		ccps:      make(map[uuid.UUID]*entities.CCP),
		logs:      make(map[uuid.UUID]*entities.CCPLog),
		materials: make(map[uuid.UUID]*entities.RawMaterial),
		lots:      make(map[uuid.UUID]*entities.MaterialLot),
		products:  make(map[uuid.UUID]*entities.FinishedProduct),
		bomLines:  make(map[uuid.UUID]*entities.BOMLine),
		orders:    make(map[uuid.UUID]*entities.ProductionOrder),
		suppliers: make(map[uuid.UUID]*entities.Supplier),
	}
}

// snapshot copies the table maps. Stored records are replaced on write, never
// mutated in place, so sharing the record pointers is safe.
func (t *tables) snapshot() *tables {
	return &tables{
		ccps:         copyMap(t.ccps),
		logs:         copyMap(t.logs),
		materials:    copyMap(t.materials),
		lots:         copyMap(t.lots),
		consumptions: append([]*entities.LotConsumption(nil), t.consumptions...),
		products:     copyMap(t.products),
		bomLines:     copyMap(t.bomLines),
		orders:       copyMap(t.orders),
		suppliers:    copyMap(t.suppliers),
	}
}

func copyMap[V any](m map[uuid.UUID]*V) map[uuid.UUID]*V {
	out := make(map[uuid.UUID]*V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func clone[V any](v *V) *V {
	c := *v
	return &c
}

// Store provides in-memory storage for every entity. Writes are serialized with
// transactions; a failed transaction restores the snapshot taken when it began.
type Store struct {
	mu   *sync.RWMutex
	txMu *sync.Mutex
	data **tables
	inTx bool
	now  func() time.Time
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	d := newTables()
	return &Store{
		mu:   &sync.RWMutex{},
		txMu: &sync.Mutex{},
		data: &d,
		now:  time.Now,
	}
}

// Verify interface compliance
var _ repositories.Store = (*Store)(nil)

// Atomic runs fn in a transaction. Nested calls join the outer transaction.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx repositories.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	before := (*s.data).snapshot()
	s.mu.RUnlock()

	tx := &Store{mu: s.mu, txMu: s.txMu, data: s.data, inTx: true, now: s.now}
	if err := fn(ctx, tx); err != nil {
		s.mu.Lock()
		*s.data = before
		s.mu.Unlock()
		return err
	}
	return nil
}

// write runs fn with exclusive access to the tables
func (s *Store) write(fn func(t *tables) error) error {
	if !s.inTx {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(*s.data)
}

// read runs fn under the read lock only. A read made outside Atomic can see
// writes of a transaction that has not committed yet and may still roll back.
func (s *Store) read(fn func(t *tables)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(*s.data)
}

func (s *Store) touch(created *time.Time, updated *time.Time) {
	now := s.now()
	if created != nil && created.IsZero() {
		*created = now
	}
	if updated != nil {
		*updated = now
	}
}

func idLess(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

func contains[T comparable](set []T, v T) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
