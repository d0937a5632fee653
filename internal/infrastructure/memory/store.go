// Package memory implementa el ledger en memoria con transacciones: escrituras diferidas hasta
// el commit, bloqueo de clave única mientras se inserta y bloqueo de fila en GetForUpdate.
// Se usa para desarrollo local (DB_DRIVER=memory) y en los tests de la capa de aplicación.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ ledger.TxRunner = (*Store)(nil)

type state struct {
	warehouses map[uuid.UUID]entity.Warehouse
	products   map[uuid.UUID]entity.Product
	movements  map[repository.MovementKey]entity.Movement
	stock      map[repository.StockKey]entity.StockItem
}

func newState() state {
	return state{
		warehouses: map[uuid.UUID]entity.Warehouse{},
		products:   map[uuid.UUID]entity.Product{},
		movements:  map[repository.MovementKey]entity.Movement{},
		stock:      map[repository.StockKey]entity.StockItem{},
	}
}

// Store estado confirmado del ledger más la tabla de bloqueos.
type Store struct {
	mu        sync.RWMutex
	committed state
	nextID    int64

	locks lockTable

	faultMu sync.Mutex
	faults  map[string]error
}

// NewStore crea un ledger vacío.
func NewStore() *Store {
	return &Store{
		committed: newState(),
		locks:     lockTable{held: map[string]chan struct{}{}},
		faults:    map[string]error{},
	}
}

// FailNext hace que la próxima operación op falle con err (una sola vez).
// Operaciones: warehouse.insert, product.insert, movement.insert, stock_item.insert, stock_item.update.
func (s *Store) FailNext(op string, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults[op] = err
}

func (s *Store) fault(op string) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	err, ok := s.faults[op]
	if !ok {
		return nil
	}
	delete(s.faults, op)
	return fmt.Errorf("%s: %w", op, err)
}

// Run ejecuta fn en una transacción: si fn falla no se confirma nada.
func (s *Store) Run(ctx context.Context, fn func(
	warehouseRepo repository.WarehouseRepository,
	productRepo repository.ProductRepository,
	movRepo repository.MovementRepository,
	stockRepo repository.StockItemRepository,
) error) error {
	t := s.begin()
	defer t.releaseAll()

	if err := fn(
		&WarehouseRepo{s: s, t: t},
		&ProductRepo{s: s, t: t},
		&MovementRepo{s: s, t: t},
		&StockItemRepo{s: s, t: t},
	); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	s.commit(t)
	return nil
}

// Repositorios fuera de transacción (lecturas confirmadas, escrituras en autocommit).

func (s *Store) Warehouses() *WarehouseRepo { return &WarehouseRepo{s: s} }
func (s *Store) Products() *ProductRepo     { return &ProductRepo{s: s} }
func (s *Store) Movements() *MovementRepo   { return &MovementRepo{s: s} }
func (s *Store) StockItems() *StockItemRepo { return &StockItemRepo{s: s} }

func (s *Store) begin() *tx {
	return &tx{s: s, pending: newState(), held: map[string]bool{}}
}

// commit vuelca las escrituras pendientes. Las altas nunca sobrescriben filas existentes.
func (s *Store) commit(t *tx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, w := range t.pending.warehouses {
		if _, ok := s.committed.warehouses[id]; !ok {
			s.committed.warehouses[id] = w
		}
	}
	for id, p := range t.pending.products {
		if _, ok := s.committed.products[id]; !ok {
			s.committed.products[id] = p
		}
	}
	for k, m := range t.pending.movements {
		if _, ok := s.committed.movements[k]; !ok {
			s.nextID++
			m.ID = s.nextID
			s.committed.movements[k] = m
		}
	}
	for k, item := range t.pending.stock {
		s.committed.stock[k] = item
	}
}

// tx escrituras pendientes y bloqueos tomados por una transacción.
type tx struct {
	s       *Store
	pending state
	held    map[string]bool
}

func (t *tx) lock(ctx context.Context, key string) error {
	if t.held[key] {
		return nil
	}
	if err := t.s.locks.acquire(ctx, key); err != nil {
		return err
	}
	t.held[key] = true
	return nil
}

func (t *tx) releaseAll() {
	for key := range t.held {
		t.s.locks.release(key)
	}
	t.held = nil
}

// autocommit ejecuta fn en su propia transacción cuando el repositorio no está atado a una.
func autocommit(ctx context.Context, s *Store, t *tx, fn func(t *tx) error) error {
	if t != nil {
		return fn(t)
	}
	own := s.begin()
	defer own.releaseAll()
	if err := fn(own); err != nil {
		return err
	}
	s.commit(own)
	return nil
}

// lockTable bloqueos exclusivos por clave, cancelables con el contexto.
type lockTable struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func (l *lockTable) acquire(ctx context.Context, key string) error {
	for {
		l.mu.Lock()
		ch, busy := l.held[key]
		if !busy {
			l.held[key] = make(chan struct{})
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return fmt.Errorf("lock %s: %w", key, ctx.Err())
		}
	}
}

func (l *lockTable) release(key string) {
	l.mu.Lock()
	ch := l.held[key]
	delete(l.held, key)
	l.mu.Unlock()
	if ch != nil {
		close(ch)
	}
}
