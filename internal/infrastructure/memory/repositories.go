package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ repository.WarehouseRepository = (*WarehouseRepo)(nil)
	_ repository.ProductRepository   = (*ProductRepo)(nil)
	_ repository.MovementRepository  = (*MovementRepo)(nil)
	_ repository.StockItemRepository = (*StockItemRepo)(nil)
)

// lookup busca primero en lo pendiente de la transacción y luego en lo confirmado.
func lookup[K comparable, T any](s *Store, t *tx, pick func(*state) map[K]T, key K) (T, bool) {
	if t != nil {
		if v, ok := pick(&t.pending)[key]; ok {
			return v, true
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := pick(&s.committed)[key]
	return v, ok
}

// findOrCreate toma el bloqueo de la clave mientras inserta, igual que un índice único:
// una segunda transacción con la misma clave espera y luego ve la fila existente.
func findOrCreate[K comparable, T any](ctx context.Context, s *Store, t *tx, name string,
	pick func(*state) map[K]T, key K, item T) (*T, bool, error) {
	if v, ok := lookup(s, t, pick, key); ok {
		return &v, false, nil
	}
	var (
		out     T
		created bool
	)
	err := autocommit(ctx, s, t, func(t *tx) error {
		if err := t.lock(ctx, fmt.Sprintf("%s:%v", name, key)); err != nil {
			return err
		}
		if v, ok := lookup(s, t, pick, key); ok {
			out = v
			return nil
		}
		if err := s.fault(name + ".insert"); err != nil {
			return err
		}
		pick(&t.pending)[key] = item
		out, created = item, true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("find or create %s: %w", name, err)
	}
	return &out, created, nil
}

func create[K comparable, T any](ctx context.Context, s *Store, t *tx, name string,
	pick func(*state) map[K]T, key K, item T) error {
	_, created, err := findOrCreate(ctx, s, t, name, pick, key, item)
	if err != nil {
		return err
	}
	if !created {
		return fmt.Errorf("insert %s: %w", name, domain.ErrDuplicate)
	}
	return nil
}

func pickWarehouses(st *state) map[uuid.UUID]entity.Warehouse { return st.warehouses }
func pickProducts(st *state) map[uuid.UUID]entity.Product     { return st.products }
func pickMovements(st *state) map[repository.MovementKey]entity.Movement {
	return st.movements
}
func pickStock(st *state) map[repository.StockKey]entity.StockItem { return st.stock }

// WarehouseRepo bodegas en memoria.
type WarehouseRepo struct {
	s *Store
	t *tx
}

func (r *WarehouseRepo) FindByKey(_ context.Context, id uuid.UUID) (*entity.Warehouse, error) {
	if v, ok := lookup(r.s, r.t, pickWarehouses, id); ok {
		return &v, nil
	}
	return nil, nil
}

func (r *WarehouseRepo) Create(ctx context.Context, w *entity.Warehouse) error {
	return create(ctx, r.s, r.t, "warehouse", pickWarehouses, w.ID, *w)
}

func (r *WarehouseRepo) FindOrCreate(ctx context.Context, w *entity.Warehouse) (*entity.Warehouse, bool, error) {
	return findOrCreate(ctx, r.s, r.t, "warehouse", pickWarehouses, w.ID, *w)
}

// ProductRepo productos en memoria.
type ProductRepo struct {
	s *Store
	t *tx
}

func (r *ProductRepo) FindByKey(_ context.Context, id uuid.UUID) (*entity.Product, error) {
	if v, ok := lookup(r.s, r.t, pickProducts, id); ok {
		return &v, nil
	}
	return nil, nil
}

func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	return create(ctx, r.s, r.t, "product", pickProducts, p.ID, *p)
}

func (r *ProductRepo) FindOrCreate(ctx context.Context, p *entity.Product) (*entity.Product, bool, error) {
	return findOrCreate(ctx, r.s, r.t, "product", pickProducts, p.ID, *p)
}

// MovementRepo movimientos en memoria.
type MovementRepo struct {
	s *Store
	t *tx
}

func (r *MovementRepo) FindByKey(_ context.Context, key repository.MovementKey) (*entity.Movement, error) {
	if v, ok := lookup(r.s, r.t, pickMovements, key); ok {
		return &v, nil
	}
	return nil, nil
}

func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	if m.Quantity < 0 {
		return fmt.Errorf("insert movement: %w", domain.ErrInvalidInput)
	}
	return create(ctx, r.s, r.t, "movement", pickMovements, repository.KeyOf(m), *m)
}

func (r *MovementRepo) FindOrCreate(ctx context.Context, m *entity.Movement) (*entity.Movement, bool, error) {
	if m.Quantity < 0 {
		return nil, false, fmt.Errorf("find or create movement: %w", domain.ErrInvalidInput)
	}
	return findOrCreate(ctx, r.s, r.t, "movement", pickMovements, repository.KeyOf(m), *m)
}

// ListByMovementID devuelve las filas confirmadas de un traslado, ordenadas por timestamp.
func (r *MovementRepo) ListByMovementID(_ context.Context, movementID uuid.UUID) ([]*entity.Movement, error) {
	return r.list(func(m *entity.Movement) bool { return m.MovementID == movementID }, false), nil
}

// ListByWarehouse lista movimientos de una bodega, más recientes primero.
func (r *MovementRepo) ListByWarehouse(_ context.Context, warehouseID uuid.UUID, limit, offset int) ([]*entity.Movement, error) {
	list := r.list(func(m *entity.Movement) bool {
		return m.WarehouseID != nil && *m.WarehouseID == warehouseID
	}, true)
	if offset >= len(list) {
		return nil, nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list, nil
}

func (r *MovementRepo) list(match func(*entity.Movement) bool, desc bool) []*entity.Movement {
	r.s.mu.RLock()
	var out []*entity.Movement
	for _, m := range r.s.committed.movements {
		m := m
		if match(&m) {
			out = append(out, &m)
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp) != desc
		}
		return (a.ID < b.ID) != desc
	})
	return out
}

// StockItemRepo stock en memoria.
type StockItemRepo struct {
	s *Store
	t *tx
}

func stockLock(key repository.StockKey) string {
	return fmt.Sprintf("stock_item:%v", key)
}

func (r *StockItemRepo) FindByKey(_ context.Context, key repository.StockKey) (*entity.StockItem, error) {
	if v, ok := lookup(r.s, r.t, pickStock, key); ok {
		return &v, nil
	}
	return nil, nil
}

func (r *StockItemRepo) Create(ctx context.Context, item *entity.StockItem) error {
	_, created, err := r.FindOrCreate(ctx, item)
	if err != nil {
		return err
	}
	if !created {
		return fmt.Errorf("insert stock_item: %w", domain.ErrDuplicate)
	}
	return nil
}

// FindOrCreate usa el mismo bloqueo que GetForUpdate, así que la fila creada queda bloqueada.
func (r *StockItemRepo) FindOrCreate(ctx context.Context, item *entity.StockItem) (*entity.StockItem, bool, error) {
	if item.Quantity < 0 {
		return nil, false, fmt.Errorf("find or create stock_item: %w", domain.ErrInvalidInput)
	}
	key := repository.StockKey{WarehouseID: item.WarehouseID, ProductID: item.ProductID}
	return findOrCreate(ctx, r.s, r.t, "stock_item", pickStock, key, *item)
}

// GetForUpdate bloquea la clave hasta el fin de la transacción y devuelve la fila vigente.
func (r *StockItemRepo) GetForUpdate(ctx context.Context, key repository.StockKey) (*entity.StockItem, error) {
	var out *entity.StockItem
	err := autocommit(ctx, r.s, r.t, func(t *tx) error {
		if err := t.lock(ctx, stockLock(key)); err != nil {
			return err
		}
		if v, ok := lookup(r.s, t, pickStock, key); ok {
			out = &v
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get stock_item for update: %w", err)
	}
	return out, nil
}

func (r *StockItemRepo) UpdateQuantity(ctx context.Context, item *entity.StockItem) error {
	if item.Quantity < 0 {
		return fmt.Errorf("update stock_item: %w", domain.ErrInvalidInput)
	}
	key := repository.StockKey{WarehouseID: item.WarehouseID, ProductID: item.ProductID}
	return autocommit(ctx, r.s, r.t, func(t *tx) error {
		if err := t.lock(ctx, stockLock(key)); err != nil {
			return err
		}
		if _, ok := lookup(r.s, t, pickStock, key); !ok {
			return fmt.Errorf("update stock_item: %w", domain.ErrNotFound)
		}
		if err := r.s.fault("stock_item.update"); err != nil {
			return err
		}
		pickStock(&t.pending)[key] = *item
		return nil
	})
}
