package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockItemRepository = (*StockItemRepo)(nil)

// StockItemRepo implementación de StockItemRepository sobre PostgreSQL (usable con pool o tx).
type StockItemRepo struct {
	*table[entity.StockItem, repository.StockKey]
}

// NewStockItemRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockItemRepository(q Querier) *StockItemRepo {
	return &StockItemRepo{&table[entity.StockItem, repository.StockKey]{
		q:         q,
		name:      "stock_item",
		selectSQL: `SELECT warehouse_id, product_id, quantity, updated_at FROM stock_item`,
		insertSQL: `
		INSERT INTO stock_item (warehouse_id, product_id, quantity, updated_at)
		VALUES ($1, $2, $3, now())`,
		conflict: "(warehouse_id, product_id)",
		whereKey: "warehouse_id = $1 AND product_id = $2",
		keyArgs: func(k repository.StockKey) []any {
			return []any{k.WarehouseID, k.ProductID}
		},
		keyOf: func(s *entity.StockItem) repository.StockKey {
			return repository.StockKey{WarehouseID: s.WarehouseID, ProductID: s.ProductID}
		},
		insertArgs: func(s *entity.StockItem) []any {
			return []any{s.WarehouseID, s.ProductID, s.Quantity}
		},
		scan: func(row pgx.Row) (*entity.StockItem, error) {
			var s entity.StockItem
			if err := row.Scan(&s.WarehouseID, &s.ProductID, &s.Quantity, &s.UpdatedAt); err != nil {
				return nil, err
			}
			return &s, nil
		},
	}}
}

// GetForUpdate obtiene el stock y bloquea la fila para update (SELECT FOR UPDATE).
func (r *StockItemRepo) GetForUpdate(ctx context.Context, key repository.StockKey) (*entity.StockItem, error) {
	return r.findOne(ctx, r.selectSQL+" WHERE "+r.whereKey+" FOR UPDATE", r.keyArgs(key)...)
}

// UpdateQuantity actualiza la cantidad; el CHECK quantity >= 0 de la tabla es la última barrera.
func (r *StockItemRepo) UpdateQuantity(ctx context.Context, item *entity.StockItem) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE stock_item SET quantity = $3, updated_at = now()
		WHERE warehouse_id = $1 AND product_id = $2`,
		item.WarehouseID, item.ProductID, item.Quantity)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("update stock_item: %w", domain.ErrInvalidInput)
		}
		return fmt.Errorf("update stock_item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update stock_item: %w", domain.ErrNotFound)
	}
	return nil
}
