package postgres

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.WarehouseRepository = (*WarehouseRepo)(nil)

// WarehouseRepo implementación del puerto WarehouseRepository sobre PostgreSQL (usable con pool o tx).
type WarehouseRepo struct {
	*table[entity.Warehouse, uuid.UUID]
}

// NewWarehouseRepository construye el adaptador de persistencia para bodegas. Pasar pool o tx (Querier).
func NewWarehouseRepository(q Querier) *WarehouseRepo {
	return &WarehouseRepo{&table[entity.Warehouse, uuid.UUID]{
		q:          q,
		name:       "warehouse",
		selectSQL:  `SELECT id, code FROM warehouse`,
		insertSQL:  `INSERT INTO warehouse (id, code) VALUES ($1, $2)`,
		conflict:   "(id)",
		whereKey:   "id = $1",
		keyArgs:    func(id uuid.UUID) []any { return []any{id} },
		keyOf:      func(w *entity.Warehouse) uuid.UUID { return w.ID },
		insertArgs: func(w *entity.Warehouse) []any { return []any{w.ID, w.Code} },
		scan: func(row pgx.Row) (*entity.Warehouse, error) {
			var w entity.Warehouse
			if err := row.Scan(&w.ID, &w.Code); err != nil {
				return nil, err
			}
			return &w, nil
		},
	}}
}
