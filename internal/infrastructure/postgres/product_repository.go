package postgres

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL.
type ProductRepo struct {
	*table[entity.Product, uuid.UUID]
}

// NewProductRepository construye el adaptador. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{&table[entity.Product, uuid.UUID]{
		q:          q,
		name:       "product",
		selectSQL:  `SELECT id FROM product`,
		insertSQL:  `INSERT INTO product (id) VALUES ($1)`,
		conflict:   "(id)",
		whereKey:   "id = $1",
		keyArgs:    func(id uuid.UUID) []any { return []any{id} },
		keyOf:      func(p *entity.Product) uuid.UUID { return p.ID },
		insertArgs: func(p *entity.Product) []any { return []any{p.ID} },
		scan: func(row pgx.Row) (*entity.Product, error) {
			var p entity.Product
			if err := row.Scan(&p.ID); err != nil {
				return nil, err
			}
			return &p, nil
		},
	}}
}
