package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementColumns = `id, movement_id, warehouse_id, product_id, quantity, event_type, "timestamp", created_at`

// MovementRepo implementación sobre PostgreSQL (usable con pool o tx).
type MovementRepo struct {
	*table[entity.Movement, repository.MovementKey]
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{&table[entity.Movement, repository.MovementKey]{
		q:         q,
		name:      "movement",
		selectSQL: `SELECT ` + movementColumns + ` FROM movement`,
		insertSQL: `
		INSERT INTO movement (movement_id, warehouse_id, product_id, quantity, event_type, "timestamp")
		VALUES ($1, $2, $3, $4, $5, $6)`,
		conflict: "(movement_id, event_type)",
		whereKey: "movement_id = $1 AND event_type = $2",
		keyArgs: func(k repository.MovementKey) []any {
			return []any{k.MovementID, string(k.EventType)}
		},
		keyOf: repository.KeyOf,
		insertArgs: func(m *entity.Movement) []any {
			return []any{m.MovementID, m.WarehouseID, m.ProductID, m.Quantity, string(m.EventType), m.Timestamp}
		},
		scan: scanMovement,
	}}
}

// ListByMovementID devuelve las filas de un traslado lógico (salida primero).
func (r *MovementRepo) ListByMovementID(ctx context.Context, movementID uuid.UUID) ([]*entity.Movement, error) {
	return r.findMany(ctx, r.selectSQL+` WHERE movement_id = $1 ORDER BY "timestamp", id`, movementID)
}

// ListByWarehouse lista movimientos de una bodega con paginación.
func (r *MovementRepo) ListByWarehouse(ctx context.Context, warehouseID uuid.UUID, limit, offset int) ([]*entity.Movement, error) {
	return r.findMany(ctx, r.selectSQL+` WHERE warehouse_id = $1 ORDER BY "timestamp" DESC, id DESC LIMIT $2 OFFSET $3`,
		warehouseID, limit, offset)
}

func scanMovement(row pgx.Row) (*entity.Movement, error) {
	var m entity.Movement
	var eventType string
	if err := row.Scan(&m.ID, &m.MovementID, &m.WarehouseID, &m.ProductID,
		&m.Quantity, &eventType, &m.Timestamp, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.EventType = entity.EventType(eventType)
	return &m, nil
}
