package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// MovementKey clave natural (y de idempotencia) de un movimiento.
type MovementKey struct {
	MovementID uuid.UUID
	EventType  entity.EventType
}

// KeyOf devuelve la clave natural del movimiento.
func KeyOf(m *entity.Movement) MovementKey {
	return MovementKey{MovementID: m.MovementID, EventType: m.EventType}
}

// MovementRepository define el puerto de persistencia para movimientos (append-only).
type MovementRepository interface {
	Repository[entity.Movement, MovementKey]
	// ListByMovementID devuelve todas las filas de un traslado lógico (normalmente 0, 1 o 2).
	ListByMovementID(ctx context.Context, movementID uuid.UUID) ([]*entity.Movement, error)
	// ListByWarehouse lista movimientos de una bodega, más recientes primero.
	ListByWarehouse(ctx context.Context, warehouseID uuid.UUID, limit, offset int) ([]*entity.Movement, error)
}
