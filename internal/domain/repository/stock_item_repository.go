package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockKey clave compuesta de un StockItem.
type StockKey struct {
	WarehouseID uuid.UUID
	ProductID   uuid.UUID
}

// StockItemRepository define el puerto para consultar/actualizar stock por bodega+producto.
// Usado dentro de transacciones para garantizar consistencia.
type StockItemRepository interface {
	Repository[entity.StockItem, StockKey]
	// GetForUpdate obtiene la fila y la bloquea hasta el fin de la transacción (SELECT FOR UPDATE).
	// Devuelve nil, nil si no existe.
	GetForUpdate(ctx context.Context, key StockKey) (*entity.StockItem, error)
	// UpdateQuantity fija la cantidad de una fila existente.
	UpdateQuantity(ctx context.Context, item *entity.StockItem) error
}
