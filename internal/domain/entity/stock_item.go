package entity

import (
	"time"

	"github.com/google/uuid"
)

// StockItem es el stock actual de un producto en una bodega (fuente de verdad del ledger).
// Quantity nunca es negativa.
type StockItem struct {
	WarehouseID uuid.UUID
	ProductID   uuid.UUID
	Quantity    int
	UpdatedAt   time.Time
}
