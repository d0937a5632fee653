package repository

import (
	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// WarehouseRepository define el puerto de persistencia para Warehouse (DIP).
type WarehouseRepository interface {
	Repository[entity.Warehouse, uuid.UUID]
}
