package repository

import (
	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
type ProductRepository interface {
	Repository[entity.Product, uuid.UUID]
}
