package query

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/ports"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// StockReader lectura de StockItem por clave.
type StockReader interface {
	FindByKey(ctx context.Context, key repository.StockKey) (*entity.StockItem, error)
}

// StockQueryService consulta la cantidad vigente de un par bodega/producto.
type StockQueryService struct {
	stock StockReader
	cache ports.QueryCache
	log   zerolog.Logger
}

// NewStockQueryService cache puede ser nil.
func NewStockQueryService(stock StockReader, cache ports.QueryCache, log zerolog.Logger) *StockQueryService {
	return &StockQueryService{stock: stock, cache: cache, log: log}
}

// stockEntry valor cacheado; Quantity nil se cachea también (par nunca observado).
type stockEntry struct {
	Quantity *int `json:"quantity"`
}

// GetStockQuantity devuelve nil si el par nunca fue observado, distinto de 0.
func (s *StockQueryService) GetStockQuantity(ctx context.Context, warehouseID, productID uuid.UUID) (*int, error) {
	entry, err := readThrough(ctx, s.cache, s.log, func(ctx context.Context) (stockEntry, error) {
		item, err := s.stock.FindByKey(ctx, repository.StockKey{WarehouseID: warehouseID, ProductID: productID})
		if err != nil {
			return stockEntry{}, fmt.Errorf("get stock %s/%s: %w", warehouseID, productID, err)
		}
		if item == nil {
			return stockEntry{}, nil
		}
		qty := item.Quantity
		return stockEntry{Quantity: &qty}, nil
	}, ports.CacheNamespaceStock, warehouseID.String(), productID.String())
	if err != nil {
		return nil, err
	}
	return entry.Quantity, nil
}
