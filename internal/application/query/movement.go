package query

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/ports"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/ledger"
)

// MovementReader lecturas del ledger de movimientos.
type MovementReader interface {
	ListByMovementID(ctx context.Context, movementID uuid.UUID) ([]*entity.Movement, error)
	ListByWarehouse(ctx context.Context, warehouseID uuid.UUID, limit, offset int) ([]*entity.Movement, error)
}

// Reconciliation filas de un traslado y, si ambos lados existen, sus estadísticas.
type Reconciliation struct {
	Movements []*entity.Movement    `json:"movements"`
	Stats     *entity.MovementStats `json:"stats"`
}

// MovementQueryService conciliación y listado de movimientos.
type MovementQueryService struct {
	movements MovementReader
	cache     ports.QueryCache
	log       zerolog.Logger
}

// NewMovementQueryService cache puede ser nil.
func NewMovementQueryService(movements MovementReader, cache ports.QueryCache, log zerolog.Logger) *MovementQueryService {
	return &MovementQueryService{movements: movements, cache: cache, log: log}
}

// GetMovementReconciliation nunca falla por ausencia: sin filas devuelve lista vacía y Stats nil.
func (s *MovementQueryService) GetMovementReconciliation(ctx context.Context, movementID uuid.UUID) (*Reconciliation, error) {
	rec, err := readThrough(ctx, s.cache, s.log, func(ctx context.Context) (Reconciliation, error) {
		list, err := s.movements.ListByMovementID(ctx, movementID)
		if err != nil {
			return Reconciliation{}, fmt.Errorf("list movement %s: %w", movementID, err)
		}
		if list == nil {
			list = []*entity.Movement{}
		}
		return Reconciliation{Movements: list, Stats: ledger.Reconcile(list)}, nil
	}, ports.CacheNamespaceMovement, movementID.String())
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByWarehouse movimientos de una bodega, más recientes primero.
func (s *MovementQueryService) ListByWarehouse(ctx context.Context, warehouseID uuid.UUID, page dto.PageRequest) ([]*entity.Movement, error) {
	page.DefaultPage()
	list, err := s.movements.ListByWarehouse(ctx, warehouseID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list movements of %s: %w", warehouseID, err)
	}
	return list, nil
}
