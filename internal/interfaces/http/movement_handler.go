package http

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/query"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

var validate = validator.New()

// MovementQuerier conciliación y listado de movimientos.
type MovementQuerier interface {
	GetMovementReconciliation(ctx context.Context, movementID uuid.UUID) (*query.Reconciliation, error)
	ListByWarehouse(ctx context.Context, warehouseID uuid.UUID, page dto.PageRequest) ([]*entity.Movement, error)
}

// MovementHandler maneja las rutas /api/movements.
type MovementHandler struct {
	svc MovementQuerier
	log zerolog.Logger
}

// NewMovementHandler construye el handler.
func NewMovementHandler(svc MovementQuerier, log zerolog.Logger) *MovementHandler {
	return &MovementHandler{svc: svc, log: log}
}

// GetReconciliation godoc
// @Summary      Conciliación de un traslado
// @Tags         movements
// @Produce      json
// @Param        movement_id  path  string  true  "ID del traslado"
// @Success      200  {object}  dto.ReconciliationResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/movements/{movement_id} [get]
func (h *MovementHandler) GetReconciliation(c *fiber.Ctx) error {
	movementID, err := uuid.Parse(c.Params("movement_id"))
	if err != nil {
		return badRequest(c, "movement_id debe ser un UUID")
	}
	rec, err := h.svc.GetMovementReconciliation(c.UserContext(), movementID)
	if err != nil {
		return internalError(c, h.log, err)
	}
	return c.JSON(dto.ReconciliationResponse{
		Movements: dto.ToMovementResponses(rec.Movements),
		Stats:     dto.ToMovementStatsResponse(rec.Stats),
	})
}

// List godoc
// @Summary      Listar movimientos de una bodega
// @Tags         movements
// @Produce      json
// @Param        warehouse_id  query  string  true   "ID de la bodega"
// @Param        limit         query  int     false  "Límite"  default(20)
// @Param        offset        query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/movements [get]
func (h *MovementHandler) List(c *fiber.Ctx) error {
	var in dto.MovementListRequest
	if err := c.QueryParser(&in); err != nil {
		return badRequest(c, "parámetros inválidos")
	}
	if err := validate.Struct(&in); err != nil {
		return badRequest(c, describeValidation(err))
	}
	page := in.Page()
	warehouseID, err := uuid.Parse(in.WarehouseID)
	if err != nil {
		return badRequest(c, "warehouse_id debe ser un UUID")
	}

	list, err := h.svc.ListByWarehouse(c.UserContext(), warehouseID, page)
	if err != nil {
		return internalError(c, h.log, err)
	}
	return c.JSON(dto.MovementListResponse{
		Items: dto.ToMovementResponses(list),
		Page:  dto.NewPageResponse(page, len(list)),
	})
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, strings.ToLower(fe.Field())+" ("+fe.Tag()+")")
	}
	return "campos inválidos: " + strings.Join(parts, ", ")
}
