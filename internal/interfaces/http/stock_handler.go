package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
)

// StockQuerier consulta de stock por par bodega/producto.
type StockQuerier interface {
	GetStockQuantity(ctx context.Context, warehouseID, productID uuid.UUID) (*int, error)
}

// StockHandler maneja GET /api/warehouses/:warehouse_id/products/:product_id.
type StockHandler struct {
	svc StockQuerier
	log zerolog.Logger
}

// NewStockHandler construye el handler.
func NewStockHandler(svc StockQuerier, log zerolog.Logger) *StockHandler {
	return &StockHandler{svc: svc, log: log}
}

// GetQuantity godoc
// @Summary      Cantidad de un producto en una bodega
// @Tags         stock
// @Produce      json
// @Param        warehouse_id  path  string  true  "ID de la bodega"
// @Param        product_id    path  string  true  "ID del producto"
// @Success      200  {object}  dto.StockQuantityResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/warehouses/{warehouse_id}/products/{product_id} [get]
func (h *StockHandler) GetQuantity(c *fiber.Ctx) error {
	warehouseID, err := uuid.Parse(c.Params("warehouse_id"))
	if err != nil {
		return badRequest(c, "warehouse_id debe ser un UUID")
	}
	productID, err := uuid.Parse(c.Params("product_id"))
	if err != nil {
		return badRequest(c, "product_id debe ser un UUID")
	}
	qty, err := h.svc.GetStockQuantity(c.UserContext(), warehouseID, productID)
	if err != nil {
		return internalError(c, h.log, err)
	}
	return c.JSON(dto.StockQuantityResponse{ProductQuantity: qty})
}

// internalErrorMessage respuesta fija de los 500; el detalle queda solo en el log.
const internalErrorMessage = "error interno del servidor"

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: dto.CodeValidation, Message: msg})
}

func internalError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("consulta fallida")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: dto.CodeInternal, Message: internalErrorMessage})
}
