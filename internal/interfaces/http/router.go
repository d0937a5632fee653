package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Stock     StockQuerier
	Movements MovementQuerier
	Health    map[string]HealthCheck // nombre -> verificación (postgres, redis...)
	Service   string
	Log       zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", NewHealthHandler(deps.Service, deps.Health).Check)

	api := app.Group("/api")

	stockHandler := NewStockHandler(deps.Stock, deps.Log)
	api.Get("/warehouses/:warehouse_id/products/:product_id", stockHandler.GetQuantity)

	movementHandler := NewMovementHandler(deps.Movements, deps.Log)
	api.Get("/movements", movementHandler.List)
	api.Get("/movements/:movement_id", movementHandler.GetReconciliation)
}
