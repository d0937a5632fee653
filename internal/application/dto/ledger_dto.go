package dto

import (
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockQuantityResponse respuesta de GET /api/warehouses/:warehouse_id/products/:product_id.
// ProductQuantity es null si el par nunca se observó (distinto de 0).
type StockQuantityResponse struct {
	ProductQuantity *int `json:"product_quantity"`
}

// MovementResponse una fila del ledger de movimientos.
type MovementResponse struct {
	ID          int64     `json:"id"`
	MovementID  string    `json:"movement_id"`
	WarehouseID *string   `json:"warehouse_id"`
	ProductID   string    `json:"product_id"`
	Quantity    int       `json:"quantity"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	CreatedAt   time.Time `json:"created_at"`
}

// MovementStatsResponse estadísticas de conciliación; TimeDiff en formato de duración de Go ("26h0m0s").
type MovementStatsResponse struct {
	SenderWarehouse    *string `json:"sender_warehouse"`
	RecipientWarehouse *string `json:"recipient_warehouse"`
	TimeDiff           string  `json:"time_diff"`
	DiffInQuantity     int     `json:"diff_in_quantity"`
}

// ReconciliationResponse respuesta de GET /api/movements/:movement_id.
type ReconciliationResponse struct {
	Movements []MovementResponse     `json:"movements"`
	Stats     *MovementStatsResponse `json:"stats"`
}

// MovementListRequest query de GET /api/movements. Limit y Offset no positivos se normalizan en Page.
type MovementListRequest struct {
	WarehouseID string `query:"warehouse_id" validate:"required"`
	Limit       int    `query:"limit" validate:"max=100"`
	Offset      int    `query:"offset"`
}

// Page aplica los valores por defecto de paginación y los copia a la petición.
func (r *MovementListRequest) Page() PageRequest {
	p := PageRequest{Limit: r.Limit, Offset: r.Offset}
	p.DefaultPage()
	r.Limit, r.Offset = p.Limit, p.Offset
	return p
}

// MovementListResponse listado paginado de movimientos.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// ToMovementResponse mapea la entidad a su DTO.
func ToMovementResponse(m *entity.Movement) MovementResponse {
	out := MovementResponse{
		ID:         m.ID,
		MovementID: m.MovementID.String(),
		ProductID:  m.ProductID.String(),
		Quantity:   m.Quantity,
		EventType:  string(m.EventType),
		Timestamp:  m.Timestamp,
		CreatedAt:  m.CreatedAt,
	}
	if m.WarehouseID != nil {
		s := m.WarehouseID.String()
		out.WarehouseID = &s
	}
	return out
}

// ToMovementResponses mapea una lista; nunca devuelve nil.
func ToMovementResponses(list []*entity.Movement) []MovementResponse {
	out := make([]MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, ToMovementResponse(m))
	}
	return out
}

// ToMovementStatsResponse nil si no hay estadísticas.
func ToMovementStatsResponse(st *entity.MovementStats) *MovementStatsResponse {
	if st == nil {
		return nil
	}
	out := &MovementStatsResponse{
		TimeDiff:       st.TimeDiff.String(),
		DiffInQuantity: st.DiffInQuantity,
	}
	if st.SenderWarehouse != nil {
		s := st.SenderWarehouse.String()
		out.SenderWarehouse = &s
	}
	if st.RecipientWarehouse != nil {
		s := st.RecipientWarehouse.String()
		out.RecipientWarehouse = &s
	}
	return out
}
