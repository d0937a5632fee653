package ledger

import "github.com/jhoicas/stock-ledger/internal/domain/entity"

// Reconcile empareja la salida y la llegada de un mismo traslado.
// Devuelve nil si falta alguno de los dos lados.
func Reconcile(movements []*entity.Movement) *entity.MovementStats {
	var departure, arrival *entity.Movement
	for _, m := range movements {
		switch m.EventType {
		case entity.EventDeparture:
			departure = m
		case entity.EventArrival:
			arrival = m
		}
	}
	if departure == nil || arrival == nil {
		return nil
	}
	return &entity.MovementStats{
		SenderWarehouse:    departure.WarehouseID,
		RecipientWarehouse: arrival.WarehouseID,
		TimeDiff:           arrival.Timestamp.Sub(departure.Timestamp),
		DiffInQuantity:     arrival.Quantity - departure.Quantity,
	}
}
