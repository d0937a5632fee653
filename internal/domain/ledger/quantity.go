package ledger

import "github.com/jhoicas/stock-ledger/internal/domain/entity"

// ApplyDelta calcula la nueva cantidad de un StockItem existente (servicio de dominio).
// arrival suma; departure resta y trunca en cero. clamped indica que la salida superaba el stock.
func ApplyDelta(current, quantity int, eventType entity.EventType) (next int, clamped bool) {
	switch eventType {
	case entity.EventArrival:
		return current + quantity, false
	case entity.EventDeparture:
		next = current - quantity
		if next < 0 {
			return 0, true
		}
		return next, false
	}
	return current, false
}

// InitialQuantity cantidad con la que se crea un StockItem inexistente.
// Una salida desde stock vacío crea la fila en cero y se reporta con emptyDeparture.
func InitialQuantity(quantity int, eventType entity.EventType) (initial int, emptyDeparture bool) {
	if eventType == entity.EventArrival {
		return quantity, false
	}
	return 0, eventType == entity.EventDeparture && quantity > 0
}
