package entity

import (
	"time"

	"github.com/google/uuid"
)

// EventType lado observado de un traslado físico.
type EventType string

// Tipos de evento de movimiento.
const (
	EventArrival   EventType = "arrival"   // llegada a la bodega
	EventDeparture EventType = "departure" // salida de la bodega
)

// Valid indica si el tipo es uno de los soportados.
func (t EventType) Valid() bool {
	return t == EventArrival || t == EventDeparture
}

// Movement registro append-only de un evento. La clave natural (MovementID, EventType) es única
// y es la clave de idempotencia de todo el pipeline. Un traslado lógico normalmente tiene dos
// filas: una departure y una arrival.
type Movement struct {
	ID          int64
	MovementID  uuid.UUID
	WarehouseID *uuid.UUID // opcional
	ProductID   uuid.UUID
	Quantity    int
	EventType   EventType
	Timestamp   time.Time
	CreatedAt   time.Time
}

// MovementStats estadística de un traslado con ambos lados registrados.
type MovementStats struct {
	SenderWarehouse    *uuid.UUID
	RecipientWarehouse *uuid.UUID
	TimeDiff           time.Duration
	DiffInQuantity     int
}
