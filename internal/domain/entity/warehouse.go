package entity

import "github.com/google/uuid"

// Warehouse representa una bodega conocida por el ledger. Se crea al primer evento que la
// referencia y no se modifica después; Code es el identificador externo (campo source del evento).
type Warehouse struct {
	ID   uuid.UUID
	Code string
}
