package entity

import "github.com/google/uuid"

// Product solo tiene identidad; se crea al primer evento que lo referencia.
type Product struct {
	ID uuid.UUID
}
