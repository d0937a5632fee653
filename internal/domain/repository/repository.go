package repository

import "context"

// Repository operaciones comunes a las cuatro entidades del ledger, parametrizadas por
// entidad T y clave K en tiempo de compilación.
type Repository[T any, K comparable] interface {
	// FindByKey devuelve nil, nil si no existe.
	FindByKey(ctx context.Context, key K) (*T, error)
	// Create inserta; devuelve domain.ErrDuplicate si la clave ya existe.
	Create(ctx context.Context, item *T) error
	// FindOrCreate inserta si no existe (sin sobrescribir) y devuelve la fila vigente.
	// created indica si la fila fue creada por esta llamada.
	FindOrCreate(ctx context.Context, item *T) (current *T, created bool, err error)
}
