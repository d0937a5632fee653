package ports

import "context"

// Namespaces de caché de las consultas derivadas del ledger.
// Las claves de stock usan (warehouse_id, product_id); las de movimiento, movement_id.
const (
	CacheNamespaceStock    = "stock"
	CacheNamespaceMovement = "movement"
)

// CacheInvalidator define el puerto de salida para invalidar consultas cacheadas tras
// una mutación del ledger. Debe ser idempotente: invalidar una clave inexistente devuelve
// found=false sin error.
type CacheInvalidator interface {
	InvalidateByKey(ctx context.Context, namespace string, keyParts ...string) (found bool, err error)
}

// QueryCache caché de lectura usada por los servicios de consulta (read-through).
// Cada clave tiene una versión que InvalidateByKey incrementa; SetJSONIfVersion solo escribe
// si la versión sigue siendo la leída antes de consultar el ledger.
type QueryCache interface {
	CacheInvalidator
	GetJSON(ctx context.Context, dst any, namespace string, keyParts ...string) (found bool, err error)
	Version(ctx context.Context, namespace string, keyParts ...string) (int64, error)
	SetJSONIfVersion(ctx context.Context, value any, version int64, namespace string, keyParts ...string) (stored bool, err error)
}
