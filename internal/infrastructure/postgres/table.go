package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// table implementa FindByKey/Create/FindOrCreate para una entidad T con clave K.
// Cada repositorio concreto lo configura con su SQL y sus funciones de mapeo.
type table[T any, K comparable] struct {
	q Querier

	name       string
	selectSQL  string                       // SELECT <columnas> FROM <tabla>
	insertSQL  string                       // INSERT ... VALUES (...) sin ON CONFLICT
	conflict   string                       // columnas de la clave natural, p. ej. "(movement_id, event_type)"
	whereKey   string                       // condición sobre la clave con placeholders $1..$n
	keyArgs    func(K) []any                // argumentos de whereKey
	keyOf      func(*T) K                   // clave de una entidad
	insertArgs func(*T) []any               // argumentos de insertSQL
	scan       func(row pgx.Row) (*T, error) // escanea una fila de selectSQL
}

// FindByKey obtiene una fila por su clave; nil, nil si no existe.
func (t *table[T, K]) FindByKey(ctx context.Context, key K) (*T, error) {
	return t.findOne(ctx, t.selectSQL+" WHERE "+t.whereKey, t.keyArgs(key)...)
}

// Create inserta la entidad; una clave repetida devuelve domain.ErrDuplicate.
func (t *table[T, K]) Create(ctx context.Context, item *T) error {
	if _, err := t.q.Exec(ctx, t.insertSQL, t.insertArgs(item)...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert %s: %w", t.name, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert %s: %w", t.name, err)
	}
	return nil
}

// FindOrCreate inserta con ON CONFLICT DO NOTHING y luego lee la fila vigente.
// Llamadas concurrentes con la misma clave no fallan y nunca sobrescriben la fila existente.
func (t *table[T, K]) FindOrCreate(ctx context.Context, item *T) (*T, bool, error) {
	tag, err := t.q.Exec(ctx, t.insertSQL+" ON CONFLICT "+t.conflict+" DO NOTHING", t.insertArgs(item)...)
	if err != nil {
		return nil, false, fmt.Errorf("find or create %s: %w", t.name, err)
	}
	created := tag.RowsAffected() == 1

	current, err := t.FindByKey(ctx, t.keyOf(item))
	if err != nil {
		return nil, false, err
	}
	if current == nil {
		// Solo ocurre si otra transacción borró la fila entre el insert y la lectura.
		return nil, false, fmt.Errorf("find or create %s: %w", t.name, domain.ErrConflict)
	}
	return current, created, nil
}

func (t *table[T, K]) findOne(ctx context.Context, query string, args ...any) (*T, error) {
	item, err := t.scan(t.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", t.name, err)
	}
	return item, nil
}

func (t *table[T, K]) findMany(ctx context.Context, query string, args ...any) ([]*T, error) {
	rows, err := t.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.name, err)
	}
	defer rows.Close()
	var list []*T
	for rows.Next() {
		item, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		list = append(list, item)
	}
	return list, rows.Err()
}
