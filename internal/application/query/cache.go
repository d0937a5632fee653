// Package query contiene los servicios de lectura sobre el ledger (stock por par y
// conciliación de traslados), con caché read-through opcional.
package query

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/ports"
)

// readThrough intenta la caché y, si falla o no hay entrada, carga desde el store y guarda el
// resultado. La versión de la clave se lee antes de cargar: si el procesador invalida mientras
// tanto, el valor cargado ya es viejo y no se escribe. Los errores de caché solo se registran.
func readThrough[T any](ctx context.Context, c ports.QueryCache, log zerolog.Logger,
	load func(ctx context.Context) (T, error), namespace string, parts ...string) (T, error) {
	if c == nil {
		return load(ctx)
	}

	var cached T
	found, err := c.GetJSON(ctx, &cached, namespace, parts...)
	if err != nil {
		log.Warn().Err(err).Str("namespace", namespace).Strs("key", parts).Msg("lectura de caché fallida, se consulta la base")
	} else if found {
		return cached, nil
	}

	version, verr := c.Version(ctx, namespace, parts...)
	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	if verr != nil {
		log.Warn().Err(verr).Str("namespace", namespace).Strs("key", parts).Msg("versión de caché no disponible, no se guarda")
		return value, nil
	}
	if _, err := c.SetJSONIfVersion(ctx, value, version, namespace, parts...); err != nil {
		log.Warn().Err(err).Str("namespace", namespace).Strs("key", parts).Msg("no se pudo guardar en caché")
	}
	return value, nil
}
