package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/ports"
)

var _ ports.QueryCache = (*Store)(nil)

// versionNamespace guarda, por clave de consulta, un contador que cada invalidación incrementa.
const versionNamespace = "version"

// setIfVersion escribe KEYS[1] solo si la versión KEYS[2] sigue valiendo ARGV[1].
var setIfVersion = redis.NewScript(`
local current = redis.call('GET', KEYS[2])
if current == false then current = '0' end
if current ~= ARGV[1] then return 0 end
if tonumber(ARGV[3]) > 0 then
  redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
  redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

// Store caché de consultas sobre Redis. Las claves tienen la forma <prefix>:<namespace>:<parte>...
// tanto al escribir como al invalidar, así que una invalidación siempre apunta a la entrada de la consulta.
type Store struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
	log    zerolog.Logger
}

// NewStore construye la caché. rdb puede ser *redis.Client o cualquier Cmdable (p. ej. en tests).
func NewStore(rdb redis.Cmdable, prefix string, ttl time.Duration, log zerolog.Logger) *Store {
	return &Store{rdb: rdb, prefix: prefix, ttl: ttl, log: log}
}

// Key arma la clave completa para un namespace y sus partes.
func (s *Store) Key(namespace string, parts ...string) string {
	keyParts := make([]string, 0, len(parts)+2)
	if s.prefix != "" {
		keyParts = append(keyParts, s.prefix)
	}
	keyParts = append(keyParts, namespace)
	keyParts = append(keyParts, parts...)
	return strings.Join(keyParts, ":")
}

func (s *Store) versionKey(namespace string, parts ...string) string {
	return s.Key(versionNamespace+":"+namespace, parts...)
}

// InvalidateByKey incrementa la versión de la clave y borra la entrada en una sola transacción;
// found=false si no existía. Es idempotente.
func (s *Store) InvalidateByKey(ctx context.Context, namespace string, parts ...string) (bool, error) {
	if len(parts) == 0 {
		return false, fmt.Errorf("invalidate %s: sin partes de clave", namespace)
	}
	key, vkey := s.Key(namespace, parts...), s.versionKey(namespace, parts...)

	var del *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, vkey)
		if s.ttl > 0 {
			pipe.Expire(ctx, vkey, 10*s.ttl)
		}
		del = pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("del %s: %w", key, err)
	}
	deleted := del.Val()
	if deleted > 0 {
		s.log.Debug().Str("key", key).Msg("caché invalidada")
	} else {
		s.log.Debug().Str("key", key).Msg("clave no encontrada en caché")
	}
	return deleted > 0, nil
}

// GetJSON lee y decodifica la entrada en dst. found=false si no existe.
func (s *Store) GetJSON(ctx context.Context, dst any, namespace string, parts ...string) (bool, error) {
	key := s.Key(namespace, parts...)
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Version devuelve la versión vigente de la clave; 0 si nunca se invalidó.
func (s *Store) Version(ctx context.Context, namespace string, parts ...string) (int64, error) {
	vkey := s.versionKey(namespace, parts...)
	v, err := s.rdb.Get(ctx, vkey).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("get %s: %w", vkey, err)
	}
	return v, nil
}

// SetJSONIfVersion guarda value con el TTL configurado solo si nadie invalidó la clave desde
// que se leyó version. stored=false indica que el valor quedó obsoleto y no se escribió.
func (s *Store) SetJSONIfVersion(ctx context.Context, value any, version int64, namespace string, parts ...string) (bool, error) {
	key, vkey := s.Key(namespace, parts...), s.versionKey(namespace, parts...)
	raw, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("encode %s: %w", key, err)
	}
	n, err := setIfVersion.Run(ctx, s.rdb, []string{key, vkey},
		strconv.FormatInt(version, 10), raw, s.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("set %s: %w", key, err)
	}
	if n == 0 {
		s.log.Debug().Str("key", key).Int64("version", version).Msg("valor obsoleto, no se cachea")
	}
	return n == 1, nil
}
