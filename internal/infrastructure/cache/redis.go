// Package cache guarda respuestas de POST para repetirlas ante un Idempotency-Key ya visto.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/inventario-ledger-api/pkg/config"
)

// Response respuesta HTTP confirmada que se repite tal cual.
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Pending indica una reserva sin respuesta todavía.
func (r Response) Pending() bool { return r.Status == 0 }

// Scope identifica una operación repetible: quién la pide, sobre qué ruta y con qué clave.
type Scope struct {
	PrincipalID string
	Method      string
	Route       string
	Key         string
}

// IdempotencyStore reserva claves y guarda la respuesta confirmada de cada una.
//
// Reserve devuelve (nil, true) si el llamador tomó la clave y debe ejecutar la petición,
// (resp, false) si ya hay una respuesta guardada y (nil, false) si otra petición con la
// misma clave sigue en curso.
type IdempotencyStore interface {
	Reserve(ctx context.Context, scope Scope) (*Response, bool, error)
	Remember(ctx context.Context, scope Scope, resp Response) error
	Release(ctx context.Context, scope Scope) error
}

// pendingTTL vence una reserva abandonada (proceso caído a mitad de la petición).
const pendingTTL = 30 * time.Second

// NewRedisClient abre el cliente y verifica la conexión con PING.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// RedisIdempotencyStore implementación sobre Redis con TTL.
type RedisIdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisIdempotencyStore construye el almacén. ttl <= 0 usa 24h.
func NewRedisIdempotencyStore(rdb *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisIdempotencyStore{rdb: rdb, ttl: ttl}
}

// Reserve toma la clave con SET NX y un marcador pendiente (status 0).
func (s *RedisIdempotencyStore) Reserve(ctx context.Context, scope Scope) (*Response, bool, error) {
	key := idempotencyKey(scope)
	placeholder, err := json.Marshal(Response{})
	if err != nil {
		return nil, false, fmt.Errorf("idempotency encode: %w", err)
	}
	ok, err := s.rdb.SetNX(ctx, key, placeholder, pendingTTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("idempotency reserve: %w", err)
	}
	if ok {
		return nil, true, nil
	}
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// la reserva venció entre SETNX y GET: se trata como en curso
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("idempotency lookup: %w", err)
	}
	resp, err := decodeResponse(raw)
	if err != nil {
		return nil, false, err
	}
	if resp.Pending() {
		return nil, false, nil
	}
	return resp, false, nil
}

// Remember reemplaza la reserva por la respuesta confirmada, con el TTL completo.
func (s *RedisIdempotencyStore) Remember(ctx context.Context, scope Scope, resp Response) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("idempotency encode: %w", err)
	}
	if err := s.rdb.Set(ctx, idempotencyKey(scope), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency remember: %w", err)
	}
	return nil
}

// Release libera la reserva para que un reintento pueda ejecutarse.
func (s *RedisIdempotencyStore) Release(ctx context.Context, scope Scope) error {
	if err := s.rdb.Del(ctx, idempotencyKey(scope)).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}

// NopIdempotencyStore deshabilita la repetición (REDIS_ADDR vacío).
type NopIdempotencyStore struct{}

func (NopIdempotencyStore) Reserve(context.Context, Scope) (*Response, bool, error) {
	return nil, true, nil
}

func (NopIdempotencyStore) Remember(context.Context, Scope, Response) error { return nil }

func (NopIdempotencyStore) Release(context.Context, Scope) error { return nil }

// idempotencyKey: idem:{principal}:{método}:{ruta}:{clave}
func idempotencyKey(s Scope) string {
	return fmt.Sprintf("idem:%s:%s:%s:%s", s.PrincipalID, s.Method, s.Route, s.Key)
}

func decodeResponse(raw []byte) (*Response, error) {
	var r Response
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("idempotency decode: %w", err)
	}
	return &r, nil
}
