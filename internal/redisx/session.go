package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-shop/internal/cart"
)

// Sessions hands out cart.SessionHandles stored in Redis. Every save pushes
// the expiry forward so an active visitor keeps their cart.
type Sessions struct {
	RDB redis.Cmdable
	TTL time.Duration
}

func (s *Sessions) Handle(sessionID string) cart.SessionHandle {
	return &sessionHandle{rdb: s.RDB, key: fmt.Sprintf(KeySessionCart, sessionID), ttl: s.TTL}
}

type sessionHandle struct {
	rdb redis.Cmdable
	key string
	ttl time.Duration
}

func (h *sessionHandle) Load(ctx context.Context) ([]byte, error) {
	b, err := h.rdb.Get(ctx, h.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return b, err
}

func (h *sessionHandle) Save(ctx context.Context, data []byte) error {
	return h.rdb.Set(ctx, h.key, data, h.ttl).Err()
}

func (h *sessionHandle) Delete(ctx context.Context) error {
	return h.rdb.Del(ctx, h.key).Err()
}
