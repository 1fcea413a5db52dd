package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"resume-builder/internal/shared/telemetry"
)

var errUnavailable = errors.New("redis unavailable")

// Redis is a JSON cache that degrades to a no-op when Redis is not reachable.
type Redis struct {
	client     *redis.Client
	defaultTTL time.Duration

	warnedUnavailable atomic.Bool
}

// NewRedis connects to addr. An empty addr or a failed ping yields a bypassed cache.
func NewRedis(ctx context.Context, addr, password string, defaultTTL time.Duration) *Redis {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return &Redis{defaultTTL: defaultTTL}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		telemetry.Warn("cache.unavailable", map[string]any{"addr": addr, "error": err})
		_ = client.Close()
		return &Redis{defaultTTL: defaultTTL}
	}
	telemetry.Info("cache.connected", map[string]any{"addr": addr})
	return NewWithClient(client, defaultTTL)
}

// NewWithClient wraps an existing client without pinging it.
func NewWithClient(client *redis.Client, defaultTTL time.Duration) *Redis {
	if defaultTTL <= 0 {
		defaultTTL = time.Minute
	}
	return &Redis{client: client, defaultTTL: defaultTTL}
}

// Enabled reports whether a client is configured.
func (r *Redis) Enabled() bool {
	return r != nil && r.client != nil
}

func (r *Redis) warnUnavailableOnce(err error) {
	if r.warnedUnavailable.CompareAndSwap(false, true) {
		telemetry.Warn("cache.error", map[string]any{"error": err})
	}
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if !r.Enabled() {
		return errUnavailable
	}
	return r.client.Ping(ctx).Err()
}

// GetJSON decodes the cached value into out and reports whether the key was present.
func (r *Redis) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	if !r.Enabled() {
		return false, nil
	}
	b, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		r.warnUnavailableOnce(err)
		return false, err
	}
	if len(b) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores value under key. A non-positive ttl uses the default.
func (r *Redis) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !r.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key, b, ttl).Err(); err != nil {
		r.warnUnavailableOnce(err)
		return err
	}
	return nil
}

// SetJSONNX stores value only when key is absent and reports whether it was written.
func (r *Redis) SetJSONNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if !r.Enabled() {
		return false, nil
	}
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	b, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	ok, err := r.client.SetNX(ctx, key, b, ttl).Result()
	if err != nil {
		r.warnUnavailableOnce(err)
		return false, err
	}
	return ok, nil
}

// Delete removes key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if !r.Enabled() {
		return nil
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.warnUnavailableOnce(err)
		return err
	}
	return nil
}

// Close releases the client.
func (r *Redis) Close() error {
	if !r.Enabled() {
		return nil
	}
	return r.client.Close()
}
