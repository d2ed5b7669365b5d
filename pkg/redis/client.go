// Package redis wraps the redis connection helpers the relay needs: a pooled
// client plus the webhook-delivery idempotency guard.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/conciergelabs/checkout-concierge/pkg/config"
	"github.com/conciergelabs/checkout-concierge/pkg/logger"
)

const (
	keyNamespace  = "concierge"
	webhookPrefix = "webhook"
)

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	Get(context.Context, string) *redis.StringCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// Client wraps the redis connection.
type Client struct {
	store cmdable
	raw   *redis.Client
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

// New bootstraps a redis client with pooling/timeouts and verifies connectivity.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{store: raw, raw: raw}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout
	return opts, nil
}

// Ping verifies the connection is healthy.
func (c *Client) Ping(ctx context.Context) error {
	return c.store.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

// WebhookKey namespaces a delivery id for the idempotency guard.
func (c *Client) WebhookKey(deliveryID string) string {
	return strings.Join([]string{keyNamespace, webhookPrefix, deliveryID}, ":")
}

// SetNX stores a value only when the key is absent.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	return c.store.SetNX(ctx, key, value, ttl).Result()
}

// Del removes keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	return c.store.Del(ctx, keys...).Err()
}

// DeliveryGuard deduplicates webhook deliveries: the vendor retries, and a
// retried delivery must not be published into a session stream twice.
type DeliveryGuard struct {
	client *Client
	ttl    time.Duration
}

// NewDeliveryGuard builds a guard with the given dedup window.
func NewDeliveryGuard(client *Client, ttl time.Duration) *DeliveryGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DeliveryGuard{client: client, ttl: ttl}
}

// CheckAndMark returns true when the delivery was already processed. A fresh
// delivery is marked atomically.
func (g *DeliveryGuard) CheckAndMark(ctx context.Context, deliveryID string) (bool, error) {
	fresh, err := g.client.SetNX(ctx, g.client.WebhookKey(deliveryID), time.Now().Unix(), g.ttl)
	if err != nil {
		return false, fmt.Errorf("mark webhook delivery: %w", err)
	}
	return !fresh, nil
}

// Delete unmarks a delivery so a failed handler can be retried.
func (g *DeliveryGuard) Delete(ctx context.Context, deliveryID string) error {
	return g.client.Del(ctx, g.client.WebhookKey(deliveryID))
}
