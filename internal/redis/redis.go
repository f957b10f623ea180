package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"socialmedia/internal/config"
	"socialmedia/internal/models"

	redis "github.com/redis/go-redis/v9"
)

const defaultChannel = "social:messages"

// Client wraps go-redis client to centralize configuration.
type Client struct {
	inner *redis.Client
}

// NewRedisClient creates the redis client from app config and pings it.
func NewRedisClient(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	host := cfg.Redis.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Redis.Port
	if port == 0 {
		port = 6379
	}

	opts := &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &Client{inner: client}, nil
}

// Publish JSON-encodes payload onto channel.
func (c *Client) Publish(ctx context.Context, channel string, payload any) error {
	if c == nil || c.inner == nil {
		return errors.New("redis client not initialized")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	return c.inner.Publish(ctx, channel, data).Err()
}

// Close closes client.
func (c *Client) Close() error {
	if c == nil || c.inner == nil {
		return nil
	}
	return c.inner.Close()
}

// Raw exposes underlying go-redis client.
func (c *Client) Raw() *redis.Client {
	if c == nil {
		return nil
	}
	return c.inner
}

// EventPublisher broadcasts message events on a pub/sub channel.
type EventPublisher struct {
	client  *Client
	channel string
}

func NewEventPublisher(client *Client, channel string) *EventPublisher {
	if channel == "" {
		channel = defaultChannel
	}
	return &EventPublisher{client: client, channel: channel}
}

// Notify publishes evt. It satisfies message.Notifier.
func (p *EventPublisher) Notify(ctx context.Context, evt models.MessageEvent) error {
	if err := p.client.Publish(ctx, p.channel, evt); err != nil {
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}
	return nil
}

func (p *EventPublisher) Channel() string {
	return p.channel
}
