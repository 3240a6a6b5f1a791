package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/academyportal/internal/model"
	"github.com/redis/go-redis/v9"
)

// recipientsKey — JSON-список активных пользователей.
const recipientsKey = "recipients:active"

type Client struct {
	cli *redis.Client
}

func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

// GetRecipients возвращает закешированный список. Нет ключа — (nil, nil).
func (c *Client) GetRecipients(ctx context.Context) ([]model.Recipient, error) {
	raw, err := c.cli.Get(ctx, recipientsKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get recipients: %w", err)
	}
	var list []model.Recipient
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("redis decode recipients: %w", err)
	}
	return list, nil
}

// SetRecipients сохраняет список с TTL из cache.ttl_minutes.
func (c *Client) SetRecipients(ctx context.Context, list []model.Recipient, ttl time.Duration) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("redis encode recipients: %w", err)
	}
	return c.cli.Set(ctx, recipientsKey, raw, ttl).Err()
}

// InvalidateRecipients сбрасывает кеш (после изменения состава пользователей).
func (c *Client) InvalidateRecipients(ctx context.Context) error {
	return c.cli.Del(ctx, recipientsKey).Err()
}
