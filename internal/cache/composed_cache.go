package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"carepath/internal/model"

	"github.com/redis/go-redis/v9"
)

// ComposedCache holds composed day configurations, one hash per day keyed
// by language
type ComposedCache interface {
	Get(ctx context.Context, day int, language string) (*model.ComposedDay, error)
	Set(ctx context.Context, composed *model.ComposedDay) error
	Invalidate(ctx context.Context, day int) error
}

type composedCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewComposedCache creates a new composed day cache
func NewComposedCache(client *redis.Client) ComposedCache {
	return &composedCache{
		client: client,
		ttl:    6 * time.Hour, // Also dropped on every edit
	}
}

func (c *composedCache) key(day int) string {
	return fmt.Sprintf("day:%d:composed", day)
}

func (c *composedCache) Get(ctx context.Context, day int, language string) (*model.ComposedDay, error) {
	data, err := c.client.HGet(ctx, c.key(day), language).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var composed model.ComposedDay
	if err := json.Unmarshal([]byte(data), &composed); err != nil {
		return nil, err
	}
	return &composed, nil
}

func (c *composedCache) Set(ctx context.Context, composed *model.ComposedDay) error {
	data, err := json.Marshal(composed)
	if err != nil {
		return err
	}
	key := c.key(composed.DayNumber)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, composed.Language, data)
	pipe.Expire(ctx, key, c.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (c *composedCache) Invalidate(ctx context.Context, day int) error {
	return c.client.Del(ctx, c.key(day)).Err()
}
