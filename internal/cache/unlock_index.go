package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// UnlockIndex is a ZSET of participant IDs scored by their next pending
// unlock time, so a sweep only loads programs that have something due
type UnlockIndex interface {
	Track(ctx context.Context, participantID string, at time.Time) error
	Untrack(ctx context.Context, participantID string) error
	Due(ctx context.Context, now time.Time, limit int) ([]string, error)
}

const unlockIndexKey = "unlock:due"

type unlockIndex struct {
	client *redis.Client
}

// NewUnlockIndex creates a new due-unlock index
func NewUnlockIndex(client *redis.Client) UnlockIndex {
	return &unlockIndex{client: client}
}

func (c *unlockIndex) Track(ctx context.Context, participantID string, at time.Time) error {
	return c.client.ZAdd(ctx, unlockIndexKey, redis.Z{
		Score:  float64(at.Unix()),
		Member: participantID,
	}).Err()
}

func (c *unlockIndex) Untrack(ctx context.Context, participantID string) error {
	return c.client.ZRem(ctx, unlockIndexKey, participantID).Err()
}

func (c *unlockIndex) Due(ctx context.Context, now time.Time, limit int) ([]string, error) {
	return c.client.ZRangeByScore(ctx, unlockIndexKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: int64(limit),
	}).Result()
}
