package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/ebingo-service/internal/persistence"
)

// ErrCacheMiss reports that no cached schedule exists for a branch.
var ErrCacheMiss = errors.New("schedule cache miss")

// CachedSchedule is the cached copy of a branch's two schedule columns.
type CachedSchedule struct {
	OpeningTime *time.Time `json:"opening_time"`
	ClosingTime *time.Time `json:"closing_time"`
}

// ScheduleCache is a read-through cache in front of the branch table.
type ScheduleCache interface {
	Get(ctx context.Context, branchID int64) (*CachedSchedule, error)
	Set(ctx context.Context, branchID int64, sched CachedSchedule, ttl time.Duration) error
	Invalidate(ctx context.Context, branchID int64) error
}

type redisScheduleCache struct {
	client *redis.Client
}

// NewScheduleCache returns a Redis-backed cache; a nil client always misses.
func NewScheduleCache(client *redis.Client) ScheduleCache {
	return &redisScheduleCache{client: client}
}

func scheduleKey(branchID int64) string {
	return persistence.Key("branch", strconv.FormatInt(branchID, 10), "schedule")
}

func (c *redisScheduleCache) Get(ctx context.Context, branchID int64) (*CachedSchedule, error) {
	if c.client == nil {
		return nil, ErrCacheMiss
	}
	raw, err := c.client.Get(ctx, scheduleKey(branchID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	var sched CachedSchedule
	if err := json.Unmarshal(raw, &sched); err != nil {
		return nil, err
	}
	return &sched, nil
}

func (c *redisScheduleCache) Set(ctx context.Context, branchID int64, sched CachedSchedule, ttl time.Duration) error {
	if c.client == nil || ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(sched)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, scheduleKey(branchID), raw, ttl).Err()
}

func (c *redisScheduleCache) Invalidate(ctx context.Context, branchID int64) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, scheduleKey(branchID)).Err()
}
