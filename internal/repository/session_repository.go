package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/ebingo-service/internal/domain"
	"github.com/spec-kit/ebingo-service/internal/persistence"
)

// SessionRepository tracks issued, unexpired sessions per branch.
type SessionRepository interface {
	Track(ctx context.Context, session domain.Session) error
	Release(ctx context.Context, session domain.Session) error
	CountActive(ctx context.Context, branchID int64, now time.Time) (int64, error)
}

type sessionRepository struct {
	client *redis.Client
}

// NewSessionRepository returns a Redis-backed registry. Each branch owns a sorted
// set of session ids scored by expiry.
func NewSessionRepository(client *redis.Client) SessionRepository {
	return &sessionRepository{client: client}
}

func branchSessionsKey(branchID int64) string {
	return persistence.Key("branch", strconv.FormatInt(branchID, 10), "sessions")
}

func (r *sessionRepository) Track(ctx context.Context, session domain.Session) error {
	if r.client == nil || session.BranchID == nil {
		return nil
	}
	key := branchSessionsKey(*session.BranchID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(session.ExpiresAt.Unix()), Member: session.ID})
		pipe.ExpireAt(ctx, key, session.ExpiresAt)
		return nil
	})
	return err
}

func (r *sessionRepository) Release(ctx context.Context, session domain.Session) error {
	if r.client == nil || session.BranchID == nil {
		return nil
	}
	return r.client.ZRem(ctx, branchSessionsKey(*session.BranchID), session.ID).Err()
}

func (r *sessionRepository) CountActive(ctx context.Context, branchID int64, now time.Time) (int64, error) {
	if r.client == nil {
		return 0, nil
	}
	key := branchSessionsKey(branchID)
	var card *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(now.Unix(), 10))
		card = pipe.ZCard(ctx, key)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return card.Val(), nil
}
