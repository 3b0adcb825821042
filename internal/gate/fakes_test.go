package gate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ebingo-service/internal/auth"
	"github.com/spec-kit/ebingo-service/internal/clock"
	"github.com/spec-kit/ebingo-service/internal/domain"
	"github.com/spec-kit/ebingo-service/internal/schedule"
)

var venue = time.FixedZone("UTC+8", 8*60*60)

func venueAt(day, hour, minute, second int) time.Time {
	return time.Date(2024, 5, day, hour, minute, second, 0, venue)
}

// fakeSource evaluates a fixed window against a manual clock.
type fakeSource struct {
	mu       sync.Mutex
	clock    *clock.Manual
	opening  *schedule.TimeOfDay
	closing  *schedule.TimeOfDay
	failNext int
	err      error
	block    chan struct{}
	calls    atomic.Int32
}

func newFakeSource(c *clock.Manual, opening, closing *schedule.TimeOfDay) *fakeSource {
	return &fakeSource{clock: c, opening: opening, closing: closing}
}

func (f *fakeSource) Window(ctx context.Context, _ int64) (schedule.Decision, error) {
	f.calls.Add(1)
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return schedule.Decision{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return schedule.Decision{}, f.err
	}
	if f.failNext > 0 {
		f.failNext--
		return schedule.Decision{}, schedule.ErrUnavailable
	}
	return schedule.Evaluate(f.clock.Now(), f.opening, f.closing), nil
}

func (f *fakeSource) fail(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = n
}

// failWith makes every later fetch return err.
func (f *fakeSource) failWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeSource) blockWith(ch chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.block = ch
}

func tod(hour, minute int) *schedule.TimeOfDay {
	return &schedule.TimeOfDay{Hour: hour, Minute: minute}
}

func tokenFor(t *testing.T, role domain.Role, branchID *int64, expires time.Time) string {
	t.Helper()
	claims := auth.Claims{
		UserID:   42,
		Role:     role,
		BranchID: branchID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "session-" + string(role),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func branch(id int64) *int64 {
	return &id
}

var farFuture = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
