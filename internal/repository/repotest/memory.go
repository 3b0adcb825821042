// Package repotest holds in-memory repositories for tests of the layers above.
package repotest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ebingo-service/internal/domain"
	"github.com/spec-kit/ebingo-service/internal/repository"
)

// Branches is an in-memory BranchRepository. Err, when set, fails every call.
type Branches struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]domain.Branch
	Err    error
	Reads  int
}

func NewBranches(branches ...domain.Branch) *Branches {
	b := &Branches{rows: make(map[int64]domain.Branch)}
	for _, branch := range branches {
		b.rows[branch.ID] = branch
		if branch.ID > b.nextID {
			b.nextID = branch.ID
		}
	}
	return b
}

func (b *Branches) Create(_ context.Context, branch *domain.Branch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return b.Err
	}
	b.nextID++
	branch.ID = b.nextID
	branch.CreatedAt = time.Now()
	branch.UpdatedAt = branch.CreatedAt
	b.rows[branch.ID] = *branch
	return nil
}

func (b *Branches) Update(_ context.Context, branch *domain.Branch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return b.Err
	}
	current, ok := b.rows[branch.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	current.Name, current.Address, current.Email = branch.Name, branch.Address, branch.Email
	current.UpdatedAt = time.Now()
	b.rows[branch.ID] = current
	branch.UpdatedAt = current.UpdatedAt
	return nil
}

func (b *Branches) UpdateSchedule(_ context.Context, id int64, opening, closing *time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return b.Err
	}
	current, ok := b.rows[id]
	if !ok {
		return pgx.ErrNoRows
	}
	current.OpeningTime, current.ClosingTime = opening, closing
	b.rows[id] = current
	return nil
}

func (b *Branches) GetByID(_ context.Context, id int64) (*domain.Branch, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Reads++
	if b.Err != nil {
		return nil, b.Err
	}
	branch, ok := b.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &branch, nil
}

func (b *Branches) List(_ context.Context) ([]domain.Branch, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return nil, b.Err
	}
	out := make([]domain.Branch, 0, len(b.rows))
	for _, branch := range b.rows {
		out = append(out, branch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (b *Branches) Delete(_ context.Context, id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return b.Err
	}
	if _, ok := b.rows[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(b.rows, id)
	return nil
}

// Users is an in-memory UserRepository.
type Users struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]domain.User
}

func NewUsers(users ...domain.User) *Users {
	u := &Users{rows: make(map[int64]domain.User)}
	for _, user := range users {
		u.rows[user.ID] = user
		if user.ID > u.nextID {
			u.nextID = user.ID
		}
	}
	return u
}

// ErrDuplicate mimics a unique violation on username.
var ErrDuplicate = errors.New("duplicate key value violates unique constraint")

func (u *Users) Create(_ context.Context, user *domain.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, existing := range u.rows {
		if strings.EqualFold(existing.Username, user.Username) {
			return ErrDuplicate
		}
	}
	u.nextID++
	user.ID = u.nextID
	user.CreatedAt = time.Now()
	u.rows[user.ID] = *user
	return nil
}

func (u *Users) GetByID(_ context.Context, id int64) (*domain.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (u *Users) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, user := range u.rows {
		if strings.EqualFold(user.Username, username) {
			found := user
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (u *Users) List(_ context.Context, branchID *int64) ([]domain.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := []domain.User{}
	for _, user := range u.rows {
		if branchID != nil && (user.BranchID == nil || *user.BranchID != *branchID) {
			continue
		}
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (u *Users) Update(_ context.Context, user *domain.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	existing, ok := u.rows[user.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	for id, other := range u.rows {
		if id != user.ID && strings.EqualFold(other.Username, user.Username) {
			return ErrDuplicate
		}
	}
	existing.Username = user.Username
	existing.Role = user.Role
	existing.BranchID = user.BranchID
	existing.UpdatedAt = time.Now()
	u.rows[user.ID] = existing
	user.UpdatedAt = existing.UpdatedAt
	return nil
}

func (u *Users) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	existing, ok := u.rows[id]
	if !ok {
		return pgx.ErrNoRows
	}
	existing.PasswordHash = passwordHash
	u.rows[id] = existing
	return nil
}

func (u *Users) Delete(_ context.Context, id int64) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.rows[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(u.rows, id)
	return nil
}

func (u *Users) CountByBranch(_ context.Context, branchID int64) (int64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	var n int64
	for _, user := range u.rows {
		if user.BranchID != nil && *user.BranchID == branchID {
			n++
		}
	}
	return n, nil
}

// Sessions is an in-memory SessionRepository.
type Sessions struct {
	mu   sync.Mutex
	rows map[string]domain.Session
}

func NewSessions() *Sessions {
	return &Sessions{rows: make(map[string]domain.Session)}
}

func (s *Sessions) Track(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.BranchID == nil {
		return nil
	}
	s.rows[session.ID] = session
	return nil
}

func (s *Sessions) Release(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, session.ID)
	return nil
}

func (s *Sessions) CountActive(_ context.Context, branchID int64, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, session := range s.rows {
		if session.BranchID != nil && *session.BranchID == branchID && session.ExpiresAt.After(now) {
			n++
		}
	}
	return n, nil
}

// ScheduleCache is an in-memory ScheduleCache that ignores TTLs.
type ScheduleCache struct {
	mu          sync.Mutex
	rows        map[int64]repository.CachedSchedule
	Invalidated []int64
}

func NewScheduleCache() *ScheduleCache {
	return &ScheduleCache{rows: make(map[int64]repository.CachedSchedule)}
}

func (c *ScheduleCache) Get(_ context.Context, branchID int64) (*repository.CachedSchedule, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sched, ok := c.rows[branchID]
	if !ok {
		return nil, repository.ErrCacheMiss
	}
	return &sched, nil
}

func (c *ScheduleCache) Set(_ context.Context, branchID int64, sched repository.CachedSchedule, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows[branchID] = sched
	return nil
}

func (c *ScheduleCache) Invalidate(_ context.Context, branchID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rows, branchID)
	c.Invalidated = append(c.Invalidated, branchID)
	return nil
}

// Members is an in-memory MemberRepository.
type Members struct {
	mu            sync.Mutex
	rows          map[int64]domain.Member
	Registrations map[string][]domain.MemberRegistration
}

func NewMembers(members ...domain.Member) *Members {
	m := &Members{rows: make(map[int64]domain.Member), Registrations: make(map[string][]domain.MemberRegistration)}
	for _, member := range members {
		m.rows[member.ID] = member
	}
	return m
}

func (m *Members) find(match func(domain.Member) bool) (*domain.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.rows))
	for id := range m.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if member := m.rows[id]; match(member) {
			return &member, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *Members) GetByID(_ context.Context, id int64) (*domain.Member, error) {
	return m.find(func(member domain.Member) bool { return member.ID == id })
}

func (m *Members) FindByCardNo(_ context.Context, cardNo string) (*domain.Member, error) {
	return m.find(func(member domain.Member) bool { return member.CardNo == cardNo })
}

func (m *Members) FindByIDNumber(_ context.Context, idNumber string) (*domain.Member, error) {
	return m.find(func(member domain.Member) bool { return member.IDNumber == idNumber })
}

func (m *Members) FindByName(_ context.Context, parts []string) (*domain.Member, error) {
	return m.find(func(member domain.Member) bool {
		if len(parts) == 2 {
			return strings.EqualFold(member.FirstName, parts[0]) && strings.EqualFold(member.LastName, parts[1])
		}
		return len(parts) == 3 &&
			strings.EqualFold(member.FirstName, parts[0]) &&
			strings.EqualFold(member.MiddleName, parts[1]) &&
			strings.EqualFold(member.LastName, parts[2])
	})
}

func (m *Members) ListRegistrations(_ context.Context, cardNo string) ([]domain.MemberRegistration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.MemberRegistration(nil), m.Registrations[cardNo]...), nil
}

func (m *Members) Ban(_ context.Context, id, branchID int64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.rows[id]
	if !ok || member.BranchID != branchID || member.Banned {
		return pgx.ErrNoRows
	}
	member.Banned, member.BanReason = true, reason
	m.rows[id] = member
	return nil
}

func (m *Members) Unban(_ context.Context, id, branchID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.rows[id]
	if !ok || member.BranchID != branchID {
		return pgx.ErrNoRows
	}
	member.Banned, member.BanReason = false, ""
	m.rows[id] = member
	return nil
}

func (m *Members) ListBanned(_ context.Context, branchID int64) ([]domain.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Member{}
	for _, member := range m.rows {
		if member.Banned && member.BranchID == branchID {
			out = append(out, member)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Visits is an in-memory VisitRepository.
type Visits struct {
	mu   sync.Mutex
	Rows []domain.Visit
}

func (v *Visits) Create(_ context.Context, visit *domain.Visit) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	visit.ID = int64(len(v.Rows) + 1)
	v.Rows = append(v.Rows, *visit)
	return nil
}

var (
	_ repository.BranchRepository  = (*Branches)(nil)
	_ repository.UserRepository    = (*Users)(nil)
	_ repository.SessionRepository = (*Sessions)(nil)
	_ repository.ScheduleCache     = (*ScheduleCache)(nil)
	_ repository.MemberRepository  = (*Members)(nil)
	_ repository.VisitRepository   = (*Visits)(nil)
)
