package usecase_test

import (
	"context"
	"sync"
	"time"

	"career-coach-backend/internal/domain"
)

// fakeStore is an in-memory ProfileRepository with transactional staging.
// Inserts of the same industry from concurrent transactions block on the
// first writer the way a unique index does.
type fakeStore struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile         // by id
	insights map[string]*domain.IndustryInsight // by industry
	pending  map[string]*pendingInsight

	getErr      error
	updateErr   error
	updateDelay time.Duration
	// beforeCreate runs ahead of every insert attempt, outside the lock
	beforeCreate func(industry string)

	txCount       int
	commits       int
	insightWrites int
	profileWrites int
}

type pendingInsight struct {
	owner *fakeTx
	done  chan struct{}
}

func newFakeStore(profiles ...*domain.Profile) *fakeStore {
	s := &fakeStore{
		profiles: map[string]*domain.Profile{},
		insights: map[string]*domain.IndustryInsight{},
		pending:  map[string]*pendingInsight{},
	}
	for _, p := range profiles {
		s.profiles[p.ID] = cloneProfile(p)
	}
	return s
}

func (s *fakeStore) GetByClerkUserID(ctx context.Context, clerkUserID string) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	for _, p := range s.profiles {
		if p.ClerkUserID == clerkUserID {
			return cloneProfile(p), nil
		}
	}
	return nil, nil
}

func (s *fakeStore) WithinTx(ctx context.Context, timeout time.Duration, fn func(ctx context.Context, tx domain.ProfileTx) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.mu.Lock()
	s.txCount++
	s.mu.Unlock()

	tx := &fakeTx{store: s, insights: map[string]*domain.IndustryInsight{}, profiles: map[string]*domain.Profile{}}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	if err := ctx.Err(); err != nil {
		tx.rollback()
		return &domain.StoreError{Op: "commit transaction", Cause: domain.CauseTimeout, Err: err}
	}
	tx.commit()
	return nil
}

func (s *fakeStore) insight(industry string) *domain.IndustryInsight {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insights[industry]
}

func (s *fakeStore) insightCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.insights)
}

func (s *fakeStore) profile(id string) *domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneProfile(s.profiles[id])
}

// seedInsight commits an insight outside any transaction
func (s *fakeStore) seedInsight(in *domain.IndustryInsight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insights[in.Industry] = in
}

type fakeTx struct {
	store    *fakeStore
	insights map[string]*domain.IndustryInsight
	profiles map[string]*domain.Profile
}

func (t *fakeTx) FindIndustryInsight(ctx context.Context, industry string) (*domain.IndustryInsight, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.StoreError{Op: "find industry insight", Cause: domain.CauseTimeout, Err: err}
	}
	if in, ok := t.insights[industry]; ok {
		return in, nil
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return t.store.insights[industry], nil
}

func (t *fakeTx) CreateIndustryInsight(ctx context.Context, in *domain.IndustryInsight) (bool, error) {
	if hook := t.store.beforeCreate; hook != nil {
		hook(in.Industry)
	}

	for {
		if err := ctx.Err(); err != nil {
			return false, &domain.StoreError{Op: "create industry insight", Cause: domain.CauseTimeout, Err: err}
		}

		s := t.store
		s.mu.Lock()
		if _, exists := s.insights[in.Industry]; exists {
			s.mu.Unlock()
			return false, nil
		}
		if p, ok := s.pending[in.Industry]; ok && p.owner != t {
			s.mu.Unlock()
			select {
			case <-p.done:
				continue
			case <-ctx.Done():
				continue
			}
		}
		s.pending[in.Industry] = &pendingInsight{owner: t, done: make(chan struct{})}
		s.mu.Unlock()

		t.insights[in.Industry] = in
		return true, nil
	}
}

func (t *fakeTx) UpdateProfile(ctx context.Context, profileID string, req *domain.UpdateProfileRequest) (*domain.Profile, error) {
	if d := t.store.updateDelay; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, &domain.StoreError{Op: "update profile", Cause: domain.CauseTimeout, Err: ctx.Err()}
		}
	}
	if t.store.updateErr != nil {
		return nil, t.store.updateErr
	}

	t.store.mu.Lock()
	current, ok := t.store.profiles[profileID]
	t.store.mu.Unlock()
	if !ok {
		return nil, domain.ErrProfileNotFound
	}

	p := cloneProfile(current)
	p.Industry = req.Industry
	p.Experience = req.Experience
	if req.Bio != nil {
		p.Bio = *req.Bio
	}
	if req.Skills != nil {
		p.Skills = append([]string{}, req.Skills...)
	}
	p.UpdatedAt = time.Now().UTC()
	t.profiles[profileID] = p
	return cloneProfile(p), nil
}

func (t *fakeTx) commit() {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for industry, in := range t.insights {
		s.insights[industry] = in
		s.insightWrites++
	}
	for id, p := range t.profiles {
		s.profiles[id] = p
		s.profileWrites++
	}
	s.commits++
	t.release()
}

func (t *fakeTx) rollback() {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.release()
}

// release must be called with the store lock held
func (t *fakeTx) release() {
	for industry, p := range t.store.pending {
		if p.owner == t {
			close(p.done)
			delete(t.store.pending, industry)
		}
	}
}

func cloneProfile(p *domain.Profile) *domain.Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.Skills = append([]string{}, p.Skills...)
	return &c
}
