package memory

import (
	"context"
	"sort"
	"sync"

	"aptitude-service/internal/domain"
)

// AttemptStore is an in-memory, append-only implementation of app.AttemptRepository.
// Slice position is the insertion order used to break submittedAt ties.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts []domain.Attempt
	byID     map[string]int
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{byID: make(map[string]int)}
}

func (s *AttemptStore) Insert(_ context.Context, attempt domain.Attempt) (domain.Attempt, error) {
	attempt.Answers = copyAnswers(attempt.Answers)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[attempt.ID] = len(s.attempts)
	s.attempts = append(s.attempts, attempt)
	return attempt, nil
}

func (s *AttemptStore) FindByID(_ context.Context, attemptID string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[attemptID]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return s.attempts[idx], nil
}

func (s *AttemptStore) FindByUserAndTest(_ context.Context, userID, testID string, limit int) ([]domain.Attempt, error) {
	matched := s.filter(func(a domain.Attempt) bool {
		return a.UserID == userID && a.TestID == testID
	})
	newestFirst(matched)
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *AttemptStore) FindByTest(_ context.Context, testID string) ([]domain.Attempt, error) {
	return s.filter(func(a domain.Attempt) bool { return a.TestID == testID }), nil
}

func (s *AttemptStore) FindAll(_ context.Context) ([]domain.Attempt, error) {
	return s.filter(func(domain.Attempt) bool { return true }), nil
}

func (s *AttemptStore) FindByUser(_ context.Context, userID string) ([]domain.Attempt, error) {
	matched := s.filter(func(a domain.Attempt) bool { return a.UserID == userID })
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].SubmittedAt.Before(matched[j].SubmittedAt)
	})
	return matched, nil
}

// filter returns matching attempts in insertion order.
func (s *AttemptStore) filter(match func(domain.Attempt) bool) []domain.Attempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Attempt, 0)
	for _, a := range s.attempts {
		if match(a) {
			out = append(out, a)
		}
	}
	return out
}

// newestFirst orders by submittedAt desc, later insertions first on ties.
func newestFirst(attempts []domain.Attempt) {
	for i, j := 0, len(attempts)-1; i < j; i, j = i+1, j-1 {
		attempts[i], attempts[j] = attempts[j], attempts[i]
	}
	sort.SliceStable(attempts, func(i, j int) bool {
		return attempts[i].SubmittedAt.After(attempts[j].SubmittedAt)
	})
}

func copyAnswers(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
