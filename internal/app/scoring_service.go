package app

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"aptitude-service/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// TestRepository loads tests (from cache/backing store).
type TestRepository interface {
	GetTest(ctx context.Context, testID string) (domain.Test, error)
	ListTests(ctx context.Context) ([]domain.Test, error)
}

// AttemptRepository is the durable, append-only store of graded attempts.
// Recency order is submittedAt, then insertion order.
type AttemptRepository interface {
	Insert(ctx context.Context, attempt domain.Attempt) (domain.Attempt, error)
	FindByID(ctx context.Context, attemptID string) (domain.Attempt, error)
	// FindByUserAndTest returns newest first; limit <= 0 returns all.
	FindByUserAndTest(ctx context.Context, userID, testID string, limit int) ([]domain.Attempt, error)
	FindByTest(ctx context.Context, testID string) ([]domain.Attempt, error)
	// FindAll returns every attempt in insertion order.
	FindAll(ctx context.Context) ([]domain.Attempt, error)
	// FindByUser returns oldest first.
	FindByUser(ctx context.Context, userID string) ([]domain.Attempt, error)
}

// UserDirectory resolves display identities for leaderboards.
type UserDirectory interface {
	ResolveUser(ctx context.Context, userID string) (domain.User, error)
	// ListUsers returns every user, newest first.
	ListUsers(ctx context.Context) ([]domain.User, error)
}

// UpdatePublisher announces that a test's standings changed, possibly to other instances.
type UpdatePublisher interface {
	PublishTestUpdated(ctx context.Context, testID string) error
}

// ScoringService contains the grading and ranking use cases.
type ScoringService struct {
	tests        TestRepository
	attempts     AttemptRepository
	users        UserDirectory
	feed         *LeaderboardFeed
	publisher    UpdatePublisher
	defaultLimit int
	now          func() time.Time
	newID        func() string
}

// Option customizes a ScoringService.
type Option func(*ScoringService)

// WithClock is mostly useful for deterministic timestamps in tests.
func WithClock(now func() time.Time) Option {
	return func(s *ScoringService) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *ScoringService) { s.newID = newID }
}

// WithPublisher routes update notifications through an external relay instead
// of refreshing the local feed directly.
func WithPublisher(p UpdatePublisher) Option {
	return func(s *ScoringService) { s.publisher = p }
}

func WithDefaultLimit(limit int) Option {
	return func(s *ScoringService) {
		if limit > 0 {
			s.defaultLimit = limit
		}
	}
}

func NewScoringService(tests TestRepository, attempts AttemptRepository, users UserDirectory, opts ...Option) *ScoringService {
	s := &ScoringService{
		tests:        tests,
		attempts:     attempts,
		users:        users,
		feed:         NewLeaderboardFeed(),
		defaultLimit: DefaultLeaderboardLimit,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultLimit is the leaderboard size used when callers pass none.
func (s *ScoringService) DefaultLimit() int {
	return s.defaultLimit
}

// Submit grades answers for a test and persists exactly one attempt.
// On a persistence failure nothing is stored and the error is returned.
func (s *ScoringService) Submit(ctx context.Context, userID, testID string, answers domain.SubmittedAnswers, timeTakenSeconds int) (domain.Attempt, error) {
	test, err := s.tests.GetTest(ctx, testID)
	if err != nil {
		return domain.Attempt{}, domain.WrapStorage("load test", err)
	}

	attempt, err := Grade(test, answers, timeTakenSeconds)
	if err != nil {
		return domain.Attempt{}, err
	}
	attempt.ID = s.newID()
	attempt.UserID = userID
	attempt.SubmittedAt = s.now().UTC()

	stored, err := s.attempts.Insert(ctx, attempt)
	if err != nil {
		return domain.Attempt{}, domain.WrapStorage("insert attempt", err)
	}

	s.announce(ctx, testID)
	return stored, nil
}

// TestLeaderboard ranks each user's best attempt on one test.
func (s *ScoringService) TestLeaderboard(ctx context.Context, testID string, limit int) (domain.TestLeaderboard, error) {
	if limit < 1 {
		return domain.TestLeaderboard{}, domain.ErrInvalidLimit
	}
	if _, err := s.tests.GetTest(ctx, testID); err != nil {
		return domain.TestLeaderboard{}, domain.WrapStorage("load test", err)
	}

	attempts, err := s.attempts.FindByTest(ctx, testID)
	if err != nil {
		return domain.TestLeaderboard{}, domain.WrapStorage("find attempts by test", err)
	}
	users, err := s.resolveUsers(ctx, distinctUserIDs(attempts))
	if err != nil {
		return domain.TestLeaderboard{}, err
	}
	return RankTestLeaderboard(testID, attempts, users, limit), nil
}

// OverallLeaderboard ranks users by the sum of their best score on every test.
func (s *ScoringService) OverallLeaderboard(ctx context.Context, limit int) ([]domain.OverallLeaderboardEntry, error) {
	if limit < 1 {
		return nil, domain.ErrInvalidLimit
	}
	attempts, err := s.attempts.FindAll(ctx)
	if err != nil {
		return nil, domain.WrapStorage("find all attempts", err)
	}
	users, err := s.resolveUsers(ctx, distinctUserIDs(attempts))
	if err != nil {
		return nil, err
	}
	return RankOverallLeaderboard(attempts, users, limit), nil
}

// Compare reports trend deltas between the user's two latest attempts on a test.
func (s *ScoringService) Compare(ctx context.Context, userID, testID string) (domain.Comparison, error) {
	attempts, err := s.attempts.FindByUserAndTest(ctx, userID, testID, 2)
	if err != nil {
		return domain.Comparison{}, domain.WrapStorage("find latest attempts", err)
	}
	return CompareAttempts(attempts)
}

// Summarize builds dashboard statistics over the user's whole history.
func (s *ScoringService) Summarize(ctx context.Context, userID string) (domain.DashboardStats, error) {
	attempts, err := s.attempts.FindByUser(ctx, userID)
	if err != nil {
		return domain.DashboardStats{}, domain.WrapStorage("find attempts by user", err)
	}
	titles, err := s.resolveTitles(ctx, attempts)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	return SummarizeAttempts(attempts, titles), nil
}

// ListTests returns the catalog without answer keys.
func (s *ScoringService) ListTests(ctx context.Context) ([]domain.PublicTest, error) {
	tests, err := s.tests.ListTests(ctx)
	if err != nil {
		return nil, domain.WrapStorage("list tests", err)
	}
	out := make([]domain.PublicTest, 0, len(tests))
	for _, t := range tests {
		out = append(out, t.Public(false))
	}
	return out, nil
}

// GetTest returns one test with its questions but without answer keys.
func (s *ScoringService) GetTest(ctx context.Context, testID string) (domain.PublicTest, error) {
	test, err := s.tests.GetTest(ctx, testID)
	if err != nil {
		return domain.PublicTest{}, domain.WrapStorage("load test", err)
	}
	return test.Public(true), nil
}

// MyAttempts lists a user's attempts, newest first.
func (s *ScoringService) MyAttempts(ctx context.Context, userID string) ([]domain.Attempt, error) {
	attempts, err := s.attempts.FindByUser(ctx, userID)
	if err != nil {
		return nil, domain.WrapStorage("find attempts by user", err)
	}
	out := make([]domain.Attempt, len(attempts))
	for i, a := range attempts {
		out[len(attempts)-1-i] = a
	}
	return out, nil
}

// TestAttempts lists a user's attempts on one test, newest first.
func (s *ScoringService) TestAttempts(ctx context.Context, userID, testID string) ([]domain.Attempt, error) {
	attempts, err := s.attempts.FindByUserAndTest(ctx, userID, testID, 0)
	if err != nil {
		return nil, domain.WrapStorage("find attempts by user and test", err)
	}
	return attempts, nil
}

// GetAttempt returns one attempt if viewer owns it or is an admin.
func (s *ScoringService) GetAttempt(ctx context.Context, viewerID string, viewerIsAdmin bool, attemptID string) (domain.Attempt, error) {
	attempt, err := s.attempts.FindByID(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, domain.WrapStorage("find attempt", err)
	}
	if attempt.UserID != viewerID && !viewerIsAdmin {
		return domain.Attempt{}, domain.ErrForbidden
	}
	return attempt, nil
}

// ListAttempts returns every attempt matching filter, newest first, joined
// with user and test details.
func (s *ScoringService) ListAttempts(ctx context.Context, filter domain.AttemptFilter) ([]domain.AttemptView, error) {
	all, err := s.attempts.FindAll(ctx)
	if err != nil {
		return nil, domain.WrapStorage("find all attempts", err)
	}
	matched := make([]domain.Attempt, 0)
	for i := len(all) - 1; i >= 0; i-- {
		if filter.Matches(all[i]) {
			matched = append(matched, all[i])
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].SubmittedAt.After(matched[j].SubmittedAt)
	})
	return s.describeAttempts(ctx, matched)
}

// ListUsers returns the user directory, newest first.
func (s *ScoringService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, domain.WrapStorage("list users", err)
	}
	return users, nil
}

const recentAttemptsLimit = 10

// AdminStats counts users, admins, tests and attempts and returns the most
// recent attempts.
func (s *ScoringService) AdminStats(ctx context.Context) (domain.AdminStats, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return domain.AdminStats{}, err
	}
	tests, err := s.tests.ListTests(ctx)
	if err != nil {
		return domain.AdminStats{}, domain.WrapStorage("list tests", err)
	}
	recent, err := s.ListAttempts(ctx, domain.AttemptFilter{})
	if err != nil {
		return domain.AdminStats{}, err
	}

	stats := domain.AdminStats{
		TotalUsers:    len(users),
		TotalTests:    len(tests),
		TotalAttempts: len(recent),
	}
	for _, u := range users {
		if u.Role == domain.RoleAdmin {
			stats.AdminUsers++
		}
	}
	if len(recent) > recentAttemptsLimit {
		recent = recent[:recentAttemptsLimit]
	}
	stats.RecentAttempts = recent
	return stats, nil
}

func (s *ScoringService) describeAttempts(ctx context.Context, attempts []domain.Attempt) ([]domain.AttemptView, error) {
	users, err := s.resolveUsers(ctx, distinctUserIDs(attempts))
	if err != nil {
		return nil, err
	}
	titles, err := s.resolveTitles(ctx, attempts)
	if err != nil {
		return nil, err
	}
	views := make([]domain.AttemptView, len(attempts))
	for i, a := range attempts {
		user := users[a.UserID]
		views[i] = domain.AttemptView{
			Attempt:   a,
			UserName:  user.Name,
			UserEmail: user.Email,
			TestTitle: titles[a.TestID],
		}
	}
	return views, nil
}

// Subscribe returns a channel of leaderboard snapshots for a test, seeded with
// the current board. The caller must invoke the returned cancel function.
func (s *ScoringService) Subscribe(ctx context.Context, testID string) (<-chan domain.TestLeaderboard, func(), error) {
	initial, err := s.TestLeaderboard(ctx, testID, s.defaultLimit)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.feed.Subscribe(testID, initial)
	return ch, cancel, nil
}

// RefreshFeed rebuilds a test's board and pushes it to local subscribers.
func (s *ScoringService) RefreshFeed(ctx context.Context, testID string) error {
	if !s.feed.HasSubscribers(testID) {
		return nil
	}
	lb, err := s.TestLeaderboard(ctx, testID, s.defaultLimit)
	if err != nil {
		return err
	}
	s.feed.Broadcast(lb)
	return nil
}

// announce is best-effort: a submission is already durable when it runs.
func (s *ScoringService) announce(ctx context.Context, testID string) {
	if s.publisher != nil {
		if err := s.publisher.PublishTestUpdated(ctx, testID); err != nil {
			slog.Warn("publish leaderboard update failed", "test_id", testID, "error", err)
		}
		return
	}
	if err := s.RefreshFeed(ctx, testID); err != nil {
		slog.Warn("refresh leaderboard feed failed", "test_id", testID, "error", err)
	}
}

const lookupConcurrency = 8

// resolveUsers looks up display identities; unknown users are left out.
func (s *ScoringService) resolveUsers(ctx context.Context, ids []string) (map[string]domain.User, error) {
	var mu sync.Mutex
	users := make(map[string]domain.User, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			user, err := s.users.ResolveUser(gctx, id)
			if errors.Is(err, domain.ErrUserNotFound) {
				return nil
			}
			if err != nil {
				return domain.WrapStorage("resolve user", err)
			}
			mu.Lock()
			users[id] = user
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return users, nil
}

// resolveTitles maps each referenced test id to its title; deleted tests are left out.
func (s *ScoringService) resolveTitles(ctx context.Context, attempts []domain.Attempt) (map[string]string, error) {
	ids := make(map[string]struct{})
	for _, a := range attempts {
		ids[a.TestID] = struct{}{}
	}

	var mu sync.Mutex
	titles := make(map[string]string, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)
	for id := range ids {
		id := id
		g.Go(func() error {
			test, err := s.tests.GetTest(gctx, id)
			if errors.Is(err, domain.ErrTestNotFound) {
				return nil
			}
			if err != nil {
				return domain.WrapStorage("load test", err)
			}
			mu.Lock()
			titles[id] = test.Title
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return titles, nil
}
