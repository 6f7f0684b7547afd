package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"aptitude-service/internal/app"
	"aptitude-service/internal/domain"
	"aptitude-service/internal/infra/memory"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// tick returns increasing timestamps one minute apart.
func (c *fixedClock) tick() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

type sequentialIDs struct {
	mu sync.Mutex
	n  int
}

func (s *sequentialIDs) next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("att-%03d", s.n)
}

func newTestService(t *testing.T, attempts app.AttemptRepository, opts ...app.Option) *app.ScoringService {
	t.Helper()
	loader := memory.NewStaticTestLoader(map[string]domain.Test{
		"t1": twoQuestionTest(),
		"t2": {
			ID: "t2", Title: "Second", DurationSeconds: 120,
			Questions: []domain.Question{{ID: "q1", Text: "x", Options: []string{"a", "b", "c", "d"}, CorrectOptionIndex: 3}},
		},
	})
	users := memory.NewUserDirectory(
		domain.User{ID: "u1", Name: "Asha", Email: "asha@example.com"},
		domain.User{ID: "u2", Name: "Ben", Email: "ben@example.com"},
	)
	if attempts == nil {
		attempts = memory.NewAttemptStore()
	}
	clock := &fixedClock{now: base}
	ids := &sequentialIDs{}
	defaults := []app.Option{app.WithClock(clock.tick), app.WithIDGenerator(ids.next)}
	return app.NewScoringService(memory.NewTestRepository(loader, time.Minute), attempts, users, append(defaults, opts...)...)
}

func TestSubmitPersistsGradedAttempt(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, nil)

	attempt, err := service.Submit(ctx, "u1", "t1", domain.SubmittedAnswers{"q1": 0, "q2": 1}, 30)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if attempt.ID != "att-001" || attempt.UserID != "u1" || attempt.TestID != "t1" {
		t.Fatalf("unexpected identity fields %+v", attempt)
	}
	if attempt.Score != 3 || attempt.AccuracyPercent != 100 || attempt.TotalMarks != 3 {
		t.Fatalf("unexpected grade %+v", attempt)
	}

	stored, err := service.GetAttempt(ctx, "u1", false, attempt.ID)
	if err != nil || stored.Score != 3 {
		t.Fatalf("stored attempt mismatch %+v (%v)", stored, err)
	}
}

func TestSubmitErrors(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, nil)

	if _, err := service.Submit(ctx, "u1", "missing", domain.SubmittedAnswers{}, 10); !errors.Is(err, domain.ErrTestNotFound) {
		t.Fatalf("expected ErrTestNotFound, got %v", err)
	}
	if _, err := service.Submit(ctx, "u1", "t2", domain.SubmittedAnswers{}, 121); !errors.Is(err, domain.ErrInvalidTime) {
		t.Fatalf("expected ErrInvalidTime, got %v", err)
	}
	mine, _ := service.MyAttempts(ctx, "u1")
	if len(mine) != 0 {
		t.Fatalf("failed submissions must not persist, got %d", len(mine))
	}
}

type failingAttempts struct {
	*memory.AttemptStore
}

func (failingAttempts) Insert(context.Context, domain.Attempt) (domain.Attempt, error) {
	return domain.Attempt{}, errors.New("disk full")
}

func TestSubmitStorageFailureLeavesNothing(t *testing.T) {
	ctx := context.Background()
	store := failingAttempts{AttemptStore: memory.NewAttemptStore()}
	service := newTestService(t, store)

	_, err := service.Submit(ctx, "u1", "t1", domain.SubmittedAnswers{"q1": 0}, 30)
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	var se *domain.StorageError
	if !errors.As(err, &se) || se.Op != "insert attempt" {
		t.Fatalf("expected StorageError with op, got %#v", err)
	}
	all, _ := store.FindAll(ctx)
	if len(all) != 0 {
		t.Fatalf("expected no stored attempts, got %d", len(all))
	}
}

func TestLeaderboardsThroughService(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, nil)

	mustSubmit(t, service, "u1", "t1", domain.SubmittedAnswers{"q1": 0}, 40)
	mustSubmit(t, service, "u2", "t1", domain.SubmittedAnswers{"q1": 0, "q2": 1}, 90)
	mustSubmit(t, service, "ghost", "t1", domain.SubmittedAnswers{"q1": 0, "q2": 1}, 10)
	mustSubmit(t, service, "u1", "t2", domain.SubmittedAnswers{"q1": 3}, 20)

	lb, err := service.TestLeaderboard(ctx, "t1", 10)
	if err != nil {
		t.Fatalf("test leaderboard: %v", err)
	}
	if len(lb.Entries) != 2 || lb.Entries[0].UserID != "u2" || lb.Entries[0].UserName != "Ben" {
		t.Fatalf("unexpected board %+v", lb.Entries)
	}

	overall, err := service.OverallLeaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("overall: %v", err)
	}
	if len(overall) != 2 || overall[0].UserID != "u2" || overall[1].TotalScore != 2 || overall[1].TestCount != 2 {
		t.Fatalf("unexpected overall %+v", overall)
	}

	if _, err := service.TestLeaderboard(ctx, "t1", 0); !errors.Is(err, domain.ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}
	if _, err := service.OverallLeaderboard(ctx, -1); !errors.Is(err, domain.ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}
	if _, err := service.TestLeaderboard(ctx, "missing", 10); !errors.Is(err, domain.ErrTestNotFound) {
		t.Fatalf("expected ErrTestNotFound, got %v", err)
	}
}

func TestCompareAndHistory(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, nil)

	if _, err := service.Compare(ctx, "u1", "t1"); !errors.Is(err, domain.ErrNoAttempts) {
		t.Fatalf("expected ErrNoAttempts, got %v", err)
	}

	first := mustSubmit(t, service, "u1", "t1", domain.SubmittedAnswers{"q1": 0, "q2": 1}, 120)
	mustSubmit(t, service, "u1", "t2", domain.SubmittedAnswers{"q1": 0}, 60)
	latest := mustSubmit(t, service, "u1", "t1", domain.SubmittedAnswers{"q1": 0}, 100)

	cmp, err := service.Compare(ctx, "u1", "t1")
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if cmp.Latest.Score != latest.Score || cmp.Previous.Score != first.Score {
		t.Fatalf("compare picked wrong attempts: %+v", cmp)
	}
	if *cmp.Improvement != domain.Mixed {
		t.Fatalf("expected mixed, got %s", *cmp.Improvement)
	}

	mine, _ := service.MyAttempts(ctx, "u1")
	if len(mine) != 3 || mine[0].ID != latest.ID || mine[2].ID != first.ID {
		t.Fatalf("expected newest first, got %+v", mine)
	}
	onTest, _ := service.TestAttempts(ctx, "u1", "t1")
	if len(onTest) != 2 || onTest[0].ID != latest.ID {
		t.Fatalf("unexpected per-test history %+v", onTest)
	}

	stats, err := service.Summarize(ctx, "u1")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if stats.Summary.TotalAttempts != 3 || stats.Trends.Score[1].TestTitle != "Second" {
		t.Fatalf("unexpected dashboard %+v", stats)
	}
}

func TestGetAttemptOwnership(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, nil)
	a := mustSubmit(t, service, "u1", "t1", domain.SubmittedAnswers{}, 10)

	if _, err := service.GetAttempt(ctx, "u2", false, a.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := service.GetAttempt(ctx, "u2", true, a.ID); err != nil {
		t.Fatalf("admin read: %v", err)
	}
	if _, err := service.GetAttempt(ctx, "u1", false, "nope"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected ErrAttemptNotFound, got %v", err)
	}
}

func TestListAttemptsFilter(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, nil)
	a1 := mustSubmit(t, service, "u1", "t1", domain.SubmittedAnswers{}, 10)
	a2 := mustSubmit(t, service, "u2", "t1", domain.SubmittedAnswers{}, 10)
	a3 := mustSubmit(t, service, "u1", "t2", domain.SubmittedAnswers{}, 10)

	all, _ := service.ListAttempts(ctx, domain.AttemptFilter{})
	if len(all) != 3 || all[0].ID != a3.ID || all[2].ID != a1.ID {
		t.Fatalf("expected newest first, got %+v", all)
	}
	byUser, _ := service.ListAttempts(ctx, domain.AttemptFilter{UserID: "u1"})
	if len(byUser) != 2 {
		t.Fatalf("expected 2 for u1, got %d", len(byUser))
	}
	windowed, _ := service.ListAttempts(ctx, domain.AttemptFilter{From: a2.SubmittedAt, To: a2.SubmittedAt})
	if len(windowed) != 1 || windowed[0].ID != a2.ID {
		t.Fatalf("expected inclusive bounds to match a2, got %+v", windowed)
	}
}

func TestCatalogIsPublic(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, nil)

	tests, err := service.ListTests(ctx)
	if err != nil || len(tests) != 2 {
		t.Fatalf("list tests: %v (%d)", err, len(tests))
	}
	if tests[0].Questions != nil {
		t.Fatalf("catalog listing should omit questions")
	}
	one, err := service.GetTest(ctx, "t1")
	if err != nil || len(one.Questions) != 2 || one.TotalMarks != 3 {
		t.Fatalf("unexpected public test %+v (%v)", one, err)
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, nil)

	ch, cancel, err := service.Subscribe(ctx, "t1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	initial := <-ch
	if len(initial.Entries) != 0 {
		t.Fatalf("expected empty initial board, got %+v", initial)
	}

	mustSubmit(t, service, "u1", "t1", domain.SubmittedAnswers{"q1": 0}, 30)
	update := <-ch
	if len(update.Entries) != 1 || update.Entries[0].Score != 1 {
		t.Fatalf("expected updated board, got %+v", update.Entries)
	}

	if _, _, err := service.Subscribe(ctx, "missing"); !errors.Is(err, domain.ErrTestNotFound) {
		t.Fatalf("expected ErrTestNotFound, got %v", err)
	}
}

type recordingPublisher struct {
	mu      sync.Mutex
	testIDs []string
	err     error
}

func (p *recordingPublisher) PublishTestUpdated(_ context.Context, testID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.testIDs = append(p.testIDs, testID)
	return p.err
}

func TestSubmitPublishesUpdates(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("redis down")}
	service := newTestService(t, nil, app.WithPublisher(pub))

	// A failing publisher never fails the submission.
	mustSubmit(t, service, "u1", "t2", domain.SubmittedAnswers{}, 5)
	if len(pub.testIDs) != 1 || pub.testIDs[0] != "t2" {
		t.Fatalf("expected one publish for t2, got %v", pub.testIDs)
	}
}

func TestDefaultLimitOption(t *testing.T) {
	if got := newTestService(t, nil).DefaultLimit(); got != app.DefaultLeaderboardLimit {
		t.Fatalf("expected default %d, got %d", app.DefaultLeaderboardLimit, got)
	}
	if got := newTestService(t, nil, app.WithDefaultLimit(25)).DefaultLimit(); got != 25 {
		t.Fatalf("expected 25, got %d", got)
	}
	if got := newTestService(t, nil, app.WithDefaultLimit(0)).DefaultLimit(); got != app.DefaultLeaderboardLimit {
		t.Fatalf("non-positive option must be ignored, got %d", got)
	}
}

func mustSubmit(t *testing.T, s *app.ScoringService, userID, testID string, answers domain.SubmittedAnswers, seconds int) domain.Attempt {
	t.Helper()
	a, err := s.Submit(context.Background(), userID, testID, answers, seconds)
	if err != nil {
		t.Fatalf("submit %s/%s: %v", userID, testID, err)
	}
	return a
}

func TestAdminStats(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, nil)

	for i := 0; i < 12; i++ {
		mustSubmit(t, service, "u1", "t2", domain.SubmittedAnswers{}, i)
	}
	last := mustSubmit(t, service, "ghost", "t1", domain.SubmittedAnswers{}, 5)

	stats, err := service.AdminStats(ctx)
	if err != nil {
		t.Fatalf("admin stats: %v", err)
	}
	if stats.TotalUsers != 2 || stats.AdminUsers != 0 || stats.TotalTests != 2 || stats.TotalAttempts != 13 {
		t.Fatalf("unexpected counts %+v", stats)
	}
	if len(stats.RecentAttempts) != 10 {
		t.Fatalf("expected 10 recent attempts, got %d", len(stats.RecentAttempts))
	}
	newest := stats.RecentAttempts[0]
	if newest.ID != last.ID || newest.UserName != "" || newest.TestTitle != "Sample" {
		t.Fatalf("unknown users keep their attempt with empty details, got %+v", newest)
	}
	if next := stats.RecentAttempts[1]; next.UserName != "Asha" || next.UserEmail != "asha@example.com" || next.TestTitle != "Second" {
		t.Fatalf("attempt not joined with user and test: %+v", next)
	}
}

func TestListUsersNewestFirst(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserDirectory(
		domain.User{ID: "old", Name: "Old", CreatedAt: base},
		domain.User{ID: "new", Name: "New", CreatedAt: base.Add(time.Hour), Role: domain.RoleAdmin},
	)
	service := app.NewScoringService(memory.NewTestRepository(memory.NewStaticTestLoader(nil), time.Minute), memory.NewAttemptStore(), users)

	list, err := service.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(list) != 2 || list[0].ID != "new" || list[1].ID != "old" {
		t.Fatalf("expected newest first, got %+v", list)
	}
	stats, _ := service.AdminStats(ctx)
	if stats.AdminUsers != 1 || stats.RecentAttempts == nil {
		t.Fatalf("unexpected stats on empty history %+v", stats)
	}
}
