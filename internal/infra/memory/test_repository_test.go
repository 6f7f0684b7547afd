package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"aptitude-service/internal/domain"
)

func TestTestRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		TestLoader: NewStaticTestLoader(map[string]domain.Test{
			"test-1": sampleTest(),
		}),
	}
	repo := NewTestRepository(loader, time.Minute)

	test, err := repo.GetTest(context.Background(), "test-1")
	if err != nil {
		t.Fatalf("get test: %v", err)
	}
	if test.TotalMarks != 3 || test.Questions[0].Marks != 1 {
		t.Fatalf("expected normalized test, got %+v", test)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls.Load())
	}

	if _, err := repo.GetTest(context.Background(), "test-1"); err != nil {
		t.Fatalf("get test 2: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls.Load())
	}

	repo.Invalidate("test-1")
	if _, err := repo.GetTest(context.Background(), "test-1"); err != nil {
		t.Fatalf("get test 3: %v", err)
	}
	if loader.calls.Load() != 2 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.calls.Load())
	}
}

func TestTestRepositoryExpires(t *testing.T) {
	loader := &countingLoader{
		TestLoader: NewStaticTestLoader(map[string]domain.Test{"test-1": sampleTest()}),
	}
	repo := NewTestRepository(loader, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetTest(context.Background(), "test-1")
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetTest(context.Background(), "test-1")
	if loader.calls.Load() != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls.Load())
	}
}

func TestTestRepositoryCollapsesConcurrentLoads(t *testing.T) {
	release := make(chan struct{})
	loader := &countingLoader{
		TestLoader: NewStaticTestLoader(map[string]domain.Test{"test-1": sampleTest()}),
		gate:       release,
	}
	repo := NewTestRepository(loader, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.GetTest(context.Background(), "test-1"); err != nil {
				t.Errorf("get test: %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if loader.calls.Load() != 1 {
		t.Fatalf("expected one load for concurrent readers, got %d", loader.calls.Load())
	}
}

func TestTestRepositoryMissing(t *testing.T) {
	repo := NewTestRepository(NewStaticTestLoader(nil), time.Minute)
	if _, err := repo.GetTest(context.Background(), "nope"); !errors.Is(err, domain.ErrTestNotFound) {
		t.Fatalf("expected ErrTestNotFound, got %v", err)
	}
}

func TestStaticTestLoaderListsNewestFirst(t *testing.T) {
	older := sampleTest()
	older.ID, older.CreatedAt = "old", time.Unix(100, 0)
	newer := sampleTest()
	newer.ID, newer.CreatedAt = "new", time.Unix(200, 0)
	loader := NewStaticTestLoader(map[string]domain.Test{"old": older})
	if err := loader.SaveTest(context.Background(), newer); err != nil {
		t.Fatalf("save: %v", err)
	}

	tests, err := NewTestRepository(loader, time.Minute).ListTests(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tests) != 2 || tests[0].ID != "new" || tests[1].TotalMarks != 3 {
		t.Fatalf("unexpected listing %+v", tests)
	}
}

type countingLoader struct {
	TestLoader
	calls atomic.Int32
	gate  chan struct{}
}

func (l *countingLoader) LoadTest(ctx context.Context, testID string) (domain.Test, error) {
	l.calls.Add(1)
	if l.gate != nil {
		<-l.gate
	}
	return l.TestLoader.LoadTest(ctx, testID)
}

func sampleTest() domain.Test {
	return domain.Test{
		ID:              "test-1",
		Title:           "Verbal Ability",
		DurationSeconds: 300,
		Questions: []domain.Question{
			{ID: "q1", Text: "Synonym of quick?", Options: []string{"slow", "fast", "late", "dull"}, CorrectOptionIndex: 1},
			{ID: "q2", Text: "Antonym of tall?", Options: []string{"short", "big", "high", "long"}, CorrectOptionIndex: 0, Marks: 2},
		},
	}
}
