package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"aptitude-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// TestLoader fetches test content from a backing store.
type TestLoader interface {
	LoadTest(ctx context.Context, testID string) (domain.Test, error)
	LoadTests(ctx context.Context) ([]domain.Test, error)
}

// TestRepository caches tests with TTL to avoid repeated DB hits.
type TestRepository struct {
	loader TestLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedTest
}

type cachedTest struct {
	test      domain.Test
	expiresAt time.Time
}

func NewTestRepository(loader TestLoader, ttl time.Duration) *TestRepository {
	return &TestRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedTest),
	}
}

func (r *TestRepository) GetTest(ctx context.Context, testID string) (domain.Test, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[testID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.test, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(testID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[testID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.test, nil
		}
		r.mu.RUnlock()

		test, err := r.loader.LoadTest(ctx, testID)
		if err != nil {
			return domain.Test{}, err
		}
		test.Normalize()

		r.mu.Lock()
		r.cache[testID] = cachedTest{
			test:      test,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return test, nil
	})
	if err != nil {
		return domain.Test{}, err
	}
	return result.(domain.Test), nil
}

// ListTests always reads through to the loader.
func (r *TestRepository) ListTests(ctx context.Context) ([]domain.Test, error) {
	tests, err := r.loader.LoadTests(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tests {
		tests[i].Normalize()
	}
	return tests, nil
}

// Invalidate drops a cached test so the next read reloads it.
func (r *TestRepository) Invalidate(testID string) {
	r.mu.Lock()
	delete(r.cache, testID)
	r.mu.Unlock()
}

func (r *TestRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticTestLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticTestLoader struct {
	mu    sync.RWMutex
	tests map[string]domain.Test
}

func NewStaticTestLoader(tests map[string]domain.Test) *StaticTestLoader {
	copied := make(map[string]domain.Test, len(tests))
	for id, t := range tests {
		copied[id] = t
	}
	return &StaticTestLoader{tests: copied}
}

func (l *StaticTestLoader) LoadTest(_ context.Context, testID string) (domain.Test, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if test, ok := l.tests[testID]; ok {
		return test, nil
	}
	return domain.Test{}, domain.ErrTestNotFound
}

// LoadTests returns every test, newest first.
func (l *StaticTestLoader) LoadTests(_ context.Context) ([]domain.Test, error) {
	l.mu.RLock()
	out := make([]domain.Test, 0, len(l.tests))
	for _, t := range l.tests {
		out = append(out, t)
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SaveTest stores or replaces a test definition.
func (l *StaticTestLoader) SaveTest(_ context.Context, test domain.Test) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tests[test.ID] = test
	return nil
}
