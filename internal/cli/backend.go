package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"aptitude-service/internal/app"
	"aptitude-service/internal/config"
	"aptitude-service/internal/domain"
	"aptitude-service/internal/infra/memory"
	pgstore "aptitude-service/internal/infra/postgres"
	rediscache "aptitude-service/internal/infra/redis"
	"aptitude-service/internal/infra/sqlite"
	"aptitude-service/internal/seed"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// testStore is the backing store behind the test cache.
type testStore interface {
	memory.TestLoader
	seed.TestWriter
}

type userStore interface {
	app.UserDirectory
	seed.UserWriter
}

// backend is the storage wiring shared by every command.
type backend struct {
	service *app.ScoringService
	tests   testStore
	users   userStore
	relay   *rediscache.FeedRelay
	cache   *rediscache.TestRepository
	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	b := &backend{}
	var attempts app.AttemptRepository

	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		b.tests = pgstore.NewTestLoader(pool)
		b.users = pgstore.NewUserDirectory(pool)
		attempts = pgstore.NewAttemptRepository(pool)
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { db.Close() })
		b.tests = sqlite.NewTestLoader(db)
		b.users = sqlite.NewUserDirectory(db)
		attempts = sqlite.NewAttemptRepository(db)
	default:
		b.tests = memory.NewStaticTestLoader(nil)
		b.users = memory.NewUserDirectory()
		attempts = memory.NewAttemptStore()
		if err := seedMemory(ctx, cfg, b); err != nil {
			return nil, err
		}
	}

	testTTL := config.TTLDuration(cfg.Tests.TTL, 10*time.Minute)
	var tests app.TestRepository = memory.NewTestRepository(b.tests, testTTL)

	opts := []app.Option{app.WithDefaultLimit(cfg.Leaderboard.DefaultLimit)}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { client.Close() })
		b.cache = rediscache.NewTestRepository(client, b.tests, config.TTLDuration(cfg.Redis.TTL, testTTL))
		tests = b.cache
		b.relay = rediscache.NewFeedRelay(client)
		opts = append(opts, app.WithPublisher(b.relay))
	}

	b.service = app.NewScoringService(tests, attempts, b.users, opts...)
	return b, nil
}

// seedMemory fills an in-memory backend from the configured seed bank, or
// from the built-in sample when the bank file does not exist.
func seedMemory(ctx context.Context, cfg config.Config, b *backend) error {
	bank, err := seed.Load(cfg.Seed.Path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("seed bank not found, using sample data", "path", cfg.Seed.Path)
		bank = sampleBank()
	} else if err != nil {
		return err
	}
	return seed.Apply(ctx, bank, b.tests, b.users, time.Now())
}

func sampleBank() seed.Bank {
	options := func(opts ...string) []string { return opts }
	bank := seed.Bank{
		Tests: []domain.Test{
			{
				ID:              "quant-1",
				Title:           "Quantitative Aptitude",
				Description:     "Arithmetic and number sense",
				DurationSeconds: 600,
				Questions: []domain.Question{
					{ID: "q1", Text: "What is 15% of 200?", Options: options("20", "25", "30", "35"), CorrectOptionIndex: 2},
					{ID: "q2", Text: "Next in 2, 6, 12, 20?", Options: options("28", "30", "32", "24"), CorrectOptionIndex: 1},
					{ID: "q3", Text: "A train covers 120 km in 2 h. Speed?", Options: options("50", "60", "70", "80"), CorrectOptionIndex: 1, Marks: 2},
				},
			},
			{
				ID:              "logic-1",
				Title:           "Logical Reasoning",
				DurationSeconds: 300,
				Questions: []domain.Question{
					{ID: "q1", Text: "All A are B. All B are C. So all A are?", Options: options("B only", "C", "not C", "none"), CorrectOptionIndex: 1},
					{ID: "q2", Text: "Odd one out", Options: options("Square", "Circle", "Triangle", "Cube"), CorrectOptionIndex: 3},
				},
			},
		},
		Users: []domain.User{
			{ID: "user-1", Name: "Demo User", Email: "demo@example.com", Role: "user"},
			{ID: "admin-1", Name: "Demo Admin", Email: "admin@example.com", Role: domain.RoleAdmin},
		},
	}
	for i := range bank.Tests {
		bank.Tests[i].Normalize()
	}
	return bank
}
