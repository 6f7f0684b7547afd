package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"aptitude-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// TestLoader loads test JSONB from Postgres.
type TestLoader struct {
	pool *pgxpool.Pool
}

func NewTestLoader(pool *pgxpool.Pool) *TestLoader {
	return &TestLoader{pool: pool}
}

func (l *TestLoader) LoadTest(ctx context.Context, testID string) (domain.Test, error) {
	var (
		raw  []byte
		test domain.Test
	)
	err := l.pool.QueryRow(ctx, `SELECT data, created_at FROM tests WHERE id=$1`, testID).Scan(&raw, &test.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Test{}, domain.ErrTestNotFound
	}
	if err != nil {
		return domain.Test{}, fmt.Errorf("load test: %w", err)
	}
	createdAt := test.CreatedAt
	if err := json.Unmarshal(raw, &test); err != nil {
		return domain.Test{}, fmt.Errorf("unmarshal test: %w", err)
	}
	test.CreatedAt = createdAt
	return test, nil
}

// LoadTests returns every test, newest first.
func (l *TestLoader) LoadTests(ctx context.Context) ([]domain.Test, error) {
	rows, err := l.pool.Query(ctx, `SELECT data, created_at FROM tests ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}
	defer rows.Close()

	tests := make([]domain.Test, 0)
	for rows.Next() {
		var (
			raw  []byte
			test domain.Test
		)
		if err := rows.Scan(&raw, &test.CreatedAt); err != nil {
			return nil, err
		}
		createdAt := test.CreatedAt
		if err := json.Unmarshal(raw, &test); err != nil {
			return nil, fmt.Errorf("unmarshal test: %w", err)
		}
		test.CreatedAt = createdAt
		tests = append(tests, test)
	}
	return tests, rows.Err()
}

// SaveTest upserts a normalized test definition.
func (l *TestLoader) SaveTest(ctx context.Context, test domain.Test) error {
	test.Normalize()
	data, err := json.Marshal(test)
	if err != nil {
		return fmt.Errorf("marshal test: %w", err)
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO tests (id, title, data) VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, data=EXCLUDED.data`,
		test.ID, test.Title, string(data))
	if err != nil {
		return fmt.Errorf("save test: %w", err)
	}
	return nil
}
