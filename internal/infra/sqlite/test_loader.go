package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aptitude-service/internal/domain"
	"github.com/jmoiron/sqlx"
)

type testRow struct {
	Data      string `db:"data"`
	CreatedAt int64  `db:"created_at"`
}

func (r testRow) toDomain() (domain.Test, error) {
	var test domain.Test
	if err := json.Unmarshal([]byte(r.Data), &test); err != nil {
		return domain.Test{}, fmt.Errorf("unmarshal test: %w", err)
	}
	test.CreatedAt = time.Unix(0, r.CreatedAt).UTC()
	return test, nil
}

// TestLoader reads and writes test definitions stored as JSON text.
type TestLoader struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewTestLoader(db *sqlx.DB) *TestLoader {
	return &TestLoader{db: db, now: time.Now}
}

func (l *TestLoader) LoadTest(ctx context.Context, testID string) (domain.Test, error) {
	var row testRow
	err := l.db.GetContext(ctx, &row, `SELECT data, created_at FROM tests WHERE id = ?`, testID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Test{}, domain.ErrTestNotFound
	}
	if err != nil {
		return domain.Test{}, fmt.Errorf("load test: %w", err)
	}
	return row.toDomain()
}

// LoadTests returns every test, newest first.
func (l *TestLoader) LoadTests(ctx context.Context) ([]domain.Test, error) {
	var rows []testRow
	if err := l.db.SelectContext(ctx, &rows, `SELECT data, created_at FROM tests ORDER BY created_at DESC, id`); err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}
	tests := make([]domain.Test, 0, len(rows))
	for _, row := range rows {
		test, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		tests = append(tests, test)
	}
	return tests, nil
}

// SaveTest upserts a normalized test. An existing row keeps its creation time.
func (l *TestLoader) SaveTest(ctx context.Context, test domain.Test) error {
	test.Normalize()
	createdAt := test.CreatedAt
	if createdAt.IsZero() {
		createdAt = l.now()
	}
	data, err := json.Marshal(test)
	if err != nil {
		return fmt.Errorf("marshal test: %w", err)
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO tests (id, title, data, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET title = excluded.title, data = excluded.data`,
		test.ID, test.Title, string(data), createdAt.UnixNano())
	if err != nil {
		return fmt.Errorf("save test: %w", err)
	}
	return nil
}
