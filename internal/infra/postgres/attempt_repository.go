package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aptitude-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const attemptColumns = `id, user_id, test_id, answers, score, total_marks, time_taken_seconds, accuracy_percent, submitted_at`

// AttemptRepository stores graded attempts in Postgres. The seq column records
// insertion order and breaks submitted_at ties.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// Insert writes the attempt in a single statement, so it is either fully visible or absent.
// The returned attempt carries submittedAt at the precision the column stores.
func (r *AttemptRepository) Insert(ctx context.Context, attempt domain.Attempt) (domain.Attempt, error) {
	attempt.SubmittedAt = timestamptz(attempt.SubmittedAt)
	answers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("marshal answers: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO attempts (`+attemptColumns+`) VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8, $9)`,
		attempt.ID, attempt.UserID, attempt.TestID, string(answers), attempt.Score, attempt.TotalMarks,
		attempt.TimeTakenSeconds, attempt.AccuracyPercent, attempt.SubmittedAt)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}
	return attempt, nil
}

func (r *AttemptRepository) FindByID(ctx context.Context, attemptID string) (domain.Attempt, error) {
	attempt, err := scanAttempt(r.pool.QueryRow(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE id=$1`, attemptID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return attempt, err
}

func (r *AttemptRepository) FindByUserAndTest(ctx context.Context, userID, testID string, limit int) ([]domain.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM attempts
		WHERE user_id=$1 AND test_id=$2
		ORDER BY submitted_at DESC, seq DESC`
	args := []interface{}{userID, testID}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	return r.query(ctx, query, args...)
}

func (r *AttemptRepository) FindByTest(ctx context.Context, testID string) ([]domain.Attempt, error) {
	return r.query(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE test_id=$1 ORDER BY seq`, testID)
}

func (r *AttemptRepository) FindAll(ctx context.Context) ([]domain.Attempt, error) {
	return r.query(ctx, `SELECT `+attemptColumns+` FROM attempts ORDER BY seq`)
}

func (r *AttemptRepository) FindByUser(ctx context.Context, userID string) ([]domain.Attempt, error) {
	return r.query(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE user_id=$1 ORDER BY submitted_at, seq`, userID)
}

func (r *AttemptRepository) query(ctx context.Context, sql string, args ...interface{}) ([]domain.Attempt, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := make([]domain.Attempt, 0)
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}
	return attempts, rows.Err()
}

// timestamptz truncates t to the microsecond resolution of TIMESTAMPTZ.
func timestamptz(t time.Time) time.Time {
	return t.Truncate(time.Microsecond).UTC()
}

func scanAttempt(row pgx.Row) (domain.Attempt, error) {
	var (
		attempt domain.Attempt
		answers []byte
	)
	err := row.Scan(&attempt.ID, &attempt.UserID, &attempt.TestID, &answers, &attempt.Score,
		&attempt.TotalMarks, &attempt.TimeTakenSeconds, &attempt.AccuracyPercent, &attempt.SubmittedAt)
	if err != nil {
		return domain.Attempt{}, err
	}
	if err := json.Unmarshal(answers, &attempt.Answers); err != nil {
		return domain.Attempt{}, fmt.Errorf("unmarshal answers: %w", err)
	}
	attempt.SubmittedAt = attempt.SubmittedAt.UTC()
	return attempt, nil
}
