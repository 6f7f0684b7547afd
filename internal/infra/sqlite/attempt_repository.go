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

const attemptColumns = `id, user_id, test_id, answers, score, total_marks, time_taken_seconds, accuracy_percent, submitted_at`

type attemptRow struct {
	ID               string  `db:"id"`
	UserID           string  `db:"user_id"`
	TestID           string  `db:"test_id"`
	Answers          string  `db:"answers"`
	Score            int     `db:"score"`
	TotalMarks       int     `db:"total_marks"`
	TimeTakenSeconds int     `db:"time_taken_seconds"`
	AccuracyPercent  float64 `db:"accuracy_percent"`
	SubmittedAt      int64   `db:"submitted_at"`
}

func (r attemptRow) toDomain() (domain.Attempt, error) {
	a := domain.Attempt{
		ID:               r.ID,
		UserID:           r.UserID,
		TestID:           r.TestID,
		Score:            r.Score,
		TotalMarks:       r.TotalMarks,
		TimeTakenSeconds: r.TimeTakenSeconds,
		AccuracyPercent:  r.AccuracyPercent,
		SubmittedAt:      time.Unix(0, r.SubmittedAt).UTC(),
	}
	if err := json.Unmarshal([]byte(r.Answers), &a.Answers); err != nil {
		return domain.Attempt{}, fmt.Errorf("unmarshal answers: %w", err)
	}
	return a, nil
}

// AttemptRepository keeps graded attempts in SQLite. Timestamps are stored as
// unix nanoseconds so ordering is numeric; seq records insertion order.
type AttemptRepository struct {
	db *sqlx.DB
}

func NewAttemptRepository(db *sqlx.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

func (r *AttemptRepository) Insert(ctx context.Context, attempt domain.Attempt) (domain.Attempt, error) {
	answers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("marshal answers: %w", err)
	}
	row := attemptRow{
		ID:               attempt.ID,
		UserID:           attempt.UserID,
		TestID:           attempt.TestID,
		Answers:          string(answers),
		Score:            attempt.Score,
		TotalMarks:       attempt.TotalMarks,
		TimeTakenSeconds: attempt.TimeTakenSeconds,
		AccuracyPercent:  attempt.AccuracyPercent,
		SubmittedAt:      attempt.SubmittedAt.UnixNano(),
	}
	_, err = r.db.NamedExecContext(ctx,
		`INSERT INTO attempts (`+attemptColumns+`)
		 VALUES (:id, :user_id, :test_id, :answers, :score, :total_marks, :time_taken_seconds, :accuracy_percent, :submitted_at)`,
		row)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}
	return attempt, nil
}

func (r *AttemptRepository) FindByID(ctx context.Context, attemptID string) (domain.Attempt, error) {
	var row attemptRow
	err := r.db.GetContext(ctx, &row, `SELECT `+attemptColumns+` FROM attempts WHERE id = ?`, attemptID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("find attempt: %w", err)
	}
	return row.toDomain()
}

func (r *AttemptRepository) FindByUserAndTest(ctx context.Context, userID, testID string, limit int) ([]domain.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM attempts
		WHERE user_id = ? AND test_id = ?
		ORDER BY submitted_at DESC, seq DESC`
	args := []interface{}{userID, testID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.selectAttempts(ctx, query, args...)
}

func (r *AttemptRepository) FindByTest(ctx context.Context, testID string) ([]domain.Attempt, error) {
	return r.selectAttempts(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE test_id = ? ORDER BY seq`, testID)
}

func (r *AttemptRepository) FindAll(ctx context.Context) ([]domain.Attempt, error) {
	return r.selectAttempts(ctx, `SELECT `+attemptColumns+` FROM attempts ORDER BY seq`)
}

func (r *AttemptRepository) FindByUser(ctx context.Context, userID string) ([]domain.Attempt, error) {
	return r.selectAttempts(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE user_id = ? ORDER BY submitted_at, seq`, userID)
}

func (r *AttemptRepository) selectAttempts(ctx context.Context, query string, args ...interface{}) ([]domain.Attempt, error) {
	var rows []attemptRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select attempts: %w", err)
	}
	attempts := make([]domain.Attempt, 0, len(rows))
	for _, row := range rows {
		a, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, nil
}
