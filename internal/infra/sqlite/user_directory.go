package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"aptitude-service/internal/domain"
	"github.com/jmoiron/sqlx"
)

type userRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Email     string `db:"email"`
	Role      string `db:"role"`
	CreatedAt int64  `db:"created_at"`
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Role:      r.Role,
		CreatedAt: time.Unix(0, r.CreatedAt).UTC(),
	}
}

type UserDirectory struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewUserDirectory(db *sqlx.DB) *UserDirectory {
	return &UserDirectory{db: db, now: time.Now}
}

func (d *UserDirectory) ResolveUser(ctx context.Context, userID string) (domain.User, error) {
	var row userRow
	err := d.db.QueryRowxContext(ctx, `SELECT id, name, email, role, created_at FROM users WHERE id = ?`, userID).
		StructScan(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("resolve user: %w", err)
	}
	return row.toDomain(), nil
}

// ListUsers returns every user, newest first.
func (d *UserDirectory) ListUsers(ctx context.Context) ([]domain.User, error) {
	var rows []userRow
	if err := d.db.SelectContext(ctx, &rows,
		`SELECT id, name, email, role, created_at FROM users ORDER BY created_at DESC, id`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]domain.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toDomain())
	}
	return users, nil
}

// SaveUser upserts a user. created_at is only written on first insert.
func (d *UserDirectory) SaveUser(ctx context.Context, u domain.User) error {
	role := u.Role
	if role == "" {
		role = "user"
	}
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = d.now()
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, role, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name, email = excluded.email, role = excluded.role`,
		u.ID, u.Name, u.Email, role, createdAt.UnixNano())
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}
