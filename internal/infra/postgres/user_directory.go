package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aptitude-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const userColumns = `id, name, email, role, created_at`

// UserDirectory resolves users from the users table.
type UserDirectory struct {
	pool *pgxpool.Pool
}

func NewUserDirectory(pool *pgxpool.Pool) *UserDirectory {
	return &UserDirectory{pool: pool}
}

func (d *UserDirectory) ResolveUser(ctx context.Context, userID string) (domain.User, error) {
	u, err := scanUser(d.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("resolve user: %w", err)
	}
	return u, nil
}

// ListUsers returns every user, newest first.
func (d *UserDirectory) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := d.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SaveUser upserts a user; created_at is kept on update.
func (d *UserDirectory) SaveUser(ctx context.Context, u domain.User) error {
	role := u.Role
	if role == "" {
		role = "user"
	}
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	createdAt = timestamptz(createdAt)
	_, err := d.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, email=EXCLUDED.email, role=EXCLUDED.role`,
		u.ID, u.Name, u.Email, role, createdAt)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt); err != nil {
		return domain.User{}, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}
