package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"aptitude-service/internal/domain"
)

// UserDirectory is an in-memory implementation of app.UserDirectory.
type UserDirectory struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserDirectory(users ...domain.User) *UserDirectory {
	d := &UserDirectory{users: make(map[string]domain.User, len(users))}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *UserDirectory) ResolveUser(_ context.Context, userID string) (domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if u, ok := d.users[userID]; ok {
		return u, nil
	}
	return domain.User{}, domain.ErrUserNotFound
}

// ListUsers returns every user, newest first, ties by id.
func (d *UserDirectory) ListUsers(_ context.Context) ([]domain.User, error) {
	d.mu.RLock()
	out := make([]domain.User, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, u)
	}
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SaveUser stores or replaces a user. A replaced user keeps its creation time.
func (d *UserDirectory) SaveUser(_ context.Context, user domain.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
	} else if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	d.users[user.ID] = user
	return nil
}
