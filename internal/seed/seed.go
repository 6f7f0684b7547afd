// Package seed loads test definitions and users from a YAML bank into storage.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"aptitude-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// Bank is the on-disk seed format.
type Bank struct {
	Tests []domain.Test `yaml:"tests"`
	Users []domain.User `yaml:"users"`
}

type TestWriter interface {
	SaveTest(ctx context.Context, test domain.Test) error
}

type UserWriter interface {
	SaveUser(ctx context.Context, user domain.User) error
}

// Load reads and validates a bank. Every test is normalized so its total
// marks match its questions.
func Load(path string) (Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Bank{}, err
	}
	return Parse(data)
}

func Parse(data []byte) (Bank, error) {
	var bank Bank
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return Bank{}, fmt.Errorf("parse seed bank: %w", err)
	}

	seen := make(map[string]struct{}, len(bank.Tests))
	for i := range bank.Tests {
		t := &bank.Tests[i]
		if err := t.Validate(); err != nil {
			return Bank{}, fmt.Errorf("test %q: %w", t.ID, err)
		}
		if _, dup := seen[t.ID]; dup {
			return Bank{}, fmt.Errorf("%w: duplicate test id %q", domain.ErrInvalidTest, t.ID)
		}
		seen[t.ID] = struct{}{}
		t.Normalize()
	}
	for _, u := range bank.Users {
		if err := domain.ValidateUser(u); err != nil {
			return Bank{}, fmt.Errorf("user %q: %w", u.ID, err)
		}
	}
	return bank, nil
}

// Apply writes the bank. Tests and users without a creation time are stamped
// with now, one second apart in file order so listings show the first entry last.
func Apply(ctx context.Context, bank Bank, tests TestWriter, users UserWriter, now time.Time) error {
	for i, t := range bank.Tests {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now.Add(time.Duration(i) * time.Second).UTC()
		}
		if err := tests.SaveTest(ctx, t); err != nil {
			return fmt.Errorf("save test %q: %w", t.ID, err)
		}
	}
	for i, u := range bank.Users {
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now.Add(time.Duration(i) * time.Second).UTC()
		}
		if err := users.SaveUser(ctx, u); err != nil {
			return fmt.Errorf("save user %q: %w", u.ID, err)
		}
	}
	slog.Info("seed applied", "tests", len(bank.Tests), "users", len(bank.Users))
	return nil
}
