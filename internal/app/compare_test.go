package app_test

import (
	"errors"
	"testing"

	"aptitude-service/internal/app"
	"aptitude-service/internal/domain"
)

func TestCompareAttemptsMixed(t *testing.T) {
	latest := domain.Attempt{Score: 8, TimeTakenSeconds: 100, AccuracyPercent: 80, SubmittedAt: base.Add(1)}
	previous := domain.Attempt{Score: 10, TimeTakenSeconds: 120, AccuracyPercent: 90, SubmittedAt: base}

	cmp, err := app.CompareAttempts([]domain.Attempt{latest, previous})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if !cmp.HasPrevious || cmp.Previous == nil || cmp.Previous.Score != 10 {
		t.Fatalf("expected previous snapshot, got %+v", cmp)
	}
	if cmp.ScoreChange != -2 || cmp.TimeChange != -20 || cmp.AccuracyChange != -10 {
		t.Fatalf("unexpected deltas %+v", cmp)
	}
	if cmp.ScoreChangePercent != -20 {
		t.Fatalf("expected -20%% score change, got %v", cmp.ScoreChangePercent)
	}
	if cmp.Improvement == nil || *cmp.Improvement != domain.Mixed {
		t.Fatalf("expected mixed, got %v", cmp.Improvement)
	}
}

func TestCompareAttemptsVerdicts(t *testing.T) {
	cases := []struct {
		name     string
		latest   domain.Attempt
		previous domain.Attempt
		want     domain.Improvement
	}{
		{"improved", domain.Attempt{Score: 9, TimeTakenSeconds: 50, AccuracyPercent: 90}, domain.Attempt{Score: 5, TimeTakenSeconds: 60, AccuracyPercent: 50}, domain.Improved},
		{"two of three", domain.Attempt{Score: 9, TimeTakenSeconds: 70, AccuracyPercent: 90}, domain.Attempt{Score: 5, TimeTakenSeconds: 60, AccuracyPercent: 50}, domain.Improved},
		{"declined", domain.Attempt{Score: 5, TimeTakenSeconds: 60, AccuracyPercent: 50}, domain.Attempt{Score: 5, TimeTakenSeconds: 60, AccuracyPercent: 50}, domain.Declined},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmp, err := app.CompareAttempts([]domain.Attempt{tc.latest, tc.previous})
			if err != nil {
				t.Fatalf("compare: %v", err)
			}
			if *cmp.Improvement != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, *cmp.Improvement)
			}
		})
	}
}

func TestCompareAttemptsFromZero(t *testing.T) {
	cmp, _ := app.CompareAttempts([]domain.Attempt{
		{Score: 4, TimeTakenSeconds: 10, AccuracyPercent: 40},
		{Score: 0, TimeTakenSeconds: 0, AccuracyPercent: 0},
	})
	if cmp.ScoreChangePercent != 100 || cmp.AccuracyChangePercent != 100 || cmp.TimeChangePercent != 0 {
		t.Fatalf("unexpected percentages from zero baseline: %+v", cmp)
	}
}

func TestCompareAttemptsSingleAndEmpty(t *testing.T) {
	cmp, err := app.CompareAttempts([]domain.Attempt{{Score: 7, TimeTakenSeconds: 30, AccuracyPercent: 70}})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if cmp.HasPrevious || cmp.Previous != nil || cmp.Improvement != nil {
		t.Fatalf("expected no previous, got %+v", cmp)
	}
	if cmp.ScoreChange != 0 || cmp.ScoreChangePercent != 0 || cmp.TimeChange != 0 || cmp.TimeChangePercent != 0 ||
		cmp.AccuracyChange != 0 || cmp.AccuracyChangePercent != 0 {
		t.Fatalf("expected zero deltas, got %+v", cmp)
	}
	if cmp.Latest.Score != 7 {
		t.Fatalf("expected latest snapshot, got %+v", cmp.Latest)
	}

	if _, err := app.CompareAttempts(nil); !errors.Is(err, domain.ErrNoAttempts) {
		t.Fatalf("expected ErrNoAttempts, got %v", err)
	}
}
