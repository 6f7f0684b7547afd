package app_test

import (
	"testing"

	"aptitude-service/internal/app"
	"aptitude-service/internal/domain"
)

func TestSummarizeAttempts(t *testing.T) {
	history := []domain.Attempt{
		{TestID: "t1", Score: 4, TotalMarks: 5, TimeTakenSeconds: 100, AccuracyPercent: 80, SubmittedAt: base},
		{TestID: "gone", Score: 2, TotalMarks: 5, TimeTakenSeconds: 50, AccuracyPercent: 40, SubmittedAt: base.Add(1)},
		{TestID: "t1", Score: 5, TotalMarks: 5, TimeTakenSeconds: 61, AccuracyPercent: 100, SubmittedAt: base.Add(2)},
	}
	stats := app.SummarizeAttempts(history, map[string]string{"t1": "Logic"})

	s := stats.Summary
	if s.TotalAttempts != 3 || s.BestScore != 5 || s.AvgScore != 3.67 || s.AvgAccuracy != 73.33 || s.AvgTimeTaken != 70.33 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if len(stats.Trends.Score) != 3 || len(stats.Trends.Time) != 3 || len(stats.Trends.Accuracy) != 3 {
		t.Fatalf("expected one trend point per attempt, got %+v", stats.Trends)
	}
	if stats.Trends.Score[1].TestTitle != app.UnknownTestTitle || stats.Trends.Score[0].TestTitle != "Logic" {
		t.Fatalf("unexpected titles %+v", stats.Trends.Score)
	}
	if !stats.Trends.Time[2].Date.Equal(base.Add(2)) || stats.Trends.Accuracy[2].AccuracyPercent != 100 {
		t.Fatalf("trends not chronological: %+v", stats.Trends)
	}
}

func TestSummarizeAttemptsEmpty(t *testing.T) {
	stats := app.SummarizeAttempts(nil, nil)
	if stats.Summary != (domain.DashboardSummary{}) {
		t.Fatalf("expected zero summary, got %+v", stats.Summary)
	}
	if stats.Trends.Score == nil || stats.Trends.Time == nil || stats.Trends.Accuracy == nil {
		t.Fatalf("trend lists must be empty, not nil")
	}
}
