package domain

import "time"

// Question models an MCQ question with exactly four options.
type Question struct {
	ID                 string   `json:"id" yaml:"id" validate:"required"`
	Text               string   `json:"text" yaml:"text" validate:"required"`
	Options            []string `json:"options" yaml:"options" validate:"len=4,dive,required"`
	CorrectOptionIndex int      `json:"correctOptionIndex" yaml:"correctOptionIndex" validate:"min=0,max=3"`
	Marks              int      `json:"marks" yaml:"marks" validate:"min=0"` // defaults to 1 if zero
}

// Test is an ordered set of questions with a time limit.
type Test struct {
	ID              string     `json:"id" yaml:"id" validate:"required"`
	Title           string     `json:"title" yaml:"title" validate:"required"`
	Description     string     `json:"description,omitempty" yaml:"description"`
	DurationSeconds int        `json:"durationSeconds" yaml:"durationSeconds" validate:"gte=60"`
	TotalMarks      int        `json:"totalMarks" yaml:"-"`
	Questions       []Question `json:"questions" yaml:"questions" validate:"min=1,dive"`
	CreatedAt       time.Time  `json:"createdAt" yaml:"-"`
}

// Attempt is one graded submission. It is never mutated after creation.
type Attempt struct {
	ID               string         `json:"id"`
	UserID           string         `json:"userId"`
	TestID           string         `json:"testId"`
	Answers          map[string]int `json:"answers"`
	Score            int            `json:"score"`
	TotalMarks       int            `json:"totalMarks"`
	TimeTakenSeconds int            `json:"timeTakenSeconds"`
	AccuracyPercent  float64        `json:"accuracyPercent"`
	SubmittedAt      time.Time      `json:"submittedAt"`
}

// User is the display identity joined into leaderboards.
type User struct {
	ID    string `json:"id" yaml:"id" validate:"required"`
	Name  string `json:"name" yaml:"name" validate:"required"`
	Email string `json:"email" yaml:"email" validate:"required,email"`
	Role  string `json:"role" yaml:"role" validate:"omitempty,oneof=user admin"`

	CreatedAt time.Time `json:"createdAt" yaml:"-"`
}

const RoleAdmin = "admin"

// TestLeaderboardEntry is a ranked best attempt on a single test.
type TestLeaderboardEntry struct {
	Rank             int       `json:"rank"`
	UserID           string    `json:"userId"`
	UserName         string    `json:"userName"`
	UserEmail        string    `json:"userEmail"`
	Score            int       `json:"score"`
	TimeTakenSeconds int       `json:"timeTakenSeconds"`
	AccuracyPercent  float64   `json:"accuracyPercent"`
	SubmittedAt      time.Time `json:"submittedAt"`
}

// TestLeaderboard is the ranked board of one test.
type TestLeaderboard struct {
	TestID  string                 `json:"testId"`
	Entries []TestLeaderboardEntry `json:"entries"`
}

// OverallLeaderboardEntry aggregates a user's best attempts across tests.
type OverallLeaderboardEntry struct {
	Rank                int     `json:"rank"`
	UserID              string  `json:"userId"`
	UserName            string  `json:"userName"`
	UserEmail           string  `json:"userEmail"`
	TotalScore          int     `json:"totalScore"`
	AvgTimeTakenSeconds float64 `json:"avgTimeTakenSeconds"`
	TestCount           int     `json:"testCount"`
}

// Improvement classifies the trend between two attempts.
type Improvement string

const (
	Improved Improvement = "improved"
	Mixed    Improvement = "mixed"
	Declined Improvement = "declined"
)

// AttemptSnapshot is the subset of an attempt used in comparisons.
type AttemptSnapshot struct {
	Score            int       `json:"score"`
	TotalMarks       int       `json:"totalMarks"`
	TimeTakenSeconds int       `json:"timeTakenSeconds"`
	AccuracyPercent  float64   `json:"accuracyPercent"`
	SubmittedAt      time.Time `json:"submittedAt"`
}

// Comparison holds the deltas between a user's two latest attempts on a test.
type Comparison struct {
	Latest                AttemptSnapshot  `json:"latest"`
	Previous              *AttemptSnapshot `json:"previous,omitempty"`
	HasPrevious           bool             `json:"hasPrevious"`
	ScoreChange           float64          `json:"scoreChange"`
	ScoreChangePercent    float64          `json:"scoreChangePercent"`
	TimeChange            float64          `json:"timeChange"`
	TimeChangePercent     float64          `json:"timeChangePercent"`
	AccuracyChange        float64          `json:"accuracyChange"`
	AccuracyChangePercent float64          `json:"accuracyChangePercent"`
	Improvement           *Improvement     `json:"improvement"`
}

// DashboardSummary aggregates a user's full attempt history.
type DashboardSummary struct {
	TotalAttempts int     `json:"totalAttempts"`
	AvgScore      float64 `json:"avgScore"`
	AvgAccuracy   float64 `json:"avgAccuracy"`
	AvgTimeTaken  float64 `json:"avgTimeTaken"`
	BestScore     int     `json:"bestScore"`
}

type ScorePoint struct {
	Date       time.Time `json:"date"`
	Score      int       `json:"score"`
	TotalMarks int       `json:"totalMarks"`
	TestTitle  string    `json:"testTitle"`
}

type TimePoint struct {
	Date             time.Time `json:"date"`
	TimeTakenSeconds int       `json:"timeTakenSeconds"`
	TestTitle        string    `json:"testTitle"`
}

type AccuracyPoint struct {
	Date            time.Time `json:"date"`
	AccuracyPercent float64   `json:"accuracyPercent"`
	TestTitle       string    `json:"testTitle"`
}

// DashboardTrends are parallel chronological series, one point per attempt.
type DashboardTrends struct {
	Score    []ScorePoint    `json:"score"`
	Time     []TimePoint     `json:"time"`
	Accuracy []AccuracyPoint `json:"accuracy"`
}

type DashboardStats struct {
	Summary DashboardSummary `json:"summary"`
	Trends  DashboardTrends  `json:"trends"`
}

// AttemptFilter narrows an attempt listing. Zero fields match everything.
type AttemptFilter struct {
	UserID string
	TestID string
	From   time.Time
	To     time.Time
}

// Matches reports whether a passes every set filter. Date bounds are inclusive.
func (f AttemptFilter) Matches(a Attempt) bool {
	if f.UserID != "" && a.UserID != f.UserID {
		return false
	}
	if f.TestID != "" && a.TestID != f.TestID {
		return false
	}
	if !f.From.IsZero() && a.SubmittedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && a.SubmittedAt.After(f.To) {
		return false
	}
	return true
}

// AttemptView is an attempt joined with its owner and test for admin listings.
// Name, email and title are empty when the user or test no longer resolves.
type AttemptView struct {
	Attempt
	UserName  string `json:"userName"`
	UserEmail string `json:"userEmail"`
	TestTitle string `json:"testTitle"`
}

// AdminStats is the admin dashboard overview.
type AdminStats struct {
	TotalUsers     int           `json:"totalUsers"`
	TotalTests     int           `json:"totalTests"`
	TotalAttempts  int           `json:"totalAttempts"`
	AdminUsers     int           `json:"adminUsers"`
	RecentAttempts []AttemptView `json:"recentAttempts"`
}
