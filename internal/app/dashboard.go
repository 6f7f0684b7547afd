package app

import "aptitude-service/internal/domain"

// UnknownTestTitle labels trend points whose test can no longer be resolved.
const UnknownTestTitle = "Unknown"

// SummarizeAttempts reduces a user's history, ordered oldest first, into
// summary statistics and chronological trends.
func SummarizeAttempts(oldestFirst []domain.Attempt, titles map[string]string) domain.DashboardStats {
	stats := domain.DashboardStats{
		Trends: domain.DashboardTrends{
			Score:    make([]domain.ScorePoint, 0, len(oldestFirst)),
			Time:     make([]domain.TimePoint, 0, len(oldestFirst)),
			Accuracy: make([]domain.AccuracyPoint, 0, len(oldestFirst)),
		},
	}

	scores := make([]int, 0, len(oldestFirst))
	times := make([]int, 0, len(oldestFirst))
	accuracies := make([]float64, 0, len(oldestFirst))
	best := 0

	for i, attempt := range oldestFirst {
		title, ok := titles[attempt.TestID]
		if !ok || title == "" {
			title = UnknownTestTitle
		}

		stats.Trends.Score = append(stats.Trends.Score, domain.ScorePoint{
			Date:       attempt.SubmittedAt,
			Score:      attempt.Score,
			TotalMarks: attempt.TotalMarks,
			TestTitle:  title,
		})
		stats.Trends.Time = append(stats.Trends.Time, domain.TimePoint{
			Date:             attempt.SubmittedAt,
			TimeTakenSeconds: attempt.TimeTakenSeconds,
			TestTitle:        title,
		})
		stats.Trends.Accuracy = append(stats.Trends.Accuracy, domain.AccuracyPoint{
			Date:            attempt.SubmittedAt,
			AccuracyPercent: attempt.AccuracyPercent,
			TestTitle:       title,
		})

		scores = append(scores, attempt.Score)
		times = append(times, attempt.TimeTakenSeconds)
		accuracies = append(accuracies, attempt.AccuracyPercent)
		if i == 0 || attempt.Score > best {
			best = attempt.Score
		}
	}

	stats.Summary = domain.DashboardSummary{
		TotalAttempts: len(oldestFirst),
		AvgScore:      domain.MeanInts(scores),
		AvgAccuracy:   domain.MeanFloats(accuracies),
		AvgTimeTaken:  domain.MeanInts(times),
		BestScore:     best,
	}
	return stats
}
