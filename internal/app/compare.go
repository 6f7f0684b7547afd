package app

import "aptitude-service/internal/domain"

// CompareAttempts computes trend deltas from up to two attempts ordered newest first.
func CompareAttempts(latestFirst []domain.Attempt) (domain.Comparison, error) {
	if len(latestFirst) == 0 {
		return domain.Comparison{}, domain.ErrNoAttempts
	}

	latest := snapshot(latestFirst[0])
	cmp := domain.Comparison{Latest: latest}
	if len(latestFirst) < 2 {
		return cmp, nil
	}

	previous := snapshot(latestFirst[1])
	cmp.Previous = &previous
	cmp.HasPrevious = true

	cmp.ScoreChange = float64(latest.Score - previous.Score)
	cmp.ScoreChangePercent = changePercent(float64(latest.Score), float64(previous.Score))

	// Positive means the latest attempt was slower.
	cmp.TimeChange = float64(latest.TimeTakenSeconds - previous.TimeTakenSeconds)
	if previous.TimeTakenSeconds > 0 {
		cmp.TimeChangePercent = cmp.TimeChange / float64(previous.TimeTakenSeconds) * 100
	}

	cmp.AccuracyChange = latest.AccuracyPercent - previous.AccuracyPercent
	cmp.AccuracyChangePercent = changePercent(latest.AccuracyPercent, previous.AccuracyPercent)

	improved := 0
	if latest.Score > previous.Score {
		improved++
	}
	if latest.TimeTakenSeconds < previous.TimeTakenSeconds {
		improved++
	}
	if latest.AccuracyPercent > previous.AccuracyPercent {
		improved++
	}

	verdict := domain.Declined
	switch {
	case improved >= 2:
		verdict = domain.Improved
	case improved == 1:
		verdict = domain.Mixed
	}
	cmp.Improvement = &verdict
	return cmp, nil
}

// changePercent is relative change against previous; a rise from zero counts as 100.
func changePercent(latest, previous float64) float64 {
	switch {
	case previous > 0:
		return (latest - previous) / previous * 100
	case latest > 0:
		return 100
	default:
		return 0
	}
}

func snapshot(a domain.Attempt) domain.AttemptSnapshot {
	return domain.AttemptSnapshot{
		Score:            a.Score,
		TotalMarks:       a.TotalMarks,
		TimeTakenSeconds: a.TimeTakenSeconds,
		AccuracyPercent:  a.AccuracyPercent,
		SubmittedAt:      a.SubmittedAt,
	}
}
