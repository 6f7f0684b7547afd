package app

import (
	"sort"

	"aptitude-service/internal/domain"
)

// DefaultLeaderboardLimit applies when the caller does not pass a limit.
const DefaultLeaderboardLimit = 10

// ranksAhead is the total order used wherever a best attempt is chosen:
// score desc, then time asc. Earlier submission and then attempt id settle
// exact ties so the result never depends on input order.
func ranksAhead(a, b domain.Attempt) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.TimeTakenSeconds != b.TimeTakenSeconds {
		return a.TimeTakenSeconds < b.TimeTakenSeconds
	}
	if !a.SubmittedAt.Equal(b.SubmittedAt) {
		return a.SubmittedAt.Before(b.SubmittedAt)
	}
	return a.ID < b.ID
}

// BestAttempts keeps one attempt per key, the one that ranks ahead of all others.
func BestAttempts(attempts []domain.Attempt, key func(domain.Attempt) string) map[string]domain.Attempt {
	best := make(map[string]domain.Attempt)
	for _, attempt := range attempts {
		k := key(attempt)
		if current, ok := best[k]; !ok || ranksAhead(attempt, current) {
			best[k] = attempt
		}
	}
	return best
}

func byUser(a domain.Attempt) string { return a.UserID }

func byUserAndTest(a domain.Attempt) string { return a.UserID + "\x00" + a.TestID }

// RankTestLeaderboard reduces the attempts of one test into ranked per-user bests.
// Users missing from the directory are dropped before truncation.
func RankTestLeaderboard(testID string, attempts []domain.Attempt, users map[string]domain.User, limit int) domain.TestLeaderboard {
	best := BestAttempts(attempts, byUser)

	rows := make([]domain.Attempt, 0, len(best))
	for userID, attempt := range best {
		if _, ok := users[userID]; !ok {
			continue
		}
		rows = append(rows, attempt)
	}
	sort.Slice(rows, func(i, j int) bool {
		return ranksAhead(rows[i], rows[j])
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}

	entries := make([]domain.TestLeaderboardEntry, 0, len(rows))
	for i, attempt := range rows {
		user := users[attempt.UserID]
		entries = append(entries, domain.TestLeaderboardEntry{
			Rank:             i + 1,
			UserID:           attempt.UserID,
			UserName:         user.Name,
			UserEmail:        user.Email,
			Score:            attempt.Score,
			TimeTakenSeconds: attempt.TimeTakenSeconds,
			AccuracyPercent:  attempt.AccuracyPercent,
			SubmittedAt:      attempt.SubmittedAt,
		})
	}
	return domain.TestLeaderboard{TestID: testID, Entries: entries}
}

type userTotals struct {
	userID     string
	totalScore int
	bestTimes  []int
}

// RankOverallLeaderboard sums each user's best-per-test scores and ranks users by
// total score desc, then mean best time asc, then user id.
func RankOverallLeaderboard(attempts []domain.Attempt, users map[string]domain.User, limit int) []domain.OverallLeaderboardEntry {
	best := BestAttempts(attempts, byUserAndTest)

	totals := make(map[string]*userTotals)
	for _, attempt := range best {
		t, ok := totals[attempt.UserID]
		if !ok {
			t = &userTotals{userID: attempt.UserID}
			totals[attempt.UserID] = t
		}
		t.totalScore += attempt.Score
		t.bestTimes = append(t.bestTimes, attempt.TimeTakenSeconds)
	}

	entries := make([]domain.OverallLeaderboardEntry, 0, len(totals))
	for userID, t := range totals {
		user, ok := users[userID]
		if !ok {
			continue
		}
		entries = append(entries, domain.OverallLeaderboardEntry{
			UserID:              userID,
			UserName:            user.Name,
			UserEmail:           user.Email,
			TotalScore:          t.totalScore,
			AvgTimeTakenSeconds: domain.MeanInts(t.bestTimes),
			TestCount:           len(t.bestTimes),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		if entries[i].AvgTimeTakenSeconds != entries[j].AvgTimeTakenSeconds {
			return entries[i].AvgTimeTakenSeconds < entries[j].AvgTimeTakenSeconds
		}
		return entries[i].UserID < entries[j].UserID
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// distinctUserIDs lists each user id once, in first-seen order.
func distinctUserIDs(attempts []domain.Attempt) []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, a := range attempts {
		if _, ok := seen[a.UserID]; ok {
			continue
		}
		seen[a.UserID] = struct{}{}
		ids = append(ids, a.UserID)
	}
	return ids
}
