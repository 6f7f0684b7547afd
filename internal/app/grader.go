package app

import (
	"aptitude-service/internal/domain"
)

// Grade scores answers against the test's answer key. It has no side effects;
// identity and timestamp fields are left for the caller to fill before persisting.
func Grade(test domain.Test, answers domain.SubmittedAnswers, timeTakenSeconds int) (domain.Attempt, error) {
	if len(test.Questions) == 0 {
		return domain.Attempt{}, domain.ErrInvalidTest
	}
	if timeTakenSeconds < 0 || timeTakenSeconds > test.DurationSeconds {
		return domain.Attempt{}, domain.ErrInvalidTime
	}
	if answers == nil {
		return domain.Attempt{}, domain.ErrInvalidAnswerFormat
	}

	score, correct := 0, 0
	recorded := make(map[string]int, len(test.Questions))
	for _, question := range test.Questions {
		selected, ok := answers[question.ID]
		if !ok {
			selected = domain.Unanswered
		}
		recorded[question.ID] = selected

		if selected == question.CorrectOptionIndex {
			score += question.Points()
			correct++
		}
	}

	return domain.Attempt{
		TestID:           test.ID,
		Answers:          recorded,
		Score:            score,
		TotalMarks:       test.TotalMarks,
		TimeTakenSeconds: timeTakenSeconds,
		AccuracyPercent:  domain.Percent(correct, len(test.Questions)),
	}, nil
}
