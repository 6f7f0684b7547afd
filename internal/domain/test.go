package domain

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Points returns the marks awarded for a correct answer.
func (q Question) Points() int {
	if q.Marks <= 0 {
		return 1
	}
	return q.Marks
}

// Normalize fills default marks and recomputes TotalMarks from the question set.
// It must run whenever the questions change.
// The question slice is copied so shared definitions are never written to.
func (t *Test) Normalize() {
	questions := make([]Question, len(t.Questions))
	total := 0
	for i, q := range t.Questions {
		q.Marks = q.Points()
		total += q.Marks
		questions[i] = q
	}
	t.Questions = questions
	t.TotalMarks = total
}

// Validate checks the structural invariants a test must satisfy before it can be graded.
func (t Test) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTest, describeValidation(err))
	}
	seen := make(map[string]struct{}, len(t.Questions))
	for _, q := range t.Questions {
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %q", ErrInvalidTest, q.ID)
		}
		seen[q.ID] = struct{}{}
	}
	return nil
}

// ValidateUser checks a directory entry loaded from a seed file.
func ValidateUser(u User) error {
	if err := validate.Struct(u); err != nil {
		return fmt.Errorf("%w: user: %s", ErrInvalidInput, describeValidation(err))
	}
	return nil
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// PublicQuestion is a question without its answer key.
type PublicQuestion struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Marks   int      `json:"marks"`
}

// PublicTest is the view handed to test takers.
type PublicTest struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Description     string           `json:"description,omitempty"`
	DurationSeconds int              `json:"durationSeconds"`
	TotalMarks      int              `json:"totalMarks"`
	QuestionCount   int              `json:"questionCount"`
	Questions       []PublicQuestion `json:"questions,omitempty"`
}

// Public strips correct answers. Questions are included only when withQuestions is set.
func (t Test) Public(withQuestions bool) PublicTest {
	pt := PublicTest{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		DurationSeconds: t.DurationSeconds,
		TotalMarks:      t.TotalMarks,
		QuestionCount:   len(t.Questions),
	}
	if withQuestions {
		pt.Questions = make([]PublicQuestion, 0, len(t.Questions))
		for _, q := range t.Questions {
			pt.Questions = append(pt.Questions, PublicQuestion{
				ID:      q.ID,
				Text:    q.Text,
				Options: q.Options,
				Marks:   q.Points(),
			})
		}
	}
	return pt
}
