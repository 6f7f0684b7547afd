package domain

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/shopspring/decimal"
)

// Unanswered marks a question with no selected option. It never equals a valid
// correct option index, which is always in [0,3].
const Unanswered = -1

const maxFractionDigits = 32

var (
	minOption = decimal.NewFromInt(math.MinInt32)
	maxOption = decimal.NewFromInt(math.MaxInt32)
)

// SubmittedAnswers maps question id to the selected option index.
// A nil map is not a valid submission; an empty one is.
type SubmittedAnswers map[string]int

// DecodeAnswers parses a JSON object of question id to option index.
// JSON null values count as unanswered. Numbers with a zero fraction such as
// 1.0 or 1e0 are the integer they denote. Anything other than an object of
// whole numbers is rejected with ErrInvalidAnswerFormat.
func DecodeAnswers(raw json.RawMessage) (SubmittedAnswers, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrInvalidAnswerFormat
	}

	var values map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &values); err != nil {
		return nil, ErrInvalidAnswerFormat
	}

	answers := make(SubmittedAnswers, len(values))
	for questionID, value := range values {
		if string(value) == "null" {
			answers[questionID] = Unanswered
			continue
		}
		if value[0] != '-' && (value[0] < '0' || value[0] > '9') {
			return nil, ErrInvalidAnswerFormat
		}
		n, ok := wholeNumber(string(value))
		if !ok {
			return nil, ErrInvalidAnswerFormat
		}
		answers[questionID] = n
	}
	return answers, nil
}

// wholeNumber reads a JSON number that denotes an int32 value. Exponents are
// bounded before any comparison so inputs like 1e999999999 are never expanded.
func wholeNumber(raw string) (int, bool) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, false
	}
	if d.IsZero() {
		return 0, true
	}
	if exp := d.Exponent(); exp < -maxFractionDigits || exp > 10 {
		return 0, false
	}
	if !d.IsInteger() || d.LessThan(minOption) || d.GreaterThan(maxOption) {
		return 0, false
	}
	return int(d.IntPart()), true
}
