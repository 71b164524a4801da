package exam

import (
	"github.com/stemsi/exstem-cbt/internal/model"
)

// Score returns the percentage (0-100) of auto-correct answers. An empty
// question list scores 0.
func Score(questions []model.Question, answers map[string]model.AnswerValue) float64 {
	if len(questions) == 0 {
		return 0
	}
	return float64(CountCorrect(questions, answers)) / float64(len(questions)) * 100
}

// CountCorrect counts the questions whose answer matches the key.
func CountCorrect(questions []model.Question, answers map[string]model.AnswerValue) int {
	correct := 0
	for i := range questions {
		if IsCorrect(&questions[i], answers) {
			correct++
		}
	}
	return correct
}

// IsCorrect applies the type-specific equality rule. Unanswered and
// wrong-shaped answers are incorrect. Short answers are left for manual
// correction and never count here.
func IsCorrect(q *model.Question, answers map[string]model.AnswerValue) bool {
	ans, ok := answers[q.ID]
	if !ok {
		return false
	}

	switch q.Type {
	case model.QuestionTypeSingleChoice:
		got, ok := ans.Index()
		want, okKey := q.CorrectAnswer.Index()
		return ok && okKey && got == want

	case model.QuestionTypeMultipleChoice:
		got, ok := ans.Indices()
		want, okKey := q.CorrectAnswer.Indices()
		return ok && okKey && sameSet(got, want)

	case model.QuestionTypeComplexCategory, model.QuestionTypeTrueFalse:
		got, ok := ans.Flags()
		want, okKey := q.CorrectAnswer.Flags()
		return ok && okKey && samePositions(got, want)

	default:
		return false
	}
}

func sameSet(a, b []int) bool {
	left := make(map[int]struct{}, len(a))
	for _, v := range a {
		left[v] = struct{}{}
	}
	right := make(map[int]struct{}, len(b))
	for _, v := range b {
		right[v] = struct{}{}
	}
	if len(left) != len(right) {
		return false
	}
	for v := range left {
		if _, ok := right[v]; !ok {
			return false
		}
	}
	return true
}

func samePositions(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
