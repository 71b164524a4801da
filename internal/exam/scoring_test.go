package exam

import (
	"testing"

	"github.com/stemsi/exstem-cbt/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestScore_EndToEnd(t *testing.T) {
	questions := sampleQuestions()

	answers := map[string]model.AnswerValue{
		"q1": model.IndexAnswer(1),
		"q2": model.IndicesAnswer(1, 0),
		"q3": model.FlagsAnswer(true, false),
	}
	assert.Equal(t, 100.0, Score(questions, answers))

	answers["q3"] = model.FlagsAnswer(false, false)
	assert.Equal(t, float64(2)/float64(3)*100, Score(questions, answers))
	assert.InDelta(t, 66.6667, Score(questions, answers), 0.001)
}

func TestScore_Deterministic(t *testing.T) {
	questions := sampleQuestions()
	answers := map[string]model.AnswerValue{"q1": model.IndexAnswer(1), "q3": model.FlagsAnswer(true, true)}

	first := Score(questions, answers)
	second := Score(questions, answers)
	assert.Equal(t, first, second)
}

func TestScore_NoQuestions(t *testing.T) {
	assert.Equal(t, 0.0, Score(nil, nil))
	assert.Equal(t, 0.0, Score([]model.Question{}, map[string]model.AnswerValue{}))
}

func TestIsCorrect_Unanswered(t *testing.T) {
	questions := []model.Question{
		{ID: "a", Type: model.QuestionTypeSingleChoice, CorrectAnswer: model.IndexAnswer(0)},
		{ID: "b", Type: model.QuestionTypeMultipleChoice, CorrectAnswer: model.IndicesAnswer()},
		{ID: "c", Type: model.QuestionTypeComplexCategory, CorrectAnswer: model.FlagsAnswer()},
		{ID: "d", Type: model.QuestionTypeTrueFalse, CorrectAnswer: model.FlagsAnswer(false)},
		{ID: "e", Type: model.QuestionTypeShortAnswer, CorrectAnswer: model.TextAnswer("")},
	}
	for i := range questions {
		assert.False(t, IsCorrect(&questions[i], map[string]model.AnswerValue{}), questions[i].Type)
	}
}

func TestIsCorrect_MultipleChoiceIsASet(t *testing.T) {
	q := model.Question{ID: "q", Type: model.QuestionTypeMultipleChoice, CorrectAnswer: model.IndicesAnswer(0, 2)}

	tests := []struct {
		name   string
		answer model.AnswerValue
		want   bool
	}{
		{"reordered", model.IndicesAnswer(2, 0), true},
		{"duplicate", model.IndicesAnswer(0, 2, 2), true},
		{"subset", model.IndicesAnswer(0), false},
		{"superset", model.IndicesAnswer(0, 1, 2), false},
		{"wrong shape", model.IndexAnswer(0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCorrect(&q, map[string]model.AnswerValue{"q": tt.answer}))
		})
	}
}

func TestIsCorrect_ComplexCategoryIsPositional(t *testing.T) {
	q := model.Question{ID: "q", Type: model.QuestionTypeComplexCategory, CorrectAnswer: model.FlagsAnswer(true, false, true)}

	assert.True(t, IsCorrect(&q, map[string]model.AnswerValue{"q": model.FlagsAnswer(true, false, true)}))
	assert.False(t, IsCorrect(&q, map[string]model.AnswerValue{"q": model.FlagsAnswer(false, true, true)}))
	assert.False(t, IsCorrect(&q, map[string]model.AnswerValue{"q": model.FlagsAnswer(true, false)}))
}

func TestIsCorrect_TrueFalse(t *testing.T) {
	q := model.Question{ID: "q", Type: model.QuestionTypeTrueFalse, CorrectAnswer: model.FlagsAnswer(false, true)}

	assert.True(t, IsCorrect(&q, map[string]model.AnswerValue{"q": model.FlagsAnswer(false, true)}))
	assert.False(t, IsCorrect(&q, map[string]model.AnswerValue{"q": model.FlagsAnswer(true, true)}))
}

func TestIsCorrect_ShortAnswerNeverAutoCorrect(t *testing.T) {
	q := model.Question{ID: "q", Type: model.QuestionTypeShortAnswer, CorrectAnswer: model.TextAnswer("fotosintesis")}
	assert.False(t, IsCorrect(&q, map[string]model.AnswerValue{"q": model.TextAnswer("fotosintesis")}))
}

func TestCountCorrect(t *testing.T) {
	answers := map[string]model.AnswerValue{
		"q1": model.IndexAnswer(1),
		"q2": model.IndicesAnswer(0),
	}
	assert.Equal(t, 1, CountCorrect(sampleQuestions(), answers))
}
