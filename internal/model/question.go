package model

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeSingleChoice    QuestionType = "SINGLE_CHOICE"
	QuestionTypeMultipleChoice  QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeComplexCategory QuestionType = "COMPLEX_CATEGORY"
	QuestionTypeTrueFalse       QuestionType = "TRUE_FALSE"
	QuestionTypeShortAnswer     QuestionType = "SHORT_ANSWER"
)

// Question represents a single exam question, including its answer key.
type Question struct {
	ID            string       `json:"id"`
	Type          QuestionType `json:"type"`
	Text          string       `json:"text"`
	Options       []string     `json:"options,omitempty"`
	OptionImages  []string     `json:"option_images,omitempty"`
	CorrectAnswer AnswerValue  `json:"correct_answer"`
	TrueLabel     string       `json:"true_label,omitempty"`
	FalseLabel    string       `json:"false_label,omitempty"`
}

// QuestionForStudent is a question without the answer key, sent to students.
type QuestionForStudent struct {
	ID           string       `json:"id"`
	Type         QuestionType `json:"type"`
	Text         string       `json:"text"`
	Options      []string     `json:"options,omitempty"`
	OptionImages []string     `json:"option_images,omitempty"`
	TrueLabel    string       `json:"true_label,omitempty"`
	FalseLabel   string       `json:"false_label,omitempty"`
}

// ForStudent strips the answer key and fills in polarity labels for
// statement-matrix questions.
func (q Question) ForStudent(trueLabel, falseLabel string) QuestionForStudent {
	out := QuestionForStudent{
		ID:           q.ID,
		Type:         q.Type,
		Text:         q.Text,
		Options:      q.Options,
		OptionImages: q.OptionImages,
	}
	if q.Type == QuestionTypeComplexCategory || q.Type == QuestionTypeTrueFalse {
		out.TrueLabel, out.FalseLabel = q.TrueLabel, q.FalseLabel
		if out.TrueLabel == "" {
			out.TrueLabel = trueLabel
		}
		if out.FalseLabel == "" {
			out.FalseLabel = falseLabel
		}
	}
	return out
}
