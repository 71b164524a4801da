package model

// SessionRecord is the persisted state of an unfinished exam session.
type SessionRecord struct {
	Answers           map[string]AnswerValue `json:"answers"`
	Doubtfuls         map[string]bool        `json:"doubtfuls"`
	TimeLeftSeconds   int                    `json:"timeLeftSeconds"`
	LastUpdateEpochMs int64                  `json:"lastUpdateEpochMs"`
}

// ResumeSummary describes a resumable record without exposing the answers.
type ResumeSummary struct {
	Answered        int   `json:"answered"`
	Doubtful        int   `json:"doubtful"`
	TimeLeftSeconds int   `json:"time_left_seconds"`
	LastUpdatedAtMs int64 `json:"last_updated_at_ms"`
}

// Summary counts answered and flagged questions in the record.
func (r *SessionRecord) Summary() *ResumeSummary {
	doubtful := 0
	for _, flagged := range r.Doubtfuls {
		if flagged {
			doubtful++
		}
	}
	return &ResumeSummary{
		Answered:        len(r.Answers),
		Doubtful:        doubtful,
		TimeLeftSeconds: r.TimeLeftSeconds,
		LastUpdatedAtMs: r.LastUpdateEpochMs,
	}
}

// FinishReason records which path ended the session.
type FinishReason string

const (
	FinishReasonTimeout   FinishReason = "TIMEOUT"
	FinishReasonManual    FinishReason = "MANUAL"
	FinishReasonViolation FinishReason = "VIOLATION"
)

// QuizResult is produced exactly once per session by the finalizer.
type QuizResult struct {
	ID                string                 `json:"id"`
	Identity          StudentIdentity        `json:"identity"`
	Subject           string                 `json:"subject"`
	Score             float64                `json:"score"`
	TotalQuestions    int                    `json:"total_questions"`
	Answers           map[string]AnswerValue `json:"answers"`
	ManualCorrections map[string]bool        `json:"manual_corrections"`
	SubmittedAt       int64                  `json:"submitted_at"`
	DurationSeconds   int                    `json:"duration_seconds"`
	Corrected         bool                   `json:"corrected"`
	Reason            FinishReason           `json:"reason"`
}

// SubmitOutcome reports whether the result reached the result sink.
type SubmitOutcome struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ResultRow is a stored result as listed to administrators.
type ResultRow struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	ClassName       string       `json:"class_name"`
	School          string       `json:"school"`
	BirthDate       string       `json:"birth_date"`
	Token           string       `json:"token"`
	Subject         string       `json:"subject"`
	Score           float64      `json:"score"`
	TotalQuestions  int          `json:"total_questions"`
	DurationSeconds int          `json:"duration_seconds"`
	Reason          FinishReason `json:"reason"`
	Corrected       bool         `json:"corrected"`
	SubmittedAt     int64        `json:"submitted_at"`
}
