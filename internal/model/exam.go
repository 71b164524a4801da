package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamPackage is a published question bank reachable through its access token.
type ExamPackage struct {
	ID               uuid.UUID  `json:"id"`
	Token            string     `json:"token"`
	Subject          string     `json:"subject"`
	TimeLimitMinutes int        `json:"time_limit_minutes"`
	Questions        []Question `json:"questions"`
	Published        bool       `json:"published"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ExamSummary is what a student sees right after login.
type ExamSummary struct {
	Token            string `json:"token"`
	Subject          string `json:"subject"`
	TimeLimitMinutes int    `json:"time_limit_minutes"`
	QuestionCount    int    `json:"question_count"`
}

// Summary returns the student-facing overview of the package.
func (p *ExamPackage) Summary() ExamSummary {
	return ExamSummary{
		Token:            p.Token,
		Subject:          p.Subject,
		TimeLimitMinutes: p.TimeLimitMinutes,
		QuestionCount:    len(p.Questions),
	}
}

// ExamPaper is the student payload (no answer keys).
type ExamPaper struct {
	Token            string               `json:"token"`
	Subject          string               `json:"subject"`
	TimeLimitMinutes int                  `json:"time_limit_minutes"`
	Questions        []QuestionForStudent `json:"questions"`
}
