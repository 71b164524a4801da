package websocket

import (
	"github.com/stemsi/exstem-cbt/internal/exam"
	"github.com/stemsi/exstem-cbt/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionStart    Action = "start"
	ActionAnswer   Action = "answer"
	ActionDoubtful Action = "doubtful"
	ActionSignal   Action = "signal"
	ActionFinish   Action = "finish"
	ActionPing     Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// StartRequest enters the exam. Locked reports whether the browser granted
// fullscreen before sending it.
type StartRequest struct {
	Action Action `json:"action"`
	Resume bool   `json:"resume"`
	Locked bool   `json:"locked"`
}

// AnswerRequest replaces the answer of one question.
type AnswerRequest struct {
	Action Action            `json:"action"`
	QID    string            `json:"q_id"`
	Value  model.AnswerValue `json:"ans"`
}

// DoubtfulRequest flags or unflags a question for review.
type DoubtfulRequest struct {
	Action  Action `json:"action"`
	QID     string `json:"q_id"`
	Flagged bool   `json:"flag"`
}

// SignalRequest forwards a browser integrity event. The signal fields are
// inlined: {"action":"signal","kind":"keydown","key":"F12"}.
type SignalRequest struct {
	Action Action `json:"action"`
	exam.Signal
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventStarted        Event = "started"
	EventTick           Event = "tick"
	EventSaved          Event = "saved"
	EventIntercept      Event = "intercept"
	EventViolation      Event = "violation"
	EventExitFullscreen Event = "exit_fullscreen"
	EventGraded         Event = "graded"
	EventError          Event = "error"
	EventPong           Event = "pong"
)

type StartedResponse struct {
	Event           Event                        `json:"event"`
	Resumed         bool                         `json:"resumed"`
	TimeLeftSeconds int                          `json:"time_left_seconds"`
	Answers         map[string]model.AnswerValue `json:"answers"`
	Doubtfuls       map[string]bool              `json:"doubtfuls"`
}

type TickResponse struct {
	Event           Event `json:"event"`
	TimeLeftSeconds int   `json:"time_left_seconds"`
}

type SavedResponse struct {
	Event Event  `json:"event"`
	QID   string `json:"q_id"`
}

// InterceptResponse tells the client whether to cancel the default action
// of the signal it just reported.
type InterceptResponse struct {
	Event  Event           `json:"event"`
	Kind   exam.SignalKind `json:"kind"`
	Cancel bool            `json:"cancel"`
}

type ViolationResponse struct {
	Event  Event  `json:"event"`
	Reason string `json:"reason"`
	Policy string `json:"policy"`
}

type ExitFullscreenResponse struct {
	Event Event `json:"event"`
}

type GradedResponse struct {
	Event          Event              `json:"event"`
	ResultID       string             `json:"result_id"`
	Score          float64            `json:"score"`
	TotalQuestions int                `json:"total_questions"`
	Reason         model.FinishReason `json:"reason"`
	Submitted      bool               `json:"submitted"`
	Error          string             `json:"error,omitempty"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
