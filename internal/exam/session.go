package exam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/model"
	"github.com/stemsi/exstem-cbt/internal/storage"
)

// Session errors.
var (
	ErrLockFailed       = errors.New("fullscreen lock was not acquired")
	ErrAlreadyStarted   = errors.New("session already started")
	ErrNotActive        = errors.New("session is not active")
	ErrAlreadyFinalized = errors.New("session is already being finalized")
	ErrUnknownQuestion  = errors.New("unknown question")
)

const persistTimeout = 3 * time.Second

// State enumerates the lifecycle of a Session.
type State int32

const (
	StateNotStarted State = iota
	StateActive
	StateFinalizing
	StateDone
	// StateAborted is a session torn down without a result; its record stays
	// in storage so it can be resumed.
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NOT_STARTED"
	case StateActive:
		return "ACTIVE"
	case StateFinalizing:
		return "FINALIZING"
	case StateDone:
		return "DONE"
	case StateAborted:
		return "ABORTED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Locker is the fullscreen/lock primitive of the client.
type Locker interface {
	RequestLock(ctx context.Context) error
	ReleaseLock(ctx context.Context) error
}

// ResultSink receives the finished result. The session does not retry.
type ResultSink interface {
	Submit(ctx context.Context, result *model.QuizResult) error
}

// Config wires a Session to its collaborators.
type Config struct {
	Identity         model.StudentIdentity
	Subject          string
	Questions        []model.Question
	TimeLimitMinutes int

	Storage storage.Storage
	Sink    ResultSink
	Clock   Clock
	Sources []Source
	Log     zerolog.Logger

	// OnViolation receives integrity violations; the caller decides between
	// Abort and Finish.
	OnViolation func(kind SignalKind, reason string)
	// OnTick receives every change of the remaining seconds.
	OnTick func(remaining int)
	// OnFinalized receives results of finalizations triggered by the timer.
	OnFinalized func(result *model.QuizResult, outcome model.SubmitOutcome)
}

// Session is one student's exam attempt.
type Session struct {
	cfg       Config
	key       string
	questions map[string]*model.Question

	state     atomic.Int32
	startMu   sync.Mutex
	editMu    sync.RWMutex
	persistMu sync.Mutex

	store       *AnswerStore
	countdown   atomic.Pointer[Countdown]
	monitor     *Monitor
	locker      Locker
	unsubscribe func()
	startedAt   time.Time

	log zerolog.Logger
}

// NewSession creates a session in StateNotStarted.
func NewSession(cfg Config) *Session {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Storage == nil {
		cfg.Storage = storage.NewMemoryStorage()
	}

	key := DeriveSessionKey(cfg.Identity)
	s := &Session{
		cfg:       cfg,
		key:       key,
		questions: make(map[string]*model.Question, len(cfg.Questions)),
		store:     NewAnswerStore(),
		log:       cfg.Log.With().Str("component", "exam_session").Str("session_key", key).Logger(),
	}
	for i := range cfg.Questions {
		s.questions[cfg.Questions[i].ID] = &cfg.Questions[i]
	}
	s.monitor = NewMonitor(s.handleViolation, s.finalizing)
	s.countdown.Store(NewCountdown(cfg.Clock, cfg.TimeLimitMinutes*60, s.handleTick, s.handleExpire))
	return s
}

// Key returns the storage key of this session's record.
func (s *Session) Key() string { return s.key }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Snapshot returns the latest committed answers and flags.
func (s *Session) Snapshot() StoreSnapshot { return s.store.Snapshot() }

// Remaining returns the seconds left on the countdown.
func (s *Session) Remaining() int { return s.countdown.Load().Remaining() }

// Start acquires the lock and enters StateActive. A non-nil resume record
// seeds answers, flags and remaining time verbatim.
func (s *Session) Start(ctx context.Context, locker Locker, resume *model.SessionRecord) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if s.State() != StateNotStarted {
		return ErrAlreadyStarted
	}

	if err := locker.RequestLock(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrLockFailed, err)
	}
	s.locker = locker

	if resume != nil {
		s.store.Seed(resume.Answers, resume.Doubtfuls)
		s.countdown.Store(NewCountdown(s.cfg.Clock, resume.TimeLeftSeconds, s.handleTick, s.handleExpire))
	}

	s.startedAt = s.cfg.Clock.Now()
	s.unsubscribe = s.store.Subscribe(func(StoreSnapshot) { s.persist() })
	s.monitor.Attach(s.cfg.Sources...)

	s.state.Store(int32(StateActive))
	s.persist()
	// Started last: a resumed record with no time left expires immediately
	// and must find the session active.
	s.countdown.Load().Start()

	s.log.Info().
		Bool("resumed", resume != nil).
		Int("time_left", s.Remaining()).
		Msg("Session started")
	return nil
}

// SetAnswer replaces the answer of a question. Once finalization has begun,
// edits are rejected; every accepted edit is part of the scored snapshot.
func (s *Session) SetAnswer(questionID string, value model.AnswerValue) error {
	s.editMu.RLock()
	defer s.editMu.RUnlock()

	if s.State() != StateActive {
		return ErrNotActive
	}
	if _, ok := s.questions[questionID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	s.store.SetAnswer(questionID, value)
	return nil
}

// SetDoubtful replaces the doubtful flag of a question.
func (s *Session) SetDoubtful(questionID string, flagged bool) error {
	s.editMu.RLock()
	defer s.editMu.RUnlock()

	if s.State() != StateActive {
		return ErrNotActive
	}
	if _, ok := s.questions[questionID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	s.store.SetDoubtful(questionID, flagged)
	return nil
}

// Finish finalizes the session exactly once. Concurrent or repeated callers
// get ErrAlreadyFinalized. The session reaches StateDone whether or not the
// sink accepted the result.
func (s *Session) Finish(ctx context.Context, reason model.FinishReason) (*model.QuizResult, model.SubmitOutcome, error) {
	if !s.state.CompareAndSwap(int32(StateActive), int32(StateFinalizing)) {
		if s.State() == StateNotStarted {
			return nil, model.SubmitOutcome{}, ErrNotActive
		}
		return nil, model.SubmitOutcome{}, ErrAlreadyFinalized
	}

	// Wait for in-flight edits so the snapshot below includes them.
	s.editMu.Lock()
	s.editMu.Unlock()

	s.teardown(ctx)

	s.persistMu.Lock()
	rmCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	if err := s.cfg.Storage.Remove(rmCtx, s.key); err != nil {
		s.log.Warn().Err(err).Msg("Failed to remove session record")
	}
	cancel()
	s.persistMu.Unlock()

	snap := s.store.Snapshot()
	now := s.cfg.Clock.Now()

	result := &model.QuizResult{
		ID:                uuid.NewString(),
		Identity:          s.cfg.Identity,
		Subject:           s.cfg.Subject,
		Score:             Score(s.cfg.Questions, snap.Answers),
		TotalQuestions:    len(s.cfg.Questions),
		Answers:           snap.Answers,
		ManualCorrections: map[string]bool{},
		SubmittedAt:       now.UnixMilli(),
		DurationSeconds:   int(now.Sub(s.startedAt) / time.Second),
		Corrected:         false,
		Reason:            reason,
	}

	outcome := model.SubmitOutcome{Success: true}
	if s.cfg.Sink != nil {
		if err := s.cfg.Sink.Submit(ctx, result); err != nil {
			s.log.Error().Err(err).Str("result_id", result.ID).Msg("Result submission failed")
			outcome = model.SubmitOutcome{Success: false, Error: err.Error()}
		}
	}

	s.state.Store(int32(StateDone))

	s.log.Info().
		Str("reason", string(reason)).
		Float64("score", result.Score).
		Int("total", result.TotalQuestions).
		Bool("submitted", outcome.Success).
		Msg("Session finalized")

	return result, outcome, nil
}

// Abort tears the session down without producing a result. The persisted
// record is kept, so the student can resume after reloading.
func (s *Session) Abort(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateActive), int32(StateAborted)) {
		return ErrNotActive
	}
	s.editMu.Lock()
	s.editMu.Unlock()

	s.teardown(ctx)
	s.log.Info().Msg("Session aborted")
	return nil
}

// teardown stops every event source of an active session.
func (s *Session) teardown(ctx context.Context) {
	s.countdown.Load().Stop()
	s.monitor.Detach()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if s.locker != nil {
		if err := s.locker.ReleaseLock(ctx); err != nil {
			s.log.Debug().Err(err).Msg("Lock release failed")
		}
	}
}

// persist mirrors the current state to storage while active.
func (s *Session) persist() {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if s.State() != StateActive {
		return
	}

	snap := s.store.Snapshot()
	rec := model.SessionRecord{
		Answers:           snap.Answers,
		Doubtfuls:         snap.Doubtfuls,
		TimeLeftSeconds:   s.Remaining(),
		LastUpdateEpochMs: s.cfg.Clock.Now().UnixMilli(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		s.log.Error().Err(err).Msg("Marshal session record")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.cfg.Storage.Set(ctx, s.key, data); err != nil {
		s.log.Warn().Err(err).Msg("Session record write failed")
	}
}

func (s *Session) finalizing() bool {
	st := s.State()
	return st == StateFinalizing || st == StateDone
}

func (s *Session) handleTick(remaining int) {
	s.persist()
	if s.cfg.OnTick != nil {
		s.cfg.OnTick(remaining)
	}
}

func (s *Session) handleExpire() {
	result, outcome, err := s.Finish(context.Background(), model.FinishReasonTimeout)
	if err != nil {
		// Another path finalized first.
		return
	}
	if s.cfg.OnFinalized != nil {
		s.cfg.OnFinalized(result, outcome)
	}
}

func (s *Session) handleViolation(kind SignalKind, reason string) {
	s.log.Warn().Str("kind", string(kind)).Str("reason", reason).Msg("Integrity violation")
	if s.cfg.OnViolation != nil {
		s.cfg.OnViolation(kind, reason)
	}
}
