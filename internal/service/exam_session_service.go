package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/config"
	"github.com/stemsi/exstem-cbt/internal/exam"
	"github.com/stemsi/exstem-cbt/internal/model"
	"github.com/stemsi/exstem-cbt/internal/storage"
)

// ErrSessionInUse is returned when the same session key is already open.
var ErrSessionInUse = errors.New("session is already open on another connection")

const sideEffectTimeout = 3 * time.Second

// PackageProvider supplies published exam packages.
type PackageProvider interface {
	GetPackageByToken(ctx context.Context, token string) (*model.ExamPackage, error)
}

// SessionObserver receives the events of one live session, typically the
// student's websocket connection.
type SessionObserver interface {
	Tick(remaining int)
	Violation(kind exam.SignalKind, reason string, policy config.ViolationPolicy)
	Finalized(result *model.QuizResult, outcome model.SubmitOutcome)
}

// LiveSession is an open exam session together with the package it runs on.
type LiveSession struct {
	*exam.Session
	Identity model.StudentIdentity
	Package  *model.ExamPackage
	Signals  *exam.SignalBus

	observer SessionObserver
}

// LiveSessionInfo describes a live session for the admin monitor.
type LiveSessionInfo struct {
	SessionKey string `json:"session_key"`
	Name       string `json:"name"`
	ClassName  string `json:"class_name"`
	School     string `json:"school"`
	State      string `json:"state"`
	Remaining  int    `json:"time_left_seconds"`
	Answered   int    `json:"answered_count"`
	Doubtful   int    `json:"doubtful_count"`
}

// ExamSessionService keeps one live exam.Session per session key and wires
// it to storage, the result sink, the violation log and the admin monitor.
type ExamSessionService struct {
	exams   PackageProvider
	storage storage.Storage
	sink    exam.ResultSink
	rdb     *redis.Client
	monitor *MonitorService
	policy  config.ViolationPolicy
	clock   exam.Clock
	log     zerolog.Logger

	mu   sync.Mutex
	live map[string]*LiveSession
}

// NewExamSessionService creates a new ExamSessionService. monitor may be nil.
func NewExamSessionService(
	exams PackageProvider,
	store storage.Storage,
	sink exam.ResultSink,
	rdb *redis.Client,
	monitor *MonitorService,
	cfg *config.Config,
	log zerolog.Logger,
) *ExamSessionService {
	return &ExamSessionService{
		exams:   exams,
		storage: store,
		sink:    sink,
		rdb:     rdb,
		monitor: monitor,
		policy:  cfg.ViolationPolicy,
		clock:   exam.SystemClock{},
		log:     log.With().Str("component", "exam_session_service").Logger(),
		live:    make(map[string]*LiveSession),
	}
}

// Resumable returns the unfinished record of a student, if any.
func (s *ExamSessionService) Resumable(ctx context.Context, id model.StudentIdentity) (*model.SessionRecord, bool) {
	return exam.Recover(ctx, s.storage, exam.DeriveSessionKey(id), s.log)
}

// Open creates the live session of a student. Only one connection may hold a
// session key at a time.
func (s *ExamSessionService) Open(ctx context.Context, id model.StudentIdentity, observer SessionObserver) (*LiveSession, error) {
	pkg, err := s.exams.GetPackageByToken(ctx, id.Token)
	if err != nil {
		return nil, err
	}

	key := exam.DeriveSessionKey(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.live[key]; ok {
		switch existing.State() {
		case exam.StateNotStarted, exam.StateActive, exam.StateFinalizing:
			return nil, ErrSessionInUse
		}
	}

	ls := &LiveSession{
		Identity: id,
		Package:  pkg,
		Signals:  exam.NewSignalBus(),
		observer: observer,
	}
	ls.Session = exam.NewSession(exam.Config{
		Identity:         id,
		Subject:          pkg.Subject,
		Questions:        pkg.Questions,
		TimeLimitMinutes: pkg.TimeLimitMinutes,
		Storage:          s.storage,
		Sink:             s.sink,
		Clock:            s.clock,
		Sources:          []exam.Source{ls.Signals},
		Log:              s.log,
		OnViolation: func(kind exam.SignalKind, reason string) {
			s.handleViolation(ls, kind, reason)
		},
		OnTick: observer.Tick,
		OnFinalized: func(result *model.QuizResult, outcome model.SubmitOutcome) {
			s.finalized(ls, result)
			observer.Finalized(result, outcome)
		},
	})
	s.live[key] = ls

	return ls, nil
}

// Start enters the exam and reports whether a record was resumed. With resume
// set, the unfinished record seeds the session; otherwise, or when no usable
// record exists, the session starts fresh and overwrites any old record.
func (s *ExamSessionService) Start(ctx context.Context, ls *LiveSession, locker exam.Locker, resume bool) (bool, error) {
	var rec *model.SessionRecord
	if resume {
		rec, _ = exam.Recover(ctx, s.storage, ls.Key(), s.log)
	}

	if err := ls.Start(ctx, locker, rec); err != nil {
		return false, err
	}

	s.publish(ls, MonitorEvent{Type: MonitorEventStarted, Resumed: rec != nil})
	return rec != nil, nil
}

// Finish finalizes the session on the student's request.
func (s *ExamSessionService) Finish(ctx context.Context, ls *LiveSession, reason model.FinishReason) (*model.QuizResult, model.SubmitOutcome, error) {
	result, outcome, err := ls.Finish(ctx, reason)
	if err != nil {
		return nil, model.SubmitOutcome{}, err
	}
	s.finalized(ls, result)
	return result, outcome, nil
}

// Close releases the live session when its connection ends. An active
// session is aborted and stays resumable.
func (s *ExamSessionService) Close(ctx context.Context, ls *LiveSession) {
	if ls.State() == exam.StateActive {
		if err := ls.Abort(ctx); err == nil {
			s.publish(ls, MonitorEvent{Type: MonitorEventAborted})
		}
	}
	s.unregister(ls)
}

// LiveCount returns the number of open sessions across all tokens.
func (s *ExamSessionService) LiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// LiveSessions lists the open sessions for one token.
func (s *ExamSessionService) LiveSessions(token string) []LiveSessionInfo {
	s.mu.Lock()
	sessions := make([]*LiveSession, 0, len(s.live))
	for _, ls := range s.live {
		if ls.Identity.Token == token {
			sessions = append(sessions, ls)
		}
	}
	s.mu.Unlock()

	out := make([]LiveSessionInfo, 0, len(sessions))
	for _, ls := range sessions {
		snap := ls.Snapshot()
		doubtful := 0
		for _, flagged := range snap.Doubtfuls {
			if flagged {
				doubtful++
			}
		}
		out = append(out, LiveSessionInfo{
			SessionKey: ls.Key(),
			Name:       ls.Identity.Name,
			ClassName:  ls.Identity.ClassName,
			School:     ls.Identity.School,
			State:      ls.State().String(),
			Remaining:  ls.Remaining(),
			Answered:   len(snap.Answers),
			Doubtful:   doubtful,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionKey < out[j].SessionKey })
	return out
}

func (s *ExamSessionService) handleViolation(ls *LiveSession, kind exam.SignalKind, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	event := &model.ViolationEvent{
		SessionKey: ls.Key(),
		Name:       ls.Identity.Name,
		ClassName:  ls.Identity.ClassName,
		Token:      ls.Identity.Token,
		Kind:       string(kind),
		Reason:     reason,
		Timestamp:  s.clock.Now().UnixMilli(),
	}
	if err := s.enqueueViolation(ctx, event); err != nil {
		s.log.Error().Err(err).Str("session_key", ls.Key()).Msg("Failed to queue violation")
	}
	s.publish(ls, MonitorEvent{Type: MonitorEventViolation, Detail: reason})

	ls.observer.Violation(kind, reason, s.policy)

	switch s.policy {
	case config.ViolationPolicySubmit:
		result, outcome, err := ls.Finish(ctx, model.FinishReasonViolation)
		if err != nil {
			// Already finalizing through another path.
			return
		}
		s.finalized(ls, result)
		ls.observer.Finalized(result, outcome)
	default:
		if err := ls.Abort(ctx); err == nil {
			s.publish(ls, MonitorEvent{Type: MonitorEventAborted, Detail: reason})
		}
	}
}

func (s *ExamSessionService) enqueueViolation(ctx context.Context, event *model.ViolationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal violation: %w", err)
	}
	return s.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, data).Err()
}

func (s *ExamSessionService) finalized(ls *LiveSession, result *model.QuizResult) {
	score := result.Score
	s.publish(ls, MonitorEvent{Type: MonitorEventFinished, Score: &score, Detail: string(result.Reason)})
	s.unregister(ls)
}

func (s *ExamSessionService) unregister(ls *LiveSession) {
	s.mu.Lock()
	if s.live[ls.Key()] == ls {
		delete(s.live, ls.Key())
	}
	s.mu.Unlock()
}

func (s *ExamSessionService) publish(ls *LiveSession, event MonitorEvent) {
	if s.monitor == nil {
		return
	}
	event.SessionKey = ls.Key()
	event.Name = ls.Identity.Name
	event.ClassName = ls.Identity.ClassName
	event.Timestamp = s.clock.Now().UnixMilli()

	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()
	if err := s.monitor.Publish(ctx, ls.Identity.Token, event); err != nil {
		s.log.Debug().Err(err).Str("type", string(event.Type)).Msg("Monitor publish failed")
	}
}
