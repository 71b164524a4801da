package exam

import (
	"sync"

	"github.com/stemsi/exstem-cbt/internal/model"
)

// StoreSnapshot is a deep copy of the store at one commit.
type StoreSnapshot struct {
	Answers   map[string]model.AnswerValue
	Doubtfuls map[string]bool
	Version   uint64
}

// AnswerStore holds the student's answers and doubtful flags. Every commit
// bumps Version and notifies subscribers in commit order.
type AnswerStore struct {
	notifyMu sync.Mutex // serializes commit+notify so observers see commits in order

	mu        sync.RWMutex
	answers   map[string]model.AnswerValue
	doubtfuls map[string]bool
	version   uint64

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(StoreSnapshot)
}

// NewAnswerStore creates an empty store.
func NewAnswerStore() *AnswerStore {
	return &AnswerStore{
		answers:   make(map[string]model.AnswerValue),
		doubtfuls: make(map[string]bool),
		subs:      make(map[int]func(StoreSnapshot)),
	}
}

// Seed replaces the whole content, e.g. from a recovered record.
func (s *AnswerStore) Seed(answers map[string]model.AnswerValue, doubtfuls map[string]bool) {
	s.commit(func() {
		s.answers = make(map[string]model.AnswerValue, len(answers))
		for k, v := range answers {
			s.answers[k] = v.Clone()
		}
		s.doubtfuls = make(map[string]bool, len(doubtfuls))
		for k, v := range doubtfuls {
			s.doubtfuls[k] = v
		}
	})
}

// SetAnswer replaces the answer of one question.
func (s *AnswerStore) SetAnswer(questionID string, value model.AnswerValue) {
	s.commit(func() { s.answers[questionID] = value.Clone() })
}

// SetDoubtful replaces the doubtful flag of one question.
func (s *AnswerStore) SetDoubtful(questionID string, flagged bool) {
	s.commit(func() { s.doubtfuls[questionID] = flagged })
}

// Answer returns the current answer of one question.
func (s *AnswerStore) Answer(questionID string) (model.AnswerValue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.answers[questionID]
	return v.Clone(), ok
}

// Snapshot returns the latest committed state.
func (s *AnswerStore) Snapshot() StoreSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers fn for every later commit. The returned func removes it.
func (s *AnswerStore) Subscribe(fn func(StoreSnapshot)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *AnswerStore) commit(mutate func()) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	mutate()
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.subMu.Lock()
	subs := make([]func(StoreSnapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (s *AnswerStore) snapshotLocked() StoreSnapshot {
	snap := StoreSnapshot{
		Answers:   make(map[string]model.AnswerValue, len(s.answers)),
		Doubtfuls: make(map[string]bool, len(s.doubtfuls)),
		Version:   s.version,
	}
	for k, v := range s.answers {
		snap.Answers[k] = v.Clone()
	}
	for k, v := range s.doubtfuls {
		snap.Doubtfuls[k] = v
	}
	return snap
}
