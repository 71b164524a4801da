package exam

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stemsi/exstem-cbt/internal/model"
	"github.com/stemsi/exstem-cbt/internal/storage"
)

type fakeTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               { t.stopped.Store(true) }

// fakeClock only moves when told to. Tickers it hands out never fire on
// their own; tests drive countdowns through Countdown.Tick.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

func (c *fakeClock) NewTicker(time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time)}
	c.tickers = append(c.tickers, t)
	return t
}

// countingStorage wraps MemoryStorage and counts writes and removals.
type countingStorage struct {
	*storage.MemoryStorage
	sets    atomic.Int32
	removes atomic.Int32
}

func newCountingStorage() *countingStorage {
	return &countingStorage{MemoryStorage: storage.NewMemoryStorage()}
}

func (s *countingStorage) Set(ctx context.Context, key string, value []byte) error {
	s.sets.Add(1)
	return s.MemoryStorage.Set(ctx, key, value)
}

func (s *countingStorage) Remove(ctx context.Context, key string) error {
	s.removes.Add(1)
	return s.MemoryStorage.Remove(ctx, key)
}

type fakeLocker struct {
	err      error
	requests atomic.Int32
	releases atomic.Int32
}

func (l *fakeLocker) RequestLock(context.Context) error {
	l.requests.Add(1)
	return l.err
}

func (l *fakeLocker) ReleaseLock(context.Context) error {
	l.releases.Add(1)
	return nil
}

type recordingSink struct {
	mu      sync.Mutex
	err     error
	results []*model.QuizResult
}

func (s *recordingSink) Submit(_ context.Context, r *model.QuizResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

var errSinkDown = errors.New("sink down")

func sampleQuestions() []model.Question {
	return []model.Question{
		{ID: "q1", Type: model.QuestionTypeSingleChoice, CorrectAnswer: model.IndexAnswer(1)},
		{ID: "q2", Type: model.QuestionTypeMultipleChoice, CorrectAnswer: model.IndicesAnswer(0, 1)},
		{ID: "q3", Type: model.QuestionTypeComplexCategory, CorrectAnswer: model.FlagsAnswer(true, false)},
	}
}

func sampleIdentity() model.StudentIdentity {
	return model.StudentIdentity{Name: "Ana", ClassName: "6A", School: "SD Negeri 1", Token: "MATH1"}
}
