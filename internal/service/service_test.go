package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-cbt/internal/config"
	"github.com/stemsi/exstem-cbt/internal/exam"
	"github.com/stemsi/exstem-cbt/internal/model"
)

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:       "test-secret",
		JWTExpiry:       time.Hour,
		BcryptCost:      4,
		ViolationPolicy: config.ViolationPolicyReload,
		TrueLabel:       "Benar",
		FalseLabel:      "Salah",
	}
}

func samplePackage() *model.ExamPackage {
	return &model.ExamPackage{
		Token:            "MATH1",
		Subject:          "Matematika",
		TimeLimitMinutes: 30,
		Published:        true,
		Questions: []model.Question{
			{ID: "q1", Type: model.QuestionTypeSingleChoice, Text: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: model.IndexAnswer(1)},
			{ID: "q2", Type: model.QuestionTypeMultipleChoice, Text: "Bilangan genap?", Options: []string{"2", "3", "4"}, CorrectAnswer: model.IndicesAnswer(0, 2)},
			{ID: "q3", Type: model.QuestionTypeComplexCategory, Text: "Pernyataan", Options: []string{"a", "b"}, CorrectAnswer: model.FlagsAnswer(true, false)},
		},
	}
}

func sampleIdentity() model.StudentIdentity {
	return model.StudentIdentity{Name: "Ana", ClassName: "6A", School: "SD Negeri 1", BirthDate: "2014-05-01", Token: "MATH1"}
}

type fakeBankRepo struct {
	mu     sync.Mutex
	banks  map[string]*model.ExamPackage
	gets   int
	listed []model.ExamPackage
}

func (r *fakeBankRepo) GetByToken(_ context.Context, token string) (*model.ExamPackage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	p, ok := r.banks[token]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (r *fakeBankRepo) ListPublished(context.Context) ([]model.ExamPackage, error) {
	return r.listed, nil
}

func (r *fakeBankRepo) getCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gets
}

type staticPackages struct{ pkg *model.ExamPackage }

func (p staticPackages) GetPackageByToken(_ context.Context, token string) (*model.ExamPackage, error) {
	if token != p.pkg.Token {
		return nil, ErrExamNotFound
	}
	return p.pkg, nil
}

type memorySink struct {
	mu      sync.Mutex
	results []*model.QuizResult
}

func (s *memorySink) Submit(_ context.Context, r *model.QuizResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	return nil
}

func (s *memorySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

type nopLocker struct {
	mu       sync.Mutex
	released int
}

func (*nopLocker) RequestLock(context.Context) error { return nil }

func (l *nopLocker) ReleaseLock(context.Context) error {
	l.mu.Lock()
	l.released++
	l.mu.Unlock()
	return nil
}

type recordingObserver struct {
	mu         sync.Mutex
	ticks      []int
	violations []string
	policies   []config.ViolationPolicy
	results    []*model.QuizResult
}

func (o *recordingObserver) Tick(remaining int) {
	o.mu.Lock()
	o.ticks = append(o.ticks, remaining)
	o.mu.Unlock()
}

func (o *recordingObserver) Violation(_ exam.SignalKind, reason string, policy config.ViolationPolicy) {
	o.mu.Lock()
	o.violations = append(o.violations, reason)
	o.policies = append(o.policies, policy)
	o.mu.Unlock()
}

func (o *recordingObserver) Finalized(r *model.QuizResult, _ model.SubmitOutcome) {
	o.mu.Lock()
	o.results = append(o.results, r)
	o.mu.Unlock()
}

func (o *recordingObserver) finalizedCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.results)
}
