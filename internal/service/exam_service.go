package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/config"
	"github.com/stemsi/exstem-cbt/internal/model"
)

// Domain Errors
var (
	ErrExamNotFound     = errors.New("no exam uses this token")
	ErrExamNotPublished = errors.New("exam is not published")
	ErrNoQuestions      = errors.New("exam has no questions")
)

// QuestionBankReader is the read side of the question bank store.
type QuestionBankReader interface {
	GetByToken(ctx context.Context, token string) (*model.ExamPackage, error)
	ListPublished(ctx context.Context) ([]model.ExamPackage, error)
}

// ExamService supplies published exam packages, cached in Redis.
type ExamService struct {
	repo QuestionBankReader
	rdb  *redis.Client
	cfg  *config.Config
	log  zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(repo QuestionBankReader, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *ExamService {
	return &ExamService{
		repo: repo,
		rdb:  rdb,
		cfg:  cfg,
		log:  log.With().Str("component", "exam_service").Logger(),
	}
}

// GetPackageByToken returns the published package for a token. Redis is
// checked first; on a miss or a corrupt entry the package is loaded from
// PostgreSQL and the cache is healed.
func (s *ExamService) GetPackageByToken(ctx context.Context, token string) (*model.ExamPackage, error) {
	key := config.CacheKey.ExamPackageKey(token)

	data, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var pkg model.ExamPackage
		if jsonErr := json.Unmarshal(data, &pkg); jsonErr == nil {
			return &pkg, nil
		}
		s.log.Warn().Str("token", token).Msg("Corrupt exam cache entry, reloading")
		s.rdb.Del(ctx, key)
	case !errors.Is(err, redis.Nil):
		s.log.Warn().Err(err).Str("token", token).Msg("Exam cache read failed, falling back to database")
	}

	pkg, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get question bank: %w", err)
	}
	if !pkg.Published {
		return nil, ErrExamNotPublished
	}
	if len(pkg.Questions) == 0 {
		return nil, ErrNoQuestions
	}

	if err := s.cachePackage(ctx, pkg); err != nil {
		s.log.Warn().Err(err).Str("token", pkg.Token).Msg("Failed to heal exam cache")
	}
	return pkg, nil
}

// GetPaper returns the student-facing question paper, without answer keys.
func (s *ExamService) GetPaper(ctx context.Context, token string) (*model.ExamPaper, error) {
	pkg, err := s.GetPackageByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	questions := make([]model.QuestionForStudent, len(pkg.Questions))
	for i, q := range pkg.Questions {
		questions[i] = q.ForStudent(s.cfg.TrueLabel, s.cfg.FalseLabel)
	}

	return &model.ExamPaper{
		Token:            pkg.Token,
		Subject:          pkg.Subject,
		TimeLimitMinutes: pkg.TimeLimitMinutes,
		Questions:        questions,
	}, nil
}

// InvalidateCache drops the cached package so the next read reloads it.
func (s *ExamService) InvalidateCache(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, config.CacheKey.ExamPackageKey(token)).Err()
}

// PrewarmAllCaches loads all published packages into Redis on application
// startup.
func (s *ExamService) PrewarmAllCaches(ctx context.Context) error {
	banks, err := s.repo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published question banks: %w", err)
	}

	if len(banks) == 0 {
		s.log.Info().Msg("No published exams to prewarm")
		return nil
	}

	s.log.Info().Int("count", len(banks)).Msg("Prewarming published exams...")

	warmed := 0
	for i := range banks {
		if len(banks[i].Questions) == 0 {
			s.log.Warn().Str("token", banks[i].Token).Msg("Published exam has no questions, skipping")
			continue
		}
		if err := s.cachePackage(ctx, &banks[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("token", banks[i].Token).
				Msg("Failed to warm exam, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(banks)).
		Msg("Prewarming complete")
	return nil
}

func (s *ExamService) cachePackage(ctx context.Context, pkg *model.ExamPackage) error {
	data, err := json.Marshal(pkg)
	if err != nil {
		return fmt.Errorf("marshal package: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.ExamPackageKey(pkg.Token), data, 0).Err(); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}
	s.log.Debug().
		Str("token", pkg.Token).
		Int("questions", len(pkg.Questions)).
		Msg("Cache warmed")
	return nil
}
