package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-cbt/internal/model"
)

// QuestionBankRepository handles question bank data access.
type QuestionBankRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionBankRepository creates a new QuestionBankRepository.
func NewQuestionBankRepository(pool *pgxpool.Pool) *QuestionBankRepository {
	return &QuestionBankRepository{pool: pool}
}

const questionBankColumns = `id, token, subject, time_limit_minutes, questions, published, created_at, updated_at`

// GetByToken retrieves a question bank by its access token (case-insensitive).
// Returns pgx.ErrNoRows when no bank uses the token.
func (r *QuestionBankRepository) GetByToken(ctx context.Context, token string) (*model.ExamPackage, error) {
	p := &model.ExamPackage{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+questionBankColumns+`
		 FROM question_banks WHERE token = $1`, strings.ToUpper(token),
	).Scan(&p.ID, &p.Token, &p.Subject, &p.TimeLimitMinutes, &p.Questions, &p.Published, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPublished returns all published question banks.
// Used for cache prewarming on application startup.
func (r *QuestionBankRepository) ListPublished(ctx context.Context) ([]model.ExamPackage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionBankColumns+`
		 FROM question_banks WHERE published = TRUE
		 ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var banks []model.ExamPackage
	for rows.Next() {
		var p model.ExamPackage
		if err := rows.Scan(&p.ID, &p.Token, &p.Subject, &p.TimeLimitMinutes, &p.Questions, &p.Published, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		banks = append(banks, p)
	}
	return banks, rows.Err()
}

// Upsert creates or replaces the question bank behind p.Token and fills in
// the stored ID and timestamps.
func (r *QuestionBankRepository) Upsert(ctx context.Context, p *model.ExamPackage) error {
	p.Token = strings.ToUpper(p.Token)
	return r.pool.QueryRow(ctx,
		`INSERT INTO question_banks (token, subject, time_limit_minutes, questions, published)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (token) DO UPDATE SET
		   subject = EXCLUDED.subject,
		   time_limit_minutes = EXCLUDED.time_limit_minutes,
		   questions = EXCLUDED.questions,
		   published = EXCLUDED.published,
		   updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		p.Token, p.Subject, p.TimeLimitMinutes, p.Questions, p.Published,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}
