package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-cbt/internal/model"
)

// ResultRepository handles quiz result data access.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

var resultColumns = []string{
	"id", "name", "class_name", "school", "birth_date", "token", "subject",
	"score", "total_questions", "answers", "manual_corrections",
	"duration_seconds", "reason", "corrected", "submitted_at",
}

func resultRow(r *model.QuizResult) ([]any, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("result id %q: %w", r.ID, err)
	}
	return []any{
		id, r.Identity.Name, r.Identity.ClassName, r.Identity.School, r.Identity.BirthDate,
		strings.ToUpper(r.Identity.Token), r.Subject,
		r.Score, r.TotalQuestions, r.Answers, r.ManualCorrections,
		r.DurationSeconds, string(r.Reason), r.Corrected, time.UnixMilli(r.SubmittedAt),
	}, nil
}

// InsertBatch copies a batch of results in one statement. The batch is
// all-or-nothing.
func (r *ResultRepository) InsertBatch(ctx context.Context, results []*model.QuizResult) error {
	rows := make([][]any, 0, len(results))
	for _, res := range results {
		row, err := resultRow(res)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	_, err := r.pool.CopyFrom(ctx, pgx.Identifier{"quiz_results"}, resultColumns, pgx.CopyFromRows(rows))
	return err
}

// Insert stores a single result. A result that already exists is left as is.
func (r *ResultRepository) Insert(ctx context.Context, res *model.QuizResult) error {
	row, err := resultRow(res)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO quiz_results (`+strings.Join(resultColumns, ", ")+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (id) DO NOTHING`, row...)
	return err
}

// ListByToken retrieves results for one access token, newest first.
func (r *ResultRepository) ListByToken(ctx context.Context, token string, limit, offset int) ([]model.ResultRow, int, error) {
	token = strings.ToUpper(token)

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM quiz_results WHERE token = $1`, token,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, name, class_name, school, birth_date, token, subject,
		        score, total_questions, duration_seconds, reason, corrected, submitted_at
		 FROM quiz_results
		 WHERE token = $1
		 ORDER BY submitted_at DESC
		 LIMIT $2 OFFSET $3`, token, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results := make([]model.ResultRow, 0)
	for rows.Next() {
		var (
			row         model.ResultRow
			id          uuid.UUID
			submittedAt time.Time
		)
		if err := rows.Scan(&id, &row.Name, &row.ClassName, &row.School, &row.BirthDate, &row.Token, &row.Subject,
			&row.Score, &row.TotalQuestions, &row.DurationSeconds, &row.Reason, &row.Corrected, &submittedAt); err != nil {
			return nil, 0, err
		}
		row.ID = id.String()
		row.SubmittedAt = submittedAt.UnixMilli()
		results = append(results, row)
	}
	return results, total, rows.Err()
}

// CountByToken returns the number of stored results for a token.
func (r *ResultRepository) CountByToken(ctx context.Context, token string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM quiz_results WHERE token = $1`, strings.ToUpper(token),
	).Scan(&n)
	return n, err
}
