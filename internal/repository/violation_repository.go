package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-cbt/internal/model"
)

// ViolationRepository handles the integrity violation log.
type ViolationRepository struct {
	pool *pgxpool.Pool
}

// NewViolationRepository creates a new ViolationRepository.
func NewViolationRepository(pool *pgxpool.Pool) *ViolationRepository {
	return &ViolationRepository{pool: pool}
}

var violationColumns = []string{"session_key", "name", "class_name", "token", "kind", "reason", "recorded_at"}

func violationRow(v *model.ViolationEvent) []any {
	return []any{
		v.SessionKey, v.Name, v.ClassName, strings.ToUpper(v.Token), v.Kind, v.Reason, time.UnixMilli(v.Timestamp),
	}
}

// InsertBatch copies a batch of violations in one statement.
func (r *ViolationRepository) InsertBatch(ctx context.Context, events []*model.ViolationEvent) error {
	rows := make([][]any, 0, len(events))
	for _, v := range events {
		rows = append(rows, violationRow(v))
	}
	_, err := r.pool.CopyFrom(ctx, pgx.Identifier{"exam_violations"}, violationColumns, pgx.CopyFromRows(rows))
	return err
}

// Insert stores a single violation.
func (r *ViolationRepository) Insert(ctx context.Context, v *model.ViolationEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO exam_violations (session_key, name, class_name, token, kind, reason, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`, violationRow(v)...)
	return err
}

// CountsByToken returns the number of violations per session key for a token.
func (r *ViolationRepository) CountsByToken(ctx context.Context, token string) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT session_key, COUNT(*)
		 FROM exam_violations
		 WHERE token = $1
		 GROUP BY session_key`, strings.ToUpper(token))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			key   string
			count int64
		)
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		counts[key] = count
	}
	return counts, rows.Err()
}
