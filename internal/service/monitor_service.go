package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-cbt/internal/config"
)

// MonitorEventType tags live monitor events.
type MonitorEventType string

const (
	MonitorEventStarted   MonitorEventType = "started"
	MonitorEventViolation MonitorEventType = "violation"
	MonitorEventAborted   MonitorEventType = "aborted"
	MonitorEventFinished  MonitorEventType = "finished"
)

// MonitorEvent is broadcast to administrators watching a token.
type MonitorEvent struct {
	Type       MonitorEventType `json:"type"`
	SessionKey string           `json:"session_key"`
	Name       string           `json:"name"`
	ClassName  string           `json:"class_name"`
	Resumed    bool             `json:"resumed,omitempty"`
	Score      *float64         `json:"score,omitempty"`
	Detail     string           `json:"detail,omitempty"`
	Timestamp  int64            `json:"timestamp"`
}

// ResultCounter counts stored results.
type ResultCounter interface {
	CountByToken(ctx context.Context, token string) (int, error)
}

// ViolationCounter counts logged violations per session key.
type ViolationCounter interface {
	CountsByToken(ctx context.Context, token string) (map[string]int64, error)
}

// MonitorStats is the stored-data part of a monitor snapshot.
type MonitorStats struct {
	TotalSubmitted  int              `json:"total_submitted"`
	TotalViolations int64            `json:"total_violations"`
	ViolationCounts map[string]int64 `json:"violation_counts"`
}

// MonitorService orchestrates live exam monitoring.
type MonitorService struct {
	rdb        *redis.Client
	results    ResultCounter
	violations ViolationCounter
}

// ErrStatsUnavailable is returned when the service was built without
// repositories.
var ErrStatsUnavailable = errors.New("monitor stats unavailable")

// NewMonitorService creates a new MonitorService.
func NewMonitorService(rdb *redis.Client, results ResultCounter, violations ViolationCounter) *MonitorService {
	return &MonitorService{rdb: rdb, results: results, violations: violations}
}

// Publish broadcasts an event on the token's monitor channel.
func (s *MonitorService) Publish(ctx context.Context, token string, event MonitorEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal monitor event: %w", err)
	}
	return s.rdb.Publish(ctx, config.CacheKey.ExamMonitorChannel(token), data).Err()
}

// Subscribe attaches to the token's monitor channel. The caller closes it.
func (s *MonitorService) Subscribe(ctx context.Context, token string) *redis.PubSub {
	return s.rdb.Subscribe(ctx, config.CacheKey.ExamMonitorChannel(token))
}

// GetStats fetches submitted and violation counts concurrently. Violation
// counts are best-effort.
func (s *MonitorService) GetStats(ctx context.Context, token string) (*MonitorStats, error) {
	if s.results == nil || s.violations == nil {
		return nil, ErrStatsUnavailable
	}
	stats := &MonitorStats{ViolationCounts: make(map[string]int64)}

	var (
		submitted    int
		counts       map[string]int64
		submittedErr error
		countsErr    error
		wg           sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		submitted, submittedErr = s.results.CountByToken(ctx, token)
	}()
	go func() {
		defer wg.Done()
		counts, countsErr = s.violations.CountsByToken(ctx, token)
	}()
	wg.Wait()

	if submittedErr != nil {
		return nil, submittedErr
	}
	stats.TotalSubmitted = submitted

	if countsErr == nil && counts != nil {
		stats.ViolationCounts = counts
		for _, c := range counts {
			stats.TotalViolations += c
		}
	}
	return stats, nil
}
