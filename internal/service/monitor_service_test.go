package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounters struct {
	submitted int
	counts    map[string]int64
	resultErr error
	countErr  error
}

func (f fakeCounters) CountByToken(context.Context, string) (int, error) {
	return f.submitted, f.resultErr
}

func (f fakeCounters) CountsByToken(context.Context, string) (map[string]int64, error) {
	return f.counts, f.countErr
}

func TestMonitorService_PublishSubscribe(t *testing.T) {
	rdb, _ := newRedis(t)
	svc := NewMonitorService(rdb, nil, nil)
	ctx := context.Background()

	sub := svc.Subscribe(ctx, "math1")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	score := 87.5
	require.NoError(t, svc.Publish(ctx, "MATH1", MonitorEvent{
		Type:       MonitorEventFinished,
		SessionKey: "cbt_session_ana6amath1",
		Score:      &score,
	}))

	select {
	case msg := <-sub.Channel():
		var event MonitorEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		assert.Equal(t, MonitorEventFinished, event.Type)
		require.NotNil(t, event.Score)
		assert.Equal(t, 87.5, *event.Score)
	case <-time.After(2 * time.Second):
		t.Fatal("no monitor event")
	}
}

func TestMonitorService_GetStats(t *testing.T) {
	rdb, _ := newRedis(t)
	counters := fakeCounters{
		submitted: 12,
		counts:    map[string]int64{"cbt_session_a": 2, "cbt_session_b": 1},
	}
	svc := NewMonitorService(rdb, counters, counters)

	stats, err := svc.GetStats(context.Background(), "MATH1")
	require.NoError(t, err)
	assert.Equal(t, 12, stats.TotalSubmitted)
	assert.Equal(t, int64(3), stats.TotalViolations)
	assert.Len(t, stats.ViolationCounts, 2)
}

func TestMonitorService_GetStatsViolationsBestEffort(t *testing.T) {
	rdb, _ := newRedis(t)
	counters := fakeCounters{submitted: 4, countErr: errors.New("timeout")}
	svc := NewMonitorService(rdb, counters, counters)

	stats, err := svc.GetStats(context.Background(), "MATH1")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalSubmitted)
	assert.Zero(t, stats.TotalViolations)
	assert.NotNil(t, stats.ViolationCounts)
}

func TestMonitorService_GetStatsResultError(t *testing.T) {
	rdb, _ := newRedis(t)
	counters := fakeCounters{resultErr: errors.New("db down")}
	svc := NewMonitorService(rdb, counters, counters)

	_, err := svc.GetStats(context.Background(), "MATH1")
	assert.Error(t, err)
}

func TestMonitorService_GetStatsWithoutRepositories(t *testing.T) {
	rdb, _ := newRedis(t)
	svc := NewMonitorService(rdb, nil, nil)

	_, err := svc.GetStats(context.Background(), "MATH1")
	assert.ErrorIs(t, err, ErrStatsUnavailable)
}
