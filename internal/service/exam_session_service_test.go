package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/config"
	"github.com/stemsi/exstem-cbt/internal/exam"
	"github.com/stemsi/exstem-cbt/internal/model"
	"github.com/stemsi/exstem-cbt/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionServiceFixture struct {
	svc   *ExamSessionService
	store *storage.MemoryStorage
	sink  *memorySink
	mr    *miniredis.Miniredis
}

func newSessionServiceFixture(t *testing.T, policy config.ViolationPolicy) *sessionServiceFixture {
	t.Helper()
	rdb, mr := newRedis(t)
	cfg := testConfig()
	cfg.ViolationPolicy = policy

	f := &sessionServiceFixture{
		store: storage.NewMemoryStorage(),
		sink:  &memorySink{},
		mr:    mr,
	}
	monitor := NewMonitorService(rdb, nil, nil)
	f.svc = NewExamSessionService(staticPackages{pkg: samplePackage()}, f.store, f.sink, rdb, monitor, cfg, zerolog.Nop())
	return f
}

func (f *sessionServiceFixture) open(t *testing.T, obs SessionObserver) *LiveSession {
	t.Helper()
	ls, err := f.svc.Open(context.Background(), sampleIdentity(), obs)
	require.NoError(t, err)
	t.Cleanup(func() { f.svc.Close(context.Background(), ls) })
	return ls
}

func (f *sessionServiceFixture) start(t *testing.T, ls *LiveSession, locker exam.Locker, resume bool) bool {
	t.Helper()
	resumed, err := f.svc.Start(context.Background(), ls, locker, resume)
	require.NoError(t, err)
	return resumed
}

func TestExamSessionService_FinishFlow(t *testing.T) {
	f := newSessionServiceFixture(t, config.ViolationPolicyReload)
	ctx := context.Background()
	obs := &recordingObserver{}

	ls := f.open(t, obs)
	f.start(t, ls, &nopLocker{}, false)
	assert.Len(t, f.svc.LiveSessions("MATH1"), 1)

	require.NoError(t, ls.SetAnswer("q1", model.IndexAnswer(1)))
	require.NoError(t, ls.SetAnswer("q2", model.IndicesAnswer(2, 0)))
	require.NoError(t, ls.SetAnswer("q3", model.FlagsAnswer(true, false)))

	result, outcome, err := f.svc.Finish(ctx, ls, model.FinishReasonManual)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, 100.0, result.Score)
	assert.Equal(t, 1, f.sink.count())
	assert.Empty(t, f.svc.LiveSessions("MATH1"))

	_, ok := f.svc.Resumable(ctx, sampleIdentity())
	assert.False(t, ok)

	_, _, err = f.svc.Finish(ctx, ls, model.FinishReasonManual)
	assert.ErrorIs(t, err, exam.ErrAlreadyFinalized)
}

func TestExamSessionService_OneConnectionPerKey(t *testing.T) {
	f := newSessionServiceFixture(t, config.ViolationPolicyReload)
	ctx := context.Background()

	ls := f.open(t, &recordingObserver{})
	_, err := f.svc.Open(ctx, sampleIdentity(), &recordingObserver{})
	assert.ErrorIs(t, err, ErrSessionInUse)

	f.svc.Close(ctx, ls)
	again, err := f.svc.Open(ctx, sampleIdentity(), &recordingObserver{})
	require.NoError(t, err)
	f.svc.Close(ctx, again)
}

func TestExamSessionService_UnknownToken(t *testing.T) {
	f := newSessionServiceFixture(t, config.ViolationPolicyReload)
	id := sampleIdentity()
	id.Token = "OTHER"

	_, err := f.svc.Open(context.Background(), id, &recordingObserver{})
	assert.ErrorIs(t, err, ErrExamNotFound)
}

func TestExamSessionService_CloseKeepsSessionResumable(t *testing.T) {
	f := newSessionServiceFixture(t, config.ViolationPolicyReload)
	ctx := context.Background()

	ls := f.open(t, &recordingObserver{})
	f.start(t, ls, &nopLocker{}, false)
	require.NoError(t, ls.SetAnswer("q1", model.IndexAnswer(0)))
	require.NoError(t, ls.SetDoubtful("q1", true))

	f.svc.Close(ctx, ls)
	assert.Equal(t, exam.StateAborted, ls.State())

	rec, ok := f.svc.Resumable(ctx, sampleIdentity())
	require.True(t, ok)
	assert.Equal(t, model.IndexAnswer(0), rec.Answers["q1"])
	assert.Equal(t, 1, rec.Summary().Doubtful)

	resumed := f.open(t, &recordingObserver{})
	assert.True(t, f.start(t, resumed, &nopLocker{}, true))
	assert.Equal(t, model.IndexAnswer(0), resumed.Snapshot().Answers["q1"])
	assert.Equal(t, rec.TimeLeftSeconds, resumed.Remaining())
}

func TestExamSessionService_FreshStartOverwritesRecord(t *testing.T) {
	f := newSessionServiceFixture(t, config.ViolationPolicyReload)
	ctx := context.Background()

	require.NoError(t, f.store.Set(ctx, exam.DeriveSessionKey(sampleIdentity()),
		[]byte(`{"answers":{"q1":0},"doubtfuls":{},"timeLeftSeconds":12,"lastUpdateEpochMs":1}`)))

	ls := f.open(t, &recordingObserver{})
	assert.False(t, f.start(t, ls, &nopLocker{}, false))

	assert.Empty(t, ls.Snapshot().Answers)
	assert.Equal(t, 30*60, ls.Remaining())

	rec, ok := f.svc.Resumable(ctx, sampleIdentity())
	require.True(t, ok)
	assert.Empty(t, rec.Answers)
}

func TestExamSessionService_ViolationReload(t *testing.T) {
	f := newSessionServiceFixture(t, config.ViolationPolicyReload)
	ctx := context.Background()
	obs := &recordingObserver{}
	locker := &nopLocker{}

	ls := f.open(t, obs)
	f.start(t, ls, locker, false)
	require.NoError(t, ls.SetAnswer("q1", model.IndexAnswer(1)))

	ls.Signals.Publish(exam.Signal{Kind: exam.SignalBlur})

	assert.Equal(t, exam.StateAborted, ls.State())
	assert.Equal(t, 0, f.sink.count())
	assert.Equal(t, 1, locker.released)

	obs.mu.Lock()
	assert.Equal(t, []string{exam.ViolationFocusLost}, obs.violations)
	assert.Equal(t, []config.ViolationPolicy{config.ViolationPolicyReload}, obs.policies)
	obs.mu.Unlock()

	queued, err := f.mr.List(config.WorkerKey.PersistViolationsQueue)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	var event model.ViolationEvent
	require.NoError(t, json.Unmarshal([]byte(queued[0]), &event))
	assert.Equal(t, ls.Key(), event.SessionKey)
	assert.Equal(t, string(exam.SignalBlur), event.Kind)
	assert.Equal(t, "MATH1", event.Token)

	rec, ok := f.svc.Resumable(ctx, sampleIdentity())
	require.True(t, ok)
	assert.Equal(t, model.IndexAnswer(1), rec.Answers["q1"])

	// A late lock loss after the teardown is ignored.
	ls.Signals.Publish(exam.Signal{Kind: exam.SignalLockLost})
	queued, _ = f.mr.List(config.WorkerKey.PersistViolationsQueue)
	assert.Len(t, queued, 1)
}

func TestExamSessionService_ViolationSubmit(t *testing.T) {
	f := newSessionServiceFixture(t, config.ViolationPolicySubmit)
	ctx := context.Background()
	obs := &recordingObserver{}

	ls := f.open(t, obs)
	f.start(t, ls, &nopLocker{}, false)

	ls.Signals.Publish(exam.Signal{Kind: exam.SignalLockLost})
	ls.Signals.Publish(exam.Signal{Kind: exam.SignalBlur})

	assert.Equal(t, exam.StateDone, ls.State())
	assert.Equal(t, 1, obs.finalizedCount())
	assert.Equal(t, 1, f.sink.count())

	obs.mu.Lock()
	assert.Equal(t, model.FinishReasonViolation, obs.results[0].Reason)
	obs.mu.Unlock()

	_, ok := f.svc.Resumable(ctx, sampleIdentity())
	assert.False(t, ok)
}

func TestExamSessionService_MonitorEvents(t *testing.T) {
	f := newSessionServiceFixture(t, config.ViolationPolicyReload)
	ctx := context.Background()

	sub := f.svc.monitor.Subscribe(ctx, "MATH1")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	ls := f.open(t, &recordingObserver{})
	f.start(t, ls, &nopLocker{}, false)

	select {
	case msg := <-sub.Channel():
		var event MonitorEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		assert.Equal(t, MonitorEventStarted, event.Type)
		assert.Equal(t, ls.Key(), event.SessionKey)
	case <-time.After(2 * time.Second):
		t.Fatal("no monitor event")
	}
}

func TestExamSessionService_ResumeWithoutRecordStartsFresh(t *testing.T) {
	f := newSessionServiceFixture(t, config.ViolationPolicyReload)

	ls := f.open(t, &recordingObserver{})
	assert.False(t, f.start(t, ls, &nopLocker{}, true))
	assert.Equal(t, 30*60, ls.Remaining())
}
