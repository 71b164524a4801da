package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"VIOLATION_POLICY", "RESULT_SINK", "KAFKA_BROKERS", "SESSION_RECORD_TTL_HOURS", "TRUE_LABEL", "FALSE_LABEL"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, ViolationPolicyReload, cfg.ViolationPolicy)
	assert.Equal(t, ResultSinkQueue, cfg.ResultSink)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 24*time.Hour, cfg.SessionRecordTTL)
	assert.Equal(t, "Benar", cfg.TrueLabel)
	assert.Equal(t, "Salah", cfg.FalseLabel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("VIOLATION_POLICY", " Submit ")
	t.Setenv("RESULT_SINK", "KAFKA")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SESSION_RECORD_TTL_HOURS", "not-a-number")

	cfg := Load()
	assert.Equal(t, ViolationPolicySubmit, cfg.ViolationPolicy)
	assert.Equal(t, ResultSinkKafka, cfg.ResultSink)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 24*time.Hour, cfg.SessionRecordTTL)
}

func TestParseViolationPolicy_Unknown(t *testing.T) {
	assert.Equal(t, ViolationPolicyReload, parseViolationPolicy("explode"))
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "exam:MATH1:package", CacheKey.ExamPackageKey("math1"))
	assert.Equal(t, "exam:MATH1:monitor", CacheKey.ExamMonitorChannel("Math1"))
}
