package utils

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordOperation(t *testing.T) {
	m := newMetrics()

	m.RecordOperation("deposit", 2*time.Millisecond, nil)
	m.RecordOperation("deposit", 4*time.Millisecond, errors.New("boom"))

	stats := m.Operations["deposit"]
	assert.Equal(t, int64(2), stats.Count)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, 3*time.Millisecond, stats.AverageLatency)
	assert.Equal(t, int64(1), m.ErrorCount)
	assert.Equal(t, int64(1), m.ErrorTypes["boom"])
}

func TestRecordRequestAndReset(t *testing.T) {
	m := newMetrics()

	m.RecordRequest(10*time.Millisecond, false)
	m.RecordRequest(20*time.Millisecond, true)

	snapshot := m.GetMetricsSnapshot()
	assert.Equal(t, int64(2), snapshot["total_requests"])
	assert.Equal(t, int64(1), snapshot["failed_requests"])
	assert.Equal(t, 15*time.Millisecond, snapshot["average_latency"])

	m.ResetMetrics()
	assert.Zero(t, m.TotalRequests)
	assert.Empty(t, m.Operations)
}

func TestErrorTypesKeyedByUnderlyingError(t *testing.T) {
	m := newMetrics()
	notFound := errors.New("account not found")

	for n := 1; n <= 50; n++ {
		m.RecordOperation("withdraw", time.Millisecond, fmt.Errorf("lookup account %d: %w", n, notFound))
	}
	m.RecordError(nil)

	assert.Equal(t, int64(51), m.ErrorCount)
	assert.Len(t, m.ErrorTypes, 2)
	assert.Equal(t, int64(50), m.ErrorTypes["account not found"])
	assert.Equal(t, int64(1), m.ErrorTypes["unknown"])
}
