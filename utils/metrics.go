package utils

import (
	"errors"
	"sync"
	"time"
)

// OperationStats содержит счетчики одной операции со счетами
type OperationStats struct {
	Count          int64         `json:"count"`
	Failed         int64         `json:"failed"`
	AverageLatency time.Duration `json:"average_latency"`
	totalLatency   time.Duration
}

// Metrics содержит метрики приложения
type Metrics struct {
	mu sync.RWMutex

	// Метрики запросов
	TotalRequests   int64
	FailedRequests  int64
	RequestLatency  time.Duration
	AverageLatency  time.Duration
	LastRequestTime time.Time

	// Метрики операций со счетами (create, deposit, withdraw, transfer, list)
	Operations map[string]*OperationStats

	// Метрики ошибок
	ErrorCount    int64
	LastErrorTime time.Time
	ErrorTypes    map[string]int64
}

var (
	metrics     *Metrics
	metricsOnce sync.Once
)

// GetMetrics возвращает экземпляр метрик
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = newMetrics()
	})
	return metrics
}

func newMetrics() *Metrics {
	return &Metrics{
		Operations: make(map[string]*OperationStats),
		ErrorTypes: make(map[string]int64),
	}
}

// RecordRequest записывает метрики HTTP-запроса
func (m *Metrics) RecordRequest(duration time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests++
	m.RequestLatency += duration
	m.AverageLatency = m.RequestLatency / time.Duration(m.TotalRequests)
	m.LastRequestTime = time.Now()

	if failed {
		m.FailedRequests++
	}
}

// RecordOperation записывает метрики операции со счетом
func (m *Metrics) RecordOperation(operation string, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats, ok := m.Operations[operation]
	if !ok {
		stats = &OperationStats{}
		m.Operations[operation] = stats
	}
	stats.Count++
	stats.totalLatency += duration
	stats.AverageLatency = stats.totalLatency / time.Duration(stats.Count)

	if err != nil {
		stats.Failed++
		m.recordErrorLocked(err)
	}
}

// RecordError записывает метрики ошибки
func (m *Metrics) RecordError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordErrorLocked(err)
}

// вызывается под m.mu
func (m *Metrics) recordErrorLocked(err error) {
	m.ErrorCount++
	m.LastErrorTime = time.Now()
	m.ErrorTypes[errorType(err)]++
}

// errorType возвращает текст самой внутренней ошибки цепочки.
// Обертки с номерами счетов не порождают новых ключей.
func errorType(err error) string {
	if err == nil {
		return "unknown"
	}
	for {
		inner := errors.Unwrap(err)
		if inner == nil {
			return err.Error()
		}
		err = inner
	}
}

// GetMetricsSnapshot возвращает снимок текущих метрик
func (m *Metrics) GetMetricsSnapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	operations := make(map[string]OperationStats, len(m.Operations))
	for name, stats := range m.Operations {
		operations[name] = *stats
	}
	errorTypes := make(map[string]int64, len(m.ErrorTypes))
	for k, v := range m.ErrorTypes {
		errorTypes[k] = v
	}

	return map[string]interface{}{
		"total_requests":  m.TotalRequests,
		"failed_requests": m.FailedRequests,
		"average_latency": m.AverageLatency,
		"operations":      operations,
		"error_count":     m.ErrorCount,
		"last_error_time": m.LastErrorTime,
		"error_types":     errorTypes,
	}
}

// ResetMetrics сбрасывает все метрики
func (m *Metrics) ResetMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests = 0
	m.FailedRequests = 0
	m.RequestLatency = 0
	m.AverageLatency = 0
	m.Operations = make(map[string]*OperationStats)
	m.ErrorCount = 0
	m.ErrorTypes = make(map[string]int64)
}
