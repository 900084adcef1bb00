package ai

import (
	"testing"

	"fleetcache/internal/logs"
	"fleetcache/internal/metrics"

	"github.com/stretchr/testify/assert"
)

func TestHealthAnalyzer_OK(t *testing.T) {
	reg := metrics.NewRegistry()
	logger := logs.NewLogger(10, logs.DEBUG)

	analyzer := NewHealthAnalyzer(reg, logger)
	report := analyzer.Analyze()

	assert.Equal(t, StatusOK, report.OverallStatus)
	assert.Empty(t, report.Signals)
}

func TestHealthAnalyzer_DegradedReplicationFailures(t *testing.T) {
	reg := metrics.NewRegistry()
	logger := logs.NewLogger(10, logs.DEBUG)

	reg.Inc(metrics.ReplicationFailureTotal)

	analyzer := NewHealthAnalyzer(reg, logger)
	report := analyzer.Analyze()

	assert.Equal(t, StatusDegraded, report.OverallStatus)
	assert.Contains(t, report.Signals, "Replication dispatches are failing")
}

func TestHealthAnalyzer_DegradedReplicationRetries(t *testing.T) {
	reg := metrics.NewRegistry()
	logger := logs.NewLogger(10, logs.DEBUG)

	reg.Inc(metrics.ReplicationRetriesTotal)

	analyzer := NewHealthAnalyzer(reg, logger)
	report := analyzer.Analyze()

	assert.Equal(t, StatusDegraded, report.OverallStatus)
	assert.Contains(t, report.Signals, "Replication retries detected")
}

func TestHealthAnalyzer_CriticalAuthRejections(t *testing.T) {
	reg := metrics.NewRegistry()
	logger := logs.NewLogger(10, logs.DEBUG)

	reg.Inc(metrics.AuthRejectionsTotal)

	analyzer := NewHealthAnalyzer(reg, logger)
	report := analyzer.Analyze()

	assert.Equal(t, StatusCritical, report.OverallStatus)
	assert.Contains(t, report.Signals, "Inter-node requests rejected for invalid tokens")
}

func TestHealthAnalyzer_DegradedSyncFailures(t *testing.T) {
	reg := metrics.NewRegistry()
	logger := logs.NewLogger(10, logs.DEBUG)

	reg.Inc(metrics.SyncFailuresTotal)

	analyzer := NewHealthAnalyzer(reg, logger)
	report := analyzer.Analyze()

	assert.Equal(t, StatusDegraded, report.OverallStatus)
	assert.Contains(t, report.Signals, "Digest sync exchanges are failing")
}

func TestHealthAnalyzer_MultipleMetricSignals(t *testing.T) {
	reg := metrics.NewRegistry()
	logger := logs.NewLogger(10, logs.DEBUG)

	reg.Inc(metrics.ReplicationRetriesTotal)
	reg.Inc(metrics.SyncFailuresTotal)

	analyzer := NewHealthAnalyzer(reg, logger)
	report := analyzer.Analyze()

	assert.Equal(t, StatusDegraded, report.OverallStatus)
	assert.Len(t, report.Signals, 2)
}

func TestHealthAnalyzer_CriticalOutranksDegraded(t *testing.T) {
	reg := metrics.NewRegistry()
	logger := logs.NewLogger(10, logs.DEBUG)

	reg.Inc(metrics.ReplicationFailureTotal)
	reg.Inc(metrics.AuthRejectionsTotal)

	analyzer := NewHealthAnalyzer(reg, logger)
	report := analyzer.Analyze()

	assert.Equal(t, StatusCritical, report.OverallStatus)
}

func TestHealthAnalyzer_LogBasedReplicationFailures(t *testing.T) {
	reg := metrics.NewRegistry()
	logger := logs.NewLogger(10, logs.DEBUG)

	logger.Warn("replication failed for key a to peer 1")
	logger.Warn("replication failed for key b to peer 1")
	logger.Warn("replication failed for key c to peer 1")

	analyzer := NewHealthAnalyzer(reg, logger)
	report := analyzer.Analyze()

	assert.Equal(t, StatusDegraded, report.OverallStatus)
	assert.Contains(
		t,
		report.Signals,
		"Repeated replication failures detected in logs",
	)
}

func TestHealthAnalyzer_LogBasedPanicDetection(t *testing.T) {
	reg := metrics.NewRegistry()
	logger := logs.NewLogger(10, logs.DEBUG)

	logger.Error("panic: runtime error")

	analyzer := NewHealthAnalyzer(reg, logger)
	report := analyzer.Analyze()

	assert.Equal(t, StatusCritical, report.OverallStatus)
	assert.Contains(
		t,
		report.Signals,
		"Application panics detected in logs",
	)
}
