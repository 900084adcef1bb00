package ai

import "fleetcache/internal/metrics"

// RuleResult represents the outcome of a single rule.
type RuleResult struct {
	Triggered      bool
	Signal         string
	Recommendation string
	Severity       HealthStatus
}

// Rule evaluates a metrics snapshot.
type Rule func(snapshot map[string]int64) RuleResult

// ---------- RULES ----------

// Failed dispatches mean peers missed writes and depend on sync to catch up.
func ReplicationFailureRule(snapshot map[string]int64) RuleResult {
	failures := snapshot[string(metrics.ReplicationFailureTotal)]

	if failures > 0 {
		return RuleResult{
			Triggered:      true,
			Signal:         "Replication dispatches are failing",
			Recommendation: "Check peer reachability; sync covers the gap meanwhile",
			Severity:       StatusDegraded,
		}
	}
	return RuleResult{}
}

// Replication retries indicate instability.
func ReplicationRetryRule(snapshot map[string]int64) RuleResult {
	retries := snapshot[string(metrics.ReplicationRetriesTotal)]

	if retries > 0 {
		return RuleResult{
			Triggered:      true,
			Signal:         "Replication retries detected",
			Recommendation: "Check network connectivity or replication timeouts",
			Severity:       StatusDegraded,
		}
	}
	return RuleResult{}
}

// Token rejections mean the fleet disagrees on the shared secret or
// clocks have drifted beyond the freshness window.
func AuthRejectionRule(snapshot map[string]int64) RuleResult {
	rejections := snapshot[string(metrics.AuthRejectionsTotal)]

	if rejections > 0 {
		return RuleResult{
			Triggered:      true,
			Signal:         "Inter-node requests rejected for invalid tokens",
			Recommendation: "Verify every member mounts the same secret and clocks are in sync",
			Severity:       StatusCritical,
		}
	}
	return RuleResult{}
}

// A failing sync loop leaves restarted nodes stale.
func SyncFailureRule(snapshot map[string]int64) RuleResult {
	failures := snapshot[string(metrics.SyncFailuresTotal)]

	if failures > 0 {
		return RuleResult{
			Triggered:      true,
			Signal:         "Digest sync exchanges are failing",
			Recommendation: "Inspect peer availability on the replication port",
			Severity:       StatusDegraded,
		}
	}
	return RuleResult{}
}
