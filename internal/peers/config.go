package peers

import "time"

// RetryPolicy controls retry behavior for peer dispatches.
type RetryPolicy struct {
	MaxRetries  int           // retries after the first attempt
	BaseBackoff time.Duration // initial backoff duration
	MaxBackoff  time.Duration // upper bound on backoff
	JitterFn    func(time.Duration) time.Duration
}

// TimeoutPolicy defines request-level timeouts.
type TimeoutPolicy struct {
	ReplicationTimeout time.Duration // one replicate call to one peer
	SyncTimeout        time.Duration // one digest exchange with one peer
	DispatchBudget     time.Duration // whole dispatch to one peer, retries included
}

// FanoutPolicy bounds concurrent propagation.
type FanoutPolicy struct {
	MaxConcurrent int // peer dispatches allowed in flight at once
}

// SyncPolicy controls the anti-entropy loop.
type SyncPolicy struct {
	Interval  time.Duration
	BatchSize int // max entries a peer returns per exchange
}

type Config struct {
	Retry   RetryPolicy
	Timeout TimeoutPolicy
	Fanout  FanoutPolicy
	Sync    SyncPolicy
}

func DefaultConfig() Config {
	return Config{
		Retry: RetryPolicy{
			MaxRetries:  2,
			BaseBackoff: 100 * time.Millisecond,
			MaxBackoff:  2 * time.Second,
			JitterFn:    func(d time.Duration) time.Duration { return d / 2 }, // default jitter: 50%
		},
		Timeout: TimeoutPolicy{
			ReplicationTimeout: 2 * time.Second,
			SyncTimeout:        5 * time.Second,
			DispatchBudget:     10 * time.Second,
		},
		Fanout: FanoutPolicy{
			MaxConcurrent: 8,
		},
		Sync: SyncPolicy{
			Interval:  2 * time.Second,
			BatchSize: 1024,
		},
	}
}
