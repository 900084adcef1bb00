package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults mirror a single-node development run; a StatefulSet
// deployment overrides them through the environment.
const (
	DefaultPodName       = "fleetcache-0"
	DefaultClientAddr    = ":8080"
	DefaultAddrTemplate  = "fleetcache-ORDINAL.fleetcache.default.svc:9090"
	DefaultTTL           = time.Hour
	DefaultSweepInterval = 30 * time.Second
	DefaultSyncInterval  = 2 * time.Second
)

// Config is everything the node needs, resolved once at startup and
// immutable afterwards.
type Config struct {
	// Topology
	PodName      string // ordinal source, e.g. "fleetcache-2"
	FleetSize    int
	AddrTemplate string // peer address with an ORDINAL placeholder

	// Serving
	ClientAddr string

	// Cache behavior
	DefaultTTL    time.Duration // applied when a put carries no ttl
	SweepInterval time.Duration
	SyncInterval  time.Duration

	// Fleet secret
	SecretFile string
	Secret     string

	// Logging
	LogLevel string
}

// Load reads the configuration from the environment, applying
// defaults. Malformed numeric values are configuration errors, not
// silent fallbacks: a fleet size typo must stop the node.
func Load() (Config, error) {
	fleetSize, err := envInt("FLEET_SIZE", 1)
	if err != nil {
		return Config{}, err
	}
	defaultTTL, err := envSeconds("DEFAULT_TTL_SECONDS", DefaultTTL)
	if err != nil {
		return Config{}, err
	}
	sweepInterval, err := envSeconds("SWEEP_INTERVAL_SECONDS", DefaultSweepInterval)
	if err != nil {
		return Config{}, err
	}
	syncInterval, err := envSeconds("SYNC_INTERVAL_SECONDS", DefaultSyncInterval)
	if err != nil {
		return Config{}, err
	}

	return Config{
		PodName:       envString("POD_NAME", DefaultPodName),
		FleetSize:     fleetSize,
		AddrTemplate:  envString("PEER_ADDR_TEMPLATE", DefaultAddrTemplate),
		ClientAddr:    envString("CLIENT_ADDR", DefaultClientAddr),
		DefaultTTL:    defaultTTL,
		SweepInterval: sweepInterval,
		SyncInterval:  syncInterval,
		SecretFile:    os.Getenv("FLEET_SECRET_FILE"),
		Secret:        os.Getenv("FLEET_SECRET"),
		LogLevel:      envString("LOG_LEVEL", "INFO"),
	}, nil
}

// Validate rejects configurations the node cannot run with. The
// topology inputs get their deeper validation when the resolver is
// built from them.
func (c Config) Validate() error {
	if c.PodName == "" {
		return fmt.Errorf("pod name must not be empty")
	}
	if c.FleetSize < 1 {
		return fmt.Errorf("fleet size must be at least 1, got %d", c.FleetSize)
	}
	if c.ClientAddr == "" {
		return fmt.Errorf("client listen address must not be empty")
	}
	if c.DefaultTTL < 0 {
		return fmt.Errorf("default ttl must not be negative")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync interval must be positive")
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return n, nil
}

func envSeconds(key string, fallback time.Duration) (time.Duration, error) {
	n, err := envInt(key, int(fallback/time.Second))
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}
