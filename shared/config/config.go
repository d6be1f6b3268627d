// shared/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CommonConfig holds configuration fields that are shared across services.
type CommonConfig struct {
	RedisAddrs    []string // Redis server addresses (e.g., "redis-cluster:6379")
	RedisPassword string   // Redis password for authentication
	Standalone    bool     // Run with in-memory stores instead of Redis (local development)
	LogLevel      string   // Minimum log level ("debug", "info", "warn", "error")
	LogFile       string   // Optional rotating debug log file path
}

// TeamServiceConfig holds configuration specific to the team-service.
type TeamServiceConfig struct {
	CommonConfig                          // Embed CommonConfig
	ListenAddr             string         // Address for the HTTP server (e.g., ":8083")
	AutoSaveInterval       time.Duration  // Cadence of the periodic registry save (e.g., 30s)
	InviteTTL              time.Duration  // Window in which a pending invite may be accepted (e.g., 30s)
	DisplayRefreshInterval time.Duration  // Cadence of the online-player display refresh (e.g., 1s)
	PresenceTTL            time.Duration  // TTL for 'online:{uuid}:' presence keys (e.g., 15s)
	ResolveRetryInterval   time.Duration  // Poll interval while resolving a just-connected player
	ResolveMaxAttempts     int            // Attempts before the connect-time resolver gives up
}

// LoadCommonConfig loads common configuration from environment variables.
func LoadCommonConfig() (CommonConfig, error) {
	cfg := CommonConfig{}
	var err error

	// Redis Addresses
	redisAddrsStr := os.Getenv("REDIS_ADDRS")
	if redisAddrsStr == "" {
		cfg.RedisAddrs = []string{"redis-cluster-headless.minecraft-cluster.svc.cluster.local:6379"} // Default for K8s Service
	} else {
		for _, addr := range strings.Split(redisAddrsStr, ",") {
			cfg.RedisAddrs = append(cfg.RedisAddrs, strings.TrimSpace(addr))
		}
	}

	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	cfg.Standalone, err = getBool("TEAM_SERVICE_STANDALONE", false)
	if err != nil {
		return cfg, err
	}

	cfg.LogLevel = os.Getenv("TEAM_SERVICE_LOG_LEVEL")
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.LogFile = os.Getenv("TEAM_SERVICE_LOG_FILE")

	return cfg, nil
}

// LoadTeamServiceConfig loads configuration for the team-service.
func LoadTeamServiceConfig() (*TeamServiceConfig, error) {
	common, err := LoadCommonConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load common config for team-service: %w", err)
	}

	cfg := &TeamServiceConfig{
		CommonConfig: common,
		ListenAddr:   os.Getenv("TEAM_SERVICE_LISTEN_ADDR"),
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8083"
	}

	cfg.AutoSaveInterval, err = getDuration("TEAM_AUTOSAVE_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.InviteTTL, err = getDuration("TEAM_INVITE_TTL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.DisplayRefreshInterval, err = getDuration("TEAM_DISPLAY_REFRESH_INTERVAL", time.Second)
	if err != nil {
		return nil, err
	}
	cfg.PresenceTTL, err = getDuration("PRESENCE_TTL", 15*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.ResolveRetryInterval, err = getDuration("TEAM_RESOLVE_RETRY_INTERVAL", 250*time.Millisecond)
	if err != nil {
		return nil, err
	}
	cfg.ResolveMaxAttempts, err = getInt("TEAM_RESOLVE_MAX_ATTEMPTS", 100)
	if err != nil {
		return nil, err
	}
	if cfg.ResolveMaxAttempts <= 0 {
		return nil, fmt.Errorf("TEAM_RESOLVE_MAX_ATTEMPTS must be a positive integer (got %d)", cfg.ResolveMaxAttempts)
	}

	return cfg, nil
}

// Helper function to parse duration from environment variable
func getDuration(envKey string, defaultVal time.Duration) (time.Duration, error) {
	valStr := os.Getenv(envKey)
	if valStr == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration format for %s: %w", envKey, err)
	}
	return d, nil
}

// Helper function to parse int from environment variable
func getInt(envKey string, defaultVal int) (int, error) {
	valStr := os.Getenv(envKey)
	if valStr == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("invalid integer format for %s: %w", envKey, err)
	}
	return i, nil
}

// Helper function to parse bool from environment variable
func getBool(envKey string, defaultVal bool) (bool, error) {
	valStr := os.Getenv(envKey)
	if valStr == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(valStr)
	if err != nil {
		return false, fmt.Errorf("invalid boolean format for %s: %w", envKey, err)
	}
	return b, nil
}
