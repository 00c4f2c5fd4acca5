package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Backend names a corpus storage implementation.
type Backend string

const (
	BackendLocal     Backend = "local"
	BackendEphemeral Backend = "ephemeral"
	BackendRemote    Backend = "remote"
	BackendSQLite    Backend = "sqlite"
)

// Config holds runtime configuration values for the chabbo server.
type Config struct {
	ServerPort    int
	LogLevel      string
	SentryDSN     string
	Environment   string
	ShutdownGrace time.Duration

	Backend          Backend
	RemoteProjectKey string
	RemoteDatabase   string
	DataDir          string
	DBPath           string

	RateLimitRPS       float64
	RateLimitBurst     int
	RateLimitClientTTL time.Duration
}

const (
	defaultServerPort         = 3000
	defaultLogLevel           = "info"
	defaultEnvironment        = "development"
	defaultShutdownGrace      = 10 * time.Second
	defaultRemoteDatabase     = "chabbo"
	defaultDBPath             = "./data/chabbo.db"
	defaultRateLimitRPS       = 5.0
	defaultRateLimitBurst     = 20
	defaultRateLimitClientTTL = 10 * time.Minute
)

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:         getEnv("LOG_LEVEL", defaultLogLevel),
		SentryDSN:        os.Getenv("SENTRY_DSN"),
		Environment:      getEnv("ENV", defaultEnvironment),
		ShutdownGrace:    defaultShutdownGrace,
		RemoteProjectKey: strings.TrimSpace(os.Getenv("REMOTE_PROJECT_KEY")),
		RemoteDatabase:   getEnv("REMOTE_DATABASE", defaultRemoteDatabase),
		DataDir:          os.Getenv("DATA_DIR"),
		DBPath:           getEnv("DB_PATH", defaultDBPath),
	}

	portValue := getEnv("SERVER_PORT", strconv.Itoa(defaultServerPort))
	port, err := strconv.Atoi(portValue)
	if err != nil || port <= 0 || port > 65535 {
		return nil, eris.Errorf("invalid SERVER_PORT value: %s", portValue)
	}
	cfg.ServerPort = port

	useEphemeral := false
	if raw := os.Getenv("USE_EPHEMERAL_BACKEND"); raw != "" {
		useEphemeral, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid USE_EPHEMERAL_BACKEND value: %s", raw)
		}
	}

	backend, err := resolveBackend(os.Getenv("STORAGE_BACKEND"), cfg.RemoteProjectKey, useEphemeral)
	if err != nil {
		return nil, err
	}
	cfg.Backend = backend

	rpsValue := getEnv("RATE_LIMIT_RPS", strconv.FormatFloat(defaultRateLimitRPS, 'f', -1, 64))
	cfg.RateLimitRPS, err = strconv.ParseFloat(rpsValue, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid RATE_LIMIT_RPS value: %s", rpsValue)
	}

	burstValue := getEnv("RATE_LIMIT_BURST", strconv.Itoa(defaultRateLimitBurst))
	cfg.RateLimitBurst, err = strconv.Atoi(burstValue)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid RATE_LIMIT_BURST value: %s", burstValue)
	}

	ttlValue := getEnv("RATE_LIMIT_CLIENT_TTL", defaultRateLimitClientTTL.String())
	cfg.RateLimitClientTTL, err = time.ParseDuration(ttlValue)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid RATE_LIMIT_CLIENT_TTL value: %s", ttlValue)
	}

	return cfg, nil
}

// resolveBackend honours an explicit STORAGE_BACKEND, otherwise picks remote when a project key
// is present, then ephemeral when requested, then local.
func resolveBackend(explicit, remoteKey string, useEphemeral bool) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(explicit))) {
	case "":
	case BackendLocal:
		return BackendLocal, nil
	case BackendEphemeral:
		return BackendEphemeral, nil
	case BackendRemote:
		return BackendRemote, nil
	case BackendSQLite:
		return BackendSQLite, nil
	default:
		return "", eris.Errorf("invalid STORAGE_BACKEND value: %s", explicit)
	}

	switch {
	case remoteKey != "":
		return BackendRemote, nil
	case useEphemeral:
		return BackendEphemeral, nil
	default:
		return BackendLocal, nil
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
