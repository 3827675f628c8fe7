package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cometweb/webaudit/internal/netutil"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the analyzer service.
type Config struct {
	// HTTP binding
	BindAddr         string
	BindCandidates   []string
	BindAutoFallback bool

	// Browser behavior
	ChromeExecPath string
	Headless       bool
	UserAgent      string

	// Analysis deadlines and settle condition
	NavTimeout   time.Duration
	EvalTimeout  time.Duration
	SettleWindow time.Duration
	MaxInflight  int

	// Logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables and an optional .env
// file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		BindAddr:         getEnvOrDefault("ANALYZER_BIND_ADDR", "127.0.0.1:8088"),
		BindAutoFallback: getEnvBoolOrDefault("ANALYZER_BIND_AUTO_FALLBACK", true),
		ChromeExecPath:   getEnvOrDefault("ANALYZER_CHROME_PATH", ""),
		Headless:         getEnvBoolOrDefault("ANALYZER_HEADLESS", true),
		UserAgent:        getEnvOrDefault("ANALYZER_USER_AGENT", ""),
		NavTimeout:       getEnvDurationMSOrDefault("ANALYZER_NAV_TIMEOUT_MS", 60*time.Second),
		EvalTimeout:      getEnvDurationMSOrDefault("ANALYZER_EVAL_TIMEOUT_MS", 10*time.Second),
		SettleWindow:     getEnvDurationMSOrDefault("ANALYZER_SETTLE_WINDOW_MS", 500*time.Millisecond),
		MaxInflight:      getEnvIntOrDefault("ANALYZER_SETTLE_MAX_INFLIGHT", 2),
		LogLevel:         strings.ToLower(getEnvOrDefault("ANALYZER_LOG_LEVEL", "info")),
		LogFile:          getEnvOrDefault("ANALYZER_LOG_FILE", "logs/analyzer.log"),
	}

	candidates := getEnvOrDefault("ANALYZER_BIND_CANDIDATES", "127.0.0.1:8089,127.0.0.1:8090")
	cfg.BindCandidates = netutil.SplitAddrList(candidates)

	if cfg.NavTimeout < time.Second {
		cfg.NavTimeout = time.Second
	}
	if cfg.EvalTimeout < time.Second {
		cfg.EvalTimeout = time.Second
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDurationMSOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if ms, err := strconv.Atoi(val); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultVal
}
