// Package config gathers runtime settings from an optional .env file and the
// environment.
// file: config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"shareform/logger"
)

// Config holds every setting the server and the peer CLI read.
type Config struct {
	Port                int
	ApplicationURL      string
	WebsocketURL        string
	SessionSecret       string
	Env                 string
	SchemaPath          string
	QuietPeriod         time.Duration
	AllowedOrigins      []string
	StrictRelay         bool
	CloudWatchEnabled   bool
	CloudWatchNamespace string
	XRayEnabled         bool
	LogDir              string
}

// Load reads the given dotenv files (".env" when none are named), skipping
// any that do not exist, then builds a Config from the environment. Values
// already present in the environment win over the files.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
		logger.Debug.Printf("[config.Load] loaded %s", f)
	}

	port, err := intEnv("PORT", 8080)
	if err != nil {
		return nil, err
	}
	quietMS, err := intEnv("QUIET_PERIOD_MS", 400)
	if err != nil {
		return nil, err
	}
	if quietMS <= 0 {
		return nil, fmt.Errorf("QUIET_PERIOD_MS must be positive, got %d", quietMS)
	}

	cfg := &Config{
		Port:                port,
		ApplicationURL:      stringEnv("APPLICATION_URL", ""),
		WebsocketURL:        stringEnv("WEBSOCKET_URL", ""),
		SessionSecret:       stringEnv("SESSION_SECRET", "secret"),
		Env:                 stringEnv("ENV", "development"),
		SchemaPath:          stringEnv("SCHEMA_PATH", ""),
		QuietPeriod:         time.Duration(quietMS) * time.Millisecond,
		AllowedOrigins:      listEnv("ALLOWED_ORIGINS"),
		CloudWatchNamespace: stringEnv("CLOUDWATCH_NAMESPACE", "Shareform"),
		LogDir:              os.Getenv("LOG_DIR"),
	}
	if cfg.StrictRelay, err = boolEnv("STRICT_RELAY"); err != nil {
		return nil, err
	}
	if cfg.CloudWatchEnabled, err = boolEnv("CLOUDWATCH_ENABLED"); err != nil {
		return nil, err
	}
	if cfg.XRayEnabled, err = boolEnv("XRAY_ENABLED"); err != nil {
		return nil, err
	}

	// default URLs follow the port
	if cfg.ApplicationURL == "" {
		cfg.ApplicationURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	if cfg.WebsocketURL == "" {
		cfg.WebsocketURL = fmt.Sprintf("ws://localhost:%d/ws", cfg.Port)
	}
	return cfg, nil
}

// Production reports whether ENV is "production".
func (c *Config) Production() bool { return c.Env == "production" }

func stringEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func listEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
