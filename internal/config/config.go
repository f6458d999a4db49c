// Package config centralizes process-level configuration. Game rules
// travel separately as game.Config; this package owns how they are
// loaded from disk and how environment variables fill everything else.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"skeld/internal/game"
)

// =============================================================================
// GAME RULES
// =============================================================================

// LoadRules returns the game ruleset: defaults overlaid with the JSON
// override file when path is non-empty. Keys absent from the file keep
// their defaults and unknown keys are ignored. The merged ruleset must
// pass Validate.
func LoadRules(path string) (game.Config, error) {
	cfg := game.DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return game.Config{}, fmt.Errorf("read rules file: %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return game.Config{}, &game.ConfigError{Field: "rules_file", Msg: err.Error()}
		}
	}
	if err := cfg.Validate(); err != nil {
		return game.Config{}, err
	}
	return cfg, nil
}

// LoadTeams reads a tournament roster: a JSON object mapping team name
// to agent spec, e.g. {"sherlock": "gemini", "baseline": "rulebased"}.
func LoadTeams(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read teams file: %w", err)
	}
	var teams map[string]string
	if err := json.Unmarshal(data, &teams); err != nil {
		return nil, &game.ConfigError{Field: "teams_file", Msg: err.Error()}
	}
	if len(teams) == 0 {
		return nil, &game.ConfigError{Field: "teams_file", Msg: "no teams defined"}
	}
	return teams, nil
}

// =============================================================================
// GEMINI CONFIGURATION
// =============================================================================

// GeminiConfig holds credentials for LLM-backed agents. An empty key
// disables gemini agent specs with a ConfigError at startup.
type GeminiConfig struct {
	APIKey string
}

// GeminiFromEnv reads the Gemini credentials from the environment.
func GeminiFromEnv() GeminiConfig {
	return GeminiConfig{APIKey: getEnv("GEMINI_API_KEY", "")}
}

// =============================================================================
// MONITOR CONFIGURATION
// =============================================================================

// MonitorConfig holds the tournament monitor server settings.
type MonitorConfig struct {
	Addr        string // Listen address
	RecentGames int    // Size of the /api/games ring
}

// DefaultMonitor returns the default monitor configuration.
func DefaultMonitor() MonitorConfig {
	return MonitorConfig{
		Addr:        ":8080",
		RecentGames: 32,
	}
}

// MonitorFromEnv returns monitor configuration with environment
// variable overrides.
func MonitorFromEnv() MonitorConfig {
	cfg := DefaultMonitor()

	if addr := getEnv("MONITOR_ADDR", ""); addr != "" {
		cfg.Addr = addr
	}
	if n := getEnvInt("MONITOR_RECENT_GAMES", 0); n > 0 {
		cfg.RecentGames = n
	}

	return cfg
}

// =============================================================================
// LOGGING CONFIGURATION
// =============================================================================

// LogConfig controls the process logger.
type LogConfig struct {
	Level       string // debug, info, warn, error
	Development bool   // Console encoder instead of JSON
}

// DefaultLog returns the default logging configuration.
func DefaultLog() LogConfig {
	return LogConfig{Level: "info"}
}

// LogFromEnv returns logging configuration with environment variable
// overrides.
func LogFromEnv() LogConfig {
	cfg := DefaultLog()

	if lvl := getEnv("LOG_LEVEL", ""); lvl != "" {
		cfg.Level = lvl
	}
	cfg.Development = getEnvBool("LOG_DEVELOPMENT", cfg.Development)

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig is the complete process configuration.
type AppConfig struct {
	Gemini  GeminiConfig
	Monitor MonitorConfig
	Log     LogConfig
}

// FromEnv assembles the process configuration from the environment.
func FromEnv() AppConfig {
	return AppConfig{
		Gemini:  GeminiFromEnv(),
		Monitor: MonitorFromEnv(),
		Log:     LogFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}
