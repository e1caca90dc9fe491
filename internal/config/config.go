// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// EndOfBookAction is the configured behavior when the last file's automatic
// end is reached.
type EndOfBookAction string

// End-of-book actions.
const (
	EndOfBookStop  EndOfBookAction = "stop"
	EndOfBookLoop  EndOfBookAction = "loop"
	EndOfBookClose EndOfBookAction = "close"
)

// Config holds the application configuration.
type Config struct {
	App        AppConfig
	Logger     LoggerConfig
	Catalog    CatalogConfig
	Playback   PlaybackConfig
	SleepTimer SleepTimerConfig
	Refinement RefinementConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// CatalogConfig holds catalog database configuration.
type CatalogConfig struct {
	// Path to the SQLite catalog database (default: ~/Lectern/catalog.db).
	Path string
}

// PlaybackConfig holds playback behavior configuration.
type PlaybackConfig struct {
	// ResumeRewindMs is subtracted from the saved position when a book is
	// reopened, clamped at 0. 0 disables the feature.
	ResumeRewindMs int64
	// SmartResumeThresholdSec is the pause duration after which resuming
	// rewinds by SmartResumeRewindMs. 0 disables smart resume.
	SmartResumeThresholdSec int
	// SmartResumeRewindMs is the rewind applied by smart resume.
	SmartResumeRewindMs int64
	// SeekForwardMs / SeekBackwardMs are the default seek step sizes.
	SeekForwardMs  int64
	SeekBackwardMs int64
	// EndOfBookAction: stop, loop, or close.
	EndOfBookAction EndOfBookAction
	// ResumeOnJump resumes playback after a manual file change or bookmark
	// jump while paused.
	ResumeOnJump bool
	// AutoSaveTicks is the number of 1-second UI ticks between periodic
	// state saves while playing.
	AutoSaveTicks int
	// HistoryThresholdMs is the minimum listening time on a book before a
	// cross-book switch updates the caller's history view.
	HistoryThresholdMs int64
}

// SleepTimerConfig holds sleep timer configuration.
type SleepTimerConfig struct {
	// TimedConfirmSeconds is the countdown shown by the Timed confirmation
	// mode before an OS action executes.
	TimedConfirmSeconds int
}

// RefinementConfig holds duration refinement worker configuration.
type RefinementConfig struct {
	// Workers bounds the probe pool. 0 selects min(8, NumCPU+4).
	Workers int
	// BatchSize bounds catalog flush transactions.
	BatchSize int
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	catalogPath := flag.String("catalog-path", "", "Path to the catalog database")

	resumeRewind := flag.String("resume-rewind-ms", "", "Rewind applied when reopening a book (default: 0)")
	smartThreshold := flag.String("smart-resume-threshold-sec", "", "Pause length before smart resume kicks in (default: 300)")
	smartRewind := flag.String("smart-resume-rewind-ms", "", "Rewind applied by smart resume (default: 10000)")
	seekForward := flag.String("seek-forward-ms", "", "Forward seek step (default: 30000)")
	seekBackward := flag.String("seek-backward-ms", "", "Backward seek step (default: 10000)")
	endOfBook := flag.String("end-of-book-action", "", "Action at end of book: stop, loop, close (default: stop)")
	resumeOnJump := flag.String("resume-on-jump", "", "Resume playback after manual navigation while paused (default: true)")

	refineWorkers := flag.String("refine-workers", "", "Duration probe worker bound (default: min(8, cpus+4))")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Catalog: CatalogConfig{
			Path: getConfigValue(*catalogPath, "CATALOG_PATH", ""),
		},
		Playback: PlaybackConfig{
			ResumeRewindMs:          getInt64ConfigValue(*resumeRewind, "RESUME_REWIND_MS", 0),
			SmartResumeThresholdSec: getIntConfigValue(*smartThreshold, "SMART_RESUME_THRESHOLD_SEC", 300),
			SmartResumeRewindMs:     getInt64ConfigValue(*smartRewind, "SMART_RESUME_REWIND_MS", 10000),
			SeekForwardMs:           getInt64ConfigValue(*seekForward, "SEEK_FORWARD_MS", 30000),
			SeekBackwardMs:          getInt64ConfigValue(*seekBackward, "SEEK_BACKWARD_MS", 10000),
			EndOfBookAction:         EndOfBookAction(getConfigValue(*endOfBook, "END_OF_BOOK_ACTION", string(EndOfBookStop))),
			ResumeOnJump:            getBoolConfigValue(*resumeOnJump, "RESUME_ON_JUMP", true),
			AutoSaveTicks:           getIntConfigValue("", "AUTO_SAVE_TICKS", 30),
			HistoryThresholdMs:      getInt64ConfigValue("", "HISTORY_THRESHOLD_MS", 60000),
		},
		SleepTimer: SleepTimerConfig{
			TimedConfirmSeconds: getIntConfigValue("", "SLEEP_TIMER_CONFIRM_SEC", 120),
		},
		Refinement: RefinementConfig{
			Workers:   getIntConfigValue(*refineWorkers, "REFINE_WORKERS", 0),
			BatchSize: getIntConfigValue("", "REFINE_BATCH_SIZE", 100),
		},
	}

	if err := cfg.expandCatalogPath(); err != nil {
		return nil, fmt.Errorf("invalid catalog path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Playback.EndOfBookAction {
	case EndOfBookStop, EndOfBookLoop, EndOfBookClose:
	default:
		return fmt.Errorf("invalid end-of-book action: %s (must be stop, loop, or close)", c.Playback.EndOfBookAction)
	}

	if c.Playback.ResumeRewindMs < 0 {
		return errors.New("resume rewind must not be negative")
	}
	if c.Playback.SmartResumeThresholdSec < 0 {
		return errors.New("smart resume threshold must not be negative")
	}
	if c.Playback.SmartResumeRewindMs < 0 {
		return errors.New("smart resume rewind must not be negative")
	}
	if c.Playback.AutoSaveTicks <= 0 {
		return errors.New("auto-save tick interval must be positive")
	}
	if c.Refinement.BatchSize <= 0 {
		return errors.New("refinement batch size must be positive")
	}

	if c.Catalog.Path == "" {
		return errors.New("catalog path cannot be empty after expansion")
	}

	return nil
}

// expandCatalogPath expands ~ and makes the path absolute.
// Defaults to ~/Lectern/catalog.db if not specified.
func (c *Config) expandCatalogPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Lectern", "catalog.db")

	expanded, err := expandPath(c.Catalog.Path, defaultPath)
	if err != nil {
		return err
	}
	c.Catalog.Path = expanded
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

// getInt64ConfigValue returns an int64 from flag, env var, or default.
func getInt64ConfigValue(flagValue, envKey string, defaultValue int64) int64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseInt(strValue, 10, 64)
	if err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Env vars take precedence over .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
