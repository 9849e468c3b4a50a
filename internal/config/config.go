// Package config loads cactus configuration from file and environment.
//
// Precedence (highest to lowest):
//  1. Environment variables (CACTUS_*)
//  2. Config file
//  3. Built-in defaults
//
// Config file search order:
//  1. .cactus.yaml in current directory
//  2. ~/.config/cactus/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cactusdev/cactus/internal/classify"
)

// Config holds all cactus configuration.
type Config struct {
	// Session settings
	Prefix       string `yaml:"prefix"`        // session ID prefix, e.g. "cactus-"
	AgentCommand string `yaml:"agent_command"` // command typed into a new session's pane

	// Polling
	PollInterval   string `yaml:"poll_interval"`   // Go duration string, e.g. "2s"
	CaptureTimeout string `yaml:"capture_timeout"` // per-capture budget, must fit inside the interval
	ReadyAfter     string `yaml:"ready_after"`     // quiescence required before Ready
	CaptureLines   int    `yaml:"capture_lines"`   // pane tail lines considered for classification
	Parallel       int    `yaml:"parallel"`        // concurrent pane captures per cycle

	// Prompt detection. Entries replace the built-in patterns when set.
	PromptPatterns []string `yaml:"prompt_patterns"`

	// Sessions matched by these globs are never tracked, prefix or not.
	ExcludeSessions []string `yaml:"exclude_sessions"`

	// LLM settings for the one-shot check command
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	MaxTokens int64  `yaml:"max_tokens"`

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"` // Comma-separated key=value pairs, e.g. "Authorization=Basic abc123"

	// Logging
	LogFile  string `yaml:"log_file"` // rotating debug log; defaults to ~/.cactus/cactus.log, "off" disables
	LogLevel string `yaml:"log_level"`

	// Parsed values (not from YAML, set after loading)
	PollIntervalDuration   time.Duration    `yaml:"-"`
	CaptureTimeoutDuration time.Duration    `yaml:"-"`
	ReadyAfterDuration     time.Duration    `yaml:"-"`
	CompiledPatterns       []*regexp.Regexp `yaml:"-"`

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		Prefix:         "cactus-",
		AgentCommand:   "claude",
		PollInterval:   "2s",
		CaptureTimeout: "1s",
		ReadyAfter:     "6s",
		CaptureLines:   classify.DefaultCaptureLines,
		Parallel:       10,
		Provider:       "anthropic",
		Model:          "claude-sonnet-4-5",
		MaxTokens:      1024,
	}
}

// Load reads configuration from file and environment variables.
// Environment variables always override file values.
func Load() (*Config, error) {
	cfg := Defaults()

	// Try to load config file
	if path, data, err := findConfigFile(); err == nil {
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
		mergeFile(cfg, &fileCfg)
	}

	// Environment variables override everything
	mergeEnv(cfg)

	// The debug log lands in the cactus home dir unless configured away.
	// The merge cannot tell an empty value from an unset one, so the
	// explicit opt-out is the value "off".
	switch cfg.LogFile {
	case "":
		if home, err := os.UserHomeDir(); err == nil {
			cfg.LogFile = filepath.Join(home, ".cactus", "cactus.log")
		}
	case "off":
		cfg.LogFile = ""
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// finalize parses duration strings and compiles prompt patterns.
func (cfg *Config) finalize() error {
	var err error
	cfg.PollIntervalDuration, err = time.ParseDuration(cfg.PollInterval)
	if err != nil {
		return fmt.Errorf("invalid poll interval %q: %w", cfg.PollInterval, err)
	}
	if cfg.PollIntervalDuration <= 0 {
		return fmt.Errorf("poll interval %q must be positive", cfg.PollInterval)
	}
	cfg.CaptureTimeoutDuration, err = time.ParseDuration(cfg.CaptureTimeout)
	if err != nil {
		return fmt.Errorf("invalid capture timeout %q: %w", cfg.CaptureTimeout, err)
	}
	if cfg.CaptureTimeoutDuration >= cfg.PollIntervalDuration {
		return fmt.Errorf("capture timeout %q must be shorter than poll interval %q",
			cfg.CaptureTimeout, cfg.PollInterval)
	}
	cfg.ReadyAfterDuration, err = time.ParseDuration(cfg.ReadyAfter)
	if err != nil {
		return fmt.Errorf("invalid ready_after %q: %w", cfg.ReadyAfter, err)
	}

	if len(cfg.PromptPatterns) == 0 {
		cfg.CompiledPatterns = classify.DefaultPromptPatterns()
		return nil
	}
	cfg.CompiledPatterns = make([]*regexp.Regexp, 0, len(cfg.PromptPatterns))
	for _, p := range cfg.PromptPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("invalid prompt pattern %q: %w", p, err)
		}
		cfg.CompiledPatterns = append(cfg.CompiledPatterns, re)
	}
	return nil
}

// findConfigFile searches for a config file and returns its path and contents.
func findConfigFile() (string, []byte, error) {
	// 1. Current directory
	if data, err := os.ReadFile(".cactus.yaml"); err == nil {
		return ".cactus.yaml", data, nil
	}

	// 2. XDG config dir / ~/.config
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "cactus", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}

	return "", nil, fmt.Errorf("no config file found")
}

// mergeFile applies non-zero file values onto cfg.
func mergeFile(cfg *Config, file *Config) {
	if file.Prefix != "" {
		cfg.Prefix = file.Prefix
	}
	if file.AgentCommand != "" {
		cfg.AgentCommand = file.AgentCommand
	}
	if file.PollInterval != "" {
		cfg.PollInterval = file.PollInterval
	}
	if file.CaptureTimeout != "" {
		cfg.CaptureTimeout = file.CaptureTimeout
	}
	if file.ReadyAfter != "" {
		cfg.ReadyAfter = file.ReadyAfter
	}
	if file.CaptureLines > 0 {
		cfg.CaptureLines = file.CaptureLines
	}
	if file.Parallel > 0 {
		cfg.Parallel = file.Parallel
	}
	if len(file.PromptPatterns) > 0 {
		cfg.PromptPatterns = file.PromptPatterns
	}
	if len(file.ExcludeSessions) > 0 {
		cfg.ExcludeSessions = file.ExcludeSessions
	}
	if file.Provider != "" {
		cfg.Provider = file.Provider
	}
	if file.Model != "" {
		cfg.Model = file.Model
	}
	if file.BaseURL != "" {
		cfg.BaseURL = file.BaseURL
	}
	if file.APIKey != "" {
		cfg.APIKey = file.APIKey
	}
	if file.MaxTokens > 0 {
		cfg.MaxTokens = file.MaxTokens
	}
	if file.OTELEndpoint != "" {
		cfg.OTELEndpoint = file.OTELEndpoint
	}
	if file.OTELHeaders != "" {
		cfg.OTELHeaders = file.OTELHeaders
	}
	if file.LogFile != "" {
		cfg.LogFile = file.LogFile
	}
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
}

// mergeEnv applies environment variables onto cfg. Env always wins.
func mergeEnv(cfg *Config) {
	if v := os.Getenv("CACTUS_PREFIX"); v != "" {
		cfg.Prefix = v
	}
	if v := os.Getenv("CACTUS_AGENT_COMMAND"); v != "" {
		cfg.AgentCommand = v
	}
	if v := os.Getenv("CACTUS_POLL_INTERVAL"); v != "" {
		cfg.PollInterval = v
	}
	if v := os.Getenv("CACTUS_CAPTURE_TIMEOUT"); v != "" {
		cfg.CaptureTimeout = v
	}
	if v := os.Getenv("CACTUS_READY_AFTER"); v != "" {
		cfg.ReadyAfter = v
	}
	if v := os.Getenv("CACTUS_CAPTURE_LINES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CaptureLines = n
		}
	}
	if v := os.Getenv("CACTUS_PARALLEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Parallel = n
		}
	}
	if v := os.Getenv("CACTUS_EXCLUDE_SESSIONS"); v != "" {
		cfg.ExcludeSessions = splitList(v)
	}
	if v := os.Getenv("CACTUS_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("CACTUS_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("CACTUS_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("CACTUS_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("CACTUS_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("CACTUS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTELEndpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
		cfg.OTELHeaders = v
	}

	// API key fallbacks
	if cfg.APIKey == "" {
		if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
			cfg.APIKey = v
		}
	}
	if cfg.APIKey == "" {
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			cfg.APIKey = v
		}
	}
}

// MatchesExcludeList reports whether name matches any of the glob patterns.
// Only trailing-star globs and exact names are supported.
func MatchesExcludeList(name string, patterns []string) bool {
	for _, p := range patterns {
		if p == "*" {
			return true
		}
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			if strings.HasPrefix(name, prefix) {
				return true
			}
			continue
		}
		if name == p {
			return true
		}
	}
	return false
}

// splitList splits a comma-separated env value into trimmed entries.
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
