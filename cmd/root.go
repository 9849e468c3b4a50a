package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cactusdev/cactus/internal/config"
	"github.com/cactusdev/cactus/internal/evaluator"
	"github.com/cactusdev/cactus/internal/mux"
)

// Version is injected by the linker at release time.
var Version = "dev"

var (
	// Global flags.
	flagMux       string
	flagProvider  string
	flagModel     string
	flagBaseURL   string
	flagAPIKey    string
	flagMaxTokens int64
	flagVerbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "cactus",
	Short: "Status dashboard for agent sessions in tmux",
	Long: `cactus hosts long-running coding agents in tmux sessions and keeps
track of which ones need you.

It polls each session's pane, detects confirmation prompts, and watches
for output to settle so it can tell you when an agent is blocked on a
question, still working, or finished and waiting to be looked at.

Run without a subcommand to open the interactive dashboard.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard(cmd)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = Version
	rootCmd.PersistentFlags().StringVar(&flagMux, "mux", envOrDefault("CACTUS_MUX", ""), "terminal multiplexer: tmux (default: auto-detect)")
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "LLM provider for check: anthropic, openai")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "LLM model name for check")
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "override LLM API base URL")
	rootCmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "override LLM API key")
	rootCmd.PersistentFlags().Int64Var(&flagMaxTokens, "max-tokens", 0, "max completion tokens for check")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "include raw pane content in output")
}

// getMultiplexer returns the configured or auto-detected multiplexer.
func getMultiplexer() (mux.Multiplexer, error) {
	if flagMux != "" {
		return mux.FromName(flagMux)
	}
	return mux.Detect()
}

// getEvaluator returns the configured LLM evaluator. Flags override the
// config file.
func getEvaluator(cfg *config.Config) (evaluator.Evaluator, error) {
	provider := cfg.Provider
	if flagProvider != "" {
		provider = flagProvider
	}
	model := cfg.Model
	if flagModel != "" {
		model = flagModel
	}
	baseURL := cfg.BaseURL
	if flagBaseURL != "" {
		baseURL = flagBaseURL
	}
	apiKey := cfg.APIKey
	if flagAPIKey != "" {
		apiKey = flagAPIKey
	}
	maxTokens := cfg.MaxTokens
	if flagMaxTokens > 0 {
		maxTokens = flagMaxTokens
	}

	if apiKey == "" {
		return nil, fmt.Errorf("no API key found. Set CACTUS_API_KEY, ANTHROPIC_API_KEY, or OPENAI_API_KEY")
	}

	switch provider {
	case "anthropic":
		return evaluator.NewAnthropicEvaluator(evaluator.AnthropicConfig{
			BaseURL:   baseURL,
			APIKey:    apiKey,
			Model:     model,
			MaxTokens: maxTokens,
		}), nil
	case "openai":
		if flagModel == "" && cfg.Model == "claude-sonnet-4-5" {
			model = "gpt-4o-mini"
		}
		return evaluator.NewOpenAIEvaluator(evaluator.OpenAIConfig{
			BaseURL:   baseURL,
			APIKey:    apiKey,
			Model:     model,
			MaxTokens: maxTokens,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (supported: anthropic, openai)", provider)
	}
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
