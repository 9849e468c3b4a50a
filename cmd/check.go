package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cactusdev/cactus/internal/config"
)

// checkResult is the JSON document printed by the check command.
type checkResult struct {
	Session     string    `json:"session"`
	Blocked     bool      `json:"blocked"`
	Reason      string    `json:"reason"`
	WaitingFor  string    `json:"waiting_for,omitempty"`
	Suggestion  string    `json:"suggestion,omitempty"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	EvaluatedAt time.Time `json:"evaluated_at"`
	DurationMs  int64     `json:"duration_ms"`
	Content     string    `json:"content,omitempty"`
}

var checkCmd = &cobra.Command{
	Use:   "check <name>",
	Short: "Ask an LLM whether a session is waiting for input",
	Long: `Capture a session's pane and ask an LLM whether the agent inside is
blocked waiting for human input. This is a one-shot second opinion on
top of the dashboard's pattern-based detection; the poll loop itself
never calls an LLM.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}

		m, err := getMultiplexer()
		if err != nil {
			return err
		}

		eval, err := getEvaluator(cfg)
		if err != nil {
			return err
		}

		id := args[0]
		if !strings.HasPrefix(id, cfg.Prefix) {
			id = cfg.Prefix + id
		}

		start := time.Now()
		content, err := m.CapturePane(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to capture session %q: %w", id, err)
		}

		verdict, err := eval.Evaluate(cmd.Context(), content)
		if err != nil {
			return fmt.Errorf("evaluation failed for %q: %w", id, err)
		}

		result := checkResult{
			Session:     id,
			Blocked:     verdict.Blocked,
			Reason:      verdict.Reason,
			WaitingFor:  verdict.WaitingFor,
			Suggestion:  verdict.Suggestion,
			Provider:    eval.Provider(),
			Model:       eval.Model(),
			EvaluatedAt: time.Now().UTC(),
			DurationMs:  time.Since(start).Milliseconds(),
		}
		if flagVerbose {
			result.Content = content
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
