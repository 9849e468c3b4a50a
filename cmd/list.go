package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cactusdev/cactus/internal/classify"
	"github.com/cactusdev/cactus/internal/config"
	"github.com/cactusdev/cactus/internal/poller"
	"github.com/cactusdev/cactus/internal/registry"
)

var flagListJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked sessions and their status",
	Long: `Run a single poll cycle and print every tracked session with its
current status. Useful for scripting; the dashboard shows the same
information interactively.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}

		m, err := getMultiplexer()
		if err != nil {
			return err
		}

		reg := registry.New()
		p := &poller.Poller{
			Mux:        m,
			Registry:   reg,
			Classifier: classify.New(cfg.CompiledPatterns, cfg.ReadyAfterDuration, cfg.CaptureLines),
			Prefix:     cfg.Prefix,
			Exclude: func(name string) bool {
				return config.MatchesExcludeList(name, cfg.ExcludeSessions)
			},
			Interval:       cfg.PollIntervalDuration,
			CaptureTimeout: cfg.CaptureTimeoutDuration,
			Parallel:       cfg.Parallel,
		}
		p.Cycle(cmd.Context())

		views := reg.Views()
		if flagListJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(views)
		}
		for _, v := range views {
			status := v.Status.String()
			if v.Stale {
				status += " (stale)"
			}
			fmt.Printf("%s\t%s\t%s\n", v.ID, v.DisplayName, status)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&flagListJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(listCmd)
}
