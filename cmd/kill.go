package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cactusdev/cactus/internal/config"
	"github.com/cactusdev/cactus/internal/controller"
	"github.com/cactusdev/cactus/internal/registry"
)

var killCmd = &cobra.Command{
	Use:   "kill <name>",
	Short: "Kill a tracked agent session",
	Long: `Kill the tmux session behind a tracked agent session. The name may be
given with or without the configured prefix. Killing a session that is
already gone is not an error.`,
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

		id := args[0]
		if !strings.HasPrefix(id, cfg.Prefix) {
			id = cfg.Prefix + id
		}

		ctrl := &controller.Controller{Mux: m, Registry: registry.New()}
		if err := ctrl.Delete(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("killed %s\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(killCmd)
}
