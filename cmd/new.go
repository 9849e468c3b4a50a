package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cactusdev/cactus/internal/config"
	"github.com/cactusdev/cactus/internal/controller"
	"github.com/cactusdev/cactus/internal/registry"
)

var flagNewDir string

var newCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Create a tracked agent session",
	Long: `Create a new tmux session with the configured prefix, launch the agent
command in it, and remember the working directory. Without a name a
random one is generated.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}

		m, err := getMultiplexer()
		if err != nil {
			return err
		}

		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		dir := flagNewDir
		if dir == "" {
			dir, err = os.Getwd()
			if err != nil {
				return err
			}
		}

		ctrl := &controller.Controller{
			Mux:          m,
			Registry:     registry.New(),
			Prefix:       cfg.Prefix,
			AgentCommand: cfg.AgentCommand,
		}
		res, err := ctrl.Create(cmd.Context(), name, dir)
		if err != nil {
			return err
		}
		if err := config.RememberPath(dir); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not save path history: %v\n", err)
		}

		fmt.Println(res.ID)
		if !res.Switched {
			fmt.Fprintf(os.Stderr, "attach with: tmux attach -t %s\n", res.ID)
		}
		return nil
	},
}

func init() {
	newCmd.Flags().StringVar(&flagNewDir, "dir", "", "working directory for the session (default: current directory)")
	rootCmd.AddCommand(newCmd)
}
