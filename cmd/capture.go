package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var captureCmd = &cobra.Command{
	Use:   "capture <session>",
	Short: "Capture the visible content of a session's pane",
	Long: `Capture the visible content of a session's active pane and print it
to stdout. This is pure transport — no interpretation of the content.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session := args[0]

		m, err := getMultiplexer()
		if err != nil {
			return err
		}

		content, err := m.CapturePane(cmd.Context(), session)
		if err != nil {
			return fmt.Errorf("failed to capture session %q: %w", session, err)
		}

		fmt.Fprint(os.Stdout, content)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)
}
