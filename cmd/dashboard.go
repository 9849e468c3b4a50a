package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cactusdev/cactus/internal/classify"
	"github.com/cactusdev/cactus/internal/config"
	"github.com/cactusdev/cactus/internal/controller"
	"github.com/cactusdev/cactus/internal/dashboard"
	"github.com/cactusdev/cactus/internal/events"
	"github.com/cactusdev/cactus/internal/logging"
	telem "github.com/cactusdev/cactus/internal/otel"
	"github.com/cactusdev/cactus/internal/poller"
	"github.com/cactusdev/cactus/internal/registry"
)

var (
	flagNoEmbed     bool
	flagTheme       string
	flagEventSocket string
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive dashboard of tracked agent sessions",
	Long: `Open the interactive dashboard. A background poller watches every
tracked tmux session and the list updates as agents ask questions,
keep working, or settle down.

If not already running inside tmux, the dashboard automatically
re-launches itself in a new tmux session so that switching to a
session on Enter works. Use --no-embed to disable this behavior.

Configuration is loaded from .cactus.yaml or environment variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard(cmd)
	},
}

func init() {
	dashboardCmd.Flags().BoolVar(&flagNoEmbed, "no-embed", false,
		"Do not auto-embed in a tmux session (Enter-to-switch will not work outside tmux)")
	dashboardCmd.Flags().StringVar(&flagTheme, "theme", "dark",
		"Color theme: dark, light")
	dashboardCmd.Flags().StringVar(&flagEventSocket, "event-socket", "",
		"Unix datagram socket path for agent hook events")
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command) error {
	// Switching to a session requires an attached tmux client, so re-exec
	// inside tmux when started outside one.
	if !flagNoEmbed {
		autoEmbedInTmux()
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel() // stops the poller when the TUI exits

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.ConfigFile != "" {
		fmt.Fprintf(os.Stderr, "config: loaded %s\n", cfg.ConfigFile)
	}

	// The TUI owns the terminal; everything else logs to the debug file.
	log := logging.Init(logging.Config{File: cfg.LogFile, Level: cfg.LogLevel})
	defer logging.Shutdown()

	telem.Version = Version
	tel, err := telem.Init(ctx, telem.OTELConfig{
		Endpoint: cfg.OTELEndpoint,
		Headers:  cfg.OTELHeaders,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: otel init failed: %v\n", err)
	}
	if tel != nil {
		defer tel.Shutdown(ctx)
	}

	m, err := getMultiplexer()
	if err != nil {
		return fmt.Errorf("no supported terminal multiplexer found: %w", err)
	}

	// Never track the session hosting the dashboard itself.
	if self := resolveSelfSession(); self != "" {
		cfg.ExcludeSessions = append(cfg.ExcludeSessions, self)
		log.Info("excluding own session from tracking", "session", self)
	}

	socketPath := flagEventSocket
	if socketPath == "" {
		socketPath = events.DefaultSocketPath()
	}
	hintStore := events.NewStore(3 * time.Minute)
	collector := events.NewCollector(hintStore, socketPath)
	if err := collector.Start(ctx); err != nil {
		return fmt.Errorf("hook collector: %w", err)
	}
	log.Info("hook collector listening", "socket", collector.SocketPath())

	var metrics *telem.Metrics
	if tel != nil {
		metrics = tel.Metrics
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
		Hints:          hintStore,
		Metrics:        metrics,
		Logger:         log,
	}

	// Seed the registry before the first render, then poll in the background.
	p.Cycle(ctx)
	go p.Run(ctx)

	ctrl := &controller.Controller{
		Mux:          m,
		Registry:     reg,
		Prefix:       cfg.Prefix,
		AgentCommand: cfg.AgentCommand,
		Logger:       log,
	}

	d := &dashboard.Dashboard{
		Controller:      ctrl,
		Registry:        reg,
		RefreshInterval: cfg.PollIntervalDuration,
		Theme:           dashboard.ThemeByName(flagTheme),
		Version:         Version,
	}
	return d.Run(ctx)
}

// resolveSelfSession returns the name of the tmux session hosting this
// process. Empty when not running inside tmux or resolution fails.
func resolveSelfSession() string {
	if os.Getenv("TMUX_PANE") == "" {
		return ""
	}
	out, err := exec.Command("tmux", "display-message", "-p", "#{session_name}").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// autoEmbedInTmux re-launches the current process inside a tmux session
// when not already running under tmux. On success, the current process is
// replaced (syscall.Exec) and this function never returns. On failure, it
// prints a warning and returns so the dashboard can run with degraded
// navigation.
func autoEmbedInTmux() {
	if os.Getenv("TMUX") != "" {
		return // already inside tmux
	}

	tmuxPath, err := exec.LookPath("tmux")
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: tmux not found in PATH, navigation will not work\n")
		return
	}

	exe, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not resolve executable path: %v\n", err)
		return
	}

	wd, err := os.Getwd()
	if err != nil {
		wd = "/"
	}

	// Pick a session name, avoiding conflicts with existing sessions.
	sessionName := "cactus-dashboard"
	hasSession := exec.Command(tmuxPath, "has-session", "-t", sessionName)
	if hasSession.Run() == nil {
		// Session exists — let tmux auto-name instead
		sessionName = ""
	}

	tmuxArgs := []string{"tmux", "new-session"}
	if sessionName != "" {
		tmuxArgs = append(tmuxArgs, "-s", sessionName)
	}
	tmuxArgs = append(tmuxArgs, "-c", wd, exe)
	tmuxArgs = append(tmuxArgs, os.Args[1:]...)

	fmt.Fprintf(os.Stderr, "not inside tmux — auto-embedding in a tmux session\n")

	// Replace this process with tmux. On success, this never returns.
	if err := syscall.Exec(tmuxPath, tmuxArgs, os.Environ()); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not auto-embed in tmux: %v\n", err)
		fmt.Fprintf(os.Stderr, "use --no-embed to suppress this warning\n")
	}
}
