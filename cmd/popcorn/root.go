package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/abelbrown/popcorn/internal/config"
	"github.com/abelbrown/popcorn/internal/logging"
	"github.com/abelbrown/popcorn/internal/omdb"
	"github.com/abelbrown/popcorn/internal/otel"
	"github.com/abelbrown/popcorn/internal/session"
	"github.com/abelbrown/popcorn/internal/ui"
)

var (
	configPath    string
	debounceFetch bool
	cfg           *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "popcorn",
	Short: "Search movies and keep a list of what you watched",
	Long: `popcorn searches the OMDb catalog as you type, shows details for the
movie you pick, and keeps a rated list of what you watched this session.

Run without a subcommand to start the interactive UI.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("debounce-fetch") {
			cfg.Search.DebounceFetch = debounceFetch
		}
		omdb.UserAgent = "popcorn/" + Version
		return nil
	},
	RunE: runTUI,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: ~/.popcorn/config.json)")
	rootCmd.Flags().BoolVar(&debounceFetch, "debounce-fetch", false, "wait for typing to pause before searching")
}

func runTUI(cmd *cobra.Command, args []string) error {
	if err := logging.Open(filepath.Join(dataDir(), "logs"), Version); err != nil {
		fmt.Fprintf(os.Stderr, "warning: file logging disabled: %v\n", err)
	}
	defer logging.Close()

	events, closeEvents := openEventLog()
	defer closeEvents()
	ring := otel.NewRingBuffer(0)
	events.SetRingBuffer(ring)

	hist := openHistory()
	if hist != nil {
		defer hist.Close()
	}

	notifier := ui.NewNotifier()
	title := ui.NewWindowTitle(cfg.UI.BaselineTitle, notifier.Notify)

	opts := session.Options{
		MinQueryLength: cfg.Search.MinQueryLength,
		Debounce:       cfg.Debounce(),
		DebounceFetch:  cfg.Search.DebounceFetch,
		Title:          title,
		BaselineTitle:  cfg.UI.BaselineTitle,
		OnChange:       notifier.Notify,
		Events:         events,
	}
	if hist != nil {
		opts.History = hist
	}
	sess := session.New(newClient(cfg), opts)

	app := ui.NewApp(ui.AppConfig{
		Session:     sess,
		Notifier:    notifier,
		Title:       title,
		Ring:        ring,
		Events:      events,
		ShowDebug:   cfg.UI.DebugOverlay,
		ShowPosters: cfg.UI.ShowPosters,
	})

	events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindStartup, Comp: "main", Msg: Version,
		Extra: map[string]any{"debounce_fetch": cfg.Search.DebounceFetch, "base_url": cfg.API.BaseURL}})
	logging.Info("tui starting", "debounce_fetch", cfg.Search.DebounceFetch)

	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()

	sess.Close()
	events.Info(otel.KindShutdown, "main", "")
	logging.Info("tui stopped", "session", events.SessionID(), "events_dropped", events.Dropped())
	if err != nil {
		events.Error(otel.KindError, "main", err)
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
