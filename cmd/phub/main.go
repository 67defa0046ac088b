package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tgienger/phub/internal/api"
	"github.com/tgienger/phub/internal/cache"
	"github.com/tgienger/phub/internal/config"
	"github.com/tgienger/phub/internal/db"
	"github.com/tgienger/phub/internal/logging"
	"github.com/tgienger/phub/internal/org"
	"github.com/tgienger/phub/internal/session"
	"github.com/tgienger/phub/internal/store"
	"github.com/tgienger/phub/internal/ui"
	"github.com/tgienger/phub/internal/ui/styles"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type flags struct {
	config   string
	endpoint string
	join     string
	debug    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:           "phub",
		Short:         "Terminal client for ProjectHub",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(f)
		},
	}
	root.PersistentFlags().StringVar(&f.config, "config", "", "config file (default $XDG_CONFIG_HOME/phub/config.yaml)")
	root.PersistentFlags().StringVar(&f.endpoint, "endpoint", "", "GraphQL endpoint, overrides the config file")
	root.PersistentFlags().BoolVar(&f.debug, "debug", false, "log at debug level")
	root.Flags().StringVar(&f.join, "join", "", "invite code to redeem after signing in")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "phub %s (commit: %s, built: %s)\n", version, commit, date)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "join <code>",
		Short: "Join an organization with an invite code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.join = args[0]
			return run(f)
		},
	})
	return root
}

func run(f *flags) error {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(f.config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if f.endpoint != "" {
		cfg.Endpoint = f.endpoint
	}
	if err := styles.Use(cfg.Theme); err != nil {
		return err
	}

	logPath := cfg.LogFile
	if logPath == "" {
		logPath = logging.DefaultPath(cfg.DataDir)
	}
	logFile, err := logging.Setup(logPath, cfg.LogLevel, f.debug)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	database, err := db.New(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer database.Close()

	c := cache.New(cache.WithMaxAge(cfg.CacheMaxAge))
	selector := org.NewSelector(database)

	var sess *session.Store
	client := api.New(cfg.Endpoint,
		api.TokenFunc(func() string { return sess.Token() }),
		api.WithTimeout(cfg.RequestTimeout),
	)
	sess = session.New(client, database,
		session.OnSessionEnd(c.Reset),
		session.OnSessionEnd(selector.Clear),
	)

	log.Info().Str("endpoint", cfg.Endpoint).Str("version", version).Msg("starting")

	app := ui.NewApp(ui.Options{
		Session:  sess,
		Store:    store.New(client, c, selector),
		Orgs:     selector,
		Memory:   database,
		LinkBase: cfg.InviteURLBase,
		JoinCode: f.join,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running application: %w", err)
	}
	return nil
}
