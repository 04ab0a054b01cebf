package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/fitdash/internal/config"
	"github.com/TobiSchelling/fitdash/internal/dashboard"
	"github.com/TobiSchelling/fitdash/internal/database"
	"github.com/TobiSchelling/fitdash/internal/dataset"
	"github.com/TobiSchelling/fitdash/internal/logging"
	"github.com/TobiSchelling/fitdash/internal/narrate"
	"github.com/TobiSchelling/fitdash/internal/server"
	"github.com/TobiSchelling/fitdash/internal/session"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
	logCloser  io.Closer
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "fitdash",
	Short:   "Personal fitness dashboard",
	Long:    "fitdash turns a daily fitness log (CSV or Excel) into monthly stats, charts and plain-language insights.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(); err != nil {
			return err
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		switch {
		case err == nil:
			cfg, err = config.Load(path)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
		case configPath == "":
			cfg = config.Default()
		default:
			return err
		}

		if verbose {
			cfg.Logging.Level = "debug"
		}
		logger, logCloser, err = logging.New(cfg.Logging, os.Stderr)
		if err != nil {
			return fmt.Errorf("setting up logging: %w", err)
		}
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(datasetsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("fitdash", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/fitdash/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to point dataset.path at your fitness log.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store and configuration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		bold := color.New(color.Bold).SprintFunc()
		fmt.Println(bold("Store:"), db.Path())
		fmt.Printf("  Datasets: %d\n", stats.Datasets)
		fmt.Printf("  Observations: %d\n", stats.Observations)
		fmt.Printf("  Months covered: %d\n", stats.Months)
		if stats.DefaultName != "" {
			fmt.Printf("  Default dataset: %s\n", stats.DefaultName)
		} else {
			fmt.Println("  Default dataset: none")
		}

		fmt.Println(bold("\nServing:"))
		if p := cfg.DatasetPath(); p != "" {
			fmt.Printf("  Dataset file: %s\n", p)
		}
		fmt.Printf("  Address: http://%s\n", cfg.Addr())
		if cfg.Narration.Enabled {
			fmt.Printf("  Narration: %s (%s)\n", cfg.Narration.Provider, cfg.Narration.Model)
		} else {
			fmt.Println("  Narration: disabled")
		}
		return nil
	},
}

// --- serve command ---

var (
	servePort int
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort > 0 {
			cfg.Server.Port = servePort
		}
		if serveHost != "" {
			cfg.Server.Host = serveHost
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		def, err := defaultTable(db, "")
		if err != nil {
			return err
		}
		logger.Info("default dataset", "name", def.Name, "rows", def.Len())

		deps := server.Deps{
			Default:        def,
			Store:          db,
			Sessions:       session.NewManager(cfg.Cache.Sessions, cfg.Cache.SessionTTL, cfg.Server.Secure, logger),
			Views:          dashboard.NewBuilder(cfg.Insights, cfg.Cache.Views, cfg.Cache.ViewTTL, logger),
			MaxUploadBytes: cfg.MaxUploadBytes(),
			Logger:         logger,
		}
		if cfg.Narration.Enabled {
			deps.Narrator = newNarrator()
		}
		srv, err := server.New(deps)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Starting server at http://%s\n", cfg.Addr())
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(ctx, srv, cfg.Addr(), logger)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind (default from config)")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(cfg.DBPath())
}

// defaultTable picks the dataset to analyse: an explicit file, then the
// configured dataset file, then the store's default. Without any of these it
// returns an empty table.
func defaultTable(db *database.DB, file string) (*dataset.Table, error) {
	if file == "" {
		file = cfg.DatasetPath()
	}
	if file != "" {
		t, err := dataset.LoadFile(file)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
	if db != nil {
		t, err := db.GetDefaultDataset()
		if err != nil {
			return nil, fmt.Errorf("loading default dataset: %w", err)
		}
		if t != nil {
			return t, nil
		}
	}
	logger.Warn("no dataset configured; set dataset.path or run 'fitdash datasets import --default'")
	return dataset.NewTable("(no dataset)", "none", nil), nil
}

func newNarrator() *narrate.Narrator {
	n := cfg.Narration
	provider := narrate.CreateProvider(narrate.ProviderConfig{
		Provider:    n.Provider,
		Model:       n.Model,
		OllamaURL:   n.OllamaURL,
		OpenAIModel: n.OpenAIModel,
		OpenAIURL:   n.OpenAIURL,
		APIKeyEnv:   n.APIKeyEnv,
		Timeout:     n.Timeout,
	}, logger)
	return narrate.New(provider, narrate.Options{
		Attempts:  n.Attempts,
		Delay:     n.RetryDelay,
		MaxTokens: n.MaxTokens,
	}, logger)
}

func printErr(err error) {
	var missing *dataset.MissingColumnsError
	if errors.As(err, &missing) {
		color.Red("Missing columns: %v", missing.Missing)
	}
}
