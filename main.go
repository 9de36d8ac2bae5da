package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/treefix50/showroom/internal/catalog"
	"github.com/treefix50/showroom/internal/config"
	"github.com/treefix50/showroom/internal/storage"
)

var (
	// Global flags
	configPath string
	verbose    bool
	addrFlag   string
	rootFlag   string
	dbFlag     string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "showroom",
	Short: "Browse a local TV show library in the browser",
	Long: `showroom scans a directory of TV shows described by TVmaze show.json or
Kodi tvshow.nfo files and serves a searchable catalog with a detail view
that steps through the search results with Prev/Next.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err = buildLogger(cfg.Logging, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&addrFlag, "addr", "", "Listen address (overrides server.addr)")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "Show library root (overrides library.root)")
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", `SQLite database path, ":memory:" for none (overrides database.path)`)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(hashPasswordCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers command-line flags over the file and environment.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	c, err := config.Load(configPath)
	if err != nil {
		return c, err
	}
	flags := cmd.Flags()
	if flags.Changed("addr") {
		c.Server.Addr = addrFlag
	}
	if flags.Changed("root") {
		c.Library.Root = rootFlag
	}
	if flags.Changed("db") {
		c.Database.Path = dbFlag
	}
	return c, c.Validate()
}

func buildLogger(lc config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if lc.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// openStore opens the configured database. An empty path or ":memory:"
// keeps the catalog in memory for the lifetime of the process.
func openStore(dc config.DatabaseConfig) (*storage.Store, error) {
	path := dc.Path
	if path == "" {
		path = ":memory:"
	}
	if path != ":memory:" && !dc.ReadOnly {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	return storage.Open(path, storage.Options{
		BusyTimeout: dc.BusyTimeout,
		Synchronous: dc.Synchronous,
		CacheSize:   dc.CacheSize,
		ReadOnly:    dc.ReadOnly,
	})
}

func openLibrary(c config.Config, store *storage.Store, log *zap.Logger) (*catalog.Library, error) {
	return catalog.NewLibrary(c.Library.Root, store, catalog.LibraryOptions{
		CacheSize: c.Cache.DetailSize,
		Logger:    log.Named("catalog"),
	})
}
