// Package main implements the flow CLI: the HTTP server plus
// backup, review and maintenance commands over the same store.
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/wesm/flow/internal/analytics"
	"github.com/wesm/flow/internal/config"
	"github.com/wesm/flow/internal/db"
	"github.com/wesm/flow/internal/store"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = ""
)

const (
	logFileName = "debug.log"
	// maxLogSize is the size above which debug.log is truncated
	// on startup.
	maxLogSize = 10 << 20
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the CLI and returns the process exit code.
func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "flow",
		Short: "Flow - task and habit tracker",
		Long: `Flow serves the task, habit and focus tracker API and
manages its data from the command line.

Data is stored in ~/.flow/ by default.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         runServe,
	}
	config.RegisterStoreFlags(root.PersistentFlags())
	config.RegisterServeFlags(root.Flags())

	root.AddCommand(
		newServeCmd(),
		newExportCmd(),
		newImportCmd(),
		newReviewCmd(),
		newPruneCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(),
				"flow %s (commit %s, built %s)\n",
				version, commit, buildDate)
		},
	}
}

// loadConfig resolves the configuration from cmd's parsed flags
// and makes sure the data directory exists.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return cfg, fmt.Errorf("loading config: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return cfg, fmt.Errorf("creating data dir: %w", err)
	}
	return cfg, nil
}

// newEngine builds the analytics engine for cfg.
func newEngine(cfg config.Config) (*analytics.Engine, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return analytics.New(
		analytics.WithLocation(loc),
		analytics.WithFeatures(cfg.Features),
	), nil
}

// openStore opens the configured backend. A SQL backend that
// cannot be opened falls back to the JSON file store; the
// returned config reflects the backend actually in use.
func openStore(
	cfg config.Config, opts ...store.FileOption,
) (store.Store, config.Config, error) {
	switch cfg.Storage {
	case config.StorageSQLite, config.StoragePostgres:
		var (
			database *db.DB
			err      error
		)
		if cfg.Storage == config.StoragePostgres {
			database, err = db.OpenPostgres(cfg.DatabaseURL)
		} else {
			database, err = db.Open(cfg.DBPath())
		}
		if err == nil {
			return database, cfg, nil
		}
		log.Printf(
			"warning: %s storage unavailable, using %s: %v",
			cfg.Storage, cfg.DataFile(), err,
		)
		cfg.Storage = config.StorageFile
	}

	if config.MigrateFromLegacy(cfg.DataDir) {
		log.Printf("Imported legacy data into %s", cfg.DataFile())
	}
	fs, err := store.OpenFile(cfg.DataFile(), opts...)
	if err != nil {
		return nil, cfg, fmt.Errorf("opening data file: %w", err)
	}
	return fs, cfg, nil
}

// setupLogFile mirrors the standard logger into debug.log in
// dataDir, truncating the file first when it has grown too large.
func setupLogFile(dataDir string) {
	path := filepath.Join(dataDir, logFileName)
	truncateLogFile(path, maxLogSize)
	f, err := os.OpenFile(
		path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644,
	)
	if err != nil {
		log.Printf("warning: cannot open log file: %v", err)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
}

// truncateLogFile empties path when it is a regular file larger
// than limit. Symlinks are left alone.
func truncateLogFile(path string, limit int64) {
	info, err := os.Lstat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	if info.Size() <= limit {
		return
	}
	if err := os.Truncate(path, 0); err != nil {
		log.Printf("warning: truncating %s: %v", path, err)
	}
}
