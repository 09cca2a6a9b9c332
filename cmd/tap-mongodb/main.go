// Package main is the entry point for the tap-mongodb binary.
// It wires the replication core (connector, readers, state machine,
// emitter) together and writes the singer-style record protocol to
// standard output.
//
// Startup sequence:
//  1. Parse CLI flags / environment variables
//  2. Build logger
//  3. Load and validate the JSON config document
//  4. Connect to MongoDB (the engine version is probed lazily, when a
//     log-based stream first needs it)
//  5. With --discover, print the discovered collections as a catalog and
//     exit; otherwise load the streams to replicate from the catalog
//  6. Run each stream's reader sequentially, emitting records to stdout
//  7. On SIGINT/SIGTERM, cancel the run context: the current reader stops
//     and no further stream is started
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MeltanoLabs/tap-mongodb/internal/corelog"
	"github.com/MeltanoLabs/tap-mongodb/internal/tapconfig"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type cliConfig struct {
	configPath string
	catalogPath string
	statePath   string
	logLevel    string
	discoverOnly bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &cliConfig{}

	root := &cobra.Command{
		Use:   "tap-mongodb",
		Short: "tap-mongodb — change-data-capture extractor for MongoDB and DocumentDB",
		Long: `tap-mongodb reads records from MongoDB (or an API-compatible engine such as
AWS DocumentDB) and emits them as a stream of singer-style record
messages: RECORD and STATE lines of newline-delimited JSON on standard
output. SCHEMA messages are not written.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	root.AddCommand(newVersionCmd())

	root.PersistentFlags().StringVar(&cfg.configPath, "config", envOrDefault("TAP_MONGODB_CONFIG", "config.json"), "Path to the JSON config document")
	root.PersistentFlags().StringVar(&cfg.catalogPath, "catalog", envOrDefault("TAP_MONGODB_CATALOG", ""), "Path to a discovered catalog (selects streams); required unless --discover is set")
	root.PersistentFlags().StringVar(&cfg.statePath, "state", envOrDefault("TAP_MONGODB_STATE", ""), "Path to a prior state file (bookmarks); empty starts fresh")
	root.PersistentFlags().StringVar(&cfg.logLevel, "log-level", envOrDefault("TAP_MONGODB_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&cfg.discoverOnly, "discover", false, "Discover collections and print a catalog, then exit")

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tap-mongodb %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func run(ctx context.Context, cli *cliConfig) error {
	if err := corelog.Configure(cli.logLevel == "debug", cli.logLevel); err != nil {
		return fmt.Errorf("failed to configure logger: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := tapconfig.Load(cli.configPath)
	if err != nil {
		return err
	}

	corelog.Info("starting tap-mongodb",
		zap.String("version", version),
		zap.String("database", cfg.Database),
	)

	runner, err := newRunner(ctx, cfg)
	if err != nil {
		return err
	}
	defer runner.Close(ctx)

	if cli.discoverOnly {
		return runner.Discover(ctx, os.Stdout)
	}

	streams, err := runner.LoadStreams(cli.catalogPath)
	if err != nil {
		return err
	}

	if err := runner.LoadState(cli.statePath); err != nil {
		return err
	}

	for _, entry := range streams {
		select {
		case <-ctx.Done():
			corelog.Info("shutdown requested, stopping before next stream")
			return nil
		default:
		}

		if err := runner.RunStream(ctx, entry, os.Stdout); err != nil {
			return fmt.Errorf("stream %s failed: %w", entry.StreamID, err)
		}
	}

	corelog.Info("tap-mongodb finished")
	return nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
