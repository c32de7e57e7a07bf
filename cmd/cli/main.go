package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/courtside/internal/client"
	"github.com/mauv0809/courtside/internal/config"
	"github.com/mauv0809/courtside/internal/localstore"
	"github.com/mauv0809/courtside/internal/metrics"
	courtsync "github.com/mauv0809/courtside/internal/sync"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	host        string
	localDB     string
	maxAttempts int
	verbose     bool

	cfg config.ClientConfig
)

var rootCmd = &cobra.Command{
	Use:   "courtside",
	Short: "Scorekeeper CLI for the courtside stat server",
	Long: `A command-line scorekeeper. Stat events are written to a local queue
first and synced to the courtside server in order, so scoring keeps
working while the device is offline.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
		var err error
		cfg, err = config.LoadClient()
		if err != nil {
			return err
		}
		if host != "" {
			cfg.Server = host
		}
		if localDB != "" {
			cfg.LocalDB = localDB
		}
		if maxAttempts > 0 {
			cfg.MaxAttempts = maxAttempts
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&host, "host", "", "The host address of the server (default $COURTSIDE_SERVER or http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&localDB, "db", "", "Path of the local queue database (default $COURTSIDE_LOCAL_DB)")
	rootCmd.PersistentFlags().IntVar(&maxAttempts, "max-attempts", 0, "Server faults tolerated before a mutation is dead-lettered")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// device bundles what the queue-backed commands need.
type device struct {
	store  *localstore.Store
	api    *client.APIClient
	engine *courtsync.Engine
}

func openDevice() (*device, error) {
	store, err := localstore.Open(cfg.LocalDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store %s: %w", cfg.LocalDB, err)
	}
	api := client.NewClient(cfg.Server)
	engine := courtsync.New(store, store, api, metrics.NewService(prometheus.NewRegistry()), courtsync.Config{
		Interval:    cfg.SyncInterval,
		MaxAttempts: cfg.MaxAttempts,
	})
	return &device{store: store, api: api, engine: engine}, nil
}

func (d *device) Close() {
	if err := d.store.Close(); err != nil {
		log.Error("Failed to close local store", "error", err)
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your command '%s'\n", err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
