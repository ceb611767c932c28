// Package cli implements the steward command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stewardhq/steward/internal/audit"
	"github.com/stewardhq/steward/internal/config"
	"github.com/stewardhq/steward/internal/gateway"
	"github.com/stewardhq/steward/internal/history"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "steward",
	Short: "Command routing and safety core for a personal agent",
	Long: "Routes every command from every surface through one pipeline:\n" +
		"sanitization, plan arbitration, tiered scheduling, and guarded\n" +
		"execution across the local engine and the remote provider.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (default $STEWARD_CONFIG or ~/.steward/config.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildCore assembles the gateway and its collaborators from config.
// The caller owns closing the returned log and store.
func buildCore() (*gateway.Gateway, *audit.Log, *history.Store, config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, config.Config{}, err
	}

	log, err := audit.Open(cfg.Audit.Path)
	if err != nil {
		return nil, nil, nil, config.Config{}, fmt.Errorf("open audit log: %w", err)
	}

	store, err := history.New(cfg.History.Path)
	if err != nil {
		log.Close()
		return nil, nil, nil, config.Config{}, fmt.Errorf("open history store: %w", err)
	}

	gw := gateway.New(gateway.Options{
		Config:   cfg,
		Audit:    log,
		Archiver: store,
	})
	return gw, log, store, cfg, nil
}
