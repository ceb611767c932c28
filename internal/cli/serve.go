package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stewardhq/steward/internal/config"
	stewardmcp "github.com/stewardhq/steward/internal/mcp"
	"github.com/stewardhq/steward/internal/reload"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP tool server for agent integration",
	Long: "Runs steward as an MCP (Model Context Protocol) server over stdio.\n" +
		"Exposes steward_execute, steward_check, and steward_status.\n" +
		"The config file is hot-reloaded while the server runs.",
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	gw, log, store, _, err := buildCore()
	if err != nil {
		return err
	}
	defer log.Close()
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	if r, err := reload.New(gw, path); err == nil {
		go func() {
			if err := r.Run(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "config watcher stopped: %v\n", err)
			}
		}()
	} else {
		fmt.Fprintf(os.Stderr, "hot reload disabled: %v\n", err)
	}

	srv := stewardmcp.New(gw, store)
	fmt.Fprintln(os.Stderr, "steward MCP server listening on stdio")
	return srv.Run(ctx)
}
