package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stewardhq/steward/internal/orchestrate"
	"github.com/stewardhq/steward/internal/route"
)

var (
	executeSource string
	executeFormat string
)

func init() {
	rootCmd.AddCommand(executeCmd)
	executeCmd.Flags().StringVarP(&executeSource, "source", "s", "internal", "Originating surface (shortcuts|voice-assistant|messaging-channel|widget|internal)")
	executeCmd.Flags().StringVarP(&executeFormat, "format", "f", "text", "Output format (text|json)")
}

var executeCmd = &cobra.Command{
	Use:   "execute \"<command>\"",
	Short: "Run one command through the full pipeline",
	Long: "Sanitizes the command, arbitrates it into the plan, and executes it\n" +
		"through the router. Exit code 77 when the command is refused as a\n" +
		"security violation.",
	Args: cobra.MinimumNArgs(1),
	RunE: runExecute,
}

func runExecute(cmd *cobra.Command, args []string) error {
	gw, log, store, _, err := buildCore()
	if err != nil {
		return err
	}
	defer log.Close()
	defer store.Close()

	command := strings.Join(args, " ")
	resp, err := gw.Execute(context.Background(), command, route.Source(executeSource))
	if err != nil {
		var sv *orchestrate.SecurityViolationError
		if errors.As(err, &sv) {
			fmt.Fprintf(os.Stderr, "BLOCKED: %s\n", sv.Reason)
			os.Exit(77)
		}
		return err
	}

	if executeFormat == "json" {
		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Println(resp.Text)
	path := "remote/" + resp.Decision.Tier
	if resp.Decision.IsLocal {
		path = "local"
	}
	fmt.Fprintf(os.Stderr, "plan %s (%s) served via %s\n", resp.Plan.ID, resp.Action, path)
	return nil
}
