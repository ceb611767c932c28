package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	stewardaudit "github.com/stewardhq/steward/internal/audit"
	"github.com/stewardhq/steward/internal/config"
)

var (
	auditTailLimit int
	auditTailEvent string
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTailCmd)
	auditTailCmd.Flags().IntVarP(&auditTailLimit, "limit", "n", 50, "Maximum number of entries")
	auditTailCmd.Flags().StringVar(&auditTailEvent, "event", "", "Filter to one event type")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the hash-chained audit log",
}

// auditLogPath resolves the audit file: explicit argument, else config.
func auditLogPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", err
	}
	return cfg.Audit.Path, nil
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "Validate the audit log hash chain",
	Long: "Walks the JSONL log and checks every entry's prev_hash against the\n" +
		"previous line. Exit code 1 if the chain is broken.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := auditLogPath(args)
		if err != nil {
			return err
		}
		result := stewardaudit.Verify(path)
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
		if !result.Valid {
			os.Exit(1)
		}
		return nil
	},
}

var auditTailCmd = &cobra.Command{
	Use:   "tail [path]",
	Short: "Print the most recent audit entries",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := auditLogPath(args)
		if err != nil {
			return err
		}
		entries, err := stewardaudit.Tail(path, auditTailLimit, stewardaudit.Event(auditTailEvent))
		if err != nil {
			return err
		}
		fmt.Print(stewardaudit.FormatTimeline(entries))
		return nil
	},
}
