package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	historyLimit  int
	historyFormat string
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of plans to list")
	historyCmd.Flags().StringVarP(&historyFormat, "format", "f", "text", "Output format (text|json)")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived plans, newest first",
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	_, log, store, _, err := buildCore()
	if err != nil {
		return err
	}
	defer log.Close()
	defer store.Close()

	plans, err := store.List(context.Background(), historyLimit)
	if err != nil {
		return err
	}

	if historyFormat == "json" {
		out, err := json.MarshalIndent(plans, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(plans) == 0 {
		fmt.Println("no archived plans")
		return nil
	}
	for _, p := range plans {
		fmt.Printf("%s  %-9s  %s  (%d steps)\n",
			p.CompletedAt.Format("2006-01-02 15:04:05"), p.Status, p.SourceIntent, len(p.Steps))
	}
	return nil
}
