package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var checkFormat string

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format (text|json)")
}

var checkCmd = &cobra.Command{
	Use:   "check \"<text>\"",
	Short: "Scan a text without executing it (dry-run)",
	Long: "Runs the sanitizer battery over the text and reports every match.\n" +
		"Exit code 0 if clean, 1 if anything was redacted.",
	Args: cobra.MinimumNArgs(1),
	RunE: runCheckText,
}

func runCheckText(cmd *cobra.Command, args []string) error {
	gw, log, store, _, err := buildCore()
	if err != nil {
		return err
	}
	defer log.Close()
	defer store.Close()

	res := gw.Check(strings.Join(args, " "))

	if checkFormat == "json" {
		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else if res.WasSanitized {
		fmt.Printf("sanitized (%s):\n%s\n", res.MaxSeverity(), res.Text)
		for _, v := range res.Violations {
			fmt.Printf("  - %s (%s)\n", v.Pattern, v.Severity)
		}
	} else {
		fmt.Println("clean")
	}

	if res.WasSanitized {
		os.Exit(1)
	}
	return nil
}
