package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/socgate/socgate/internal/redact"
)

var redactCmd = &cobra.Command{
	Use:   "redact [text|-]",
	Short: "Show what would be sent upstream after PII and secret redaction",
	Long: `redact applies the same redaction the assistant uses before any upstream
call and prints the result. It needs no token and makes no network calls.
Text is read from the arguments, or from stdin when none are given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readText(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		res := redact.New().Apply(text)
		fmt.Fprintln(cmd.OutOrStdout(), res.Text)
		if summary := formatCounts(res.Counts); summary != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), colorFaint.Sprint("redacted: "+summary))
		}
		return nil
	},
}
