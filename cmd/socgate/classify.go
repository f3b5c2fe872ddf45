package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [request|-]",
	Short: "Ask the policy classifier for ALLOW, CAUTION or REFUSE",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readText(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		a, err := buildApp(ctx, cfg, appOptions{Surface: "cli"})
		if err != nil {
			return err
		}
		defer a.close(ctx)

		credential, err := a.requireCredential()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		preview := a.assistant.Preview(text)
		printPreview(out, "Redaction preview (what will be sent):", preview.Text, preview.Counts)

		d, err := a.assistant.Decide(ctx, credential, text)
		if err != nil {
			return fmt.Errorf("policy decision failed, verify your token and that the model is available: %w", err)
		}
		fmt.Fprintln(out, decisionLine(d.Label))
		return nil
	},
}
