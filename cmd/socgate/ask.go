package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/socgate/socgate/internal/assistant"
	"github.com/socgate/socgate/internal/policy"
)

var (
	askEvidence     string
	askEvidenceFile string
	askTemperature  float64
	askMaxTokens    int
)

var askCmd = &cobra.Command{
	Use:   "ask [request|-]",
	Short: "Run a governed interaction: redact, classify, then answer or refuse",
	Example: `  socgate ask "Triage repeated 4625 failures for svc-backup" --evidence-file alert.json
  cat request.txt | socgate ask --temperature 0.1 --max-tokens 800`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askEvidence, "evidence", "e", "", "evidence or context (logs, alert JSON, IOCs)")
	askCmd.Flags().StringVar(&askEvidenceFile, "evidence-file", "", "read evidence from a file")
	askCmd.Flags().Float64VarP(&askTemperature, "temperature", "t", 0, "sampling temperature in [0, 1] (default from config)")
	askCmd.Flags().IntVarP(&askMaxTokens, "max-tokens", "m", 0, "answer length cap (default from config)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	request, err := readText(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	evidence, err := readEvidence(askEvidence, askEvidenceFile)
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

	var temperature *float64
	if cmd.Flags().Changed("temperature") {
		temperature = &askTemperature
	}

	res, err := a.assistant.Run(ctx, assistant.Interaction{
		Request:     request,
		Evidence:    evidence,
		Credential:  credential,
		Temperature: temperature,
		MaxTokens:   askMaxTokens,
		Surface:     "cli",
	})

	out := cmd.OutOrStdout()
	if res.State != assistant.StateStart {
		printPreview(out, "Redaction preview (what will be sent):", res.RedactedRequest, res.Redactions)
		if res.RedactedEvidence != "" {
			printPreview(out, "Evidence preview:", res.RedactedEvidence, nil)
		}
	}
	if err != nil {
		return describeFailure(res, err)
	}

	fmt.Fprintln(out, decisionLine(res.Label))
	fmt.Fprintln(out)

	if res.State == assistant.StateBlocked {
		colorRed.Fprintln(out, policy.RefusalMessage)
		return nil
	}

	printGuard(out, res.Guard)
	fmt.Fprintln(out, res.Answer)
	fmt.Fprintln(out)
	fmt.Fprintln(out, colorFaint.Sprint(analystReminder))
	return nil
}

func describeFailure(res *assistant.Outcome, err error) error {
	switch {
	case errors.Is(err, assistant.ErrMissingCredential),
		errors.Is(err, assistant.ErrEmptyRequest),
		errors.Is(err, assistant.ErrInvalidGeneration):
		return err
	case res.FailedStage == assistant.StageClassify:
		return fmt.Errorf("policy decision failed, verify your token and that the model is available (request %s): %w", res.RequestID, err)
	case res.FailedStage == assistant.StageRespond:
		return fmt.Errorf("assistant call failed (%s), try again later since rate limits and cold starts can happen (request %s): %w", res.Label, res.RequestID, err)
	default:
		return err
	}
}
