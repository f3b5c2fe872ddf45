// Command socgate is a governed SOC assistant: it redacts analyst input,
// asks the hosted model for a policy label, then refuses or answers.
package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/socgate/socgate/internal/config"
)

var version = "dev"

var (
	configPath string
	logLevel   string
	logFormat  string
)

var (
	colorRed    = color.New(color.FgRed, color.Bold)
	colorGreen  = color.New(color.FgGreen, color.Bold)
	colorCyan   = color.New(color.FgCyan, color.Bold)
	colorYellow = color.New(color.FgYellow)
	colorFaint  = color.New(color.Faint)
)

func main() {
	// Missing .env is fine; the token may come from the real environment.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		colorRed.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "socgate",
	Short: "Governed SOC LLM assistant",
	Long: `socgate redacts PII and secrets from analyst requests, classifies them
as ALLOW, CAUTION or REFUSE with the hosted model, and only then generates a
structured defensive answer.

Public demo warning: do NOT paste real production secrets or credentials.
Use sanitized evidence only.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to socgate config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format override (json, text)")

	rootCmd.AddCommand(redactCmd, classifyCmd, askCmd, serveCmd, mockUpstreamCmd, eventReceiverCmd)
}
