package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/socgate/socgate/internal/policy"
	"github.com/socgate/socgate/internal/responseguard"
)

const analystReminder = "Reminder: governance prototype. Analysts must verify outputs and follow SOC approval processes."

func printPreview(w io.Writer, title, redacted string, counts map[string]int) {
	fmt.Fprintln(w, colorFaint.Sprint(title))
	if strings.TrimSpace(redacted) == "" {
		fmt.Fprintln(w, colorFaint.Sprint("  (empty)"))
	} else {
		fmt.Fprintln(w, redacted)
	}
	if summary := formatCounts(counts); summary != "" {
		fmt.Fprintln(w, colorFaint.Sprint("  redacted: "+summary))
	}
	fmt.Fprintln(w)
}

func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k, v := range counts {
		if v > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}

func decisionLine(label policy.Label) string {
	switch label {
	case policy.Refuse:
		return colorRed.Sprint("Decision: REFUSE")
	case policy.Caution:
		return colorCyan.Sprint("Decision: CAUTION (evidence-first + human review)")
	case policy.Allow:
		return colorGreen.Sprint("Decision: ALLOW")
	default:
		return "Decision: " + label.String()
	}
}

func printGuard(w io.Writer, res responseguard.Result) {
	if res.Decision != responseguard.DecisionWarn {
		return
	}
	fmt.Fprintln(w, colorYellow.Sprint("Warning: "+res.Warning()))
	fmt.Fprintln(w, colorYellow.Sprint("  rules: "+strings.Join(res.RuleIDs, ", ")))
	fmt.Fprintln(w)
}
