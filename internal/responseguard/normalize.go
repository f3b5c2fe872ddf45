package responseguard

import (
	"regexp"
	"strings"
)

var (
	reBackslashEscape = regexp.MustCompile(`\\([A-Za-z0-9-])`)
	reAnsiCQuote      = regexp.MustCompile(`\$'`)
	reIFS             = regexp.MustCompile(`\$\{?IFS\}?`)
	reCaretEscape     = regexp.MustCompile(`\^([A-Za-z0-9-])`)
	reEmptyQuotes     = regexp.MustCompile(`''|""`)
)

// normalizeCommands undoes common shell and cmd.exe obfuscation in generated
// text so rules see w^evtutil, r\m and c""url as the plain command.
// Line structure is kept because rules anchor on line starts.
func normalizeCommands(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		out := reBackslashEscape.ReplaceAllString(line, "$1")
		out = reCaretEscape.ReplaceAllString(out, "$1")
		out = reAnsiCQuote.ReplaceAllString(out, "'")
		out = reIFS.ReplaceAllString(out, " ")
		out = reEmptyQuotes.ReplaceAllString(out, "")
		out = strings.NewReplacer("'", "", `"`, "", "`", "").Replace(out)
		lines[i] = strings.Join(strings.Fields(out), " ")
	}
	return strings.Join(lines, "\n")
}
