package redact

import (
	"regexp"
	"strings"
)

// Pattern is one named redaction rule. Matches are replaced with Placeholder().
type Pattern struct {
	Name string
	Re   *regexp.Regexp
}

// Placeholder returns the token that replaces every match, e.g. [REDACTED_EMAIL].
func (p Pattern) Placeholder() string {
	return "[REDACTED_" + strings.ToUpper(p.Name) + "]"
}

var (
	emailRe         = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phoneRe         = regexp.MustCompile(`\b(?:\+?\d{1,3}[-.\s]?)?(?:\(?\d{3}\)?[-.\s]?)\d{3}[-.\s]?\d{4}\b`)
	ssnRe           = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	awsAccessKeyRe  = regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)
	genericAPIKeyRe = regexp.MustCompile(`\b(sk_(live|test)_[A-Za-z0-9]{10,})\b`)
	tokenLikeRe     = regexp.MustCompile(`(?i)\b(token|apikey|api_key|secret|password)\s*=\s*([^\s'";]{6,})`)
)

// PIIPatterns covers personal data. Applied before SecretPatterns.
var PIIPatterns = []Pattern{
	{Name: "email", Re: emailRe},
	{Name: "phone", Re: phoneRe},
	{Name: "ssn", Re: ssnRe},
}

// SecretPatterns covers credentials and key material.
var SecretPatterns = []Pattern{
	{Name: "aws_access_key", Re: awsAccessKeyRe},
	{Name: "generic_api_key", Re: genericAPIKeyRe},
	{Name: "token_like", Re: tokenLikeRe},
}

// DefaultPatterns returns the PII patterns followed by the secret patterns.
func DefaultPatterns() []Pattern {
	out := make([]Pattern, 0, len(PIIPatterns)+len(SecretPatterns))
	out = append(out, PIIPatterns...)
	out = append(out, SecretPatterns...)
	return out
}

// Result is the outcome of one redaction pass.
// Counts holds the number of matches per pattern name; it never carries matched text.
type Result struct {
	Text   string
	Counts map[string]int
}

// Total returns the number of substitutions across all patterns.
func (r Result) Total() int {
	return CountTotal(r.Counts)
}

// CountTotal sums per-pattern match counts, e.g. counts merged from several inputs.
func CountTotal(counts map[string]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}

// Redactor applies an ordered list of patterns, one pass per pattern.
// Later patterns see the output of earlier ones; overlapping matches are not merged.
type Redactor struct {
	patterns []Pattern
}

// New returns a Redactor over the given patterns, or DefaultPatterns when none are given.
func New(patterns ...Pattern) *Redactor {
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}
	cp := make([]Pattern, len(patterns))
	copy(cp, patterns)
	return &Redactor{patterns: cp}
}

// Patterns returns a copy of the configured patterns in application order.
func (r *Redactor) Patterns() []Pattern {
	out := make([]Pattern, len(r.patterns))
	copy(out, r.patterns)
	return out
}

// Redact returns text with every pattern match replaced by its placeholder.
func (r *Redactor) Redact(text string) string {
	return r.Apply(text).Text
}

// Apply redacts text and reports how many matches each pattern replaced.
func (r *Redactor) Apply(text string) Result {
	res := Result{Text: text, Counts: map[string]int{}}
	if text == "" {
		return res
	}
	out := text
	for _, p := range r.patterns {
		if p.Re == nil {
			continue
		}
		n := len(p.Re.FindAllStringIndex(out, -1))
		if n == 0 {
			continue
		}
		res.Counts[p.Name] += n
		out = p.Re.ReplaceAllLiteralString(out, p.Placeholder())
	}
	res.Text = out
	return res
}

var defaultRedactor = New()

// Text redacts PII and secrets from s using the default pattern order.
func Text(s string) string {
	return defaultRedactor.Redact(s)
}

// Pointer redacts *p, treating a nil pointer as the empty string.
func Pointer(p *string) string {
	if p == nil {
		return ""
	}
	return Text(*p)
}
