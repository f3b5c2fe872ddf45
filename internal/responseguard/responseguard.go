package responseguard

import (
	"regexp"
	"sort"
	"strings"

	"github.com/socgate/socgate/internal/redact"
)

const (
	DecisionAllow = "allow"
	DecisionWarn  = "warn"

	// NoteUnsafeInstruction is attached to answers that matched at least one rule.
	NoteUnsafeInstruction = "unsafe_instruction_detected"
)

const evidenceLimit = 120

type Hit struct {
	RuleID   string
	Category string
	Action   string
	Evidence string
}

type Result struct {
	Decision string
	Note     string
	Hits     []Hit
	RuleIDs  []string
}

// Guard scans generated SOC answers for offensive or anti-forensic instructions.
// It never blocks: a match downgrades the answer to a warning shown alongside it.
type Guard struct {
	cfg   Config
	rules []Rule
}

// New returns a Guard using rules, or DefaultRules when none are given.
func New(cfg Config, rules ...Rule) *Guard {
	if len(rules) == 0 {
		rules = defaultRules
	}
	return &Guard{cfg: cfg, rules: rules}
}

// Evaluate scans text. A nil Guard allows everything.
func (g *Guard) Evaluate(text string) Result {
	if g == nil || !g.cfg.Enabled || strings.TrimSpace(text) == "" {
		return Result{Decision: DecisionAllow}
	}
	if normalizeAction(g.cfg.Mode) == ActionIgnore && !g.hasWarnOverride() {
		return Result{Decision: DecisionAllow}
	}

	var hits []Hit
	ruleIDs := map[string]struct{}{}
	normalized := normalizeCommands(text)

	for _, r := range g.rules {
		action := g.cfg.actionForCategory(r.Category)
		if action == ActionIgnore {
			continue
		}
		re := r.re
		if re == nil {
			re = compileRule(r)
		}
		if re == nil {
			continue
		}
		match := re.FindString(text)
		if match == "" && normalized != text {
			match = re.FindString(normalized)
		}
		if match == "" {
			continue
		}
		hits = append(hits, Hit{
			RuleID:   r.ID,
			Category: r.Category,
			Action:   action,
			Evidence: evidenceFromMatch(match),
		})
		ruleIDs[r.ID] = struct{}{}
	}

	if len(hits) == 0 {
		return Result{Decision: DecisionAllow}
	}
	return Result{
		Decision: DecisionWarn,
		Note:     NoteUnsafeInstruction,
		Hits:     hits,
		RuleIDs:  ruleIDList(ruleIDs),
	}
}

// Warning renders a short analyst-facing notice for a warn result.
func (r Result) Warning() string {
	if r.Decision != DecisionWarn || len(r.Hits) == 0 {
		return ""
	}
	seen := map[string]struct{}{}
	var cats []string
	for _, h := range r.Hits {
		if _, ok := seen[h.Category]; ok {
			continue
		}
		seen[h.Category] = struct{}{}
		cats = append(cats, strings.ReplaceAll(h.Category, "_", " "))
	}
	return "Warning: the answer contains steps that look like " + strings.Join(cats, ", ") +
		". Review before acting; do not run them on production hosts."
}

func (g *Guard) hasWarnOverride() bool {
	c := g.cfg.Categories
	for _, v := range []string{c.EvidenceDestruction, c.DefenseEvasion, c.DataExfil} {
		if strings.EqualFold(strings.TrimSpace(v), ActionWarn) {
			return true
		}
	}
	return false
}

func compileRule(r Rule) *regexp.Regexp {
	re, err := regexp.Compile(`(?im)` + r.Pattern)
	if err != nil {
		return nil
	}
	return re
}

func ruleIDList(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func evidenceFromMatch(match string) string {
	safe := redact.Secrets(strings.TrimSpace(match))
	if len(safe) <= evidenceLimit {
		return safe
	}
	return safe[:evidenceLimit]
}
