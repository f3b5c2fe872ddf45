package policy

import "strings"

// Label is the governance decision for one SOC request.
type Label string

const (
	Allow   Label = "ALLOW"
	Caution Label = "CAUTION"
	Refuse  Label = "REFUSE"
)

// precedence is the order labels are searched for in classifier output.
var precedence = []Label{Refuse, Caution, Allow}

// ParseLabel maps raw classifier output to a Label. The first label in
// REFUSE, CAUTION, ALLOW order that appears anywhere in the text wins;
// output naming none of them is treated as CAUTION, never as ALLOW.
func ParseLabel(text string) Label {
	upper := strings.ToUpper(strings.TrimSpace(text))
	for _, l := range precedence {
		if strings.Contains(upper, string(l)) {
			return l
		}
	}
	return Caution
}

// Valid reports whether l is one of the three known labels.
func (l Label) Valid() bool {
	switch l {
	case Allow, Caution, Refuse:
		return true
	default:
		return false
	}
}

func (l Label) String() string {
	return string(l)
}
