// Package classroom parses user-entered class labels such as "5A" into the
// (standard, division) pair the backend expects.
package classroom

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is the accepted label format.
const Pattern = `^[0-9]+[A-Z]$`

var labelRE = regexp.MustCompile(Pattern)

// FormatError reports a label or part that does not match Pattern.
type FormatError struct {
	Input string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid classroom %q: expected digits followed by one uppercase letter (e.g. 5A, 10B), pattern %s", e.Input, Pattern)
}

// Identifier is a normalized class section.
type Identifier struct {
	Standard string
	Division string
}

// Label joins the parts back into "5A" form.
func (id Identifier) Label() string {
	return id.Standard + id.Division
}

// StandardParam is the standard as sent to the backend. The same suffix is
// used for every endpoint so registrations and attendance queries agree.
func (id Identifier) StandardParam(suffix string) string {
	return id.Standard + suffix
}

// Parse resolves a label. Only surrounding whitespace is trimmed; case is
// significant.
func Parse(label string) (Identifier, error) {
	s := strings.TrimSpace(label)
	if !labelRE.MatchString(s) {
		return Identifier{}, &FormatError{Input: label}
	}
	return Identifier{Standard: s[:len(s)-1], Division: s[len(s)-1:]}, nil
}

// FromParts validates separately supplied fields. The division is upper-cased.
func FromParts(standard, division string) (Identifier, error) {
	standard = strings.TrimSpace(standard)
	division = strings.ToUpper(strings.TrimSpace(division))
	return Parse(standard + division)
}

// Resolve prefers explicit parts when both are set and falls back to label.
func Resolve(label, standard, division string) (Identifier, error) {
	if standard != "" && division != "" {
		id, err := FromParts(standard, division)
		if err != nil {
			return Identifier{}, &FormatError{Input: standard + "/" + division}
		}
		return id, nil
	}
	return Parse(label)
}
