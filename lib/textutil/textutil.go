package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName lowercases a name and removes all whitespace and periods,
// "Smith,  John A." and "smith, john a" normalize to the same key.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = whitespaceRegex.ReplaceAllString(name, "")
	name = strings.ReplaceAll(name, ".", "")
	return name
}

// JoinNonEmpty joins the non-empty values with sep.
func JoinNonEmpty(sep string, values ...string) string {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		kept = append(kept, v)
	}
	return strings.Join(kept, sep)
}
