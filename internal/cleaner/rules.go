package cleaner

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"vendorrecon/internal/models"
)

// ErrUnknownRule is returned when a rule name is not registered.
var ErrUnknownRule = errors.New("unknown cleaning rule")

// Rule transforms one cell. Null cells pass through unchanged.
type Rule func(models.Cell) models.Cell

// TextRule lifts a string function into a Rule that leaves nulls alone.
func TextRule(fn func(string) string) Rule {
	return func(c models.Cell) models.Cell {
		if c.IsNull() {
			return c
		}

		return models.Text(fn(c.Value))
	}
}

// StripNonAlphanumeric keeps only Unicode letters and numbers. Numbers
// include superscripts and fractions such as ² and ½, not just digits.
func StripNonAlphanumeric(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return r
		}

		return -1
	}, s)
}

// StripWhitespace removes every whitespace character.
func StripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}

		return r
	}, s)
}

// FoldAccents removes combining marks, so "Zürich" becomes "Zurich".
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}

	return out
}

var registry = map[string]Rule{
	"strip-non-alphanumeric": TextRule(StripNonAlphanumeric),
	"strip-whitespace":       TextRule(StripWhitespace),
	"trim":                   TextRule(strings.TrimSpace),
	"upper":                  TextRule(strings.ToUpper),
	"lower":                  TextRule(strings.ToLower),
	"fold-accents":           TextRule(FoldAccents),
}

// Lookup returns the rule registered under name.
func Lookup(name string) (Rule, error) {
	rule, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownRule, name, strings.Join(RuleNames(), ", "))
	}

	return rule, nil
}

// RuleNames lists the registered rule names, sorted.
func RuleNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
