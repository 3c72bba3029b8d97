package profile

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// schoolRule rewrites a recognized school to its canonical display form.
// Tokens are matched against the lowercased, punctuation-collapsed input;
// anyOf groups require at least one token from each group to be present.
type schoolRule struct {
	anyOf     [][]string
	canonical string
}

var schoolRules = []schoolRule{
	{
		anyOf: [][]string{
			{"рфмш", "rfmsh"},
			{"астана", "astana", "нур", "nur"},
		},
		canonical: "РФМШ Астана",
	},
	{
		anyOf: [][]string{
			{"шл", "школа", "лицей", "school", "lyceum"},
			{"8"},
			{"павлодар", "pavlodar"},
		},
		canonical: "ШЛ №8 Павлодар",
	},
}

var cityAliases = map[string]string{
	"астана":     "Астана",
	"astana":     "Астана",
	"нур султан": "Астана",
	"nur sultan": "Астана",
}

// NormalizeSchool canonicalizes a free-text school name. It is total,
// deterministic and idempotent: unknown names get a generically
// title-cased form, known names map to a fixed canonical alias.
func NormalizeSchool(raw string) string {
	collapsed := collapseWords(raw)
	if collapsed == "" {
		return ""
	}
	tokens := strings.Fields(collapsed)
	for _, rule := range schoolRules {
		if rule.matches(tokens) {
			return rule.canonical
		}
	}
	return titleCase(collapsed)
}

// NormalizeCity canonicalizes a city name, folding the renamed capital's
// aliases into one display form.
func NormalizeCity(raw string) string {
	collapsed := collapseWords(raw)
	if collapsed == "" {
		return ""
	}
	if canonical, ok := cityAliases[collapsed]; ok {
		return canonical
	}
	return titleCase(collapsed)
}

func (r schoolRule) matches(tokens []string) bool {
	for _, group := range r.anyOf {
		if !hasAnyToken(tokens, group) {
			return false
		}
	}
	return true
}

func hasAnyToken(tokens, group []string) bool {
	for _, t := range tokens {
		for _, g := range group {
			if t == g {
				return true
			}
		}
	}
	return false
}

// collapseWords lowercases the input and collapses every run of
// non-letter, non-digit runes into a single space.
func collapseWords(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func titleCase(s string) string {
	return cases.Title(language.Und).String(s)
}
