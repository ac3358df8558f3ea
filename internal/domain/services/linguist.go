// Package services contains the domain logic that sits between the store
// providers and their callers: linguistic derivation for the type registry,
// schema validation, and the durability layer.
package services

import "strings"

// NounForms holds the derived linguistic forms of a noun name.
type NounForms struct {
	Singular string
	Plural   string
	Slug     string
}

// VerbForms holds the derived conjugations of a verb name.
type VerbForms struct {
	Action    string // imperative: "create"
	Act       string // third person: "creates"
	Activity  string // gerund: "creating"
	Event     string // past participle: "created"
	ReverseBy string // "createdBy"
	ReverseAt string // "createdAt"
}

// irregularPlurals maps singular nouns to plurals that the suffix rules get
// wrong.
var irregularPlurals = map[string]string{
	"person":   "people",
	"child":    "children",
	"man":      "men",
	"woman":    "women",
	"mouse":    "mice",
	"goose":    "geese",
	"foot":     "feet",
	"tooth":    "teeth",
	"datum":    "data",
	"medium":   "media",
	"analysis": "analyses",
	"basis":    "bases",
	"crisis":   "crises",
	"index":    "indices",
	"matrix":   "matrices",
	"schema":   "schemas",
	"leaf":     "leaves",
	"life":     "lives",
	"knife":    "knives",
	"sheep":    "sheep",
	"fish":     "fish",
	"series":   "series",
}

// irregularParticiples maps verbs to past participles that the suffix rules
// get wrong. Checked before any regular rule.
var irregularParticiples = map[string]string{
	"write":      "written",
	"read":       "read",
	"make":       "made",
	"take":       "taken",
	"give":       "given",
	"get":        "gotten",
	"go":         "gone",
	"do":         "done",
	"see":        "seen",
	"send":       "sent",
	"build":      "built",
	"buy":        "bought",
	"bring":      "brought",
	"think":      "thought",
	"teach":      "taught",
	"catch":      "caught",
	"find":       "found",
	"hold":       "held",
	"keep":       "kept",
	"leave":      "left",
	"lose":       "lost",
	"pay":        "paid",
	"put":        "put",
	"set":        "set",
	"run":        "run",
	"say":        "said",
	"sell":       "sold",
	"sit":        "sat",
	"speak":      "spoken",
	"spend":      "spent",
	"stand":      "stood",
	"win":        "won",
	"know":       "known",
	"grow":       "grown",
	"draw":       "drawn",
	"choose":     "chosen",
	"break":      "broken",
	"begin":      "begun",
	"become":     "become",
	"meet":       "met",
	"feel":       "felt",
	"hear":       "heard",
	"lead":       "led",
	"understand": "understood",
}

func isVowel(c byte) bool {
	switch c {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

// endsWithAny reports whether s ends in one of the suffixes.
func endsWithAny(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

// consonantY reports whether s ends in a consonant followed by "y".
func consonantY(s string) bool {
	return len(s) >= 2 && s[len(s)-1] == 'y' && !isVowel(s[len(s)-2])
}

// doublesFinalConsonant reports whether the final consonant doubles before
// a vowel suffix: single final consonant, preceded by a single vowel, and
// not w, x or y.
func doublesFinalConsonant(s string) bool {
	n := len(s)
	if n < 3 {
		return n == 2 && isVowel(s[0]) && !isVowel(s[1])
	}
	last := s[n-1]
	if isVowel(last) || last == 'w' || last == 'x' || last == 'y' {
		return false
	}
	return isVowel(s[n-2]) && !isVowel(s[n-3])
}

// Pluralize derives the plural of a singular noun using the irregular table
// first and regular suffix rules otherwise.
func Pluralize(singular string) string {
	if p, ok := irregularPlurals[singular]; ok {
		return p
	}
	switch {
	case endsWithAny(singular, "s", "x", "z", "ch", "sh"):
		return singular + "es"
	case consonantY(singular):
		return singular[:len(singular)-1] + "ies"
	default:
		return singular + "s"
	}
}

// Slugify kebab-cases a name: lowercase, spaces and underscores become
// hyphens.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "_", "-")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return s
}

// DeriveNoun computes the linguistic forms for a noun name. The name is
// treated as the singular form; derivation is deterministic.
func DeriveNoun(name string) NounForms {
	singular := strings.ToLower(strings.TrimSpace(name))
	return NounForms{
		Singular: singular,
		Plural:   Pluralize(singular),
		Slug:     Slugify(singular),
	}
}

// thirdPerson conjugates the simple present third person singular.
func thirdPerson(verb string) string {
	switch {
	case endsWithAny(verb, "s", "x", "z", "o", "ch", "sh"):
		return verb + "es"
	case consonantY(verb):
		return verb[:len(verb)-1] + "ies"
	default:
		return verb + "s"
	}
}

// gerund conjugates the present participle.
func gerund(verb string) string {
	switch {
	case strings.HasSuffix(verb, "ie"):
		return verb[:len(verb)-2] + "ying"
	case strings.HasSuffix(verb, "e") && !strings.HasSuffix(verb, "ee"):
		return verb[:len(verb)-1] + "ing"
	case doublesFinalConsonant(verb):
		return verb + string(verb[len(verb)-1]) + "ing"
	default:
		return verb + "ing"
	}
}

// pastParticiple conjugates the past participle, consulting the irregular
// table before the regular -ed rules.
func pastParticiple(verb string) string {
	if p, ok := irregularParticiples[verb]; ok {
		return p
	}
	switch {
	case strings.HasSuffix(verb, "e"):
		return verb + "d"
	case consonantY(verb):
		return verb[:len(verb)-1] + "ied"
	case doublesFinalConsonant(verb):
		return verb + string(verb[len(verb)-1]) + "ed"
	default:
		return verb + "ed"
	}
}

// DeriveVerb computes the full conjugation set for a verb name.
func DeriveVerb(name string) VerbForms {
	verb := strings.ToLower(strings.TrimSpace(name))
	event := pastParticiple(verb)
	return VerbForms{
		Action:    verb,
		Act:       thirdPerson(verb),
		Activity:  gerund(verb),
		Event:     event,
		ReverseBy: event + "By",
		ReverseAt: event + "At",
	}
}
