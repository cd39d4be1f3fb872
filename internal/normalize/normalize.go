// =============================================================================
// TCD Bridge - Value Normalization
// =============================================================================
//
// This module provides the pure canonicalization functions used by both the
// metadata index and the reconciler. Spreadsheet exports write the same
// disaggregation in many notations ("[ 20 - 22 [", "20-22", "40 ans et plus",
// "- 18 ans"); everything that feeds a reconciliation key goes through these
// functions first so that two notations of the same fact compare equal.
//
// NORMALIZATION LAYERS:
//   - AgeRange          : age-bracket notations -> "20-22", "40+", "-18", "ND"
//   - CompositeCategory : "F | [20-22[" and "[20-22[ | F" -> the same key
//   - GenericValue      : remap table > age detection > plain trim
//   - Text              : diacritics-stripped match text for suggestions only
//
// All functions are stateless and safe for concurrent use.
//
// =============================================================================

package normalize

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Pre-compiled patterns, matching the notations observed in real exports.
var (
	// ageRangeRe extracts the two bounds of a bracket notation such as
	// "[ 20 - 22 [" or a plain "20-22". The dash may be an en-dash.
	ageRangeRe = regexp.MustCompile(`\[?\s*(\d+)\s*[-–]\s*(\d+)\s*\[?`)

	// leadingMinusRe recognizes the "- 18" shorthand for "under 18".
	leadingMinusRe = regexp.MustCompile(`^-\s*\d+`)

	whitespaceRe = regexp.MustCompile(`\s+`)
)

// =============================================================================
// AGE RANGES
// =============================================================================

// AgeRange normalizes an age-bracket label to its canonical form.
//
// Recognized shapes:
//   - "[ 20 - 22 [", "[20-22[", "20 - 22"  -> "20-22"
//   - "40 ans et plus", "40+"              -> "40+"
//   - "- 18 ans", "moins de 18 ans"        -> "-18"
//   - "ND", "Non Défini"                   -> "ND"
//
// Anything else is returned trimmed and unchanged, so unknown labels still
// produce a stable key instead of disappearing. Blank input reports ok=false.
func AgeRange(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "40 ans") || strings.Contains(lower, "40+"):
		return "40+", true
	case strings.Contains(lower, "18 ans") || leadingMinusRe.MatchString(s):
		return "-18", true
	case strings.Contains(strings.ToUpper(s), "ND") || strings.Contains(strings.ToUpper(s), "NON"):
		return "ND", true
	}

	if m := ageRangeRe.FindStringSubmatch(s); m != nil {
		return m[1] + "-" + m[2], true
	}

	return s, true
}

// looksLikeAge reports whether a raw cell plausibly holds an age expression
// and should be routed through AgeRange rather than passed through verbatim.
func looksLikeAge(s string) bool {
	if ageRangeRe.MatchString(s) || leadingMinusRe.MatchString(s) {
		return true
	}
	lower := strings.ToLower(s)
	return strings.Contains(lower, "ans") || strings.Contains(lower, "40+")
}

// =============================================================================
// COMPOSITE CATEGORIES
// =============================================================================

// CompositeCategory normalizes a multi-part category label such as
// "F | [20 - 22[". The parts are split on "|", individually renormalized
// (an age bracket may sit in either position), sorted, and rejoined with "|".
// Sorting makes the result order-independent: "F | 20-22" and "20-22 | F"
// produce the identical key. Blank input reports ok=false.
func CompositeCategory(s string) (string, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\t", " "))
	if s == "" {
		return "", false
	}
	s = whitespaceRe.ReplaceAllString(s, " ")

	parts := strings.Split(s, "|")
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		token, ok := AgeRange(part)
		if !ok {
			continue
		}
		tokens = append(tokens, token)
	}
	if len(tokens) == 0 {
		return "", false
	}

	sort.Strings(tokens)
	return strings.Join(tokens, "|"), true
}

// =============================================================================
// GENERIC VALUES
// =============================================================================

// GenericValue normalizes one raw category cell from a pivot sheet.
//
// Resolution order:
//  1. an explicit remap configured for (column, value) always wins;
//  2. sex columns collapse to the single-letter codes;
//  3. values that look like an age expression go through AgeRange;
//  4. everything else is returned trimmed.
//
// remaps is keyed by column name, then by the trimmed raw value. Blank input
// reports ok=false.
func GenericValue(value, column string, remaps map[string]map[string]string) (string, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", false
	}

	if table, ok := remaps[column]; ok {
		if mapped, ok := table[v]; ok {
			return strings.TrimSpace(mapped), true
		}
	}

	if strings.Contains(strings.ToLower(column), "sex") {
		return SexValue(v), true
	}

	if looksLikeAge(v) {
		return AgeRange(v)
	}

	return v, true
}

// SexValue collapses the common sex notations to the single-letter codes used
// by category options. Unrecognized values are title-cased and returned.
func SexValue(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "masculin", "homme", "male", "m", "h":
		return "M"
	case "feminin", "féminin", "femme", "female", "f":
		return "F"
	}
	return titleCase(strings.TrimSpace(s))
}

func titleCase(s string) string {
	prev := ' '
	return strings.Map(func(r rune) rune {
		out := r
		if prev == ' ' || prev == '-' {
			out = unicode.ToUpper(r)
		} else {
			out = unicode.ToLower(r)
		}
		prev = r
		return out
	}, s)
}

// =============================================================================
// MATCH TEXT
// =============================================================================

// Text reduces a label to its bare comparable form: diacritics stripped,
// uppercased, all non-alphanumeric runes removed. This is the representation
// used for approximate suggestion matching; the exact reconciliation path
// never uses it.
func Text(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		// NFD decomposition splits 'é' into 'e' plus a combining mark.
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// =============================================================================
// SUGGESTIONS
// =============================================================================

// Levenshtein computes the edit distance between two strings. It is applied
// to Text-normalized forms, so the inputs are short ASCII keys.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Suggest ranks candidates by edit distance to the input (both compared in
// Text form) and returns up to max of them, closest first. Candidates further
// than half the input length away are dropped; a wildly different name is
// worse than no suggestion at all.
func Suggest(input string, candidates []string, max int) []string {
	key := Text(input)
	if key == "" || max <= 0 {
		return nil
	}

	type scored struct {
		name string
		dist int
	}
	cutoff := len(key)/2 + 1
	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		d := Levenshtein(key, Text(c))
		if d <= cutoff {
			ranked = append(ranked, scored{name: c, dist: d})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].dist < ranked[j].dist })

	if len(ranked) > max {
		ranked = ranked[:max]
	}
	out := make([]string, len(ranked))
	for i, s := range ranked {
		out[i] = s.name
	}
	return out
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
