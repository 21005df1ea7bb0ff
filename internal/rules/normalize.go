package rules

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// newTermNormalizer builds the transformer used to fold banned terms and
// message text into a comparable form. Compatibility decomposition plus mark
// stripping catches homoglyph evasion like "fūck" without any per-term work.
func newTermNormalizer() transform.Transformer {
	return transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(unicode.ToLower),
		norm.NFKC,
	)
}

// normalizeTerm folds a term for storage and comparison. A chain is built per
// call because chained transformers carry internal buffers and cannot be
// shared across goroutines. Falls back to plain lowercasing when the
// transform fails on malformed input.
func normalizeTerm(s string) string {
	result, _, err := transform.String(newTermNormalizer(), s)
	if err != nil || result == "" {
		return strings.ToLower(s)
	}

	return result
}
