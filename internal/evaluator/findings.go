package evaluator

import "fmt"

// Finding tags attached to verdicts. These are stable machine-readable names;
// downstream tooling keys off them.
const (
	FindingTooShort     = "too_short"
	FindingTooLong      = "too_long"
	FindingOnlyNumbers  = "only_numbers"
	FindingOnlyEmojis   = "only_emojis"
	FindingExcessiveCap = "excessive_caps"
	FindingTooManyURLs  = "too_many_urls"
)

// Score deductions per finding. Deductions are additive and the final score is
// clamped to [0, 100]; simultaneous structural anomalies all stack.
const (
	deductTooShort      = 30
	deductTooLong       = 10
	deductPerBannedWord = 15
	deductPerPattern    = 10
	deductOnlyNumbers   = 20
	deductOnlyEmojis    = 15
	deductPerExtraEmoji = 2
	deductExcessiveCaps = 25
	deductSingleWord    = 5
	deductPerUnsafeURL  = 20
	deductTooManyURLs   = 10
)

// FindingBannedWords tags a count of distinct banned terms found.
func FindingBannedWords(count int) string {
	return fmt.Sprintf("banned_words:%d", count)
}

// FindingPattern tags a suspicious pattern by name.
func FindingPattern(name string) string {
	return fmt.Sprintf("pattern:%s", name)
}

// FindingUnsafeURLs tags a count of unsafe URLs found.
func FindingUnsafeURLs(count int) string {
	return fmt.Sprintf("unsafe_urls:%d", count)
}
