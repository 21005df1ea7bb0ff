// Package evaluator scores a single piece of content against the rule store.
// Evaluation is deterministic and side-effect free: the same content and rule
// set always produce the same score and findings, regardless of who sent it.
package evaluator

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wardenlabs/warden/internal/rules"
	"github.com/wardenlabs/warden/internal/setup/config"
)

// Result holds the outcome of evaluating one piece of content.
type Result struct {
	// Score is the content score in [0, 100]; 100 is fully clean.
	Score int
	// Findings lists the machine-readable violation tags, in check order.
	Findings []string
	// Sanitized is the content with unsafe URLs, phone numbers, and email
	// addresses redacted. Equal to the input when nothing was redacted.
	Sanitized string
	// BannedWords lists the distinct banned terms found.
	BannedWords []string
	// UnsafeURLs lists the URLs that were redacted.
	UnsafeURLs []string
}

// Evaluator scores content against a rule store using configured limits.
type Evaluator struct {
	cfg   *config.Safety
	rules *rules.Store
}

// New creates an Evaluator bound to the given limits and rule store.
func New(cfg *config.Safety, store *rules.Store) *Evaluator {
	return &Evaluator{cfg: cfg, rules: store}
}

// Evaluate scores content. The score starts at 100 and every check deducts
// independently; deductions stack and the total is clamped to [0, 100].
func (e *Evaluator) Evaluate(content string) Result {
	result := Result{Score: 100, Sanitized: content}

	// Length checks
	length := utf8.RuneCountInString(content)
	if length < e.cfg.MinMessageLength {
		result.Score -= deductTooShort
		result.Findings = append(result.Findings, FindingTooShort)
	}

	if length > e.cfg.MaxMessageLength {
		result.Score -= deductTooLong
		result.Findings = append(result.Findings, FindingTooLong)
	}

	// Banned lexicon
	if found := e.rules.FindBannedWords(content); len(found) > 0 {
		result.Score -= len(found) * deductPerBannedWord
		result.Findings = append(result.Findings, FindingBannedWords(len(found)))
		result.BannedWords = found
	}

	// Suspicious patterns
	patterns := e.rules.MatchPatterns(content)
	if hasRepeatedRun(content) {
		patterns = appendUnique(patterns, "repeated_text")
	}

	for _, name := range patterns {
		result.Score -= deductPerPattern
		result.Findings = append(result.Findings, FindingPattern(name))
	}

	// Structural anomalies; these intentionally stack
	e.checkStructure(content, &result)

	// URL safety
	e.checkURLs(content, &result)

	result.Sanitized = redactContacts(result.Sanitized)

	if result.Score < 0 {
		result.Score = 0
	} else if result.Score > 100 {
		result.Score = 100
	}

	return result
}

// checkStructure applies the structural anomaly deductions.
func (e *Evaluator) checkStructure(content string, result *Result) {
	var (
		emojiCount  int
		upperCount  int
		letterCount int
		digitCount  int
	)

	for _, r := range content {
		switch {
		case isEmoji(r):
			emojiCount++
		case unicode.IsLetter(r):
			letterCount++

			if unicode.IsUpper(r) {
				upperCount++
			}
		case unicode.IsDigit(r):
			digitCount++
		}
	}

	// Only digits
	stripped := strings.ReplaceAll(content, " ", "")
	if stripped != "" && digitCount > 0 && letterCount == 0 && emojiCount == 0 && isAllDigits(stripped) {
		result.Score -= deductOnlyNumbers
		result.Findings = append(result.Findings, FindingOnlyNumbers)
	}

	// Only emoji
	if emojiCount > 0 && letterCount == 0 && digitCount == 0 {
		result.Score -= deductOnlyEmojis
		result.Findings = append(result.Findings, FindingOnlyEmojis)
	}

	// Emoji count past the ceiling costs per excess emoji
	if emojiCount > e.cfg.MaxEmojis {
		result.Score -= (emojiCount - e.cfg.MaxEmojis) * deductPerExtraEmoji
	}

	// Uppercase ratio
	if letterCount > 0 {
		ratio := float64(upperCount) / float64(letterCount)
		if ratio > e.cfg.MaxCapsRatio {
			result.Score -= deductExcessiveCaps
			result.Findings = append(result.Findings, FindingExcessiveCap)
		}
	}

	// Single-word content
	if len(strings.Fields(content)) < 2 {
		result.Score -= deductSingleWord
	}
}

// checkURLs extracts URLs, deducts for unsafe ones, and redacts them from the
// sanitized text. A URL is unsafe when its domain has no allowed suffix and
// matches a known shortener.
func (e *Evaluator) checkURLs(content string, result *Result) {
	urls := extractURLs(content)
	if len(urls) == 0 {
		return
	}

	if e.cfg.MaxURLs > 0 && len(urls) > e.cfg.MaxURLs {
		result.Score -= deductTooManyURLs
		result.Findings = append(result.Findings, FindingTooManyURLs)
	}

	var unsafe []string

	for _, url := range urls {
		domain := urlDomain(url)
		if domain == "" {
			continue
		}

		if !e.rules.IsAllowedDomain(domain) && e.rules.IsShortenerDomain(domain) {
			unsafe = append(unsafe, url)
		}
	}

	if len(unsafe) == 0 {
		return
	}

	result.Score -= len(unsafe) * deductPerUnsafeURL
	result.Findings = append(result.Findings, FindingUnsafeURLs(len(unsafe)))
	result.UnsafeURLs = unsafe

	for _, url := range unsafe {
		result.Sanitized = strings.ReplaceAll(result.Sanitized, url, unsafeLinkPlaceholder)
	}
}

// hasRepeatedRun reports whether any token repeats three or more times in a
// row. This is checked structurally because RE2 has no backreferences.
func hasRepeatedRun(content string) bool {
	fields := strings.Fields(content)

	run := 1
	for i := 1; i < len(fields); i++ {
		if strings.EqualFold(fields[i], fields[i-1]) {
			run++

			if run >= 3 {
				return true
			}
		} else {
			run = 1
		}
	}

	return false
}

// isEmoji reports whether r falls in the pictographic blocks the engine
// counts as emoji.
func isEmoji(r rune) bool {
	return (r >= 0x1F300 && r <= 0x1F5FF) ||
		(r >= 0x1F600 && r <= 0x1F64F) ||
		(r >= 0x1F680 && r <= 0x1F6FF)
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}

	return s != ""
}

func appendUnique(names []string, name string) []string {
	for _, n := range names {
		if n == name {
			return names
		}
	}

	return append(names, name)
}
