package evaluator

import (
	"regexp"
	"strings"
)

// Redaction placeholders used in sanitized output.
const (
	unsafeLinkPlaceholder = "[UNSAFE_LINK]"
	linkPlaceholder       = "[LINK]"
	phonePlaceholder      = "[PHONE]"
	emailPlaceholder      = "[EMAIL]"
	filteredPlaceholder   = "[FILTERED]"
)

var (
	urlRe          = regexp.MustCompile(`(?i)https?://[^\s<>"']+`)
	domainRe       = regexp.MustCompile(`(?i)^https?://([^/:?#]+)`)
	phoneLocalRe   = regexp.MustCompile(`\+?(?:88)?01[3-9]\d{8}`)
	phoneGenericRe = regexp.MustCompile(`\d{4}[-.\s]?\d{4}[-.\s]?\d{4}`)
	emailRe        = regexp.MustCompile(`[^\s@]+@[^\s@]+\.[^\s@]+`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// extractURLs returns all URLs found in text.
func extractURLs(text string) []string {
	return urlRe.FindAllString(text, -1)
}

// urlDomain returns the lowercased host portion of url, or "" when the URL
// has no recognizable host.
func urlDomain(url string) string {
	m := domainRe.FindStringSubmatch(url)
	if m == nil {
		return ""
	}

	return strings.ToLower(m[1])
}

// redactContacts replaces phone numbers and email addresses with placeholders.
// Applied to every sanitized verdict so callers never re-distribute contact
// details from flagged content.
func redactContacts(text string) string {
	text = phoneLocalRe.ReplaceAllString(text, phonePlaceholder)
	text = phoneGenericRe.ReplaceAllString(text, phonePlaceholder)
	text = emailRe.ReplaceAllString(text, emailPlaceholder)

	return text
}

// Sanitize strips sensitive material from text independently of scoring: all
// URLs, phone numbers, and email addresses are replaced with placeholders and
// whitespace is collapsed. Aggressive mode additionally masks banned terms.
func (e *Evaluator) Sanitize(text string, aggressive bool) string {
	if text == "" {
		return ""
	}

	sanitized := urlRe.ReplaceAllString(text, linkPlaceholder)
	sanitized = redactContacts(sanitized)
	sanitized = strings.TrimSpace(whitespaceRe.ReplaceAllString(sanitized, " "))

	if aggressive {
		for _, word := range e.rules.FindBannedWords(sanitized) {
			re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
			if err != nil {
				continue
			}

			sanitized = re.ReplaceAllString(sanitized, filteredPlaceholder)
		}
	}

	return sanitized
}
