package evaluator_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardenlabs/warden/internal/evaluator"
	"github.com/wardenlabs/warden/internal/rules"
	"github.com/wardenlabs/warden/internal/setup/config"
	"go.uber.org/zap"
)

func setupTest(t *testing.T) (*evaluator.Evaluator, *config.Safety) {
	t.Helper()

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	cfg := config.DefaultSafety()
	store := rules.NewStore(config.RuleFiles{}, logger)

	return evaluator.New(&cfg, store), &cfg
}

func TestCleanMessage(t *testing.T) {
	t.Parallel()
	eval, _ := setupTest(t)

	result := eval.Evaluate("Hello world")

	assert.Equal(t, 100, result.Score)
	assert.Empty(t, result.Findings)
	assert.Equal(t, "Hello world", result.Sanitized)
}

func TestDeterministic(t *testing.T) {
	t.Parallel()
	eval, _ := setupTest(t)

	first := eval.Evaluate("some perfectly ordinary message")
	second := eval.Evaluate("some perfectly ordinary message")

	assert.Equal(t, first, second)
}

func TestTooShort(t *testing.T) {
	t.Parallel()
	eval, _ := setupTest(t)

	result := eval.Evaluate("a")

	// 30 for length, 5 for single word
	assert.Equal(t, 65, result.Score)
	assert.Contains(t, result.Findings, evaluator.FindingTooShort)
}

func TestTooLong(t *testing.T) {
	t.Parallel()
	eval, _ := setupTest(t)

	result := eval.Evaluate(strings.Repeat("a", 1001))

	assert.Contains(t, result.Findings, evaluator.FindingTooLong)
	assert.Less(t, result.Score, 100)
}

func TestOnlyNumbers(t *testing.T) {
	t.Parallel()
	eval, _ := setupTest(t)

	result := eval.Evaluate("12345")

	// 20 for numeric-only, 5 for single word
	assert.Equal(t, 75, result.Score)
	assert.Contains(t, result.Findings, evaluator.FindingOnlyNumbers)
}

func TestOnlyEmojis(t *testing.T) {
	t.Parallel()
	eval, _ := setupTest(t)

	result := eval.Evaluate("😀😀😀")

	// 15 for emoji-only, 5 for single word
	assert.Equal(t, 80, result.Score)
	assert.Contains(t, result.Findings, evaluator.FindingOnlyEmojis)
}

func TestEmojiFlood(t *testing.T) {
	t.Parallel()
	eval, _ := setupTest(t)

	result := eval.Evaluate(strings.Repeat("😀", 12))

	// 15 emoji-only, 10 emoji_spam pattern, 2 per emoji past the ceiling
	// of 10, 5 single word
	assert.Equal(t, 66, result.Score)
	assert.Contains(t, result.Findings, evaluator.FindingOnlyEmojis)
	assert.Contains(t, result.Findings, evaluator.FindingPattern("emoji_spam"))
}

func TestBannedWord(t *testing.T) {
	t.Parallel()
	eval, _ := setupTest(t)

	result := eval.Evaluate("you are stupid")

	assert.Equal(t, 85, result.Score)
	assert.Contains(t, result.Findings, evaluator.FindingBannedWords(1))
	assert.Equal(t, []string{"stupid"}, result.BannedWords)
}

func TestBannedWordNormalization(t *testing.T) {
	t.Parallel()
	eval, _ := setupTest(t)

	// Mixed case and combining accents must not evade the lexicon.
	result := eval.Evaluate("you are STÜPID")

	assert.Contains(t, result.Findings, evaluator.FindingBannedWords(1))
}

func TestSpamMessage(t *testing.T) {
	t.Parallel()
	eval, _ := setupTest(t)

	result := eval.Evaluate("WIN FREE MONEY NOW!!! CLICK HERE!!!")

	// Two pattern hits plus the structural caps-ratio deduction.
	assert.Equal(t, 55, result.Score)
	assert.Contains(t, result.Findings, evaluator.FindingPattern("excessive_caps"))
	assert.Contains(t, result.Findings, evaluator.FindingPattern("spam_keywords"))
	assert.Contains(t, result.Findings, evaluator.FindingExcessiveCap)
}

func TestRepeatedText(t *testing.T) {
	t.Parallel()
	eval, _ := setupTest(t)

	result := eval.Evaluate("buy buy buy buy buy now")

	assert.Contains(t, result.Findings, evaluator.FindingPattern("repeated_text"))
}

func TestShortenerURLUnsafe(t *testing.T) {
	t.Parallel()
	eval, _ := setupTest(t)

	result := eval.Evaluate("check this out https://bit.ly/2xyz")

	assert.Contains(t, result.Findings, evaluator.FindingUnsafeURLs(1))
	assert.Equal(t, []string{"https://bit.ly/2xyz"}, result.UnsafeURLs)
	assert.Contains(t, result.Sanitized, "[UNSAFE_LINK]")
	assert.NotContains(t, result.Sanitized, "bit.ly")
}

func TestAllowedDomainURL(t *testing.T) {
	t.Parallel()
	eval, _ := setupTest(t)

	result := eval.Evaluate("watch https://youtube.com/watch?v=abc later")

	assert.Empty(t, result.UnsafeURLs)
	assert.Contains(t, result.Sanitized, "youtube.com")
}

func TestTooManyURLs(t *testing.T) {
	t.Parallel()
	eval, _ := setupTest(t)

	result := eval.Evaluate("see https://github.com/a and https://github.com/b and https://github.com/c")

	assert.Contains(t, result.Findings, evaluator.FindingTooManyURLs)
	assert.Empty(t, result.UnsafeURLs)
}

func TestPhoneNumberRedacted(t *testing.T) {
	t.Parallel()
	eval, _ := setupTest(t)

	result := eval.Evaluate("call me at +8801712345678")

	assert.Contains(t, result.Findings, evaluator.FindingPattern("phone_number"))
	assert.Contains(t, result.Sanitized, "[PHONE]")
	assert.NotContains(t, result.Sanitized, "01712345678")
}

func TestScoreClamped(t *testing.T) {
	t.Parallel()
	eval, _ := setupTest(t)

	// Stack enough violations that raw deductions go well below zero.
	result := eval.Evaluate("FUCK FUCK FUCK SHIT SHIT SHIT KILL MURDER BOMB https://bit.ly/a https://bit.ly/b https://bit.ly/c")

	assert.Equal(t, 0, result.Score)
	assert.NotEmpty(t, result.Findings)
}

func TestSanitize(t *testing.T) {
	t.Parallel()
	eval, _ := setupTest(t)

	out := eval.Sanitize("email me at a@b.com  or https://example.com/x", false)

	assert.Contains(t, out, "[EMAIL]")
	assert.Contains(t, out, "[LINK]")
	assert.NotContains(t, out, "a@b.com")
	assert.NotContains(t, out, "  ")
}

func TestSanitizeAggressive(t *testing.T) {
	t.Parallel()
	eval, _ := setupTest(t)

	out := eval.Sanitize("you are stupid", true)

	assert.Contains(t, out, "[FILTERED]")
	assert.NotContains(t, out, "stupid")
}
