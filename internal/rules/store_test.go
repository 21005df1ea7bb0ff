package rules_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardenlabs/warden/internal/rules"
	"github.com/wardenlabs/warden/internal/setup/config"
	"go.uber.org/zap"
)

func setupTest(t *testing.T) *rules.Store {
	t.Helper()

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	return rules.NewStore(config.RuleFiles{}, logger)
}

func setupTestWithFiles(t *testing.T) (*rules.Store, config.RuleFiles) {
	t.Helper()

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	dir := t.TempDir()
	files := config.RuleFiles{
		BannedWordsFile:      filepath.Join(dir, "banned_words.txt"),
		PatternsFile:         filepath.Join(dir, "patterns.jsonc"),
		AllowedDomainsFile:   filepath.Join(dir, "allowed_domains.txt"),
		BannedIdentitiesFile: filepath.Join(dir, "banned_identities.txt"),
	}

	return rules.NewStore(files, logger), files
}

func TestDefaultsLoadedWhenFilesMissing(t *testing.T) {
	t.Parallel()

	store := setupTest(t)

	words, patterns, domains, identities := store.Counts()
	assert.Positive(t, words)
	assert.Positive(t, patterns)
	assert.Positive(t, domains)
	assert.Zero(t, identities)
}

func TestFindBannedWords(t *testing.T) {
	t.Parallel()

	store := setupTest(t)

	found := store.FindBannedWords("what a stupid idiot")
	assert.Equal(t, []string{"idiot", "stupid"}, found)

	assert.Empty(t, store.FindBannedWords("a perfectly pleasant sentence"))
}

func TestFindBannedWordsNormalized(t *testing.T) {
	t.Parallel()

	store := setupTest(t)

	// Case folding and combining-mark stripping both apply before matching.
	assert.NotEmpty(t, store.FindBannedWords("STUPID"))
	assert.NotEmpty(t, store.FindBannedWords("stüpid"))
}

func TestAddRemoveBannedWord(t *testing.T) {
	t.Parallel()

	store := setupTest(t)

	assert.True(t, store.AddBannedWord("zorblax"))
	assert.False(t, store.AddBannedWord("zorblax"), "duplicate add must report false")
	assert.Equal(t, []string{"zorblax"}, store.FindBannedWords("total zorblax nonsense"))

	assert.True(t, store.RemoveBannedWord("ZORBLAX"))
	assert.False(t, store.RemoveBannedWord("zorblax"), "removing absent word must report false")
	assert.Empty(t, store.FindBannedWords("total zorblax nonsense"))
}

func TestMatchPatterns(t *testing.T) {
	t.Parallel()

	store := setupTest(t)

	matched := store.MatchPatterns("send your password now, just share it")
	assert.Contains(t, matched, "phishing_attempt")

	assert.Empty(t, store.MatchPatterns("nothing odd here"))
}

func TestDomainChecks(t *testing.T) {
	t.Parallel()

	store := setupTest(t)

	assert.True(t, store.IsAllowedDomain("youtube.com"))
	assert.True(t, store.IsAllowedDomain("www.youtube.com"), "suffix match must cover subdomains")
	assert.False(t, store.IsAllowedDomain("bit.ly"))

	assert.True(t, store.IsShortenerDomain("bit.ly"))
	assert.False(t, store.IsShortenerDomain("example.com"))
}

func TestBanIdentity(t *testing.T) {
	t.Parallel()

	store := setupTest(t)

	assert.False(t, store.IsBannedIdentity("user-1"))

	store.BanIdentity("user-1")
	assert.True(t, store.IsBannedIdentity("user-1"))

	assert.True(t, store.UnbanIdentity("user-1"))
	assert.False(t, store.IsBannedIdentity("user-1"))
	assert.False(t, store.UnbanIdentity("user-1"))
}

func TestPersistenceRoundTrip(t *testing.T) {
	t.Parallel()

	store, files := setupTestWithFiles(t)

	require.True(t, store.AddBannedWord("zorblax"))
	store.BanIdentity("user-9")

	// Word list was written out
	data, err := os.ReadFile(files.BannedWordsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "zorblax")

	// A fresh store over the same files sees the mutations.
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	reloaded := rules.NewStore(files, logger)
	assert.NotEmpty(t, reloaded.FindBannedWords("zorblax"))
	assert.True(t, reloaded.IsBannedIdentity("user-9"))
}

func TestPatternFileJSONC(t *testing.T) {
	t.Parallel()

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "patterns.jsonc")

	content := `{
  // Comments and trailing commas are tolerated.
  "patterns": [
    {"name": "shouting", "regex": "(?i)\\bloud\\b"},
  ],
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	store := rules.NewStore(config.RuleFiles{PatternsFile: path}, logger)

	assert.Equal(t, []string{"shouting"}, store.MatchPatterns("very LOUD noises"))
}

func TestExportImport(t *testing.T) {
	t.Parallel()

	store := setupTest(t)
	target := setupTest(t)

	require.True(t, store.AddBannedWord("zorblax"))
	store.BanIdentity("user-3")

	snap := store.Export()
	require.NoError(t, target.Import(snap))

	assert.NotEmpty(t, target.FindBannedWords("zorblax"))
	assert.True(t, target.IsBannedIdentity("user-3"))

	words, patterns, _, _ := target.Counts()
	expWords, expPatterns, _, _ := store.Counts()
	assert.Equal(t, expWords, words)
	assert.Equal(t, expPatterns, patterns)
}

func TestImportSkipsInvalidPatterns(t *testing.T) {
	t.Parallel()

	store := setupTest(t)

	snap := rules.Snapshot{
		Patterns: []rules.PatternEntry{
			{Name: "good", Regex: `(?i)fine`},
			{Name: "bad", Regex: `([`},
		},
	}
	require.NoError(t, store.Import(snap))

	_, patterns, _, _ := store.Counts()
	assert.Equal(t, 1, patterns)
}
