// Package rules owns the mutable moderation rule sets: the banned lexicon,
// suspicious patterns, allowed domains, and banned identities. The store is
// read-mostly; evaluation takes the read lock while admin mutations take the
// write lock and persist the affected list before returning.
package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/tailscale/hujson"
	"github.com/wardenlabs/warden/internal/setup/config"
	"go.uber.org/zap"
)

// PatternEntry is the serialized form of one suspicious pattern.
type PatternEntry struct {
	Name  string `json:"name"`
	Regex string `json:"regex"`
}

// patternFile is the on-disk shape of the suspicious patterns file.
type patternFile struct {
	Patterns []PatternEntry `json:"patterns"`
}

// pattern is a compiled suspicious pattern.
type pattern struct {
	name string
	re   *regexp.Regexp
}

// Store holds all rule sets behind a single RWMutex.
type Store struct {
	mu sync.RWMutex

	bannedWords      map[string]string // normalized form -> original term
	patterns         []pattern
	allowedDomains   map[string]struct{}
	bannedIdentities map[string]struct{}
	shorteners       []string

	files  config.RuleFiles
	logger *zap.Logger
}

// NewStore loads all rule lists from the configured files, falling back to the
// built-in defaults for any list that is missing or malformed. Load failures
// are logged as warnings and are never fatal.
func NewStore(files config.RuleFiles, logger *zap.Logger) *Store {
	s := &Store{
		bannedWords:      make(map[string]string),
		allowedDomains:   make(map[string]struct{}),
		bannedIdentities: make(map[string]struct{}),
		shorteners:       shortenerDomains(),
		files:            files,
		logger:           logger.Named("rules"),
	}

	s.loadBannedWords()
	s.loadPatterns()
	s.loadAllowedDomains()
	s.loadBannedIdentities()

	s.logger.Info("Rule store initialized",
		zap.Int("bannedWords", len(s.bannedWords)),
		zap.Int("patterns", len(s.patterns)),
		zap.Int("allowedDomains", len(s.allowedDomains)),
		zap.Int("bannedIdentities", len(s.bannedIdentities)))

	return s
}

func (s *Store) loadBannedWords() {
	words, err := readLines(s.files.BannedWordsFile)
	if err != nil {
		s.logger.Warn("Falling back to default banned words", zap.Error(err))

		words = defaultBannedWords()
	}

	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			s.bannedWords[normalizeTerm(w)] = w
		}
	}
}

func (s *Store) loadPatterns() {
	entries, err := readPatternFile(s.files.PatternsFile)
	if err != nil {
		s.logger.Warn("Falling back to default patterns", zap.Error(err))

		entries = defaultPatterns()
	}

	for _, e := range entries {
		re, err := regexp.Compile(e.Regex)
		if err != nil {
			s.logger.Warn("Skipping invalid pattern",
				zap.String("name", e.Name), zap.Error(err))
			continue
		}

		s.patterns = append(s.patterns, pattern{name: e.Name, re: re})
	}
}

func (s *Store) loadAllowedDomains() {
	domains, err := readLines(s.files.AllowedDomainsFile)
	if err != nil {
		s.logger.Warn("Falling back to default allowed domains", zap.Error(err))

		domains = defaultAllowedDomains()
	}

	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			s.allowedDomains[d] = struct{}{}
		}
	}
}

func (s *Store) loadBannedIdentities() {
	ids, err := readLines(s.files.BannedIdentitiesFile)
	if err != nil {
		// An absent ban list simply means nobody is pre-banned.
		return
	}

	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			s.bannedIdentities[id] = struct{}{}
		}
	}
}

// FindBannedWords returns the distinct banned terms present in text as
// case-insensitive substrings, in stable sorted order.
func (s *Store) FindBannedWords(text string) []string {
	normalized := normalizeTerm(text)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []string

	for norm, original := range s.bannedWords {
		if strings.Contains(normalized, norm) {
			found = append(found, original)
		}
	}

	sort.Strings(found)

	return found
}

// MatchPatterns returns the names of all suspicious patterns matching text,
// in pattern-list order.
func (s *Store) MatchPatterns(text string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string

	for _, p := range s.patterns {
		if p.re.MatchString(text) {
			names = append(names, p.name)
		}
	}

	return names
}

// IsAllowedDomain reports whether domain ends with any allowed domain suffix.
func (s *Store) IsAllowedDomain(domain string) bool {
	domain = strings.ToLower(domain)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for allowed := range s.allowedDomains {
		if domain == allowed || strings.HasSuffix(domain, "."+allowed) {
			return true
		}
	}

	return false
}

// IsShortenerDomain reports whether domain matches a known URL shortener.
func (s *Store) IsShortenerDomain(domain string) bool {
	domain = strings.ToLower(domain)

	for _, sh := range s.shorteners {
		if strings.Contains(domain, sh) {
			return true
		}
	}

	return false
}

// IsBannedIdentity reports whether identity has an unconditional block.
func (s *Store) IsBannedIdentity(identity string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, banned := s.bannedIdentities[identity]

	return banned
}

// AddBannedWord inserts a term into the lexicon and persists the list.
// Returns false if the term is empty or already present.
func (s *Store) AddBannedWord(word string) bool {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return false
	}

	key := normalizeTerm(word)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bannedWords[key]; exists {
		return false
	}

	s.bannedWords[key] = word
	s.persistBannedWordsLocked()

	s.logger.Info("Banned word added", zap.String("word", word))

	return true
}

// RemoveBannedWord deletes a term from the lexicon and persists the list.
// Returns false if the term was not present.
func (s *Store) RemoveBannedWord(word string) bool {
	key := normalizeTerm(strings.ToLower(strings.TrimSpace(word)))

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bannedWords[key]; !exists {
		return false
	}

	delete(s.bannedWords, key)
	s.persistBannedWordsLocked()

	s.logger.Info("Banned word removed", zap.String("word", word))

	return true
}

// BanIdentity adds identity to the unconditional block list and persists it.
func (s *Store) BanIdentity(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bannedIdentities[identity] = struct{}{}
	s.persistBannedIdentitiesLocked()
}

// UnbanIdentity removes identity from the unconditional block list and
// persists it. Returns false if the identity was not banned.
func (s *Store) UnbanIdentity(identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, banned := s.bannedIdentities[identity]; !banned {
		return false
	}

	delete(s.bannedIdentities, identity)
	s.persistBannedIdentitiesLocked()

	return true
}

// Counts returns the sizes of all rule sets for stats reporting.
func (s *Store) Counts() (bannedWords, patterns, allowedDomains, bannedIdentities int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.bannedWords), len(s.patterns), len(s.allowedDomains), len(s.bannedIdentities)
}

// Snapshot captures all rule sets for export.
type Snapshot struct {
	BannedWords      []string       `json:"bannedWords"`
	Patterns         []PatternEntry `json:"patterns"`
	AllowedDomains   []string       `json:"allowedDomains"`
	BannedIdentities []string       `json:"bannedIdentities"`
}

// Export returns a copy of all rule sets.
func (s *Store) Export() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		BannedWords:      make([]string, 0, len(s.bannedWords)),
		Patterns:         make([]PatternEntry, 0, len(s.patterns)),
		AllowedDomains:   make([]string, 0, len(s.allowedDomains)),
		BannedIdentities: make([]string, 0, len(s.bannedIdentities)),
	}

	for _, w := range s.bannedWords {
		snap.BannedWords = append(snap.BannedWords, w)
	}

	for _, p := range s.patterns {
		snap.Patterns = append(snap.Patterns, PatternEntry{Name: p.name, Regex: p.re.String()})
	}

	for d := range s.allowedDomains {
		snap.AllowedDomains = append(snap.AllowedDomains, d)
	}

	for id := range s.bannedIdentities {
		snap.BannedIdentities = append(snap.BannedIdentities, id)
	}

	sort.Strings(snap.BannedWords)
	sort.Strings(snap.AllowedDomains)
	sort.Strings(snap.BannedIdentities)

	return snap
}

// Import replaces all rule sets with the snapshot contents and persists them.
// Patterns that fail to compile are skipped with a warning.
func (s *Store) Import(snap Snapshot) error {
	compiled := make([]pattern, 0, len(snap.Patterns))

	for _, e := range snap.Patterns {
		re, err := regexp.Compile(e.Regex)
		if err != nil {
			s.logger.Warn("Skipping invalid imported pattern",
				zap.String("name", e.Name), zap.Error(err))
			continue
		}

		compiled = append(compiled, pattern{name: e.Name, re: re})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.bannedWords = make(map[string]string, len(snap.BannedWords))
	for _, w := range snap.BannedWords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			s.bannedWords[normalizeTerm(w)] = w
		}
	}

	s.patterns = compiled

	s.allowedDomains = make(map[string]struct{}, len(snap.AllowedDomains))
	for _, d := range snap.AllowedDomains {
		s.allowedDomains[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}

	s.bannedIdentities = make(map[string]struct{}, len(snap.BannedIdentities))
	for _, id := range snap.BannedIdentities {
		if id = strings.TrimSpace(id); id != "" {
			s.bannedIdentities[id] = struct{}{}
		}
	}

	s.persistBannedWordsLocked()
	s.persistBannedIdentitiesLocked()
	s.persistAllowedDomainsLocked()
	s.persistPatternsLocked()

	s.logger.Info("Rule snapshot imported",
		zap.Int("bannedWords", len(s.bannedWords)),
		zap.Int("patterns", len(s.patterns)))

	return nil
}

func (s *Store) persistBannedWordsLocked() {
	words := make([]string, 0, len(s.bannedWords))
	for _, w := range s.bannedWords {
		words = append(words, w)
	}

	sort.Strings(words)

	if err := writeLines(s.files.BannedWordsFile, words); err != nil {
		s.logger.Error("Failed to persist banned words", zap.Error(err))
	}
}

func (s *Store) persistBannedIdentitiesLocked() {
	ids := make([]string, 0, len(s.bannedIdentities))
	for id := range s.bannedIdentities {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	if err := writeLines(s.files.BannedIdentitiesFile, ids); err != nil {
		s.logger.Error("Failed to persist banned identities", zap.Error(err))
	}
}

func (s *Store) persistAllowedDomainsLocked() {
	domains := make([]string, 0, len(s.allowedDomains))
	for d := range s.allowedDomains {
		domains = append(domains, d)
	}

	sort.Strings(domains)

	if err := writeLines(s.files.AllowedDomainsFile, domains); err != nil {
		s.logger.Error("Failed to persist allowed domains", zap.Error(err))
	}
}

func (s *Store) persistPatternsLocked() {
	entries := make([]PatternEntry, 0, len(s.patterns))
	for _, p := range s.patterns {
		entries = append(entries, PatternEntry{Name: p.name, Regex: p.re.String()})
	}

	data, err := sonic.MarshalIndent(patternFile{Patterns: entries}, "", "  ")
	if err != nil {
		s.logger.Error("Failed to marshal patterns", zap.Error(err))
		return
	}

	if err := writeFile(s.files.PatternsFile, data); err != nil {
		s.logger.Error("Failed to persist patterns", zap.Error(err))
	}
}

// readLines reads a line-delimited rule file, skipping blank lines.
func readLines(path string) ([]string, error) {
	if path == "" {
		return nil, os.ErrNotExist
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}

	var lines []string

	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	return lines, nil
}

// readPatternFile reads and parses the JSONC suspicious patterns file.
func readPatternFile(path string) ([]PatternEntry, error) {
	if path == "" {
		return nil, os.ErrNotExist
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern file: %w", err)
	}

	standardJSON, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("failed to standardize JSONC: %w", err)
	}

	var pf patternFile
	if err := sonic.Unmarshal(standardJSON, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse pattern JSON: %w", err)
	}

	return pf.Patterns, nil
}

func writeLines(path string, lines []string) error {
	if path == "" {
		return os.ErrNotExist
	}

	content := strings.Join(lines, "\n")
	if content != "" {
		content += "\n"
	}

	return writeFile(path, []byte(content))
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create rule directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write rule file: %w", err)
	}

	return nil
}
