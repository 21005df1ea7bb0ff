package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
	ErrInvalidThresholds     = errors.New("safety thresholds must descend: safe > warning > danger")
)

// CurrentVersion is the expected version of the config file.
const CurrentVersion = 1

// Config represents the entire application configuration.
type Config struct {
	// Version of the config file.
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Redis      Redis      `koanf:"redis"`
	Safety     Safety     `koanf:"safety"`
	Admin      Admin      `koanf:"admin"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	// Database hostname.
	Host string `koanf:"host"`
	// Database port.
	Port int `koanf:"port"`
	// Database username.
	User string `koanf:"user"`
	// Database password.
	Password string `koanf:"password"`
	// Database name.
	DBName string `koanf:"db_name"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
	// Write-through timeout in milliseconds for hot-path persists.
	WriteTimeout int `koanf:"write_timeout"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
}

// Safety contains the content-safety rule thresholds and limits.
type Safety struct {
	// Minimum message length before the too_short penalty applies.
	MinMessageLength int `koanf:"min_message_length"`
	// Maximum message length before the too_long penalty applies.
	MaxMessageLength int `koanf:"max_message_length"`
	// Maximum emoji count before per-emoji penalties apply.
	MaxEmojis int `koanf:"max_emojis"`
	// Maximum ratio of uppercase to alphabetic characters.
	MaxCapsRatio float64 `koanf:"max_caps_ratio"`
	// Maximum number of URLs allowed in a message.
	MaxURLs int `koanf:"max_urls"`
	// Messages allowed per identity per minute.
	RateLimit int `koanf:"rate_limit"`
	// Warnings allowed per identity per day before auto-ban is signaled.
	DailyWarningLimit int `koanf:"daily_warning_limit"`
	// Cooldown between warnings in seconds.
	WarningCooldown int `koanf:"warning_cooldown"`
	// Cumulative warnings before auto-ban is signaled.
	AutoBanThreshold int `koanf:"auto_ban_threshold"`
	// Duration of automatic mutes in seconds.
	AutoMuteDuration int `koanf:"auto_mute_duration"`
	// Strict mode tightens classification thresholds and halves the rate quota.
	StrictMode bool `koanf:"strict_mode"`
	// Score at or above which content is classified safe.
	SafeThreshold int `koanf:"safe_threshold"`
	// Score at or above which content is classified warning.
	WarningThreshold int `koanf:"warning_threshold"`
	// Score at or above which content is classified danger.
	DangerThreshold int `koanf:"danger_threshold"`
	// Rule file locations.
	Rules RuleFiles `koanf:"rules"`
}

// RuleFiles contains the locations of the mutable rule lists.
type RuleFiles struct {
	// Line-delimited banned words file.
	BannedWordsFile string `koanf:"banned_words_file"`
	// JSONC suspicious patterns file.
	PatternsFile string `koanf:"patterns_file"`
	// Line-delimited allowed domains file.
	AllowedDomainsFile string `koanf:"allowed_domains_file"`
	// Line-delimited banned identities file.
	BannedIdentitiesFile string `koanf:"banned_identities_file"`
}

// Admin contains the privileged identity configuration.
type Admin struct {
	// Owner identity, allowed all privileged operations.
	OwnerID string `koanf:"owner_id"`
	// Admin identities, allowed rule and ban mutations.
	AdminIDs []string `koanf:"admin_ids"`
}

// DefaultSafety returns the safety configuration defaults. These are applied
// before unmarshaling the config file, so a missing file or missing keys never
// leave a zero-valued limit behind.
func DefaultSafety() Safety {
	return Safety{
		MinMessageLength:  2,
		MaxMessageLength:  1000,
		MaxEmojis:         10,
		MaxCapsRatio:      0.5,
		MaxURLs:           2,
		RateLimit:         10,
		DailyWarningLimit: 5,
		WarningCooldown:   3600,
		AutoBanThreshold:  3,
		AutoMuteDuration:  3600,
		SafeThreshold:     80,
		WarningThreshold:  60,
		DangerThreshold:   40,
		Rules: RuleFiles{
			BannedWordsFile:      "data/banned_words.txt",
			PatternsFile:         "data/suspicious_patterns.jsonc",
			AllowedDomainsFile:   "data/allowed_domains.txt",
			BannedIdentitiesFile: "data/banned_identities.txt",
		},
	}
}

// LoadConfig loads the configuration from the first warden.toml found in the
// search paths. Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	k := koanf.New(".")

	// Get user's home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	// List search paths
	configPaths := []string{
		".warden",
		homeDir + "/.warden/config",
		"/etc/warden/config",
		"/app/config",
		"config",
		".",
	}

	var usedConfigPath string

	for _, path := range configPaths {
		configPath := fmt.Sprintf("%s/warden.toml", path)
		if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
			usedConfigPath = path
			break
		}
	}

	if usedConfigPath == "" {
		return nil, "", fmt.Errorf("%w: warden.toml", ErrConfigFileNotFound)
	}

	config := Config{Safety: DefaultSafety()}
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := checkConfigVersion(config.Version); err != nil {
		return nil, "", err
	}

	if err := config.Safety.Validate(); err != nil {
		return nil, "", err
	}

	config.Safety.applyStrictMode()

	return &config, usedConfigPath, nil
}

// Validate checks the safety configuration for inconsistent values.
func (s *Safety) Validate() error {
	if s.SafeThreshold <= s.WarningThreshold || s.WarningThreshold <= s.DangerThreshold {
		return fmt.Errorf("%w: safe=%d warning=%d danger=%d",
			ErrInvalidThresholds, s.SafeThreshold, s.WarningThreshold, s.DangerThreshold)
	}

	if s.MinMessageLength < 0 || s.MaxMessageLength < s.MinMessageLength {
		return fmt.Errorf("%w: min=%d max=%d", ErrInvalidThresholds, s.MinMessageLength, s.MaxMessageLength)
	}

	return nil
}

// applyStrictMode tightens the classification thresholds when strict mode is
// enabled. Thresholds already above the strict floor are left alone.
func (s *Safety) applyStrictMode() {
	if !s.StrictMode {
		return
	}

	if s.SafeThreshold < 90 {
		s.SafeThreshold = 90
	}

	if s.WarningThreshold < 70 {
		s.WarningThreshold = 70
	}

	if s.RateLimit > 1 {
		s.RateLimit /= 2
	}
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(current int) error {
	if current == 0 {
		return fmt.Errorf("%w: warden.toml", ErrConfigVersionMissing)
	}

	if current != CurrentVersion {
		return fmt.Errorf("%w: warden.toml (got: %d, expected: %d)",
			ErrConfigVersionMismatch, current, CurrentVersion)
	}

	return nil
}
