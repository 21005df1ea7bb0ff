// Package engine orchestrates the full moderation pipeline: identity and ban
// checks, rate limiting, content evaluation, verdict classification, and
// reputation bookkeeping.
package engine

import (
	"context"
	"time"

	"github.com/wardenlabs/warden/internal/evaluator"
	"github.com/wardenlabs/warden/internal/ratelimit"
	"github.com/wardenlabs/warden/internal/reputation"
	"github.com/wardenlabs/warden/internal/rules"
	"github.com/wardenlabs/warden/internal/setup/config"
	"github.com/wardenlabs/warden/internal/stats"
	"go.uber.org/zap"
)

const (
	// deductRateLimited is applied when an identity exceeds its message quota.
	deductRateLimited = 30

	// FindingRateLimitExceeded tags a verdict whose identity exceeded the quota.
	FindingRateLimitExceeded = "rate_limit_exceeded"
	// FindingUserBanned tags a verdict for a banned identity.
	FindingUserBanned = "user_banned"
	// FindingInvalidContent tags a verdict for empty or non-text content.
	FindingInvalidContent = "invalid_content"
	// FindingAutoBan tags the verdict that tripped the auto-ban thresholds.
	FindingAutoBan = "auto_ban_reason=multiple_violations"

	// warningKind is the audit log classification for non-safe verdicts.
	warningKind = "safety_violation"

	// auditContentLimit bounds how much sanitized content the audit log keeps.
	auditContentLimit = 500
)

// Permissions reports privilege flags for identity reports.
type Permissions interface {
	IsOwner(identity string) bool
	IsAdmin(identity string) bool
}

// Engine runs the moderation pipeline. All methods are safe for concurrent
// use; evaluations for different identities never block each other.
type Engine struct {
	cfg       *config.Safety
	rules     *rules.Store
	evaluator *evaluator.Evaluator
	limiter   *ratelimit.Limiter
	ledger    *reputation.Ledger
	stats     *stats.Client
	perms     Permissions
	logger    *zap.Logger
}

// New creates an engine. The stats client and permissions may be nil, which
// disables counters and leaves report privilege flags false.
func New(
	cfg *config.Safety,
	ruleStore *rules.Store,
	eval *evaluator.Evaluator,
	limiter *ratelimit.Limiter,
	ledger *reputation.Ledger,
	statsClient *stats.Client,
	perms Permissions,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		cfg:       cfg,
		rules:     ruleStore,
		evaluator: eval,
		limiter:   limiter,
		ledger:    ledger,
		stats:     statsClient,
		perms:     perms,
		logger:    logger.Named("engine"),
	}
}

// Evaluate runs one piece of content through the pipeline and returns the
// verdict. An empty identity skips rate limiting and all reputation
// bookkeeping. Evaluate never panics; an internal failure produces a
// conservative warning verdict instead.
func (e *Engine) Evaluate(ctx context.Context, identity, content string, contentType ContentType) (verdict Verdict) {
	now := time.Now().UTC()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Evaluation panicked, returning conservative verdict",
				zap.Any("panic", r),
				zap.String("identity", identity))

			verdict = Verdict{
				IsSafe:           true,
				Level:            LevelWarning,
				Score:            e.cfg.WarningThreshold,
				Findings:         []string{"evaluation_error"},
				Directives:       []string{DirectiveWarnUser},
				SanitizedContent: content,
				Identity:         identity,
				Timestamp:        now,
			}
		}
	}()

	if identity != "" && e.isBanned(ctx, identity, now) {
		return e.finish(ctx, identity, Verdict{
			Level:            LevelBlocked,
			Findings:         []string{FindingUserBanned},
			Directives:       []string{DirectiveBlockMessage, DirectiveNotifyAdmin},
			SanitizedContent: "",
			Identity:         identity,
			Timestamp:        now,
		}, false)
	}

	if content == "" || contentType != ContentTypeText {
		return e.finish(ctx, identity, Verdict{
			Level:            LevelBlocked,
			Findings:         []string{FindingInvalidContent},
			Directives:       []string{DirectiveBlockMessage},
			SanitizedContent: "",
			Identity:         identity,
			Timestamp:        now,
		}, false)
	}

	rateLimited := false
	if identity != "" && !e.limiter.Allow(identity, now) {
		rateLimited = true
	}

	result := e.evaluator.Evaluate(content)

	score := result.Score
	findings := result.Findings

	if rateLimited {
		score -= deductRateLimited
		findings = append(findings, FindingRateLimitExceeded)
	}

	if score < 0 {
		score = 0
	}

	verdict = Verdict{
		Level:            e.classify(score),
		Score:            score,
		Findings:         findings,
		SanitizedContent: result.Sanitized,
		Identity:         identity,
		Timestamp:        now,
	}
	verdict.Directives = e.directives(verdict.Level, rateLimited)

	return e.finish(ctx, identity, verdict, true)
}

// IdentityReport extends the ledger report with privilege flags.
type IdentityReport struct {
	reputation.Report

	Admin bool `json:"admin"`
	Owner bool `json:"owner"`
}

// GetIdentityReport summarizes the reputation and privilege state for one
// identity.
func (e *Engine) GetIdentityReport(ctx context.Context, identity string) IdentityReport {
	report := IdentityReport{
		Report: e.ledger.ReportFor(ctx, identity, time.Now().UTC()),
	}

	if !report.Banned && e.rules.IsBannedIdentity(identity) {
		report.Banned = true
	}

	if e.perms != nil {
		report.Owner = e.perms.IsOwner(identity)
		report.Admin = e.perms.IsAdmin(identity)
	}

	return report
}

// SystemStats summarizes engine-wide state.
type SystemStats struct {
	Totals            stats.Totals      `json:"totals"`
	Hourly            stats.HourlyStats `json:"hourly,omitempty"`
	TrackedIdentities int               `json:"trackedIdentities"`
	BannedWords       int               `json:"bannedWords"`
	Patterns          int               `json:"patterns"`
	AllowedDomains    int               `json:"allowedDomains"`
	BannedIdentities  int               `json:"bannedIdentities"`
}

// GetSystemStats reports engine-wide counters and rule inventory. Redis
// failures leave the counter fields zeroed rather than failing the call.
func (e *Engine) GetSystemStats(ctx context.Context) SystemStats {
	system := SystemStats{
		TrackedIdentities: e.ledger.TrackedCount(),
	}
	system.BannedWords, system.Patterns, system.AllowedDomains, system.BannedIdentities = e.rules.Counts()

	if e.stats != nil {
		if totals, err := e.stats.GetTotals(ctx); err == nil {
			system.Totals = totals
		}

		if hourly, err := e.stats.GetHourlyStats(ctx); err == nil {
			system.Hourly = hourly
		}
	}

	return system
}

// isBanned checks both the static rule list and the reputation ledger.
func (e *Engine) isBanned(ctx context.Context, identity string, now time.Time) bool {
	if e.rules.IsBannedIdentity(identity) {
		return true
	}

	return e.ledger.IsBanned(ctx, identity, now)
}

// classify maps a score to its safety level using the configured thresholds.
func (e *Engine) classify(score int) SafetyLevel {
	switch {
	case score >= e.cfg.SafeThreshold:
		return LevelSafe
	case score >= e.cfg.WarningThreshold:
		return LevelWarning
	case score >= e.cfg.DangerThreshold:
		return LevelDanger
	default:
		return LevelBlocked
	}
}

// directives builds the advisory action list for a level.
func (e *Engine) directives(level SafetyLevel, rateLimited bool) []string {
	var out []string

	switch level {
	case LevelSafe:
	case LevelWarning:
		out = append(out, DirectiveWarnUser)
	case LevelDanger:
		out = append(out, DirectiveWarnUser, DirectiveMuteTemporary)
	case LevelBlocked:
		out = append(out, DirectiveBlockMessage, DirectiveWarnUser, DirectiveReportAdmin)
	}

	if rateLimited {
		out = append(out, DirectiveSlowDown)
	}

	return out
}

// finish applies the reputation and statistics bookkeeping shared by every
// verdict path, then returns the verdict.
func (e *Engine) finish(ctx context.Context, identity string, verdict Verdict, tracked bool) Verdict {
	verdict.IsSafe = verdict.Level == LevelSafe || verdict.Level == LevelWarning

	if identity != "" && tracked {
		warned := verdict.Level != LevelSafe

		// A warning inside the cooldown window is still recorded, but the
		// user is not notified again.
		if warned && e.cfg.WarningCooldown > 0 {
			last := e.ledger.LastWarningAt(ctx, identity)
			if !last.IsZero() && verdict.Timestamp.Sub(last) < time.Duration(e.cfg.WarningCooldown)*time.Second {
				verdict.Directives = removeDirective(verdict.Directives, DirectiveWarnUser)
			}
		}

		e.ledger.RecordEvaluation(ctx, identity, verdict.Score, verdict.Findings, warned, verdict.Timestamp)

		if warned {
			e.ledger.AppendWarning(ctx, reputation.WarningEntry{
				Identity:  identity,
				Kind:      warningKind,
				Message:   verdict.Level.String(),
				Content:   truncateRunes(verdict.SanitizedContent, auditContentLimit),
				Score:     verdict.Score,
				CreatedAt: verdict.Timestamp,
			})
		}

		// Crossing an auto-ban threshold only signals the caller. Ban
		// issuance stays an explicit act of the caller or an admin, so
		// every ban entry has an accountable origin.
		if warned && e.ledger.ShouldAutoBan(ctx, identity, e.cfg.AutoBanThreshold, e.cfg.DailyWarningLimit, verdict.Timestamp) {
			verdict.Findings = append(verdict.Findings, FindingAutoBan)
			verdict.Directives = append(verdict.Directives, DirectiveAutoBan)
		}
	}

	e.recordStats(ctx, verdict)

	if !verdict.IsSafe {
		e.logger.Info("Unsafe content detected",
			zap.String("identity", identity),
			zap.Stringer("level", verdict.Level),
			zap.Int("score", verdict.Score),
			zap.Strings("findings", verdict.Findings))
	}

	return verdict
}

// recordStats bumps the Redis counters for one verdict. Errors are already
// logged by the stats client.
func (e *Engine) recordStats(ctx context.Context, verdict Verdict) {
	if e.stats == nil {
		return
	}

	_ = e.stats.IncrementStat(ctx, stats.FieldChecks, 1)

	if verdict.Level != LevelSafe {
		_ = e.stats.IncrementStat(ctx, stats.FieldWarnings, 1)
	}

	if verdict.Level == LevelBlocked {
		_ = e.stats.IncrementStat(ctx, stats.FieldBlocks, 1)
	}
}

func removeDirective(directives []string, name string) []string {
	out := directives[:0]

	for _, d := range directives {
		if d != name {
			out = append(out, d)
		}
	}

	return out
}

// truncateRunes shortens s to at most limit runes.
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit])
}
