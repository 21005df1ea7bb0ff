// Package admin gates mutations of the rule set and ban state behind an
// owner/admin permission model. Unauthorized calls return false and leave all
// state untouched.
package admin

import (
	"context"
	"sync"
	"time"

	"github.com/wardenlabs/warden/internal/reputation"
	"github.com/wardenlabs/warden/internal/rules"
	"go.uber.org/zap"
)

// Service executes privileged operations. The owner can do everything,
// including managing the admin set; admins can manage rules and bans.
type Service struct {
	mu     sync.RWMutex
	owner  string
	admins map[string]struct{}

	rules  *rules.Store
	ledger *reputation.Ledger
	logger *zap.Logger
}

// NewService creates an admin service. The owner is always authorized even
// when absent from the admin list.
func NewService(owner string, admins []string, ruleStore *rules.Store, ledger *reputation.Ledger, logger *zap.Logger) *Service {
	s := &Service{
		owner:  owner,
		admins: make(map[string]struct{}, len(admins)),
		rules:  ruleStore,
		ledger: ledger,
		logger: logger.Named("admin"),
	}

	for _, admin := range admins {
		if admin != "" {
			s.admins[admin] = struct{}{}
		}
	}

	return s
}

// IsOwner reports whether actor is the configured owner.
func (s *Service) IsOwner(actor string) bool {
	return actor != "" && actor == s.owner
}

// IsAdmin reports whether actor may perform privileged operations.
func (s *Service) IsAdmin(actor string) bool {
	if s.IsOwner(actor) {
		return true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.admins[actor]

	return ok
}

// AddAdmin grants admin rights. Only the owner may call this.
func (s *Service) AddAdmin(actor, identity string) bool {
	if !s.IsOwner(actor) || identity == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.admins[identity] = struct{}{}
	s.logger.Info("Admin added", zap.String("actor", actor), zap.String("identity", identity))

	return true
}

// RemoveAdmin revokes admin rights. Only the owner may call this; the owner
// cannot be removed.
func (s *Service) RemoveAdmin(actor, identity string) bool {
	if !s.IsOwner(actor) || identity == s.owner {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.admins[identity]; !ok {
		return false
	}

	delete(s.admins, identity)
	s.logger.Info("Admin removed", zap.String("actor", actor), zap.String("identity", identity))

	return true
}

// BanIdentity bans an identity in both the rule list and the reputation
// ledger. A non-positive duration means permanent, expressed as 100 years.
func (s *Service) BanIdentity(ctx context.Context, actor, identity, reason string, duration time.Duration) bool {
	if !s.IsAdmin(actor) || identity == "" {
		return false
	}

	if duration <= 0 {
		duration = 100 * 365 * 24 * time.Hour
	}

	s.rules.BanIdentity(identity)
	s.ledger.IssueBan(ctx, identity, reason, "manual", actor, duration, time.Now().UTC())

	return true
}

// UnbanIdentity lifts all bans for an identity. Returns false when the
// identity was not banned anywhere.
func (s *Service) UnbanIdentity(ctx context.Context, actor, identity string) bool {
	if !s.IsAdmin(actor) || identity == "" {
		return false
	}

	ruleLifted := s.rules.UnbanIdentity(identity)
	ledgerLifted := s.ledger.LiftBan(ctx, identity, time.Now().UTC())

	return ruleLifted || ledgerLifted
}

// AddBannedWord adds a term to the lexicon. Returns false for unauthorized
// actors, empty terms, and duplicates.
func (s *Service) AddBannedWord(actor, word string) bool {
	if !s.IsAdmin(actor) || word == "" {
		return false
	}

	return s.rules.AddBannedWord(word)
}

// RemoveBannedWord removes a term from the lexicon.
func (s *Service) RemoveBannedWord(actor, word string) bool {
	if !s.IsAdmin(actor) || word == "" {
		return false
	}

	return s.rules.RemoveBannedWord(word)
}

// ResetWarnings zeroes the warning count for an identity.
func (s *Service) ResetWarnings(ctx context.Context, actor, identity string) bool {
	if !s.IsAdmin(actor) || identity == "" {
		return false
	}

	s.ledger.ResetWarnings(ctx, identity)

	return true
}

// Snapshot bundles the full rule set and reputation trust state for
// export and import.
type Snapshot struct {
	Rules      rules.Snapshot              `json:"rules"`
	Reputation []reputation.RecordSnapshot `json:"reputation"`
}

// ExportSnapshot returns the full rule and reputation state. Admin only.
func (s *Service) ExportSnapshot(actor string) (Snapshot, bool) {
	if !s.IsAdmin(actor) {
		return Snapshot{}, false
	}

	return Snapshot{
		Rules:      s.rules.Export(),
		Reputation: s.ledger.Export(),
	}, true
}

// ImportSnapshot replaces the rule set and reputation state with the
// snapshot contents. Owner only, since it overwrites the entire trust state;
// invalid patterns in the snapshot are skipped rather than failing the
// import.
func (s *Service) ImportSnapshot(actor string, snap Snapshot) bool {
	if !s.IsOwner(actor) {
		return false
	}

	if err := s.rules.Import(snap.Rules); err != nil {
		s.logger.Warn("Rule import rejected", zap.String("actor", actor), zap.Error(err))
		return false
	}

	s.ledger.Import(snap.Reputation, time.Now().UTC())

	s.logger.Info("Snapshot imported",
		zap.String("actor", actor),
		zap.Int("identities", len(snap.Reputation)))

	return true
}
