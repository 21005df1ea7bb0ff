package database

import (
	"context"
	"time"

	"github.com/wardenlabs/warden/internal/database/types"
	"github.com/wardenlabs/warden/internal/reputation"
)

// banHistoryLimit bounds how much ban history is hydrated per identity.
const banHistoryLimit = 20

// warningHydrateLimit bounds how many recent warnings feed the trailing-24h
// auto-ban window after a restart.
const warningHydrateLimit = 50

// LedgerStore adapts the repository to the reputation ledger's write-through
// interface.
type LedgerStore struct {
	repo *Repository
}

// NewLedgerStore creates a ledger store backed by the given repository.
func NewLedgerStore(repo *Repository) *LedgerStore {
	return &LedgerStore{repo: repo}
}

// Load hydrates the durable state for an identity, or nil when the identity
// has never been seen.
func (s *LedgerStore) Load(ctx context.Context, identity string) (*reputation.StoredRecord, error) {
	rep, err := s.repo.Reputation().Get(ctx, identity)
	if err != nil {
		return nil, err
	}

	if rep == nil {
		return nil, nil //nolint:nilnil
	}

	stored := &reputation.StoredRecord{
		SafetyScore:   rep.SafetyScore,
		WarningCount:  rep.WarningCount,
		LastWarningAt: rep.LastWarningAt,
	}

	bans, err := s.repo.Ban().History(ctx, identity, banHistoryLimit)
	if err != nil {
		return nil, err
	}

	for i := range bans {
		stored.Bans = append(stored.Bans, reputation.Ban{
			Reason:    bans[i].Reason,
			Source:    string(bans[i].Source),
			IssuedBy:  bans[i].IssuedBy,
			Duration:  bans[i].DurationSeconds,
			IssuedAt:  bans[i].IssuedAt,
			ExpiresAt: bans[i].ExpiresAt,
			LiftedAt:  bans[i].LiftedAt,
		})
	}

	warnings, err := s.repo.Warning().Recent(ctx, identity, warningHydrateLimit)
	if err != nil {
		return nil, err
	}

	for i := range warnings {
		stored.WarningTimes = append(stored.WarningTimes, warnings[i].CreatedAt)
	}

	return stored, nil
}

// SaveEvaluation folds one evaluation into the identity's reputation row.
func (s *LedgerStore) SaveEvaluation(ctx context.Context, identity string, score, warningDelta int, at time.Time) error {
	return s.repo.Reputation().RecordScore(ctx, identity, score, warningDelta, at)
}

// AppendWarning records one audit entry and stamps the last warning time.
func (s *LedgerStore) AppendWarning(ctx context.Context, entry reputation.WarningEntry) error {
	warning := &types.Warning{
		Identity:  entry.Identity,
		Kind:      entry.Kind,
		Message:   entry.Message,
		Content:   entry.Content,
		Score:     entry.Score,
		CreatedAt: entry.CreatedAt,
	}

	if err := s.repo.Warning().Append(ctx, warning); err != nil {
		return err
	}

	return s.repo.Reputation().SetLastWarning(ctx, entry.Identity, entry.CreatedAt)
}

// AppendBan records one ban issuance and bumps the identity's block counter.
func (s *LedgerStore) AppendBan(ctx context.Context, identity string, ban reputation.Ban) error {
	row := &types.Ban{
		Identity:        identity,
		Reason:          ban.Reason,
		Source:          types.BanSource(ban.Source),
		IssuedBy:        ban.IssuedBy,
		DurationSeconds: ban.Duration,
		IssuedAt:        ban.IssuedAt,
		ExpiresAt:       ban.ExpiresAt,
	}

	if err := s.repo.Ban().Issue(ctx, row); err != nil {
		return err
	}

	return s.repo.Reputation().IncrementBlocks(ctx, identity)
}

// LiftBans marks all active bans for an identity as lifted.
func (s *LedgerStore) LiftBans(ctx context.Context, identity string, at time.Time) (bool, error) {
	return s.repo.Ban().Lift(ctx, identity, at)
}

// ResetWarnings zeroes the identity's warning count.
func (s *LedgerStore) ResetWarnings(ctx context.Context, identity string) error {
	return s.repo.Reputation().ResetWarnings(ctx, identity)
}
