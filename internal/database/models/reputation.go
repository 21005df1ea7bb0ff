package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/wardenlabs/warden/internal/database/dbretry"
	"github.com/wardenlabs/warden/internal/database/types"
	"go.uber.org/zap"
)

// ReputationModel handles database operations for per-identity reputation rows.
type ReputationModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewReputation creates a new ReputationModel instance.
func NewReputation(db *bun.DB, logger *zap.Logger) *ReputationModel {
	return &ReputationModel{
		db:     db,
		logger: logger.Named("db_reputation"),
	}
}

// Get retrieves the reputation row for an identity. Returns nil without error
// when no row exists yet.
func (m *ReputationModel) Get(ctx context.Context, identity string) (*types.Reputation, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Reputation, error) {
		var rep types.Reputation

		err := m.db.NewSelect().
			Model(&rep).
			Where("identity = ?", identity).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil //nolint:nilnil
		}

		if err != nil {
			return nil, fmt.Errorf("failed to get reputation: %w", err)
		}

		return &rep, nil
	})
}

// RecordScore folds a new message score into an identity's row, creating it on
// first sight. The stored score becomes (old+new)/2; warningDelta is added to
// the cumulative warning count.
func (m *ReputationModel) RecordScore(
	ctx context.Context, identity string, score, warningDelta int, at time.Time,
) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		rep := &types.Reputation{
			Identity:       identity,
			SafetyScore:    score,
			WarningCount:   warningDelta,
			LastActivityAt: at,
			CreatedAt:      at,
		}

		_, err := m.db.NewInsert().
			Model(rep).
			On("CONFLICT (identity) DO UPDATE").
			Set("safety_score = (rep.safety_score + EXCLUDED.safety_score) / 2").
			Set("warning_count = rep.warning_count + EXCLUDED.warning_count").
			Set("last_activity_at = EXCLUDED.last_activity_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to record score: %w", err)
		}

		return nil
	})
}

// SetLastWarning stamps the most recent warning time for an identity.
func (m *ReputationModel) SetLastWarning(ctx context.Context, identity string, at time.Time) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Reputation)(nil)).
			Set("last_warning_at = ?", at).
			Where("identity = ?", identity).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to set last warning: %w", err)
		}

		return nil
	})
}

// ResetWarnings zeroes the warning count for an identity. Only admin resets
// call this; nothing else ever decrements the count.
func (m *ReputationModel) ResetWarnings(ctx context.Context, identity string) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Reputation)(nil)).
			Set("warning_count = 0").
			Set("last_warning_at = NULL").
			Where("identity = ?", identity).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to reset warnings: %w", err)
		}

		return nil
	})
}

// IncrementBlocks bumps the block counter for an identity.
func (m *ReputationModel) IncrementBlocks(ctx context.Context, identity string) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Reputation)(nil)).
			Set("block_count = block_count + 1").
			Where("identity = ?", identity).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to increment blocks: %w", err)
		}

		return nil
	})
}
