package models

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/wardenlabs/warden/internal/database/dbretry"
	"github.com/wardenlabs/warden/internal/database/types"
	"go.uber.org/zap"
)

// BanModel handles database operations for the append-only ban log.
type BanModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewBan creates a new BanModel instance.
func NewBan(db *bun.DB, logger *zap.Logger) *BanModel {
	return &BanModel{
		db:     db,
		logger: logger.Named("db_ban"),
	}
}

// Issue appends one ban record.
func (m *BanModel) Issue(ctx context.Context, ban *types.Ban) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(ban).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to issue ban: %w", err)
		}

		return nil
	})
}

// Lift marks all active bans for identity as lifted at the given time.
// Returns true if at least one ban was lifted.
func (m *BanModel) Lift(ctx context.Context, identity string, at time.Time) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		result, err := m.db.NewUpdate().
			Model((*types.Ban)(nil)).
			Set("lifted_at = ?", at).
			Where("identity = ?", identity).
			Where("lifted_at IS NULL").
			Where("expires_at > ?", at).
			Exec(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to lift bans: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return false, err
		}

		return affected > 0, nil
	})
}

// IsBanned reports whether identity has an unlifted ban expiring in the future.
func (m *BanModel) IsBanned(ctx context.Context, identity string, now time.Time) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		exists, err := m.db.NewSelect().
			Model((*types.Ban)(nil)).
			Where("identity = ?", identity).
			Where("lifted_at IS NULL").
			Where("expires_at > ?", now).
			Exists(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to check ban: %w", err)
		}

		return exists, nil
	})
}

// History returns the newest ban records for identity, newest first.
func (m *BanModel) History(ctx context.Context, identity string, limit int) ([]types.Ban, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]types.Ban, error) {
		var bans []types.Ban

		err := m.db.NewSelect().
			Model(&bans).
			Where("identity = ?", identity).
			Order("issued_at DESC").
			Limit(limit).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get ban history: %w", err)
		}

		return bans, nil
	})
}
