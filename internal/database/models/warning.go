package models

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/wardenlabs/warden/internal/database/dbretry"
	"github.com/wardenlabs/warden/internal/database/types"
	"go.uber.org/zap"
)

// WarningModel handles database operations for the append-only warning log.
type WarningModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewWarning creates a new WarningModel instance.
func NewWarning(db *bun.DB, logger *zap.Logger) *WarningModel {
	return &WarningModel{
		db:     db,
		logger: logger.Named("db_warning"),
	}
}

// Append inserts one warning entry. The ID is assigned here when unset.
func (m *WarningModel) Append(ctx context.Context, warning *types.Warning) error {
	if warning.ID == uuid.Nil {
		warning.ID = uuid.New()
	}

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(warning).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to append warning: %w", err)
		}

		return nil
	})
}

// CountSince returns the number of warnings for identity recorded after the
// given time. Used for the trailing 24h auto-ban check on cold starts.
func (m *WarningModel) CountSince(ctx context.Context, identity string, since time.Time) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := m.db.NewSelect().
			Model((*types.Warning)(nil)).
			Where("identity = ?", identity).
			Where("created_at > ?", since).
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count warnings: %w", err)
		}

		return count, nil
	})
}

// Recent returns the newest warnings for identity, newest first.
func (m *WarningModel) Recent(ctx context.Context, identity string, limit int) ([]types.Warning, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]types.Warning, error) {
		var warnings []types.Warning

		err := m.db.NewSelect().
			Model(&warnings).
			Where("identity = ?", identity).
			Order("created_at DESC").
			Limit(limit).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent warnings: %w", err)
		}

		return warnings, nil
	})
}
