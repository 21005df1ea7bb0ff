package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/wardenlabs/warden/internal/database/types"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.Reputation)(nil),
			(*types.Warning)(nil),
			(*types.Ban)(nil),
		}

		for _, model := range models {
			_, err := db.NewCreateTable().
				Model(model).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create table: %w", err)
			}
		}

		indexes := []struct {
			name    string
			model   any
			columns []string
		}{
			{"idx_warnings_identity_created", (*types.Warning)(nil), []string{"identity", "created_at"}},
			{"idx_bans_identity_expires", (*types.Ban)(nil), []string{"identity", "expires_at"}},
		}

		for _, idx := range indexes {
			_, err := db.NewCreateIndex().
				Model(idx.model).
				Index(idx.name).
				Column(idx.columns...).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create index %s: %w", idx.name, err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.Ban)(nil),
			(*types.Warning)(nil),
			(*types.Reputation)(nil),
		}

		for _, model := range models {
			_, err := db.NewDropTable().
				Model(model).
				IfExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to drop table: %w", err)
			}
		}

		return nil
	})
}
