package types

import (
	"time"

	"github.com/uptrace/bun"
)

// Reputation is the durable per-identity trust row. The in-memory ledger is
// authoritative for hot-path reads; this row is the write-through mirror that
// survives restarts.
type Reputation struct {
	bun.BaseModel `bun:"table:reputations,alias:rep"`

	Identity string `bun:",pk"` // Submitter handle

	// SafetyScore folds each new message score into the stored value as
	// (old+new)/2, biasing toward recent behavior.
	SafetyScore    int        `bun:",notnull,default:100"`
	WarningCount   int        `bun:",notnull,default:0"`
	BlockCount     int        `bun:",notnull,default:0"`
	LastWarningAt  *time.Time `bun:",nullzero"`
	LastActivityAt time.Time  `bun:",notnull"`
	CreatedAt      time.Time  `bun:",notnull,default:current_timestamp"`
}
