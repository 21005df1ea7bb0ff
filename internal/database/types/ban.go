package types

import (
	"time"

	"github.com/uptrace/bun"
)

// BanSource records what triggered a ban.
type BanSource string

const (
	BanSourceManual BanSource = "manual"
	BanSourceAuto   BanSource = "auto"
)

// Ban is one append-only ban issuance. Lifting a ban sets LiftedAt rather
// than deleting the row, so the history remains auditable.
type Ban struct {
	bun.BaseModel `bun:"table:bans,alias:ban"`

	ID              int64      `bun:",pk,autoincrement"`
	Identity        string     `bun:",notnull"`
	Reason          string     `bun:",type:text"`
	Source          BanSource  `bun:",notnull"`
	IssuedBy        string     `bun:",nullzero"` // Empty when issued by the system
	DurationSeconds int64      `bun:",notnull"`
	IssuedAt        time.Time  `bun:",notnull"`
	ExpiresAt       time.Time  `bun:",notnull"`
	LiftedAt        *time.Time `bun:",nullzero"`
}

// IsActive reports whether the ban is in force at the given time.
func (b *Ban) IsActive(now time.Time) bool {
	return b.LiftedAt == nil && b.ExpiresAt.After(now)
}
