package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Warning is one append-only audit entry recorded for every non-safe verdict.
type Warning struct {
	bun.BaseModel `bun:"table:warnings,alias:warn"`

	ID       uuid.UUID `bun:",pk,type:uuid"`
	Identity string    `bun:",notnull"`
	// Kind describes the violation class, currently always "safety_violation".
	Kind    string `bun:",notnull"`
	Message string `bun:",type:text"`
	// Content is the sanitized content, truncated to 500 runes.
	Content   string    `bun:",type:text"`
	Score     int       `bun:",notnull"`
	CreatedAt time.Time `bun:",notnull,default:current_timestamp"`
}
