package engine

import "time"

// SafetyLevel classifies an evaluation score into one of four bands.
type SafetyLevel int

const (
	LevelSafe SafetyLevel = iota
	LevelWarning
	LevelDanger
	LevelBlocked
)

// String returns the wire name for the level.
func (l SafetyLevel) String() string {
	switch l {
	case LevelSafe:
		return "safe"
	case LevelWarning:
		return "warning"
	case LevelDanger:
		return "danger"
	case LevelBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the level as its wire name.
func (l SafetyLevel) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.String() + `"`), nil
}

// ContentType describes what kind of content an evaluation request carries.
// Only text is evaluated; everything else is rejected outright.
type ContentType string

const (
	ContentTypeText     ContentType = "text"
	ContentTypeImage    ContentType = "image"
	ContentTypeVideo    ContentType = "video"
	ContentTypeSticker  ContentType = "sticker"
	ContentTypeAudio    ContentType = "audio"
	ContentTypeDocument ContentType = "document"
)

// Directives tell the caller what to do with a verdict. They are advisory;
// the engine never performs the enforcement itself.
const (
	DirectiveBlockMessage  = "block_message"
	DirectiveNotifyAdmin   = "notify_admin"
	DirectiveSlowDown      = "slow_down"
	DirectiveWarnUser      = "warn_user"
	DirectiveMuteTemporary = "mute_temporary"
	DirectiveReportAdmin   = "report_admin"
	DirectiveAutoBan       = "auto_ban"
)

// Verdict is the complete outcome of one evaluation.
type Verdict struct {
	IsSafe           bool        `json:"isSafe"`
	Level            SafetyLevel `json:"level"`
	Score            int         `json:"score"`
	Findings         []string    `json:"findings"`
	Directives       []string    `json:"directives"`
	SanitizedContent string      `json:"sanitizedContent"`
	Identity         string      `json:"identity,omitempty"`
	Timestamp        time.Time   `json:"timestamp"`
}

// HasDirective reports whether the verdict carries the named directive.
func (v *Verdict) HasDirective(name string) bool {
	for _, d := range v.Directives {
		if d == name {
			return true
		}
	}

	return false
}
