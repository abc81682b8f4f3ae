package models

import (
	"time"
)

// Tier bands assigned by standing position on the leaderboard.
const (
	TierA = "A" // top 10
	TierB = "B" // positions 11-25
	TierC = "C" // everyone else; default for new players
)

// AttendanceEntry is one player's attendance record for a single event slot.
// At most one row exists per (nickname, recorded_at) pair: submissions for
// an existing slot are merged, not duplicated.
type AttendanceEntry struct {
	ID               string    `json:"id" gorm:"primaryKey"`
	Nickname         string    `json:"nickname" gorm:"not null;index"`
	DisplayName      string    `json:"display_name"`
	PointsToday      int       `json:"points_today"`
	PointsCumulative int       `json:"points_cumulative" gorm:"default:0"`
	Tier             string    `json:"tier" gorm:"type:varchar(1);default:'C'"`
	RecordedAt       time.Time `json:"recorded_at" gorm:"not null;index"`
	AvatarURL        string    `json:"avatar_url,omitempty"`

	Timestamps
}

// EventDate is an administrator-defined calendar slot that attendance
// entries may reference. CalendarDate is unique across rows.
type EventDate struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Label        string    `json:"label" gorm:"not null"`
	Slug         string    `json:"slug" gorm:"index"`
	CalendarDate time.Time `json:"calendar_date" gorm:"type:date;uniqueIndex;not null"`
	IsActive     bool      `json:"is_active" gorm:"default:true"`

	Timestamps
}

// EventRef is the resolution of a queried date against the EventDate table:
// either a known row, or a synthesized reference for a date nobody
// registered. Callers branch on Known instead of probing struct fields.
type EventRef struct {
	Known *EventDate `json:"event,omitempty"`
	Label string     `json:"label"`
	Date  time.Time  `json:"date"`
}

// KnownRef wraps an existing EventDate row.
func KnownRef(ed *EventDate) EventRef {
	return EventRef{Known: ed, Label: ed.Label, Date: ed.CalendarDate}
}

// SynthesizedRef builds a reference for a date with no EventDate row.
func SynthesizedRef(date time.Time) EventRef {
	return EventRef{Label: date.Format("2006-01-02"), Date: date}
}

func (r EventRef) IsKnown() bool { return r.Known != nil }

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
