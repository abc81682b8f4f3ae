package models

// Player is a registered clan member profile. Attendance entries are keyed
// by nickname rather than player ID so that walk-in submissions work before
// a profile exists.
type Player struct {
	ID        string `json:"id" gorm:"primaryKey"`
	Nickname  string `json:"nickname" gorm:"uniqueIndex;not null"`
	Username  string `json:"username" gorm:"index"`
	FirstName string `json:"first_name"`
	Age       int    `json:"age,omitempty"`
	Phone     string `json:"phone,omitempty"`
	City      string `json:"city,omitempty"`
	Country   string `json:"country,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`

	// Clan progression shown on the roster page
	Rank           string `json:"rank" gorm:"type:varchar(16);default:'recruit'"`
	Level          int    `json:"level" gorm:"default:1"`
	ExpPoints      int64  `json:"exp_points" gorm:"default:0"`
	ActivityStatus string `json:"activity_status" gorm:"type:varchar(16);default:'OFFLINE'"` // ONLINE, OFFLINE, AWAY

	IsActive bool `json:"is_active" gorm:"default:true"`

	Timestamps
}
