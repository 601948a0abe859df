package domain

import (
	"time"
)

// Currency names a balance column on Profile.
type Currency string

const (
	Soul        Currency = "soul"
	DreamPoints Currency = "dream_points"
	Masks       Currency = "masks"
	Coins       Currency = "coins"
)

func (c Currency) Valid() bool {
	switch c {
	case Soul, DreamPoints, Masks, Coins:
		return true
	}
	return false
}

// Profile is one per account.
type Profile struct {
	ID          string `gorm:"primaryKey" json:"id"`
	Nickname    string `json:"nickname"`
	Soul        int64  `gorm:"not null;default:0;check:soul >= 0" json:"soul"`
	DreamPoints int64  `gorm:"not null;default:0;check:dream_points >= 0" json:"dream_points"`
	Masks       int64  `gorm:"not null;default:0;check:masks >= 0" json:"masks"`
	Coins       int64  `gorm:"not null;default:0;check:coins >= 0" json:"coins"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Balance returns the balance held in c.
func (p Profile) Balance(c Currency) int64 {
	switch c {
	case Soul:
		return p.Soul
	case DreamPoints:
		return p.DreamPoints
	case Masks:
		return p.Masks
	case Coins:
		return p.Coins
	}
	return 0
}

// Delta is a signed change per currency applied in one guarded step.
type Delta map[Currency]int64

// Apply returns p with d added, and false if any balance would go negative.
func (d Delta) Apply(p Profile) (Profile, bool) {
	out := p
	for c, v := range d {
		switch c {
		case Soul:
			out.Soul += v
		case DreamPoints:
			out.DreamPoints += v
		case Masks:
			out.Masks += v
		case Coins:
			out.Coins += v
		}
	}
	ok := out.Soul >= 0 && out.DreamPoints >= 0 && out.Masks >= 0 && out.Coins >= 0
	return out, ok
}

// Role is an app role, checked server side.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type UserRole struct {
	UserID string `gorm:"primaryKey"`
	Role   Role   `gorm:"primaryKey"`
}
