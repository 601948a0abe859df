package domain

import "time"

// TradeLink offers one owned nail. NailID and IsDream hold the escrowed copy
// because the owned row leaves the sender when the link is created.
type TradeLink struct {
	ID         string `gorm:"primaryKey"`
	Code       string `gorm:"uniqueIndex;not null"`
	FromUserID string `gorm:"index;not null"`
	UserNailID string `gorm:"not null"`
	NailID     string `gorm:"not null"`
	IsDream    bool   `gorm:"not null;default:false"`
	ClaimedBy  *string
	ClaimedAt  *time.Time
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (l TradeLink) Claimed() bool { return l.ClaimedBy != nil }

// AdminLink grants currency. UsesRemaining nil means unlimited.
type AdminLink struct {
	ID                string `gorm:"primaryKey"`
	Code              string `gorm:"uniqueIndex;not null"`
	CreatedBy         string
	SoulAmount        int64
	DreamPointsAmount int64
	UsesRemaining     *int64
	ClaimCount        int64     `gorm:"not null;default:0"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
}

// Exhausted reports whether the cap is reached.
func (l AdminLink) Exhausted() bool {
	return l.UsesRemaining != nil && l.ClaimCount >= *l.UsesRemaining
}

type AdminLinkClaim struct {
	LinkID    string    `gorm:"primaryKey"`
	UserID    string    `gorm:"primaryKey"`
	ClaimedAt time.Time `gorm:"autoCreateTime"`
}
