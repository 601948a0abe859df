package domain

import "time"

type Rarity string

const (
	Common    Rarity = "common"
	Uncommon  Rarity = "uncommon"
	Rare      Rarity = "rare"
	Epic      Rarity = "epic"
	Legendary Rarity = "legendary"
)

func (r Rarity) Valid() bool {
	switch r {
	case Common, Uncommon, Rare, Epic, Legendary:
		return true
	}
	return false
}

// NailDefinition is catalog data, read-only to players.
type NailDefinition struct {
	ID             string `gorm:"primaryKey" yaml:"id" json:"id"`
	Name           string `yaml:"name" json:"name"`
	NameRu         string `yaml:"name_ru" json:"name_ru"`
	Rarity         Rarity `yaml:"rarity" json:"rarity"`
	BaseDamage     int    `gorm:"not null" yaml:"base_damage" json:"base_damage"`
	SellValue      int64  `gorm:"not null" yaml:"sell_value" json:"sell_value"`
	DreamSellValue int64  `gorm:"not null" yaml:"dream_sell_value" json:"dream_sell_value"`
	OrderIndex     int    `gorm:"not null;index" yaml:"order_index" json:"order_index"`
}

// OwnedNail joins a definition to a profile.
type OwnedNail struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	NailID     string    `gorm:"index;not null" json:"nail_id"`
	UserID     string    `gorm:"index;not null" json:"user_id"`
	IsDream    bool      `gorm:"not null;default:false" json:"is_dream"`
	AcquiredAt time.Time `gorm:"autoCreateTime" json:"acquired_at"`
}

// CombatRecord is append-only.
type CombatRecord struct {
	ID                string    `gorm:"primaryKey" json:"id"`
	UserID            string    `gorm:"index;not null" json:"-"`
	NailID            string    `json:"nail_id"`
	Won               bool      `json:"won"`
	IsDream           bool      `json:"is_dream"`
	SoulGained        int64     `json:"soul_gained"`
	DreamPointsGained int64     `json:"dream_points_gained"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ConversionRecord audits reverse currency conversions. Append-only.
type ConversionRecord struct {
	ID        string   `gorm:"primaryKey"`
	UserID    string   `gorm:"index;not null"`
	From      Currency `gorm:"column:from_currency"`
	To        Currency `gorm:"column:to_currency"`
	Debited   int64
	Credited  int64
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
