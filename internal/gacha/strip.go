package gacha

import (
	"fmt"

	"github.com/kinger55555/thenailcasino/internal/domain"
	"github.com/kinger55555/thenailcasino/internal/errs"
	"github.com/kinger55555/thenailcasino/internal/random"
)

// StripItem is one card of the reveal strip.
type StripItem struct {
	Nail    domain.NailDefinition `json:"nail"`
	IsBonus bool                  `json:"is_bonus"`
}

// StripGeometry places the winner WinnerOffset slots before the end.
type StripGeometry struct {
	Length       int `yaml:"length"`
	WinnerOffset int `yaml:"winner_offset"`
}

func DefaultStripGeometry() StripGeometry { return StripGeometry{Length: 50, WinnerOffset: 5} }

func (g StripGeometry) Validate() error {
	if g.Length <= 0 {
		return fmt.Errorf("strip length must be > 0")
	}
	if g.WinnerOffset < 1 || g.WinnerOffset > g.Length {
		return fmt.Errorf("strip winner offset must be in [1,%d]", g.Length)
	}
	return nil
}

// WinnerIndex is the slot that holds the real result.
func (g StripGeometry) WinnerIndex() int { return g.Length - g.WinnerOffset }

// BuildStrip fills the strip with uniform decoys from pool, each with its own
// bonus roll, then writes the winner into its slot. The strip is display data only.
func BuildStrip(pool []domain.NailDefinition, winner domain.NailDefinition, isBonus bool,
	g StripGeometry, bonusChance float64, rng random.Source) ([]StripItem, int, error) {
	const op = "gacha.BuildStrip"
	if err := g.Validate(); err != nil {
		return nil, 0, errs.Validation(op, err.Error())
	}
	if rng == nil {
		rng = random.Default()
	}
	if len(pool) == 0 {
		pool = []domain.NailDefinition{winner}
	}

	items := make([]StripItem, g.Length)
	for i := range items {
		decoy := pool[random.Intn(len(pool), rng)]
		bonus, err := random.Chance(bonusChance, rng)
		if err != nil {
			return nil, 0, errs.Validation(op, err.Error())
		}
		items[i] = StripItem{Nail: decoy, IsBonus: bonus}
	}
	idx := g.WinnerIndex()
	items[idx] = StripItem{Nail: winner, IsBonus: isBonus}
	return items, idx, nil
}
