package gacha

import (
	"fmt"
	"math"
	"sort"

	"github.com/kinger55555/thenailcasino/internal/domain"
	"github.com/kinger55555/thenailcasino/internal/errs"
	"github.com/kinger55555/thenailcasino/internal/random"
)

// CaseTier selects the candidate pool and whether the bonus variant can roll.
type CaseTier string

const (
	TierBasic     CaseTier = "basic"
	TierLegendary CaseTier = "legendary" // excludes the lowest order_index item
	TierNoBonus   CaseTier = "no_bonus"  // legendary pool, bonus variant never rolls
)

func (t CaseTier) Valid() bool {
	switch t {
	case TierBasic, TierLegendary, TierNoBonus:
		return true
	}
	return false
}

func (t CaseTier) AllowsBonus() bool { return t != TierNoBonus }

// LootParams are the loot rules. Zero fields fall back to the defaults.
type LootParams struct {
	BaseWeight  float64 `yaml:"base_weight"`
	Decay       float64 `yaml:"decay"`
	BonusChance float64 `yaml:"bonus_chance"`
}

func DefaultLootParams() LootParams {
	return LootParams{BaseWeight: 100, Decay: 1.6, BonusChance: 0.10}
}

func (p LootParams) Validate() error {
	if p.BaseWeight < 1 {
		return fmt.Errorf("loot base weight must be >= 1")
	}
	if p.Decay < 1 {
		return fmt.Errorf("loot decay must be >= 1")
	}
	if p.BonusChance < 0 || p.BonusChance > 1 {
		return fmt.Errorf("loot bonus chance must be in [0,1]")
	}
	return nil
}

// Weight is max(1, round(base / decay^(orderIndex-1))).
func Weight(orderIndex int, base, decay float64) int {
	w := int(math.Round(base / math.Pow(decay, float64(orderIndex-1))))
	return max(1, w)
}

// Pool returns the tier's candidates sorted by order_index.
func Pool(catalog []domain.NailDefinition, tier CaseTier) []domain.NailDefinition {
	sorted := append([]domain.NailDefinition(nil), catalog...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].OrderIndex < sorted[j].OrderIndex })
	if tier == TierBasic || len(sorted) == 0 {
		return sorted
	}
	lowest := sorted[0].OrderIndex
	out := sorted[:0:0]
	for _, n := range sorted {
		if n.OrderIndex != lowest {
			out = append(out, n)
		}
	}
	return out
}

// Resolver draws case results. It holds no state besides its rules and RNG.
type Resolver struct {
	Params LootParams
	RNG    random.Source
}

func NewResolver(p LootParams, rng random.Source) *Resolver {
	if rng == nil {
		rng = random.Default()
	}
	return &Resolver{Params: p, RNG: rng}
}

// Draw picks one nail from the tier's pool by weight and rolls the bonus variant.
func (r *Resolver) Draw(catalog []domain.NailDefinition, tier CaseTier) (domain.NailDefinition, bool, error) {
	const op = "gacha.Draw"
	if !tier.Valid() {
		return domain.NailDefinition{}, false, errs.Validation(op, fmt.Sprintf("unknown case tier %q", tier))
	}
	pool := Pool(catalog, tier)
	if len(pool) == 0 {
		return domain.NailDefinition{}, false, errs.Configuration(op, "no nails available for case tier "+string(tier))
	}
	nail := r.pick(pool)

	bonus := false
	if tier.AllowsBonus() {
		var err error
		if bonus, err = random.Chance(r.Params.BonusChance, r.RNG); err != nil {
			return domain.NailDefinition{}, false, errs.Configuration(op, err.Error())
		}
	}
	return nail, bonus, nil
}

// pick walks the pool subtracting weights until the remainder drops below zero.
func (r *Resolver) pick(pool []domain.NailDefinition) domain.NailDefinition {
	weights := make([]int, len(pool))
	total := 0
	for i, n := range pool {
		weights[i] = Weight(n.OrderIndex, r.Params.BaseWeight, r.Params.Decay)
		total += weights[i]
	}
	rem := r.RNG.Float64() * float64(total)
	for i, w := range weights {
		rem -= float64(w)
		if rem < 0 {
			return pool[i]
		}
	}
	return pool[len(pool)-1]
}
