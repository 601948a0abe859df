package gacha

import (
	"fmt"
	"math"
	"sort"

	"github.com/kinger55555/thenailcasino/internal/domain"
	"github.com/kinger55555/thenailcasino/internal/random"
)

// TrialGoal selects what the simulation measures.
type TrialGoal string

const (
	// One case per trial; report empirical frequency per nail.
	GoalFrequency TrialGoal = "frequency"
	// Cases opened until the first nail of Target rarity or better.
	GoalFirstRarity TrialGoal = "first_rarity"
)

// SimParams describes one simulation run.
type SimParams struct {
	Catalog []domain.NailDefinition
	Tier    CaseTier
	Loot    LootParams
	Target  domain.Rarity // GoalFirstRarity only
	// Cap per GoalFirstRarity trial; <=0 means 10000.
	MaxDraws int
}

// Stats summarizes integer samples.
type Stats struct {
	Mean   float64
	Var    float64
	StdDev float64
	P50    float64
	P90    float64
	P99    float64
	// Optional: raw samples if caller needs histograms/exports
	Samples []int `json:"-"`
}

// ItemFrequency compares the observed share of a nail with its table probability.
type ItemFrequency struct {
	NailID    string  `json:"nail_id"`
	Count     int     `json:"count"`
	Expected  float64 `json:"expected"`
	Observed  float64 `json:"observed"`
	Deviation float64 `json:"deviation"`
}

// Report is the result of RunMonteCarlo.
type Report struct {
	Goal         TrialGoal       `json:"goal"`
	Trials       int             `json:"trials"`
	Frequencies  []ItemFrequency `json:"frequencies,omitempty"`
	BonusRate    float64         `json:"bonus_rate"`
	MaxDeviation float64         `json:"max_deviation"`
	Stats        Stats           `json:"stats"`
}

var rarityRank = map[domain.Rarity]int{
	domain.Common: 0, domain.Uncommon: 1, domain.Rare: 2, domain.Epic: 3, domain.Legendary: 4,
}

// calcStats computes mean/variance/percentiles for integer samples.
func calcStats(xs []int) Stats {
	n := len(xs)
	if n == 0 {
		return Stats{}
	}
	var sum float64
	for _, v := range xs {
		sum += float64(v)
	}
	mean := sum / float64(n)

	// variance (population)
	var acc float64
	for _, v := range xs {
		d := float64(v) - mean
		acc += d * d
	}
	variance := acc / float64(n)

	cp := append([]int(nil), xs...)
	sort.Ints(cp)
	percentile := func(p float64) float64 {
		if n == 1 || p <= 0 {
			return float64(cp[0])
		}
		if p >= 1 {
			return float64(cp[n-1])
		}
		pos := p * float64(n-1)
		i := int(math.Floor(pos))
		f := pos - float64(i)
		if i+1 >= n {
			return float64(cp[i])
		}
		return float64(cp[i])*(1-f) + float64(cp[i+1])*f
	}

	return Stats{
		Mean:    mean,
		Var:     variance,
		StdDev:  math.Sqrt(variance),
		P50:     percentile(0.50),
		P90:     percentile(0.90),
		P99:     percentile(0.99),
		Samples: xs,
	}
}

// RunMonteCarlo repeats trials and summarizes them. progress, if set, is called
// after every trial with the number of finished trials.
func RunMonteCarlo(p SimParams, goal TrialGoal, trials int, rng random.Source, progress func(int)) (Report, error) {
	rep := Report{Goal: goal, Trials: trials}
	if trials <= 0 {
		return rep, nil
	}
	if p.Loot == (LootParams{}) {
		p.Loot = DefaultLootParams()
	}
	if err := p.Loot.Validate(); err != nil {
		return rep, err
	}
	res := NewResolver(p.Loot, rng)

	switch goal {
	case GoalFrequency:
		table := WeightTable(p.Catalog, p.Tier, p.Loot)
		counts := make(map[string]int, len(table))
		bonuses := 0
		for i := range trials {
			nail, bonus, err := res.Draw(p.Catalog, p.Tier)
			if err != nil {
				return rep, err
			}
			counts[nail.ID]++
			if bonus {
				bonuses++
			}
			if progress != nil {
				progress(i + 1)
			}
		}
		for _, e := range table {
			obs := float64(counts[e.NailID]) / float64(trials)
			dev := math.Abs(obs - e.Probability)
			rep.Frequencies = append(rep.Frequencies, ItemFrequency{
				NailID: e.NailID, Count: counts[e.NailID], Expected: e.Probability, Observed: obs, Deviation: dev,
			})
			rep.MaxDeviation = max(rep.MaxDeviation, dev)
		}
		rep.BonusRate = float64(bonuses) / float64(trials)

	case GoalFirstRarity:
		target, ok := rarityRank[p.Target]
		if !ok {
			return rep, fmt.Errorf("unknown target rarity %q", p.Target)
		}
		limit := p.MaxDraws
		if limit <= 0 {
			limit = 10000
		}
		samples := make([]int, trials)
		for i := range trials {
			draws := 0
			for draws < limit {
				draws++
				nail, _, err := res.Draw(p.Catalog, p.Tier)
				if err != nil {
					return rep, err
				}
				if rarityRank[nail.Rarity] >= target {
					break
				}
			}
			samples[i] = draws
			if progress != nil {
				progress(i + 1)
			}
		}
		rep.Stats = calcStats(samples)

	default:
		return rep, fmt.Errorf("unknown simulation goal %q", goal)
	}
	return rep, nil
}
