package combat

import (
	"fmt"
	"sort"
)

// Preset is the enemy stat block for one difficulty level.
type Preset struct {
	Level       int    `yaml:"level"`
	Label       string `yaml:"label"`
	EnemyHealth int    `yaml:"enemy_health"`
	EnemyDamage int    `yaml:"enemy_damage"`
	SoulReward  int64  `yaml:"soul_reward"`
	DreamReward int64  `yaml:"dream_reward"`
}

// Presets is ordered by level.
type Presets []Preset

func DefaultPresets() Presets {
	return Presets{
		{Level: 1, Label: "Easy", EnemyHealth: 80, EnemyDamage: 10, SoulReward: 40, DreamReward: 5},
		{Level: 2, Label: "Normal", EnemyHealth: 100, EnemyDamage: 15, SoulReward: 75, DreamReward: 10},
		{Level: 3, Label: "Hard", EnemyHealth: 130, EnemyDamage: 20, SoulReward: 120, DreamReward: 18},
		{Level: 4, Label: "Very Hard", EnemyHealth: 170, EnemyDamage: 25, SoulReward: 180, DreamReward: 30},
		{Level: 5, Label: "Extreme", EnemyHealth: 220, EnemyDamage: 35, SoulReward: 300, DreamReward: 50},
	}
}

// For returns the preset for level.
func (ps Presets) For(level int) (Preset, bool) {
	for _, p := range ps {
		if p.Level == level {
			return p, true
		}
	}
	return Preset{}, false
}

// Validate requires levels 1..n without gaps and stats that never decrease.
func (ps Presets) Validate() error {
	if len(ps) == 0 {
		return fmt.Errorf("no difficulty presets")
	}
	sorted := append(Presets(nil), ps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Level < sorted[j].Level })
	for i, p := range sorted {
		if p.Level != i+1 {
			return fmt.Errorf("difficulty levels must be 1..%d without gaps, got level %d", len(ps), p.Level)
		}
		if p.EnemyHealth <= 0 || p.EnemyDamage < 0 || p.SoulReward < 0 || p.DreamReward < 0 {
			return fmt.Errorf("difficulty %d: stats must be positive", p.Level)
		}
		if i == 0 {
			continue
		}
		prev := sorted[i-1]
		if p.EnemyHealth < prev.EnemyHealth || p.EnemyDamage < prev.EnemyDamage ||
			p.SoulReward < prev.SoulReward || p.DreamReward < prev.DreamReward {
			return fmt.Errorf("difficulty %d: stats must not decrease from level %d", p.Level, prev.Level)
		}
	}
	return nil
}

// BattleState is the perturbation set produced by the modifier stack.
// Pulsing and ReactionWindow are presentation hints.
type BattleState struct {
	BarSpeed       float64  `json:"bar_speed"`
	ReactionWindow float64  `json:"reaction_window"`
	Reverse        bool     `json:"reverse"`
	Pulsing        bool     `json:"pulsing"`
	Applied        []string `json:"applied,omitempty"`
}

func BaseBattleState() BattleState {
	return BattleState{BarSpeed: 1.0, ReactionWindow: 60}
}

// Modifier is one named perturbation.
type Modifier struct {
	Name  string
	Apply func(*BattleState)
}

// Modifiers in catalog order. Level n applies the first n.
var Modifiers = []Modifier{
	{Name: "Fast", Apply: func(s *BattleState) { s.BarSpeed *= 1.3 }},
	{Name: "Reverse", Apply: func(s *BattleState) { s.Reverse = true }},
	{Name: "Pulse", Apply: func(s *BattleState) { s.Pulsing = true }},
	{Name: "Blur", Apply: func(s *BattleState) { s.ReactionWindow *= 0.8 }},
}

// BattleStateFor stacks min(level, len(Modifiers)) modifiers onto the base state.
func BattleStateFor(level int) BattleState {
	s := BaseBattleState()
	n := min(max(level, 0), len(Modifiers))
	for _, m := range Modifiers[:n] {
		m.Apply(&s)
		s.Applied = append(s.Applied, m.Name)
	}
	return s
}
