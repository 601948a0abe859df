package combat

import (
	"fmt"
	"strings"
	"time"
)

// Zones are the hit-quality bounds on the 0..100 timing bar. Bounds are inclusive.
type Zones struct {
	PerfectStart       float64
	PerfectSize        float64
	PerfectSizeWidened float64 // used when the thread ability is unlocked
	GoodStart          float64
	GoodEnd            float64
}

type Multipliers struct {
	Perfect float64
	Good    float64
	Miss    float64
}

// AbilityParams tune the passive ability effects.
type AbilityParams struct {
	DodgeChance     float64
	DamageReduction float64
	ReflectFraction float64
	DeathSaveHealth int
}

// Config is the rule set a battle runs under. A session keeps the Config it
// was created with even if the rules are reloaded mid-battle.
type Config struct {
	TickInterval time.Duration
	IdleTimeout  time.Duration // 0 disables; Clock aborts a battle with no attack for this long
	BarSpeed     float64
	PlayerHealth int

	PlayerJitter int // player damage adds Intn(PlayerJitter)
	EnemyJitter  int
	SoulJitter   int
	DreamJitter  int

	Zones       Zones
	Multipliers Multipliers
	Abilities   AbilityParams
}

func DefaultConfig() Config {
	return Config{
		TickInterval: 20 * time.Millisecond,
		IdleTimeout:  2 * time.Minute,
		BarSpeed:     2.75,
		PlayerHealth: 100,
		PlayerJitter: 10,
		EnemyJitter:  8,
		SoulJitter:   20,
		DreamJitter:  10,
		Zones: Zones{
			PerfectStart:       45,
			PerfectSize:        10,
			PerfectSizeWidened: 15,
			GoodStart:          35,
			GoodEnd:            65,
		},
		Multipliers: Multipliers{Perfect: 2.5, Good: 1.5, Miss: 0.5},
		Abilities: AbilityParams{
			DodgeChance:     0.15,
			DamageReduction: 0.20,
			ReflectFraction: 0.25,
			DeathSaveHealth: 30,
		},
	}
}

// Validate checks the config is playable.
func (c Config) Validate() error {
	var errs []string
	if c.TickInterval <= 0 {
		errs = append(errs, "tick interval must be > 0")
	}
	if c.IdleTimeout < 0 {
		errs = append(errs, "idle timeout must be >= 0")
	}
	if c.BarSpeed <= 0 || c.BarSpeed >= BarMax {
		errs = append(errs, "bar speed must be in (0,100)")
	}
	if c.PlayerHealth <= 0 {
		errs = append(errs, "player health must be > 0")
	}
	if c.PlayerJitter < 0 || c.EnemyJitter < 0 || c.SoulJitter < 0 || c.DreamJitter < 0 {
		errs = append(errs, "jitter ranges must be >= 0")
	}
	z := c.Zones
	if z.PerfectStart < BarMin || z.PerfectStart+z.PerfectSize > BarMax || z.PerfectSize <= 0 {
		errs = append(errs, "perfect zone must lie inside the bar")
	}
	if z.PerfectSizeWidened < z.PerfectSize || z.PerfectStart+z.PerfectSizeWidened > BarMax {
		errs = append(errs, "widened perfect zone must contain the perfect zone and lie inside the bar")
	}
	if z.GoodStart < BarMin || z.GoodEnd > BarMax || z.GoodStart > z.GoodEnd {
		errs = append(errs, "good zone must be an interval inside the bar")
	}
	m := c.Multipliers
	if m.Miss < 0 || m.Good < m.Miss || m.Perfect < m.Good {
		errs = append(errs, "multipliers must satisfy 0 <= miss <= good <= perfect")
	}
	a := c.Abilities
	if a.DodgeChance < 0 || a.DodgeChance > 1 || a.DamageReduction < 0 || a.DamageReduction > 1 ||
		a.ReflectFraction < 0 || a.ReflectFraction > 1 {
		errs = append(errs, "ability fractions must be in [0,1]")
	}
	if a.DeathSaveHealth <= 0 || a.DeathSaveHealth > c.PlayerHealth {
		errs = append(errs, "death save health must be in (0, player health]")
	}
	if len(errs) > 0 {
		return fmt.Errorf("combat config invalid: %s", strings.Join(errs, "; "))
	}
	return nil
}
