package game

import (
	"github.com/kinger55555/thenailcasino/internal/combat"
	"github.com/kinger55555/thenailcasino/internal/domain"
	"github.com/kinger55555/thenailcasino/internal/gacha"
	"github.com/kinger55555/thenailcasino/internal/pricing"
)

// RawRules is the YAML rules document. Pointer fields tell "unset" from zero
// so layers can be merged.
type RawRules struct {
	Version    string                  `yaml:"version"`
	Notes      string                  `yaml:"notes,omitempty"`
	Combat     *CombatRaw              `yaml:"combat,omitempty"`
	Abilities  *AbilitiesRaw           `yaml:"abilities,omitempty"`
	Loot       *LootRaw                `yaml:"loot,omitempty"`
	Economy    *EconomyRaw             `yaml:"economy,omitempty"`
	Difficulty []combat.Preset         `yaml:"difficulty,omitempty"`
	Bosses     map[string]BossRaw      `yaml:"bosses,omitempty"`
	Catalog    []domain.NailDefinition `yaml:"catalog,omitempty"`
}

type CombatRaw struct {
	TickMs       *int      `yaml:"tick_ms"`
	IdleMs       *int      `yaml:"idle_timeout_ms"`
	BarSpeed     *float64  `yaml:"bar_speed"`
	PlayerHealth *int      `yaml:"player_health"`
	PlayerJitter *int      `yaml:"player_jitter"`
	EnemyJitter  *int      `yaml:"enemy_jitter"`
	SoulJitter   *int      `yaml:"soul_jitter"`
	DreamJitter  *int      `yaml:"dream_jitter"`
	Zones        *ZonesRaw `yaml:"zones,omitempty"`
	Multipliers  *MultRaw  `yaml:"multipliers,omitempty"`

	// modifier stack applied to every battle
	ModifierLevel *int `yaml:"modifier_level"`
}

type ZonesRaw struct {
	PerfectStart       *float64 `yaml:"perfect_start"`
	PerfectSize        *float64 `yaml:"perfect_size"`
	PerfectSizeWidened *float64 `yaml:"perfect_size_widened"`
	GoodStart          *float64 `yaml:"good_start"`
	GoodEnd            *float64 `yaml:"good_end"`
}

type MultRaw struct {
	Perfect *float64 `yaml:"perfect"`
	Good    *float64 `yaml:"good"`
	Miss    *float64 `yaml:"miss"`
}

type AbilitiesRaw struct {
	DodgeChance     *float64 `yaml:"dodge_chance"`
	DamageReduction *float64 `yaml:"damage_reduction"`
	ReflectFraction *float64 `yaml:"reflect_fraction"`
	DeathSaveHealth *int     `yaml:"death_save_health"`
}

type LootRaw struct {
	BaseWeight  *float64 `yaml:"base_weight"`
	Decay       *float64 `yaml:"decay"`
	BonusChance *float64 `yaml:"bonus_chance"`
	StripLength *int     `yaml:"strip_length"`
	StripOffset *int     `yaml:"strip_winner_offset"`
}

type EconomyRaw struct {
	Cases           map[gacha.CaseTier]pricing.Price `yaml:"cases,omitempty"`
	Mask            *pricing.Price                   `yaml:"mask,omitempty"`
	Exchange        []pricing.Rate                   `yaml:"exchange,omitempty"`
	TradeCodeLength *int                             `yaml:"trade_code_length"`
	AdminCodeLength *int                             `yaml:"admin_code_length"`
	StartingSoul    *int64                           `yaml:"starting_soul"`
	StartingMasks   *int64                           `yaml:"starting_masks"`
}

type BossRaw struct {
	Grants                 string   `yaml:"grants"`
	PlayerDamageMultiplier *float64 `yaml:"player_damage_multiplier"`
	MissCounterMultiplier  *float64 `yaml:"miss_counter_multiplier"`
	EnemyDamageMultiplier  *float64 `yaml:"enemy_damage_multiplier"`
	Strikes                *int     `yaml:"strikes"`
	StrikeFraction         *float64 `yaml:"strike_fraction"`
	TeleportChance         *float64 `yaml:"teleport_chance"`
}

// Rules are the normalized parameters the engine and services run on.
// A Rules value is immutable once published by a Provider.
type Rules struct {
	Version       string
	Combat        combat.Config
	ModifierLevel int
	Presets       combat.Presets
	Bosses        combat.Bosses
	Loot          gacha.LootParams
	Strip         gacha.StripGeometry
	Prices        pricing.Catalog
	Catalog       []domain.NailDefinition

	TradeCodeLength int
	AdminCodeLength int

	// balances and the lowest catalog nail granted to a new profile
	StartingSoul  int64
	StartingMasks int64
}

// Battle returns the state modifiers every battle starts with.
func (r *Rules) Battle() combat.BattleState { return combat.BattleStateFor(r.ModifierLevel) }
