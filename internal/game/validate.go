package game

import (
	"fmt"
	"strings"

	"github.com/kinger55555/thenailcasino/internal/combat"
	"github.com/kinger55555/thenailcasino/internal/gacha"
)

// ValidateRaw checks semantic constraints of a RawRules and reports every
// violation at once.
func ValidateRaw(cfg RawRules) error {
	var errs []string

	if c := cfg.Combat; c != nil {
		if c.TickMs != nil && *c.TickMs <= 0 {
			errs = append(errs, "combat.tick_ms must be >= 1")
		}
		if c.IdleMs != nil && *c.IdleMs < 0 {
			errs = append(errs, "combat.idle_timeout_ms must be >= 0")
		}
		if c.BarSpeed != nil && (*c.BarSpeed <= 0 || *c.BarSpeed >= 100) {
			errs = append(errs, "combat.bar_speed must be in (0,100)")
		}
		if c.PlayerHealth != nil && *c.PlayerHealth <= 0 {
			errs = append(errs, "combat.player_health must be >= 1")
		}
		for name, v := range map[string]*int{
			"player_jitter": c.PlayerJitter, "enemy_jitter": c.EnemyJitter,
			"soul_jitter": c.SoulJitter, "dream_jitter": c.DreamJitter,
		} {
			if v != nil && *v < 0 {
				errs = append(errs, fmt.Sprintf("combat.%s must be >= 0", name))
			}
		}
		if c.ModifierLevel != nil && *c.ModifierLevel < 0 {
			errs = append(errs, "combat.modifier_level must be >= 0")
		}
		if z := c.Zones; z != nil {
			for name, v := range map[string]*float64{
				"perfect_start": z.PerfectStart, "perfect_size": z.PerfectSize,
				"perfect_size_widened": z.PerfectSizeWidened, "good_start": z.GoodStart, "good_end": z.GoodEnd,
			} {
				if v != nil && (*v < combat.BarMin || *v > combat.BarMax) {
					errs = append(errs, fmt.Sprintf("combat.zones.%s must be in [0,100]", name))
				}
			}
		}
		if m := c.Multipliers; m != nil {
			for name, v := range map[string]*float64{"perfect": m.Perfect, "good": m.Good, "miss": m.Miss} {
				if v != nil && *v < 0 {
					errs = append(errs, fmt.Sprintf("combat.multipliers.%s must be >= 0", name))
				}
			}
		}
	}

	if a := cfg.Abilities; a != nil {
		for name, v := range map[string]*float64{
			"dodge_chance": a.DodgeChance, "damage_reduction": a.DamageReduction, "reflect_fraction": a.ReflectFraction,
		} {
			if v != nil && (*v < 0 || *v > 1) {
				errs = append(errs, fmt.Sprintf("abilities.%s must be in [0,1]", name))
			}
		}
		if a.DeathSaveHealth != nil && *a.DeathSaveHealth <= 0 {
			errs = append(errs, "abilities.death_save_health must be >= 1")
		}
	}

	if l := cfg.Loot; l != nil {
		if l.BaseWeight != nil && *l.BaseWeight < 1 {
			errs = append(errs, "loot.base_weight must be >= 1")
		}
		if l.Decay != nil && *l.Decay < 1 {
			errs = append(errs, "loot.decay must be >= 1")
		}
		if l.BonusChance != nil && (*l.BonusChance < 0 || *l.BonusChance > 1) {
			errs = append(errs, "loot.bonus_chance must be in [0,1]")
		}
		if l.StripLength != nil && l.StripOffset != nil {
			g := gacha.StripGeometry{Length: *l.StripLength, WinnerOffset: *l.StripOffset}
			if err := g.Validate(); err != nil {
				errs = append(errs, "loot."+err.Error())
			}
		}
	}

	if e := cfg.Economy; e != nil {
		if e.TradeCodeLength != nil && *e.TradeCodeLength < 6 {
			errs = append(errs, "economy.trade_code_length must be >= 6")
		}
		if e.AdminCodeLength != nil && *e.AdminCodeLength < 6 {
			errs = append(errs, "economy.admin_code_length must be >= 6")
		}
		if (e.StartingSoul != nil && *e.StartingSoul < 0) || (e.StartingMasks != nil && *e.StartingMasks < 0) {
			errs = append(errs, "economy starting balances must be >= 0")
		}
	}

	if len(cfg.Difficulty) > 0 {
		if err := combat.Presets(cfg.Difficulty).Validate(); err != nil {
			errs = append(errs, "difficulty: "+err.Error())
		}
	}

	for id, b := range cfg.Bosses {
		if b.Grants != "" && !combat.Ability(b.Grants).Valid() {
			errs = append(errs, fmt.Sprintf("bosses.%s.grants: unknown ability %q", id, b.Grants))
		}
		if b.Strikes != nil && *b.Strikes < 0 {
			errs = append(errs, fmt.Sprintf("bosses.%s.strikes must be >= 0", id))
		}
		if b.TeleportChance != nil && (*b.TeleportChance < 0 || *b.TeleportChance > 1) {
			errs = append(errs, fmt.Sprintf("bosses.%s.teleport_chance must be in [0,1]", id))
		}
	}

	ids := map[string]bool{}
	orders := map[int]bool{}
	for i, n := range cfg.Catalog {
		switch {
		case n.ID == "":
			errs = append(errs, fmt.Sprintf("catalog[%d].id is required", i))
		case ids[n.ID]:
			errs = append(errs, fmt.Sprintf("catalog[%d]: duplicate id %q", i, n.ID))
		}
		ids[n.ID] = true
		if !n.Rarity.Valid() {
			errs = append(errs, fmt.Sprintf("catalog[%d].rarity %q is unknown", i, n.Rarity))
		}
		if n.OrderIndex < 1 || orders[n.OrderIndex] {
			errs = append(errs, fmt.Sprintf("catalog[%d].order_index must be unique and >= 1", i))
		}
		orders[n.OrderIndex] = true
		if n.BaseDamage < 0 || n.SellValue < 0 || n.DreamSellValue < 0 {
			errs = append(errs, fmt.Sprintf("catalog[%d]: damage and sell values must be >= 0", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("rules validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
