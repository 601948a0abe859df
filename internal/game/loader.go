package game

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/kinger55555/thenailcasino/internal/gacha"
	"github.com/kinger55555/thenailcasino/internal/pricing"
)

//go:embed rules/*.yaml
var builtin embed.FS

const defaultProfile = "default"

// Paths locates rule files on disk.
type Paths struct {
	BaseDir string // e.g. /etc/thenailcasino/rules
}

func (p Paths) ProfilePath(profile string) string {
	return filepath.Join(p.BaseDir, profile+".yaml")
}

func (p Paths) OverridePath() string {
	return filepath.Join(p.BaseDir, "override.yaml")
}

// Loader reads YAML rules and merges default → profile → override.
// The default layer is always the embedded one; a profile is read from
// BaseDir first and from the embedded set otherwise.
type Loader struct {
	paths Paths

	mu    sync.RWMutex
	cache map[string]RawRules // key: profile
}

// NewLoader creates a rules loader. baseDir may be empty.
func NewLoader(baseDir string) *Loader {
	return &Loader{
		paths: Paths{BaseDir: baseDir},
		cache: make(map[string]RawRules),
	}
}

// LoadMerged loads and merges default → profile → override.
// It returns the merged RawRules (without normalization).
func (l *Loader) LoadMerged(profile string) (RawRules, error) {
	if profile == "" {
		profile = defaultProfile
	}
	l.mu.RLock()
	if cfg, ok := l.cache[profile]; ok {
		l.mu.RUnlock()
		return cfg, nil
	}
	l.mu.RUnlock()

	def, err := readBuiltin(defaultProfile)
	if err != nil {
		return RawRules{}, fmt.Errorf("read default: %w", err)
	}
	merged := def
	if profile != defaultProfile {
		prof, err := l.readProfile(profile)
		if err != nil {
			return RawRules{}, fmt.Errorf("read profile %s: %w", profile, err)
		}
		merged = mergeRaw(merged, prof)
	}
	if l.paths.BaseDir != "" {
		over, err := readYAML(l.paths.OverridePath()) // override file optional
		if err != nil {
			return RawRules{}, fmt.Errorf("read override: %w", err)
		}
		merged = mergeRaw(merged, over)
	}

	l.mu.Lock()
	l.cache[profile] = merged
	l.mu.Unlock()
	return merged, nil
}

// Load merges, validates and normalizes the rules of profile.
func (l *Loader) Load(profile string) (*Rules, error) {
	raw, err := l.LoadMerged(profile)
	if err != nil {
		return nil, err
	}
	if err := ValidateRaw(raw); err != nil {
		return nil, err
	}
	return Normalize(raw)
}

// Invalidate clears loader's cache. Call after hot-reload detects changes.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]RawRules)
}

// WatchPaths lists the files a profile depends on.
func (l *Loader) WatchPaths(profile string) []string {
	if l.paths.BaseDir == "" {
		return nil
	}
	out := []string{l.paths.OverridePath()}
	if profile != "" && profile != defaultProfile {
		out = append(out, l.paths.ProfilePath(profile))
	}
	return out
}

func (l *Loader) readProfile(profile string) (RawRules, error) {
	if l.paths.BaseDir != "" {
		b, err := os.ReadFile(l.paths.ProfilePath(profile))
		if err == nil {
			return decode(b)
		}
		if !errors.Is(err, os.ErrNotExist) {
			return RawRules{}, err
		}
	}
	raw, err := readBuiltin(profile)
	if errors.Is(err, fs.ErrNotExist) {
		return RawRules{}, fmt.Errorf("unknown rules profile %q", profile)
	}
	return raw, err
}

func readBuiltin(profile string) (RawRules, error) {
	b, err := builtin.ReadFile("rules/" + profile + ".yaml")
	if err != nil {
		return RawRules{}, err
	}
	return decode(b)
}

// readYAML loads a YAML file into RawRules. Missing files return zero cfg, no error.
func readYAML(path string) (RawRules, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return RawRules{}, nil
		}
		return RawRules{}, err
	}
	return decode(b)
}

func decode(b []byte) (RawRules, error) {
	var cfg RawRules
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return RawRules{}, err
	}
	return cfg, nil
}

// mergeRaw performs a deep merge: 'b' overrides 'a' where set.
// Lists (difficulty, catalog, exchange) are replaced whole; maps merge by key.
func mergeRaw(a, b RawRules) RawRules {
	out := a

	if b.Version != "" {
		out.Version = b.Version
	}
	if b.Notes != "" {
		out.Notes = b.Notes
	}

	if b.Combat != nil {
		c := CombatRaw{}
		if out.Combat != nil {
			c = *out.Combat
		}
		bc := b.Combat
		override(&c.TickMs, bc.TickMs)
		override(&c.IdleMs, bc.IdleMs)
		override(&c.BarSpeed, bc.BarSpeed)
		override(&c.PlayerHealth, bc.PlayerHealth)
		override(&c.PlayerJitter, bc.PlayerJitter)
		override(&c.EnemyJitter, bc.EnemyJitter)
		override(&c.SoulJitter, bc.SoulJitter)
		override(&c.DreamJitter, bc.DreamJitter)
		override(&c.ModifierLevel, bc.ModifierLevel)
		if bc.Zones != nil {
			z := ZonesRaw{}
			if c.Zones != nil {
				z = *c.Zones
			}
			override(&z.PerfectStart, bc.Zones.PerfectStart)
			override(&z.PerfectSize, bc.Zones.PerfectSize)
			override(&z.PerfectSizeWidened, bc.Zones.PerfectSizeWidened)
			override(&z.GoodStart, bc.Zones.GoodStart)
			override(&z.GoodEnd, bc.Zones.GoodEnd)
			c.Zones = &z
		}
		if bc.Multipliers != nil {
			m := MultRaw{}
			if c.Multipliers != nil {
				m = *c.Multipliers
			}
			override(&m.Perfect, bc.Multipliers.Perfect)
			override(&m.Good, bc.Multipliers.Good)
			override(&m.Miss, bc.Multipliers.Miss)
			c.Multipliers = &m
		}
		out.Combat = &c
	}

	if b.Abilities != nil {
		ab := AbilitiesRaw{}
		if out.Abilities != nil {
			ab = *out.Abilities
		}
		override(&ab.DodgeChance, b.Abilities.DodgeChance)
		override(&ab.DamageReduction, b.Abilities.DamageReduction)
		override(&ab.ReflectFraction, b.Abilities.ReflectFraction)
		override(&ab.DeathSaveHealth, b.Abilities.DeathSaveHealth)
		out.Abilities = &ab
	}

	if b.Loot != nil {
		lt := LootRaw{}
		if out.Loot != nil {
			lt = *out.Loot
		}
		override(&lt.BaseWeight, b.Loot.BaseWeight)
		override(&lt.Decay, b.Loot.Decay)
		override(&lt.BonusChance, b.Loot.BonusChance)
		override(&lt.StripLength, b.Loot.StripLength)
		override(&lt.StripOffset, b.Loot.StripOffset)
		out.Loot = &lt
	}

	if b.Economy != nil {
		e := EconomyRaw{}
		if out.Economy != nil {
			e = *out.Economy
		}
		if len(b.Economy.Cases) > 0 {
			cases := make(map[gacha.CaseTier]pricing.Price, len(e.Cases)+len(b.Economy.Cases))
			maps.Copy(cases, e.Cases)
			maps.Copy(cases, b.Economy.Cases)
			e.Cases = cases
		}
		override(&e.Mask, b.Economy.Mask)
		if len(b.Economy.Exchange) > 0 {
			e.Exchange = append(e.Exchange[:0:0], b.Economy.Exchange...)
		}
		override(&e.TradeCodeLength, b.Economy.TradeCodeLength)
		override(&e.AdminCodeLength, b.Economy.AdminCodeLength)
		override(&e.StartingSoul, b.Economy.StartingSoul)
		override(&e.StartingMasks, b.Economy.StartingMasks)
		out.Economy = &e
	}

	if len(b.Difficulty) > 0 {
		out.Difficulty = append(out.Difficulty[:0:0], b.Difficulty...)
	}
	if len(b.Bosses) > 0 {
		bosses := make(map[string]BossRaw, len(out.Bosses)+len(b.Bosses))
		maps.Copy(bosses, out.Bosses)
		maps.Copy(bosses, b.Bosses)
		out.Bosses = bosses
	}
	if len(b.Catalog) > 0 {
		out.Catalog = append(out.Catalog[:0:0], b.Catalog...)
	}
	return out
}

// override replaces *dst with a copy of src when src is set.
func override[T any](dst **T, src *T) {
	if src == nil {
		return
	}
	v := *src
	*dst = &v
}
