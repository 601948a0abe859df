package game

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kinger55555/thenailcasino/internal/combat"
	"github.com/kinger55555/thenailcasino/internal/domain"
	"github.com/kinger55555/thenailcasino/internal/gacha"
	"github.com/kinger55555/thenailcasino/internal/pricing"
)

// Normalize turns fully merged RawRules into Rules. Every field must be set,
// which holds for anything merged on top of the embedded default.
func Normalize(raw RawRules) (*Rules, error) {
	var missing []string
	need := func(ok bool, name string) {
		if !ok {
			missing = append(missing, name)
		}
	}
	c, a, l, e := raw.Combat, raw.Abilities, raw.Loot, raw.Economy
	need(c != nil && c.TickMs != nil && c.BarSpeed != nil && c.PlayerHealth != nil, "combat")
	need(c != nil && c.PlayerJitter != nil && c.EnemyJitter != nil && c.SoulJitter != nil && c.DreamJitter != nil, "combat jitter")
	need(c != nil && c.Zones != nil && c.Zones.PerfectStart != nil && c.Zones.PerfectSize != nil &&
		c.Zones.PerfectSizeWidened != nil && c.Zones.GoodStart != nil && c.Zones.GoodEnd != nil, "combat.zones")
	need(c != nil && c.Multipliers != nil && c.Multipliers.Perfect != nil && c.Multipliers.Good != nil &&
		c.Multipliers.Miss != nil, "combat.multipliers")
	need(a != nil && a.DodgeChance != nil && a.DamageReduction != nil && a.ReflectFraction != nil &&
		a.DeathSaveHealth != nil, "abilities")
	need(l != nil && l.BaseWeight != nil && l.Decay != nil && l.BonusChance != nil &&
		l.StripLength != nil && l.StripOffset != nil, "loot")
	need(e != nil && e.Mask != nil && len(e.Cases) > 0 && e.TradeCodeLength != nil && e.AdminCodeLength != nil, "economy")
	need(len(raw.Difficulty) > 0, "difficulty")
	need(len(raw.Catalog) > 0, "catalog")
	if len(missing) > 0 {
		return nil, fmt.Errorf("rules incomplete: missing %s", strings.Join(missing, ", "))
	}

	r := &Rules{
		Version: raw.Version,
		Combat: combat.Config{
			TickInterval: time.Duration(*c.TickMs) * time.Millisecond,
			BarSpeed:     *c.BarSpeed,
			PlayerHealth: *c.PlayerHealth,
			PlayerJitter: *c.PlayerJitter,
			EnemyJitter:  *c.EnemyJitter,
			SoulJitter:   *c.SoulJitter,
			DreamJitter:  *c.DreamJitter,
			Zones: combat.Zones{
				PerfectStart:       *c.Zones.PerfectStart,
				PerfectSize:        *c.Zones.PerfectSize,
				PerfectSizeWidened: *c.Zones.PerfectSizeWidened,
				GoodStart:          *c.Zones.GoodStart,
				GoodEnd:            *c.Zones.GoodEnd,
			},
			Multipliers: combat.Multipliers{
				Perfect: *c.Multipliers.Perfect,
				Good:    *c.Multipliers.Good,
				Miss:    *c.Multipliers.Miss,
			},
			Abilities: combat.AbilityParams{
				DodgeChance:     *a.DodgeChance,
				DamageReduction: *a.DamageReduction,
				ReflectFraction: *a.ReflectFraction,
				DeathSaveHealth: *a.DeathSaveHealth,
			},
		},
		Presets: append(combat.Presets(nil), raw.Difficulty...),
		Bosses:  make(combat.Bosses, len(raw.Bosses)),
		Loot: gacha.LootParams{
			BaseWeight:  *l.BaseWeight,
			Decay:       *l.Decay,
			BonusChance: *l.BonusChance,
		},
		Strip: gacha.StripGeometry{Length: *l.StripLength, WinnerOffset: *l.StripOffset},
		Prices: pricing.Catalog{
			Cases:    make(map[gacha.CaseTier]pricing.Price, len(e.Cases)),
			Mask:     *e.Mask,
			Exchange: append([]pricing.Rate(nil), e.Exchange...),
		},
		Catalog:         append([]domain.NailDefinition(nil), raw.Catalog...),
		TradeCodeLength: *e.TradeCodeLength,
		AdminCodeLength: *e.AdminCodeLength,
	}
	if c.IdleMs != nil {
		r.Combat.IdleTimeout = time.Duration(*c.IdleMs) * time.Millisecond
	}
	setIf(&r.StartingSoul, e.StartingSoul)
	setIf(&r.StartingMasks, e.StartingMasks)
	if c.ModifierLevel != nil {
		r.ModifierLevel = *c.ModifierLevel
	}
	for tier, p := range e.Cases {
		r.Prices.Cases[tier] = p
	}
	for id, b := range raw.Bosses {
		p := combat.BossProfile{ID: id, Grants: combat.Ability(b.Grants)}
		setIf(&p.PlayerDamageMultiplier, b.PlayerDamageMultiplier)
		setIf(&p.MissCounterMultiplier, b.MissCounterMultiplier)
		setIf(&p.EnemyDamageMultiplier, b.EnemyDamageMultiplier)
		setIf(&p.Strikes, b.Strikes)
		setIf(&p.StrikeFraction, b.StrikeFraction)
		setIf(&p.TeleportChance, b.TeleportChance)
		r.Bosses[id] = p
	}

	var errs []string
	if err := r.Combat.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := r.Presets.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := r.Loot.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	errs = append(errs, r.Prices.Validate()...)
	if len(gacha.Pool(r.Catalog, gacha.TierLegendary)) == 0 {
		errs = append(errs, "catalog needs at least two order_index values for the legendary case")
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("rules invalid: %s", strings.Join(errs, "; "))
	}
	return r, nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Provider publishes the current Rules. Readers grab a pointer once and keep
// using it, so a reload never changes rules under a running battle.
type Provider struct {
	loader  *Loader
	profile string
	log     *slog.Logger

	cur atomic.Pointer[Rules]

	mu        sync.Mutex
	watcher   *FileWatcher
	checks    []func(*Rules) error
	listeners []func(*Rules)
}

// NewProvider loads profile and fails if the rules are invalid.
func NewProvider(loader *Loader, profile string, log *slog.Logger) (*Provider, error) {
	if log == nil {
		log = slog.Default()
	}
	p := &Provider{loader: loader, profile: profile, log: log}
	r, err := loader.Load(profile)
	if err != nil {
		return nil, err
	}
	p.cur.Store(r)
	return p, nil
}

// Static wraps fixed rules; Reload keeps them.
func Static(r *Rules) *Provider {
	p := &Provider{log: slog.Default()}
	p.cur.Store(r)
	return p
}

// Default returns the embedded default rules.
func Default() *Rules {
	r, err := NewLoader("").Load(defaultProfile)
	if err != nil {
		panic(fmt.Sprintf("embedded rules invalid: %v", err))
	}
	return r
}

func (p *Provider) Current() *Rules { return p.cur.Load() }

// Check registers fn to vet reloaded rules. Any error rejects the reload.
func (p *Provider) Check(fn func(*Rules) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checks = append(p.checks, fn)
}

// OnReload registers fn to run after reloaded rules go live.
func (p *Provider) OnReload(fn func(*Rules)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Reload re-reads the rules. On failure the previous rules stay live.
func (p *Provider) Reload() error {
	if p.loader == nil {
		return nil
	}
	p.loader.Invalidate()
	r, err := p.loader.Load(p.profile)
	if err != nil {
		p.log.Error("rules reload rejected", "profile", p.profile, "err", err)
		return err
	}
	p.mu.Lock()
	checks, listeners := p.checks, p.listeners
	p.mu.Unlock()
	for _, check := range checks {
		if err := check(r); err != nil {
			p.log.Error("rules reload rejected", "profile", p.profile, "err", err)
			return fmt.Errorf("rules reload rejected: %w", err)
		}
	}
	p.cur.Store(r)
	p.log.Info("rules reloaded", "profile", p.profile, "version", r.Version)
	for _, fn := range listeners {
		fn(r)
	}
	return nil
}

// Watch polls the profile's files and reloads on change until Stop.
func (p *Provider) Watch(interval time.Duration) {
	if p.loader == nil || interval <= 0 {
		return
	}
	paths := p.loader.WatchPaths(p.profile)
	if len(paths) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watcher != nil {
		return
	}
	p.watcher = NewFileWatcher(paths, interval, func(path string) {
		p.log.Info("rules file changed", "path", path)
		_ = p.Reload()
	})
	p.watcher.Start()
}

func (p *Provider) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watcher != nil {
		p.watcher.Stop()
		p.watcher = nil
	}
}
