package combat

// BossProfile holds the per-boss damage modifiers. Zero values mean "no effect".
type BossProfile struct {
	ID string `yaml:"-"`
	// Ability granted the first time the boss is defeated.
	Grants Ability `yaml:"grants"`

	PlayerDamageMultiplier float64 `yaml:"player_damage_multiplier"` // armor, applied to every player hit
	MissCounterMultiplier  float64 `yaml:"miss_counter_multiplier"`  // counter-attack after a Miss
	EnemyDamageMultiplier  float64 `yaml:"enemy_damage_multiplier"`  // unconditional
	Strikes                int     `yaml:"strikes"`                  // several weaker hits
	StrikeFraction         float64 `yaml:"strike_fraction"`
	TeleportChance         float64 `yaml:"teleport_chance"` // cosmetic event only
}

// Bosses is keyed by boss id.
type Bosses map[string]BossProfile

func DefaultBosses() Bosses {
	return Bosses{
		"false_knight":  {ID: "false_knight", Grants: Dash, PlayerDamageMultiplier: 0.7},
		"hornet":        {ID: "hornet", Grants: Thread, MissCounterMultiplier: 1.5},
		"mantis_lords":  {ID: "mantis_lords", Grants: WallJump, Strikes: 3, StrikeFraction: 0.4},
		"soul_master":   {ID: "soul_master", Grants: VengefulSpirit, TeleportChance: 0.3},
		"broken_vessel": {ID: "broken_vessel", Grants: DoubleJump},
		"hollow_knight": {ID: "hollow_knight", Grants: VoidHeart, EnemyDamageMultiplier: 1.2},
	}
}

// Get returns the profile for id; unknown ids get a neutral profile.
func (b Bosses) Get(id string) (BossProfile, bool) {
	p, ok := b[id]
	if ok {
		p.ID = id
	}
	return p, ok
}

// AbilityFor returns the ability a boss grants.
func (b Bosses) AbilityFor(id string) (Ability, bool) {
	p, ok := b[id]
	if !ok || p.Grants == "" {
		return "", false
	}
	return p.Grants, true
}
