package combat

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/kinger55555/thenailcasino/internal/random"
)

type Phase string

const (
	Idle      Phase = "idle"
	Active    Phase = "active"
	Resolving Phase = "resolving"
	Victory   Phase = "victory"
	Defeat    Phase = "defeat"
)

func (p Phase) Terminal() bool { return p == Victory || p == Defeat }

// Event names emitted on a TurnResult.
const (
	EventBonusTurn = "bonus_turn"
	EventDodge     = "dodge"
	EventReflect   = "reflect"
	EventDeathSave = "death_save"
	EventTeleport  = "teleport"
)

// Nail is the weapon stats a battle needs.
type Nail struct {
	ID         string
	BaseDamage int
}

// Params configures a new Session.
type Params struct {
	Config    Config
	Preset    Preset
	Boss      BossProfile // zero value: ordinary enemy
	Abilities AbilitySet
	Nail      Nail
	Dream     bool
	Modifiers BattleState // zero value: BaseBattleState
	RNG       random.Source
}

// Reward is fixed at the Victory transition.
type Reward struct {
	Soul        int64 `json:"soul"`
	DreamPoints int64 `json:"dream_points"`
}

// TurnResult is the outcome of one attack input.
type TurnResult struct {
	Ignored bool `json:"ignored,omitempty"`

	Sample       float64 `json:"sample"`
	Quality      Quality `json:"quality,omitempty"`
	Multiplier   float64 `json:"multiplier,omitempty"`
	PlayerDamage int     `json:"player_damage"`

	RawEnemyDamage int  `json:"raw_enemy_damage"`
	EnemyDamage    int  `json:"enemy_damage"` // what reached the player
	Reduced        int  `json:"reduced,omitempty"`
	Reflected      int  `json:"reflected,omitempty"`
	Dodged         bool `json:"dodged,omitempty"`
	DeathSaved     bool `json:"death_saved,omitempty"`

	Events []string `json:"events,omitempty"`

	Phase        Phase   `json:"phase"`
	PlayerHealth int     `json:"player_health"`
	EnemyHealth  int     `json:"enemy_health"`
	Reward       *Reward `json:"reward,omitempty"`
}

// Snapshot is a value copy of the session for transports.
type Snapshot struct {
	Phase          Phase       `json:"phase"`
	Bar            Bar         `json:"bar"`
	PlayerHealth   int         `json:"player_health"`
	MaxPlayer      int         `json:"max_player_health"`
	EnemyHealth    int         `json:"enemy_health"`
	MaxEnemy       int         `json:"max_enemy_health"`
	Difficulty     int         `json:"difficulty"`
	Label          string      `json:"label"`
	Boss           string      `json:"boss,omitempty"`
	NailID         string      `json:"nail_id"`
	Dream          bool        `json:"dream"`
	DeathSaveUsed  bool        `json:"death_save_used"`
	Turns          int         `json:"turns"`
	Abilities      []Ability   `json:"abilities,omitempty"`
	Modifiers      BattleState `json:"modifiers"`
	Reward         *Reward     `json:"reward,omitempty"`
	TickIntervalMs int64       `json:"tick_interval_ms"`
}

// Session is one battle. All methods are safe for concurrent use; the clock
// goroutine and attack inputs serialise on mu.
type Session struct {
	mu sync.Mutex

	cfg       Config
	preset    Preset
	boss      BossProfile
	abilities AbilitySet
	nail      Nail
	dream     bool
	mods      BattleState
	rng       random.Source

	phase         Phase
	bar           Bar
	playerHealth  int
	enemyHealth   int
	deathSaveUsed bool
	turns         int
	reward        *Reward
	lastInput     time.Time

	done     chan struct{}
	doneOnce sync.Once
}

func NewSession(p Params) (*Session, error) {
	if err := p.Config.Validate(); err != nil {
		return nil, err
	}
	if p.Preset.EnemyHealth <= 0 {
		return nil, fmt.Errorf("preset %d: enemy health must be > 0", p.Preset.Level)
	}
	if p.Nail.BaseDamage < 0 {
		return nil, fmt.Errorf("nail %s: base damage must be >= 0", p.Nail.ID)
	}
	if p.Abilities == nil {
		p.Abilities = AbilitySet{}
	}
	base := BaseBattleState()
	if p.Modifiers.BarSpeed <= 0 {
		p.Modifiers.BarSpeed = base.BarSpeed
	}
	if p.Modifiers.ReactionWindow <= 0 {
		p.Modifiers.ReactionWindow = base.ReactionWindow
	}
	if p.RNG == nil {
		p.RNG = random.Default()
	}
	s := &Session{
		cfg:          p.Config,
		preset:       p.Preset,
		boss:         p.Boss,
		abilities:    p.Abilities,
		nail:         p.Nail,
		dream:        p.Dream,
		mods:         p.Modifiers,
		rng:          p.RNG,
		phase:        Idle,
		playerHealth: p.Config.PlayerHealth,
		enemyHealth:  p.Preset.EnemyHealth,
		done:         make(chan struct{}),
	}
	s.bar.Reset(s.mods.Reverse)
	return s, nil
}

// Start moves an Idle session to Active.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != Idle {
		return fmt.Errorf("session already %s", s.phase)
	}
	s.phase = Active
	s.lastInput = time.Now()
	return nil
}

// Tick advances the bar one step while Active and returns its position.
func (s *Session) Tick() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == Active {
		s.bar.Advance(s.cfg.BarSpeed * s.mods.BarSpeed)
	}
	return s.bar.Value
}

// Attack samples the bar at its current position.
func (s *Session) Attack() TurnResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolve(s.bar.Value)
}

// AttackAt resolves an attack as if the bar stood at v.
func (s *Session) AttackAt(v float64) TurnResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolve(min(max(v, BarMin), BarMax))
}

// resolve runs one turn. Rolls happen in a fixed order: player jitter,
// teleport, enemy jitter, dodge, then soul and dream jitter on victory.
func (s *Session) resolve(sample float64) TurnResult {
	if s.phase != Active {
		return TurnResult{Ignored: true, Sample: sample, Phase: s.phase,
			PlayerHealth: s.playerHealth, EnemyHealth: s.enemyHealth, Reward: s.reward}
	}
	s.phase = Resolving
	s.turns++
	s.lastInput = time.Now()

	res := TurnResult{Sample: sample}
	res.Quality, res.Multiplier = Classify(sample, s.cfg.Zones, s.cfg.Multipliers, s.abilities.Has(Thread))

	dmg := floorMul(s.nail.BaseDamage+random.Intn(s.cfg.PlayerJitter, s.rng), res.Multiplier)
	if m := s.boss.PlayerDamageMultiplier; m > 0 {
		dmg = floorMul(dmg, m)
	}
	res.PlayerDamage = dmg
	s.enemyHealth = max(0, s.enemyHealth-dmg)

	if s.boss.TeleportChance > 0 {
		if hit, _ := random.Chance(s.boss.TeleportChance, s.rng); hit {
			res.Events = append(res.Events, EventTeleport)
		}
	}

	switch {
	case s.enemyHealth == 0:
		s.win()
	case res.Quality == Perfect:
		res.Events = append(res.Events, EventBonusTurn)
		s.continueBattle()
	default:
		s.counterAttack(&res)
	}
	res.Phase = s.phase
	res.PlayerHealth = s.playerHealth
	res.EnemyHealth = s.enemyHealth
	res.Reward = s.reward
	return res
}

func (s *Session) counterAttack(res *TurnResult) {
	d := s.preset.EnemyDamage + random.Intn(s.cfg.EnemyJitter, s.rng)
	if m := s.boss.MissCounterMultiplier; m > 0 && res.Quality == Miss {
		d = floorMul(d, m)
	}
	if s.boss.Strikes > 1 {
		d = s.boss.Strikes * floorMul(d, s.boss.StrikeFraction)
	}
	if m := s.boss.EnemyDamageMultiplier; m > 0 {
		d = floorMul(d, m)
	}
	res.RawEnemyDamage = d

	ab := s.cfg.Abilities
	if s.abilities.Has(Dash) {
		if hit, _ := random.Chance(ab.DodgeChance, s.rng); hit {
			res.Dodged = true
			res.Events = append(res.Events, EventDodge)
			d = 0
		}
	}
	if d > 0 && s.abilities.Has(WallJump) {
		res.Reduced = floorMul(d, ab.DamageReduction)
		d -= res.Reduced
	}
	if d > 0 && s.abilities.Has(VengefulSpirit) {
		res.Reflected = floorMul(d, ab.ReflectFraction)
		if res.Reflected > 0 {
			res.Events = append(res.Events, EventReflect)
			s.enemyHealth = max(0, s.enemyHealth-res.Reflected)
			if s.enemyHealth == 0 {
				// lethal reflect ends the battle before the hit lands
				s.win()
				return
			}
		}
	}

	res.EnemyDamage = d
	s.playerHealth = max(0, s.playerHealth-d)
	if s.playerHealth == 0 && s.abilities.Has(DoubleJump) && !s.deathSaveUsed {
		s.deathSaveUsed = true
		s.playerHealth = ab.DeathSaveHealth
		res.DeathSaved = true
		res.Events = append(res.Events, EventDeathSave)
	}
	if s.playerHealth == 0 {
		s.finish(Defeat)
		return
	}
	s.continueBattle()
}

func (s *Session) win() {
	r := &Reward{Soul: s.preset.SoulReward + int64(random.Intn(s.cfg.SoulJitter, s.rng))}
	if s.dream {
		r.DreamPoints = s.preset.DreamReward + int64(random.Intn(s.cfg.DreamJitter, s.rng))
	}
	s.reward = r
	s.finish(Victory)
}

func (s *Session) continueBattle() {
	s.bar.Reset(s.mods.Reverse)
	s.phase = Active
}

func (s *Session) finish(p Phase) {
	s.phase = p
	s.doneOnce.Do(func() { close(s.done) })
}

// Abort ends an unfinished battle as a Defeat.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.phase.Terminal() {
		s.finish(Defeat)
	}
}

// abortIdle ends an unfinished session as a Defeat once it has gone
// timeout without an attack, and reports whether it did.
func (s *Session) abortIdle(timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase.Terminal() || s.lastInput.IsZero() || time.Since(s.lastInput) < timeout {
		return false
	}
	s.finish(Defeat)
	return true
}

// Done is closed once the session reaches Victory or Defeat.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Reward is nil unless the session ended in Victory.
func (s *Session) Reward() *Reward {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reward == nil {
		return nil
	}
	r := *s.reward
	return &r
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Phase:          s.phase,
		Bar:            s.bar,
		PlayerHealth:   s.playerHealth,
		MaxPlayer:      s.cfg.PlayerHealth,
		EnemyHealth:    s.enemyHealth,
		MaxEnemy:       s.preset.EnemyHealth,
		Difficulty:     s.preset.Level,
		Label:          s.preset.Label,
		Boss:           s.boss.ID,
		NailID:         s.nail.ID,
		Dream:          s.dream,
		DeathSaveUsed:  s.deathSaveUsed,
		Turns:          s.turns,
		Abilities:      s.abilities.List(),
		Modifiers:      s.mods,
		TickIntervalMs: s.cfg.TickInterval.Milliseconds(),
	}
	if s.reward != nil {
		r := *s.reward
		snap.Reward = &r
	}
	return snap
}

func floorMul(v int, m float64) int {
	return int(math.Floor(float64(v) * m))
}
