package combat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinger55555/thenailcasino/internal/random"
)

func normal(t *testing.T) Preset {
	t.Helper()
	p, ok := DefaultPresets().For(2)
	require.True(t, ok)
	return p
}

func newActive(t *testing.T, p Params) *Session {
	t.Helper()
	if p.Config.TickInterval == 0 {
		p.Config = DefaultConfig()
	}
	s, err := NewSession(p)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	return s
}

func TestAttackIgnoredOutsideActive(t *testing.T) {
	s, err := NewSession(Params{Config: DefaultConfig(), Preset: normal(t), Nail: Nail{ID: "old", BaseDamage: 20}})
	require.NoError(t, err)

	res := s.AttackAt(50)
	assert.True(t, res.Ignored)
	assert.Equal(t, Idle, res.Phase)
	assert.Equal(t, 100, res.EnemyHealth)

	require.NoError(t, s.Start())
	assert.Error(t, s.Start(), "second start")
}

func TestPerfectHitGrantsBonusTurn(t *testing.T) {
	// jitter 0.5 -> Intn(10) = 5
	rng := random.NewScripted(0.5)
	s := newActive(t, Params{Preset: normal(t), Nail: Nail{ID: "old", BaseDamage: 20}, RNG: rng})
	for range 7 {
		s.Tick()
	}
	require.Greater(t, s.Snapshot().Bar.Value, 0.0)

	res := s.AttackAt(50)
	assert.Equal(t, Perfect, res.Quality)
	assert.Equal(t, 2.5, res.Multiplier)
	assert.Equal(t, 62, res.PlayerDamage)
	assert.Equal(t, 38, res.EnemyHealth)
	assert.Equal(t, 100, res.PlayerHealth)
	assert.Equal(t, Active, res.Phase)
	assert.Contains(t, res.Events, EventBonusTurn)
	assert.Zero(t, res.RawEnemyDamage)

	snap := s.Snapshot()
	assert.Equal(t, 0.0, snap.Bar.Value)
	assert.Equal(t, 1, snap.Bar.Direction)
	assert.Equal(t, 0, rng.Remaining())
}

func TestPerfectDamageRange(t *testing.T) {
	for seed := range uint64(50) {
		s := newActive(t, Params{Preset: normal(t), Nail: Nail{ID: "old", BaseDamage: 20}, RNG: random.NewSeeded(seed)})
		res := s.AttackAt(50)
		require.GreaterOrEqual(t, res.PlayerDamage, 50)
		require.LessOrEqual(t, res.PlayerDamage, 72)
		require.Equal(t, max(0, 100-res.PlayerDamage), res.EnemyHealth)
		require.Equal(t, 100, res.PlayerHealth)
	}
}

func TestGoodAndMissTakeCounterAttack(t *testing.T) {
	s := newActive(t, Params{Preset: normal(t), Nail: Nail{ID: "old", BaseDamage: 20}, RNG: random.NewScripted(0, 0, 0, 0)})

	res := s.AttackAt(40)
	assert.Equal(t, Good, res.Quality)
	assert.Equal(t, 30, res.PlayerDamage)
	assert.Equal(t, 15, res.EnemyDamage)
	assert.Equal(t, 85, res.PlayerHealth)
	assert.Equal(t, Active, res.Phase)

	res = s.AttackAt(90)
	assert.Equal(t, Miss, res.Quality)
	assert.Equal(t, 10, res.PlayerDamage)
	assert.Equal(t, 70, res.PlayerHealth)
	assert.Equal(t, 60, res.EnemyHealth)
}

func TestDeathSaveFiresOnce(t *testing.T) {
	preset := Preset{Level: 5, EnemyHealth: 1000, EnemyDamage: 200, SoulReward: 1}
	s := newActive(t, Params{
		Preset:    preset,
		Nail:      Nail{ID: "old", BaseDamage: 5},
		Abilities: NewAbilitySet(string(DoubleJump)),
		RNG:       random.NewScripted(),
	})

	res := s.AttackAt(0)
	assert.True(t, res.DeathSaved)
	assert.Equal(t, 30, res.PlayerHealth)
	assert.Equal(t, Active, res.Phase)

	res = s.AttackAt(0)
	assert.False(t, res.DeathSaved)
	assert.Equal(t, 0, res.PlayerHealth)
	assert.Equal(t, Defeat, res.Phase)
	assert.Nil(t, res.Reward)

	select {
	case <-s.Done():
	default:
		t.Fatal("done not closed on defeat")
	}
	assert.True(t, s.AttackAt(50).Ignored)
}

func TestVictoryFixesReward(t *testing.T) {
	preset := normal(t)
	preset.EnemyHealth = 10
	// player jitter, soul jitter (0.5 -> 10), dream jitter (0.3 -> 3)
	s := newActive(t, Params{Preset: preset, Nail: Nail{ID: "old", BaseDamage: 20}, Dream: true,
		RNG: random.NewScripted(0, 0.5, 0.3)})

	res := s.AttackAt(80)
	assert.Equal(t, Victory, res.Phase)
	require.NotNil(t, res.Reward)
	assert.Equal(t, int64(85), res.Reward.Soul)
	assert.Equal(t, int64(13), res.Reward.DreamPoints)
	assert.Equal(t, 100, res.PlayerHealth, "no counter-attack on the killing blow")
	assert.Equal(t, res.Reward, s.Reward())
}

func TestThreadWidensPerfectZone(t *testing.T) {
	cfg := DefaultConfig()
	q, _ := Classify(58, cfg.Zones, cfg.Multipliers, false)
	assert.Equal(t, Good, q)
	q, m := Classify(58, cfg.Zones, cfg.Multipliers, true)
	assert.Equal(t, Perfect, q)
	assert.Equal(t, 2.5, m)

	for _, v := range []float64{45, 55} {
		q, _ = Classify(v, cfg.Zones, cfg.Multipliers, false)
		assert.Equal(t, Perfect, q, "bound %v", v)
	}
	for _, v := range []float64{35, 65} {
		q, _ = Classify(v, cfg.Zones, cfg.Multipliers, false)
		assert.Equal(t, Good, q, "bound %v", v)
	}
	q, _ = Classify(34.9, cfg.Zones, cfg.Multipliers, false)
	assert.Equal(t, Miss, q)
}

func TestBossModifiers(t *testing.T) {
	bosses := DefaultBosses()
	tests := []struct {
		boss       string
		sample     float64
		wantPlayer int
		wantEnemy  int
	}{
		{"false_knight", 40, 21, 15}, // floor(30*0.7)
		{"hornet", 90, 10, 22},       // floor(15*1.5) on miss
		{"hornet", 40, 30, 15},
		{"mantis_lords", 40, 30, 18}, // 3 * floor(15*0.4)
		{"hollow_knight", 40, 30, 18},
	}
	for _, tt := range tests {
		boss, ok := bosses.Get(tt.boss)
		require.True(t, ok)
		s := newActive(t, Params{Preset: normal(t), Boss: boss, Nail: Nail{ID: "old", BaseDamage: 20}, RNG: random.NewScripted()})
		res := s.AttackAt(tt.sample)
		assert.Equal(t, tt.wantPlayer, res.PlayerDamage, tt.boss)
		assert.Equal(t, tt.wantEnemy, res.EnemyDamage, tt.boss)
	}
}

func TestSoulMasterTeleportIsCosmetic(t *testing.T) {
	boss, _ := DefaultBosses().Get("soul_master")
	// player jitter 0, teleport roll 0.1 < 0.3, enemy jitter 0
	s := newActive(t, Params{Preset: normal(t), Boss: boss, Nail: Nail{ID: "old", BaseDamage: 20}, RNG: random.NewScripted(0, 0.1, 0)})
	res := s.AttackAt(40)
	assert.Contains(t, res.Events, EventTeleport)
	assert.Equal(t, 30, res.PlayerDamage)
	assert.Equal(t, 15, res.EnemyDamage)
}

func TestDefensiveAbilities(t *testing.T) {
	t.Run("dash dodges", func(t *testing.T) {
		// player jitter, enemy jitter, dodge roll
		s := newActive(t, Params{Preset: normal(t), Nail: Nail{ID: "old", BaseDamage: 20},
			Abilities: NewAbilitySet("dash"), RNG: random.NewScripted(0, 0, 0.1)})
		res := s.AttackAt(40)
		assert.True(t, res.Dodged)
		assert.Equal(t, 0, res.EnemyDamage)
		assert.Equal(t, 100, res.PlayerHealth)
	})
	t.Run("dash miss", func(t *testing.T) {
		s := newActive(t, Params{Preset: normal(t), Nail: Nail{ID: "old", BaseDamage: 20},
			Abilities: NewAbilitySet("dash"), RNG: random.NewScripted(0, 0, 0.5)})
		res := s.AttackAt(40)
		assert.False(t, res.Dodged)
		assert.Equal(t, 15, res.EnemyDamage)
	})
	t.Run("reduce then reflect", func(t *testing.T) {
		s := newActive(t, Params{Preset: normal(t), Nail: Nail{ID: "old", BaseDamage: 20},
			Abilities: NewAbilitySet("wall_jump", "vengeful_spirit"), RNG: random.NewScripted()})
		res := s.AttackAt(40)
		assert.Equal(t, 3, res.Reduced)
		assert.Equal(t, 12, res.EnemyDamage)
		assert.Equal(t, 3, res.Reflected)
		assert.Equal(t, 100-30-3, res.EnemyHealth)
		assert.Equal(t, 88, res.PlayerHealth)
	})
	t.Run("lethal reflect wins untouched", func(t *testing.T) {
		preset := normal(t)
		preset.EnemyHealth = 32
		s := newActive(t, Params{Preset: preset, Nail: Nail{ID: "old", BaseDamage: 20},
			Abilities: NewAbilitySet("vengeful_spirit"), RNG: random.NewScripted()})
		res := s.AttackAt(40)
		assert.Equal(t, Victory, res.Phase)
		assert.Equal(t, 100, res.PlayerHealth)
		assert.Equal(t, 0, res.EnemyHealth)
		require.NotNil(t, res.Reward)
	})
}

func TestBarBouncesAndClamps(t *testing.T) {
	b := Bar{}
	b.Reset(false)
	for range 40 {
		b.Advance(2.75)
		require.GreaterOrEqual(t, b.Value, BarMin)
		require.LessOrEqual(t, b.Value, BarMax)
	}
	assert.Equal(t, -1, b.Direction, "should have bounced off 100")

	b.Reset(true)
	assert.Equal(t, BarMax, b.Value)
	b.Advance(2.75)
	assert.Equal(t, 97.25, b.Value)
}

func TestReverseModifierResetsFromTop(t *testing.T) {
	s := newActive(t, Params{Preset: normal(t), Nail: Nail{ID: "old", BaseDamage: 20},
		Modifiers: BattleStateFor(2), RNG: random.NewScripted()})
	assert.Equal(t, BarMax, s.Snapshot().Bar.Value)
	s.Tick()
	assert.InDelta(t, 100-2.75*1.3, s.Snapshot().Bar.Value, 1e-9)

	s.AttackAt(50)
	assert.Equal(t, BarMax, s.Snapshot().Bar.Value)
}

func TestConcurrentAttacksSerialise(t *testing.T) {
	preset := normal(t)
	preset.EnemyHealth = 1
	s := newActive(t, Params{Preset: preset, Nail: Nail{ID: "old", BaseDamage: 20}, RNG: random.NewSeeded(3)})

	var wg sync.WaitGroup
	var mu sync.Mutex
	resolved := 0
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if res := s.Attack(); !res.Ignored {
				mu.Lock()
				resolved++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, resolved)
	assert.Equal(t, Victory, s.Phase())
}

func TestClockStopsWithSession(t *testing.T) {
	s := newActive(t, Params{Preset: normal(t), Nail: Nail{ID: "old", BaseDamage: 20}})
	stopped := make(chan error, 1)
	go func() { stopped <- Clock(context.Background(), s, time.Millisecond) }()

	require.Eventually(t, func() bool { return s.Snapshot().Bar.Value > 0 }, time.Second, time.Millisecond)
	s.Abort()
	select {
	case err := <-stopped:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("clock did not stop")
	}
	assert.Equal(t, Defeat, s.Phase())
}

func TestClockAbortsIdleSession(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickInterval = time.Millisecond
	cfg.IdleTimeout = 40 * time.Millisecond
	s := newActive(t, Params{Config: cfg, Preset: normal(t), Nail: Nail{ID: "old", BaseDamage: 1}, RNG: random.NewSeeded(3)})

	stopped := make(chan error, 1)
	go func() { stopped <- Clock(context.Background(), s, 0) }()

	select {
	case err := <-stopped:
		assert.ErrorIs(t, err, ErrIdleTimeout)
	case <-time.After(2 * time.Second):
		t.Fatal("idle session was not aborted")
	}
	assert.Equal(t, Defeat, s.Phase())
	assert.Nil(t, s.Reward())
}

func TestIdleDeadlineCountsFromLastInput(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IdleTimeout = time.Hour
	s := newActive(t, Params{Config: cfg, Preset: normal(t), Nail: Nail{ID: "old", BaseDamage: 1}, RNG: random.NewSeeded(3)})
	assert.False(t, s.abortIdle(cfg.IdleTimeout))
	assert.True(t, s.abortIdle(0))
	assert.Equal(t, Defeat, s.Phase())
}
