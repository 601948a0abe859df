package arena

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinger55555/thenailcasino/internal/combat"
	"github.com/kinger55555/thenailcasino/internal/domain"
	"github.com/kinger55555/thenailcasino/internal/errs"
	"github.com/kinger55555/thenailcasino/internal/game"
	"github.com/kinger55555/thenailcasino/internal/random"
	"github.com/kinger55555/thenailcasino/internal/repository"
)

type fixture struct {
	store *repository.Memory
	rules *game.Provider
	rng   *random.Scripted
	svc   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rules := game.Static(game.Default())
	store := repository.NewMemory()
	require.NoError(t, store.UpsertNails(context.Background(), rules.Current().Catalog))
	rng := random.NewScripted()
	return &fixture{store: store, rules: rules, rng: rng, svc: NewService(store, rules, Options{RNG: rng})}
}

// player creates a profile holding one nail and returns the owned id.
func (f *fixture) player(t *testing.T, user string, masks int64, nailID string, dream bool) string {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.CreateProfile(ctx, &domain.Profile{ID: user, Soul: 500, Masks: masks}))
	n := &domain.OwnedNail{UserID: user, NailID: nailID, IsDream: dream}
	require.NoError(t, f.store.InsertOwned(ctx, n))
	return n.ID
}

func (f *fixture) profile(t *testing.T, user string) domain.Profile {
	t.Helper()
	p, err := f.store.GetProfile(context.Background(), user)
	require.NoError(t, err)
	return p
}

func TestSingleMaskStartsOneBattle(t *testing.T) {
	f := newFixture(t)
	owned := f.player(t, "u1", 1, "old_nail", false)
	// a second arena on the same store stands in for another server process
	other := NewService(f.store, f.rules, Options{RNG: random.NewSeeded(1)})

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, svc := range []*Service{f.svc, other} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = svc.StartBattle(context.Background(), StartRequest{UserID: "u1", OwnedNailID: owned, Difficulty: 2})
		}()
	}
	wg.Wait()

	ok := 0
	for _, err := range results {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, errs.ErrValidation)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Zero(t, f.profile(t, "u1").Masks)
}

func TestOneBattlePerUser(t *testing.T) {
	f := newFixture(t)
	owned := f.player(t, "u1", 3, "old_nail", false)
	ctx := context.Background()

	_, err := f.svc.StartBattle(ctx, StartRequest{UserID: "u1", OwnedNailID: owned, Difficulty: 1})
	require.NoError(t, err)
	_, err = f.svc.StartBattle(ctx, StartRequest{UserID: "u1", OwnedNailID: owned, Difficulty: 1})
	assert.ErrorIs(t, err, errs.ErrConflict)
	assert.Equal(t, int64(2), f.profile(t, "u1").Masks, "rejected start spends nothing")

	o, err := f.svc.Forfeit(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, o.Won)

	_, err = f.svc.StartBattle(ctx, StartRequest{UserID: "u1", OwnedNailID: owned, Difficulty: 1})
	require.NoError(t, err)
}

func TestStartValidation(t *testing.T) {
	f := newFixture(t)
	owned := f.player(t, "u1", 1, "old_nail", false)
	ctx := context.Background()

	tests := []struct {
		name string
		req  StartRequest
		want error
	}{
		{"difficulty", StartRequest{UserID: "u1", OwnedNailID: owned, Difficulty: 9}, errs.ErrValidation},
		{"boss", StartRequest{UserID: "u1", OwnedNailID: owned, Difficulty: 3, Boss: "radiance"}, errs.ErrValidation},
		{"dream", StartRequest{UserID: "u1", OwnedNailID: owned, Difficulty: 1, Dream: true}, errs.ErrValidation},
		{"not owned", StartRequest{UserID: "u1", OwnedNailID: "missing", Difficulty: 1}, errs.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.StartBattle(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, int64(1), f.profile(t, "u1").Masks)
		})
	}
}

func TestNoMasksLeft(t *testing.T) {
	f := newFixture(t)
	owned := f.player(t, "u1", 0, "old_nail", false)
	_, err := f.svc.StartBattle(context.Background(), StartRequest{UserID: "u1", OwnedNailID: owned, Difficulty: 1})
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Contains(t, err.Error(), "no masks left")

	_, err = f.svc.Current("u1")
	assert.ErrorIs(t, err, errs.ErrNotFound, "failed start leaves no battle behind")
}

func TestVictoryCommitsRewardAndHistory(t *testing.T) {
	f := newFixture(t)
	owned := f.player(t, "u1", 1, "kingsoul_nail", true)
	ctx := context.Background()

	var hooked *Outcome
	_, err := f.svc.StartBattle(ctx, StartRequest{
		UserID: "u1", OwnedNailID: owned, Difficulty: 1, Dream: true,
		OnFinish: func(_ context.Context, _ repository.Store, o Outcome) error {
			hooked = &o
			return nil
		},
	})
	require.NoError(t, err)

	// player jitter 0, soul jitter 0.5 -> 10, dream jitter 0.2 -> 2
	f.rng.Push(0, 0.5, 0.2)
	res, err := f.svc.AttackAt(ctx, "u1", 50)
	require.NoError(t, err)
	assert.Equal(t, combat.Victory, res.Phase)
	require.NotNil(t, res.Outcome)
	assert.True(t, res.Outcome.Won)
	assert.Equal(t, combat.Reward{Soul: 50, DreamPoints: 7}, res.Outcome.Reward)
	require.NotNil(t, hooked)
	assert.Equal(t, res.Outcome.BattleID, hooked.BattleID)

	p := f.profile(t, "u1")
	assert.Equal(t, int64(550), p.Soul)
	assert.Equal(t, int64(7), p.DreamPoints)
	assert.Zero(t, p.Masks, "one mask for the whole battle")

	recs, err := f.store.ListCombatRecords(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Won)
	assert.True(t, recs[0].IsDream)
	assert.Equal(t, int64(50), recs[0].SoulGained)

	_, err = f.svc.Current("u1")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestScenarioPerfectHitIsBonusTurn(t *testing.T) {
	f := newFixture(t)
	owned := f.player(t, "u1", 1, "old_nail", false)
	ctx := context.Background()
	_, err := f.svc.StartBattle(ctx, StartRequest{UserID: "u1", OwnedNailID: owned, Difficulty: 2})
	require.NoError(t, err)

	f.rng.Push(0.7) // jitter 7
	res, err := f.svc.AttackAt(ctx, "u1", 50)
	require.NoError(t, err)
	assert.Equal(t, combat.Perfect, res.Quality)
	assert.Equal(t, 42, res.PlayerDamage) // floor((10+7)*2.5)
	assert.Equal(t, 58, res.EnemyHealth)
	assert.Equal(t, 100, res.PlayerHealth)
	assert.Equal(t, combat.Active, res.Phase)
	assert.Nil(t, res.Outcome)

	snap, err := f.svc.Current("u1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, snap.Bar.Value)
	assert.Equal(t, int64(0), f.profile(t, "u1").Masks)
}

func TestFailedCommitRetries(t *testing.T) {
	f := newFixture(t)
	owned := f.player(t, "u1", 1, "kingsoul_nail", false)
	ctx := context.Background()

	calls := 0
	_, err := f.svc.StartBattle(ctx, StartRequest{
		UserID: "u1", OwnedNailID: owned, Difficulty: 1,
		OnFinish: func(context.Context, repository.Store, Outcome) error {
			calls++
			if calls == 1 {
				return errors.New("progress store down")
			}
			return nil
		},
	})
	require.NoError(t, err)

	_, err = f.svc.AttackAt(ctx, "u1", 50)
	require.Error(t, err)
	assert.Equal(t, int64(500), f.profile(t, "u1").Soul, "reward rolled back with the hook")
	recs, _ := f.store.ListCombatRecords(ctx, "u1", 0)
	assert.Empty(t, recs)

	res, err := f.svc.Attack(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, res.Ignored)
	require.NotNil(t, res.Outcome)
	assert.True(t, res.Outcome.Won)
	assert.Equal(t, int64(540), f.profile(t, "u1").Soul)
	assert.Equal(t, 2, calls)
}

func TestAbilitiesComeFromProgress(t *testing.T) {
	f := newFixture(t)
	owned := f.player(t, "u1", 1, "old_nail", false)
	ctx := context.Background()
	sp := domain.NewStoryProgress("u1", "awakening")
	sp.UnlockedAbilities = append(sp.UnlockedAbilities, "double_jump", "thread")
	require.NoError(t, f.store.SaveProgress(ctx, &sp))

	b, err := f.svc.StartBattle(ctx, StartRequest{UserID: "u1", OwnedNailID: owned, Difficulty: 5, Boss: "hollow_knight"})
	require.NoError(t, err)
	snap := b.Session.Snapshot()
	assert.Equal(t, []combat.Ability{combat.Thread, combat.DoubleJump}, snap.Abilities)
	assert.Equal(t, "hollow_knight", snap.Boss)
}

func TestClockDrivesBar(t *testing.T) {
	f := newFixture(t)
	owned := f.player(t, "u1", 1, "old_nail", false)
	svc := NewService(f.store, f.rules, Options{RunClock: true, RNG: random.NewSeeded(2)})
	ctx := context.Background()

	_, err := svc.StartBattle(ctx, StartRequest{UserID: "u1", OwnedNailID: owned, Difficulty: 1})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		snap, err := svc.Current("u1")
		return err == nil && snap.Bar.Value > 0
	}, time.Second, 5*time.Millisecond)

	o, err := svc.Forfeit(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, o.Won)
	svc.Shutdown(ctx)
}

func TestShutdownCommitsLiveBattles(t *testing.T) {
	f := newFixture(t)
	owned := f.player(t, "u1", 1, "old_nail", false)
	ctx := context.Background()

	_, err := f.svc.StartBattle(ctx, StartRequest{UserID: "u1", OwnedNailID: owned, Difficulty: 1})
	require.NoError(t, err)
	f.svc.Shutdown(ctx)

	assert.Zero(t, f.profile(t, "u1").Masks)
	recs, err := f.store.ListCombatRecords(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.False(t, recs[0].Won)
	assert.Zero(t, recs[0].SoulGained)

	_, err = f.svc.Current("u1")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = f.svc.StartBattle(ctx, StartRequest{UserID: "u1", OwnedNailID: owned, Difficulty: 1})
	assert.ErrorIs(t, err, errs.ErrTransient)
}

func TestIdleBattleEndsAsDefeat(t *testing.T) {
	f := newFixture(t)
	owned := f.player(t, "u1", 2, "old_nail", false)
	r := game.Default()
	r.Combat.TickInterval = time.Millisecond
	r.Combat.IdleTimeout = 30 * time.Millisecond
	svc := NewService(f.store, game.Static(r), Options{RunClock: true, RNG: random.NewSeeded(4)})
	ctx := context.Background()

	_, err := svc.StartBattle(ctx, StartRequest{UserID: "u1", OwnedNailID: owned, Difficulty: 1})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, err := svc.Current("u1")
		return errors.Is(err, errs.ErrNotFound)
	}, 2*time.Second, 5*time.Millisecond, "idle battle keeps its slot")

	recs, err := f.store.ListCombatRecords(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.False(t, recs[0].Won)

	_, err = svc.StartBattle(ctx, StartRequest{UserID: "u1", OwnedNailID: owned, Difficulty: 1})
	require.NoError(t, err, "slot is free again")
	svc.Shutdown(ctx)
}
