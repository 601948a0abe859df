package economy

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinger55555/thenailcasino/internal/domain"
	"github.com/kinger55555/thenailcasino/internal/errs"
	"github.com/kinger55555/thenailcasino/internal/gacha"
	"github.com/kinger55555/thenailcasino/internal/game"
	"github.com/kinger55555/thenailcasino/internal/random"
	"github.com/kinger55555/thenailcasino/internal/repository"
)

func newService(t *testing.T) (*Service, *repository.Memory) {
	t.Helper()
	store := repository.NewMemory()
	svc := NewService(store, game.Static(game.Default()), Options{RNG: random.NewSeeded(7)})
	require.NoError(t, svc.SeedCatalog(context.Background()))
	return svc, store
}

func grant(t *testing.T, store *repository.Memory, user string, d domain.Delta) {
	t.Helper()
	_, err := store.ApplyDelta(context.Background(), user, d)
	require.NoError(t, err)
}

func TestEnsureProfileGrantsStarterKit(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	p, err := svc.EnsureProfile(ctx, "u1", "knight")
	require.NoError(t, err)
	assert.Equal(t, int64(100), p.Soul)
	assert.Equal(t, int64(3), p.Masks)

	again, err := svc.EnsureProfile(ctx, "u1", "other")
	require.NoError(t, err)
	assert.Equal(t, "knight", again.Nickname)

	owned, err := store.ListOwned(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "old_nail", owned[0].NailID)
}

func TestOpenCaseChargesAndAddsNail(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	_, err := svc.EnsureProfile(ctx, "u1", "")
	require.NoError(t, err)

	res, err := svc.OpenCase(ctx, "u1", gacha.TierBasic)
	require.NoError(t, err)
	assert.Equal(t, int64(50), res.Profile.Soul)
	require.Len(t, res.Strip, 50)
	assert.Equal(t, 45, res.WinnerIndex)
	assert.Equal(t, res.Nail.ID, res.Strip[res.WinnerIndex].Nail.ID)
	assert.Equal(t, res.IsBonus, res.Owned.IsDream)

	owned, err := store.ListOwned(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, owned, 2)
}

func TestOpenCaseWithoutFundsChangesNothing(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	_, err := svc.EnsureProfile(ctx, "u1", "")
	require.NoError(t, err)

	_, err = svc.OpenCase(ctx, "u1", gacha.TierLegendary)
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Contains(t, errs.Message(err), "not enough soul")

	p, _ := store.GetProfile(ctx, "u1")
	assert.Equal(t, int64(100), p.Soul)
	owned, _ := store.ListOwned(ctx, "u1")
	assert.Len(t, owned, 1)

	_, err = svc.OpenCase(ctx, "u1", "golden")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestLegendaryCaseNeverDropsLowestNail(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	_, err := svc.EnsureProfile(ctx, "u1", "")
	require.NoError(t, err)
	grant(t, store, "u1", domain.Delta{domain.Soul: 150 * 30})

	for range 30 {
		res, err := svc.OpenCase(ctx, "u1", gacha.TierLegendary)
		require.NoError(t, err)
		assert.NotEqual(t, "old_nail", res.Nail.ID)
	}
}

func TestSellCreditsDreamValue(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	_, err := svc.EnsureProfile(ctx, "u1", "")
	require.NoError(t, err)
	n := &domain.OwnedNail{UserID: "u1", NailID: "pure_nail", IsDream: true}
	require.NoError(t, store.InsertOwned(ctx, n))

	p, err := svc.Sell(ctx, "u1", n.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100+210), p.Soul)

	_, err = svc.Sell(ctx, "u1", n.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSellOtherUsersNail(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	for _, u := range []string{"u1", "u2"} {
		_, err := svc.EnsureProfile(ctx, u, "")
		require.NoError(t, err)
	}
	owned, _ := store.ListOwned(ctx, "u2")
	require.Len(t, owned, 1)

	_, err := svc.Sell(ctx, "u1", owned[0].ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.ErrorIs(t, svc.Discard(ctx, "u1", owned[0].ID), errs.ErrNotFound)
	require.NoError(t, svc.Discard(ctx, "u2", owned[0].ID))
}

func TestInventoryJoinsDefinitions(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.EnsureProfile(ctx, "u1", "")
	require.NoError(t, err)

	inv, err := svc.Inventory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, "Old Nail", inv[0].Nail.Name)
	assert.Equal(t, int64(10), inv[0].SellValue)
}

func TestConvertBothDirections(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	_, err := svc.EnsureProfile(ctx, "u1", "")
	require.NoError(t, err)
	grant(t, store, "u1", domain.Delta{domain.Soul: 150})

	res, err := svc.Convert(ctx, "u1", domain.Soul, domain.DreamPoints, 250)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Credited)
	assert.Equal(t, int64(0), res.Profile.Soul)
	assert.Equal(t, int64(2), res.Profile.DreamPoints)
	assert.Empty(t, store.Conversions("u1"))

	res, err = svc.Convert(ctx, "u1", domain.DreamPoints, domain.Soul, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(200), res.Profile.Soul)
	assert.Zero(t, res.Profile.DreamPoints)
	recs := store.Conversions("u1")
	require.Len(t, recs, 1)
	assert.Equal(t, int64(200), recs[0].Credited)
}

func TestConvertRejects(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	_, err := svc.EnsureProfile(ctx, "u1", "")
	require.NoError(t, err)

	cases := []struct {
		name     string
		from, to domain.Currency
		amount   int64
	}{
		{"below rate", domain.Soul, domain.DreamPoints, 99},
		{"zero", domain.Soul, domain.Coins, 0},
		{"no pair", domain.Masks, domain.Coins, 5},
		{"no funds", domain.Coins, domain.Soul, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Convert(ctx, "u1", tc.from, tc.to, tc.amount)
			assert.ErrorIs(t, err, errs.ErrValidation)
		})
	}
	p, _ := store.GetProfile(ctx, "u1")
	assert.Equal(t, int64(100), p.Soul)
}

func TestBuyMasks(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.EnsureProfile(ctx, "u1", "")
	require.NoError(t, err)

	p, err := svc.BuyMasks(ctx, "u1", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(60), p.Soul)
	assert.Equal(t, int64(5), p.Masks)

	_, err = svc.BuyMasks(ctx, "u1", 4)
	assert.ErrorIs(t, err, errs.ErrValidation)
	_, err = svc.BuyMasks(ctx, "u1", 0)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestTradeLinkEscrowsAndTransfers(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	for _, u := range []string{"alice", "bob"} {
		_, err := svc.EnsureProfile(ctx, u, "")
		require.NoError(t, err)
	}
	n := &domain.OwnedNail{UserID: "alice", NailID: "kingsoul_nail", IsDream: true}
	require.NoError(t, store.InsertOwned(ctx, n))

	link, err := svc.CreateTradeLink(ctx, "alice", n.ID)
	require.NoError(t, err)
	assert.Len(t, link.Code, 8)
	_, err = store.GetOwned(ctx, "alice", n.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, def, err := svc.InspectTradeLink(ctx, "bob", strings.ToLower(link.Code))
	require.NoError(t, err)
	assert.Equal(t, "kingsoul_nail", def.ID)
	_, _, err = svc.InspectTradeLink(ctx, "alice", link.Code)
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.ClaimTrade(ctx, "alice", link.Code)
	assert.ErrorIs(t, err, errs.ErrValidation)

	got, err := svc.ClaimTrade(ctx, "bob", " "+link.Code+" ")
	require.NoError(t, err)
	assert.Equal(t, "kingsoul_nail", got.NailID)
	assert.True(t, got.IsDream)

	_, err = svc.ClaimTrade(ctx, "bob", link.Code)
	assert.ErrorIs(t, err, errs.ErrConflict)
	_, _, err = svc.InspectTradeLink(ctx, "carol", link.Code)
	assert.ErrorIs(t, err, errs.ErrConflict)
	_, err = svc.ClaimTrade(ctx, "bob", "NOPE1234")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestConcurrentTradeClaimsTransferOnce(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	_, err := svc.EnsureProfile(ctx, "alice", "")
	require.NoError(t, err)
	n := &domain.OwnedNail{UserID: "alice", NailID: "kingsoul_nail"}
	require.NoError(t, store.InsertOwned(ctx, n))
	link, err := svc.CreateTradeLink(ctx, "alice", n.ID)
	require.NoError(t, err)

	const claimers = 12
	var wg sync.WaitGroup
	results := make([]error, claimers)
	for i := range claimers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user := fmt.Sprintf("u%d", i)
			_, results[i] = svc.ClaimTrade(ctx, user, link.Code)
		}()
	}
	wg.Wait()

	ok := 0
	for _, err := range results {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, errs.ErrConflict)
		}
	}
	assert.Equal(t, 1, ok)
	held := 0
	for i := range results {
		owned, err := store.ListOwned(ctx, fmt.Sprintf("u%d", i))
		require.NoError(t, err)
		for _, o := range owned {
			if o.NailID == "kingsoul_nail" {
				held++
			}
		}
	}
	assert.Equal(t, 1, held, "the escrowed nail lands exactly once")
}

func TestCreateAdminLinkRequiresRole(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	_, err := svc.CreateAdminLink(ctx, "mallory", AdminLinkRequest{Soul: 100})
	require.ErrorIs(t, err, errs.ErrForbidden)

	require.NoError(t, store.GrantRole(ctx, "root", domain.RoleAdmin))
	zero := int64(0)
	for _, req := range []AdminLinkRequest{{}, {Soul: -1}, {Soul: 5, Uses: &zero}} {
		_, err := svc.CreateAdminLink(ctx, "root", req)
		assert.ErrorIs(t, err, errs.ErrValidation)
	}
	link, err := svc.CreateAdminLink(ctx, "root", AdminLinkRequest{Soul: 100, DreamPoints: 1})
	require.NoError(t, err)
	assert.Len(t, link.Code, 8)
	assert.Nil(t, link.UsesRemaining)
}

func TestRedeemOncePerUser(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	require.NoError(t, store.GrantRole(ctx, "root", domain.RoleAdmin))
	_, err := svc.EnsureProfile(ctx, "u1", "")
	require.NoError(t, err)
	link, err := svc.CreateAdminLink(ctx, "root", AdminLinkRequest{Soul: 40, DreamPoints: 2})
	require.NoError(t, err)

	res, err := svc.RedeemAdminCode(ctx, "u1", strings.ToLower(link.Code))
	require.NoError(t, err)
	assert.Equal(t, int64(140), res.Profile.Soul)
	assert.Equal(t, int64(2), res.Profile.DreamPoints)

	_, err = svc.RedeemAdminCode(ctx, "u1", link.Code)
	assert.ErrorIs(t, err, errs.ErrConflict)
	_, err = svc.RedeemAdminCode(ctx, "u1", "MISSING1")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestInspectAdminLinkCountsClaims(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	require.NoError(t, store.GrantRole(ctx, "root", domain.RoleAdmin))
	uses := int64(3)
	link, err := svc.CreateAdminLink(ctx, "root", AdminLinkRequest{Soul: 10, Uses: &uses})
	require.NoError(t, err)
	for _, u := range []string{"u1", "u2"} {
		_, err := svc.EnsureProfile(ctx, u, "")
		require.NoError(t, err)
		_, err = svc.RedeemAdminCode(ctx, u, link.Code)
		require.NoError(t, err)
	}

	st, err := svc.InspectAdminLink(ctx, "root", strings.ToLower(link.Code))
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Claims)
	require.NotNil(t, st.Remaining)
	assert.Equal(t, int64(1), *st.Remaining)

	_, err = svc.InspectAdminLink(ctx, "u1", link.Code)
	assert.ErrorIs(t, err, errs.ErrForbidden)
	_, err = svc.InspectAdminLink(ctx, "root", "MISSING1")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestConcurrentRedeemRespectsCap(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	require.NoError(t, store.GrantRole(ctx, "root", domain.RoleAdmin))
	uses := int64(3)
	link, err := svc.CreateAdminLink(ctx, "root", AdminLinkRequest{Soul: 10, Uses: &uses})
	require.NoError(t, err)

	const users = 10
	for i := range users {
		_, err := svc.EnsureProfile(ctx, fmt.Sprintf("u%d", i), "")
		require.NoError(t, err)
	}
	var wg sync.WaitGroup
	results := make([]error, users)
	for i := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = svc.RedeemAdminCode(ctx, fmt.Sprintf("u%d", i), link.Code)
		}()
	}
	wg.Wait()

	ok := 0
	for _, err := range results {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, errs.ErrConflict)
		}
	}
	assert.Equal(t, 3, ok)
	n, err := store.CountClaims(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestCodes(t *testing.T) {
	rng := random.NewSeeded(3)
	for range 50 {
		c := NewCode(8, rng)
		require.Len(t, c, 8)
		for _, r := range c {
			assert.True(t, strings.ContainsRune(codeAlphabet, r))
		}
	}
	assert.Equal(t, "AB12CD34", NormalizeCode("  ab12cd34\n"))
}
