// Package economy holds the currency and inventory transaction rules. Every
// multi-step operation runs in one store transaction and every balance
// change is a guarded delta.
package economy

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kinger55555/thenailcasino/internal/domain"
	"github.com/kinger55555/thenailcasino/internal/errs"
	"github.com/kinger55555/thenailcasino/internal/gacha"
	"github.com/kinger55555/thenailcasino/internal/game"
	"github.com/kinger55555/thenailcasino/internal/random"
	"github.com/kinger55555/thenailcasino/internal/repository"
)

type Options struct {
	RNG random.Source
	Log *slog.Logger
	Now func() time.Time
}

type Service struct {
	store repository.Store
	rules *game.Provider
	rng   random.Source
	log   *slog.Logger
	now   func() time.Time
}

func NewService(store repository.Store, rules *game.Provider, opts Options) *Service {
	if opts.RNG == nil {
		opts.RNG = random.Default()
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store: store,
		rules: rules,
		rng:   opts.RNG,
		log:   opts.Log.With("component", "economy"),
		now:   opts.Now,
	}
}

// SeedCatalog writes the rules catalog into the store.
func (s *Service) SeedCatalog(ctx context.Context) error {
	return s.store.UpsertNails(ctx, s.rules.Current().Catalog)
}

// EnsureProfile returns the user's profile, creating it with the starting
// balances and the lowest catalog nail on first sight.
func (s *Service) EnsureProfile(ctx context.Context, userID, nickname string) (domain.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if !errors.Is(err, errs.ErrNotFound) {
		return p, err
	}
	rules := s.rules.Current()
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		p = domain.Profile{ID: userID, Nickname: nickname, Soul: rules.StartingSoul, Masks: rules.StartingMasks}
		if err := tx.CreateProfile(ctx, &p); err != nil {
			return err
		}
		catalog, err := tx.ListNails(ctx)
		if err != nil || len(catalog) == 0 {
			return err
		}
		return tx.InsertOwned(ctx, &domain.OwnedNail{UserID: userID, NailID: catalog[0].ID})
	})
	if errors.Is(err, errs.ErrConflict) {
		// created concurrently
		return s.store.GetProfile(ctx, userID)
	}
	if err != nil {
		return domain.Profile{}, err
	}
	s.log.Info("profile created", "user", userID)
	return p, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (domain.Profile, error) {
	return s.store.GetProfile(ctx, userID)
}

func (s *Service) Catalog(ctx context.Context) ([]domain.NailDefinition, error) {
	return s.store.ListNails(ctx)
}

// DropTable publishes the normalized probabilities of a case tier.
func (s *Service) DropTable(ctx context.Context, tier gacha.CaseTier) ([]gacha.WeightEntry, error) {
	if !tier.Valid() {
		return nil, errs.Validation("economy.DropTable", "unknown case tier")
	}
	catalog, err := s.store.ListNails(ctx)
	if err != nil {
		return nil, err
	}
	return gacha.WeightTable(catalog, tier, s.rules.Current().Loot), nil
}

// InventoryItem is an owned nail joined with its definition.
type InventoryItem struct {
	domain.OwnedNail
	Nail      domain.NailDefinition `json:"nail"`
	SellValue int64                 `json:"sell_value"`
}

func (s *Service) Inventory(ctx context.Context, userID string) ([]InventoryItem, error) {
	owned, err := s.store.ListOwned(ctx, userID)
	if err != nil {
		return nil, err
	}
	catalog, err := s.store.ListNails(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.NailDefinition, len(catalog))
	for _, n := range catalog {
		byID[n.ID] = n
	}
	out := make([]InventoryItem, 0, len(owned))
	for _, o := range owned {
		def, ok := byID[o.NailID]
		if !ok {
			s.log.Warn("owned nail without definition", "user", userID, "nail", o.NailID)
			continue
		}
		out = append(out, InventoryItem{OwnedNail: o, Nail: def, SellValue: sellValue(def, o.IsDream)})
	}
	return out, nil
}

func (s *Service) History(ctx context.Context, userID string, limit int) ([]domain.CombatRecord, error) {
	return s.store.ListCombatRecords(ctx, userID, limit)
}

func sellValue(n domain.NailDefinition, dream bool) int64 {
	if dream {
		return n.DreamSellValue
	}
	return n.SellValue
}

// insufficient rewrites a failed guarded debit into a user-facing message.
func insufficient(op string, c domain.Currency, err error) error {
	var e *errs.Error
	if errors.As(err, &e) && e.Kind == errs.KindValidation && e.Op == "repository.ApplyDelta" {
		return errs.Validation(op, "not enough "+string(c))
	}
	return err
}
