package economy

import (
	"context"
	"fmt"

	"github.com/kinger55555/thenailcasino/internal/domain"
	"github.com/kinger55555/thenailcasino/internal/errs"
	"github.com/kinger55555/thenailcasino/internal/gacha"
	"github.com/kinger55555/thenailcasino/internal/repository"
)

// CaseResult is what a case opening hands back to the client.
type CaseResult struct {
	Owned       domain.OwnedNail      `json:"owned"`
	Nail        domain.NailDefinition `json:"nail"`
	IsBonus     bool                  `json:"is_bonus"`
	Strip       []gacha.StripItem     `json:"strip"`
	WinnerIndex int                   `json:"winner_index"`
	Profile     domain.Profile        `json:"profile"`
}

// OpenCase charges the case price and adds the drawn nail in one transaction.
func (s *Service) OpenCase(ctx context.Context, userID string, tier gacha.CaseTier) (CaseResult, error) {
	const op = "economy.OpenCase"
	if !tier.Valid() {
		return CaseResult{}, errs.Validation(op, fmt.Sprintf("unknown case tier %q", tier))
	}
	rules := s.rules.Current()
	price, ok := rules.Prices.CasePrice(tier)
	if !ok {
		return CaseResult{}, errs.Configuration(op, "no price for case tier "+string(tier))
	}
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return CaseResult{}, err
	}
	if price.Affordable(p.Balance(price.Currency)) < 1 {
		return CaseResult{}, errs.Validation(op, "not enough "+string(price.Currency))
	}
	catalog, err := s.store.ListNails(ctx)
	if err != nil {
		return CaseResult{}, err
	}
	nail, bonus, err := gacha.NewResolver(rules.Loot, s.rng).Draw(catalog, tier)
	if err != nil {
		return CaseResult{}, err
	}
	strip, idx, err := gacha.BuildStrip(gacha.Pool(catalog, tier), nail, bonus, rules.Strip, rules.Loot.BonusChance, s.rng)
	if err != nil {
		return CaseResult{}, err
	}

	res := CaseResult{Nail: nail, IsBonus: bonus, Strip: strip, WinnerIndex: idx}
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		prof, err := tx.ApplyDelta(ctx, userID, domain.Delta{price.Currency: -price.Cost})
		if err != nil {
			return insufficient(op, price.Currency, err)
		}
		res.Profile = prof
		res.Owned = domain.OwnedNail{UserID: userID, NailID: nail.ID, IsDream: bonus}
		return tx.InsertOwned(ctx, &res.Owned)
	})
	if err != nil {
		return CaseResult{}, err
	}
	s.log.Info("case opened", "user", userID, "tier", tier, "nail", nail.ID, "bonus", bonus)
	return res, nil
}

// Sell removes an owned nail and credits its sell value in soul.
func (s *Service) Sell(ctx context.Context, userID, ownedID string) (domain.Profile, error) {
	var out domain.Profile
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		owned, err := tx.GetOwned(ctx, userID, ownedID)
		if err != nil {
			return err
		}
		def, err := tx.GetNail(ctx, owned.NailID)
		if err != nil {
			return err
		}
		if err := tx.DeleteOwned(ctx, userID, ownedID); err != nil {
			return err
		}
		out, err = tx.ApplyDelta(ctx, userID, domain.Delta{domain.Soul: sellValue(def, owned.IsDream)})
		return err
	})
	if err != nil {
		return domain.Profile{}, err
	}
	s.log.Info("nail sold", "user", userID, "owned", ownedID)
	return out, nil
}

// Discard removes an owned nail without credit.
func (s *Service) Discard(ctx context.Context, userID, ownedID string) error {
	return s.store.DeleteOwned(ctx, userID, ownedID)
}

// ConvertResult reports a finished exchange.
type ConvertResult struct {
	From     domain.Currency `json:"from"`
	To       domain.Currency `json:"to"`
	Debited  int64           `json:"debited"`
	Credited int64           `json:"credited"`
	Profile  domain.Profile  `json:"profile"`
}

// Convert exchanges currencies at the configured rate. Reverse conversions
// are recorded for audit.
func (s *Service) Convert(ctx context.Context, userID string, from, to domain.Currency, amount int64) (ConvertResult, error) {
	const op = "economy.Convert"
	conv, err := s.rules.Current().Prices.Convert(from, to, amount)
	if err != nil {
		return ConvertResult{}, errs.Validation(op, err.Error())
	}
	res := ConvertResult{From: from, To: to, Debited: conv.Debited, Credited: conv.Credited}
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		prof, err := tx.ApplyDelta(ctx, userID, domain.Delta{from: -conv.Debited, to: conv.Credited})
		if err != nil {
			return insufficient(op, from, err)
		}
		res.Profile = prof
		if conv.Forward {
			return nil
		}
		return tx.AppendConversion(ctx, &domain.ConversionRecord{
			UserID: userID, From: from, To: to, Debited: conv.Debited, Credited: conv.Credited,
		})
	})
	if err != nil {
		return ConvertResult{}, err
	}
	s.log.Info("currency converted", "user", userID, "from", from, "to", to, "debited", conv.Debited, "credited", conv.Credited)
	return res, nil
}

// BuyMasks spends the mask price qty times in one guarded step.
func (s *Service) BuyMasks(ctx context.Context, userID string, qty int64) (domain.Profile, error) {
	const op = "economy.BuyMasks"
	price := s.rules.Current().Prices.Mask
	q, err := price.Quote(qty)
	if err != nil {
		return domain.Profile{}, errs.Validation(op, err.Error())
	}
	p, err := s.store.ApplyDelta(ctx, userID, domain.Delta{q.Currency: -q.Total, domain.Masks: qty})
	if err != nil {
		return domain.Profile{}, insufficient(op, q.Currency, err)
	}
	s.log.Info("masks bought", "user", userID, "qty", qty, "spent", q.Total)
	return p, nil
}
