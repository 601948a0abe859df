package economy

import (
	"context"
	"errors"

	"github.com/kinger55555/thenailcasino/internal/domain"
	"github.com/kinger55555/thenailcasino/internal/errs"
	"github.com/kinger55555/thenailcasino/internal/repository"
)

const codeAttempts = 5

// CreateTradeLink escrows an owned nail behind a fresh code.
func (s *Service) CreateTradeLink(ctx context.Context, userID, ownedID string) (domain.TradeLink, error) {
	const op = "economy.CreateTradeLink"
	n := s.rules.Current().TradeCodeLength
	for range codeAttempts {
		code := NewCode(n, s.rng)
		if _, err := s.store.GetTradeLinkByCode(ctx, code); err == nil {
			continue
		} else if !errors.Is(err, errs.ErrNotFound) {
			return domain.TradeLink{}, err
		}
		var link domain.TradeLink
		err := s.store.WithinTx(ctx, func(tx repository.Store) error {
			owned, err := tx.GetOwned(ctx, userID, ownedID)
			if err != nil {
				return err
			}
			link = domain.TradeLink{
				Code:       code,
				FromUserID: userID,
				UserNailID: owned.ID,
				NailID:     owned.NailID,
				IsDream:    owned.IsDream,
			}
			if err := tx.CreateTradeLink(ctx, &link); err != nil {
				return err
			}
			return tx.DeleteOwned(ctx, userID, ownedID)
		})
		if errors.Is(err, errs.ErrConflict) {
			continue
		}
		if err != nil {
			return domain.TradeLink{}, err
		}
		s.log.Info("trade link created", "user", userID, "code", code, "nail", link.NailID)
		return link, nil
	}
	return domain.TradeLink{}, errs.Conflict(op, "could not allocate a unique trade code")
}

// InspectTradeLink shows caller what a link offers before claiming it.
func (s *Service) InspectTradeLink(ctx context.Context, caller, code string) (domain.TradeLink, domain.NailDefinition, error) {
	const op = "economy.InspectTradeLink"
	link, err := s.store.GetTradeLinkByCode(ctx, NormalizeCode(code))
	if err != nil {
		return domain.TradeLink{}, domain.NailDefinition{}, err
	}
	switch {
	case link.Claimed():
		return domain.TradeLink{}, domain.NailDefinition{}, errs.Conflict(op, "trade link already claimed")
	case link.FromUserID == caller:
		return domain.TradeLink{}, domain.NailDefinition{}, errs.Validation(op, "cannot claim your own trade link")
	}
	def, err := s.store.GetNail(ctx, link.NailID)
	if err != nil {
		return domain.TradeLink{}, domain.NailDefinition{}, err
	}
	return link, def, nil
}

// ClaimTrade moves the escrowed nail to claimer. At most one claim succeeds.
func (s *Service) ClaimTrade(ctx context.Context, claimer, code string) (domain.OwnedNail, error) {
	var owned domain.OwnedNail
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		link, err := tx.ClaimTradeLink(ctx, NormalizeCode(code), claimer, s.now())
		if err != nil {
			return err
		}
		owned = domain.OwnedNail{UserID: claimer, NailID: link.NailID, IsDream: link.IsDream}
		return tx.InsertOwned(ctx, &owned)
	})
	if err != nil {
		return domain.OwnedNail{}, err
	}
	s.log.Info("trade claimed", "user", claimer, "code", NormalizeCode(code), "nail", owned.NailID)
	return owned, nil
}

// AdminLinkRequest describes a currency grant. Uses nil means unlimited.
type AdminLinkRequest struct {
	Soul        int64  `json:"soul"`
	DreamPoints int64  `json:"dream_points"`
	Uses        *int64 `json:"uses"`
}

// CreateAdminLink issues a redeemable grant. Only admins may call it.
func (s *Service) CreateAdminLink(ctx context.Context, adminID string, req AdminLinkRequest) (domain.AdminLink, error) {
	const op = "economy.CreateAdminLink"
	ok, err := s.store.HasRole(ctx, adminID, domain.RoleAdmin)
	if err != nil {
		return domain.AdminLink{}, err
	}
	if !ok {
		return domain.AdminLink{}, errs.Forbidden(op, "admin role required")
	}
	switch {
	case req.Soul < 0 || req.DreamPoints < 0:
		return domain.AdminLink{}, errs.Validation(op, "amounts must be >= 0")
	case req.Soul == 0 && req.DreamPoints == 0:
		return domain.AdminLink{}, errs.Validation(op, "link must grant something")
	case req.Uses != nil && *req.Uses < 1:
		return domain.AdminLink{}, errs.Validation(op, "uses must be >= 1")
	}

	n := s.rules.Current().AdminCodeLength
	for range codeAttempts {
		link := domain.AdminLink{
			Code:              NewCode(n, s.rng),
			CreatedBy:         adminID,
			SoulAmount:        req.Soul,
			DreamPointsAmount: req.DreamPoints,
			UsesRemaining:     req.Uses,
		}
		err := s.store.CreateAdminLink(ctx, &link)
		if errors.Is(err, errs.ErrConflict) {
			continue
		}
		if err != nil {
			return domain.AdminLink{}, err
		}
		s.log.Info("admin link created", "admin", adminID, "code", link.Code)
		return link, nil
	}
	return domain.AdminLink{}, errs.Conflict(op, "could not allocate a unique admin code")
}

// AdminLinkStatus is an admin's view of a grant link.
type AdminLinkStatus struct {
	Code        string `json:"code"`
	Soul        int64  `json:"soul"`
	DreamPoints int64  `json:"dream_points"`
	Uses        *int64 `json:"uses"`
	Claims      int64  `json:"claims"`
	Remaining   *int64 `json:"remaining"` // nil for unlimited links
}

// InspectAdminLink reports how many users redeemed a link and how many uses
// are left. Only admins may call it.
func (s *Service) InspectAdminLink(ctx context.Context, adminID, code string) (AdminLinkStatus, error) {
	const op = "economy.InspectAdminLink"
	ok, err := s.store.HasRole(ctx, adminID, domain.RoleAdmin)
	if err != nil {
		return AdminLinkStatus{}, err
	}
	if !ok {
		return AdminLinkStatus{}, errs.Forbidden(op, "admin role required")
	}
	link, err := s.store.GetAdminLinkByCode(ctx, NormalizeCode(code))
	if err != nil {
		return AdminLinkStatus{}, err
	}
	claims, err := s.store.CountClaims(ctx, link.ID)
	if err != nil {
		return AdminLinkStatus{}, err
	}
	st := AdminLinkStatus{
		Code:        link.Code,
		Soul:        link.SoulAmount,
		DreamPoints: link.DreamPointsAmount,
		Uses:        link.UsesRemaining,
		Claims:      claims,
	}
	if link.UsesRemaining != nil {
		left := max(0, *link.UsesRemaining-claims)
		st.Remaining = &left
	}
	return st, nil
}

// RedeemResult reports a successful redemption.
type RedeemResult struct {
	Soul        int64          `json:"soul"`
	DreamPoints int64          `json:"dream_points"`
	Profile     domain.Profile `json:"profile"`
}

// RedeemAdminCode credits a grant once per user while uses remain.
func (s *Service) RedeemAdminCode(ctx context.Context, userID, code string) (RedeemResult, error) {
	const op = "economy.RedeemAdminCode"
	code = NormalizeCode(code)
	var res RedeemResult
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		link, err := tx.GetAdminLinkByCode(ctx, code)
		if err != nil {
			return err
		}
		claimed, err := tx.HasClaimed(ctx, link.ID, userID)
		if err != nil {
			return err
		}
		if claimed {
			return errs.Conflict(op, "code already redeemed")
		}
		if link.Exhausted() {
			return errs.Conflict(op, "code has no uses left")
		}
		if err := tx.ReserveAdminClaim(ctx, link.ID); err != nil {
			return err
		}
		if err := tx.InsertAdminClaim(ctx, &domain.AdminLinkClaim{LinkID: link.ID, UserID: userID, ClaimedAt: s.now()}); err != nil {
			return err
		}
		prof, err := tx.ApplyDelta(ctx, userID, domain.Delta{
			domain.Soul:        link.SoulAmount,
			domain.DreamPoints: link.DreamPointsAmount,
		})
		if err != nil {
			return err
		}
		res = RedeemResult{Soul: link.SoulAmount, DreamPoints: link.DreamPointsAmount, Profile: prof}
		return nil
	})
	if err != nil {
		return RedeemResult{}, err
	}
	s.log.Info("admin code redeemed", "user", userID, "code", code)
	return res, nil
}
