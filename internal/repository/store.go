// Package repository persists profiles, inventories, links and progress.
// Balances only change through ApplyDelta and links are claimed through
// conditional updates, so concurrent callers cannot lose updates.
package repository

import (
	"context"
	"time"

	"github.com/kinger55555/thenailcasino/internal/domain"
)

type Store interface {
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)
	CreateProfile(ctx context.Context, p *domain.Profile) error
	// ApplyDelta adds d to the balances in one guarded step. It fails with a
	// validation error, changing nothing, if any balance would go negative.
	ApplyDelta(ctx context.Context, userID string, d domain.Delta) (domain.Profile, error)

	ListNails(ctx context.Context) ([]domain.NailDefinition, error)
	GetNail(ctx context.Context, id string) (domain.NailDefinition, error)
	UpsertNails(ctx context.Context, nails []domain.NailDefinition) error

	ListOwned(ctx context.Context, userID string) ([]domain.OwnedNail, error)
	GetOwned(ctx context.Context, userID, ownedID string) (domain.OwnedNail, error)
	InsertOwned(ctx context.Context, n *domain.OwnedNail) error
	// DeleteOwned removes the row only if userID owns it.
	DeleteOwned(ctx context.Context, userID, ownedID string) error

	AppendCombatRecord(ctx context.Context, r *domain.CombatRecord) error
	ListCombatRecords(ctx context.Context, userID string, limit int) ([]domain.CombatRecord, error)
	AppendConversion(ctx context.Context, r *domain.ConversionRecord) error

	CreateTradeLink(ctx context.Context, l *domain.TradeLink) error
	GetTradeLinkByCode(ctx context.Context, code string) (domain.TradeLink, error)
	// ClaimTradeLink sets claimed_by only if the link is unclaimed and not
	// offered by claimer.
	ClaimTradeLink(ctx context.Context, code, claimer string, at time.Time) (domain.TradeLink, error)

	CreateAdminLink(ctx context.Context, l *domain.AdminLink) error
	GetAdminLinkByCode(ctx context.Context, code string) (domain.AdminLink, error)
	CountClaims(ctx context.Context, linkID string) (int64, error)
	HasClaimed(ctx context.Context, linkID, userID string) (bool, error)
	// ReserveAdminClaim increments claim_count only while it is below the cap.
	ReserveAdminClaim(ctx context.Context, linkID string) error
	InsertAdminClaim(ctx context.Context, c *domain.AdminLinkClaim) error

	GetProgress(ctx context.Context, userID string) (domain.StoryProgress, error)
	SaveProgress(ctx context.Context, p *domain.StoryProgress) error

	HasRole(ctx context.Context, userID string, role domain.Role) (bool, error)
	GrantRole(ctx context.Context, userID string, role domain.Role) error

	// WithinTx runs fn in one transaction; fn's error rolls everything back.
	// Nested calls join the outer transaction.
	WithinTx(ctx context.Context, fn func(Store) error) error
}

// Migrator is implemented by stores that own a schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}

const (
	opApplyDelta  = "repository.ApplyDelta"
	opClaimTrade  = "repository.ClaimTradeLink"
	opReserve     = "repository.ReserveAdminClaim"
	opAdminClaim  = "repository.InsertAdminClaim"
	msgNoFunds    = "insufficient balance"
	msgClaimed    = "trade link already claimed"
	msgOwnLink    = "cannot claim your own trade link"
	msgExhausted  = "admin link has no uses left"
	msgRedeemed   = "admin link already redeemed"
	msgNoProfile  = "profile not found"
	msgNoTrade    = "trade link not found"
	msgNoAdmin    = "admin link not found"
	msgNoOwned    = "nail not in inventory"
	msgNoNail     = "nail not found"
	msgNoProgress = "story progress not found"
)
