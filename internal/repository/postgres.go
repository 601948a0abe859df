package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/kinger55555/thenailcasino/internal/domain"
	"github.com/kinger55555/thenailcasino/internal/errs"
)

// Postgres is the gorm-backed Store.
type Postgres struct {
	db *gorm.DB
}

// OpenPostgres connects with dsn. Driver errors are translated so unique
// violations surface as gorm.ErrDuplicatedKey.
func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewPostgres(db), nil
}

func NewPostgres(db *gorm.DB) *Postgres { return &Postgres{db: db} }

// Migrate creates or updates the schema.
func (p *Postgres) Migrate(ctx context.Context) error {
	err := p.db.WithContext(ctx).AutoMigrate(
		&domain.Profile{},
		&domain.UserRole{},
		&domain.NailDefinition{},
		&domain.OwnedNail{},
		&domain.CombatRecord{},
		&domain.ConversionRecord{},
		&domain.TradeLink{},
		&domain.AdminLink{},
		&domain.AdminLinkClaim{},
		&domain.StoryProgress{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (p *Postgres) WithinTx(ctx context.Context, fn func(Store) error) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Postgres{db: tx})
	})
}

// wrap maps driver errors into the errs taxonomy.
func wrap(op, notFound string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errs.NotFound(op, notFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errs.Conflict(op, "already exists")
	}
	return errs.Transient(op, err)
}

func (p *Postgres) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	var out domain.Profile
	err := p.db.WithContext(ctx).Where("id = ?", userID).First(&out).Error
	return out, wrap("repository.GetProfile", msgNoProfile, err)
}

func (p *Postgres) CreateProfile(ctx context.Context, prof *domain.Profile) error {
	if prof.Soul < 0 || prof.DreamPoints < 0 || prof.Masks < 0 || prof.Coins < 0 {
		return errs.Validation("repository.CreateProfile", "balances must be >= 0")
	}
	return wrap("repository.CreateProfile", "", p.db.WithContext(ctx).Create(prof).Error)
}

// ApplyDelta is one UPDATE whose WHERE clause keeps every touched balance >= 0.
func (p *Postgres) ApplyDelta(ctx context.Context, userID string, d domain.Delta) (domain.Profile, error) {
	q := p.db.WithContext(ctx).Model(&domain.Profile{}).Where("id = ?", userID)
	updates := map[string]any{"updated_at": time.Now()}
	for c, v := range d {
		if !c.Valid() {
			return domain.Profile{}, errs.Validation(opApplyDelta, fmt.Sprintf("unknown currency %q", c))
		}
		col := string(c)
		updates[col] = gorm.Expr(col+" + ?", v)
		if v < 0 {
			q = q.Where(col+" + ? >= 0", v)
		}
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return domain.Profile{}, errs.Transient(opApplyDelta, res.Error)
	}
	prof, err := p.GetProfile(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}
	if res.RowsAffected == 0 {
		return prof, errs.Validation(opApplyDelta, msgNoFunds)
	}
	return prof, nil
}

func (p *Postgres) ListNails(ctx context.Context) ([]domain.NailDefinition, error) {
	var out []domain.NailDefinition
	err := p.db.WithContext(ctx).Order("order_index").Find(&out).Error
	return out, wrap("repository.ListNails", "", err)
}

func (p *Postgres) GetNail(ctx context.Context, id string) (domain.NailDefinition, error) {
	var out domain.NailDefinition
	err := p.db.WithContext(ctx).Where("id = ?", id).First(&out).Error
	return out, wrap("repository.GetNail", msgNoNail, err)
}

func (p *Postgres) UpsertNails(ctx context.Context, nails []domain.NailDefinition) error {
	if len(nails) == 0 {
		return nil
	}
	err := p.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&nails).Error
	return wrap("repository.UpsertNails", "", err)
}

func (p *Postgres) ListOwned(ctx context.Context, userID string) ([]domain.OwnedNail, error) {
	var out []domain.OwnedNail
	err := p.db.WithContext(ctx).Where("user_id = ?", userID).Order("acquired_at DESC, id").Find(&out).Error
	return out, wrap("repository.ListOwned", "", err)
}

func (p *Postgres) GetOwned(ctx context.Context, userID, ownedID string) (domain.OwnedNail, error) {
	var out domain.OwnedNail
	err := p.db.WithContext(ctx).Where("id = ? AND user_id = ?", ownedID, userID).First(&out).Error
	return out, wrap("repository.GetOwned", msgNoOwned, err)
}

func (p *Postgres) InsertOwned(ctx context.Context, n *domain.OwnedNail) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return wrap("repository.InsertOwned", "", p.db.WithContext(ctx).Create(n).Error)
}

func (p *Postgres) DeleteOwned(ctx context.Context, userID, ownedID string) error {
	res := p.db.WithContext(ctx).Where("id = ? AND user_id = ?", ownedID, userID).Delete(&domain.OwnedNail{})
	if res.Error != nil {
		return errs.Transient("repository.DeleteOwned", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("repository.DeleteOwned", msgNoOwned)
	}
	return nil
}

func (p *Postgres) AppendCombatRecord(ctx context.Context, r *domain.CombatRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return wrap("repository.AppendCombatRecord", "", p.db.WithContext(ctx).Create(r).Error)
}

func (p *Postgres) ListCombatRecords(ctx context.Context, userID string, limit int) ([]domain.CombatRecord, error) {
	var out []domain.CombatRecord
	q := p.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return out, wrap("repository.ListCombatRecords", "", q.Find(&out).Error)
}

func (p *Postgres) AppendConversion(ctx context.Context, r *domain.ConversionRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return wrap("repository.AppendConversion", "", p.db.WithContext(ctx).Create(r).Error)
}

func (p *Postgres) CreateTradeLink(ctx context.Context, l *domain.TradeLink) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return wrap("repository.CreateTradeLink", "", p.db.WithContext(ctx).Create(l).Error)
}

func (p *Postgres) GetTradeLinkByCode(ctx context.Context, code string) (domain.TradeLink, error) {
	var out domain.TradeLink
	err := p.db.WithContext(ctx).Where("code = ?", code).First(&out).Error
	return out, wrap("repository.GetTradeLinkByCode", msgNoTrade, err)
}

// ClaimTradeLink is the serialization point for trades: the conditional
// UPDATE succeeds for exactly one claimer.
func (p *Postgres) ClaimTradeLink(ctx context.Context, code, claimer string, at time.Time) (domain.TradeLink, error) {
	res := p.db.WithContext(ctx).Model(&domain.TradeLink{}).
		Where("code = ? AND claimed_by IS NULL AND from_user_id <> ?", code, claimer).
		Updates(map[string]any{"claimed_by": claimer, "claimed_at": at})
	if res.Error != nil {
		return domain.TradeLink{}, errs.Transient(opClaimTrade, res.Error)
	}
	l, err := p.GetTradeLinkByCode(ctx, code)
	if err != nil {
		return domain.TradeLink{}, err
	}
	if res.RowsAffected == 1 {
		return l, nil
	}
	if l.FromUserID == claimer {
		return domain.TradeLink{}, errs.Validation(opClaimTrade, msgOwnLink)
	}
	return domain.TradeLink{}, errs.Conflict(opClaimTrade, msgClaimed)
}

func (p *Postgres) CreateAdminLink(ctx context.Context, l *domain.AdminLink) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return wrap("repository.CreateAdminLink", "", p.db.WithContext(ctx).Create(l).Error)
}

func (p *Postgres) GetAdminLinkByCode(ctx context.Context, code string) (domain.AdminLink, error) {
	var out domain.AdminLink
	err := p.db.WithContext(ctx).Where("code = ?", code).First(&out).Error
	return out, wrap("repository.GetAdminLinkByCode", msgNoAdmin, err)
}

func (p *Postgres) CountClaims(ctx context.Context, linkID string) (int64, error) {
	var n int64
	err := p.db.WithContext(ctx).Model(&domain.AdminLinkClaim{}).Where("link_id = ?", linkID).Count(&n).Error
	return n, wrap("repository.CountClaims", "", err)
}

func (p *Postgres) HasClaimed(ctx context.Context, linkID, userID string) (bool, error) {
	var n int64
	err := p.db.WithContext(ctx).Model(&domain.AdminLinkClaim{}).
		Where("link_id = ? AND user_id = ?", linkID, userID).Count(&n).Error
	return n > 0, wrap("repository.HasClaimed", "", err)
}

func (p *Postgres) ReserveAdminClaim(ctx context.Context, linkID string) error {
	res := p.db.WithContext(ctx).Model(&domain.AdminLink{}).
		Where("id = ? AND (uses_remaining IS NULL OR claim_count < uses_remaining)", linkID).
		Update("claim_count", gorm.Expr("claim_count + 1"))
	if res.Error != nil {
		return errs.Transient(opReserve, res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := p.db.WithContext(ctx).Model(&domain.AdminLink{}).Where("id = ?", linkID).Count(&n).Error; err != nil {
			return errs.Transient(opReserve, err)
		}
		if n == 0 {
			return errs.NotFound(opReserve, msgNoAdmin)
		}
		return errs.Conflict(opReserve, msgExhausted)
	}
	return nil
}

func (p *Postgres) InsertAdminClaim(ctx context.Context, c *domain.AdminLinkClaim) error {
	err := p.db.WithContext(ctx).Create(c).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errs.Conflict(opAdminClaim, msgRedeemed)
	}
	return wrap(opAdminClaim, "", err)
}

func (p *Postgres) GetProgress(ctx context.Context, userID string) (domain.StoryProgress, error) {
	var out domain.StoryProgress
	err := p.db.WithContext(ctx).Where("user_id = ?", userID).First(&out).Error
	return out, wrap("repository.GetProgress", msgNoProgress, err)
}

func (p *Postgres) SaveProgress(ctx context.Context, sp *domain.StoryProgress) error {
	return wrap("repository.SaveProgress", "", p.db.WithContext(ctx).Save(sp).Error)
}

func (p *Postgres) HasRole(ctx context.Context, userID string, role domain.Role) (bool, error) {
	var n int64
	err := p.db.WithContext(ctx).Model(&domain.UserRole{}).
		Where("user_id = ? AND role = ?", userID, role).Count(&n).Error
	return n > 0, wrap("repository.HasRole", "", err)
}

func (p *Postgres) GrantRole(ctx context.Context, userID string, role domain.Role) error {
	err := p.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.UserRole{UserID: userID, Role: role}).Error
	return wrap("repository.GrantRole", "", err)
}
