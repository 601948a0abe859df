package repository

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kinger55555/thenailcasino/internal/domain"
	"github.com/kinger55555/thenailcasino/internal/errs"
)

type memState struct {
	profiles    map[string]domain.Profile
	nails       map[string]domain.NailDefinition
	owned       map[string]domain.OwnedNail
	combat      []domain.CombatRecord
	conversions []domain.ConversionRecord
	trades      map[string]domain.TradeLink // by code
	admin       map[string]domain.AdminLink // by code
	claims      map[[2]string]domain.AdminLinkClaim
	progress    map[string]domain.StoryProgress
	roles       map[[2]string]bool
}

func newMemState() *memState {
	return &memState{
		profiles: map[string]domain.Profile{},
		nails:    map[string]domain.NailDefinition{},
		owned:    map[string]domain.OwnedNail{},
		trades:   map[string]domain.TradeLink{},
		admin:    map[string]domain.AdminLink{},
		claims:   map[[2]string]domain.AdminLinkClaim{},
		progress: map[string]domain.StoryProgress{},
		roles:    map[[2]string]bool{},
	}
}

func (s *memState) clone() *memState {
	out := &memState{
		profiles:    maps.Clone(s.profiles),
		nails:       maps.Clone(s.nails),
		owned:       maps.Clone(s.owned),
		combat:      slices.Clone(s.combat),
		conversions: slices.Clone(s.conversions),
		trades:      maps.Clone(s.trades),
		admin:       maps.Clone(s.admin),
		claims:      maps.Clone(s.claims),
		progress:    make(map[string]domain.StoryProgress, len(s.progress)),
		roles:       maps.Clone(s.roles),
	}
	for k, v := range s.progress {
		out.progress[k] = v.Clone()
	}
	return out
}

// Memory is an in-process Store. Transactions hold the store lock and work
// on a copy that replaces the live state on commit.
type Memory struct {
	mu   *sync.Mutex
	st   *memState
	inTx bool
}

func NewMemory() *Memory {
	return &Memory{mu: &sync.Mutex{}, st: newMemState()}
}

func (m *Memory) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *Memory) WithinTx(ctx context.Context, fn func(Store) error) error {
	if m.inTx {
		return fn(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return errs.Transient("repository.WithinTx", err)
	}
	tx := &Memory{mu: m.mu, st: m.st.clone(), inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	m.st = tx.st
	return nil
}

func (m *Memory) GetProfile(_ context.Context, userID string) (domain.Profile, error) {
	defer m.lock()()
	p, ok := m.st.profiles[userID]
	if !ok {
		return domain.Profile{}, errs.NotFound("repository.GetProfile", msgNoProfile)
	}
	return p, nil
}

func (m *Memory) CreateProfile(_ context.Context, p *domain.Profile) error {
	defer m.lock()()
	if _, ok := m.st.profiles[p.ID]; ok {
		return errs.Conflict("repository.CreateProfile", "profile already exists")
	}
	if p.Soul < 0 || p.DreamPoints < 0 || p.Masks < 0 || p.Coins < 0 {
		return errs.Validation("repository.CreateProfile", "balances must be >= 0")
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	m.st.profiles[p.ID] = *p
	return nil
}

func (m *Memory) ApplyDelta(_ context.Context, userID string, d domain.Delta) (domain.Profile, error) {
	defer m.lock()()
	p, ok := m.st.profiles[userID]
	if !ok {
		return domain.Profile{}, errs.NotFound(opApplyDelta, msgNoProfile)
	}
	next, ok := d.Apply(p)
	if !ok {
		return p, errs.Validation(opApplyDelta, msgNoFunds)
	}
	next.UpdatedAt = time.Now()
	m.st.profiles[userID] = next
	return next, nil
}

func (m *Memory) ListNails(_ context.Context) ([]domain.NailDefinition, error) {
	defer m.lock()()
	out := slices.Collect(maps.Values(m.st.nails))
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (m *Memory) GetNail(_ context.Context, id string) (domain.NailDefinition, error) {
	defer m.lock()()
	n, ok := m.st.nails[id]
	if !ok {
		return domain.NailDefinition{}, errs.NotFound("repository.GetNail", msgNoNail)
	}
	return n, nil
}

func (m *Memory) UpsertNails(_ context.Context, nails []domain.NailDefinition) error {
	defer m.lock()()
	for _, n := range nails {
		m.st.nails[n.ID] = n
	}
	return nil
}

func (m *Memory) ListOwned(_ context.Context, userID string) ([]domain.OwnedNail, error) {
	defer m.lock()()
	var out []domain.OwnedNail
	for _, n := range m.st.owned {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AcquiredAt.Equal(out[j].AcquiredAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].AcquiredAt.After(out[j].AcquiredAt)
	})
	return out, nil
}

func (m *Memory) GetOwned(_ context.Context, userID, ownedID string) (domain.OwnedNail, error) {
	defer m.lock()()
	n, ok := m.st.owned[ownedID]
	if !ok || n.UserID != userID {
		return domain.OwnedNail{}, errs.NotFound("repository.GetOwned", msgNoOwned)
	}
	return n, nil
}

func (m *Memory) InsertOwned(_ context.Context, n *domain.OwnedNail) error {
	defer m.lock()()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.AcquiredAt.IsZero() {
		n.AcquiredAt = time.Now()
	}
	if _, ok := m.st.owned[n.ID]; ok {
		return errs.Conflict("repository.InsertOwned", "owned nail already exists")
	}
	m.st.owned[n.ID] = *n
	return nil
}

func (m *Memory) DeleteOwned(_ context.Context, userID, ownedID string) error {
	defer m.lock()()
	n, ok := m.st.owned[ownedID]
	if !ok || n.UserID != userID {
		return errs.NotFound("repository.DeleteOwned", msgNoOwned)
	}
	delete(m.st.owned, ownedID)
	return nil
}

func (m *Memory) AppendCombatRecord(_ context.Context, r *domain.CombatRecord) error {
	defer m.lock()()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	m.st.combat = append(m.st.combat, *r)
	return nil
}

func (m *Memory) ListCombatRecords(_ context.Context, userID string, limit int) ([]domain.CombatRecord, error) {
	defer m.lock()()
	var out []domain.CombatRecord
	for i := len(m.st.combat) - 1; i >= 0; i-- {
		if r := m.st.combat[i]; r.UserID == userID {
			out = append(out, r)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) AppendConversion(_ context.Context, r *domain.ConversionRecord) error {
	defer m.lock()()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	m.st.conversions = append(m.st.conversions, *r)
	return nil
}

// Conversions returns the audit log of userID.
func (m *Memory) Conversions(userID string) []domain.ConversionRecord {
	defer m.lock()()
	var out []domain.ConversionRecord
	for _, r := range m.st.conversions {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

func (m *Memory) CreateTradeLink(_ context.Context, l *domain.TradeLink) error {
	defer m.lock()()
	if _, ok := m.st.trades[l.Code]; ok {
		return errs.Conflict("repository.CreateTradeLink", fmt.Sprintf("trade code %s already in use", l.Code))
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	m.st.trades[l.Code] = *l
	return nil
}

func (m *Memory) GetTradeLinkByCode(_ context.Context, code string) (domain.TradeLink, error) {
	defer m.lock()()
	l, ok := m.st.trades[code]
	if !ok {
		return domain.TradeLink{}, errs.NotFound("repository.GetTradeLinkByCode", msgNoTrade)
	}
	return l, nil
}

func (m *Memory) ClaimTradeLink(_ context.Context, code, claimer string, at time.Time) (domain.TradeLink, error) {
	defer m.lock()()
	l, ok := m.st.trades[code]
	switch {
	case !ok:
		return domain.TradeLink{}, errs.NotFound(opClaimTrade, msgNoTrade)
	case l.Claimed():
		return domain.TradeLink{}, errs.Conflict(opClaimTrade, msgClaimed)
	case l.FromUserID == claimer:
		return domain.TradeLink{}, errs.Validation(opClaimTrade, msgOwnLink)
	}
	by := claimer
	l.ClaimedBy, l.ClaimedAt = &by, &at
	m.st.trades[code] = l
	return l, nil
}

func (m *Memory) CreateAdminLink(_ context.Context, l *domain.AdminLink) error {
	defer m.lock()()
	if _, ok := m.st.admin[l.Code]; ok {
		return errs.Conflict("repository.CreateAdminLink", fmt.Sprintf("admin code %s already in use", l.Code))
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	m.st.admin[l.Code] = *l
	return nil
}

func (m *Memory) GetAdminLinkByCode(_ context.Context, code string) (domain.AdminLink, error) {
	defer m.lock()()
	l, ok := m.st.admin[code]
	if !ok {
		return domain.AdminLink{}, errs.NotFound("repository.GetAdminLinkByCode", msgNoAdmin)
	}
	return l, nil
}

func (m *Memory) CountClaims(_ context.Context, linkID string) (int64, error) {
	defer m.lock()()
	var n int64
	for k := range m.st.claims {
		if k[0] == linkID {
			n++
		}
	}
	return n, nil
}

func (m *Memory) HasClaimed(_ context.Context, linkID, userID string) (bool, error) {
	defer m.lock()()
	_, ok := m.st.claims[[2]string{linkID, userID}]
	return ok, nil
}

func (m *Memory) ReserveAdminClaim(_ context.Context, linkID string) error {
	defer m.lock()()
	for code, l := range m.st.admin {
		if l.ID != linkID {
			continue
		}
		if l.Exhausted() {
			return errs.Conflict(opReserve, msgExhausted)
		}
		l.ClaimCount++
		m.st.admin[code] = l
		return nil
	}
	return errs.NotFound(opReserve, msgNoAdmin)
}

func (m *Memory) InsertAdminClaim(_ context.Context, c *domain.AdminLinkClaim) error {
	defer m.lock()()
	key := [2]string{c.LinkID, c.UserID}
	if _, ok := m.st.claims[key]; ok {
		return errs.Conflict(opAdminClaim, msgRedeemed)
	}
	if c.ClaimedAt.IsZero() {
		c.ClaimedAt = time.Now()
	}
	m.st.claims[key] = *c
	return nil
}

func (m *Memory) GetProgress(_ context.Context, userID string) (domain.StoryProgress, error) {
	defer m.lock()()
	p, ok := m.st.progress[userID]
	if !ok {
		return domain.StoryProgress{}, errs.NotFound("repository.GetProgress", msgNoProgress)
	}
	return p.Clone(), nil
}

func (m *Memory) SaveProgress(_ context.Context, p *domain.StoryProgress) error {
	defer m.lock()()
	p.UpdatedAt = time.Now()
	m.st.progress[p.UserID] = p.Clone()
	return nil
}

func (m *Memory) HasRole(_ context.Context, userID string, role domain.Role) (bool, error) {
	defer m.lock()()
	return m.st.roles[[2]string{userID, string(role)}], nil
}

func (m *Memory) GrantRole(_ context.Context, userID string, role domain.Role) error {
	defer m.lock()()
	m.st.roles[[2]string{userID, string(role)}] = true
	return nil
}
