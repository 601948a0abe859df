// Package arena runs battles: it spends the entry mask, keeps one live
// session per user, drives the timing clock and commits the result.
package arena

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kinger55555/thenailcasino/internal/combat"
	"github.com/kinger55555/thenailcasino/internal/domain"
	"github.com/kinger55555/thenailcasino/internal/errs"
	"github.com/kinger55555/thenailcasino/internal/game"
	"github.com/kinger55555/thenailcasino/internal/random"
	"github.com/kinger55555/thenailcasino/internal/repository"
)

// Outcome is what a finished battle commits.
type Outcome struct {
	BattleID   string         `json:"battle_id"`
	UserID     string         `json:"user_id"`
	NailID     string         `json:"nail_id"`
	Won        bool           `json:"won"`
	Dream      bool           `json:"dream"`
	Difficulty int            `json:"difficulty"`
	Boss       string         `json:"boss,omitempty"`
	Reward     combat.Reward  `json:"reward"`
	Profile    domain.Profile `json:"-"`
}

// FinishHook runs inside the transaction that commits the outcome.
// Returning an error rolls the whole commit back.
type FinishHook func(ctx context.Context, tx repository.Store, o Outcome) error

// StartRequest describes a battle to start.
type StartRequest struct {
	UserID      string
	OwnedNailID string
	Dream       bool
	Difficulty  int
	Boss        string
	OnFinish    FinishHook
}

// AttackResult is one turn plus the committed outcome on the finishing turn.
type AttackResult struct {
	combat.TurnResult
	Outcome *Outcome `json:"outcome,omitempty"`
}

// Battle is one registered session.
type Battle struct {
	ID          string
	UserID      string
	OwnedNailID string
	NailID      string
	Dream       bool
	Boss        string
	StartedAt   time.Time
	Session     *combat.Session

	hook   FinishHook
	cancel context.CancelFunc

	mu        sync.Mutex
	committed *Outcome
}

const commitTimeout = 10 * time.Second

func errShuttingDown(op string) error {
	return &errs.Error{Kind: errs.KindTransient, Op: op, Msg: "arena is shutting down"}
}

// Options tune a Service.
type Options struct {
	// RunClock ticks sessions on a goroutine. Off in tests that drive the bar themselves.
	RunClock bool
	RNG      random.Source
	Log      *slog.Logger
}

type Service struct {
	store repository.Store
	rules *game.Provider
	opts  Options
	log   *slog.Logger

	mu      sync.Mutex
	battles map[string]*Battle // by user id; nil value marks a start in progress
	closed  bool
}

func NewService(store repository.Store, rules *game.Provider, opts Options) *Service {
	if opts.RNG == nil {
		opts.RNG = random.Default()
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	return &Service{
		store:   store,
		rules:   rules,
		opts:    opts,
		log:     opts.Log.With("component", "arena"),
		battles: make(map[string]*Battle),
	}
}

// StartBattle validates the request, spends one mask and registers a live session.
func (s *Service) StartBattle(ctx context.Context, req StartRequest) (*Battle, error) {
	const op = "arena.StartBattle"
	rules := s.rules.Current()

	preset, ok := rules.Presets.For(req.Difficulty)
	if !ok {
		return nil, errs.Validation(op, "unknown difficulty level")
	}
	var boss combat.BossProfile
	if req.Boss != "" {
		if boss, ok = rules.Bosses.Get(req.Boss); !ok {
			return nil, errs.Validation(op, "unknown boss "+req.Boss)
		}
	}

	if err := s.reserve(req.UserID); err != nil {
		return nil, err
	}
	b, err := s.start(ctx, rules, preset, boss, req)
	if err != nil {
		s.release(req.UserID, nil)
		return nil, err
	}

	s.mu.Lock()
	s.battles[req.UserID] = b
	closed := s.closed
	s.mu.Unlock()
	if closed {
		// Shutdown ran while the battle was starting
		b.Session.Abort()
		if _, err := s.commit(ctx, b); err != nil {
			return nil, err
		}
		return nil, errShuttingDown(op)
	}

	if s.opts.RunClock {
		clockCtx, cancel := context.WithCancel(context.Background())
		b.cancel = cancel
		go s.runClock(clockCtx, b, rules.Combat.TickInterval)
	}
	s.log.Info("battle started", "user", req.UserID, "battle", b.ID, "difficulty", preset.Level, "boss", req.Boss, "dream", req.Dream)
	return b, nil
}

func (s *Service) start(ctx context.Context, rules *game.Rules, preset combat.Preset, boss combat.BossProfile, req StartRequest) (*Battle, error) {
	const op = "arena.StartBattle"
	owned, err := s.store.GetOwned(ctx, req.UserID, req.OwnedNailID)
	if err != nil {
		return nil, err
	}
	if req.Dream && !owned.IsDream {
		return nil, errs.Validation(op, "dream battles need a dream nail")
	}
	nail, err := s.store.GetNail(ctx, owned.NailID)
	if err != nil {
		return nil, err
	}
	abilities, err := s.abilities(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	sess, err := combat.NewSession(combat.Params{
		Config:    rules.Combat,
		Preset:    preset,
		Boss:      boss,
		Abilities: abilities,
		Nail:      combat.Nail{ID: nail.ID, BaseDamage: nail.BaseDamage},
		Dream:     req.Dream,
		Modifiers: rules.Battle(),
		RNG:       s.opts.RNG,
	})
	if err != nil {
		return nil, &errs.Error{Kind: errs.KindConfiguration, Op: op, Msg: "battle rules invalid", Err: err}
	}

	// the mask is the last step so nothing above can strand it
	if _, err := s.store.ApplyDelta(ctx, req.UserID, domain.Delta{domain.Masks: -1}); err != nil {
		if errors.Is(err, errs.ErrValidation) {
			return nil, errs.Validation(op, "no masks left")
		}
		return nil, err
	}
	if err := sess.Start(); err != nil {
		return nil, &errs.Error{Kind: errs.KindInternal, Op: op, Msg: "session start", Err: err}
	}
	return &Battle{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		OwnedNailID: owned.ID,
		NailID:      nail.ID,
		Dream:       req.Dream,
		Boss:        boss.ID,
		StartedAt:   time.Now(),
		Session:     sess,
		hook:        req.OnFinish,
	}, nil
}

func (s *Service) abilities(ctx context.Context, userID string) (combat.AbilitySet, error) {
	p, err := s.store.GetProgress(ctx, userID)
	if errors.Is(err, errs.ErrNotFound) {
		return combat.AbilitySet{}, nil
	}
	if err != nil {
		return nil, err
	}
	return combat.NewAbilitySet(p.UnlockedAbilities...), nil
}

// runClock drives the bar and ends the battle as a defeat when the player
// stops attacking for longer than the idle timeout.
func (s *Service) runClock(ctx context.Context, b *Battle, interval time.Duration) {
	err := combat.Clock(ctx, b.Session, interval)
	if !errors.Is(err, combat.ErrIdleTimeout) {
		return
	}
	s.log.Info("battle idle, ending as defeat", "user", b.UserID, "battle", b.ID)
	cctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()
	// on failure the battle stays registered and Forfeit retries the commit
	_, _ = s.commit(cctx, b)
}

func (s *Service) reserve(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errShuttingDown("arena.StartBattle")
	}
	if _, busy := s.battles[userID]; busy {
		return errs.Conflict("arena.StartBattle", "a battle is already in progress")
	}
	s.battles[userID] = nil
	return nil
}

// release drops the registry entry if it still points at b.
func (s *Service) release(userID string, b *Battle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.battles[userID]; ok && cur == b {
		delete(s.battles, userID)
	}
}

func (s *Service) battle(userID string) (*Battle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.battles[userID]
	if b == nil {
		return nil, errs.NotFound("arena", "no battle in progress")
	}
	return b, nil
}

// Attack samples the live bar of the user's battle.
func (s *Service) Attack(ctx context.Context, userID string) (AttackResult, error) {
	b, err := s.battle(userID)
	if err != nil {
		return AttackResult{}, err
	}
	return s.afterTurn(ctx, b, b.Session.Attack())
}

// AttackAt resolves an attack at a fixed bar position. Used by replays and tests.
func (s *Service) AttackAt(ctx context.Context, userID string, v float64) (AttackResult, error) {
	b, err := s.battle(userID)
	if err != nil {
		return AttackResult{}, err
	}
	return s.afterTurn(ctx, b, b.Session.AttackAt(v))
}

// Forfeit ends the user's battle as a defeat.
func (s *Service) Forfeit(ctx context.Context, userID string) (*Outcome, error) {
	b, err := s.battle(userID)
	if err != nil {
		return nil, err
	}
	b.Session.Abort()
	return s.commit(ctx, b)
}

// Current returns a snapshot of the user's live battle.
func (s *Service) Current(userID string) (combat.Snapshot, error) {
	b, err := s.battle(userID)
	if err != nil {
		return combat.Snapshot{}, err
	}
	return b.Session.Snapshot(), nil
}

func (s *Service) afterTurn(ctx context.Context, b *Battle, res combat.TurnResult) (AttackResult, error) {
	out := AttackResult{TurnResult: res}
	if !res.Phase.Terminal() {
		return out, nil
	}
	o, err := s.commit(ctx, b)
	if err != nil {
		return out, err
	}
	out.Outcome = o
	return out, nil
}

// commit writes history, credits the reward and runs the hook in one
// transaction. A failed commit leaves the battle registered so the next
// call retries it.
func (s *Service) commit(ctx context.Context, b *Battle) (*Outcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.committed != nil {
		return b.committed, nil
	}

	snap := b.Session.Snapshot()
	o := Outcome{
		BattleID:   b.ID,
		UserID:     b.UserID,
		NailID:     b.NailID,
		Won:        snap.Phase == combat.Victory,
		Dream:      b.Dream,
		Difficulty: snap.Difficulty,
		Boss:       b.Boss,
	}
	if snap.Reward != nil {
		o.Reward = *snap.Reward
	}

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		rec := &domain.CombatRecord{
			UserID:            o.UserID,
			NailID:            o.NailID,
			Won:               o.Won,
			IsDream:           o.Dream,
			SoulGained:        o.Reward.Soul,
			DreamPointsGained: o.Reward.DreamPoints,
		}
		if err := tx.AppendCombatRecord(ctx, rec); err != nil {
			return err
		}
		prof, err := tx.ApplyDelta(ctx, o.UserID, domain.Delta{
			domain.Soul:        o.Reward.Soul,
			domain.DreamPoints: o.Reward.DreamPoints,
		})
		if err != nil {
			return err
		}
		o.Profile = prof
		if b.hook != nil {
			return b.hook(ctx, tx, o)
		}
		return nil
	})
	if err != nil {
		s.log.Error("battle commit failed", "user", b.UserID, "battle", b.ID, "err", err)
		return nil, err
	}

	b.committed = &o
	if b.cancel != nil {
		b.cancel()
	}
	s.release(b.UserID, b)
	s.log.Info("battle finished", "user", o.UserID, "battle", o.BattleID, "won", o.Won,
		"soul", o.Reward.Soul, "dream_points", o.Reward.DreamPoints)
	return &o, nil
}

// Shutdown refuses new battles, then ends every live one as a defeat and
// commits it so the spent mask leaves a history record.
func (s *Service) Shutdown(ctx context.Context) {
	s.mu.Lock()
	s.closed = true
	live := make([]*Battle, 0, len(s.battles))
	for _, b := range s.battles {
		if b != nil {
			live = append(live, b)
		}
	}
	s.mu.Unlock()

	for _, b := range live {
		b.Session.Abort()
		if _, err := s.commit(ctx, b); err != nil {
			s.log.Error("battle lost on shutdown", "user", b.UserID, "battle", b.ID, "err", err)
			if b.cancel != nil {
				b.cancel()
			}
		}
	}
}
