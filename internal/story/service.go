package story

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kinger55555/thenailcasino/internal/arena"
	"github.com/kinger55555/thenailcasino/internal/combat"
	"github.com/kinger55555/thenailcasino/internal/domain"
	"github.com/kinger55555/thenailcasino/internal/errs"
	"github.com/kinger55555/thenailcasino/internal/game"
	"github.com/kinger55555/thenailcasino/internal/repository"
)

type Service struct {
	store repository.Store
	graph *Graph
	arena *arena.Service
	rules *game.Provider
	log   *slog.Logger
}

func NewService(store repository.Store, graph *Graph, battles *arena.Service, rules *game.Provider, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, graph: graph, arena: battles, rules: rules, log: log.With("component", "story")}
}

// ChoiceView is a choice with its availability for the viewer.
type ChoiceView struct {
	Choice
	Index   int  `json:"index"`
	Enabled bool `json:"enabled"`
}

type View struct {
	Location    string       `json:"location"`
	Title       string       `json:"title"`
	TitleRu     string       `json:"title_ru"`
	Description string       `json:"description"`
	Choices     []ChoiceView `json:"choices"`

	DefeatedBosses    []string `json:"defeated_bosses"`
	UnlockedAbilities []string `json:"unlocked_abilities"`
	VisitedLocations  []string `json:"visited_locations"`
	HasVoidHeart      bool     `json:"has_void_heart"`
}

// Progress returns the user's progress, starting it at the graph start.
func (s *Service) Progress(ctx context.Context, userID string) (domain.StoryProgress, error) {
	p, err := s.store.GetProgress(ctx, userID)
	if !errors.Is(err, errs.ErrNotFound) {
		return p, err
	}
	p = domain.NewStoryProgress(userID, s.graph.Start)
	if err := s.store.SaveProgress(ctx, &p); err != nil {
		return domain.StoryProgress{}, err
	}
	return p, nil
}

// View renders the current location. Locked choices stay listed but disabled.
func (s *Service) View(ctx context.Context, userID string) (View, error) {
	p, err := s.Progress(ctx, userID)
	if err != nil {
		return View{}, err
	}
	return s.render(p)
}

func (s *Service) render(p domain.StoryProgress) (View, error) {
	loc, ok := s.graph.Location(p.CurrentLocation)
	if !ok {
		return View{}, errs.Configuration("story.View", fmt.Sprintf("location %q is not in the graph", p.CurrentLocation))
	}
	v := View{
		Location:          loc.ID,
		Title:             loc.Title,
		TitleRu:           loc.TitleRu,
		Description:       loc.Description,
		Choices:           make([]ChoiceView, len(loc.Choices)),
		DefeatedBosses:    p.DefeatedBosses,
		UnlockedAbilities: p.UnlockedAbilities,
		VisitedLocations:  p.VisitedLocations,
		HasVoidHeart:      p.HasVoidHeart,
	}
	for i, c := range loc.Choices {
		v.Choices[i] = ChoiceView{Choice: c, Index: i, Enabled: c.RequiresBoss == "" || p.HasDefeated(c.RequiresBoss)}
	}
	return v, nil
}

// ChooseRequest picks choice Index at the current location. The nail fields
// are used by fights only.
type ChooseRequest struct {
	UserID      string
	Index       int
	OwnedNailID string
	Dream       bool
}

// ChooseResult holds the new view after a move, or the started battle.
type ChooseResult struct {
	View   *View
	Battle *arena.Battle
}

func (s *Service) Choose(ctx context.Context, req ChooseRequest) (ChooseResult, error) {
	const op = "story.Choose"
	p, err := s.Progress(ctx, req.UserID)
	if err != nil {
		return ChooseResult{}, err
	}
	v, err := s.render(p)
	if err != nil {
		return ChooseResult{}, err
	}
	if req.Index < 0 || req.Index >= len(v.Choices) {
		return ChooseResult{}, errs.Validation(op, "no such choice")
	}
	c := v.Choices[req.Index]
	if !c.Enabled {
		return ChooseResult{}, errs.Conflict(op, "defeat "+c.RequiresBoss+" first")
	}

	if c.Kind == Navigate {
		var next domain.StoryProgress
		err := s.store.WithinTx(ctx, func(tx repository.Store) error {
			cur, err := tx.GetProgress(ctx, req.UserID)
			if err != nil {
				return err
			}
			if cur.CurrentLocation != v.Location {
				return errs.Conflict(op, "location changed, reload")
			}
			cur.Visit(c.Target)
			next = cur
			return tx.SaveProgress(ctx, &next)
		})
		if err != nil {
			return ChooseResult{}, err
		}
		nv, err := s.render(next)
		if err != nil {
			return ChooseResult{}, err
		}
		return ChooseResult{View: &nv}, nil
	}

	start := arena.StartRequest{
		UserID:      req.UserID,
		OwnedNailID: req.OwnedNailID,
		Dream:       req.Dream,
		Difficulty:  c.Difficulty,
		OnFinish:    s.onFinish(v.Location, c),
	}
	if c.Kind == Boss {
		start.Boss = c.Boss
	}
	b, err := s.arena.StartBattle(ctx, start)
	if err != nil {
		return ChooseResult{}, err
	}
	s.log.Info("story fight started", "user", req.UserID, "location", v.Location, "boss", c.Boss)
	return ChooseResult{Battle: b}, nil
}

// onFinish advances progress in the battle's commit transaction on victory.
// A player who left from (a reset or a move during the fight) keeps the
// battle reward but the story does not advance.
func (s *Service) onFinish(from string, c ChoiceView) arena.FinishHook {
	return func(ctx context.Context, tx repository.Store, o arena.Outcome) error {
		if !o.Won {
			return nil
		}
		p, err := tx.GetProgress(ctx, o.UserID)
		if errors.Is(err, errs.ErrNotFound) {
			p = domain.NewStoryProgress(o.UserID, s.graph.Start)
		} else if err != nil {
			return err
		}
		if p.CurrentLocation != from {
			s.log.Info("story fight outcome dropped, player moved", "user", o.UserID,
				"fought_at", from, "now_at", p.CurrentLocation, "boss", c.Boss)
			return nil
		}
		p.Visit(c.Target)
		if c.Kind == Boss && !p.HasDefeated(c.Boss) {
			p.DefeatedBosses = append(p.DefeatedBosses, c.Boss)
			if ability, ok := s.rules.Current().Bosses.AbilityFor(c.Boss); ok {
				if !p.HasAbility(string(ability)) {
					p.UnlockedAbilities = append(p.UnlockedAbilities, string(ability))
				}
				if ability == combat.VoidHeart {
					p.HasVoidHeart = true
				}
			}
		}
		s.log.Info("story advanced", "user", o.UserID, "location", c.Target, "boss", c.Boss)
		return tx.SaveProgress(ctx, &p)
	}
}

// Reset puts the user back at the start with nothing unlocked.
func (s *Service) Reset(ctx context.Context, userID string) (View, error) {
	p := domain.NewStoryProgress(userID, s.graph.Start)
	if err := s.store.SaveProgress(ctx, &p); err != nil {
		return View{}, err
	}
	return s.render(p)
}
