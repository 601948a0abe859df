// Package story walks a player through the location graph and links boss
// fights to the arena.
package story

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kinger55555/thenailcasino/internal/combat"
)

//go:embed chronicle.yaml
var chronicle []byte

type ChoiceKind string

const (
	Navigate ChoiceKind = "navigate"
	Combat   ChoiceKind = "combat"
	Boss     ChoiceKind = "boss"
)

type Choice struct {
	Kind         ChoiceKind `yaml:"kind" json:"kind"`
	Text         string     `yaml:"text" json:"text"`
	Target       string     `yaml:"target" json:"target"`
	Difficulty   int        `yaml:"difficulty" json:"difficulty,omitempty"`
	Boss         string     `yaml:"boss" json:"boss,omitempty"`
	RequiresBoss string     `yaml:"requires_boss" json:"requires_boss,omitempty"`
}

type Location struct {
	ID          string   `yaml:"id" json:"id"`
	Title       string   `yaml:"title" json:"title"`
	TitleRu     string   `yaml:"title_ru" json:"title_ru"`
	Description string   `yaml:"description" json:"description"`
	Choices     []Choice `yaml:"choices" json:"choices"`
}

// Graph is the location graph. It is read-only after Load.
type Graph struct {
	Start     string     `yaml:"start"`
	Locations []Location `yaml:"locations"`

	byID map[string]*Location
}

// DefaultGraph parses the embedded chronicle.
func DefaultGraph(bosses combat.Bosses) (*Graph, error) {
	return Parse(chronicle, bosses)
}

// LoadFile parses a graph from disk.
func LoadFile(path string, bosses combat.Bosses) (*Graph, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read story graph %s: %w", path, err)
	}
	return Parse(b, bosses)
}

// Parse decodes and validates a graph against the boss table.
func Parse(b []byte, bosses combat.Bosses) (*Graph, error) {
	var g Graph
	if err := yaml.Unmarshal(b, &g); err != nil {
		return nil, fmt.Errorf("parse story graph: %w", err)
	}
	g.byID = make(map[string]*Location, len(g.Locations))
	for i := range g.Locations {
		g.byID[g.Locations[i].ID] = &g.Locations[i]
	}
	if err := g.Validate(bosses); err != nil {
		return nil, err
	}
	return &g, nil
}

// Validate collects every broken edge, dead end and bad fight into one error.
func (g *Graph) Validate(bosses combat.Bosses) error {
	var errs []string
	if _, ok := g.byID[g.Start]; !ok {
		errs = append(errs, fmt.Sprintf("start location %q not found", g.Start))
	}
	if len(g.byID) != len(g.Locations) {
		errs = append(errs, "duplicate location ids")
	}
	for _, loc := range g.Locations {
		free := false
		for i, c := range loc.Choices {
			where := fmt.Sprintf("%s.choices[%d]", loc.ID, i)
			if _, ok := g.byID[c.Target]; !ok {
				errs = append(errs, fmt.Sprintf("%s: target %q not found", where, c.Target))
			}
			if c.RequiresBoss == "" {
				free = true
			} else if _, ok := bosses[c.RequiresBoss]; !ok {
				errs = append(errs, fmt.Sprintf("%s: requires unknown boss %q", where, c.RequiresBoss))
			}
			switch c.Kind {
			case Navigate:
			case Combat, Boss:
				if c.Difficulty < 1 || c.Difficulty > 5 {
					errs = append(errs, fmt.Sprintf("%s: difficulty must be 1..5", where))
				}
				if c.Kind == Boss {
					if _, ok := bosses.AbilityFor(c.Boss); !ok {
						errs = append(errs, fmt.Sprintf("%s: boss %q grants no ability", where, c.Boss))
					}
				}
			default:
				errs = append(errs, fmt.Sprintf("%s: unknown kind %q", where, c.Kind))
			}
		}
		if !free {
			errs = append(errs, fmt.Sprintf("%s: every choice is locked", loc.ID))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("story graph validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Location returns a node by id.
func (g *Graph) Location(id string) (*Location, bool) {
	l, ok := g.byID[id]
	return l, ok
}
