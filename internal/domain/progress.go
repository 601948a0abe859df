package domain

import (
	"slices"
	"time"

	"github.com/lib/pq"
)

// StoryProgress is one per account, created lazily at the start node.
type StoryProgress struct {
	UserID            string         `gorm:"primaryKey"`
	CurrentLocation   string         `gorm:"not null"`
	DefeatedBosses    pq.StringArray `gorm:"type:text[]"`
	UnlockedAbilities pq.StringArray `gorm:"type:text[]"`
	VisitedLocations  pq.StringArray `gorm:"type:text[]"`
	HasVoidHeart      bool
	UpdatedAt         time.Time
}

func NewStoryProgress(userID, start string) StoryProgress {
	return StoryProgress{
		UserID:            userID,
		CurrentLocation:   start,
		DefeatedBosses:    pq.StringArray{},
		UnlockedAbilities: pq.StringArray{},
		VisitedLocations:  pq.StringArray{start},
	}
}

func (p StoryProgress) HasDefeated(boss string) bool {
	return slices.Contains(p.DefeatedBosses, boss)
}

func (p StoryProgress) HasAbility(id string) bool {
	return slices.Contains(p.UnlockedAbilities, id)
}

// Visit moves to loc and records it once.
func (p *StoryProgress) Visit(loc string) {
	p.CurrentLocation = loc
	if !slices.Contains(p.VisitedLocations, loc) {
		p.VisitedLocations = append(p.VisitedLocations, loc)
	}
}

// Clone copies the slices so callers can mutate freely.
func (p StoryProgress) Clone() StoryProgress {
	out := p
	out.DefeatedBosses = slices.Clone(p.DefeatedBosses)
	out.UnlockedAbilities = slices.Clone(p.UnlockedAbilities)
	out.VisitedLocations = slices.Clone(p.VisitedLocations)
	return out
}
