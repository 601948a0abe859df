package combat

import "slices"

// Ability is a permanently unlocked passive effect.
type Ability string

const (
	Thread         Ability = "thread"          // wider perfect zone
	Dash           Ability = "dash"            // chance to dodge a counter-attack
	WallJump       Ability = "wall_jump"       // flat damage reduction
	VengefulSpirit Ability = "vengeful_spirit" // reflect part of the damage
	DoubleJump     Ability = "double_jump"     // once-per-battle death save
	VoidHeart      Ability = "void_heart"      // narrative key, no combat effect
)

var Abilities = []Ability{Thread, Dash, WallJump, VengefulSpirit, DoubleJump, VoidHeart}

func (a Ability) Valid() bool { return slices.Contains(Abilities, a) }

// AbilitySet is the unlocked abilities of a player.
type AbilitySet map[Ability]bool

func NewAbilitySet(ids ...string) AbilitySet {
	set := make(AbilitySet, len(ids))
	for _, id := range ids {
		if a := Ability(id); a.Valid() {
			set[a] = true
		}
	}
	return set
}

func (s AbilitySet) Has(a Ability) bool { return s[a] }

// List returns the set in catalog order.
func (s AbilitySet) List() []Ability {
	var out []Ability
	for _, a := range Abilities {
		if s[a] {
			out = append(out, a)
		}
	}
	return out
}
