package domain

import "slices"

// ─── Squads & Synergies ─────────────────────────────────────────────────────

// MaxSquadSize is the member limit of a squad.
const MaxSquadSize = 3

// Synergy is a bonus unlocked when every required character is in the
// active squad.
type Synergy struct {
	ID                string   `json:"id" yaml:"id"`
	Name              string   `json:"name" yaml:"name"`
	RequiredNames     []string `json:"requiredNames" yaml:"required_names"`
	EffectDescription string   `json:"effectDescription" yaml:"effect"`
	Multiplier        float64  `json:"multiplier" yaml:"multiplier"`
}

// ActiveSynergies returns the synergies whose required names all appear in
// memberNames.
func ActiveSynergies(memberNames []string, synergies []Synergy) []Synergy {
	var out []Synergy
	for _, syn := range synergies {
		if len(syn.RequiredNames) == 0 {
			continue
		}
		all := true
		for _, name := range syn.RequiredNames {
			if !slices.Contains(memberNames, name) {
				all = false
				break
			}
		}
		if all {
			out = append(out, syn)
		}
	}
	return out
}

// SquadNames resolves the display names of the active squad.
func (s *UserState) SquadNames() []string {
	var names []string
	for _, id := range s.ActiveTeam() {
		if inst, ok := s.CardInstances[id]; ok {
			names = append(names, inst.Name)
		}
	}
	return names
}
