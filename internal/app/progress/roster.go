package progress

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sskkslay-netizen/Bst/internal/domain"
)

// ─── Squads ─────────────────────────────────────────────────────────────────

// ToggleSquad adds a card to the active squad, or removes it if it is
// already deployed. A full squad rejects additions.
func ToggleSquad(s *domain.UserState, instanceID string) (*domain.UserState, error) {
	if _, ok := s.CardInstances[instanceID]; !ok {
		return s, fmt.Errorf("squad %s: %w", instanceID, domain.ErrInstanceNotFound)
	}
	team := slices.Clone(s.ActiveTeam())
	if i := slices.Index(team, instanceID); i >= 0 {
		team = slices.Delete(team, i, i+1)
	} else {
		if len(team) >= domain.MaxSquadSize {
			return s, fmt.Errorf("squad has %d members: %w", len(team), domain.ErrSquadFull)
		}
		team = append(team, instanceID)
	}

	next := s.Clone()
	if next.CurrentTeamIndex < 0 || next.CurrentTeamIndex >= len(next.Teams) {
		next.Teams = append(next.Teams, nil)
		next.CurrentTeamIndex = len(next.Teams) - 1
	}
	next.Teams[next.CurrentTeamIndex] = team
	return next, nil
}

// ToggleFavorite flips the favorite flag of a card.
func ToggleFavorite(s *domain.UserState, instanceID string) (*domain.UserState, error) {
	inst, ok := s.CardInstances[instanceID]
	if !ok {
		return s, fmt.Errorf("favorite %s: %w", instanceID, domain.ErrInstanceNotFound)
	}
	inst.IsFavorite = !inst.IsFavorite
	next := s.Clone()
	next.CardInstances[instanceID] = inst
	return next, nil
}

// ─── Identity ───────────────────────────────────────────────────────────────

// IsDev reports whether email matches the configured admin address. An
// empty admin address disables dev mode.
func IsDev(email, adminEmail string) bool {
	return adminEmail != "" && strings.EqualFold(strings.TrimSpace(email), strings.TrimSpace(adminEmail))
}

// Login records the player's email and recomputes the dev flag.
func Login(s *domain.UserState, email, adminEmail string) *domain.UserState {
	next := s.Clone()
	next.UserEmail = strings.TrimSpace(email)
	next.IsDev = IsDev(next.UserEmail, adminEmail)
	return next
}

// Logout clears the identity. Progress stays in place.
func Logout(s *domain.UserState) *domain.UserState {
	next := s.Clone()
	next.UserEmail = ""
	next.IsDev = false
	return next
}
