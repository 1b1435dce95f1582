// Package progress tracks study points, currencies and the small reward
// loops around them: the daily grant, the xp shop, notes, the focus timer
// and study set archiving.
//
// Like the gacha package every operation returns a new state and leaves
// its input untouched.
package progress

import (
	"fmt"
	"strings"
	"time"

	"github.com/sskkslay-netizen/Bst/internal/domain"
)

// ─── Rewards ────────────────────────────────────────────────────────────────

const (
	DailyClaimGems = 500

	// NotesMinLength is the trimmed length notes must exceed to pay out.
	NotesMinLength = 50
	NotesCoins     = 500
	NotesGems      = 25
	NotesPoints    = 10

	ArchiveGems  = 25
	ArchiveCoins = 1000
)

// DateKey is the study history key for t: the UTC calendar date.
func DateKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// ApplyGrant credits a grant. Study points land on the current date key.
func ApplyGrant(s *domain.UserState, g domain.Grant, now time.Time) *domain.UserState {
	next := s.Clone()
	next.Coins += g.Coins
	next.Gems += g.Gems
	if g.StudyPoints != 0 {
		next.StudyHistory[DateKey(now)] += g.StudyPoints
	}
	return next
}

// UpdateStudyPoints adds points to today's entry of the history ledger.
func UpdateStudyPoints(s *domain.UserState, points int, now time.Time) *domain.UserState {
	next := s.Clone()
	next.StudyHistory[DateKey(now)] += points
	return next
}

// UpdateCoins adds delta to the coin balance. The caller is responsible
// for keeping the balance non-negative.
func UpdateCoins(s *domain.UserState, delta int) *domain.UserState {
	next := s.Clone()
	next.Coins += delta
	return next
}

// UpdateGems adds delta to the gem balance without checks.
func UpdateGems(s *domain.UserState, delta int) *domain.UserState {
	next := s.Clone()
	next.Gems += delta
	return next
}

// ─── Daily Grant ────────────────────────────────────────────────────────────

// CanClaimDaily reports whether the grant is available. lastClaim is the
// stored date key of the previous claim.
func CanClaimDaily(lastClaim string, now time.Time) bool {
	return lastClaim != DateKey(now)
}

// ClaimDaily pays the daily gems and returns the date key to store as
// the new last claim.
func ClaimDaily(s *domain.UserState, lastClaim string, now time.Time) (*domain.UserState, domain.Grant, string, error) {
	if !CanClaimDaily(lastClaim, now) {
		return s, domain.Grant{}, lastClaim, domain.ErrAlreadyClaimed
	}
	g := domain.Grant{Reason: domain.ReasonDailyClaim, Gems: DailyClaimGems}
	return ApplyGrant(s, g, now), g, DateKey(now), nil
}

// ─── XP Shop ────────────────────────────────────────────────────────────────

// BuyXPItem spends the shop price of item and adds one to the stock.
func BuyXPItem(s *domain.UserState, item domain.XPItem) (*domain.UserState, error) {
	if item.Price <= 0 {
		return s, fmt.Errorf("buy %s: %w", item.ID, domain.ErrUnknownItem)
	}
	if s.Coins < item.Price {
		return s, fmt.Errorf("buy %s needs %d coins, have %d: %w", item.ID, item.Price, s.Coins, domain.ErrInsufficientCoins)
	}
	next := s.Clone()
	next.Coins -= item.Price
	next.XPItems[item.ID]++
	return next, nil
}

// ─── Notes & Study Sets ─────────────────────────────────────────────────────

// NotesGrant returns the reward for archiving notes, or ErrNotesTooShort.
// Saving the text itself is the store's job and happens either way.
func NotesGrant(notes string) (domain.Grant, error) {
	if len([]rune(strings.TrimSpace(notes))) <= NotesMinLength {
		return domain.Grant{}, domain.ErrNotesTooShort
	}
	return domain.Grant{
		Reason:      domain.ReasonNotes,
		Coins:       NotesCoins,
		Gems:        NotesGems,
		StudyPoints: NotesPoints,
	}, nil
}

// SaveNotes applies the notes reward when the notes are long enough.
func SaveNotes(s *domain.UserState, notes string, now time.Time) (*domain.UserState, domain.Grant, error) {
	g, err := NotesGrant(notes)
	if err != nil {
		return s, g, err
	}
	return ApplyGrant(s, g, now), g, nil
}

// ArchiveStudySet files a new set at the front of the list and pays the
// archive reward. Empty material is rejected.
func ArchiveStudySet(s *domain.UserState, set domain.StudySet, now time.Time) (*domain.UserState, domain.StudySet, domain.Grant, error) {
	set.Name = strings.TrimSpace(set.Name)
	if set.Name == "" || strings.TrimSpace(set.Material) == "" {
		return s, set, domain.Grant{}, domain.ErrNoStudyContent
	}
	if set.ID == "" {
		set.ID = fmt.Sprintf("set_%d", now.UnixMilli())
	}
	if set.Items == nil {
		set.Items = []domain.StudyPair{}
	}

	g := domain.Grant{Reason: domain.ReasonStudyArchive, Coins: ArchiveCoins, Gems: ArchiveGems}
	next := ApplyGrant(s, g, now)
	next.StudySets = append([]domain.StudySet{set}, next.StudySets...)
	return next, set, g, nil
}

// FindStudySet looks up an archived set by ID.
func FindStudySet(s *domain.UserState, id string) (domain.StudySet, bool) {
	for _, set := range s.StudySets {
		if set.ID == id {
			return set, true
		}
	}
	return domain.StudySet{}, false
}
