package progress

import "github.com/sskkslay-netizen/Bst/internal/domain"

// ─── Focus Timer ────────────────────────────────────────────────────────────

const (
	// FocusSeconds is one focus session.
	FocusSeconds = 25 * 60

	FocusMinuteCoins  = 10
	FocusMinutePoints = 1

	FocusCompleteCoins  = 2000
	FocusCompleteGems   = 100
	FocusCompletePoints = 30
)

// FocusTimer counts down a study session one second per Tick. Each
// started minute pays a small grant and finishing pays a large one.
type FocusTimer struct {
	Remaining int  `json:"remaining"`
	Active    bool `json:"active"`
}

// NewFocusTimer returns a stopped timer at full length.
func NewFocusTimer() *FocusTimer {
	return &FocusTimer{Remaining: FocusSeconds}
}

// Toggle starts or pauses the countdown. A finished timer stays stopped
// until Reset.
func (f *FocusTimer) Toggle() {
	if f.Remaining == 0 {
		f.Active = false
		return
	}
	f.Active = !f.Active
}

// Reset stops the timer and restores the full session.
func (f *FocusTimer) Reset() {
	f.Active = false
	f.Remaining = FocusSeconds
}

// Done reports whether the session has run out.
func (f *FocusTimer) Done() bool { return f.Remaining == 0 }

// Tick advances one second and returns whatever it earned. The minute
// grant fires on the tick that leaves a whole-minute mark, the completion
// grant on the tick that reaches zero.
func (f *FocusTimer) Tick() []domain.Grant {
	if !f.Active || f.Remaining == 0 {
		return nil
	}
	var grants []domain.Grant
	if f.Remaining%60 == 0 {
		grants = append(grants, domain.Grant{
			Reason:      domain.ReasonFocusMinute,
			Coins:       FocusMinuteCoins,
			StudyPoints: FocusMinutePoints,
		})
	}
	f.Remaining--
	if f.Remaining == 0 {
		f.Active = false
		grants = append(grants, domain.Grant{
			Reason:      domain.ReasonFocusComplete,
			Coins:       FocusCompleteCoins,
			Gems:        FocusCompleteGems,
			StudyPoints: FocusCompletePoints,
		})
	}
	return grants
}
