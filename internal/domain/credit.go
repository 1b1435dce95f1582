package domain

// ─── Reward Grants ──────────────────────────────────────────────────────────
// Every currency payout in the game is expressed as a Grant so that the
// game service can apply, log and count it in one place.

// GrantReason records why a grant was issued.
type GrantReason string

const (
	ReasonDailyClaim    GrantReason = "DAILY_CLAIM"
	ReasonFocusMinute   GrantReason = "FOCUS_MINUTE"
	ReasonFocusComplete GrantReason = "FOCUS_COMPLETE"
	ReasonNotes         GrantReason = "NOTES"
	ReasonStudyArchive  GrantReason = "STUDY_ARCHIVE"
	ReasonDungeonHit    GrantReason = "DUNGEON_HIT"
	ReasonDungeonFloor  GrantReason = "DUNGEON_FLOOR"
	ReasonMatchPair     GrantReason = "MATCH_PAIR"
	ReasonMatchComplete GrantReason = "MATCH_COMPLETE"
	ReasonShopPurchase  GrantReason = "SHOP_PURCHASE"
	ReasonDevAdjustment GrantReason = "DEV_ADJUSTMENT"
)

// Grant is a bundle of currency and study points.
type Grant struct {
	Reason      GrantReason `json:"reason"`
	Coins       int         `json:"coins"`
	Gems        int         `json:"gems"`
	StudyPoints int         `json:"studyPoints"`
}

// IsZero reports whether the grant carries nothing.
func (g Grant) IsZero() bool {
	return g.Coins == 0 && g.Gems == 0 && g.StudyPoints == 0
}

// Plus sums two grants, keeping the receiver's reason.
func (g Grant) Plus(o Grant) Grant {
	return Grant{
		Reason:      g.Reason,
		Coins:       g.Coins + o.Coins,
		Gems:        g.Gems + o.Gems,
		StudyPoints: g.StudyPoints + o.StudyPoints,
	}
}
