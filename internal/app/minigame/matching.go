package minigame

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/sskkslay-netizen/Bst/internal/domain"
)

// ─── Matching Bomb ──────────────────────────────────────────────────────────

// Matching states.
const (
	MatchSelecting = "selecting"
	MatchSelected  = "selected"
	MatchDefused   = "defused"
	MatchExploded  = "exploded"
)

const (
	eventPick    = "pick"
	eventResolve = "resolve"
	eventDefuse  = "defuse"
	eventExplode = "explode"
)

// Matching tuning.
const (
	BombSeconds      = 60
	MatchBonusTime   = 5
	MismatchPenalty  = 10
	MatchCoins       = 100
	MatchGems        = 2
	MatchGemChance   = 0.25
	DefuseCoinsPerS  = 50
	DefuseBaseGems   = 50
	DefusePoints     = 20
	DefuseTitle      = "LEMON BOMB DEFUSED"
	MatchingMaxPairs = 8
)

// Side says which column an item sits in.
type Side string

const (
	SideTerm       Side = "term"
	SideDefinition Side = "definition"
)

// Selection is a pending first click. Index is the pair key.
type Selection struct {
	Index int  `json:"index"`
	Side  Side `json:"side"`
}

// Victory is the completion summary.
type Victory struct {
	Title  string `json:"title"`
	Coins  int    `json:"coins"`
	Gems   int    `json:"gems"`
	Points int    `json:"points"`
}

// Click is the outcome of one selection.
type Click struct {
	// Ignored is set for clicks on already matched pairs.
	Ignored  bool         `json:"ignored,omitempty"`
	Selected bool         `json:"selected,omitempty"`
	Matched  bool         `json:"matched,omitempty"`
	Mismatch bool         `json:"mismatch,omitempty"`
	Timer    int          `json:"timer"`
	Grant    domain.Grant `json:"grant"`
	Victory  *Victory     `json:"victory,omitempty"`
	Exploded bool         `json:"exploded,omitempty"`
}

// Matching is the defusal game: pair every term with its definition
// before the timer runs out.
//
//	loading --ready--> selecting --pick--> selected --resolve--> selecting
//	selected --defuse--> defused
//	selecting|selected --explode--> exploded
type Matching struct {
	ID    string             `json:"id"`
	SetID string             `json:"setId"`
	Pairs []domain.StudyPair `json:"pairs"`

	Timer       int        `json:"timer"`
	Terms       []int      `json:"terms"`
	Definitions []int      `json:"definitions"`
	Matched     []int      `json:"matched"`
	Selection   *Selection `json:"selection,omitempty"`
	Shake       bool       `json:"shake"`
	Victory     *Victory   `json:"victory,omitempty"`

	matched  map[int]bool
	rng      domain.RandomSource
	rewarder Rewarder
	machine  *fsm.FSM
}

// NewMatching creates a bomb waiting for its pairs.
func NewMatching(id, setID string, rng domain.RandomSource, r Rewarder) *Matching {
	m := &Matching{
		ID:       id,
		SetID:    setID,
		Timer:    BombSeconds,
		matched:  make(map[int]bool),
		rng:      rng,
		rewarder: r,
	}
	m.machine = fsm.NewFSM(
		StateLoading,
		fsm.Events{
			{Name: eventReady, Src: []string{StateLoading}, Dst: MatchSelecting},
			{Name: eventPick, Src: []string{MatchSelecting}, Dst: MatchSelected},
			{Name: eventResolve, Src: []string{MatchSelected}, Dst: MatchSelecting},
			{Name: eventDefuse, Src: []string{MatchSelected}, Dst: MatchDefused},
			{Name: eventExplode, Src: []string{MatchSelecting, MatchSelected}, Dst: MatchExploded},
			{Name: eventAbort, Src: []string{StateLoading, MatchSelecting, MatchSelected}, Dst: StateAborted},
		},
		fsm.Callbacks{},
	)
	return m
}

// State is the current machine state.
func (m *Matching) State() string { return m.machine.Current() }

// Over reports whether the bomb was defused, exploded or abandoned.
func (m *Matching) Over() bool {
	switch m.State() {
	case MatchDefused, MatchExploded, StateAborted:
		return true
	}
	return false
}

// Load installs the pairs, shuffles both columns and arms the timer.
func (m *Matching) Load(ctx context.Context, pairs []domain.StudyPair) error {
	var deck []domain.StudyPair
	for _, p := range pairs {
		if p.Term != "" && p.Definition != "" {
			deck = append(deck, p)
		}
	}
	if len(deck) == 0 {
		return domain.ErrNoStudyContent
	}
	if !m.machine.Is(StateLoading) {
		return fmt.Errorf("load matching in %s: %w", m.State(), domain.ErrGameOver)
	}
	m.Pairs = deck
	m.Terms = shuffle(m.rng, len(deck))
	m.Definitions = shuffle(m.rng, len(deck))
	m.Matched = []int{}
	m.Timer = BombSeconds
	return m.machine.Event(ctx, eventReady)
}

// Select handles a click on an item. The first click selects; the second
// either matches the pair or costs time. Matched items ignore clicks.
func (m *Matching) Select(ctx context.Context, index int, side Side) (Click, error) {
	if m.Over() {
		return Click{}, domain.ErrGameOver
	}
	if m.machine.Is(StateLoading) {
		return Click{}, domain.ErrNoStudyContent
	}
	if index < 0 || index >= len(m.Pairs) || (side != SideTerm && side != SideDefinition) {
		return Click{}, fmt.Errorf("select %s %d: %w", side, index, domain.ErrInvalidMove)
	}
	m.Shake = false
	if m.matched[index] {
		return Click{Ignored: true, Timer: m.Timer}, nil
	}

	if m.Selection == nil {
		m.Selection = &Selection{Index: index, Side: side}
		if err := m.machine.Event(ctx, eventPick); err != nil {
			return Click{}, err
		}
		return Click{Selected: true, Timer: m.Timer}, nil
	}

	first := *m.Selection
	m.Selection = nil
	if first.Side == side || first.Index != index {
		m.Timer = max(0, m.Timer-MismatchPenalty)
		m.Shake = true
		c := Click{Mismatch: true, Timer: m.Timer}
		if m.Timer == 0 {
			c.Exploded = true
			return c, m.machine.Event(ctx, eventExplode)
		}
		return c, m.machine.Event(ctx, eventResolve)
	}

	// The defusal bonus is scored on the timer as it stood before the
	// match added time.
	before := m.Timer
	m.matched[index] = true
	m.Matched = append(m.Matched, index)
	m.Timer += MatchBonusTime

	g := domain.Grant{Reason: domain.ReasonMatchPair, Coins: MatchCoins}
	if chance(m.rng, MatchGemChance) {
		g.Gems = MatchGems
	}
	credit(ctx, m.rewarder, g)
	c := Click{Matched: true, Timer: m.Timer, Grant: g}

	if len(m.Matched) < len(m.Pairs) {
		return c, m.machine.Event(ctx, eventResolve)
	}

	v := Victory{
		Title:  DefuseTitle,
		Coins:  before * DefuseCoinsPerS,
		Gems:   DefuseBaseGems + before/2,
		Points: DefusePoints,
	}
	bonus := domain.Grant{Reason: domain.ReasonMatchComplete, Coins: v.Coins, Gems: v.Gems, StudyPoints: v.Points}
	credit(ctx, m.rewarder, bonus)
	m.Victory = &v
	c.Victory = &v
	c.Grant = g.Plus(bonus)
	return c, m.machine.Event(ctx, eventDefuse)
}

// Tick burns one second. At zero the bomb explodes.
func (m *Matching) Tick(ctx context.Context) (Click, error) {
	if m.Over() {
		return Click{Timer: m.Timer, Exploded: m.machine.Is(MatchExploded)}, domain.ErrGameOver
	}
	if m.machine.Is(StateLoading) {
		return Click{Timer: m.Timer}, nil
	}
	m.Timer = max(0, m.Timer-1)
	if m.Timer == 0 {
		m.Selection = nil
		return Click{Timer: 0, Exploded: true}, m.machine.Event(ctx, eventExplode)
	}
	return Click{Timer: m.Timer}, nil
}

// Abort abandons the game.
func (m *Matching) Abort(ctx context.Context) error {
	if m.Over() {
		return nil
	}
	m.Selection = nil
	return fire(ctx, m.machine, eventAbort)
}

// MatchingView is the client-facing snapshot with both columns resolved
// to text. Terms and definitions share their pair index as key.
type MatchingView struct {
	*Matching
	State       string      `json:"state"`
	TermCards   []MatchCard `json:"termCards"`
	DefCards    []MatchCard `json:"definitionCards"`
	PairsTotal  int         `json:"pairsTotal"`
	PairsSolved int         `json:"pairsSolved"`
}

// MatchCard is one clickable item.
type MatchCard struct {
	Index   int    `json:"index"`
	Text    string `json:"text"`
	Matched bool   `json:"matched"`
}

// View snapshots the board.
func (m *Matching) View() MatchingView {
	v := MatchingView{
		Matching:    m,
		State:       m.State(),
		PairsTotal:  len(m.Pairs),
		PairsSolved: len(m.Matched),
	}
	for _, i := range m.Terms {
		v.TermCards = append(v.TermCards, MatchCard{Index: i, Text: m.Pairs[i].Term, Matched: m.matched[i]})
	}
	for _, i := range m.Definitions {
		v.DefCards = append(v.DefCards, MatchCard{Index: i, Text: m.Pairs[i].Definition, Matched: m.matched[i]})
	}
	return v
}
