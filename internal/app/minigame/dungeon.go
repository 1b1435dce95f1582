package minigame

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/looplab/fsm"

	"github.com/sskkslay-netizen/Bst/internal/domain"
)

// ─── Dungeon ────────────────────────────────────────────────────────────────

// Dungeon states.
const (
	DungeonAnswering = "answering"
	DungeonLocked    = "locked"
	DungeonFailed    = "failed"
)

const (
	eventMiss    = "miss"
	eventRecover = "recover"
	eventFall    = "fall"
)

// Dungeon tuning.
const (
	LockDuration = 3 * time.Second

	EnemyBaseHP       = 100
	EnemyHPPerFloor   = 20
	CritChance        = 0.2
	HitGemChance      = 0.3
	HitCoins          = 50
	HitGems           = 5
	FloorGems         = 10
	BossFloorGems     = 100
	BossFloorInterval = 5
	FloorCoinsPerStep = 500
	FloorPoints       = 10
)

// Dungeon is a floor-by-floor quiz fight led by the active squad leader.
//
//	loading --ready--> answering --miss--> locked --recover--> answering
//	                                        locked --fall--> failed
//	any live state --abort--> aborted
type Dungeon struct {
	ID     string `json:"id"`
	SetID  string `json:"setId"`
	Leader string `json:"leader"`

	Floor         int       `json:"floor"`
	PlayerHP      int       `json:"playerHp"`
	PlayerMaxHP   int       `json:"playerMaxHp"`
	EnemyHP       int       `json:"enemyHp"`
	QuestionIndex int       `json:"questionIndex"`
	WrongChoice   int       `json:"wrongChoice"`
	LockedUntil   time.Time `json:"lockedUntil,omitzero"`

	attack    float64
	questions []domain.Question
	rng       domain.RandomSource
	rewarder  Rewarder
	machine   *fsm.FSM
}

// Hit is the outcome of a correct answer.
type Hit struct {
	Damage       int          `json:"damage"`
	Critical     bool         `json:"critical"`
	FloorCleared bool         `json:"floorCleared"`
	Floor        int          `json:"floor"`
	EnemyHP      int          `json:"enemyHp"`
	Grant        domain.Grant `json:"grant"`
}

// Answer is the outcome of one submitted choice.
type Answer struct {
	Correct bool `json:"correct"`
	Hit     *Hit `json:"hit,omitempty"`
}

// Counter is the enemy's strike after a wrong answer.
type Counter struct {
	Damage        int    `json:"damage"`
	PlayerHP      int    `json:"playerHp"`
	Failed        bool   `json:"failed"`
	CorrectAnswer string `json:"correctAnswer"`
}

// NewDungeon opens a dungeon for the given leader. Max hp is a tenth of
// the leader's hp scaled by gear; attack is scaled the same way.
func NewDungeon(id, setID string, leader domain.CardView, rng domain.RandomSource, r Rewarder) *Dungeon {
	maxHP := int(math.Round(float64(leader.HP) / 10 * (1 + leader.HPBoost)))
	d := &Dungeon{
		ID:          id,
		SetID:       setID,
		Leader:      leader.Name,
		Floor:       1,
		PlayerHP:    maxHP,
		PlayerMaxHP: maxHP,
		EnemyHP:     EnemyBaseHP,
		WrongChoice: -1,
		attack:      float64(leader.ATK) * (1 + leader.ATKBoost),
		rng:         rng,
		rewarder:    r,
	}
	d.machine = fsm.NewFSM(
		StateLoading,
		fsm.Events{
			{Name: eventReady, Src: []string{StateLoading}, Dst: DungeonAnswering},
			{Name: eventMiss, Src: []string{DungeonAnswering}, Dst: DungeonLocked},
			{Name: eventRecover, Src: []string{DungeonLocked}, Dst: DungeonAnswering},
			{Name: eventFall, Src: []string{DungeonLocked}, Dst: DungeonFailed},
			{Name: eventAbort, Src: []string{StateLoading, DungeonAnswering, DungeonLocked}, Dst: StateAborted},
		},
		fsm.Callbacks{},
	)
	return d
}

// State is the current machine state.
func (d *Dungeon) State() string { return d.machine.Current() }

// Over reports whether the run has ended.
func (d *Dungeon) Over() bool {
	return d.machine.Is(DungeonFailed) || d.machine.Is(StateAborted)
}

// Load installs the question deck and opens the first floor.
func (d *Dungeon) Load(ctx context.Context, questions []domain.Question) error {
	var deck []domain.Question
	for _, q := range questions {
		if q.Valid() {
			deck = append(deck, q)
		}
	}
	if len(deck) == 0 {
		return domain.ErrNoStudyContent
	}
	if !d.machine.Is(StateLoading) {
		return fmt.Errorf("load dungeon in %s: %w", d.State(), domain.ErrGameOver)
	}
	d.questions = deck
	d.QuestionIndex = 0
	return d.machine.Event(ctx, eventReady)
}

// Current returns the question on screen.
func (d *Dungeon) Current() (domain.Question, bool) {
	if len(d.questions) == 0 {
		return domain.Question{}, false
	}
	return d.questions[d.QuestionIndex], true
}

// Questions is the size of the deck.
func (d *Dungeon) Questions() int { return len(d.questions) }

// Answer submits a choice for the current question. A correct choice hits
// the enemy and moves on; a wrong one locks input until Unlock.
func (d *Dungeon) Answer(ctx context.Context, choice int, now time.Time) (Answer, error) {
	switch d.State() {
	case DungeonLocked:
		return Answer{}, domain.ErrInputLocked
	case StateLoading:
		return Answer{}, domain.ErrNoStudyContent
	case DungeonFailed, StateAborted:
		return Answer{}, domain.ErrGameOver
	}

	q := d.questions[d.QuestionIndex]
	if choice != q.Answer {
		if err := d.machine.Event(ctx, eventMiss); err != nil {
			return Answer{}, err
		}
		d.WrongChoice = choice
		d.LockedUntil = now.Add(LockDuration)
		return Answer{Correct: false}, nil
	}

	hit := d.strike(ctx)
	d.advance()
	return Answer{Correct: true, Hit: &hit}, nil
}

// strike resolves damage and payouts for a correct answer.
func (d *Dungeon) strike(ctx context.Context) Hit {
	crit := chance(d.rng, CritChance)
	base := 25 + d.attack/15
	dmg := int(math.Floor(base))
	if crit {
		dmg = int(math.Floor(base * 2))
	}

	d.EnemyHP = max(0, d.EnemyHP-dmg)
	g := domain.Grant{Reason: domain.ReasonDungeonHit, Coins: HitCoins}
	if chance(d.rng, HitGemChance) {
		g.Gems = HitGems
	}
	credit(ctx, d.rewarder, g)

	hit := Hit{Damage: dmg, Critical: crit, Floor: d.Floor, Grant: g}
	if d.EnemyHP == 0 {
		floorGrant := domain.Grant{
			Reason:      domain.ReasonDungeonFloor,
			Gems:        FloorGems,
			Coins:       FloorCoinsPerStep * d.Floor,
			StudyPoints: FloorPoints,
		}
		if d.Floor%BossFloorInterval == 0 {
			floorGrant.Gems += BossFloorGems
		}
		credit(ctx, d.rewarder, floorGrant)

		d.EnemyHP = EnemyBaseHP + d.Floor*EnemyHPPerFloor
		d.Floor++
		hit.FloorCleared = true
		hit.Grant = g.Plus(floorGrant)
		hit.Floor = d.Floor
	}
	hit.EnemyHP = d.EnemyHP
	return hit
}

// Unlock ends the lockout after a wrong answer. The enemy strikes for
// 15 plus twice the floor; at zero hp the run fails.
func (d *Dungeon) Unlock(ctx context.Context, now time.Time) (Counter, error) {
	if !d.machine.Is(DungeonLocked) {
		if d.Over() {
			return Counter{}, domain.ErrGameOver
		}
		return Counter{}, fmt.Errorf("unlock in %s: %w", d.State(), domain.ErrInputLocked)
	}
	if now.Before(d.LockedUntil) {
		return Counter{}, fmt.Errorf("locked for %s: %w", d.LockedUntil.Sub(now).Round(time.Millisecond), domain.ErrInputLocked)
	}

	q := d.questions[d.QuestionIndex]
	dmg := 15 + d.Floor*2
	d.PlayerHP = max(0, d.PlayerHP-dmg)
	d.WrongChoice = -1
	d.LockedUntil = time.Time{}
	d.advance()

	c := Counter{Damage: dmg, PlayerHP: d.PlayerHP, CorrectAnswer: q.Options[q.Answer]}
	event := eventRecover
	if d.PlayerHP == 0 {
		event = eventFall
		c.Failed = true
	}
	if err := d.machine.Event(ctx, event); err != nil {
		return c, err
	}
	return c, nil
}

// Abort leaves the dungeon.
func (d *Dungeon) Abort(ctx context.Context) error {
	if d.Over() {
		return nil
	}
	return fire(ctx, d.machine, eventAbort)
}

func (d *Dungeon) advance() {
	d.QuestionIndex = (d.QuestionIndex + 1) % len(d.questions)
}

// DungeonView is the client-facing snapshot. The answer key is hidden.
type DungeonView struct {
	*Dungeon
	State    string   `json:"state"`
	Question string   `json:"question,omitempty"`
	Options  []string `json:"options,omitempty"`
	Deck     int      `json:"deck"`
}

// View snapshots the dungeon for display.
func (d *Dungeon) View() DungeonView {
	v := DungeonView{Dungeon: d, State: d.State(), Deck: len(d.questions)}
	if q, ok := d.Current(); ok {
		v.Question = q.Question
		v.Options = q.Options
	}
	return v
}
