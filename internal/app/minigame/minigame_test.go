package minigame

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sskkslay-netizen/Bst/internal/domain"
)

// fixed always rolls the same value.
type fixed float64

func (f fixed) Float64() float64 { return float64(f) }

type ledger struct {
	grants []domain.Grant
}

func (l *ledger) Reward(_ context.Context, g domain.Grant) { l.grants = append(l.grants, g) }

func (l *ledger) total() domain.Grant {
	var t domain.Grant
	for _, g := range l.grants {
		t = t.Plus(g)
	}
	return t
}

var t0 = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func leader() domain.CardView {
	return domain.CardView{
		CardInstance: domain.CardInstance{Name: "Osamu Dazai"},
		HP:           2500,
		ATK:          900,
	}
}

func questions(n int) []domain.Question {
	qs := make([]domain.Question, n)
	for i := range qs {
		qs[i] = domain.Question{Question: "q", Options: []string{"right", "wrong"}, Answer: 0}
	}
	return qs
}

func newDungeon(t *testing.T, rng domain.RandomSource, n int) (*Dungeon, *ledger) {
	t.Helper()
	l := &ledger{}
	d := NewDungeon("d1", "set_1", leader(), rng, l)
	require.NoError(t, d.Load(t.Context(), questions(n)))
	return d, l
}

// ─── Dungeon ────────────────────────────────────────────────────────────────

func TestDungeon_Start(t *testing.T) {
	lead := leader()
	lead.HPBoost = 0.1
	d := NewDungeon("d1", "s", lead, fixed(0.9), nil)

	assert.Equal(t, StateLoading, d.State())
	assert.Equal(t, 275, d.PlayerMaxHP)
	assert.Equal(t, 275, d.PlayerHP)
	assert.Equal(t, EnemyBaseHP, d.EnemyHP)
	assert.Equal(t, 1, d.Floor)

	_, err := d.Answer(t.Context(), 0, t0)
	assert.ErrorIs(t, err, domain.ErrNoStudyContent)

	err = d.Load(t.Context(), []domain.Question{{Question: "bad", Options: []string{"a"}, Answer: 3}})
	assert.ErrorIs(t, err, domain.ErrNoStudyContent)
	assert.Equal(t, StateLoading, d.State())
}

func TestDungeon_CorrectAnswer(t *testing.T) {
	d, l := newDungeon(t, fixed(0.9), 3)

	a, err := d.Answer(t.Context(), 0, t0)
	require.NoError(t, err)
	require.True(t, a.Correct)
	assert.Equal(t, 85, a.Hit.Damage) // floor(25 + 900/15)
	assert.False(t, a.Hit.Critical)
	assert.Equal(t, 15, d.EnemyHP)
	assert.Equal(t, 1, d.QuestionIndex)
	assert.Equal(t, []domain.Grant{{Reason: domain.ReasonDungeonHit, Coins: HitCoins}}, l.grants)
}

func TestDungeon_CriticalWithGearAndGems(t *testing.T) {
	lead := leader()
	lead.ATKBoost = 0.5
	l := &ledger{}
	d := NewDungeon("d1", "s", lead, fixed(0.1), l)
	require.NoError(t, d.Load(t.Context(), questions(2)))

	a, err := d.Answer(t.Context(), 0, t0)
	require.NoError(t, err)
	assert.True(t, a.Hit.Critical)
	assert.Equal(t, 230, a.Hit.Damage) // floor((25 + 1350/15) * 2)
	assert.True(t, a.Hit.FloorCleared)
	assert.Equal(t, HitGems+FloorGems, l.total().Gems)
}

func TestDungeon_FloorClear(t *testing.T) {
	d, l := newDungeon(t, fixed(0.9), 4)

	d.Answer(t.Context(), 0, t0)
	a, err := d.Answer(t.Context(), 0, t0)
	require.NoError(t, err)

	assert.True(t, a.Hit.FloorCleared)
	assert.Equal(t, 2, d.Floor)
	assert.Equal(t, 120, d.EnemyHP)
	assert.Equal(t, 120, a.Hit.EnemyHP)
	tot := l.total()
	assert.Equal(t, 2*HitCoins+FloorCoinsPerStep, tot.Coins)
	assert.Equal(t, FloorGems, tot.Gems)
	assert.Equal(t, FloorPoints, tot.StudyPoints)
}

func TestDungeon_BossFloorBonus(t *testing.T) {
	d, l := newDungeon(t, fixed(0.9), 2)
	d.Floor = 5
	d.EnemyHP = 1

	_, err := d.Answer(t.Context(), 0, t0)
	require.NoError(t, err)

	floor := l.grants[len(l.grants)-1]
	assert.Equal(t, domain.ReasonDungeonFloor, floor.Reason)
	assert.Equal(t, FloorGems+BossFloorGems, floor.Gems)
	assert.Equal(t, 5*FloorCoinsPerStep, floor.Coins)
	assert.Equal(t, 6, d.Floor)
	assert.Equal(t, 100+5*20, d.EnemyHP)
}

func TestDungeon_WrongAnswerLocks(t *testing.T) {
	d, l := newDungeon(t, fixed(0.9), 3)

	a, err := d.Answer(t.Context(), 1, t0)
	require.NoError(t, err)
	assert.False(t, a.Correct)
	assert.Equal(t, DungeonLocked, d.State())
	assert.Equal(t, 1, d.WrongChoice)
	assert.Zero(t, d.QuestionIndex, "index moves on unlock")

	_, err = d.Answer(t.Context(), 0, t0)
	assert.ErrorIs(t, err, domain.ErrInputLocked)
	_, err = d.Unlock(t.Context(), t0.Add(time.Second))
	assert.ErrorIs(t, err, domain.ErrInputLocked)

	c, err := d.Unlock(t.Context(), t0.Add(LockDuration))
	require.NoError(t, err)
	assert.Equal(t, 17, c.Damage)
	assert.Equal(t, "right", c.CorrectAnswer)
	assert.Equal(t, 233, d.PlayerHP)
	assert.Equal(t, 1, d.QuestionIndex)
	assert.Equal(t, DungeonAnswering, d.State())
	assert.Empty(t, l.grants)

	_, err = d.Unlock(t.Context(), t0.Add(time.Hour))
	assert.ErrorIs(t, err, domain.ErrInputLocked, "nothing to unlock")
}

func TestDungeon_Failure(t *testing.T) {
	d, _ := newDungeon(t, fixed(0.9), 2)
	d.PlayerHP = 10

	_, err := d.Answer(t.Context(), 1, t0)
	require.NoError(t, err)
	c, err := d.Unlock(t.Context(), t0.Add(LockDuration))
	require.NoError(t, err)
	assert.True(t, c.Failed)
	assert.Zero(t, d.PlayerHP)
	assert.Equal(t, DungeonFailed, d.State())
	assert.True(t, d.Over())

	_, err = d.Answer(t.Context(), 0, t0)
	assert.ErrorIs(t, err, domain.ErrGameOver)
	_, err = d.Unlock(t.Context(), t0.Add(time.Hour))
	assert.ErrorIs(t, err, domain.ErrGameOver)
}

func TestDungeon_QuestionsCycle(t *testing.T) {
	d, _ := newDungeon(t, fixed(0.9), 3)
	d.EnemyHP = 1 << 20

	for i := range 7 {
		assert.Equal(t, i%3, d.QuestionIndex)
		_, err := d.Answer(t.Context(), 0, t0)
		require.NoError(t, err)
	}
}

func TestDungeon_AbortAndView(t *testing.T) {
	d, _ := newDungeon(t, fixed(0.9), 2)
	v := d.View()
	assert.Equal(t, DungeonAnswering, v.State)
	assert.Equal(t, []string{"right", "wrong"}, v.Options)
	assert.Equal(t, 2, v.Deck)

	require.NoError(t, d.Abort(t.Context()))
	assert.Equal(t, StateAborted, d.State())
	require.NoError(t, d.Abort(t.Context()))
}

// ─── Matching ───────────────────────────────────────────────────────────────

func pairs(n int) []domain.StudyPair {
	ps := make([]domain.StudyPair, n)
	for i := range ps {
		ps[i] = domain.StudyPair{Term: string(rune('A' + i)), Definition: string(rune('a' + i))}
	}
	return ps
}

func newMatching(t *testing.T, rng domain.RandomSource, n int) (*Matching, *ledger) {
	t.Helper()
	l := &ledger{}
	m := NewMatching("m1", "set_1", rng, l)
	require.NoError(t, m.Load(t.Context(), pairs(n)))
	return m, l
}

func TestMatching_Load(t *testing.T) {
	m, _ := newMatching(t, fixed(0.3), 5)
	assert.Equal(t, MatchSelecting, m.State())
	assert.Equal(t, BombSeconds, m.Timer)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, m.Terms)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, m.Definitions)

	empty := NewMatching("m2", "s", fixed(0.3), nil)
	assert.ErrorIs(t, empty.Load(t.Context(), []domain.StudyPair{{Term: "x"}}), domain.ErrNoStudyContent)
}

func TestMatching_MatchAndMismatch(t *testing.T) {
	m, l := newMatching(t, fixed(0.9), 3)
	ctx := t.Context()

	c, err := m.Select(ctx, 0, SideTerm)
	require.NoError(t, err)
	assert.True(t, c.Selected)
	assert.Equal(t, MatchSelected, m.State())

	c, err = m.Select(ctx, 0, SideDefinition)
	require.NoError(t, err)
	assert.True(t, c.Matched)
	assert.Equal(t, 65, c.Timer)
	assert.Nil(t, m.Selection)
	assert.Equal(t, MatchSelecting, m.State())
	assert.Equal(t, []domain.Grant{{Reason: domain.ReasonMatchPair, Coins: MatchCoins}}, l.grants)

	m.Select(ctx, 1, SideTerm)
	c, err = m.Select(ctx, 2, SideDefinition)
	require.NoError(t, err)
	assert.True(t, c.Mismatch)
	assert.True(t, m.Shake)
	assert.Equal(t, 55, m.Timer)

	m.Select(ctx, 1, SideTerm)
	c, _ = m.Select(ctx, 1, SideTerm)
	assert.True(t, c.Mismatch, "same column never matches")
	assert.Equal(t, 45, m.Timer)

	c, err = m.Select(ctx, 0, SideTerm)
	require.NoError(t, err)
	assert.True(t, c.Ignored)
	assert.Nil(t, m.Selection)
	assert.False(t, m.Shake)
	assert.Len(t, l.grants, 1)

	_, err = m.Select(ctx, 9, SideTerm)
	assert.ErrorIs(t, err, domain.ErrInvalidMove)
}

func TestMatching_PairGemChance(t *testing.T) {
	m, l := newMatching(t, fixed(0.1), 2)
	m.Select(t.Context(), 1, SideDefinition)
	m.Select(t.Context(), 1, SideTerm)
	assert.Equal(t, MatchGems, l.total().Gems)
}

func TestMatching_Defuse(t *testing.T) {
	m, l := newMatching(t, fixed(0.9), 2)
	ctx := t.Context()

	m.Select(ctx, 0, SideTerm)
	m.Select(ctx, 0, SideDefinition)
	m.Select(ctx, 1, SideDefinition)
	c, err := m.Select(ctx, 1, SideTerm)
	require.NoError(t, err)

	require.NotNil(t, c.Victory)
	assert.Equal(t, Victory{Title: DefuseTitle, Coins: 65 * 50, Gems: 50 + 32, Points: 20}, *c.Victory)
	assert.Equal(t, MatchDefused, m.State())
	assert.True(t, m.Over())

	tot := l.total()
	assert.Equal(t, 2*MatchCoins+65*50, tot.Coins)
	assert.Equal(t, 82, tot.Gems)
	assert.Equal(t, 20, tot.StudyPoints)

	_, err = m.Select(ctx, 0, SideTerm)
	assert.ErrorIs(t, err, domain.ErrGameOver)
	_, err = m.Tick(ctx)
	assert.ErrorIs(t, err, domain.ErrGameOver)
}

func TestMatching_TimerExplodes(t *testing.T) {
	m, l := newMatching(t, fixed(0.9), 2)
	ctx := t.Context()

	for range BombSeconds - 1 {
		c, err := m.Tick(ctx)
		require.NoError(t, err)
		assert.False(t, c.Exploded)
	}
	c, err := m.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, c.Exploded)
	assert.Equal(t, MatchExploded, m.State())
	assert.Empty(t, l.grants)
}

func TestMatching_MismatchCanExplode(t *testing.T) {
	m, _ := newMatching(t, fixed(0.9), 2)
	m.Timer = 8

	m.Select(t.Context(), 0, SideTerm)
	c, err := m.Select(t.Context(), 1, SideDefinition)
	require.NoError(t, err)
	assert.Zero(t, c.Timer)
	assert.True(t, c.Exploded)
	assert.Equal(t, MatchExploded, m.State())
}

func TestMatching_View(t *testing.T) {
	m, _ := newMatching(t, fixed(0.5), 3)
	m.Select(t.Context(), 2, SideTerm)
	m.Select(t.Context(), 2, SideDefinition)

	v := m.View()
	assert.Equal(t, 3, v.PairsTotal)
	assert.Equal(t, 1, v.PairsSolved)
	require.Len(t, v.TermCards, 3)
	for _, card := range v.TermCards {
		assert.Equal(t, card.Index == 2, card.Matched)
		assert.Equal(t, string(rune('A'+card.Index)), card.Text)
	}

	require.NoError(t, m.Abort(t.Context()))
	assert.Equal(t, StateAborted, m.State())
}

func TestShuffle_IsPermutation(t *testing.T) {
	for _, v := range []float64{0, 0.25, 0.5, 0.999} {
		assert.ElementsMatch(t, []int{0, 1, 2, 3, 4, 5}, shuffle(fixed(v), 6))
	}
}
