package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sskkslay-netizen/Bst/internal/app/catalog"
	"github.com/sskkslay-netizen/Bst/internal/app/gacha"
	"github.com/sskkslay-netizen/Bst/internal/app/minigame"
	"github.com/sskkslay-netizen/Bst/internal/app/progress"
	"github.com/sskkslay-netizen/Bst/internal/app/store"
	"github.com/sskkslay-netizen/Bst/internal/domain"
	"github.com/sskkslay-netizen/Bst/internal/infra/ai"
	"github.com/sskkslay-netizen/Bst/internal/infra/observability"
	"github.com/sskkslay-netizen/Bst/internal/infra/sqlite"
)

const admin = "admin@example.com"

// ─── Fixtures ───────────────────────────────────────────────────────────────

type fakeAI struct {
	extract   string
	questions []domain.Question
	pairs     []domain.StudyPair
	reply     string

	lastName string
	lastMode ai.ChatMode
}

func (f *fakeAI) ExtractStudyMaterial(context.Context, ai.Image) string { return f.extract }
func (f *fakeAI) GenerateQuestions(context.Context, string) []domain.Question {
	return f.questions
}
func (f *fakeAI) GenerateMatchingPairs(context.Context, string) []domain.StudyPair {
	return f.pairs
}
func (f *fakeAI) CharacterReply(_ context.Context, name string, _ []ai.Message, _ string, mode ai.ChatMode) string {
	f.lastName, f.lastMode = name, mode
	return f.reply
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	svc   *Service
	db    *sqlite.DB
	ai    *fakeAI
	clock *clock
	opts  Options
}

// setup builds a service over a fresh sqlite store. Every random roll
// returns 0.99: no crits, no bonus gems, R rarity draws.
func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clk := &clock{t: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
	fake := &fakeAI{reply: "Hmph."}
	opts := Options{
		Store: store.New(db, store.Options{
			AdminEmail: admin,
			Presets:    catalog.MustPresets(clk.Now()),
			Now:        clk.Now,
		}),
		Gacha:   gacha.DefaultOptions(),
		AI:      fake,
		RNG:     &gacha.Sequence{Values: []float64{0.99}},
		Journal: observability.NewJournal(observability.DefaultJournalConfig()),
		Now:     clk.Now,
	}
	svc, err := New(context.Background(), opts)
	require.NoError(t, err)
	return &fixture{svc: svc, db: db, ai: fake, clock: clk, opts: opts}
}

func (f *fixture) reload(t *testing.T) *Service {
	t.Helper()
	svc, err := New(context.Background(), f.opts)
	require.NoError(t, err)
	return svc
}

func starterID(t *testing.T, svc *Service) string {
	t.Helper()
	st := svc.State()
	require.NotEmpty(t, st.Inventory)
	return st.Inventory[0]
}

// ─── Gacha ──────────────────────────────────────────────────────────────────

func TestNew_FreshGame(t *testing.T) {
	f := setup(t)
	assert.True(t, f.svc.LoadReport().Fresh)
	assert.Equal(t, domain.InitialGems, f.svc.State().Gems)
	assert.Len(t, f.svc.Collection(), 1)
	assert.NotEmpty(t, f.svc.Banners())
}

func TestPull_PersistsAcrossRestart(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.Pull(ctx, "b_standard", false)
	require.NoError(t, err)
	require.Len(t, res.Drawn, 1)
	assert.Equal(t, domain.InitialGems-100, res.Gems)
	assert.Empty(t, res.Warning)

	again := f.reload(t)
	assert.Equal(t, domain.InitialGems-100, again.State().Gems)
	assert.False(t, again.LoadReport().Fresh)
}

func TestPull_FailureLeavesState(t *testing.T) {
	f := setup(t)
	before := f.svc.State()

	_, err := f.svc.Pull(context.Background(), "b_missing", true)
	require.ErrorIs(t, err, domain.ErrBannerNotFound)
	assert.Equal(t, before, f.svc.State())

	entries := f.svc.Journal(1)
	require.Len(t, entries, 1)
	assert.Equal(t, "gacha.pull", entries[0].Operation)
	assert.Equal(t, observability.EntryError, entries[0].Status)
}

func TestPull_QuotaWarningKeepsMemoryState(t *testing.T) {
	f := setup(t)
	f.db.SetMaxBytes(1024)

	res, err := f.svc.Pull(context.Background(), "b_standard", true)
	require.NoError(t, err)
	assert.Equal(t, QuotaWarning, res.Warning)
	assert.Equal(t, domain.InitialGems-1000, f.svc.State().Gems)
}

func TestPull_ConcurrentCallsSerialize(t *testing.T) {
	f := setup(t)
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Pull(context.Background(), "b_standard", false)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	st := f.svc.State()
	assert.Equal(t, domain.InitialGems-2000, st.Gems)
	drawn := len(st.Inventory) + len(st.EquipmentInstances) - 1
	assert.Equal(t, 20, drawn)
}

// ─── Collection ─────────────────────────────────────────────────────────────

func TestLevelUp(t *testing.T) {
	f := setup(t)
	id := starterID(t, f.svc)

	res, err := f.svc.LevelUp(context.Background(), id, "xp_r")
	require.NoError(t, err)
	assert.Equal(t, 500, res.XP)
	assert.Equal(t, 250, res.CoinsSpent)

	st := f.svc.State()
	assert.Equal(t, domain.InitialCoins-250, st.Coins)
	assert.Equal(t, 1, st.XPItems["xp_r"])
}

func TestToggleSquadAndFavorite(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	id := starterID(t, f.svc)

	sq, err := f.svc.ToggleSquad(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, sq.Members)
	_, err = f.svc.ToggleSquad(ctx, id)
	require.NoError(t, err)
	assert.Len(t, f.svc.Squad().Members, 1)

	card, err := f.svc.ToggleFavorite(ctx, id)
	require.NoError(t, err)
	assert.True(t, card.Card.IsFavorite)

	_, err = f.svc.Card("nope")
	assert.ErrorIs(t, err, domain.ErrInstanceNotFound)
}

// ─── Home ───────────────────────────────────────────────────────────────────

func TestClaimDaily_OncePerDay(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	out, err := f.svc.ClaimDaily(ctx)
	require.NoError(t, err)
	require.Len(t, out.Grants, 1)
	assert.Equal(t, progress.DailyClaimGems, out.Grants[0].Gems)

	_, err = f.svc.ClaimDaily(ctx)
	assert.ErrorIs(t, err, domain.ErrAlreadyClaimed)

	home, err := f.svc.Home(ctx)
	require.NoError(t, err)
	assert.False(t, home.CanClaim)

	f.clock.Advance(24 * time.Hour)
	_, err = f.svc.ClaimDaily(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.InitialGems+2*progress.DailyClaimGems, f.svc.State().Gems)
}

func TestClaimDaily_QuotaKeepsClaim(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.db.SetMaxBytes(1)

	out, err := f.svc.ClaimDaily(ctx)
	require.NoError(t, err)
	assert.Equal(t, QuotaWarning, out.Warning)
	require.Len(t, out.Grants, 1)
	assert.Equal(t, domain.InitialGems+progress.DailyClaimGems, f.svc.State().Gems)

	_, err = f.svc.ClaimDaily(ctx)
	assert.ErrorIs(t, err, domain.ErrAlreadyClaimed, "unsaved claim still counts for this run")

	home, err := f.svc.Home(ctx)
	require.NoError(t, err)
	assert.False(t, home.CanClaim)
}

func TestSaveNotes_QuotaKeepsNotes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.db.SetMaxBytes(1)

	long := "Photosynthesis turns light, water and carbon dioxide into glucose."
	out, err := f.svc.SaveNotes(ctx, long)
	require.NoError(t, err)
	assert.Equal(t, QuotaWarning, out.Warning)
	require.Len(t, out.Grants, 1)

	home, err := f.svc.Home(ctx)
	require.NoError(t, err)
	assert.Equal(t, long, home.Notes)
}

func TestSaveNotes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.SaveNotes(ctx, "too short")
	assert.ErrorIs(t, err, domain.ErrNotesTooShort)

	long := "The mitochondria is the powerhouse of the cell and makes ATP all day."
	out, err := f.svc.SaveNotes(ctx, long)
	require.NoError(t, err)
	require.Len(t, out.Grants, 1)

	home, err := f.svc.Home(ctx)
	require.NoError(t, err)
	assert.Equal(t, long, home.Notes)
	assert.Equal(t, progress.NotesPoints, home.TodayPoints)
}

func TestBuyXPItem(t *testing.T) {
	f := setup(t)
	_, err := f.svc.BuyXPItem(context.Background(), "xp_sr")
	require.NoError(t, err)
	st := f.svc.State()
	assert.Equal(t, 1, st.XPItems["xp_sr"])
	assert.Equal(t, domain.InitialCoins-7500, st.Coins)

	_, err = f.svc.BuyXPItem(context.Background(), "xp_gold")
	assert.ErrorIs(t, err, domain.ErrUnknownItem)
	assert.Len(t, f.svc.Shop(), 4)
}

func TestFocusTick(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.FocusTick(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Grants, "paused timer earns nothing")

	assert.True(t, f.svc.FocusToggle().Active)
	res, err = f.svc.FocusTick(ctx)
	require.NoError(t, err)
	require.Len(t, res.Grants, 1)
	assert.Equal(t, progress.FocusSeconds-1, res.Focus.Remaining)
	assert.Equal(t, domain.InitialCoins+progress.FocusMinuteCoins, f.svc.State().Coins)

	assert.Equal(t, progress.FocusSeconds, f.svc.FocusReset().Remaining)
}

// ─── Study ──────────────────────────────────────────────────────────────────

func addSet(t *testing.T, f *fixture) domain.StudySet {
	t.Helper()
	res, err := f.svc.AddStudySet(context.Background(), StudyInput{Name: "Biology", Material: "cells and more cells"})
	require.NoError(t, err)
	return res.Set
}

func TestAddStudySet(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.AddStudySet(ctx, StudyInput{Name: "Chem", URL: "https://example.com/acids"})
	require.NoError(t, err)
	assert.Equal(t, "SOURCE: https://example.com/acids\n\nNOTES: Automated Scrape Complete", res.Set.Material)
	assert.Equal(t, domain.InitialCoins+progress.ArchiveCoins, f.svc.State().Coins)

	f.ai.extract = "Photosynthesis"
	res, err = f.svc.AddStudySet(ctx, StudyInput{Name: "Plants", Image: &ai.Image{Data: "eA==", MIMEType: "image/png"}})
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis", res.Set.Material)
	assert.Equal(t, "Plants", f.svc.StudySets()[0].Name)

	f.ai.extract = ai.FallbackExtractError
	_, err = f.svc.AddStudySet(ctx, StudyInput{Name: "Blurry", Image: &ai.Image{}})
	assert.ErrorIs(t, err, domain.ErrNoStudyContent)

	_, err = f.svc.AddStudySet(ctx, StudyInput{Name: "  ", Material: "x"})
	assert.ErrorIs(t, err, domain.ErrNoStudyContent)
}

func TestDungeon_Flow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	set := addSet(t, f)
	coins := f.svc.State().Coins

	f.ai.questions = []domain.Question{
		{Question: "q1", Options: []string{"a", "b"}, Answer: 0},
		{Question: "q2", Options: []string{"a", "b"}, Answer: 1},
	}
	start, err := f.svc.StartDungeon(ctx, set.ID)
	require.NoError(t, err)
	id := start.Dungeon.ID
	assert.Equal(t, 250, start.Dungeon.PlayerMaxHP)
	assert.Equal(t, "q1", start.Dungeon.Question)

	hit, err := f.svc.Answer(ctx, id, 0)
	require.NoError(t, err)
	require.True(t, hit.Answer.Correct)
	assert.Equal(t, 85, hit.Answer.Hit.Damage)
	assert.Equal(t, coins+minigame.HitCoins, f.svc.State().Coins)
	require.Len(t, hit.Grants, 1)

	miss, err := f.svc.Answer(ctx, id, 0)
	require.NoError(t, err)
	assert.False(t, miss.Answer.Correct)
	assert.Equal(t, minigame.DungeonLocked, miss.Dungeon.State)

	_, err = f.svc.Answer(ctx, id, 1)
	assert.ErrorIs(t, err, domain.ErrInputLocked)
	_, err = f.svc.Unlock(ctx, id)
	assert.ErrorIs(t, err, domain.ErrInputLocked)

	f.clock.Advance(minigame.LockDuration)
	counter, err := f.svc.Unlock(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 17, counter.Counter.Damage)
	assert.Equal(t, "b", counter.Counter.CorrectAnswer)
	assert.Equal(t, 233, counter.Dungeon.PlayerHP)

	require.NoError(t, f.svc.AbortDungeon(ctx, id))
	_, err = f.svc.Dungeon(id)
	assert.ErrorIs(t, err, domain.ErrGameNotFound)
}

func TestDungeon_NeedsQuestionsAndLeader(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	set := addSet(t, f)

	_, err := f.svc.StartDungeon(ctx, set.ID)
	assert.ErrorIs(t, err, domain.ErrNoStudyContent)

	_, err = f.svc.StartDungeon(ctx, "set_missing")
	assert.ErrorIs(t, err, domain.ErrNoStudyContent)

	_, err = f.svc.ToggleSquad(ctx, starterID(t, f.svc))
	require.NoError(t, err)
	f.ai.questions = []domain.Question{{Question: "q", Options: []string{"a"}, Answer: 0}}
	_, err = f.svc.StartDungeon(ctx, set.ID)
	assert.ErrorIs(t, err, domain.ErrNoLeader)
}

func TestMatching_DefuseCachesPairs(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	set := addSet(t, f)
	before := f.svc.State()

	f.ai.pairs = []domain.StudyPair{{Term: "ATP", Definition: "Energy currency"}}
	start, err := f.svc.StartMatching(ctx, set.ID)
	require.NoError(t, err)
	id := start.Matching.ID
	assert.Equal(t, 1, start.Matching.PairsTotal)
	assert.Equal(t, f.ai.pairs, f.svc.StudySets()[0].Items)

	_, err = f.svc.Select(ctx, id, 0, minigame.SideTerm)
	require.NoError(t, err)
	res, err := f.svc.Select(ctx, id, 0, minigame.SideDefinition)
	require.NoError(t, err)
	require.NotNil(t, res.Click.Victory)
	assert.Equal(t, minigame.MatchDefused, res.Matching.State)

	st := f.svc.State()
	assert.Equal(t, before.Coins+minigame.MatchCoins+60*minigame.DefuseCoinsPerS, st.Coins)
	assert.Equal(t, before.Gems+minigame.DefuseBaseGems+30, st.Gems)

	_, err = f.svc.Matching(id)
	assert.ErrorIs(t, err, domain.ErrGameNotFound, "finished boards are closed")
}

func TestMatching_FallsBackToCachedPairs(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	set := addSet(t, f)

	_, err := f.svc.StartMatching(ctx, set.ID)
	assert.ErrorIs(t, err, domain.ErrNoStudyContent)

	f.ai.pairs = []domain.StudyPair{{Term: "a", Definition: "b"}, {Term: "c", Definition: "d"}}
	_, err = f.svc.StartMatching(ctx, set.ID)
	require.NoError(t, err)

	f.ai.pairs = nil
	res, err := f.svc.StartMatching(ctx, set.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Matching.PairsTotal)
}

func TestMatching_TickAndAbort(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	set := addSet(t, f)
	f.ai.pairs = []domain.StudyPair{{Term: "a", Definition: "b"}, {Term: "c", Definition: "d"}}

	start, err := f.svc.StartMatching(ctx, set.ID)
	require.NoError(t, err)
	res, err := f.svc.MatchTick(ctx, start.Matching.ID)
	require.NoError(t, err)
	assert.Equal(t, minigame.BombSeconds-1, res.Click.Timer)

	require.NoError(t, f.svc.AbortMatching(ctx, start.Matching.ID))
	_, err = f.svc.MatchTick(ctx, start.Matching.ID)
	assert.ErrorIs(t, err, domain.ErrGameNotFound)
}

// ─── Chat ───────────────────────────────────────────────────────────────────

func TestChat(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	reply, err := f.svc.Chat(ctx, ChatRequest{CardID: starterID(t, f.svc), Message: "hello", Mode: "shouting"})
	require.NoError(t, err)
	assert.Equal(t, "Osamu Dazai", reply.Character)
	assert.Equal(t, "Hmph.", reply.Reply)
	assert.Equal(t, ai.ModeNormal, f.ai.lastMode)

	_, err = f.svc.Chat(ctx, ChatRequest{CardID: "nope", Message: "hi"})
	assert.ErrorIs(t, err, domain.ErrInstanceNotFound)
}

// ─── Dev & Account ──────────────────────────────────────────────────────────

func TestDevTools_Gated(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.DevGrantCurrency(ctx, true, true)
	require.ErrorIs(t, err, domain.ErrNotDev)

	_, err = f.svc.Login(ctx, "player@example.com")
	require.NoError(t, err)
	assert.False(t, f.svc.IsDev())

	_, err = f.svc.Login(ctx, "Admin@Example.com")
	require.NoError(t, err)
	assert.True(t, f.svc.IsDev())

	_, err = f.svc.DevGrantCurrency(ctx, true, false)
	require.NoError(t, err)
	assert.Equal(t, domain.InitialCoins+DevCoinGrant, f.svc.State().Coins)

	card, err := f.svc.DevUpsertCard(ctx, domain.CardDefinition{Name: "Custom", Rarity: domain.RaritySR, Element: domain.ElementLogic})
	require.NoError(t, err)
	_, ok := f.svc.State().FindCard(card.Item.ID)
	assert.True(t, ok)

	gear, err := f.svc.DevGrantEquipment(ctx, "eq_notebook")
	require.NoError(t, err)
	assert.Contains(t, f.svc.State().EquipmentInstances, gear.Item.ID)

	_, err = f.svc.Logout(ctx)
	require.NoError(t, err)
	assert.False(t, f.svc.IsDev())
}

func TestApplyCatalog(t *testing.T) {
	f := setup(t)
	f.svc.ApplyCatalog(&catalog.Catalog{
		Cards: []domain.CardDefinition{catalog.FillCard(domain.CardDefinition{ID: "c_file", Name: "From File", Rarity: domain.RarityR})},
	})
	_, ok := f.svc.State().FindCard("c_file")
	assert.True(t, ok)

	again := f.reload(t)
	_, ok = again.State().FindCard("c_file")
	assert.True(t, ok, "merged definitions are saved")
}
