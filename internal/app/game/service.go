// Package game owns the single live UserState. Every mutation runs under
// one lock, swaps in the state returned by a pure reducer and persists it
// before the lock is released, so concurrent callers see the same ordering
// a single player clicking through the game would produce.
package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sskkslay-netizen/Bst/internal/app/catalog"
	"github.com/sskkslay-netizen/Bst/internal/app/gacha"
	"github.com/sskkslay-netizen/Bst/internal/app/minigame"
	"github.com/sskkslay-netizen/Bst/internal/app/progress"
	"github.com/sskkslay-netizen/Bst/internal/app/store"
	"github.com/sskkslay-netizen/Bst/internal/domain"
	"github.com/sskkslay-netizen/Bst/internal/infra/ai"
	"github.com/sskkslay-netizen/Bst/internal/infra/observability"
)

// QuotaWarning is reported when a save no longer fits the store.
const QuotaWarning = "Save Warning: Too many custom photos! Try deleting some custom card art in the Dev terminal."

// SaveWarning is reported when a save fails for any other reason.
const SaveWarning = "Save Warning: progress could not be written and will be lost on exit."

// Outcome is attached to every mutating call.
type Outcome struct {
	// Warning is set when the new state is live but was not persisted.
	Warning string         `json:"warning,omitempty"`
	Grants  []domain.Grant `json:"grants,omitempty"`
}

// Options configures a Service.
type Options struct {
	Store   *store.Adapter
	Gacha   gacha.Options
	AI      ai.Service
	RNG     domain.RandomSource
	Journal *observability.Journal
	Logger  *observability.Logger
	Now     func() time.Time
}

// Service is the game engine shared by the API and the CLI.
type Service struct {
	mu      sync.Mutex
	state   *domain.UserState
	report  store.LoadReport
	pending []domain.Grant

	store   *store.Adapter
	engine  *gacha.Engine
	ai      ai.Service
	rng     domain.RandomSource
	journal *observability.Journal
	log     *observability.Logger
	now     func() time.Time

	dungeons map[string]*minigame.Dungeon
	matches  map[string]*minigame.Matching
	focus    *progress.FocusTimer

	// Auxiliary values the store rejected for quota. They stay live for
	// this run.
	lastClaim string
	notes     *string
}

// New loads the saved game and returns a ready service.
func New(ctx context.Context, opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("game: store is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RNG == nil {
		opts.RNG = gacha.DefaultRNG()
	}
	if opts.AI == nil {
		opts.AI = ai.Offline{}
	}

	state, report, err := opts.Store.Load(ctx)
	if err != nil {
		return nil, err
	}

	s := &Service{
		state:    state,
		report:   report,
		store:    opts.Store,
		engine:   gacha.NewEngine(opts.RNG, opts.Gacha, opts.Store.Presets().XPItems),
		ai:       opts.AI,
		rng:      opts.RNG,
		journal:  opts.Journal,
		log:      opts.Logger.Named("game"),
		now:      opts.Now,
		dungeons: make(map[string]*minigame.Dungeon),
		matches:  make(map[string]*minigame.Matching),
		focus:    progress.NewFocusTimer(),
	}
	if report.Corrupt {
		s.log.Warn("saved game was unreadable, a new game was started")
	}
	return s, nil
}

// State returns a copy of the live state.
func (s *Service) State() *domain.UserState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// LoadReport describes what happened when the save was loaded.
func (s *Service) LoadReport() store.LoadReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// Journal returns recent operations, newest last.
func (s *Service) Journal(limit int) []observability.Entry {
	if s.journal == nil {
		return []observability.Entry{}
	}
	return s.journal.Recent(limit)
}

// ─── Mutation Plumbing ──────────────────────────────────────────────────────

// mutate runs fn against the live state under the lock. An error leaves
// the live state as it was; returning the input state unchanged skips the
// save. Grants queued by mini-games during fn are folded in before the
// save.
func (s *Service) mutate(ctx context.Context, op string, attrs map[string]string,
	fn func(st *domain.UserState) (*domain.UserState, error)) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.journal.Begin(ctx, op, attrs)
	s.pending = s.pending[:0]

	next, err := fn(s.state)
	if err != nil {
		s.journal.End(entry, err)
		s.pending = s.pending[:0]
		return Outcome{}, err
	}
	if next == nil {
		next = s.state
	}
	if next == s.state && len(s.pending) == 0 {
		s.journal.End(entry, nil)
		return Outcome{}, nil
	}

	var out Outcome
	if len(s.pending) > 0 {
		next = next.Clone()
		for _, g := range s.pending {
			next = progress.ApplyGrant(next, g, s.now())
			countGrant(g)
		}
		out.Grants = append(out.Grants, s.pending...)
		s.pending = s.pending[:0]
	}

	s.state = next
	out.Warning = s.persist(ctx)
	s.journal.End(entry, nil)
	return out, nil
}

// persist saves the live state. The caller holds the lock.
func (s *Service) persist(ctx context.Context) string {
	err := s.store.Save(ctx, s.state)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrQuotaExceeded):
		return QuotaWarning
	default:
		s.log.Error("save failed", "error", err)
		return SaveWarning
	}
}

// auxWarning classifies a failed auxiliary key write. A quota failure
// becomes a warning and the caller keeps the value in memory.
func (s *Service) auxWarning(key string, err error) (string, error) {
	if err == nil {
		return "", nil
	}
	if errors.Is(err, domain.ErrQuotaExceeded) {
		s.log.Warn("auxiliary key not saved", "key", key, "error", err)
		return QuotaWarning, nil
	}
	return "", fmt.Errorf("store %s: %w", key, err)
}

// reward queues a grant from a mini-game. It runs inside mutate, so the
// lock is already held.
func (s *Service) reward(_ context.Context, g domain.Grant) {
	s.pending = append(s.pending, g)
}

// grant records a grant issued directly by a reducer.
func (out *Outcome) grant(g domain.Grant) {
	if g.IsZero() {
		return
	}
	countGrant(g)
	out.Grants = append(out.Grants, g)
}

func countGrant(g domain.Grant) {
	reason := string(g.Reason)
	if g.Coins != 0 {
		observability.GrantsTotal.WithLabelValues(reason, "coins").Add(float64(max(0, g.Coins)))
	}
	if g.Gems != 0 {
		observability.GrantsTotal.WithLabelValues(reason, "gems").Add(float64(max(0, g.Gems)))
	}
	if g.StudyPoints != 0 {
		observability.GrantsTotal.WithLabelValues(reason, "study_points").Add(float64(max(0, g.StudyPoints)))
	}
}

// ─── Catalog ────────────────────────────────────────────────────────────────

// ApplyCatalog merges a custom catalog into the live state. It is the
// callback handed to catalog.Watch.
func (s *Service) ApplyCatalog(c *catalog.Catalog) {
	out, err := s.mutate(context.Background(), "catalog.merge", nil, func(st *domain.UserState) (*domain.UserState, error) {
		next := st.Clone()
		catalog.Merge(next, c)
		return next, nil
	})
	if err != nil {
		s.log.Error("catalog merge failed", "error", err)
		return
	}
	s.log.Info("custom catalog merged",
		"cards", len(c.Cards), "equipment", len(c.Equipment), "banners", len(c.Banners), "warning", out.Warning)
}
