package game

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sskkslay-netizen/Bst/internal/app/gacha"
	"github.com/sskkslay-netizen/Bst/internal/app/progress"
	"github.com/sskkslay-netizen/Bst/internal/app/store"
	"github.com/sskkslay-netizen/Bst/internal/domain"
	"github.com/sskkslay-netizen/Bst/internal/infra/observability"
)

// ─── Gacha ──────────────────────────────────────────────────────────────────

// PullResult is the outcome of a banner pull.
type PullResult struct {
	Outcome
	Drawn []gacha.Drawn `json:"drawn"`
	Gems  int           `json:"gems"`
}

// Banners lists the banners that are open now.
func (s *Service) Banners() []domain.Banner {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	out := make([]domain.Banner, 0, len(s.state.MasterBanners))
	for _, b := range s.state.MasterBanners {
		if !b.Expired(now) {
			out = append(out, b)
		}
	}
	return out
}

// Pull draws once or ten times on a banner.
func (s *Service) Pull(ctx context.Context, bannerID string, isTen bool) (PullResult, error) {
	var res PullResult
	var cost int
	out, err := s.mutate(ctx, "gacha.pull", map[string]string{"banner": bannerID, "ten": strconv.FormatBool(isTen)},
		func(st *domain.UserState) (*domain.UserState, error) {
			next, drawn, err := s.engine.Pull(st, bannerID, isTen)
			if err != nil {
				return nil, err
			}
			cost = st.Gems - next.Gems
			res.Drawn = drawn
			res.Gems = next.Gems
			return next, nil
		})
	if err != nil {
		return PullResult{}, err
	}
	res.Outcome = out

	observability.GemsSpent.WithLabelValues(bannerID).Add(float64(cost))
	for _, d := range res.Drawn {
		observability.PullsTotal.WithLabelValues(bannerID, string(d.Category), string(d.Rarity)).Inc()
		if d.Pity {
			observability.PityTriggers.WithLabelValues(bannerID).Inc()
		}
	}
	s.log.Info("pull", "banner", bannerID, "draws", len(res.Drawn), "gems_spent", cost)
	return res, nil
}

// ─── Collection ─────────────────────────────────────────────────────────────

// CollectionEntry is one owned card with its resolved stats.
type CollectionEntry struct {
	domain.CardView
	InSquad bool `json:"inSquad"`
}

// Collection resolves every owned card in inventory order.
func (s *Service) Collection() []CollectionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	squad := make(map[string]bool)
	for _, id := range s.state.ActiveTeam() {
		squad[id] = true
	}
	out := make([]CollectionEntry, 0, len(s.state.Inventory))
	for _, id := range s.state.Inventory {
		if v, ok := s.state.ResolveCard(id); ok {
			out = append(out, CollectionEntry{CardView: v, InSquad: squad[id]})
		}
	}
	return out
}

// Card resolves one owned card.
func (s *Service) Card(instanceID string) (domain.CardView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.state.ResolveCard(instanceID)
	if !ok {
		return domain.CardView{}, fmt.Errorf("card %s: %w", instanceID, domain.ErrInstanceNotFound)
	}
	return v, nil
}

// LevelUpResult is the outcome of feeding an xp item.
type LevelUpResult struct {
	Outcome
	gacha.LevelResult
}

// LevelUp feeds one xp item to a card.
func (s *Service) LevelUp(ctx context.Context, instanceID, itemID string) (LevelUpResult, error) {
	var res LevelUpResult
	out, err := s.mutate(ctx, "card.level_up", map[string]string{"card": instanceID, "item": itemID},
		func(st *domain.UserState) (*domain.UserState, error) {
			next, lr, err := s.engine.LevelUp(st, instanceID, itemID)
			if err != nil {
				return nil, err
			}
			res.LevelResult = lr
			return next, nil
		})
	if err != nil {
		return LevelUpResult{}, err
	}
	res.Outcome = out
	observability.LevelUps.Add(float64(res.LevelsGained))
	return res, nil
}

// CardResult carries a card after a change.
type CardResult struct {
	Outcome
	Card domain.CardView `json:"card"`
}

// LimitBreak fuses fodder into target.
func (s *Service) LimitBreak(ctx context.Context, targetID, fodderID string) (CardResult, error) {
	res, err := s.cardChange(ctx, "card.limit_break", targetID, map[string]string{"fodder": fodderID},
		func(st *domain.UserState) (*domain.UserState, error) {
			return gacha.LimitBreak(st, targetID, fodderID)
		})
	if err == nil {
		observability.LimitBreaks.Inc()
	}
	return res, err
}

// Equip puts gear on a card; an empty equipmentID takes it off.
func (s *Service) Equip(ctx context.Context, cardID, equipmentID string) (CardResult, error) {
	return s.cardChange(ctx, "card.equip", cardID, map[string]string{"equipment": equipmentID},
		func(st *domain.UserState) (*domain.UserState, error) {
			return gacha.Equip(st, cardID, equipmentID)
		})
}

// ToggleFavorite flips a card's favorite flag.
func (s *Service) ToggleFavorite(ctx context.Context, instanceID string) (CardResult, error) {
	return s.cardChange(ctx, "card.favorite", instanceID, nil, func(st *domain.UserState) (*domain.UserState, error) {
		return progress.ToggleFavorite(st, instanceID)
	})
}

func (s *Service) cardChange(ctx context.Context, op, cardID string, attrs map[string]string,
	fn func(st *domain.UserState) (*domain.UserState, error)) (CardResult, error) {
	if attrs == nil {
		attrs = map[string]string{}
	}
	attrs["card"] = cardID

	var card domain.CardView
	out, err := s.mutate(ctx, op, attrs, func(st *domain.UserState) (*domain.UserState, error) {
		next, err := fn(st)
		if err != nil {
			return nil, err
		}
		card, _ = next.ResolveCard(cardID)
		return next, nil
	})
	if err != nil {
		return CardResult{}, err
	}
	return CardResult{Outcome: out, Card: card}, nil
}

// ─── Squad ──────────────────────────────────────────────────────────────────

// Squad is the active team with its unlocked synergies.
type Squad struct {
	Members   []domain.CardView `json:"members"`
	Synergies []domain.Synergy  `json:"synergies"`
}

// SquadResult carries the squad after a change.
type SquadResult struct {
	Outcome
	Squad
}

// Squad resolves the active team.
func (s *Service) Squad() Squad {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.squadLocked(s.state)
}

func (s *Service) squadLocked(st *domain.UserState) Squad {
	sq := Squad{Members: []domain.CardView{}, Synergies: []domain.Synergy{}}
	for _, id := range st.ActiveTeam() {
		if v, ok := st.ResolveCard(id); ok {
			sq.Members = append(sq.Members, v)
		}
	}
	sq.Synergies = append(sq.Synergies, domain.ActiveSynergies(st.SquadNames(), s.store.Presets().Synergies)...)
	return sq
}

// ToggleSquad deploys or withdraws a card from the active squad.
func (s *Service) ToggleSquad(ctx context.Context, instanceID string) (SquadResult, error) {
	var sq Squad
	out, err := s.mutate(ctx, "squad.toggle", map[string]string{"card": instanceID},
		func(st *domain.UserState) (*domain.UserState, error) {
			next, err := progress.ToggleSquad(st, instanceID)
			if err != nil {
				return nil, err
			}
			sq = s.squadLocked(next)
			return next, nil
		})
	if err != nil {
		return SquadResult{}, err
	}
	return SquadResult{Outcome: out, Squad: sq}, nil
}

// ─── Home ───────────────────────────────────────────────────────────────────

// Home is the home screen: digest, heatmap and focus timer.
type Home struct {
	progress.Summary
	Heatmap [][]progress.Day    `json:"heatmap"`
	Focus   progress.FocusTimer `json:"focus"`
	Notes   string              `json:"notes"`
}

// Home builds the home screen.
func (s *Service) Home(ctx context.Context) (Home, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, err := s.store.LastClaim(ctx)
	if err != nil {
		return Home{}, err
	}
	if s.lastClaim > last {
		last = s.lastClaim
	}
	notes, err := s.store.Notes(ctx)
	if err != nil {
		return Home{}, err
	}
	if s.notes != nil {
		notes = *s.notes
	}
	now := s.now()
	return Home{
		Summary: progress.Summarize(s.state, last, now),
		Heatmap: progress.Heatmap(s.state.StudyHistory, now, progress.HeatmapWeeks),
		Focus:   *s.focus,
		Notes:   notes,
	}, nil
}

// ClaimDaily pays the daily grant once per calendar day.
func (s *Service) ClaimDaily(ctx context.Context) (Outcome, error) {
	var g domain.Grant
	var warning string
	out, err := s.mutate(ctx, "home.daily_claim", nil, func(st *domain.UserState) (*domain.UserState, error) {
		last, err := s.store.LastClaim(ctx)
		if err != nil {
			return nil, err
		}
		if s.lastClaim > last {
			last = s.lastClaim
		}
		next, grant, date, err := progress.ClaimDaily(st, last, s.now())
		if err != nil {
			return nil, err
		}
		if warning, err = s.auxWarning(store.LastClaimKey, s.store.SetLastClaim(ctx, date)); err != nil {
			return nil, err
		}
		s.lastClaim = date
		g = grant
		return next, nil
	})
	if err != nil {
		return Outcome{}, err
	}
	out.grant(g)
	if out.Warning == "" {
		out.Warning = warning
	}
	return out, nil
}

// SaveNotes stores the notes and pays the reward when they are long
// enough. Short notes are still stored.
func (s *Service) SaveNotes(ctx context.Context, notes string) (Outcome, error) {
	var g domain.Grant
	var warning string
	out, err := s.mutate(ctx, "home.notes", nil, func(st *domain.UserState) (*domain.UserState, error) {
		werr := s.store.SetNotes(ctx, notes)
		w, err := s.auxWarning(store.NotesKey, werr)
		if err != nil {
			return nil, err
		}
		warning = w
		if werr != nil {
			s.notes = &notes
		} else {
			s.notes = nil
		}
		next, grant, err := progress.SaveNotes(st, notes, s.now())
		if err != nil {
			return nil, err
		}
		g = grant
		return next, nil
	})
	if err != nil {
		return Outcome{}, err
	}
	out.grant(g)
	if out.Warning == "" {
		out.Warning = warning
	}
	return out, nil
}

// BuyXPItem buys one xp item from the shop.
func (s *Service) BuyXPItem(ctx context.Context, itemID string) (Outcome, error) {
	item, ok := s.engine.XPItem(itemID)
	if !ok {
		return Outcome{}, fmt.Errorf("shop %s: %w", itemID, domain.ErrUnknownItem)
	}
	return s.mutate(ctx, "shop.buy", map[string]string{"item": itemID}, func(st *domain.UserState) (*domain.UserState, error) {
		return progress.BuyXPItem(st, item)
	})
}

// Shop lists the xp items for sale.
func (s *Service) Shop() []domain.XPItem {
	return append([]domain.XPItem(nil), s.store.Presets().XPItems...)
}

// ─── Focus Timer ────────────────────────────────────────────────────────────

// FocusResult carries the timer after a change.
type FocusResult struct {
	Outcome
	Focus progress.FocusTimer `json:"focus"`
}

// FocusToggle starts or pauses the focus timer.
func (s *Service) FocusToggle() progress.FocusTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focus.Toggle()
	return *s.focus
}

// FocusReset stops the timer and restores the full session.
func (s *Service) FocusReset() progress.FocusTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focus.Reset()
	return *s.focus
}

// FocusTick advances the timer one second and pays what it earned.
func (s *Service) FocusTick(ctx context.Context) (FocusResult, error) {
	var timer progress.FocusTimer
	out, err := s.mutate(ctx, "focus.tick", nil, func(st *domain.UserState) (*domain.UserState, error) {
		for _, g := range s.focus.Tick() {
			s.reward(ctx, g)
		}
		timer = *s.focus
		return st, nil
	})
	if err != nil {
		return FocusResult{}, err
	}
	return FocusResult{Outcome: out, Focus: timer}, nil
}

// ─── Account ────────────────────────────────────────────────────────────────

// Login signs a player in and recomputes dev access.
func (s *Service) Login(ctx context.Context, email string) (Outcome, error) {
	return s.mutate(ctx, "account.login", nil, func(st *domain.UserState) (*domain.UserState, error) {
		next := progress.Login(st, email, s.store.AdminEmail())
		s.log.Info("login", "dev", next.IsDev)
		return next, nil
	})
}

// Logout signs the player out. Progress stays saved.
func (s *Service) Logout(ctx context.Context) (Outcome, error) {
	return s.mutate(ctx, "account.logout", nil, func(st *domain.UserState) (*domain.UserState, error) {
		return progress.Logout(st), nil
	})
}
