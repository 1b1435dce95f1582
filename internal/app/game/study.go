package game

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sskkslay-netizen/Bst/internal/app/minigame"
	"github.com/sskkslay-netizen/Bst/internal/app/progress"
	"github.com/sskkslay-netizen/Bst/internal/domain"
	"github.com/sskkslay-netizen/Bst/internal/infra/ai"
	"github.com/sskkslay-netizen/Bst/internal/infra/observability"
)

// ─── Study Sets ─────────────────────────────────────────────────────────────

// StudyInput is new material to archive. Image wins over URL, URL over
// plain material.
type StudyInput struct {
	Name     string    `json:"name"`
	Material string    `json:"material"`
	URL      string    `json:"url,omitempty"`
	Image    *ai.Image `json:"image,omitempty"`
}

// StudySetResult carries a newly archived set.
type StudySetResult struct {
	Outcome
	Set domain.StudySet `json:"set"`
}

// StudySets lists the archived sets, newest first.
func (s *Service) StudySets() []domain.StudySet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.StudySet{}, s.state.StudySets...)
}

// AddStudySet archives material, reading it off a photo when one is given.
func (s *Service) AddStudySet(ctx context.Context, in StudyInput) (StudySetResult, error) {
	if strings.TrimSpace(in.Name) == "" {
		return StudySetResult{}, fmt.Errorf("study set needs a name: %w", domain.ErrNoStudyContent)
	}

	material := in.Material
	switch {
	case in.Image != nil:
		material = s.ai.ExtractStudyMaterial(ctx, *in.Image)
		if material == ai.FallbackEmptyExtract || material == ai.FallbackExtractError {
			return StudySetResult{}, fmt.Errorf("%s: %w", material, domain.ErrNoStudyContent)
		}
	case in.URL != "":
		notes := in.Material
		if strings.TrimSpace(notes) == "" {
			notes = "Automated Scrape Complete"
		}
		material = fmt.Sprintf("SOURCE: %s\n\nNOTES: %s", in.URL, notes)
	}

	var res StudySetResult
	var g domain.Grant
	out, err := s.mutate(ctx, "study.archive", map[string]string{"name": in.Name},
		func(st *domain.UserState) (*domain.UserState, error) {
			next, set, grant, err := progress.ArchiveStudySet(st, domain.StudySet{ID: "set_" + uuid.NewString(), Name: in.Name, Material: material}, s.now())
			if err != nil {
				return nil, err
			}
			res.Set = set
			g = grant
			return next, nil
		})
	if err != nil {
		return StudySetResult{}, err
	}
	out.grant(g)
	res.Outcome = out
	return res, nil
}

func (s *Service) studySet(id string) (domain.StudySet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := progress.FindStudySet(s.state, id)
	if !ok {
		return domain.StudySet{}, fmt.Errorf("study set %s: %w", id, domain.ErrNoStudyContent)
	}
	return set, nil
}

// ─── Dungeon ────────────────────────────────────────────────────────────────

// DungeonResult carries the dungeon after a move.
type DungeonResult struct {
	Outcome
	Dungeon minigame.DungeonView `json:"dungeon"`
	Answer  *minigame.Answer     `json:"answer,omitempty"`
	Counter *minigame.Counter    `json:"counter,omitempty"`
}

// StartDungeon opens a quiz dungeon on a study set, led by the active
// squad leader. The questions are generated before the lock is taken.
func (s *Service) StartDungeon(ctx context.Context, setID string) (DungeonResult, error) {
	set, err := s.studySet(setID)
	if err != nil {
		return DungeonResult{}, err
	}
	s.mu.Lock()
	leader, ok := s.state.Leader()
	s.mu.Unlock()
	if !ok {
		return DungeonResult{}, domain.ErrNoLeader
	}

	d := minigame.NewDungeon(uuid.NewString(), set.ID, leader, s.rng, minigame.RewardFunc(s.reward))
	questions := s.ai.GenerateQuestions(ctx, set.Material)
	if err := d.Load(ctx, questions); err != nil {
		return DungeonResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dungeons[d.ID] = d
	s.log.Info("dungeon started", "game", d.ID, "set", set.ID, "leader", leader.Name, "questions", d.Questions())
	return DungeonResult{Dungeon: snapshotDungeon(d)}, nil
}

// Dungeon returns a running dungeon.
func (s *Service) Dungeon(id string) (minigame.DungeonView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dungeons[id]
	if !ok {
		return minigame.DungeonView{}, fmt.Errorf("dungeon %s: %w", id, domain.ErrGameNotFound)
	}
	return snapshotDungeon(d), nil
}

// Answer submits a choice in a dungeon.
func (s *Service) Answer(ctx context.Context, id string, choice int) (DungeonResult, error) {
	var res DungeonResult
	out, err := s.mutate(ctx, "dungeon.answer", map[string]string{"game": id},
		func(st *domain.UserState) (*domain.UserState, error) {
			d, ok := s.dungeons[id]
			if !ok {
				return nil, fmt.Errorf("dungeon %s: %w", id, domain.ErrGameNotFound)
			}
			a, err := d.Answer(ctx, choice, s.now())
			if err != nil {
				return nil, err
			}
			res.Answer = &a
			res.Dungeon = snapshotDungeon(d)
			return st, nil
		})
	if err != nil {
		return DungeonResult{}, err
	}
	res.Outcome = out
	return res, nil
}

// Unlock takes the enemy's counterattack once the lockout has passed. A
// run that ends here is closed.
func (s *Service) Unlock(ctx context.Context, id string) (DungeonResult, error) {
	var res DungeonResult
	out, err := s.mutate(ctx, "dungeon.unlock", map[string]string{"game": id},
		func(st *domain.UserState) (*domain.UserState, error) {
			d, ok := s.dungeons[id]
			if !ok {
				return nil, fmt.Errorf("dungeon %s: %w", id, domain.ErrGameNotFound)
			}
			c, err := d.Unlock(ctx, s.now())
			if err != nil {
				return nil, err
			}
			res.Counter = &c
			res.Dungeon = snapshotDungeon(d)
			if d.Over() {
				s.finishDungeon(d)
			}
			return st, nil
		})
	if err != nil {
		return DungeonResult{}, err
	}
	res.Outcome = out
	return res, nil
}

// AbortDungeon leaves a dungeon.
func (s *Service) AbortDungeon(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dungeons[id]
	if !ok {
		return fmt.Errorf("dungeon %s: %w", id, domain.ErrGameNotFound)
	}
	if err := d.Abort(ctx); err != nil {
		return err
	}
	s.finishDungeon(d)
	return nil
}

// finishDungeon closes a dungeon. The caller holds the lock.
func (s *Service) finishDungeon(d *minigame.Dungeon) {
	delete(s.dungeons, d.ID)
	observability.GamesFinished.WithLabelValues("dungeon", d.State()).Inc()
	observability.DungeonFloorReached.Observe(float64(d.Floor))
	s.log.Info("dungeon finished", "game", d.ID, "state", d.State(), "floor", d.Floor)
}

func snapshotDungeon(d *minigame.Dungeon) minigame.DungeonView {
	v := d.View()
	cp := *d
	v.Dungeon = &cp
	return v
}

// ─── Matching ───────────────────────────────────────────────────────────────

// MatchingResult carries the board after a move.
type MatchingResult struct {
	Outcome
	Matching minigame.MatchingView `json:"matching"`
	Click    *minigame.Click       `json:"click,omitempty"`
}

// StartMatching arms a bomb with pairs generated from a study set. Fresh
// pairs are cached on the set; when generation fails the cached ones are
// used.
func (s *Service) StartMatching(ctx context.Context, setID string) (MatchingResult, error) {
	set, err := s.studySet(setID)
	if err != nil {
		return MatchingResult{}, err
	}

	pairs := s.ai.GenerateMatchingPairs(ctx, set.Material)
	if len(pairs) > minigame.MatchingMaxPairs {
		pairs = pairs[:minigame.MatchingMaxPairs]
	}
	fresh := len(pairs) > 0
	if !fresh {
		pairs = set.Items
	}

	m := minigame.NewMatching(uuid.NewString(), set.ID, s.rng, minigame.RewardFunc(s.reward))
	if err := m.Load(ctx, pairs); err != nil {
		return MatchingResult{}, err
	}

	var out Outcome
	if fresh {
		out, err = s.mutate(ctx, "study.cache_pairs", map[string]string{"set": set.ID},
			func(st *domain.UserState) (*domain.UserState, error) {
				next := st.Clone()
				for i := range next.StudySets {
					if next.StudySets[i].ID == set.ID {
						next.StudySets[i].Items = append([]domain.StudyPair(nil), pairs...)
					}
				}
				return next, nil
			})
		if err != nil {
			return MatchingResult{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[m.ID] = m
	s.log.Info("matching started", "game", m.ID, "set", set.ID, "pairs", len(m.Pairs))
	return MatchingResult{Outcome: out, Matching: snapshotMatching(m)}, nil
}

// Matching returns a running board.
func (s *Service) Matching(id string) (minigame.MatchingView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return minigame.MatchingView{}, fmt.Errorf("matching %s: %w", id, domain.ErrGameNotFound)
	}
	return snapshotMatching(m), nil
}

// Select clicks an item on the board.
func (s *Service) Select(ctx context.Context, id string, index int, side minigame.Side) (MatchingResult, error) {
	return s.matchMove(ctx, "matching.select", id, func(m *minigame.Matching) (minigame.Click, error) {
		return m.Select(ctx, index, side)
	})
}

// MatchTick burns one second off the bomb.
func (s *Service) MatchTick(ctx context.Context, id string) (MatchingResult, error) {
	return s.matchMove(ctx, "matching.tick", id, func(m *minigame.Matching) (minigame.Click, error) {
		return m.Tick(ctx)
	})
}

// AbortMatching abandons a board.
func (s *Service) AbortMatching(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return fmt.Errorf("matching %s: %w", id, domain.ErrGameNotFound)
	}
	if err := m.Abort(ctx); err != nil {
		return err
	}
	s.finishMatching(m)
	return nil
}

func (s *Service) matchMove(ctx context.Context, op, id string,
	move func(m *minigame.Matching) (minigame.Click, error)) (MatchingResult, error) {
	var res MatchingResult
	out, err := s.mutate(ctx, op, map[string]string{"game": id}, func(st *domain.UserState) (*domain.UserState, error) {
		m, ok := s.matches[id]
		if !ok {
			return nil, fmt.Errorf("matching %s: %w", id, domain.ErrGameNotFound)
		}
		c, err := move(m)
		if err != nil {
			return nil, err
		}
		res.Click = &c
		res.Matching = snapshotMatching(m)
		if m.Over() {
			s.finishMatching(m)
		}
		return st, nil
	})
	if err != nil {
		return MatchingResult{}, err
	}
	res.Outcome = out
	return res, nil
}

// finishMatching closes a board. The caller holds the lock.
func (s *Service) finishMatching(m *minigame.Matching) {
	delete(s.matches, m.ID)
	observability.GamesFinished.WithLabelValues("matching", m.State()).Inc()
	s.log.Info("matching finished", "game", m.ID, "state", m.State(), "timer", m.Timer)
}

func snapshotMatching(m *minigame.Matching) minigame.MatchingView {
	v := m.View()
	cp := *m
	v.Matching = &cp
	return v
}

// ─── Chat ───────────────────────────────────────────────────────────────────

// ChatRequest is one message to a character.
type ChatRequest struct {
	CardID  string       `json:"cardId"`
	Message string       `json:"message"`
	History []ai.Message `json:"history"`
	Mode    ai.ChatMode  `json:"mode"`
}

// ChatReply is the character's answer.
type ChatReply struct {
	Character string `json:"character"`
	Reply     string `json:"reply"`
}

// Chat asks an owned card's character to reply in voice.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (ChatReply, error) {
	card, err := s.Card(req.CardID)
	if err != nil {
		return ChatReply{}, err
	}
	if !req.Mode.Valid() {
		req.Mode = ai.ModeNormal
	}
	if strings.TrimSpace(req.Message) == "" {
		return ChatReply{}, fmt.Errorf("empty message: %w", domain.ErrInvalidMove)
	}
	reply := s.ai.CharacterReply(ctx, card.Name, req.History, req.Message, req.Mode)
	return ChatReply{Character: card.Name, Reply: reply}, nil
}
