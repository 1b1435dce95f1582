package game

import (
	"context"

	"github.com/sskkslay-netizen/Bst/internal/app/catalog"
	"github.com/sskkslay-netizen/Bst/internal/domain"
)

// ─── Dev Tools ──────────────────────────────────────────────────────────────
// Catalog authoring for the admin login. The check is a convenience for a
// local single player game and nothing more.

// Dev grant sizes.
const (
	DevCoinGrant = 100000
	DevGemGrant  = 10000
)

// ImageWarning is reported when a definition embeds a very large image.
const ImageWarning = "Warning: This image is very large. Large images may cause browser storage errors. Try a smaller image if saving fails."

// DevResult carries what a dev operation saved.
type DevResult[T any] struct {
	Outcome
	Item T `json:"item"`
}

// IsDev reports whether the logged in player has dev tools.
func (s *Service) IsDev() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsDev
}

func (s *Service) devMutate(ctx context.Context, op string, attrs map[string]string,
	fn func(next *domain.UserState) error) (Outcome, error) {
	return s.mutate(ctx, op, attrs, func(st *domain.UserState) (*domain.UserState, error) {
		if !st.IsDev {
			return nil, domain.ErrNotDev
		}
		next := st.Clone()
		if err := fn(next); err != nil {
			return nil, err
		}
		return next, nil
	})
}

// DevUpsertCard adds or rewrites a card definition. Owned copies pick up
// its new name and art.
func (s *Service) DevUpsertCard(ctx context.Context, d domain.CardDefinition) (DevResult[domain.CardDefinition], error) {
	var saved domain.CardDefinition
	out, err := s.devMutate(ctx, "dev.card", map[string]string{"card": d.ID}, func(next *domain.UserState) error {
		var err error
		saved, err = catalog.UpsertCard(next, d, s.now())
		return err
	})
	if err != nil {
		return DevResult[domain.CardDefinition]{}, err
	}
	imageWarning(&out, saved.Image)
	return DevResult[domain.CardDefinition]{Outcome: out, Item: saved}, nil
}

// DevUpsertEquipment adds or rewrites an equipment definition.
func (s *Service) DevUpsertEquipment(ctx context.Context, e domain.EquipmentDefinition) (DevResult[domain.EquipmentDefinition], error) {
	var saved domain.EquipmentDefinition
	out, err := s.devMutate(ctx, "dev.equipment", map[string]string{"equipment": e.ID}, func(next *domain.UserState) error {
		var err error
		saved, err = catalog.UpsertEquipment(next, e, s.now())
		return err
	})
	if err != nil {
		return DevResult[domain.EquipmentDefinition]{}, err
	}
	imageWarning(&out, saved.Image)
	return DevResult[domain.EquipmentDefinition]{Outcome: out, Item: saved}, nil
}

// DevUpsertBanner adds or rewrites a banner.
func (s *Service) DevUpsertBanner(ctx context.Context, b domain.Banner) (DevResult[domain.Banner], error) {
	var saved domain.Banner
	out, err := s.devMutate(ctx, "dev.banner", map[string]string{"banner": b.ID}, func(next *domain.UserState) error {
		var err error
		saved, err = catalog.UpsertBanner(next, b, s.now())
		return err
	})
	if err != nil {
		return DevResult[domain.Banner]{}, err
	}
	imageWarning(&out, saved.Image)
	return DevResult[domain.Banner]{Outcome: out, Item: saved}, nil
}

// DevGrantEquipment puts a copy of an equipment definition in the armory.
func (s *Service) DevGrantEquipment(ctx context.Context, definitionID string) (DevResult[domain.EquipmentInstance], error) {
	var inst domain.EquipmentInstance
	out, err := s.devMutate(ctx, "dev.grant_equipment", map[string]string{"equipment": definitionID}, func(next *domain.UserState) error {
		var err error
		inst, err = catalog.GrantEquipment(next, definitionID)
		return err
	})
	if err != nil {
		return DevResult[domain.EquipmentInstance]{}, err
	}
	return DevResult[domain.EquipmentInstance]{Outcome: out, Item: inst}, nil
}

// DevGrantCurrency adds the fixed dev coin and gem grants.
func (s *Service) DevGrantCurrency(ctx context.Context, coins, gems bool) (Outcome, error) {
	g := domain.Grant{Reason: domain.ReasonDevAdjustment}
	if coins {
		g.Coins = DevCoinGrant
	}
	if gems {
		g.Gems = DevGemGrant
	}
	out, err := s.devMutate(ctx, "dev.grant_currency", nil, func(next *domain.UserState) error {
		next.Coins += g.Coins
		next.Gems += g.Gems
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	out.grant(g)
	return out, nil
}

func imageWarning(out *Outcome, image string) {
	if out.Warning == "" && catalog.ImageTooLarge(image) {
		out.Warning = ImageWarning
	}
}
