package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sskkslay-netizen/Bst/internal/domain"
)

// ─── Dev Tools ──────────────────────────────────────────────────────────────
// Catalog authoring. The caller owns access control; these functions only
// edit the state they are given.

// MaxImageBytes is the size above which an embedded image risks the save
// quota.
const MaxImageBytes = 1 << 20

// ImageTooLarge reports whether an inline image should trigger a warning.
func ImageTooLarge(image string) bool {
	return len(image) > MaxImageBytes
}

// UpsertCard adds or replaces a card definition. An empty ID gets a fresh
// c_<millis> identifier. Owned copies pick up the new display fields.
func UpsertCard(s *domain.UserState, d domain.CardDefinition, now time.Time) (domain.CardDefinition, error) {
	if d.ID == "" {
		d.ID = fmt.Sprintf("c_%d", now.UnixMilli())
	}
	d = FillCard(d)
	if err := ValidateCard(d); err != nil {
		return domain.CardDefinition{}, err
	}
	s.MasterCards = upsert(s.MasterCards, d, func(c domain.CardDefinition) string { return c.ID })
	SyncInstances(s)
	return d, nil
}

// UpsertEquipment adds or replaces an equipment definition.
func UpsertEquipment(s *domain.UserState, e domain.EquipmentDefinition, now time.Time) (domain.EquipmentDefinition, error) {
	if e.ID == "" {
		e.ID = fmt.Sprintf("eq_%d", now.UnixMilli())
	}
	if err := ValidateEquipment(e); err != nil {
		return domain.EquipmentDefinition{}, err
	}
	s.MasterEquipment = upsert(s.MasterEquipment, e, func(c domain.EquipmentDefinition) string { return c.ID })
	SyncInstances(s)
	return e, nil
}

// UpsertBanner adds or replaces a banner.
func UpsertBanner(s *domain.UserState, b domain.Banner, now time.Time) (domain.Banner, error) {
	if b.ID == "" {
		b.ID = fmt.Sprintf("b_%d", now.UnixMilli())
	}
	if err := ValidateBanner(b); err != nil {
		return domain.Banner{}, err
	}
	s.MasterBanners = upsert(s.MasterBanners, b, func(c domain.Banner) string { return c.ID })
	return b, nil
}

// GrantEquipment mints an equipment instance outside the gacha.
func GrantEquipment(s *domain.UserState, definitionID string) (domain.EquipmentInstance, error) {
	def, ok := s.FindEquipment(definitionID)
	if !ok {
		return domain.EquipmentInstance{}, fmt.Errorf("grant %s: %w", definitionID, domain.ErrEquipmentNotFound)
	}
	inst := domain.EquipmentInstance{
		ID:           "eq_inst_dev_" + uuid.NewString(),
		DefinitionID: def.ID,
		Name:         def.Name,
		Image:        def.Image,
	}
	if s.EquipmentInstances == nil {
		s.EquipmentInstances = make(map[string]domain.EquipmentInstance)
	}
	s.EquipmentInstances[inst.ID] = inst
	return inst, nil
}

// Merge upserts every definition of c into s. Used when a custom catalog
// file is loaded or changes on disk.
func Merge(s *domain.UserState, c *Catalog) {
	for _, d := range c.Cards {
		s.MasterCards = upsert(s.MasterCards, d, func(x domain.CardDefinition) string { return x.ID })
	}
	for _, e := range c.Equipment {
		s.MasterEquipment = upsert(s.MasterEquipment, e, func(x domain.EquipmentDefinition) string { return x.ID })
	}
	for _, b := range c.Banners {
		s.MasterBanners = upsert(s.MasterBanners, b, func(x domain.Banner) string { return x.ID })
	}
	SyncInstances(s)
}

func upsert[T any](list []T, v T, id func(T) string) []T {
	for i := range list {
		if id(list[i]) == id(v) {
			out := make([]T, len(list))
			copy(out, list)
			out[i] = v
			return out
		}
	}
	return append(list, v)
}
