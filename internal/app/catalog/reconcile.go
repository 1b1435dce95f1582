package catalog

import "github.com/sskkslay-netizen/Bst/internal/domain"

// ─── Reconciliation ─────────────────────────────────────────────────────────

// Report counts what Reconcile and SyncInstances changed.
type Report struct {
	AddedCards     int `json:"added_cards"`
	AddedEquipment int `json:"added_equipment"`
	AddedBanners   int `json:"added_banners"`
	SyncedCards    int `json:"synced_cards"`
	SyncedGear     int `json:"synced_gear"`
}

// Reconcile re-inserts every built-in definition missing from s at the
// front of its master list. Entries already present keep their stored
// version and position, so custom definitions and dev edits survive.
// It then refreshes instance display snapshots.
func Reconcile(s *domain.UserState, presets *Catalog) Report {
	var r Report
	s.MasterCards, r.AddedCards = prependMissing(s.MasterCards, presets.Cards,
		func(d domain.CardDefinition) string { return d.ID })
	s.MasterEquipment, r.AddedEquipment = prependMissing(s.MasterEquipment, presets.Equipment,
		func(d domain.EquipmentDefinition) string { return d.ID })
	s.MasterBanners, r.AddedBanners = prependMissing(s.MasterBanners, presets.Banners,
		func(d domain.Banner) string { return d.ID })

	r.SyncedCards, r.SyncedGear = SyncInstances(s)
	return r
}

func prependMissing[T any](have, presets []T, id func(T) string) ([]T, int) {
	present := make(map[string]bool, len(have))
	for _, h := range have {
		present[id(h)] = true
	}
	var missing []T
	for _, p := range presets {
		if !present[id(p)] {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return have, 0
	}
	out := make([]T, 0, len(missing)+len(have))
	out = append(out, missing...)
	out = append(out, have...)
	return out, len(missing)
}

// SyncInstances copies name, title and image from the catalog onto every
// owned instance. Progress fields are never touched. Instances whose
// definition is gone keep their last snapshot.
func SyncInstances(s *domain.UserState) (cards, gear int) {
	byCard := make(map[string]domain.CardDefinition, len(s.MasterCards))
	for _, d := range s.MasterCards {
		byCard[d.ID] = d
	}
	for id, inst := range s.CardInstances {
		def, ok := byCard[inst.DefinitionID]
		if !ok {
			continue
		}
		if inst.Name != def.Name || inst.Title != def.Title || inst.Image != def.Image {
			inst.Name, inst.Title, inst.Image = def.Name, def.Title, def.Image
			s.CardInstances[id] = inst
			cards++
		}
	}

	byGear := make(map[string]domain.EquipmentDefinition, len(s.MasterEquipment))
	for _, d := range s.MasterEquipment {
		byGear[d.ID] = d
	}
	for id, inst := range s.EquipmentInstances {
		def, ok := byGear[inst.DefinitionID]
		if !ok {
			continue
		}
		if inst.Name != def.Name || inst.Image != def.Image {
			inst.Name, inst.Image = def.Name, def.Image
			s.EquipmentInstances[id] = inst
			gear++
		}
	}
	return cards, gear
}
