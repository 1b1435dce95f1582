package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/sskkslay-netizen/Bst/internal/app/catalog"
	"github.com/sskkslay-netizen/Bst/internal/domain"
)

// ─── Schema Migration ───────────────────────────────────────────────────────
// Version 0 saves have no schemaVersion field and store every owned card as
// a full copy of its catalog entry, keyed by instance ID but carrying the
// definition ID in "id". Version 1 stores only progress and a reference.

var errNotObject = errors.New("save is not a JSON object")

// Migrate decodes a save of any known version into the current layout and
// reports the version it started from. Versions newer than the current one
// decode as current.
func Migrate(raw []byte, presets *catalog.Catalog) (*domain.UserState, int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, 0, errNotObject
	}

	var env struct {
		SchemaVersion int `json:"schemaVersion"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, 0, fmt.Errorf("decode save header: %w", err)
	}

	if env.SchemaVersion == 0 {
		s, err := migrateV0(trimmed, presets)
		return s, 0, err
	}

	var s domain.UserState
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil, env.SchemaVersion, fmt.Errorf("decode save v%d: %w", env.SchemaVersion, err)
	}
	s.SchemaVersion = domain.CurrentSchemaVersion
	return s.Clone(), env.SchemaVersion, nil
}

// legacyCard is the denormalized v0 instance.
type legacyCard struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	Title               string         `json:"title"`
	Rarity              domain.Rarity  `json:"rarity"`
	Element             domain.Element `json:"element"`
	Image               string         `json:"image"`
	Description         string         `json:"description"`
	HP                  int            `json:"hp"`
	ATK                 int            `json:"atk"`
	Tags                []string       `json:"tags"`
	Skill               domain.Skill   `json:"skill"`
	LimitBreak          int            `json:"limitBreak"`
	Level               int            `json:"level"`
	MaxLevel            int            `json:"maxLevel"`
	IsFavorite          bool           `json:"isFavorite"`
	XP                  int            `json:"xp"`
	EquippedEquipmentID string         `json:"equippedEquipmentId"`
}

type legacyState struct {
	domain.UserState
	CardInstances      map[string]legacyCard                 `json:"cardInstances"`
	EquipmentInstances map[string]domain.EquipmentDefinition `json:"equipmentInstances"`
}

func migrateV0(raw []byte, presets *catalog.Catalog) (*domain.UserState, error) {
	var old legacyState
	if err := json.Unmarshal(raw, &old); err != nil {
		return nil, fmt.Errorf("decode save v0: %w", err)
	}
	s := old.UserState.Clone()
	s.SchemaVersion = domain.CurrentSchemaVersion
	s.CardInstances = make(map[string]domain.CardInstance, len(old.CardInstances))
	s.EquipmentInstances = make(map[string]domain.EquipmentInstance, len(old.EquipmentInstances))

	cards := make(map[string]domain.CardDefinition)
	for _, d := range presets.Cards {
		cards[d.ID] = d
	}
	for _, d := range s.MasterCards {
		cards[d.ID] = d
	}

	// Sorted keys keep custom definitions in a stable order.
	keys := make([]string, 0, len(old.CardInstances))
	for k := range old.CardInstances {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		c := old.CardInstances[key]
		def, ok := cards[c.ID]
		if !ok {
			def = legacyDefinition(key, c)
			cards[def.ID] = def
			s.MasterCards = append(s.MasterCards, def)
		}
		maxLevel := c.MaxLevel
		if maxLevel <= 0 {
			maxLevel = def.MaxLevel
		}
		s.CardInstances[key] = domain.CardInstance{
			ID:                  key,
			DefinitionID:        def.ID,
			Name:                c.Name,
			Title:               c.Title,
			Image:               c.Image,
			Level:               max(1, c.Level),
			XP:                  c.XP,
			MaxLevel:            maxLevel,
			LimitBreak:          c.LimitBreak,
			BonusHP:             c.HP - def.HP,
			BonusATK:            c.ATK - def.ATK,
			IsFavorite:          c.IsFavorite,
			EquippedEquipmentID: c.EquippedEquipmentID,
		}
	}

	gear := make(map[string]domain.EquipmentDefinition)
	for _, e := range presets.Equipment {
		gear[e.ID] = e
	}
	for _, e := range s.MasterEquipment {
		gear[e.ID] = e
	}
	for key, e := range old.EquipmentInstances {
		if _, ok := gear[e.ID]; !ok {
			if e.ID == "" {
				e.ID = "eq_legacy_" + key
			}
			gear[e.ID] = e
			s.MasterEquipment = append(s.MasterEquipment, e)
		}
		s.EquipmentInstances[key] = domain.EquipmentInstance{
			ID:           key,
			DefinitionID: e.ID,
			Name:         e.Name,
			Image:        e.Image,
		}
	}
	return s, nil
}

// legacyDefinition recovers a catalog entry for a v0 card whose definition
// no longer exists. Level gains are backed out of the stored stats.
func legacyDefinition(key string, c legacyCard) domain.CardDefinition {
	id := c.ID
	if id == "" {
		id = "c_legacy_" + key
	}
	gained := max(0, c.Level-1)
	def := domain.CardDefinition{
		ID:          id,
		Name:        c.Name,
		Title:       c.Title,
		Rarity:      c.Rarity,
		Element:     c.Element,
		Image:       c.Image,
		Description: c.Description,
		HP:          max(0, c.HP-gained*domain.LevelUpHP),
		ATK:         max(0, c.ATK-gained*domain.LevelUpATK),
		MaxLevel:    max(0, c.MaxLevel-c.LimitBreak*domain.LimitBreakLevelBonus),
		Tags:        c.Tags,
		Skill:       c.Skill,
	}
	if !def.Rarity.Valid() {
		def.Rarity = domain.RarityR
	}
	return catalog.FillCard(def)
}

// ─── Repair ─────────────────────────────────────────────────────────────────

// Repair fixes references a hand-edited or partially written save can
// leave dangling and returns how many fixes it made.
func Repair(s *domain.UserState) int {
	fixes := 0
	s.EnsureMaps()
	if s.Inventory == nil {
		s.Inventory = []string{}
	}
	if s.StudySets == nil {
		s.StudySets = []domain.StudySet{}
	}
	if s.Folders == nil {
		s.Folders = []domain.Folder{}
	}

	for key, inst := range s.CardInstances {
		changed := false
		if inst.ID != key {
			if key == "" {
				delete(s.CardInstances, key)
				key = newInstanceID()
			}
			inst.ID = key
			changed = true
		}
		if inst.Level < 1 {
			inst.Level = 1
			changed = true
		}
		if inst.LimitBreak < 0 || inst.LimitBreak > domain.MaxLimitBreak {
			inst.LimitBreak = min(max(inst.LimitBreak, 0), domain.MaxLimitBreak)
			changed = true
		}
		if inst.EquippedEquipmentID != "" {
			if _, ok := s.EquipmentInstances[inst.EquippedEquipmentID]; !ok {
				inst.EquippedEquipmentID = ""
				changed = true
			}
		}
		if changed {
			s.CardInstances[key] = inst
			fixes++
		}
	}

	seen := make(map[string]bool, len(s.Inventory))
	inv := s.Inventory[:0]
	for _, id := range s.Inventory {
		if _, ok := s.CardInstances[id]; !ok || seen[id] {
			fixes++
			continue
		}
		seen[id] = true
		inv = append(inv, id)
	}
	missing := make([]string, 0)
	for id := range s.CardInstances {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	slices.Sort(missing)
	s.Inventory = append(inv, missing...)
	fixes += len(missing)

	if len(s.Teams) == 0 {
		s.Teams = [][]string{{}}
		fixes++
	}
	for i, team := range s.Teams {
		kept := make([]string, 0, len(team))
		for _, id := range team {
			if _, ok := s.CardInstances[id]; ok && !slices.Contains(kept, id) && len(kept) < domain.MaxSquadSize {
				kept = append(kept, id)
			} else {
				fixes++
			}
		}
		s.Teams[i] = kept
	}
	if s.CurrentTeamIndex < 0 || s.CurrentTeamIndex >= len(s.Teams) {
		s.CurrentTeamIndex = 0
		fixes++
	}
	return fixes
}
