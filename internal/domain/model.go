// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import (
	"maps"
	"slices"
	"time"
)

// ─── Game Constants ─────────────────────────────────────────────────────────

const (
	InitialGems  = 5000
	InitialCoins = 10000

	// XPPerLevel is the xp consumed by one level rollover.
	XPPerLevel = 1000
	// CoinCostPerXP is the coin price of one xp point when feeding items.
	CoinCostPerXP = 0.5

	LevelUpHP  = 100
	LevelUpATK = 40

	MaxLimitBreak        = 5
	LimitBreakLevelBonus = 10

	// StarterCardID is the definition every fresh save starts with.
	StarterCardID = "c_ur_dazai"

	// CurrentSchemaVersion is the layout written by Save.
	CurrentSchemaVersion = 1
)

// ─── Rarity & Element ───────────────────────────────────────────────────────

// Rarity is the tier of a card, equipment piece or xp item.
type Rarity string

const (
	RarityN   Rarity = "N"
	RarityR   Rarity = "R"
	RaritySR  Rarity = "SR"
	RaritySSR Rarity = "SSR"
	RarityUR  Rarity = "UR"
)

var rarityRank = map[Rarity]int{
	RarityN:   0,
	RarityR:   1,
	RaritySR:  2,
	RaritySSR: 3,
	RarityUR:  4,
}

// Rank orders rarities from N (0) to UR (4). Unknown values rank -1.
func (r Rarity) Rank() int {
	if v, ok := rarityRank[r]; ok {
		return v
	}
	return -1
}

// Valid reports whether r is one of the known tiers.
func (r Rarity) Valid() bool { return r.Rank() >= 0 }

// IsHigh reports whether r resets pity (SSR and above).
func (r Rarity) IsHigh() bool { return r.Rank() >= RaritySSR.Rank() }

// Element is a card's affinity.
type Element string

const (
	ElementLogic    Element = "LOGIC"
	ElementEmotion  Element = "EMOTION"
	ElementStrength Element = "STRENGTH"
	ElementLight    Element = "LIGHT"
	ElementDark     Element = "DARK"
)

// elementAdvantage maps each element to the one it beats.
// LOGIC > STRENGTH > EMOTION > LOGIC, and LIGHT and DARK beat each other.
var elementAdvantage = map[Element]Element{
	ElementLogic:    ElementStrength,
	ElementStrength: ElementEmotion,
	ElementEmotion:  ElementLogic,
	ElementLight:    ElementDark,
	ElementDark:     ElementLight,
}

// Beats reports whether e has the advantage over other.
func (e Element) Beats(other Element) bool {
	target, ok := elementAdvantage[e]
	return ok && target == other
}

// Valid reports whether e is a known element.
func (e Element) Valid() bool {
	_, ok := elementAdvantage[e]
	return ok
}

// ─── Catalog Definitions ────────────────────────────────────────────────────

// SkillType classifies a card skill.
type SkillType string

const (
	SkillDamage    SkillType = "damage"
	SkillHeal      SkillType = "heal"
	SkillBuff      SkillType = "buff"
	SkillCoinBoost SkillType = "coin_boost"
)

// Skill is the active ability attached to a card definition.
type Skill struct {
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Type        SkillType `json:"type" yaml:"type"`
	Value       float64   `json:"value" yaml:"value"`
}

// CardDefinition is a catalog entry. Instances reference it by ID.
type CardDefinition struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Title       string   `json:"title" yaml:"title"`
	Rarity      Rarity   `json:"rarity" yaml:"rarity"`
	Element     Element  `json:"element" yaml:"element"`
	Image       string   `json:"image" yaml:"image"`
	Description string   `json:"description" yaml:"description"`
	HP          int      `json:"hp" yaml:"hp"`
	ATK         int      `json:"atk" yaml:"atk"`
	MaxLevel    int      `json:"maxLevel" yaml:"max_level"`
	Tags        []string `json:"tags" yaml:"tags"`
	Skill       Skill    `json:"skill" yaml:"skill"`
}

// EquipmentDefinition is a catalog entry for gear. Boosts are multipliers
// (0.1 means +10%).
type EquipmentDefinition struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Rarity      Rarity  `json:"rarity" yaml:"rarity"`
	Image       string  `json:"image" yaml:"image"`
	HPBoost     float64 `json:"hpBoost,omitempty" yaml:"hp_boost"`
	ATKBoost    float64 `json:"atkBoost,omitempty" yaml:"atk_boost"`
}

// BannerType selects how a banner chooses between cards and equipment.
type BannerType string

const (
	BannerStandard  BannerType = "standard"
	BannerAU        BannerType = "au"
	BannerLimited   BannerType = "limited"
	BannerEquipment BannerType = "equipment"
)

// Banner is a gacha pull target.
type Banner struct {
	ID    string     `json:"id" yaml:"id"`
	Name  string     `json:"name" yaml:"name"`
	Image string     `json:"image" yaml:"image"`
	Type  BannerType `json:"type" yaml:"type"`
	Cost  int        `json:"cost" yaml:"cost"`
	// EndTime is a unix millisecond deadline; zero means permanent.
	EndTime int64 `json:"endTime,omitempty" yaml:"end_time"`
}

// Expired reports whether a timed banner has passed its end time.
func (b Banner) Expired(now time.Time) bool {
	return b.EndTime > 0 && now.UnixMilli() >= b.EndTime
}

// XPItem is a consumable that feeds xp into a card.
type XPItem struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	XPValue int    `json:"xpValue" yaml:"xp_value"`
	Rarity  Rarity `json:"rarity" yaml:"rarity"`
	Icon    string `json:"icon" yaml:"icon"`
	// Price is the coin cost in the shop.
	Price int `json:"price" yaml:"price"`
}

// CoinCost is the coins charged when this item is fed to a card.
func (x XPItem) CoinCost() int {
	return int(float64(x.XPValue) * CoinCostPerXP)
}

// ─── Owned Instances ────────────────────────────────────────────────────────

// CardInstance is a player-owned copy of a card definition. Only progress
// lives here; base stats, rarity and skill resolve from the catalog. Name,
// Title and Image are a display snapshot refreshed from the catalog on load
// and after every catalog edit.
type CardInstance struct {
	ID                  string `json:"id"`
	DefinitionID        string `json:"definitionId"`
	Name                string `json:"name"`
	Title               string `json:"title"`
	Image               string `json:"image"`
	Level               int    `json:"level"`
	XP                  int    `json:"xp"`
	MaxLevel            int    `json:"maxLevel"`
	LimitBreak          int    `json:"limitBreak"`
	BonusHP             int    `json:"bonusHp"`
	BonusATK            int    `json:"bonusAtk"`
	IsFavorite          bool   `json:"isFavorite"`
	EquippedEquipmentID string `json:"equippedEquipmentId,omitempty"`
}

// EquipmentInstance is a player-owned piece of gear.
type EquipmentInstance struct {
	ID           string `json:"id"`
	DefinitionID string `json:"definitionId"`
	Name         string `json:"name"`
	Image        string `json:"image"`
}

// CardView is an instance resolved against its definition.
type CardView struct {
	CardInstance
	Rarity      Rarity   `json:"rarity"`
	Element     Element  `json:"element"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Skill       Skill    `json:"skill"`
	HP          int      `json:"hp"`
	ATK         int      `json:"atk"`
	HPBoost     float64  `json:"hpBoost"`
	ATKBoost    float64  `json:"atkBoost"`
}

// ─── Study Material ─────────────────────────────────────────────────────────

// StudyPair is one term/definition pair of a study set.
type StudyPair struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// Question is one multiple choice quiz question. Answer indexes Options.
type Question struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   int      `json:"answer"`
}

// Valid reports whether the answer index points at an option.
func (q Question) Valid() bool {
	return q.Question != "" && q.Answer >= 0 && q.Answer < len(q.Options)
}

// StudySet is archived study material with its generated pairs.
type StudySet struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	FolderID string      `json:"folderId,omitempty"`
	Material string      `json:"material"`
	Items    []StudyPair `json:"items"`
}

// Folder groups study sets.
type Folder struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// ─── User State ─────────────────────────────────────────────────────────────

// UserState is the single persisted aggregate.
type UserState struct {
	SchemaVersion      int                          `json:"schemaVersion"`
	Coins              int                          `json:"coins"`
	Gems               int                          `json:"gems"`
	Inventory          []string                     `json:"inventory"`
	CardInstances      map[string]CardInstance      `json:"cardInstances"`
	EquipmentInstances map[string]EquipmentInstance `json:"equipmentInstances"`
	MasterCards        []CardDefinition             `json:"masterCards"`
	MasterEquipment    []EquipmentDefinition        `json:"masterEquipment"`
	MasterBanners      []Banner                     `json:"masterBanners"`
	XPItems            map[string]int               `json:"xpItems"`
	Teams              [][]string                   `json:"teams"`
	CurrentTeamIndex   int                          `json:"currentTeamIndex"`
	PityCount          map[string]int               `json:"pityCount"`
	StudySets          []StudySet                   `json:"studySets"`
	Folders            []Folder                     `json:"folders"`
	StudyHistory       map[string]int               `json:"studyHistory"`
	UserEmail          string                       `json:"userEmail"`
	IsDev              bool                         `json:"isDev"`
}

// Clone returns a copy whose maps and slices can be mutated without
// touching s. Catalog entries are values and are treated as immutable.
func (s *UserState) Clone() *UserState {
	c := *s
	c.Inventory = slices.Clone(s.Inventory)
	c.CardInstances = maps.Clone(s.CardInstances)
	c.EquipmentInstances = maps.Clone(s.EquipmentInstances)
	c.MasterCards = slices.Clone(s.MasterCards)
	c.MasterEquipment = slices.Clone(s.MasterEquipment)
	c.MasterBanners = slices.Clone(s.MasterBanners)
	c.XPItems = maps.Clone(s.XPItems)
	c.PityCount = maps.Clone(s.PityCount)
	c.StudySets = slices.Clone(s.StudySets)
	c.Folders = slices.Clone(s.Folders)
	c.StudyHistory = maps.Clone(s.StudyHistory)
	if s.Teams != nil {
		c.Teams = make([][]string, len(s.Teams))
		for i, t := range s.Teams {
			c.Teams[i] = slices.Clone(t)
		}
	}
	c.EnsureMaps()
	return &c
}

// EnsureMaps replaces nil maps so reducers can write without checks.
func (s *UserState) EnsureMaps() {
	if s.CardInstances == nil {
		s.CardInstances = make(map[string]CardInstance)
	}
	if s.EquipmentInstances == nil {
		s.EquipmentInstances = make(map[string]EquipmentInstance)
	}
	if s.XPItems == nil {
		s.XPItems = make(map[string]int)
	}
	if s.PityCount == nil {
		s.PityCount = make(map[string]int)
	}
	if s.StudyHistory == nil {
		s.StudyHistory = make(map[string]int)
	}
}

// FindCard looks up a card definition by ID.
func (s *UserState) FindCard(id string) (CardDefinition, bool) {
	for _, c := range s.MasterCards {
		if c.ID == id {
			return c, true
		}
	}
	return CardDefinition{}, false
}

// FindEquipment looks up an equipment definition by ID.
func (s *UserState) FindEquipment(id string) (EquipmentDefinition, bool) {
	for _, e := range s.MasterEquipment {
		if e.ID == id {
			return e, true
		}
	}
	return EquipmentDefinition{}, false
}

// FindBanner looks up a banner by ID.
func (s *UserState) FindBanner(id string) (Banner, bool) {
	for _, b := range s.MasterBanners {
		if b.ID == id {
			return b, true
		}
	}
	return Banner{}, false
}

// ActiveTeam returns the member IDs of the selected squad.
func (s *UserState) ActiveTeam() []string {
	if s.CurrentTeamIndex < 0 || s.CurrentTeamIndex >= len(s.Teams) {
		return nil
	}
	return s.Teams[s.CurrentTeamIndex]
}

// Leader returns the first member of the active squad.
func (s *UserState) Leader() (CardView, bool) {
	team := s.ActiveTeam()
	if len(team) == 0 {
		return CardView{}, false
	}
	return s.ResolveCard(team[0])
}

// ResolveCard joins an instance with its definition and equipped gear.
// An instance whose definition is missing resolves with zero base stats.
func (s *UserState) ResolveCard(instanceID string) (CardView, bool) {
	inst, ok := s.CardInstances[instanceID]
	if !ok {
		return CardView{}, false
	}
	v := CardView{CardInstance: inst, HP: inst.BonusHP, ATK: inst.BonusATK}
	if def, ok := s.FindCard(inst.DefinitionID); ok {
		v.Rarity = def.Rarity
		v.Element = def.Element
		v.Description = def.Description
		v.Tags = def.Tags
		v.Skill = def.Skill
		v.HP += def.HP
		v.ATK += def.ATK
	}
	if inst.EquippedEquipmentID != "" {
		if eq, ok := s.EquipmentInstances[inst.EquippedEquipmentID]; ok {
			if def, ok := s.FindEquipment(eq.DefinitionID); ok {
				v.HPBoost = def.HPBoost
				v.ATKBoost = def.ATKBoost
			}
		}
	}
	return v, true
}

// TotalStudyPoints sums the study history ledger.
func (s *UserState) TotalStudyPoints() int {
	total := 0
	for _, v := range s.StudyHistory {
		total += v
	}
	return total
}
