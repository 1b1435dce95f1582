// Package gacha is the reward engine: pulls, leveling, limit break and
// equipment. Every operation takes a state and returns a new one; on a
// precondition failure it returns the input state unchanged with an error.
package gacha

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/sskkslay-netizen/Bst/internal/domain"
)

// ─── Engine ─────────────────────────────────────────────────────────────────

// Rarity thresholds on a [0, 100) roll. Below URRate is UR, below SSRRate
// is SSR, below SRRate is SR, the rest is R. N is never rolled.
const (
	URRate  = 2
	SSRRate = 7
	SRRate  = 25
)

// Options tunes the engine.
type Options struct {
	// HardPity forces an SSR when a banner has gone HardPity-1 draws
	// without SSR or better. Zero disables it.
	HardPity int
	// EquipmentChance is the chance a standard banner draw yields gear.
	EquipmentChance float64
}

// DefaultOptions returns the live game tuning.
func DefaultOptions() Options {
	return Options{
		HardPity:        0,
		EquipmentChance: 0.2,
	}
}

// Engine resolves pulls and card progression.
type Engine struct {
	rng     domain.RandomSource
	opts    Options
	xpItems map[string]domain.XPItem
	newID   func() string
}

// NewEngine creates an engine. A nil rng uses DefaultRNG.
func NewEngine(rng domain.RandomSource, opts Options, xpItems []domain.XPItem) *Engine {
	if rng == nil {
		rng = DefaultRNG()
	}
	table := make(map[string]domain.XPItem, len(xpItems))
	for _, x := range xpItems {
		table[x.ID] = x
	}
	return &Engine{rng: rng, opts: opts, xpItems: table, newID: uuid.NewString}
}

// XPItem looks up an xp item known to the engine.
func (e *Engine) XPItem(id string) (domain.XPItem, bool) {
	x, ok := e.xpItems[id]
	return x, ok
}

// ─── Pull ───────────────────────────────────────────────────────────────────

// Category is what a draw produced.
type Category string

const (
	CategoryCard      Category = "card"
	CategoryEquipment Category = "equipment"
)

// Drawn is one item from a pull, tagged with its new instance ID.
type Drawn struct {
	InstanceID   string                    `json:"instanceId"`
	Category     Category                  `json:"category"`
	Rarity       domain.Rarity             `json:"rarity"`
	RolledRarity domain.Rarity             `json:"rolledRarity"`
	Pity         bool                      `json:"pity,omitempty"`
	Card         *domain.CardInstance      `json:"card,omitempty"`
	Equipment    *domain.EquipmentInstance `json:"equipment,omitempty"`
}

// RollRarity draws a rarity from the fixed table.
func RollRarity(rng domain.RandomSource) domain.Rarity {
	u := rng.Float64() * 100
	switch {
	case u < URRate:
		return domain.RarityUR
	case u < SSRRate:
		return domain.RaritySSR
	case u < SRRate:
		return domain.RaritySR
	default:
		return domain.RarityR
	}
}

// Pull spends gems on one or ten draws from a banner.
func (e *Engine) Pull(s *domain.UserState, bannerID string, isTen bool) (*domain.UserState, []Drawn, error) {
	banner, ok := s.FindBanner(bannerID)
	if !ok {
		return s, nil, fmt.Errorf("pull %s: %w", bannerID, domain.ErrBannerNotFound)
	}
	count := 1
	if isTen {
		count = 10
	}
	cost := banner.Cost * count
	if s.Gems < cost {
		return s, nil, fmt.Errorf("pull %s needs %d gems, have %d: %w", bannerID, cost, s.Gems, domain.ErrInsufficientGems)
	}
	if banner.Type == domain.BannerEquipment && len(s.MasterEquipment) == 0 {
		return s, nil, fmt.Errorf("pull %s: %w", bannerID, domain.ErrEquipmentNotFound)
	}
	if banner.Type != domain.BannerEquipment && len(s.MasterCards) == 0 {
		return s, nil, fmt.Errorf("pull %s: %w", bannerID, domain.ErrCardNotFound)
	}

	next := s.Clone()
	next.Gems -= cost
	pity := next.PityCount[bannerID]

	drawn := make([]Drawn, 0, count)
	for i := 0; i < count; i++ {
		rolled := RollRarity(e.rng)
		rarity := rolled
		forced := false
		if e.opts.HardPity > 0 && pity+1 >= e.opts.HardPity && !rarity.IsHigh() {
			rarity = domain.RaritySSR
			forced = true
		}

		var d Drawn
		if e.drawsEquipment(banner, next) {
			d = e.mintEquipment(next, rarity)
		} else {
			d = e.mintCard(next, rarity)
		}
		d.RolledRarity = rolled
		d.Pity = forced
		drawn = append(drawn, d)

		if rarity.IsHigh() {
			pity = 0
		} else {
			pity++
		}
	}
	next.PityCount[bannerID] = pity
	return next, drawn, nil
}

// drawsEquipment decides the category of one draw. Standard banners roll
// for gear independently of the rarity roll.
func (e *Engine) drawsEquipment(b domain.Banner, s *domain.UserState) bool {
	switch b.Type {
	case domain.BannerEquipment:
		return true
	case domain.BannerStandard:
		return e.rng.Float64() < e.opts.EquipmentChance && len(s.MasterEquipment) > 0
	}
	return false
}

// mintCard picks a card of the given rarity, falling back to the first
// catalog entry when the tier is empty, and adds a fresh instance.
func (e *Engine) mintCard(s *domain.UserState, rarity domain.Rarity) Drawn {
	var pool []domain.CardDefinition
	for _, c := range s.MasterCards {
		if c.Rarity == rarity {
			pool = append(pool, c)
		}
	}
	def := s.MasterCards[0]
	if len(pool) > 0 {
		def = pool[pick(e.rng, len(pool))]
	}

	inst := domain.CardInstance{
		ID:           "inst_" + e.newID(),
		DefinitionID: def.ID,
		Name:         def.Name,
		Title:        def.Title,
		Image:        def.Image,
		Level:        1,
		XP:           0,
		MaxLevel:     def.MaxLevel,
	}
	s.CardInstances[inst.ID] = inst
	s.Inventory = append(s.Inventory, inst.ID)
	return Drawn{InstanceID: inst.ID, Category: CategoryCard, Rarity: def.Rarity, Card: &inst}
}

// mintEquipment picks gear of the given rarity. Gear has no UR tier, so a
// UR roll also accepts SSR pieces.
func (e *Engine) mintEquipment(s *domain.UserState, rarity domain.Rarity) Drawn {
	var pool []domain.EquipmentDefinition
	for _, eq := range s.MasterEquipment {
		if eq.Rarity == rarity || (rarity == domain.RarityUR && eq.Rarity == domain.RaritySSR) {
			pool = append(pool, eq)
		}
	}
	def := s.MasterEquipment[0]
	if len(pool) > 0 {
		def = pool[pick(e.rng, len(pool))]
	}

	inst := domain.EquipmentInstance{
		ID:           "eq_inst_" + e.newID(),
		DefinitionID: def.ID,
		Name:         def.Name,
		Image:        def.Image,
	}
	s.EquipmentInstances[inst.ID] = inst
	return Drawn{InstanceID: inst.ID, Category: CategoryEquipment, Rarity: def.Rarity, Equipment: &inst}
}
