// Package catalog owns the built-in card, equipment and banner definitions
// and the rules that keep a saved game in step with them.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sskkslay-netizen/Bst/internal/domain"
)

//go:embed presets.yaml
var presetsYAML []byte

// Catalog is a parsed set of definitions.
type Catalog struct {
	Cards     []domain.CardDefinition      `yaml:"cards"`
	Equipment []domain.EquipmentDefinition `yaml:"equipment"`
	Banners   []domain.Banner              `yaml:"-"`
	XPItems   []domain.XPItem              `yaml:"xp_items"`
	Synergies []domain.Synergy             `yaml:"synergies"`
}

// document is the on-disk layout. Banners carry a relative open window that
// becomes an absolute end time at parse time.
type document struct {
	Catalog `yaml:",inline"`
	Banners []bannerEntry `yaml:"banners"`
}

type bannerEntry struct {
	domain.Banner `yaml:",inline"`
	OpenFor       string `yaml:"open_for"`
}

// Presets parses the embedded built-in catalog.
func Presets(now time.Time) (*Catalog, error) {
	c, err := Parse(presetsYAML, now)
	if err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	return c, nil
}

// MustPresets is Presets for package init and tests. The embedded document
// is fixed at build time so a failure is a programming error.
func MustPresets(now time.Time) *Catalog {
	c, err := Presets(now)
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes a catalog document and fills derived card fields.
func Parse(data []byte, now time.Time) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := doc.Catalog
	for i := range c.Cards {
		c.Cards[i] = FillCard(c.Cards[i])
		if err := ValidateCard(c.Cards[i]); err != nil {
			return nil, err
		}
	}
	for _, e := range c.Equipment {
		if err := ValidateEquipment(e); err != nil {
			return nil, err
		}
	}
	for _, b := range doc.Banners {
		banner := b.Banner
		if b.OpenFor != "" {
			d, err := time.ParseDuration(b.OpenFor)
			if err != nil {
				return nil, fmt.Errorf("banner %s open_for: %w", banner.ID, err)
			}
			banner.EndTime = now.Add(d).UnixMilli()
		}
		if err := ValidateBanner(banner); err != nil {
			return nil, err
		}
		c.Banners = append(c.Banners, banner)
	}
	return &c, nil
}

// ─── Lookups ────────────────────────────────────────────────────────────────

// XPItem looks up an xp item by ID.
func (c *Catalog) XPItem(id string) (domain.XPItem, bool) {
	for _, x := range c.XPItems {
		if x.ID == id {
			return x, true
		}
	}
	return domain.XPItem{}, false
}

// Card looks up a built-in card by ID.
func (c *Catalog) Card(id string) (domain.CardDefinition, bool) {
	for _, d := range c.Cards {
		if d.ID == id {
			return d, true
		}
	}
	return domain.CardDefinition{}, false
}

// ─── Card Defaults ──────────────────────────────────────────────────────────

// statsByRarity is the base hp/atk/max level for a freshly authored card.
var statsByRarity = map[domain.Rarity]struct{ hp, atk, maxLevel int }{
	domain.RarityUR:  {2500, 900, 70},
	domain.RaritySSR: {1800, 700, 60},
	domain.RaritySR:  {1200, 450, 60},
	domain.RarityR:   {900, 300, 60},
	domain.RarityN:   {900, 300, 60},
}

// FillCard sets any zero stat, skill or description from the rarity
// defaults. Explicit values are kept.
func FillCard(d domain.CardDefinition) domain.CardDefinition {
	base, ok := statsByRarity[d.Rarity]
	if !ok {
		base = statsByRarity[domain.RarityR]
	}
	if d.HP == 0 {
		d.HP = base.hp
	}
	if d.ATK == 0 {
		d.ATK = base.atk
	}
	if d.MaxLevel == 0 {
		d.MaxLevel = base.maxLevel
	}
	if d.Skill.Name == "" {
		d.Skill = domain.Skill{
			Name:        "Tactical Manifestation",
			Description: "Unleashes ability-based parameters to secure victory.",
			Type:        domain.SkillDamage,
			Value:       1200,
		}
		if d.Rarity == domain.RarityUR {
			d.Skill.Type = domain.SkillBuff
			d.Skill.Value = 2.0
		}
	}
	if d.Description == "" {
		d.Description = fmt.Sprintf("Agent Dossier: %s, %s. Registered under %s.",
			d.Name, d.Title, strings.Join(d.Tags, ", "))
	}
	return d
}

// ─── Validation ─────────────────────────────────────────────────────────────

// ValidateCard checks the fields a card needs to be pullable.
func ValidateCard(d domain.CardDefinition) error {
	switch {
	case d.ID == "":
		return fmt.Errorf("%w: card without id", domain.ErrInvalidDefinition)
	case d.Name == "":
		return fmt.Errorf("%w: card %s has no name", domain.ErrInvalidDefinition, d.ID)
	case !d.Rarity.Valid():
		return fmt.Errorf("%w: card %s rarity %q", domain.ErrInvalidDefinition, d.ID, d.Rarity)
	case d.Element != "" && !d.Element.Valid():
		return fmt.Errorf("%w: card %s element %q", domain.ErrInvalidDefinition, d.ID, d.Element)
	}
	return nil
}

// ValidateEquipment checks an equipment definition.
func ValidateEquipment(e domain.EquipmentDefinition) error {
	switch {
	case e.ID == "":
		return fmt.Errorf("%w: equipment without id", domain.ErrInvalidDefinition)
	case !e.Rarity.Valid():
		return fmt.Errorf("%w: equipment %s rarity %q", domain.ErrInvalidDefinition, e.ID, e.Rarity)
	case e.HPBoost < 0 || e.ATKBoost < 0:
		return fmt.Errorf("%w: equipment %s has a negative boost", domain.ErrInvalidDefinition, e.ID)
	}
	return nil
}

// ValidateBanner checks a banner definition.
func ValidateBanner(b domain.Banner) error {
	switch {
	case b.ID == "":
		return fmt.Errorf("%w: banner without id", domain.ErrInvalidDefinition)
	case b.Cost < 0:
		return fmt.Errorf("%w: banner %s has a negative cost", domain.ErrInvalidDefinition, b.ID)
	}
	switch b.Type {
	case domain.BannerStandard, domain.BannerAU, domain.BannerLimited, domain.BannerEquipment:
		return nil
	}
	return fmt.Errorf("%w: banner %s type %q", domain.ErrInvalidDefinition, b.ID, b.Type)
}
