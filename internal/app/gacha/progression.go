package gacha

import (
	"fmt"
	"slices"

	"github.com/sskkslay-netizen/Bst/internal/domain"
)

// ─── Leveling ───────────────────────────────────────────────────────────────

// LevelResult summarizes one xp item application.
type LevelResult struct {
	InstanceID   string `json:"instanceId"`
	ItemID       string `json:"itemId"`
	XPAdded      int    `json:"xpAdded"`
	CoinsSpent   int    `json:"coinsSpent"`
	LevelsGained int    `json:"levelsGained"`
	Level        int    `json:"level"`
	XP           int    `json:"xp"`
}

// LevelUp feeds one xp item to a card. XP rolls over into as many levels
// as it covers, each adding fixed hp and atk, until the level cap. At the
// cap xp keeps accumulating without further gains.
func (e *Engine) LevelUp(s *domain.UserState, instanceID, itemID string) (*domain.UserState, LevelResult, error) {
	inst, ok := s.CardInstances[instanceID]
	if !ok {
		return s, LevelResult{}, fmt.Errorf("level up %s: %w", instanceID, domain.ErrInstanceNotFound)
	}
	if s.XPItems[itemID] <= 0 {
		return s, LevelResult{}, fmt.Errorf("level up with %s: %w", itemID, domain.ErrItemNotOwned)
	}
	item, ok := e.xpItems[itemID]
	if !ok {
		return s, LevelResult{}, fmt.Errorf("level up with %s: %w", itemID, domain.ErrUnknownItem)
	}
	cost := item.CoinCost()
	if s.Coins < cost {
		return s, LevelResult{}, fmt.Errorf("level up needs %d coins, have %d: %w", cost, s.Coins, domain.ErrInsufficientCoins)
	}

	startLevel := inst.Level
	inst.XP += item.XPValue
	for inst.XP >= domain.XPPerLevel && inst.Level < inst.MaxLevel {
		inst.XP -= domain.XPPerLevel
		inst.Level++
		inst.BonusHP += domain.LevelUpHP
		inst.BonusATK += domain.LevelUpATK
	}

	next := s.Clone()
	next.CardInstances[instanceID] = inst
	next.XPItems[itemID]--
	next.Coins -= cost

	return next, LevelResult{
		InstanceID:   instanceID,
		ItemID:       itemID,
		XPAdded:      item.XPValue,
		CoinsSpent:   cost,
		LevelsGained: inst.Level - startLevel,
		Level:        inst.Level,
		XP:           inst.XP,
	}, nil
}

// ─── Limit Break ────────────────────────────────────────────────────────────

// LimitBreak fuses fodder into target. Both must be distinct copies of the
// same definition. The fodder is destroyed and dropped from every squad;
// gear it wore returns to the pool.
func LimitBreak(s *domain.UserState, targetID, fodderID string) (*domain.UserState, error) {
	target, ok := s.CardInstances[targetID]
	if !ok {
		return s, fmt.Errorf("limit break target %s: %w", targetID, domain.ErrInstanceNotFound)
	}
	fodder, ok := s.CardInstances[fodderID]
	if !ok {
		return s, fmt.Errorf("limit break fodder %s: %w", fodderID, domain.ErrInstanceNotFound)
	}
	if targetID == fodderID {
		return s, domain.ErrSameInstance
	}
	if target.DefinitionID != fodder.DefinitionID {
		return s, fmt.Errorf("%s vs %s: %w", target.DefinitionID, fodder.DefinitionID, domain.ErrDefinitionMismatch)
	}

	target.LimitBreak = min(domain.MaxLimitBreak, target.LimitBreak+1)
	target.MaxLevel += domain.LimitBreakLevelBonus

	next := s.Clone()
	next.CardInstances[targetID] = target
	delete(next.CardInstances, fodderID)
	next.Inventory = slices.DeleteFunc(next.Inventory, func(id string) bool { return id == fodderID })
	for i, team := range next.Teams {
		next.Teams[i] = slices.DeleteFunc(team, func(id string) bool { return id == fodderID })
	}
	return next, nil
}

// ─── Equipment ──────────────────────────────────────────────────────────────

// Equip puts a gear instance on a card, or takes it off when equipmentID
// is empty. A piece worn by another card moves to this one.
func Equip(s *domain.UserState, cardID, equipmentID string) (*domain.UserState, error) {
	card, ok := s.CardInstances[cardID]
	if !ok {
		return s, fmt.Errorf("equip %s: %w", cardID, domain.ErrInstanceNotFound)
	}
	if equipmentID != "" {
		if _, ok := s.EquipmentInstances[equipmentID]; !ok {
			return s, fmt.Errorf("equip %s: %w", equipmentID, domain.ErrEquipmentNotFound)
		}
	}

	next := s.Clone()
	if equipmentID != "" {
		for id, other := range next.CardInstances {
			if id != cardID && other.EquippedEquipmentID == equipmentID {
				other.EquippedEquipmentID = ""
				next.CardInstances[id] = other
			}
		}
	}
	card.EquippedEquipmentID = equipmentID
	next.CardInstances[cardID] = card
	return next, nil
}
