// Package store loads and saves the single game state blob and the two
// auxiliary keys (notes and last daily claim) through a BlobStore.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sskkslay-netizen/Bst/internal/app/catalog"
	"github.com/sskkslay-netizen/Bst/internal/app/progress"
	"github.com/sskkslay-netizen/Bst/internal/domain"
	"github.com/sskkslay-netizen/Bst/internal/infra/observability"
)

// Storage keys.
const (
	SaveKey      = "bst_unified_save_v1"
	NotesKey     = "bst_notes_v2"
	LastClaimKey = "bst_last_claim"
)

// Options configures an Adapter.
type Options struct {
	// AdminEmail turns on dev mode for the matching login.
	AdminEmail string
	// Presets is the built-in catalog. Nil loads the embedded one.
	Presets *catalog.Catalog
	Logger  *observability.Logger
	Now     func() time.Time
}

// Adapter persists UserState.
type Adapter struct {
	blobs      domain.BlobStore
	presets    *catalog.Catalog
	adminEmail string
	log        *observability.Logger
	now        func() time.Time
}

// New creates an adapter over blobs.
func New(blobs domain.BlobStore, opts Options) *Adapter {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Presets == nil {
		opts.Presets = catalog.MustPresets(opts.Now())
	}
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger()
	}
	return &Adapter{
		blobs:      blobs,
		presets:    opts.Presets,
		adminEmail: opts.AdminEmail,
		log:        opts.Logger.Named("store"),
		now:        opts.Now,
	}
}

// Presets returns the built-in catalog the adapter reconciles against.
func (a *Adapter) Presets() *catalog.Catalog { return a.presets }

// AdminEmail returns the configured admin address.
func (a *Adapter) AdminEmail() string { return a.adminEmail }

// ─── Default State ──────────────────────────────────────────────────────────

// StarterXPItems is the xp item stock of a new save.
var StarterXPItems = map[string]int{"xp_n": 10, "xp_r": 2}

// NewState builds a fresh save: full catalogs, starting currencies and one
// copy of the starter card deployed as the only squad member.
func (a *Adapter) NewState(email string) *domain.UserState {
	s := &domain.UserState{
		SchemaVersion:      domain.CurrentSchemaVersion,
		Coins:              domain.InitialCoins,
		Gems:               domain.InitialGems,
		Inventory:          []string{},
		CardInstances:      map[string]domain.CardInstance{},
		EquipmentInstances: map[string]domain.EquipmentInstance{},
		MasterCards:        append([]domain.CardDefinition(nil), a.presets.Cards...),
		MasterEquipment:    append([]domain.EquipmentDefinition(nil), a.presets.Equipment...),
		MasterBanners:      append([]domain.Banner(nil), a.presets.Banners...),
		XPItems:            map[string]int{},
		Teams:              [][]string{{}},
		PityCount:          map[string]int{},
		StudySets:          []domain.StudySet{},
		Folders:            []domain.Folder{},
		StudyHistory:       map[string]int{},
		UserEmail:          email,
		IsDev:              progress.IsDev(email, a.adminEmail),
	}
	for id, n := range StarterXPItems {
		s.XPItems[id] = n
	}

	def, ok := s.FindCard(domain.StarterCardID)
	if !ok && len(s.MasterCards) > 0 {
		def = s.MasterCards[0]
		ok = true
	}
	if ok {
		inst := domain.CardInstance{
			ID:           fmt.Sprintf("inst_%d_init", a.now().UnixMilli()),
			DefinitionID: def.ID,
			Name:         def.Name,
			Title:        def.Title,
			Image:        def.Image,
			Level:        1,
			MaxLevel:     def.MaxLevel,
		}
		s.CardInstances[inst.ID] = inst
		s.Inventory = append(s.Inventory, inst.ID)
		s.Teams[0] = []string{inst.ID}
	}
	return s
}

// ─── Load / Save ────────────────────────────────────────────────────────────

// LoadReport describes what Load had to do.
type LoadReport struct {
	Fresh       bool           `json:"fresh"`
	Corrupt     bool           `json:"corrupt"`
	FromVersion int            `json:"fromVersion"`
	Catalog     catalog.Report `json:"catalog"`
	Repaired    int            `json:"repaired"`
}

// Load reads the save. A missing or unreadable blob yields a fresh state;
// only a failing store is an error. A loaded save is migrated, reconciled
// against the presets and its dev flag recomputed.
func (a *Adapter) Load(ctx context.Context) (*domain.UserState, LoadReport, error) {
	raw, ok, err := a.blobs.Get(ctx, SaveKey)
	if err != nil {
		return nil, LoadReport{}, fmt.Errorf("load save: %w", err)
	}
	if !ok {
		a.log.Info("no save found, starting fresh")
		return a.NewState(""), LoadReport{Fresh: true}, nil
	}

	s, from, err := Migrate([]byte(raw), a.presets)
	if err != nil {
		a.log.Warn("save unreadable, starting fresh", "error", err, "bytes", len(raw))
		return a.NewState(""), LoadReport{Fresh: true, Corrupt: true}, nil
	}

	report := LoadReport{FromVersion: from}
	report.Catalog = catalog.Reconcile(s, a.presets)
	report.Repaired = Repair(s)
	s.IsDev = progress.IsDev(s.UserEmail, a.adminEmail)

	if from != domain.CurrentSchemaVersion || report.Catalog != (catalog.Report{}) || report.Repaired > 0 {
		a.log.Info("save loaded",
			"from_version", from,
			"added_cards", report.Catalog.AddedCards,
			"added_equipment", report.Catalog.AddedEquipment,
			"added_banners", report.Catalog.AddedBanners,
			"repaired", report.Repaired,
		)
	}
	return s, report, nil
}

// Save serializes s under the main key. A quota rejection is returned
// wrapping ErrQuotaExceeded; the caller keeps its in-memory state.
func (a *Adapter) Save(ctx context.Context, s *domain.UserState) error {
	out := *s
	out.SchemaVersion = domain.CurrentSchemaVersion
	data, err := json.Marshal(&out)
	if err != nil {
		observability.SaveFailures.WithLabelValues("error").Inc()
		return fmt.Errorf("encode save: %w", err)
	}
	observability.SaveBytes.Observe(float64(len(data)))

	if err := a.blobs.Set(ctx, SaveKey, string(data)); err != nil {
		reason := "error"
		if errors.Is(err, domain.ErrQuotaExceeded) {
			reason = "quota"
		}
		observability.SaveFailures.WithLabelValues(reason).Inc()
		a.log.Warn("save rejected", "reason", reason, "bytes", len(data), "error", err)
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// ─── Auxiliary Keys ─────────────────────────────────────────────────────────

// Notes returns the free text notes.
func (a *Adapter) Notes(ctx context.Context) (string, error) {
	v, _, err := a.blobs.Get(ctx, NotesKey)
	return v, err
}

// SetNotes stores the free text notes.
func (a *Adapter) SetNotes(ctx context.Context, notes string) error {
	return a.blobs.Set(ctx, NotesKey, notes)
}

// LastClaim returns the date key of the last daily claim, or "".
func (a *Adapter) LastClaim(ctx context.Context) (string, error) {
	v, _, err := a.blobs.Get(ctx, LastClaimKey)
	return v, err
}

// SetLastClaim records the date key of a daily claim.
func (a *Adapter) SetLastClaim(ctx context.Context, date string) error {
	return a.blobs.Set(ctx, LastClaimKey, date)
}

// newInstanceID is the ID scheme for instances recovered by migration.
func newInstanceID() string { return "inst_" + uuid.NewString() }
