package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sskkslay-netizen/Bst/internal/domain"
)

// ─── Dev API ────────────────────────────────────────────────────────────────
// Catalog authoring for the admin login. Mounted behind requireDev.
//
// PUT  /api/dev/cards                  — add or rewrite a card definition
// PUT  /api/dev/equipment              — add or rewrite an equipment definition
// PUT  /api/dev/banners                — add or rewrite a banner
// POST /api/dev/equipment/{id}/grant   — put a copy in the armory
// POST /api/dev/currency               — fixed coin and gem grants

// HandleDevCard upserts a card definition.
// PUT /api/dev/cards
func (g *GameAPI) HandleDevCard(w http.ResponseWriter, r *http.Request) {
	var req domain.CardDefinition
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := g.Game.DevUpsertCard(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleDevEquipment upserts an equipment definition.
// PUT /api/dev/equipment
func (g *GameAPI) HandleDevEquipment(w http.ResponseWriter, r *http.Request) {
	var req domain.EquipmentDefinition
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := g.Game.DevUpsertEquipment(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleDevBanner upserts a banner.
// PUT /api/dev/banners
func (g *GameAPI) HandleDevBanner(w http.ResponseWriter, r *http.Request) {
	var req domain.Banner
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := g.Game.DevUpsertBanner(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleDevGrantEquipment adds a copy of an equipment definition.
// POST /api/dev/equipment/{id}/grant
func (g *GameAPI) HandleDevGrantEquipment(w http.ResponseWriter, r *http.Request) {
	res, err := g.Game.DevGrantEquipment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleDevCurrency adds the fixed dev grants.
// POST /api/dev/currency {"coins": true, "gems": true}
func (g *GameAPI) HandleDevCurrency(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Coins bool `json:"coins"`
		Gems  bool `json:"gems"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := g.Game.DevGrantCurrency(r.Context(), req.Coins, req.Gems)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
