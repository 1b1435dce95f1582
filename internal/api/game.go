package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sskkslay-netizen/Bst/internal/app/game"
	"github.com/sskkslay-netizen/Bst/internal/domain"
)

// ─── Game API ───────────────────────────────────────────────────────────────
// REST endpoints for the web client. Every mutating route answers with the
// operation's result plus an optional save warning and the grants it paid.
//
// GET  /api/state                        — full save state
// GET  /api/status                       — load report and dev flag
// GET  /api/gacha/banners                — open banners
// POST /api/gacha/pull                   — pull once or ten times
// GET  /api/collection                   — owned cards with stats
// POST /api/collection/{id}/level-up     — feed an xp item
// POST /api/collection/{id}/limit-break  — consume a duplicate
// POST /api/collection/{id}/equip        — put on gear
// POST /api/collection/{id}/favorite     — toggle the favorite flag
// POST /api/team/toggle                  — add or remove a squad member
// GET  /api/home/summary                 — digest, heatmap, focus, notes
// POST /api/home/daily-claim             — daily gem grant
// POST /api/home/notes                   — save notes
// POST /api/shop/xp/{item}               — buy an xp item

// GameAPI exposes the game service over HTTP.
type GameAPI struct {
	Game *game.Service
}

func (g *GameAPI) ready(w http.ResponseWriter) bool {
	if g.Game == nil {
		writeError(w, http.StatusServiceUnavailable, "game not initialized")
		return false
	}
	return true
}

// HandleState returns the live save state.
// GET /api/state
func (g *GameAPI) HandleState(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	writeJSON(w, http.StatusOK, g.Game.State())
}

// HandleStatus reports how the save was loaded.
// GET /api/status
func (g *GameAPI) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "BST is running",
		"version": Version,
		"load":    g.Game.LoadReport(),
		"is_dev":  g.Game.IsDev(),
	})
}

// HandleJournal lists recent game operations.
// GET /api/journal?limit=50
func (g *GameAPI) HandleJournal(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": g.Game.Journal(limit),
	})
}

// ─── Account ────────────────────────────────────────────────────────────────

// HandleLogin signs a player in.
// POST /api/account/login {"email": "..."}
func (g *GameAPI) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := g.Game.Login(r.Context(), req.Email)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"warning": out.Warning,
		"is_dev":  g.Game.IsDev(),
	})
}

// HandleLogout signs the player out.
// POST /api/account/logout
func (g *GameAPI) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	out, err := g.Game.Logout(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ─── Gacha ──────────────────────────────────────────────────────────────────

// HandleBanners lists the open banners.
// GET /api/gacha/banners
func (g *GameAPI) HandleBanners(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"banners": g.Game.Banners(),
	})
}

// HandlePull pulls on a banner.
// POST /api/gacha/pull {"bannerId": "b_standard", "isTen": false}
func (g *GameAPI) HandlePull(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	var req struct {
		BannerID string `json:"bannerId"`
		IsTen    bool   `json:"isTen"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.BannerID == "" {
		writeError(w, http.StatusBadRequest, "bannerId is required")
		return
	}
	res, err := g.Game.Pull(r.Context(), req.BannerID, req.IsTen)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ─── Collection ─────────────────────────────────────────────────────────────

// HandleCollection lists owned cards.
// GET /api/collection
func (g *GameAPI) HandleCollection(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cards": g.Game.Collection(),
	})
}

// HandleCard returns one owned card.
// GET /api/collection/{id}
func (g *GameAPI) HandleCard(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	card, err := g.Game.Card(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// HandleLevelUp feeds an xp item to a card.
// POST /api/collection/{id}/level-up {"itemId": "xp_n"}
func (g *GameAPI) HandleLevelUp(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	var req struct {
		ItemID string `json:"itemId"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := g.Game.LevelUp(r.Context(), chi.URLParam(r, "id"), req.ItemID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleLimitBreak consumes a duplicate to raise the level cap.
// POST /api/collection/{id}/limit-break {"fodderId": "inst_..."}
func (g *GameAPI) HandleLimitBreak(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	var req struct {
		FodderID string `json:"fodderId"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := g.Game.LimitBreak(r.Context(), chi.URLParam(r, "id"), req.FodderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleEquip puts gear on a card.
// POST /api/collection/{id}/equip {"equipmentId": "eqi_..."}
func (g *GameAPI) HandleEquip(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	var req struct {
		EquipmentID string `json:"equipmentId"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := g.Game.Equip(r.Context(), chi.URLParam(r, "id"), req.EquipmentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleFavorite toggles the favorite flag.
// POST /api/collection/{id}/favorite
func (g *GameAPI) HandleFavorite(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	res, err := g.Game.ToggleFavorite(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ─── Team ───────────────────────────────────────────────────────────────────

// HandleSquad returns the active squad and its synergies.
// GET /api/team
func (g *GameAPI) HandleSquad(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	writeJSON(w, http.StatusOK, g.Game.Squad())
}

// HandleToggleSquad adds or removes a squad member.
// POST /api/team/toggle {"instanceId": "inst_..."}
func (g *GameAPI) HandleToggleSquad(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	var req struct {
		InstanceID string `json:"instanceId"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := g.Game.ToggleSquad(r.Context(), req.InstanceID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ─── Home ───────────────────────────────────────────────────────────────────

// HandleHome returns the home screen.
// GET /api/home/summary
func (g *GameAPI) HandleHome(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	home, err := g.Game.Home(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, home)
}

// HandleDailyClaim pays the daily grant.
// POST /api/home/daily-claim
func (g *GameAPI) HandleDailyClaim(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	out, err := g.Game.ClaimDaily(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleNotes saves the home notes. Short notes are stored but earn
// nothing, which is reported as a 400.
// POST /api/home/notes {"notes": "..."}
func (g *GameAPI) HandleNotes(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := g.Game.SaveNotes(r.Context(), req.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleFocusToggle starts or pauses the focus timer.
// POST /api/home/focus/toggle
func (g *GameAPI) HandleFocusToggle(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	writeJSON(w, http.StatusOK, game.FocusResult{Focus: g.Game.FocusToggle()})
}

// HandleFocusReset restores a full focus session.
// POST /api/home/focus/reset
func (g *GameAPI) HandleFocusReset(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	writeJSON(w, http.StatusOK, game.FocusResult{Focus: g.Game.FocusReset()})
}

// HandleFocusTick advances the focus timer one second. The client calls
// it once a second while the timer runs.
// POST /api/home/focus/tick
func (g *GameAPI) HandleFocusTick(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	res, err := g.Game.FocusTick(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ─── Shop ───────────────────────────────────────────────────────────────────

// HandleShop lists the xp items for sale.
// GET /api/shop/xp
func (g *GameAPI) HandleShop(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": g.Game.Shop(),
		"owned": g.Game.State().XPItems,
	})
}

// HandleBuyXP buys one xp item.
// POST /api/shop/xp/{item}
func (g *GameAPI) HandleBuyXP(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	out, err := g.Game.BuyXPItem(r.Context(), chi.URLParam(r, "item"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// requireDev rejects dev routes for players without dev tools.
func (g *GameAPI) requireDev(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.ready(w) {
			return
		}
		if !g.Game.IsDev() {
			writeDomainError(w, domain.ErrNotDev)
			return
		}
		next.ServeHTTP(w, r)
	})
}
