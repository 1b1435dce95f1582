package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sskkslay-netizen/Bst/internal/app/game"
	"github.com/sskkslay-netizen/Bst/internal/app/minigame"
)

// ─── Study API ──────────────────────────────────────────────────────────────
// Study sets and the two mini-games. Game sessions live in the server's
// memory; the client drives timers with the tick and unlock routes.
//
// GET    /api/study/sets                  — archived sets
// POST   /api/study/sets                  — archive text, a link or a photo
// POST   /api/study/dungeon               — open a dungeon on a set
// POST   /api/study/dungeon/{id}/answer   — submit a choice
// POST   /api/study/dungeon/{id}/unlock   — end the lockout after a miss
// POST   /api/study/matching              — arm a bomb on a set
// POST   /api/study/matching/{id}/select  — click an item
// POST   /api/study/matching/{id}/tick    — burn one second
// POST   /api/chat                        — talk to a character

// HandleStudySets lists the archived sets.
// GET /api/study/sets
func (g *GameAPI) HandleStudySets(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sets": g.Game.StudySets(),
	})
}

// HandleAddStudySet archives new material.
// POST /api/study/sets {"name": "...", "material": "...", "url": "...", "image": {...}}
func (g *GameAPI) HandleAddStudySet(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	var req game.StudyInput
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := g.Game.AddStudySet(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

type startRequest struct {
	SetID string `json:"setId"`
}

// ─── Dungeon ────────────────────────────────────────────────────────────────

// HandleStartDungeon opens a dungeon.
// POST /api/study/dungeon {"setId": "set_..."}
func (g *GameAPI) HandleStartDungeon(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	var req startRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := g.Game.StartDungeon(r.Context(), req.SetID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// HandleDungeon returns a running dungeon.
// GET /api/study/dungeon/{id}
func (g *GameAPI) HandleDungeon(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	d, err := g.Game.Dungeon(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// HandleAnswer submits a choice.
// POST /api/study/dungeon/{id}/answer {"choice": 2}
func (g *GameAPI) HandleAnswer(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	var req struct {
		Choice *int `json:"choice"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Choice == nil {
		writeError(w, http.StatusBadRequest, "choice is required")
		return
	}
	res, err := g.Game.Answer(r.Context(), chi.URLParam(r, "id"), *req.Choice)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleUnlock ends the lockout after a wrong answer.
// POST /api/study/dungeon/{id}/unlock
func (g *GameAPI) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	res, err := g.Game.Unlock(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleAbortDungeon leaves a dungeon.
// DELETE /api/study/dungeon/{id}
func (g *GameAPI) HandleAbortDungeon(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	if err := g.Game.AbortDungeon(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Matching ───────────────────────────────────────────────────────────────

// HandleStartMatching arms a bomb.
// POST /api/study/matching {"setId": "set_..."}
func (g *GameAPI) HandleStartMatching(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	var req startRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := g.Game.StartMatching(r.Context(), req.SetID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// HandleMatching returns a running board.
// GET /api/study/matching/{id}
func (g *GameAPI) HandleMatching(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	m, err := g.Game.Matching(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HandleSelect clicks an item.
// POST /api/study/matching/{id}/select {"index": 3, "side": "term"}
func (g *GameAPI) HandleSelect(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	var req struct {
		Index int           `json:"index"`
		Side  minigame.Side `json:"side"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Side != minigame.SideTerm && req.Side != minigame.SideDefinition {
		writeError(w, http.StatusBadRequest, "side must be term or definition")
		return
	}
	res, err := g.Game.Select(r.Context(), chi.URLParam(r, "id"), req.Index, req.Side)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleMatchTick burns one second off the bomb.
// POST /api/study/matching/{id}/tick
func (g *GameAPI) HandleMatchTick(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	res, err := g.Game.MatchTick(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleAbortMatching walks away from a bomb.
// DELETE /api/study/matching/{id}
func (g *GameAPI) HandleAbortMatching(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	if err := g.Game.AbortMatching(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Chat ───────────────────────────────────────────────────────────────────

// HandleChat sends a message to an owned card's character.
// POST /api/chat {"cardId": "inst_...", "message": "...", "history": [...], "mode": "normal"}
func (g *GameAPI) HandleChat(w http.ResponseWriter, r *http.Request) {
	if !g.ready(w) {
		return
	}
	var req game.ChatRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := g.Game.Chat(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
