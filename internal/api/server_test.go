package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sskkslay-netizen/Bst/internal/app/gacha"
	"github.com/sskkslay-netizen/Bst/internal/app/game"
	"github.com/sskkslay-netizen/Bst/internal/app/store"
	"github.com/sskkslay-netizen/Bst/internal/domain"
	"github.com/sskkslay-netizen/Bst/internal/infra/observability"
	"github.com/sskkslay-netizen/Bst/internal/infra/sqlite"
)

// ─── Game API Tests ─────────────────────────────────────────────────────────

func setupServer(t *testing.T) (http.Handler, *game.Service) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc, err := game.New(context.Background(), game.Options{
		Store:   store.New(db, store.Options{AdminEmail: "admin@example.com"}),
		Gacha:   gacha.DefaultOptions(),
		RNG:     &gacha.Sequence{Values: []float64{0.99}},
		Journal: observability.NewJournal(observability.DefaultJournalConfig()),
	})
	if err != nil {
		t.Fatalf("new game: %v", err)
	}

	srv := NewServer(svc, observability.NopLogger())
	srv.EnableMetrics()
	return srv.Handler(), svc
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return w, resp
}

func errorMessage(resp map[string]interface{}) string {
	e, _ := resp["error"].(map[string]interface{})
	msg, _ := e["message"].(string)
	return msg
}

func TestHealth(t *testing.T) {
	h, _ := setupServer(t)
	w, resp := do(t, h, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status=ok, got %v", resp["status"])
	}
}

func TestState(t *testing.T) {
	h, _ := setupServer(t)
	w, resp := do(t, h, http.MethodGet, "/api/state", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp["gems"] != float64(domain.InitialGems) {
		t.Errorf("expected gems=%d, got %v", domain.InitialGems, resp["gems"])
	}
	if inv, _ := resp["inventory"].([]interface{}); len(inv) != 1 {
		t.Errorf("expected the starter card only, got %v", resp["inventory"])
	}
}

func TestStatus(t *testing.T) {
	h, _ := setupServer(t)
	_, resp := do(t, h, http.MethodGet, "/api/status", "")
	load, _ := resp["load"].(map[string]interface{})
	if load["fresh"] != true {
		t.Errorf("expected a fresh load, got %v", resp["load"])
	}
	if resp["is_dev"] != false {
		t.Errorf("expected is_dev=false, got %v", resp["is_dev"])
	}
}

// ─── Gacha ──────────────────────────────────────────────────────────────────

func TestPull(t *testing.T) {
	h, _ := setupServer(t)

	w, resp := do(t, h, http.MethodPost, "/api/gacha/pull", `{"bannerId":"b_standard"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp["gems"] != float64(domain.InitialGems-100) {
		t.Errorf("expected gems=%d, got %v", domain.InitialGems-100, resp["gems"])
	}
	if drawn, _ := resp["drawn"].([]interface{}); len(drawn) != 1 {
		t.Errorf("expected 1 draw, got %v", resp["drawn"])
	}
}

func TestPull_Errors(t *testing.T) {
	h, _ := setupServer(t)

	w, _ := do(t, h, http.MethodPost, "/api/gacha/pull", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing banner: expected 400, got %d", w.Code)
	}

	w, _ = do(t, h, http.MethodPost, "/api/gacha/pull", `{"bannerId":"b_nope"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown banner: expected 404, got %d", w.Code)
	}

	w, _ = do(t, h, http.MethodPost, "/api/gacha/pull", `{"bannerId":`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad json: expected 400, got %d", w.Code)
	}

	// Five ten-pulls spend all 5000 starting gems.
	for i := 0; i < 5; i++ {
		w, _ = do(t, h, http.MethodPost, "/api/gacha/pull", `{"bannerId":"b_standard","isTen":true}`)
		if w.Code != http.StatusOK {
			t.Fatalf("pull %d: expected 200, got %d", i, w.Code)
		}
	}
	w, resp := do(t, h, http.MethodPost, "/api/gacha/pull", `{"bannerId":"b_standard"}`)
	if w.Code != http.StatusPaymentRequired {
		t.Errorf("broke: expected 402, got %d", w.Code)
	}
	if errorMessage(resp) == "" {
		t.Error("expected an error message")
	}
}

func TestBanners(t *testing.T) {
	h, _ := setupServer(t)
	_, resp := do(t, h, http.MethodGet, "/api/gacha/banners", "")
	banners, _ := resp["banners"].([]interface{})
	if len(banners) == 0 {
		t.Fatal("expected open banners")
	}
}

// ─── Collection ─────────────────────────────────────────────────────────────

func TestLevelUp(t *testing.T) {
	h, svc := setupServer(t)
	id := svc.State().Inventory[0]

	w, resp := do(t, h, http.MethodPost, "/api/collection/"+id+"/level-up", `{"itemId":"xp_n"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp["xp"] != float64(100) {
		t.Errorf("expected xp=100, got %v", resp["xp"])
	}

	w, _ = do(t, h, http.MethodPost, "/api/collection/"+id+"/level-up", `{"itemId":"xp_ssr"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unowned item: expected 400, got %d", w.Code)
	}

	w, _ = do(t, h, http.MethodPost, "/api/collection/inst_missing/level-up", `{"itemId":"xp_n"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing card: expected 404, got %d", w.Code)
	}
}

func TestCollectionAndFavorite(t *testing.T) {
	h, svc := setupServer(t)
	id := svc.State().Inventory[0]

	_, resp := do(t, h, http.MethodGet, "/api/collection", "")
	cards, _ := resp["cards"].([]interface{})
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	first, _ := cards[0].(map[string]interface{})
	if first["inSquad"] != true {
		t.Errorf("expected the starter in the squad, got %v", first["inSquad"])
	}

	w, resp := do(t, h, http.MethodPost, "/api/collection/"+id+"/favorite", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	card, _ := resp["card"].(map[string]interface{})
	if card["isFavorite"] != true {
		t.Errorf("expected isFavorite=true, got %v", card["isFavorite"])
	}
}

func TestToggleSquad(t *testing.T) {
	h, svc := setupServer(t)
	id := svc.State().Inventory[0]

	w, _ := do(t, h, http.MethodPost, "/api/team/toggle", `{"instanceId":"`+id+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(svc.Squad().Members) != 0 {
		t.Error("expected the starter removed from the squad")
	}
}

// ─── Home ───────────────────────────────────────────────────────────────────

func TestDailyClaim_Twice(t *testing.T) {
	h, _ := setupServer(t)

	w, _ := do(t, h, http.MethodPost, "/api/home/daily-claim", "")
	if w.Code != http.StatusOK {
		t.Fatalf("first claim: expected 200, got %d", w.Code)
	}
	w, _ = do(t, h, http.MethodPost, "/api/home/daily-claim", "")
	if w.Code != http.StatusConflict {
		t.Errorf("second claim: expected 409, got %d", w.Code)
	}

	_, resp := do(t, h, http.MethodGet, "/api/home/summary", "")
	if resp["canClaim"] != false {
		t.Errorf("expected canClaim=false, got %v", resp["canClaim"])
	}
}

func TestNotes(t *testing.T) {
	h, _ := setupServer(t)

	w, _ := do(t, h, http.MethodPost, "/api/home/notes", `{"notes":"short"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("short notes: expected 400, got %d", w.Code)
	}
	_, resp := do(t, h, http.MethodGet, "/api/home/summary", "")
	if resp["notes"] != "short" {
		t.Errorf("expected short notes to be kept, got %v", resp["notes"])
	}
}

func TestShop(t *testing.T) {
	h, svc := setupServer(t)

	w, _ := do(t, h, http.MethodPost, "/api/shop/xp/xp_n", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if svc.State().XPItems["xp_n"] != 11 {
		t.Errorf("expected 11 xp_n, got %d", svc.State().XPItems["xp_n"])
	}

	w, _ = do(t, h, http.MethodPost, "/api/shop/xp/xp_gold", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown item: expected 404, got %d", w.Code)
	}
}

func TestFocus(t *testing.T) {
	h, _ := setupServer(t)

	_, resp := do(t, h, http.MethodPost, "/api/home/focus/toggle", "")
	focus, _ := resp["focus"].(map[string]interface{})
	if focus["active"] != true {
		t.Fatalf("expected an active timer, got %v", resp["focus"])
	}

	_, resp = do(t, h, http.MethodPost, "/api/home/focus/tick", "")
	grants, _ := resp["grants"].([]interface{})
	if len(grants) != 1 {
		t.Errorf("expected the first minute grant, got %v", resp["grants"])
	}
}

// ─── Study ──────────────────────────────────────────────────────────────────

func TestStudySets_OfflineAI(t *testing.T) {
	h, _ := setupServer(t)

	w, resp := do(t, h, http.MethodPost, "/api/study/sets", `{"name":"Bio","material":"cells"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	set, _ := resp["set"].(map[string]interface{})
	setID, _ := set["id"].(string)
	if setID == "" {
		t.Fatal("expected a set id")
	}

	// The offline AI generates nothing, so neither game can start.
	w, _ = do(t, h, http.MethodPost, "/api/study/dungeon", `{"setId":"`+setID+`"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("dungeon: expected 400, got %d", w.Code)
	}
	w, _ = do(t, h, http.MethodPost, "/api/study/matching", `{"setId":"`+setID+`"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("matching: expected 400, got %d", w.Code)
	}

	w, _ = do(t, h, http.MethodPost, "/api/study/sets", `{"name":"","material":"x"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unnamed set: expected 400, got %d", w.Code)
	}
}

func TestGames_NotFound(t *testing.T) {
	h, _ := setupServer(t)

	w, _ := do(t, h, http.MethodPost, "/api/study/dungeon/nope/answer", `{"choice":0}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("answer: expected 404, got %d", w.Code)
	}
	w, _ = do(t, h, http.MethodPost, "/api/study/dungeon/nope/answer", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing choice: expected 400, got %d", w.Code)
	}
	w, _ = do(t, h, http.MethodPost, "/api/study/matching/nope/select", `{"index":0,"side":"term"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("select: expected 404, got %d", w.Code)
	}
	w, _ = do(t, h, http.MethodPost, "/api/study/matching/nope/select", `{"index":0,"side":"left"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad side: expected 400, got %d", w.Code)
	}
}

func TestChat_OfflineFallback(t *testing.T) {
	h, svc := setupServer(t)
	id := svc.State().Inventory[0]

	w, resp := do(t, h, http.MethodPost, "/api/chat", `{"cardId":"`+id+`","message":"hello"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp["character"] != "Osamu Dazai" {
		t.Errorf("expected Osamu Dazai, got %v", resp["character"])
	}
	if resp["reply"] == "" {
		t.Error("expected a fallback reply")
	}
}

// ─── Dev ────────────────────────────────────────────────────────────────────

func TestDev_Gated(t *testing.T) {
	h, svc := setupServer(t)

	w, _ := do(t, h, http.MethodPost, "/api/dev/currency", `{"coins":true}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	w, resp := do(t, h, http.MethodPost, "/api/account/login", `{"email":"admin@example.com"}`)
	if w.Code != http.StatusOK || resp["is_dev"] != true {
		t.Fatalf("admin login failed: %d %v", w.Code, resp)
	}

	w, _ = do(t, h, http.MethodPost, "/api/dev/currency", `{"coins":true,"gems":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if svc.State().Gems != domain.InitialGems+game.DevGemGrant {
		t.Errorf("expected dev gems, got %d", svc.State().Gems)
	}

	w, _ = do(t, h, http.MethodPut, "/api/dev/cards", `{"name":"Bad","rarity":"MYTHIC"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid card: expected 400, got %d", w.Code)
	}
}

// ─── Plumbing ───────────────────────────────────────────────────────────────

func TestMetricsAndJournal(t *testing.T) {
	h, _ := setupServer(t)
	do(t, h, http.MethodPost, "/api/gacha/pull", `{"bannerId":"b_standard"}`)

	w, _ := do(t, h, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "bst_gacha_draws_total") {
		t.Error("expected bst_gacha_draws_total in metrics output")
	}

	_, resp := do(t, h, http.MethodGet, "/api/journal?limit=5", "")
	entries, _ := resp["entries"].([]interface{})
	if len(entries) == 0 {
		t.Error("expected journal entries")
	}

	w, _ = do(t, h, http.MethodGet, "/api/journal?limit=x", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: expected 400, got %d", w.Code)
	}
}

func TestGameAPI_NotInitialized(t *testing.T) {
	api := &GameAPI{}
	w := httptest.NewRecorder()
	api.HandleState(w, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrInputLocked, http.StatusLocked},
		{domain.ErrGameOver, http.StatusConflict},
		{domain.ErrNotDev, http.StatusForbidden},
		{domain.ErrInsufficientCoins, http.StatusPaymentRequired},
		{domain.ErrNoLeader, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
