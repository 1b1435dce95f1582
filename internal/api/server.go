// Package api provides the HTTP server for BST.
// It exposes the game engine as a small JSON REST API for the web client.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sskkslay-netizen/Bst/internal/app/game"
	"github.com/sskkslay-netizen/Bst/internal/domain"
	"github.com/sskkslay-netizen/Bst/internal/infra/observability"
)

// Version is reported by /api/version.
const Version = "0.1.0"

// Server is the BST HTTP API server.
type Server struct {
	game           *GameAPI
	log            *observability.Logger
	metricsEnabled bool
	timeout        time.Duration
}

// NewServer creates a new API server over the game service.
func NewServer(svc *game.Service, log *observability.Logger) *Server {
	return &Server{
		game:    &GameAPI{Game: svc},
		log:     log.Named("api"),
		timeout: 2 * time.Minute,
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetTimeout bounds every request. AI backed routes need the most room.
func (s *Server) SetTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))
	r.Use(requestContext)
	r.Use(s.logRequests)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": Version,
		})
	})

	g := s.game
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", g.HandleState)
		r.Get("/status", g.HandleStatus)
		r.Get("/journal", g.HandleJournal)

		r.Route("/account", func(r chi.Router) {
			r.Post("/login", g.HandleLogin)
			r.Post("/logout", g.HandleLogout)
		})

		r.Route("/gacha", func(r chi.Router) {
			r.Get("/banners", g.HandleBanners)
			r.Post("/pull", g.HandlePull)
		})

		r.Route("/collection", func(r chi.Router) {
			r.Get("/", g.HandleCollection)
			r.Get("/{id}", g.HandleCard)
			r.Post("/{id}/level-up", g.HandleLevelUp)
			r.Post("/{id}/limit-break", g.HandleLimitBreak)
			r.Post("/{id}/equip", g.HandleEquip)
			r.Post("/{id}/favorite", g.HandleFavorite)
		})

		r.Get("/team", g.HandleSquad)
		r.Post("/team/toggle", g.HandleToggleSquad)

		r.Route("/home", func(r chi.Router) {
			r.Get("/summary", g.HandleHome)
			r.Post("/daily-claim", g.HandleDailyClaim)
			r.Post("/notes", g.HandleNotes)
			r.Post("/focus/toggle", g.HandleFocusToggle)
			r.Post("/focus/reset", g.HandleFocusReset)
			r.Post("/focus/tick", g.HandleFocusTick)
		})

		r.Get("/shop/xp", g.HandleShop)
		r.Post("/shop/xp/{item}", g.HandleBuyXP)

		r.Route("/study", func(r chi.Router) {
			r.Get("/sets", g.HandleStudySets)
			r.Post("/sets", g.HandleAddStudySet)

			r.Post("/dungeon", g.HandleStartDungeon)
			r.Get("/dungeon/{id}", g.HandleDungeon)
			r.Post("/dungeon/{id}/answer", g.HandleAnswer)
			r.Post("/dungeon/{id}/unlock", g.HandleUnlock)
			r.Delete("/dungeon/{id}", g.HandleAbortDungeon)

			r.Post("/matching", g.HandleStartMatching)
			r.Get("/matching/{id}", g.HandleMatching)
			r.Post("/matching/{id}/select", g.HandleSelect)
			r.Post("/matching/{id}/tick", g.HandleMatchTick)
			r.Delete("/matching/{id}", g.HandleAbortMatching)
		})

		r.Post("/chat", g.HandleChat)

		r.Route("/dev", func(r chi.Router) {
			r.Use(g.requireDev)
			r.Put("/cards", g.HandleDevCard)
			r.Put("/equipment", g.HandleDevEquipment)
			r.Put("/banners", g.HandleDevBanner)
			r.Post("/equipment/{id}/grant", g.HandleDevGrantEquipment)
			r.Post("/currency", g.HandleDevCurrency)
		})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeDomainError maps a game error onto an HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrBannerNotFound),
		errors.Is(err, domain.ErrCardNotFound),
		errors.Is(err, domain.ErrEquipmentNotFound),
		errors.Is(err, domain.ErrUnknownItem),
		errors.Is(err, domain.ErrInstanceNotFound),
		errors.Is(err, domain.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientGems),
		errors.Is(err, domain.ErrInsufficientCoins):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrNotDev):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAlreadyClaimed),
		errors.Is(err, domain.ErrGameOver):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInputLocked):
		return http.StatusLocked
	case errors.Is(err, domain.ErrInvalidDefinition),
		errors.Is(err, domain.ErrItemNotOwned),
		errors.Is(err, domain.ErrDefinitionMismatch),
		errors.Is(err, domain.ErrSameInstance),
		errors.Is(err, domain.ErrSquadFull),
		errors.Is(err, domain.ErrNotesTooShort),
		errors.Is(err, domain.ErrNoLeader),
		errors.Is(err, domain.ErrNoStudyContent),
		errors.Is(err, domain.ErrInvalidMove):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrQuotaExceeded):
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads a JSON request body into v. An empty body leaves v at
// its zero value.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// maxBodyBytes leaves room for inline card art and photographed notes.
const maxBodyBytes = 32 << 20

// requestContext copies chi's request id into the journal context.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(observability.WithRequestID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// logRequests writes one debug line per request and a warning for 5xx.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		kv := []interface{}{
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		}
		if ww.Status() >= http.StatusInternalServerError {
			s.log.Warn("request failed", kv...)
			return
		}
		s.log.Debug("request", kv...)
	})
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
