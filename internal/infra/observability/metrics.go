package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ═══════════════════════════════════════════════════════════════════════════
// Prometheus Metrics
// ═══════════════════════════════════════════════════════════════════════════

// ─── Gacha Metrics ──────────────────────────────────────────────────────────

// PullsTotal counts drawn items by banner, category and rarity.
var PullsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "bst",
	Subsystem: "gacha",
	Name:      "draws_total",
	Help:      "Total items drawn, by banner, category and rarity.",
}, []string{"banner", "category", "rarity"})

// GemsSpent counts gems spent on pulls by banner.
var GemsSpent = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "bst",
	Subsystem: "gacha",
	Name:      "gems_spent_total",
	Help:      "Total gems spent on pulls.",
}, []string{"banner"})

// PityTriggers counts draws upgraded by the hard pity threshold.
var PityTriggers = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "bst",
	Subsystem: "gacha",
	Name:      "pity_triggers_total",
	Help:      "Total draws upgraded by hard pity.",
}, []string{"banner"})

// ─── Progression Metrics ────────────────────────────────────────────────────

// GrantsTotal counts currency granted by reason and currency.
var GrantsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "bst",
	Subsystem: "progress",
	Name:      "granted_total",
	Help:      "Total currency and study points granted.",
}, []string{"reason", "currency"})

// LevelUps counts card level gains.
var LevelUps = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "bst",
	Subsystem: "progress",
	Name:      "level_ups_total",
	Help:      "Total card levels gained from xp items.",
})

// LimitBreaks counts fusions.
var LimitBreaks = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "bst",
	Subsystem: "progress",
	Name:      "limit_breaks_total",
	Help:      "Total limit break fusions.",
})

// ─── Mini-Game Metrics ──────────────────────────────────────────────────────

// GamesFinished counts mini-game sessions by game and outcome.
var GamesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "bst",
	Subsystem: "minigame",
	Name:      "finished_total",
	Help:      "Total mini-game sessions by outcome.",
}, []string{"game", "outcome"})

// DungeonFloorReached records the floor a dungeon run ended on.
var DungeonFloorReached = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "bst",
	Subsystem: "minigame",
	Name:      "dungeon_floor",
	Help:      "Floor reached when a dungeon run ends.",
	Buckets:   []float64{1, 2, 3, 5, 8, 10, 15, 20, 30},
})

// ─── Storage Metrics ────────────────────────────────────────────────────────

// SaveBytes records the serialized save size.
var SaveBytes = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "bst",
	Subsystem: "store",
	Name:      "save_bytes",
	Help:      "Size of the serialized save blob in bytes.",
	Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
})

// SaveFailures counts failed saves by reason ("quota" or "error").
var SaveFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "bst",
	Subsystem: "store",
	Name:      "save_failures_total",
	Help:      "Total failed saves by reason.",
}, []string{"reason"})

// ─── AI Metrics ─────────────────────────────────────────────────────────────

// AIRequests counts AI service calls by operation and result.
var AIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "bst",
	Subsystem: "ai",
	Name:      "requests_total",
	Help:      "Total AI service requests by operation and result.",
}, []string{"operation", "result"})

// AILatency records AI call latency in seconds.
var AILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "bst",
	Subsystem: "ai",
	Name:      "latency_seconds",
	Help:      "AI service request latency.",
	Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
}, []string{"operation"})
