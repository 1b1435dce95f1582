package progress

import (
	"time"

	"github.com/sskkslay-netizen/Bst/internal/domain"
)

// ─── Study History Summaries ────────────────────────────────────────────────

// HeatmapWeeks is the default activity window.
const HeatmapWeeks = 20

// Day is one heatmap cell.
type Day struct {
	Date   string `json:"date"`
	Points int    `json:"points"`
	// Level buckets Points into 0..4 for display.
	Level int `json:"level"`
}

// Intensity buckets a day's points: none, under 5, under 10, under 20,
// and 20 or more.
func Intensity(points int) int {
	switch {
	case points <= 0:
		return 0
	case points < 5:
		return 1
	case points < 10:
		return 2
	case points < 20:
		return 3
	default:
		return 4
	}
}

// Heatmap lays the last weeks*7 days out as columns of seven, oldest
// first. The final cell is today.
func Heatmap(history map[string]int, now time.Time, weeks int) [][]Day {
	if weeks <= 0 {
		weeks = HeatmapWeeks
	}
	today := now.UTC()
	grid := make([][]Day, weeks)
	for w := range weeks {
		week := make([]Day, 7)
		for d := range 7 {
			back := (weeks-1-w)*7 + (6 - d)
			key := DateKey(today.AddDate(0, 0, -back))
			pts := history[key]
			week[d] = Day{Date: key, Points: pts, Level: Intensity(pts)}
		}
		grid[w] = week
	}
	return grid
}

// Streak counts consecutive active days ending today. A day with no
// points yet does not break a streak that ran through yesterday.
func Streak(history map[string]int, now time.Time) int {
	day := now.UTC()
	if history[DateKey(day)] <= 0 {
		day = day.AddDate(0, 0, -1)
	}
	n := 0
	for history[DateKey(day)] > 0 {
		n++
		day = day.AddDate(0, 0, -1)
	}
	return n
}

// Summary is the home screen digest.
type Summary struct {
	Coins       int  `json:"coins"`
	Gems        int  `json:"gems"`
	TotalPoints int  `json:"totalPoints"`
	TodayPoints int  `json:"todayPoints"`
	Streak      int  `json:"streak"`
	CanClaim    bool `json:"canClaim"`
	StudySets   int  `json:"studySets"`
}

// Summarize builds the home screen digest.
func Summarize(s *domain.UserState, lastClaim string, now time.Time) Summary {
	return Summary{
		Coins:       s.Coins,
		Gems:        s.Gems,
		TotalPoints: s.TotalStudyPoints(),
		TodayPoints: s.StudyHistory[DateKey(now)],
		Streak:      Streak(s.StudyHistory, now),
		CanClaim:    CanClaimDaily(lastClaim, now),
		StudySets:   len(s.StudySets),
	}
}
