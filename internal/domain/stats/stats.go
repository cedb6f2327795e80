// Package stats derives review statistics from history records.
// Every function is pure and never modifies its input.
package stats

import (
	"math"
	"slices"
	"time"

	"github.com/phrazzld/cadence/internal/domain"
)

// OutcomeShare is the count and percentage of one outcome within a record set.
type OutcomeShare struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Trend compares two caller-defined periods of review activity.
type Trend struct {
	CurrentCount        int     `json:"current_count"`
	PreviousCount       int     `json:"previous_count"`
	CountChange         int     `json:"count_change"`
	CurrentSuccessRate  float64 `json:"current_success_rate"`
	PreviousSuccessRate float64 `json:"previous_success_rate"`
	SuccessRateChange   float64 `json:"success_rate_change"`
}

// Summary bundles the headline statistics for one user.
type Summary struct {
	TotalReviews     int                                   `json:"total_reviews"`
	SuccessRate      float64                               `json:"success_rate"`
	AverageTimeSpent float64                               `json:"average_time_spent"`
	CurrentStreak    int                                   `json:"current_streak"`
	LongestStreak    int                                   `json:"longest_streak"`
	Distribution     map[domain.ReviewOutcome]OutcomeShare `json:"distribution"`
}

// SuccessRate returns the share of remembered outcomes as a percentage in [0, 100].
// It is 0 for an empty record set.
func SuccessRate(records []domain.HistoryRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	remembered := 0
	for _, r := range records {
		if r.Outcome == domain.ReviewOutcomeRemembered {
			remembered++
		}
	}
	return float64(remembered) / float64(len(records)) * 100
}

// AverageTimeSpent returns the mean review duration in seconds over records
// that carry a duration. It is 0 when no record has one.
func AverageTimeSpent(records []domain.HistoryRecord) float64 {
	total, n := 0, 0
	for _, r := range records {
		if r.TimeSpentSeconds == nil {
			continue
		}
		total += *r.TimeSpentSeconds
		n++
	}
	if n == 0 {
		return 0
	}
	return float64(total) / float64(n)
}

// CurrentStreak counts consecutive local calendar days with at least one review,
// ending today or yesterday in loc. A nil loc means UTC.
func CurrentStreak(records []domain.HistoryRecord, now time.Time, loc *time.Location) int {
	days := activeDays(records, loc)
	if len(days) == 0 {
		return 0
	}

	day := localDay(now, loc)
	if _, ok := days[day]; !ok {
		day = day.AddDate(0, 0, -1)
		if _, ok := days[day]; !ok {
			return 0
		}
	}

	streak := 0
	for {
		if _, ok := days[day]; !ok {
			return streak
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
}

// LongestStreak returns the longest run of consecutive local calendar days with
// at least one review anywhere in the history. A nil loc means UTC.
func LongestStreak(records []domain.HistoryRecord, loc *time.Location) int {
	set := activeDays(records, loc)
	if len(set) == 0 {
		return 0
	}

	days := make([]time.Time, 0, len(set))
	for d := range set {
		days = append(days, d)
	}
	slices.SortFunc(days, func(a, b time.Time) int { return a.Compare(b) })

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i-1].AddDate(0, 0, 1).Equal(days[i]) {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}
	return longest
}

// ResultDistribution returns the count and percentage of every outcome.
// All outcomes are present; percentages are rounded to two decimals and are
// all zero for an empty record set.
func ResultDistribution(records []domain.HistoryRecord) map[domain.ReviewOutcome]OutcomeShare {
	counts := make(map[domain.ReviewOutcome]int, 3)
	for _, r := range records {
		counts[r.Outcome]++
	}

	dist := make(map[domain.ReviewOutcome]OutcomeShare, 3)
	for _, o := range domain.ReviewOutcomes() {
		share := OutcomeShare{Count: counts[o]}
		if len(records) > 0 {
			share.Percentage = round2(float64(counts[o]) / float64(len(records)) * 100)
		}
		dist[o] = share
	}
	return dist
}

// TrendComparison returns the deltas between the current and previous periods.
func TrendComparison(current, previous []domain.HistoryRecord) Trend {
	cur := SuccessRate(current)
	prev := SuccessRate(previous)
	return Trend{
		CurrentCount:        len(current),
		PreviousCount:       len(previous),
		CountChange:         len(current) - len(previous),
		CurrentSuccessRate:  round2(cur),
		PreviousSuccessRate: round2(prev),
		SuccessRateChange:   round2(cur - prev),
	}
}

// Summarize computes every headline statistic for records.
func Summarize(records []domain.HistoryRecord, now time.Time, loc *time.Location) Summary {
	return Summary{
		TotalReviews:     len(records),
		SuccessRate:      round2(SuccessRate(records)),
		AverageTimeSpent: round2(AverageTimeSpent(records)),
		CurrentStreak:    CurrentStreak(records, now, loc),
		LongestStreak:    LongestStreak(records, loc),
		Distribution:     ResultDistribution(records),
	}
}

// activeDays returns the set of local days that contain at least one record.
func activeDays(records []domain.HistoryRecord, loc *time.Location) map[time.Time]struct{} {
	days := make(map[time.Time]struct{}, len(records))
	for _, r := range records {
		days[localDay(r.RecordedAt, loc)] = struct{}{}
	}
	return days
}

// localDay maps t to midnight UTC of its calendar date in loc, so that day
// arithmetic is unaffected by DST transitions in loc.
func localDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
