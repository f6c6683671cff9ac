package core

import (
	"fmt"
	"sort"
	"time"
)

// GroupSlice is one labeled wedge of the per-group spend breakdown.
type GroupSlice struct {
	GroupID int64  `json:"group_id"`
	Name    string `json:"name"`
	Total   int64  `json:"total"`
}

// DayTotal is one point of the daily spend series.
type DayTotal struct {
	Label string `json:"label"`
	Total int64  `json:"total"`
}

// TotalSpend sums the amounts of all activity records.
func TotalSpend(acts []Activity) int64 {
	var total int64
	for _, a := range acts {
		total += a.Amount
	}
	return total
}

// GroupBreakdown sums activity per group and joins against group names for
// labeling. Groups whose total is zero are excluded; ids without a known
// group get a "Group <id>" fallback label. Output is ordered by group id so
// the breakdown is stable under reordering of the input.
func GroupBreakdown(acts []Activity, groups []Group) []GroupSlice {
	totals := make(map[int64]int64)
	for _, a := range acts {
		totals[a.GroupID] += a.Amount
	}

	names := make(map[int64]string, len(groups))
	for _, g := range groups {
		names[g.ID] = g.Name
	}

	ids := make([]int64, 0, len(totals))
	for id, total := range totals {
		if total != 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]GroupSlice, 0, len(ids))
	for _, id := range ids {
		name, ok := names[id]
		if !ok {
			name = fmt.Sprintf("Group %d", id)
		}
		out = append(out, GroupSlice{GroupID: id, Name: name, Total: totals[id]})
	}
	return out
}

// DailySeries buckets activity by the local calendar day of created_at and
// sums per day, emitting the series chronologically ascending regardless of
// input order. Buckets are keyed by a month+day label, so same-calendar-day
// records from different years merge into one bucket; callers needing year
// separation must pre-filter the input. Ordering uses the earliest timestamp
// seen per bucket, not the label text.
func DailySeries(acts []Activity) []DayTotal {
	type bucket struct {
		total    int64
		earliest time.Time
	}
	buckets := make(map[string]*bucket)
	for _, a := range acts {
		label := a.CreatedAt.Local().Format("Jan 2")
		b, ok := buckets[label]
		if !ok {
			b = &bucket{earliest: a.CreatedAt}
			buckets[label] = b
		}
		b.total += a.Amount
		if a.CreatedAt.Before(b.earliest) {
			b.earliest = a.CreatedAt
		}
	}

	labels := make([]string, 0, len(buckets))
	for label := range buckets {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		return buckets[labels[i]].earliest.Before(buckets[labels[j]].earliest)
	})

	out := make([]DayTotal, 0, len(labels))
	for _, label := range labels {
		out = append(out, DayTotal{Label: label, Total: buckets[label].total})
	}
	return out
}

// SortRecent returns a copy of the activity list ordered most recent first.
// The sort is stable: records with equal timestamps keep their input order.
func SortRecent(acts []Activity) []Activity {
	out := append([]Activity(nil), acts...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
