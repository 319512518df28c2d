package kpi

import "time"

// window is an inclusive calendar-date range.
type window struct {
	start, end time.Time
}

// compareWindows derives the two disjoint 30-day windows from the anchor:
// last = [anchor-29, anchor], prior = [anchor-59, anchor-30]. The windows are
// contiguous and never overlap.
func compareWindows(anchor time.Time) (last, prior window) {
	last = window{start: anchor.AddDate(0, 0, -29), end: anchor}
	prior = window{start: anchor.AddDate(0, 0, -59), end: anchor.AddDate(0, 0, -30)}
	return last, prior
}
