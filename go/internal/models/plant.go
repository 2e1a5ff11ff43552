package models

import "math"

// GrowingPlant is a planted seed as last reported by the server.
// ElapsedTime and GrowthTime are both in seconds.
type GrowingPlant struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	ElapsedTime float64 `json:"elapsed_time"`
	GrowthTime  float64 `json:"growth_time"`
}

// TimeLeft returns the remaining growth time, never negative.
func (p GrowingPlant) TimeLeft() float64 {
	return math.Max(0, p.GrowthTime-p.ElapsedTime)
}

// Ready reports whether the plant can be harvested.
func (p GrowingPlant) Ready() bool {
	return p.ElapsedTime >= p.GrowthTime
}

// Progress returns elapsed/growth as a percentage, clamped to [0, 100].
func (p GrowingPlant) Progress() float64 {
	return ProgressPercent(p.ElapsedTime, p.GrowthTime)
}

// ProgressPercent computes elapsed/total*100 clamped to [0, 100].
// A non-positive total counts as fully grown.
func ProgressPercent(elapsed, total float64) float64 {
	if total <= 0 {
		return 100
	}
	pct := elapsed / total * 100
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}
