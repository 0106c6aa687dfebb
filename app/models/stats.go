package models

// DailyStats is one point of a sparse per-day series.
type DailyStats struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}
