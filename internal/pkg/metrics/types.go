package metrics

import (
	"time"

	"github.com/ManuelReschke/StoreMetrics/app/models"
)

// Customer segments.
const (
	SegmentNew     = "new"
	SegmentActive  = "active"
	SegmentAtRisk  = "at_risk"
	SegmentChurned = "churned"
)

const (
	DefaultSeriesDays       = 30
	DefaultTopProductsLimit = 5
	UnknownProductName      = "Unknown Product"
)

// MetricValue is a metric with its period-over-period change in percent.
type MetricValue struct {
	Value  float64 `json:"value"`
	Change float64 `json:"change"`
}

// ProductStat is one row of the top products ranking. Revenue is in major units.
type ProductStat struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Revenue     float64 `json:"revenue"`
	Count       int64   `json:"count"`
}

// SegmentStat is one customer segment. Segments may overlap.
type SegmentStat struct {
	Segment    string  `json:"segment"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
}

// Summary bundles every dashboard metric for one company and date range.
type Summary struct {
	Revenue           MetricValue         `json:"revenue"`
	MemberCount       MetricValue         `json:"memberCount"`
	ChurnRate         float64             `json:"churnRate"`
	ARPU              MetricValue         `json:"arpu"`
	MRR               MetricValue         `json:"mrr"`
	CLV               MetricValue         `json:"clv"`
	RevenueTimeSeries []models.DailyStats `json:"revenueTimeSeries"`
	MemberGrowth      []models.DailyStats `json:"memberGrowth"`
	TopProducts       []ProductStat       `json:"topProducts"`
	CustomerSegments  []SegmentStat       `json:"customerSegments"`
	StartDate         time.Time           `json:"startDate"`
	EndDate           time.Time           `json:"endDate"`
	GeneratedAt       time.Time           `json:"generatedAt"`
}

var segmentColors = map[string]string{
	SegmentNew:     "#10b981",
	SegmentActive:  "#3b82f6",
	SegmentAtRisk:  "#f59e0b",
	SegmentChurned: "#ef4444",
}

var segmentOrder = []string{SegmentNew, SegmentActive, SegmentAtRisk, SegmentChurned}
