package metrics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ManuelReschke/StoreMetrics/app/models"
)

const dateLayout = "2006-01-02"

var hundred = decimal.NewFromInt(100)

// majorUnits converts stored cents to currency units without rounding.
func majorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Shift(-2)
}

// output rounds a value to two decimals; it is only applied to final results.
func output(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// percentChange is (current-previous)/previous*100, or 0 when previous is 0.
func percentChange(current, previous decimal.Decimal) float64 {
	if previous.IsZero() {
		return 0
	}
	return output(current.Sub(previous).Div(previous).Mul(hundred))
}

// previousWindow returns the window of equal length ending right before start.
func previousWindow(start, end time.Time) (time.Time, time.Time) {
	length := end.Sub(start)
	return start.Add(-length).Add(-time.Nanosecond), start.Add(-time.Nanosecond)
}

func dayKey(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// sparseSeries turns per-day totals into an ascending series. Days without
// data are left out.
func sparseSeries(totals map[string]decimal.Decimal) []models.DailyStats {
	out := make([]models.DailyStats, 0, len(totals))
	for day, v := range totals {
		out = append(out, models.DailyStats{Date: day, Value: output(v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
