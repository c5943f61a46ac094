package market

import (
	"math/rand"
	"time"

	"github.com/reotam5/stock-visualizer/internal/portfolio"
)

// syntheticFloor is the minimum price a synthetic series may contain, so a
// generated value can never poison downstream share math with a zero or
// negative divisor.
const syntheticFloor = 1.0

// syntheticDailyStep bounds the uniform random-walk delta per day.
const syntheticDailyStep = 2.5

// GenerateSyntheticSeries produces a statistically plausible substitute price
// history for the given window, anchored at anchorPrice: one midnight-aligned
// point per day from windowDays ago through today (windowDays+1 points), each
// value a uniform step of at most ±syntheticDailyStep from the previous one.
// Only the shape is deterministic; values vary run to run.
func GenerateSyntheticSeries(windowDays int, anchorPrice float64) portfolio.Series {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	series := make(portfolio.Series, 0, windowDays+1)
	price := anchorPrice
	for i := windowDays; i >= 0; i-- {
		price += (rand.Float64() - 0.5) * 2 * syntheticDailyStep
		if price < syntheticFloor {
			price = syntheticFloor
		}
		series = append(series, portfolio.PricePoint{
			Date:  today.AddDate(0, 0, -i),
			Value: price,
		})
	}
	return series
}
