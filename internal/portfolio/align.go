package portfolio

import "time"

// AlignSeries reconciles per-asset series onto a single date axis: the axis
// of the first series in fetch order. Every other series is indexed
// positionally (same array index), not by matching timestamps; a series with
// fewer points than the axis resolves to price 0 at the missing positions.
//
// This is a deliberate simplification: it assumes all series share one
// calendar, which fails for newly listed symbols or synthetic substitutes of
// different length. The real axis dates are returned so a timestamp-based
// join stays a contained change.
func AlignSeries(series []SymbolSeries) ([]time.Time, map[string][]float64) {
	if len(series) == 0 {
		return nil, nil
	}

	axis := make([]time.Time, len(series[0].Points))
	for i, p := range series[0].Points {
		axis[i] = p.Date
	}

	prices := make(map[string][]float64, len(series))
	for _, ss := range series {
		row := make([]float64, len(axis))
		for i := range axis {
			if i < len(ss.Points) {
				row[i] = ss.Points[i].Value
			}
		}
		prices[ss.Symbol] = row
	}
	return axis, prices
}
