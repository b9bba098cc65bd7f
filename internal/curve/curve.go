// Package curve defines the yield-curve history consumed by the PCA/stress
// engine and its storage and acquisition collaborators.
package curve

import (
	"fmt"
	"math"
	"time"
)

// Maturities is the fixed instrument set: euro area AAA government spot
// rates from 3 months to 30 years, in tenor order.
var Maturities = []string{
	"SR_3M", "SR_6M", "SR_1Y", "SR_2Y", "SR_3Y", "SR_4Y", "SR_5Y",
	"SR_6Y", "SR_7Y", "SR_8Y", "SR_9Y", "SR_10Y", "SR_11Y", "SR_12Y",
	"SR_13Y", "SR_14Y", "SR_15Y", "SR_16Y", "SR_17Y", "SR_18Y", "SR_19Y",
	"SR_20Y", "SR_21Y", "SR_22Y", "SR_23Y", "SR_24Y", "SR_25Y", "SR_26Y",
	"SR_27Y", "SR_28Y", "SR_29Y", "SR_30Y",
}

// MaturityIndex maps tenor label to its column position.
var MaturityIndex = func() map[string]int {
	idx := make(map[string]int, len(Maturities))
	for i, m := range Maturities {
		idx[m] = i
	}
	return idx
}()

// History is an ordered yield-curve time series: one row of rates per trading
// date. Dates are strictly increasing and every row covers all maturities.
// The engine reads a History but never mutates it.
type History struct {
	Dates []time.Time
	Rates [][]float64
}

// Len returns the number of observations.
func (h *History) Len() int {
	return len(h.Dates)
}

// Validate enforces the engine's input invariants: parallel slices, strictly
// increasing duplicate-free dates, complete numeric rows. Rows with gaps must
// be dropped by the acquisition layer before the history gets here.
func (h *History) Validate() error {
	if len(h.Dates) != len(h.Rates) {
		return fmt.Errorf("dates/rates length mismatch: %d vs %d", len(h.Dates), len(h.Rates))
	}

	for i, row := range h.Rates {
		if len(row) != len(Maturities) {
			return fmt.Errorf("row %d (%s) has %d rates, want %d",
				i, h.Dates[i].Format("2006-01-02"), len(row), len(Maturities))
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("row %d (%s) has non-finite rate at %s",
					i, h.Dates[i].Format("2006-01-02"), Maturities[j])
			}
		}
		if i > 0 && !h.Dates[i].After(h.Dates[i-1]) {
			return fmt.Errorf("dates not strictly increasing at index %d (%s)",
				i, h.Dates[i].Format("2006-01-02"))
		}
	}

	return nil
}

// Latest returns the most recent date and its curve.
func (h *History) Latest() (time.Time, []float64, error) {
	if h.Len() == 0 {
		return time.Time{}, nil, fmt.Errorf("history is empty")
	}
	last := h.Len() - 1
	row := make([]float64, len(h.Rates[last]))
	copy(row, h.Rates[last])
	return h.Dates[last], row, nil
}

// Clip returns the sub-history with from <= date <= to. The rate rows are
// shared with the receiver, which is safe because histories are read-only.
func (h *History) Clip(from, to time.Time) *History {
	out := &History{}
	for i, d := range h.Dates {
		if d.Before(from) || d.After(to) {
			continue
		}
		out.Dates = append(out.Dates, d)
		out.Rates = append(out.Rates, h.Rates[i])
	}
	return out
}
