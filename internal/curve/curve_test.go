package curve

import (
	"math"
	"testing"
	"time"
)

func day(offset int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func fullRow(value float64) []float64 {
	row := make([]float64, len(Maturities))
	for i := range row {
		row[i] = value
	}
	return row
}

func TestMaturitySetShape(t *testing.T) {
	if len(Maturities) != 32 {
		t.Fatalf("expected 32 maturities, got %d", len(Maturities))
	}
	if Maturities[0] != "SR_3M" {
		t.Errorf("first maturity = %s, want SR_3M", Maturities[0])
	}
	if Maturities[len(Maturities)-1] != "SR_30Y" {
		t.Errorf("last maturity = %s, want SR_30Y", Maturities[len(Maturities)-1])
	}
	if MaturityIndex["SR_10Y"] != 11 {
		t.Errorf("SR_10Y index = %d, want 11", MaturityIndex["SR_10Y"])
	}
}

func TestHistoryValidate(t *testing.T) {
	tests := []struct {
		name    string
		history History
		wantErr bool
	}{
		{
			name: "valid two-day history",
			history: History{
				Dates: []time.Time{day(0), day(1)},
				Rates: [][]float64{fullRow(1.0), fullRow(1.1)},
			},
		},
		{
			name:    "empty history is valid",
			history: History{},
		},
		{
			name: "length mismatch",
			history: History{
				Dates: []time.Time{day(0)},
				Rates: [][]float64{fullRow(1.0), fullRow(1.1)},
			},
			wantErr: true,
		},
		{
			name: "incomplete row",
			history: History{
				Dates: []time.Time{day(0)},
				Rates: [][]float64{{1.0, 2.0}},
			},
			wantErr: true,
		},
		{
			name: "duplicate dates",
			history: History{
				Dates: []time.Time{day(0), day(0)},
				Rates: [][]float64{fullRow(1.0), fullRow(1.1)},
			},
			wantErr: true,
		},
		{
			name: "out of order dates",
			history: History{
				Dates: []time.Time{day(1), day(0)},
				Rates: [][]float64{fullRow(1.0), fullRow(1.1)},
			},
			wantErr: true,
		},
		{
			name: "NaN rate",
			history: History{
				Dates: []time.Time{day(0)},
				Rates: [][]float64{fullRow(math.NaN())},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.history.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHistoryLatest(t *testing.T) {
	h := History{
		Dates: []time.Time{day(0), day(1)},
		Rates: [][]float64{fullRow(1.0), fullRow(2.0)},
	}

	date, row, err := h.Latest()
	if err != nil {
		t.Fatalf("Latest() failed: %v", err)
	}
	if !date.Equal(day(1)) {
		t.Errorf("Latest() date = %v, want %v", date, day(1))
	}
	if row[0] != 2.0 {
		t.Errorf("Latest() rate = %v, want 2.0", row[0])
	}

	// Returned row is a copy
	row[0] = 99
	if h.Rates[1][0] != 2.0 {
		t.Error("Latest() leaked a mutable reference to the history")
	}

	empty := History{}
	if _, _, err := empty.Latest(); err == nil {
		t.Error("Latest() on empty history should fail")
	}
}

func TestHistoryClip(t *testing.T) {
	h := History{
		Dates: []time.Time{day(0), day(1), day(2), day(3)},
		Rates: [][]float64{fullRow(1), fullRow(2), fullRow(3), fullRow(4)},
	}

	clipped := h.Clip(day(1), day(2))
	if clipped.Len() != 2 {
		t.Fatalf("Clip() length = %d, want 2", clipped.Len())
	}
	if !clipped.Dates[0].Equal(day(1)) || !clipped.Dates[1].Equal(day(2)) {
		t.Errorf("Clip() dates = %v", clipped.Dates)
	}

	empty := h.Clip(day(10), day(20))
	if empty.Len() != 0 {
		t.Errorf("Clip() outside range length = %d, want 0", empty.Len())
	}
}
