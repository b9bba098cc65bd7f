package ecb

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/curvelab/yieldstress/internal/curve"
)

// buildFixture assembles an SDMX-JSON payload covering all tenors for the
// given dates. skip drops the (dateIdx, tenorIdx) pairs from the payload to
// simulate partial publications.
func buildFixture(t *testing.T, dates []string, skip map[[2]int]bool) *sdmxResponse {
	t.Helper()

	seriesDims := []map[string]interface{}{
		{"id": "FREQ", "values": []map[string]string{{"id": "B"}}},
		{"id": "REF_AREA", "values": []map[string]string{{"id": "U2"}}},
		{"id": "DATA_TYPE_FM", "values": func() []map[string]string {
			vals := make([]map[string]string, len(curve.Maturities))
			for i, m := range curve.Maturities {
				vals[i] = map[string]string{"id": m}
			}
			return vals
		}()},
	}

	timeValues := make([]map[string]string, len(dates))
	for i, d := range dates {
		timeValues[i] = map[string]string{"id": d}
	}

	series := make(map[string]interface{})
	for tenorIdx := range curve.Maturities {
		observations := make(map[string][]interface{})
		for dateIdx := range dates {
			if skip[[2]int{dateIdx, tenorIdx}] {
				continue
			}
			// Distinct, reproducible rate per (date, tenor)
			rate := 1.0 + 0.1*float64(tenorIdx) + 0.01*float64(dateIdx)
			observations[fmt.Sprintf("%d", dateIdx)] = []interface{}{rate}
		}
		key := fmt.Sprintf("0:0:%d", tenorIdx)
		series[key] = map[string]interface{}{"observations": observations}
	}

	payload := map[string]interface{}{
		"dataSets": []map[string]interface{}{{"series": series}},
		"structure": map[string]interface{}{
			"dimensions": map[string]interface{}{
				"series":      seriesDims,
				"observation": []map[string]interface{}{{"id": "TIME_PERIOD", "values": timeValues}},
			},
		},
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}

	var resp sdmxResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	return &resp
}

func TestParseResponseCompleteDates(t *testing.T) {
	resp := buildFixture(t, []string{"2024-01-15", "2024-01-16"}, nil)

	history, err := parseResponse(resp)
	if err != nil {
		t.Fatalf("parseResponse() failed: %v", err)
	}

	if history.Len() != 2 {
		t.Fatalf("history length = %d, want 2", history.Len())
	}

	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if !history.Dates[0].Equal(want) {
		t.Errorf("first date = %v, want %v", history.Dates[0], want)
	}

	// Row 0, tenor 0 was published as 1.0; tenor 31 as 1.0+3.1
	if history.Rates[0][0] != 1.0 {
		t.Errorf("rate[0][0] = %v, want 1.0", history.Rates[0][0])
	}
	if math.Abs(history.Rates[0][31]-4.1) > 1e-9 {
		t.Errorf("rate[0][31] = %v, want 4.1", history.Rates[0][31])
	}

	if err := history.Validate(); err != nil {
		t.Errorf("parsed history failed validation: %v", err)
	}
}

func TestParseResponseDropsIncompleteDates(t *testing.T) {
	// Second date misses one tenor and must be dropped entirely
	skip := map[[2]int]bool{{1, 5}: true}
	resp := buildFixture(t, []string{"2024-01-15", "2024-01-16"}, skip)

	history, err := parseResponse(resp)
	if err != nil {
		t.Fatalf("parseResponse() failed: %v", err)
	}

	if history.Len() != 1 {
		t.Fatalf("history length = %d, want 1", history.Len())
	}
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if !history.Dates[0].Equal(want) {
		t.Errorf("kept date = %v, want %v", history.Dates[0], want)
	}
}

func TestParseResponseNullObservation(t *testing.T) {
	resp := buildFixture(t, []string{"2024-01-15"}, nil)

	// Null out one tenor's value: the date becomes incomplete
	for key, series := range resp.DataSets[0].Series {
		series.Observations["0"] = []*float64{nil}
		resp.DataSets[0].Series[key] = series
		break
	}

	history, err := parseResponse(resp)
	if err != nil {
		t.Fatalf("parseResponse() failed: %v", err)
	}
	if history.Len() != 0 {
		t.Errorf("history length = %d, want 0", history.Len())
	}
}

func TestParseResponseEmptyDataSets(t *testing.T) {
	history, err := parseResponse(&sdmxResponse{})
	if err != nil {
		t.Fatalf("parseResponse() failed: %v", err)
	}
	if history.Len() != 0 {
		t.Errorf("history length = %d, want 0", history.Len())
	}
}

func TestParseResponseMissingMaturityDimension(t *testing.T) {
	resp := buildFixture(t, []string{"2024-01-15"}, nil)
	resp.Structure.Dimensions.Series = resp.Structure.Dimensions.Series[:2]

	if _, err := parseResponse(resp); err == nil {
		t.Error("expected error when maturity dimension is missing")
	}
}

func TestParseResponseUnknownTenorSkipped(t *testing.T) {
	resp := buildFixture(t, []string{"2024-01-15"}, nil)

	// Append a par-yield series outside the instrument set
	resp.Structure.Dimensions.Series[2].Values = append(
		resp.Structure.Dimensions.Series[2].Values, sdmxValue{ID: "PY_10Y"})
	val := 9.9
	resp.DataSets[0].Series[fmt.Sprintf("0:0:%d", len(curve.Maturities))] = sdmxSeries{
		Observations: map[string][]*float64{"0": {&val}},
	}

	history, err := parseResponse(resp)
	if err != nil {
		t.Fatalf("parseResponse() failed: %v", err)
	}
	if history.Len() != 1 {
		t.Errorf("history length = %d, want 1", history.Len())
	}
}
