package ecb

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/curvelab/yieldstress/internal/curve"
)

// SDMX-JSON response structures, limited to the fields this client reads.

type sdmxResponse struct {
	DataSets  []sdmxDataSet `json:"dataSets"`
	Structure sdmxStructure `json:"structure"`
}

type sdmxDataSet struct {
	Series map[string]sdmxSeries `json:"series"`
}

type sdmxSeries struct {
	Observations map[string][]*float64 `json:"observations"`
}

type sdmxStructure struct {
	Dimensions sdmxDimensions `json:"dimensions"`
}

type sdmxDimensions struct {
	Series      []sdmxDimension `json:"series"`
	Observation []sdmxDimension `json:"observation"`
}

type sdmxDimension struct {
	ID     string      `json:"id"`
	Values []sdmxValue `json:"values"`
}

type sdmxValue struct {
	ID string `json:"id"`
}

// maturityDimensionID is the SDMX dimension carrying the tenor of each series.
const maturityDimensionID = "DATA_TYPE_FM"

// parseResponse pivots an SDMX-JSON payload into a History. Series are keyed
// by colon-joined dimension indices; observations are keyed by time index.
// Dates missing any tenor are dropped.
func parseResponse(resp *sdmxResponse) (*curve.History, error) {
	if len(resp.DataSets) == 0 {
		return &curve.History{}, nil
	}

	maturityDim := -1
	var maturityValues []sdmxValue
	for i, dim := range resp.Structure.Dimensions.Series {
		if dim.ID == maturityDimensionID {
			maturityDim = i
			maturityValues = dim.Values
			break
		}
	}
	if maturityDim == -1 {
		return nil, fmt.Errorf("maturity dimension %s not found", maturityDimensionID)
	}

	if len(resp.Structure.Dimensions.Observation) == 0 {
		return nil, fmt.Errorf("no observation dimension in response")
	}
	timeValues := resp.Structure.Dimensions.Observation[0].Values

	// date -> partially filled row, plus a tenor fill count
	type partialRow struct {
		rates []float64
		seen  int
	}
	byDate := make(map[time.Time]*partialRow)

	for seriesKey, series := range resp.DataSets[0].Series {
		keyParts := strings.Split(seriesKey, ":")
		if maturityDim >= len(keyParts) {
			return nil, fmt.Errorf("series key %q too short for dimension %d", seriesKey, maturityDim)
		}
		matValueIdx, err := strconv.Atoi(keyParts[maturityDim])
		if err != nil {
			return nil, fmt.Errorf("series key %q: %w", seriesKey, err)
		}
		if matValueIdx < 0 || matValueIdx >= len(maturityValues) {
			return nil, fmt.Errorf("series key %q: maturity value index %d out of range", seriesKey, matValueIdx)
		}

		col, ok := curve.MaturityIndex[maturityValues[matValueIdx].ID]
		if !ok {
			// Tenor outside the instrument set, e.g. par yields; skip
			continue
		}

		for obsKey, obsValues := range series.Observations {
			timeIdx, err := strconv.Atoi(obsKey)
			if err != nil {
				return nil, fmt.Errorf("observation key %q: %w", obsKey, err)
			}
			if timeIdx < 0 || timeIdx >= len(timeValues) {
				return nil, fmt.Errorf("observation key %q out of time range", obsKey)
			}
			if len(obsValues) == 0 || obsValues[0] == nil {
				continue // unpublished value
			}

			date, err := time.Parse(dateLayout, timeValues[timeIdx].ID)
			if err != nil {
				return nil, fmt.Errorf("observation date %q: %w", timeValues[timeIdx].ID, err)
			}

			row, ok := byDate[date]
			if !ok {
				row = &partialRow{rates: make([]float64, len(curve.Maturities))}
				byDate[date] = row
			}
			row.rates[col] = *obsValues[0]
			row.seen++
		}
	}

	dates := make([]time.Time, 0, len(byDate))
	for date, row := range byDate {
		if row.seen == len(curve.Maturities) {
			dates = append(dates, date)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	history := &curve.History{
		Dates: dates,
		Rates: make([][]float64, len(dates)),
	}
	for i, date := range dates {
		history.Rates[i] = byDate[date].rates
	}

	if err := history.Validate(); err != nil {
		return nil, fmt.Errorf("parsed history invalid: %w", err)
	}

	return history, nil
}
