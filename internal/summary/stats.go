package summary

import (
	"github.com/montanaflynn/stats"
)

// DurationStats describes the known test durations of a run, in milliseconds.
type DurationStats struct {
	Count  int     `json:"count"`
	Total  float64 `json:"total"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
}

// DurationStatsOf computes the duration statistics of every outcome with a
// timing. It returns nil when no outcome has one.
func DurationStatsOf(modules []ModuleSummary) *DurationStats {
	var data stats.Float64Data
	for i := range modules {
		for _, o := range modules[i].Outcomes {
			if o.DurationMs != nil {
				data = append(data, *o.DurationMs)
			}
		}
	}
	if len(data) == 0 {
		return nil
	}
	ds := &DurationStats{Count: len(data)}
	ds.Total, _ = stats.Sum(data)
	ds.Min, _ = stats.Min(data)
	ds.Max, _ = stats.Max(data)
	ds.Mean, _ = stats.Mean(data)
	ds.Median, _ = stats.Median(data)
	ds.P90, _ = stats.Percentile(data, 90)
	return ds
}
