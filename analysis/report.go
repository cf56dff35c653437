package analysis

import (
	"fmt"
	"sort"

	"github.com/ChristianF88/logstat/logparser"
	"github.com/ChristianF88/logstat/output"
	"github.com/rs/zerolog"
)

// ErrorRateExceeded is returned when too many lines could not be parsed to trust
// the report. No report must be written in that case.
type ErrorRateExceeded struct {
	LogFile   string
	Percent   float64
	Threshold float64
	RunStats  RunStats
}

func (e *ErrorRateExceeded) Error() string {
	return fmt.Sprintf("could not parse %.2f%% of lines in %s (%d of %d), limit is %.2f%%",
		e.Percent, e.LogFile, e.RunStats.MalformedLines, e.RunStats.TotalLines, e.Threshold)
}

// Builder ranks aggregated endpoints into report rows
type Builder struct {
	Size            int     // maximum number of rows
	MaxErrorPercent float64 // error-rate gate, 0-100
	LogFile         string  // only used in diagnostics
	Logger          zerolog.Logger
}

// Build ranks the endpoints of agg by cumulative duration and returns the top Size rows.
//
// Percentages are relative to the whole log, not to the returned rows. Endpoints with
// equal cumulative duration keep the order in which they were first seen. agg is not
// modified, so building twice yields the same rows.
//
// When the malformed line ratio exceeds MaxErrorPercent an error-level diagnostic is
// logged and nil rows are returned together with *ErrorRateExceeded.
func (b Builder) Build(agg *Aggregator) ([]output.Row, error) {
	run := agg.RunStats()
	if perc, ok := run.ErrorPercent(); ok && perc > b.MaxErrorPercent {
		err := &ErrorRateExceeded{
			LogFile:   b.LogFile,
			Percent:   perc,
			Threshold: b.MaxErrorPercent,
			RunStats:  run,
		}
		b.Logger.Error().
			Str("log_file", b.LogFile).
			Float64("error_percent", perc).
			Float64("max_error_percent", b.MaxErrorPercent).
			Msgf("Could not parse %.2f%% of lines", perc)
		return nil, err
	}

	entries := agg.Entries()

	var totalCount int
	var totalDuration float64
	for _, es := range entries {
		totalCount += es.Count
		totalDuration += es.Sum
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Sum > entries[j].Sum
	})

	if b.Size >= 0 && len(entries) > b.Size {
		entries = entries[:b.Size]
	}

	rows := make([]output.Row, 0, len(entries))
	for _, es := range entries {
		row := output.Row{
			URL:          es.Endpoint,
			Count:        es.Count,
			TimeSum:      logparser.Round3(es.Sum),
			TimeSumExact: es.Sum,
			TimeMax:      logparser.Round3(es.Max),
			TimeMed:      logparser.Round3(Median(es.Durations)),
		}
		if es.Count > 0 {
			row.TimeAvg = logparser.Round3(es.Sum / float64(es.Count))
		}
		if totalCount > 0 {
			row.CountPerc = logparser.Round3(float64(es.Count) / float64(totalCount) * 100)
		}
		if totalDuration > 0 {
			row.TimePerc = logparser.Round3(es.Sum / totalDuration * 100)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// Median returns the exact median of values without reordering them.
// The median of an empty slice is 0.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
