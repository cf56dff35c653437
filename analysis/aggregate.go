package analysis

import (
	"github.com/ChristianF88/logstat/logparser"
)

// EndpointStats holds the running statistics of one endpoint.
// Count == len(Durations), Sum == sum(Durations), Max == max(Durations).
type EndpointStats struct {
	Endpoint  string
	Count     int
	Sum       float64
	Max       float64
	Durations []float64
}

func (es *EndpointStats) add(d float64) {
	es.Count++
	es.Sum += d
	if es.Count == 1 || d > es.Max {
		es.Max = d
	}
	es.Durations = append(es.Durations, d)
}

// RunStats counts the lines seen in one run
type RunStats struct {
	TotalLines     int
	MalformedLines int
}

// ErrorPercent returns MalformedLines / TotalLines * 100. ok is false when no
// line was read, in which case the percentage is undefined.
func (rs RunStats) ErrorPercent() (perc float64, ok bool) {
	if rs.TotalLines == 0 {
		return 0, false
	}
	return float64(rs.MalformedLines) / float64(rs.TotalLines) * 100, true
}

// Aggregator accumulates parsed lines into per-endpoint statistics in a single pass.
// Endpoints keep the order in which they were first seen.
type Aggregator struct {
	index   map[string]int
	entries []*EndpointStats
	run     RunStats
}

// NewAggregator creates an empty aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{
		index: make(map[string]int),
	}
}

// Add folds one parsed line into the aggregate. Every line counts toward the total,
// failed lines count as malformed, and only successful lines with a non-empty
// endpoint update endpoint statistics.
func (a *Aggregator) Add(pl logparser.ParsedLine) {
	a.run.TotalLines++

	if !pl.OK {
		a.run.MalformedLines++
		return
	}
	if pl.Endpoint == "" {
		return
	}

	i, ok := a.index[pl.Endpoint]
	if !ok {
		i = len(a.entries)
		a.index[pl.Endpoint] = i
		a.entries = append(a.entries, &EndpointStats{Endpoint: pl.Endpoint})
	}
	a.entries[i].add(pl.Duration)
}

// Lookup returns the statistics of one endpoint
func (a *Aggregator) Lookup(endpoint string) (*EndpointStats, bool) {
	i, ok := a.index[endpoint]
	if !ok {
		return nil, false
	}
	return a.entries[i], true
}

// Entries returns the endpoint statistics in first-seen order. The slice is a copy;
// the statistics it points to must be treated as read-only.
func (a *Aggregator) Entries() []*EndpointStats {
	out := make([]*EndpointStats, len(a.entries))
	copy(out, a.entries)
	return out
}

// Len returns the number of distinct endpoints
func (a *Aggregator) Len() int {
	return len(a.entries)
}

// RunStats returns the line counters
func (a *Aggregator) RunStats() RunStats {
	return a.run
}

// Merge folds another aggregate into a: counts and sums add up, max is the max of
// maxes and duration lists are concatenated. Endpoints new to a are appended in
// other's order. other is left untouched.
func (a *Aggregator) Merge(other *Aggregator) {
	a.run.TotalLines += other.run.TotalLines
	a.run.MalformedLines += other.run.MalformedLines

	for _, src := range other.entries {
		i, ok := a.index[src.Endpoint]
		if !ok {
			i = len(a.entries)
			a.index[src.Endpoint] = i
			a.entries = append(a.entries, &EndpointStats{Endpoint: src.Endpoint})
		}

		dst := a.entries[i]
		if src.Count > 0 && (dst.Count == 0 || src.Max > dst.Max) {
			dst.Max = src.Max
		}
		dst.Count += src.Count
		dst.Sum += src.Sum
		dst.Durations = append(dst.Durations, src.Durations...)
	}
}

// Lines is a sequence of raw log lines, satisfied by ingestor.LineSource
type Lines interface {
	Scan() bool
	Text() string
	Err() error
}

// Accumulate extracts and aggregates every line of src. maxLines > 0 stops reading
// once that many lines were consumed. The returned error is a read error of src.
func Accumulate(g *logparser.Grammar, src Lines, maxLines int) (*Aggregator, error) {
	agg := NewAggregator()

	for src.Scan() {
		agg.Add(logparser.Extract(g, src.Text()))
		if maxLines > 0 && agg.run.TotalLines >= maxLines {
			break
		}
	}
	if err := src.Err(); err != nil {
		return agg, err
	}

	return agg, nil
}
