package output

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/ChristianF88/logstat/version"
)

// Report represents the complete analysis output structure
type Report struct {
	Metadata Metadata  `json:"metadata"`
	General  General   `json:"general"`
	Rows     []Row     `json:"rows"`
	Warnings []Warning `json:"warnings"`
	Errors   []Error   `json:"errors"`

	// Mutex for thread-safe warning/error appending
	mu sync.Mutex `json:"-"`
}

// Metadata contains information about the analysis run
type Metadata struct {
	GeneratedAt  time.Time `json:"generated_at"`
	AnalysisType string    `json:"analysis_type"`
	Version      string    `json:"version"`
	DurationMS   int64     `json:"duration_ms"`
}

// General contains overall statistics and information
type General struct {
	LogFile         string  `json:"log_file,omitempty"`
	LogDate         string  `json:"log_date,omitempty"`
	TotalLines      int     `json:"total_lines"`
	MalformedLines  int     `json:"malformed_lines"`
	ErrorPercent    float64 `json:"error_percent"`
	UniqueEndpoints int     `json:"unique_endpoints"`
	Parsing         Parsing `json:"parsing"`
}

// Parsing contains parsing performance metrics
type Parsing struct {
	DurationMS    int64  `json:"duration_ms"`
	RatePerSecond int64  `json:"rate_per_second"`
	Format        string `json:"format,omitempty"`
	LineCap       int    `json:"line_cap,omitempty"`
}

// Row is one ranked endpoint. All reals are rounded to three decimals;
// TimeSumExact keeps the unrounded sum and is not serialized.
type Row struct {
	URL          string  `json:"url"`
	Count        int     `json:"count"`
	CountPerc    float64 `json:"count_perc"`
	TimeSum      float64 `json:"time_sum"`
	TimeAvg      float64 `json:"time_avg"`
	TimePerc     float64 `json:"time_perc"`
	TimeMax      float64 `json:"time_max"`
	TimeMed      float64 `json:"time_med"`
	TimeSumExact float64 `json:"-"`
}

// Warning represents a warning message
type Warning struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

// Error represents an error message
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

// NewReport creates a new Report with default metadata
func NewReport(analysisType string, startTime time.Time) *Report {
	return &Report{
		Metadata: Metadata{
			GeneratedAt:  time.Now().UTC(),
			AnalysisType: analysisType,
			Version:      version.Version,
			DurationMS:   time.Since(startTime).Milliseconds(),
		},
		Rows:     []Row{},
		Warnings: []Warning{},
		Errors:   []Error{},
	}
}

// ToJSON converts the output to pretty-printed JSON
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ToCompactJSON converts the output to compact JSON
func (r *Report) ToCompactJSON() ([]byte, error) {
	return json.Marshal(r)
}

// RowsJSON encodes only the rows, the shape the HTML template expects
func (r *Report) RowsJSON() ([]byte, error) {
	return json.Marshal(r.Rows)
}

// AddWarning adds a warning to the output (thread-safe)
func (r *Report) AddWarning(warningType, message string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, Warning{
		Type:    warningType,
		Message: message,
		Count:   count,
	})
}

// AddError adds an error to the output (thread-safe)
func (r *Report) AddError(errorType, message string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, Error{
		Type:    errorType,
		Message: message,
		Count:   count,
	})
}

// UpdateDuration updates the duration in metadata
func (r *Report) UpdateDuration(startTime time.Time) {
	r.Metadata.DurationMS = time.Since(startTime).Milliseconds()
}
