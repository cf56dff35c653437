package analysis

import (
	"fmt"
	"time"

	"github.com/ChristianF88/logstat/ingestor"
	"github.com/ChristianF88/logstat/logparser"
	"github.com/ChristianF88/logstat/output"
	"github.com/rs/zerolog"
)

// Options describes one analysis run over a single log file
type Options struct {
	LogFile         string
	LogDate         string // optional, shown in the report header
	LogFormat       string // empty means logparser.DefaultFormat
	ReportSize      int
	MaxErrorPercent float64
	MaxLines        int // 0 reads the whole file
}

// Analyze compiles the log format, reads LogFile once and builds the ranked report.
//
// The returned report is never nil. On failure it carries the error in its Errors
// list as well, so it can still be printed. When the error-rate gate trips the error
// is *ErrorRateExceeded and the report has no rows.
func Analyze(compiler *logparser.Compiler, opts Options, logger zerolog.Logger) (*output.Report, error) {
	analysisStart := time.Now()
	report := output.NewReport("static", analysisStart)
	report.General.LogFile = opts.LogFile
	report.General.LogDate = opts.LogDate

	logFormat := opts.LogFormat
	if logFormat == "" {
		logFormat = logparser.DefaultFormat
	}
	report.General.Parsing.Format = logFormat
	report.General.Parsing.LineCap = opts.MaxLines

	grammar, err := compiler.Compile(logFormat)
	if err != nil {
		report.AddError("log_format", err.Error(), 1)
		return report, err
	}

	src, err := ingestor.Open(opts.LogFile)
	if err != nil {
		report.AddError("open_file", err.Error(), 1)
		return report, err
	}
	defer src.Close()

	logger.Info().
		Str("log_file", opts.LogFile).
		Bool("gzip", ingestor.IsCompressed(opts.LogFile)).
		Msg("Analyzing log file")

	parseStart := time.Now()
	agg, err := Accumulate(grammar, src, opts.MaxLines)
	parseDuration := time.Since(parseStart)
	if err != nil {
		report.AddError("read_file", err.Error(), 1)
		return report, err
	}

	run := agg.RunStats()
	report.General.TotalLines = run.TotalLines
	report.General.MalformedLines = run.MalformedLines
	report.General.UniqueEndpoints = agg.Len()
	report.General.Parsing.DurationMS = parseDuration.Milliseconds()
	if secs := parseDuration.Seconds(); secs > 0 {
		report.General.Parsing.RatePerSecond = int64(float64(run.TotalLines) / secs)
	}
	if perc, ok := run.ErrorPercent(); ok {
		report.General.ErrorPercent = logparser.Round3(perc)
	}

	if run.TotalLines == 0 {
		report.AddWarning("empty_log", fmt.Sprintf("log file %s contains no lines", opts.LogFile), 1)
	} else if run.MalformedLines > 0 {
		report.AddWarning("malformed_lines",
			fmt.Sprintf("%d of %d lines did not match the log format", run.MalformedLines, run.TotalLines),
			run.MalformedLines)
	}
	if n := src.Oversized(); n > 0 {
		report.AddWarning("oversized_lines", fmt.Sprintf("%d lines were too long to read and were skipped", n), n)
	}
	if opts.MaxLines > 0 && run.TotalLines >= opts.MaxLines {
		report.AddWarning("line_cap", fmt.Sprintf("stopped reading after %d lines", opts.MaxLines), 1)
	}

	builder := Builder{
		Size:            opts.ReportSize,
		MaxErrorPercent: opts.MaxErrorPercent,
		LogFile:         opts.LogFile,
		Logger:          logger,
	}
	rows, err := builder.Build(agg)
	if err != nil {
		report.AddError("error_rate", err.Error(), run.MalformedLines)
		report.UpdateDuration(analysisStart)
		return report, err
	}
	report.Rows = rows

	logger.Info().
		Int("lines", run.TotalLines).
		Int("malformed", run.MalformedLines).
		Int("endpoints", agg.Len()).
		Int("rows", len(rows)).
		Dur("took", time.Since(analysisStart)).
		Msg("Analysis finished")

	report.UpdateDuration(analysisStart)
	return report, nil
}
