package analysis

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ChristianF88/logstat/logparser"
	"github.com/ChristianF88/logstat/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultOptions(logFile string) Options {
	return Options{
		LogFile:         logFile,
		ReportSize:      1000,
		MaxErrorPercent: 20,
	}
}

func TestAnalyzeBasic(t *testing.T) {
	logFile := testutil.GenerateTestLogFile(t, 100)

	report, err := Analyze(logparser.NewCompiler(), defaultOptions(logFile), zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, "static", report.Metadata.AnalysisType)
	assert.Equal(t, logFile, report.General.LogFile)
	assert.Equal(t, 100, report.General.TotalLines)
	assert.Equal(t, 0, report.General.MalformedLines)
	assert.Equal(t, 91, report.General.UniqueEndpoints)
	assert.Equal(t, logparser.DefaultFormat, report.General.Parsing.Format)
	assert.Len(t, report.Rows, 91)
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)
}

func TestAnalyzeGzipMatchesPlain(t *testing.T) {
	dir := t.TempDir()
	lines := testutil.GenerateLines(200)
	plain := testutil.WriteLogFile(t, dir, "access.log", lines)
	compressed := testutil.WriteLogFile(t, dir, "access.log.gz", lines)

	compiler := logparser.NewCompiler()
	fromPlain, err := Analyze(compiler, defaultOptions(plain), zerolog.Nop())
	require.NoError(t, err)
	fromGzip, err := Analyze(compiler, defaultOptions(compressed), zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, fromPlain.Rows, fromGzip.Rows)
	assert.Equal(t, 1, compiler.Compiled(), "format should be compiled once")
}

func TestAnalyzeReportSize(t *testing.T) {
	opts := defaultOptions(testutil.GenerateTestLogFile(t, 100))
	opts.ReportSize = 3

	report, err := Analyze(logparser.NewCompiler(), opts, zerolog.Nop())
	require.NoError(t, err)
	assert.Len(t, report.Rows, 3)
	assert.Equal(t, 91, report.General.UniqueEndpoints)
}

func TestAnalyzeErrorRateGate(t *testing.T) {
	lines := testutil.GenerateLines(10)
	for i := 0; i < 5; i++ {
		lines = append(lines, "this is not an access log line")
	}
	logFile := testutil.WriteLogFile(t, t.TempDir(), "access.log", lines)

	report, err := Analyze(logparser.NewCompiler(), defaultOptions(logFile), zerolog.Nop())

	var gate *ErrorRateExceeded
	require.True(t, errors.As(err, &gate))
	assert.Equal(t, logFile, gate.LogFile)
	require.NotNil(t, report)
	assert.Empty(t, report.Rows)
	assert.Equal(t, 15, report.General.TotalLines)
	assert.Equal(t, 5, report.General.MalformedLines)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "error_rate", report.Errors[0].Type)
}

func TestAnalyzeMalformedUnderThreshold(t *testing.T) {
	lines := append(testutil.GenerateLines(99), "garbage")
	logFile := testutil.WriteLogFile(t, t.TempDir(), "access.log", lines)

	report, err := Analyze(logparser.NewCompiler(), defaultOptions(logFile), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 1, report.General.MalformedLines)
	assert.Equal(t, 1.0, report.General.ErrorPercent)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, "malformed_lines", report.Warnings[0].Type)
}

func TestAnalyzeOversizedLineIsMalformed(t *testing.T) {
	lines := testutil.GenerateLines(20)
	huge := strings.Repeat("x", 3*1024*1024)
	lines = append(lines[:10], append([]string{huge}, lines[10:]...)...)
	logFile := testutil.WriteLogFile(t, t.TempDir(), "access.log", lines)

	report, err := Analyze(logparser.NewCompiler(), defaultOptions(logFile), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 21, report.General.TotalLines)
	assert.Equal(t, 1, report.General.MalformedLines)
	assert.NotEmpty(t, report.Rows)

	types := make([]string, 0, len(report.Warnings))
	for _, w := range report.Warnings {
		types = append(types, w.Type)
	}
	assert.ElementsMatch(t, []string{"malformed_lines", "oversized_lines"}, types)
}

func TestAnalyzeLineCap(t *testing.T) {
	opts := defaultOptions(testutil.GenerateTestLogFile(t, 100))
	opts.MaxLines = 20

	report, err := Analyze(logparser.NewCompiler(), opts, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 20, report.General.TotalLines)
	assert.Equal(t, 20, report.General.Parsing.LineCap)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, "line_cap", report.Warnings[0].Type)
}

func TestAnalyzeEmptyFile(t *testing.T) {
	logFile := testutil.WriteLogFile(t, t.TempDir(), "empty.log", nil)

	report, err := Analyze(logparser.NewCompiler(), defaultOptions(logFile), zerolog.Nop())
	require.NoError(t, err)
	assert.Empty(t, report.Rows)
	assert.Equal(t, 0, report.General.TotalLines)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, "empty_log", report.Warnings[0].Type)
}

func TestAnalyzeInvalidFormat(t *testing.T) {
	opts := defaultOptions(testutil.GenerateTestLogFile(t, 10))
	opts.LogFormat = `$remote_addr "$request"`

	report, err := Analyze(logparser.NewCompiler(), opts, zerolog.Nop())

	var formatErr *logparser.FormatError
	require.True(t, errors.As(err, &formatErr))
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "log_format", report.Errors[0].Type)
}

func TestAnalyzeMissingFile(t *testing.T) {
	opts := defaultOptions(filepath.Join(t.TempDir(), "nope.log"))

	report, err := Analyze(logparser.NewCompiler(), opts, zerolog.Nop())
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "open_file", report.Errors[0].Type)
}

func TestAnalyzeCustomFormat(t *testing.T) {
	lines := []string{
		`GET /a HTTP/1.1 | 0.5`,
		`GET /b HTTP/1.1 | 1.5`,
		`GET /a HTTP/1.1 | 0.25`,
	}
	opts := defaultOptions(testutil.WriteLogFile(t, t.TempDir(), "custom.log", lines))
	opts.LogFormat = `$request | $request_time`

	report, err := Analyze(logparser.NewCompiler(), opts, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, "/b", report.Rows[0].URL)
	assert.Equal(t, "/a", report.Rows[1].URL)
	assert.Equal(t, 2, report.Rows[1].Count)
	assert.Equal(t, 0.75, report.Rows[1].TimeSum)
}
