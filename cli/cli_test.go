package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ChristianF88/logstat/analysis"
	"github.com/ChristianF88/logstat/config"
	"github.com/ChristianF88/logstat/logparser"
	"github.com/ChristianF88/logstat/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cli "github.com/urfave/cli/v2"
)

type reportEnv struct {
	logDir    string
	reportDir string
	monitor   string
	cfg       *config.Config
}

func newReportEnv(t *testing.T) reportEnv {
	t.Helper()
	root := t.TempDir()
	env := reportEnv{
		logDir:    filepath.Join(root, "log"),
		reportDir: filepath.Join(root, "reports", "daily"),
		monitor:   filepath.Join(root, "monitor.log"),
	}
	require.NoError(t, os.MkdirAll(env.logDir, 0o755))

	env.cfg = config.Default()
	env.cfg.Main.LogDir = env.logDir
	env.cfg.Main.ReportDir = env.reportDir
	env.cfg.Main.MonitorLogFile = env.monitor
	env.cfg.Normalize()
	require.NoError(t, env.cfg.Validate())
	return env
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, exitCode(nil))
	assert.Equal(t, ExitFailure, exitCode(errors.New("boom")))
	assert.Equal(t, ExitErrorRate, exitCode(&analysis.ErrorRateExceeded{}))
	assert.Equal(t, ExitErrorRate, exitCode(fmt.Errorf("wrapped: %w", &analysis.ErrorRateExceeded{})))
	assert.Equal(t, ExitFailure, exitCode(&config.Error{Reason: "bad"}))
}

func TestRunReport_EndToEnd(t *testing.T) {
	env := newReportEnv(t)
	testutil.WriteLogFile(t, env.logDir, "nginx-access-ui.log-20170629.gz", testutil.GenerateLines(20))
	testutil.WriteLogFile(t, env.logDir, "nginx-access-ui.log-20170630", testutil.GenerateLines(100))
	testutil.WriteLogFile(t, env.logDir, "nginx-access-ui.log-20171301", testutil.GenerateLines(5))

	res, err := RunReport(env.cfg, logparser.NewCompiler())
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, filepath.Join(env.reportDir, "report-2017.06.30.html"), res.ReportPath)
	require.NotNil(t, res.Report)
	assert.Len(t, res.Report.Rows, 91)
	assert.Equal(t, "2017.06.30", res.Report.General.LogDate)

	page := readFile(t, res.ReportPath)
	assert.NotContains(t, page, "$table_json")
	assert.Contains(t, page, `"url":"/index.html","count":10`)

	monitor := readFile(t, env.monitor)
	assert.Contains(t, monitor, "I Report saved")

	// second run on the same day is a no-op
	before, err := os.Stat(res.ReportPath)
	require.NoError(t, err)

	again, err := RunReport(env.cfg, logparser.NewCompiler())
	require.NoError(t, err)
	assert.True(t, again.Skipped)
	assert.Nil(t, again.Report)

	after, err := os.Stat(res.ReportPath)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
	assert.Contains(t, readFile(t, env.monitor), "Report already exists")
}

func TestRunReport_GzipLatest(t *testing.T) {
	env := newReportEnv(t)
	testutil.WriteLogFile(t, env.logDir, "nginx-access-ui.log-20170701.gz", testutil.GenerateLines(30))

	res, err := RunReport(env.cfg, logparser.NewCompiler())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(env.reportDir, "report-2017.07.01.html"), res.ReportPath)
	assert.True(t, res.LogFile.Compressed)
	assert.FileExists(t, res.ReportPath)
}

func TestRunReport_NoLogs(t *testing.T) {
	env := newReportEnv(t)
	testutil.WriteLogFile(t, env.logDir, "other.log-20170630", testutil.GenerateLines(5))

	res, err := RunReport(env.cfg, logparser.NewCompiler())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.NoDirExists(t, env.reportDir)
	assert.Contains(t, readFile(t, env.monitor), "No log files found")
}

func TestRunReport_MissingLogDir(t *testing.T) {
	env := newReportEnv(t)
	env.cfg.Main.LogDir = filepath.Join(t.TempDir(), "absent") + string(os.PathSeparator)

	_, err := RunReport(env.cfg, logparser.NewCompiler())
	require.Error(t, err)
	assert.Equal(t, ExitFailure, exitCode(err))
	assert.Contains(t, readFile(t, env.monitor), "E Report run failed")
}

func TestRunReport_ErrorRateGate(t *testing.T) {
	env := newReportEnv(t)
	lines := testutil.GenerateLines(10)
	for i := 0; i < 10; i++ {
		lines = append(lines, "definitely not nginx")
	}
	testutil.WriteLogFile(t, env.logDir, "nginx-access-ui.log-20170630", lines)

	res, err := RunReport(env.cfg, logparser.NewCompiler())
	require.Error(t, err)
	assert.Equal(t, ExitErrorRate, exitCode(err))
	assert.NoFileExists(t, res.ReportPath)

	monitor := readFile(t, env.monitor)
	assert.Contains(t, monitor, "E Could not parse 50.00% of lines")
	assert.NotContains(t, monitor, "Report run failed")
}

func TestRunReport_TemplateAndChart(t *testing.T) {
	env := newReportEnv(t)
	testutil.WriteLogFile(t, env.logDir, "nginx-access-ui.log-20170630", testutil.GenerateLines(50))

	tmpl := filepath.Join(t.TempDir(), "report.html")
	require.NoError(t, os.WriteFile(tmpl, []byte("<pre>${table_json}</pre>"), 0o600))
	env.cfg.Main.ReportTemplate = tmpl
	env.cfg.Main.PlotPath = testutil.TempFilePath(t, "latency.html")
	env.cfg.Main.ReportSize = 5

	res, err := RunReport(env.cfg, logparser.NewCompiler())
	require.NoError(t, err)

	page := readFile(t, res.ReportPath)
	require.True(t, strings.HasPrefix(page, "<pre>[") && strings.HasSuffix(page, "]</pre>"))

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSuffix(strings.TrimPrefix(page, "<pre>"), "</pre>")), &rows))
	assert.Len(t, rows, 5)

	assert.FileExists(t, env.cfg.Main.PlotPath)
}

func TestRunReport_InvalidFormat(t *testing.T) {
	env := newReportEnv(t)
	testutil.WriteLogFile(t, env.logDir, "nginx-access-ui.log-20170630", testutil.GenerateLines(5))
	env.cfg.Main.LogFormat = "$remote_addr $bogus"

	res, err := RunReport(env.cfg, logparser.NewCompiler())
	var formatErr *logparser.FormatError
	require.True(t, errors.As(err, &formatErr))
	assert.Equal(t, ExitFailure, exitCode(err))
	assert.NoFileExists(t, res.ReportPath)
}

// runApp runs the CLI in-process and returns stdout and the exit code
func runApp(t *testing.T, args ...string) (string, int) {
	t.Helper()

	oldDefault := config.DefaultPath
	config.DefaultPath = filepath.Join(t.TempDir(), "logstat.toml")
	oldExiter, oldErrWriter, oldWriter := cli.OsExiter, cli.ErrWriter, App.Writer
	t.Cleanup(func() {
		config.DefaultPath = oldDefault
		cli.OsExiter, cli.ErrWriter, App.Writer = oldExiter, oldErrWriter, oldWriter
	})

	code := ExitOK
	cli.OsExiter = func(c int) { code = c }
	cli.ErrWriter = io.Discard

	var stdout bytes.Buffer
	App.Writer = &stdout

	if err := App.Run(append([]string{"logstat"}, args...)); err != nil && code == ExitOK {
		code = ExitFailure
	}
	return stdout.String(), code
}

func TestApp_AnalyzeJSON(t *testing.T) {
	logFile := testutil.GenerateTestLogFile(t, 100)

	out, code := runApp(t, "analyze", "--logfile", logFile, "--reportSize", "3", "--compact", "--logLevel", "error")
	require.Equal(t, ExitOK, code)

	var decoded struct {
		General struct {
			TotalLines int `json:"total_lines"`
		} `json:"general"`
		Rows []map[string]any `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 100, decoded.General.TotalLines)
	assert.Len(t, decoded.Rows, 3)
}

func TestApp_AnalyzePlain(t *testing.T) {
	logFile := testutil.GenerateTestLogFile(t, 40)

	out, code := runApp(t, "analyze", "--logfile", logFile, "--plain", "--logLevel", "error")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, out, "count_perc")
	assert.Contains(t, out, "/index.html")
}

func TestApp_AnalyzeGateExitCode(t *testing.T) {
	lines := append(testutil.GenerateLines(5), "junk", "junk", "junk")
	logFile := testutil.WriteLogFile(t, t.TempDir(), "access.log", lines)

	out, code := runApp(t, "analyze", "--logfile", logFile, "--maxErrorPerc", "10", "--logLevel", "error")
	assert.Equal(t, ExitErrorRate, code)
	assert.Contains(t, out, `"error_rate"`)
}

func TestApp_AnalyzeFlagErrors(t *testing.T) {
	logFile := testutil.GenerateTestLogFile(t, 5)

	_, code := runApp(t, "analyze")
	assert.Equal(t, ExitFailure, code)

	_, code = runApp(t, "analyze", "--logfile", testutil.TempFilePath(t, "missing.log"))
	assert.Equal(t, ExitFailure, code)

	_, code = runApp(t, "analyze", "--logfile", logFile, "--plain", "--compact")
	assert.Equal(t, ExitFailure, code)

	_, code = runApp(t, "analyze", "--logfile", logFile, "--reportSize", "0")
	assert.Equal(t, ExitFailure, code)

	_, code = runApp(t, "analyze", "--logfile", logFile, "--plotPath", filepath.Join(t.TempDir(), "no", "dir", "plot.html"))
	assert.Equal(t, ExitFailure, code)
}

func TestApp_ReportWithConfig(t *testing.T) {
	env := newReportEnv(t)
	testutil.WriteLogFile(t, env.logDir, "nginx-access-ui.log-20170630", testutil.GenerateLines(20))

	cfgPath := filepath.Join(t.TempDir(), "logstat.toml")
	content := fmt.Sprintf("[main]\nlog_dir = %q\nreport_dir = %q\nmonitor_log_file = %q\nreport_size = 2\n",
		env.logDir, env.reportDir, env.monitor)
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))

	_, code := runApp(t, "report", "--config", cfgPath)
	require.Equal(t, ExitOK, code)
	assert.FileExists(t, filepath.Join(env.reportDir, "report-2017.06.30.html"))

	// unknown key in config
	require.NoError(t, os.WriteFile(cfgPath, []byte("[main]\nreport_sise = 2\n"), 0o600))
	_, code = runApp(t, "report", "--config", cfgPath)
	assert.Equal(t, ExitFailure, code)

	// explicitly named config must exist
	_, code = runApp(t, "report", "--config", filepath.Join(t.TempDir(), "missing.toml"))
	assert.Equal(t, ExitFailure, code)
}

func TestValidatePlotPath(t *testing.T) {
	assert.NoError(t, validatePlotPath(""))
	assert.NoError(t, validatePlotPath(testutil.TempFilePath(t, "plot.html")))
	assert.Error(t, validatePlotPath(filepath.Join(t.TempDir(), "missing", "plot.html")))
}
