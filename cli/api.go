package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ChristianF88/logstat/analysis"
	"github.com/ChristianF88/logstat/config"
	"github.com/ChristianF88/logstat/ingestor"
	"github.com/ChristianF88/logstat/logging"
	"github.com/ChristianF88/logstat/logparser"
	"github.com/ChristianF88/logstat/output"
	"github.com/ChristianF88/logstat/tui"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// OutputConfig contains output formatting options
type OutputConfig struct {
	Compact bool
	Plain   bool
	TUI     bool
}

// ReportResult describes what a report run did
type ReportResult struct {
	LogFile    ingestor.LogFile
	ReportPath string
	Skipped    bool // nothing to do: no log found or report already present
	Report     *output.Report
}

// RunReport builds the HTML report for the newest log in log_dir. Diagnostics go to
// monitor_log_file. Running it twice on the same day does nothing the second time.
func RunReport(cfg *config.Config, compiler *logparser.Compiler) (res ReportResult, err error) {
	logger, closeLog, err := logging.New(cfg.Main.MonitorLogFile, cfg.Main.LogLevel)
	if err != nil {
		return ReportResult{}, err
	}
	defer closeLog()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected failure: %v", r)
			logger.Error().Interface("panic", r).Msg("Report run aborted")
		}
	}()

	res, err = runReport(cfg, compiler, logger)
	if err != nil {
		var gate *analysis.ErrorRateExceeded
		if !errors.As(err, &gate) {
			// the error-rate gate already logged itself
			logger.Error().Err(err).Msg("Report run failed")
		}
	}
	return res, err
}

func runReport(cfg *config.Config, compiler *logparser.Compiler, logger zerolog.Logger) (ReportResult, error) {
	m := cfg.Main

	latest, found, err := ingestor.FindLatest(m.LogDir, m.LogPrefix)
	if err != nil {
		return ReportResult{}, fmt.Errorf("searching log directory: %w", err)
	}
	if !found {
		logger.Info().Str("log_dir", m.LogDir).Str("prefix", m.LogPrefix).Msg("No log files found, nothing to do")
		return ReportResult{Skipped: true}, nil
	}

	res := ReportResult{
		LogFile:    latest,
		ReportPath: filepath.Join(m.ReportDir, latest.ReportName()),
	}

	if _, err := os.Stat(res.ReportPath); err == nil {
		logger.Info().Str("report", res.ReportPath).Msg("Report already exists, nothing to do")
		res.Skipped = true
		return res, nil
	}

	if err := os.MkdirAll(m.ReportDir, 0o755); err != nil {
		return res, fmt.Errorf("creating report directory: %w", err)
	}

	tmpl, err := output.LoadTemplate(m.ReportTemplate)
	if err != nil {
		return res, err
	}

	report, err := analysis.Analyze(compiler, analysis.Options{
		LogFile:         latest.Path,
		LogDate:         latest.Date.Format("2006.01.02"),
		LogFormat:       m.LogFormat,
		ReportSize:      m.ReportSize,
		MaxErrorPercent: m.MaxErrorPerc,
		MaxLines:        m.MaxLines,
	}, logger)
	res.Report = report
	if err != nil {
		return res, err
	}

	if err := writeArtifacts(report, res.ReportPath, tmpl, m.PlotPath); err != nil {
		return res, err
	}

	logger.Info().Str("report", res.ReportPath).Int("rows", len(report.Rows)).Msg("Report saved")
	if m.PlotPath != "" {
		logger.Info().Str("chart", m.PlotPath).Msg("Chart saved")
	}
	return res, nil
}

// writeArtifacts renders the HTML report and the chart concurrently.
// Empty paths are skipped.
func writeArtifacts(report *output.Report, htmlPath, tmpl, plotPath string) error {
	var g errgroup.Group

	if htmlPath != "" {
		g.Go(func() error {
			return output.WriteHTML(htmlPath, tmpl, report)
		})
	}
	if plotPath != "" {
		g.Go(func() error {
			return output.PlotLatency(report, plotPath, output.DefaultChartSize)
		})
	}

	return g.Wait()
}

// RunAnalyze analyzes one file and prints the result to w as JSON, plain text or
// in the TUI. A report stopped by the error-rate gate is still printed.
func RunAnalyze(cfg *config.Config, logFile string, outputConfig OutputConfig, w io.Writer) error {
	logger, closeLog, err := logging.New(cfg.Main.MonitorLogFile, cfg.Main.LogLevel)
	if err != nil {
		return err
	}
	defer closeLog()

	report, err := analysis.Analyze(logparser.NewCompiler(), analysis.Options{
		LogFile:         logFile,
		LogFormat:       cfg.Main.LogFormat,
		ReportSize:      cfg.Main.ReportSize,
		MaxErrorPercent: cfg.Main.MaxErrorPerc,
		MaxLines:        cfg.Main.MaxLines,
	}, logger)

	var gate *analysis.ErrorRateExceeded
	if err != nil && !errors.As(err, &gate) {
		return err
	}

	if err == nil && cfg.Main.PlotPath != "" {
		if plotErr := writeArtifacts(report, "", "", cfg.Main.PlotPath); plotErr != nil {
			report.AddError("plot", plotErr.Error(), 1)
		}
	}

	if outputConfig.TUI && err == nil {
		return tui.NewApp(report).Run()
	}

	if outErr := outputResult(report, outputConfig, w); outErr != nil {
		return outErr
	}
	return err
}

func outputResult(report *output.Report, outputConfig OutputConfig, w io.Writer) error {
	if outputConfig.Plain {
		output.WritePlain(w, report)
		return nil
	}

	var data []byte
	var err error
	if outputConfig.Compact {
		data, err = report.ToCompactJSON()
	} else {
		data, err = report.ToJSON()
	}
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	_, err = fmt.Fprintln(w, string(data))
	return err
}
