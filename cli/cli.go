package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ChristianF88/logstat/analysis"
	"github.com/ChristianF88/logstat/config"
	"github.com/ChristianF88/logstat/logparser"
	"github.com/ChristianF88/logstat/version"
	cli "github.com/urfave/cli/v2"
)

// Exit codes
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitErrorRate = 2
)

// parseDate attempts to parse the build date
func parseDate(d string) time.Time {
	t, err := time.Parse(time.RFC3339, d)
	if err != nil {
		return time.Now()
	}
	return t
}

var (
	// Configuration flags
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "Path to the TOML configuration file (default ./logstat.toml, optional)",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "logLevel",
		Usage: "Diagnostic log level: debug, info, warn or error",
	}

	// Analysis flags
	logfileFlag = &cli.StringFlag{
		Name:  "logfile",
		Usage: "Path to the access log, plain or .gz",
	}
	logFormatFlag = &cli.StringFlag{
		Name:  "logFormat",
		Usage: "Log format with nginx style placeholders (e.g., '$remote_addr [$time_local] \"$request\" $request_time')",
	}
	reportSizeFlag = &cli.IntFlag{
		Name:  "reportSize",
		Usage: "Maximum number of endpoints in the report",
	}
	maxErrorPercFlag = &cli.Float64Flag{
		Name:  "maxErrorPerc",
		Usage: "Skip the report when more than this percentage of lines cannot be parsed",
	}
	maxLinesFlag = &cli.IntFlag{
		Name:  "maxLines",
		Usage: "Stop reading after this many lines (0 reads everything)",
	}

	// Daily report flags
	logDirFlag = &cli.StringFlag{
		Name:  "logDir",
		Usage: "Directory searched for the latest log file",
	}
	reportDirFlag = &cli.StringFlag{
		Name:  "reportDir",
		Usage: "Directory the HTML report is written to",
	}

	// Output flags
	plotPathFlag = &cli.StringFlag{
		Name:  "plotPath",
		Usage: "Path where to save the latency chart (e.g., '/path/to/latency.html'). If not provided, no chart is generated.",
	}
	compactFlag = &cli.BoolFlag{
		Name:  "compact",
		Usage: "Output compact JSON (no pretty printing)",
		Value: false,
	}
	plainFlag = &cli.BoolFlag{
		Name:  "plain",
		Usage: "Output plain text format for easy readability",
		Value: false,
	}
	tuiFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Launch TUI (Terminal User Interface) mode",
		Value: false,
	}
)

func validatePlotPath(plotPath string) error {
	if plotPath != "" {
		plotDir := filepath.Dir(plotPath)
		if plotDir == "." {
			plotDir, _ = os.Getwd()
		}
		if _, err := os.Stat(plotDir); os.IsNotExist(err) {
			return fmt.Errorf("plot directory does not exist: %s", plotDir)
		}
	}
	return nil
}

func validateLogFileExists(logfilePath string) error {
	if _, err := os.Stat(logfilePath); os.IsNotExist(err) {
		return fmt.Errorf("logfile does not exist: %s", logfilePath)
	}
	return nil
}

func validateOutputFlags(c *cli.Context) error {
	set := 0
	for _, name := range []string{"compact", "plain", "tui"} {
		if c.Bool(name) {
			set++
		}
	}
	if set > 1 {
		return fmt.Errorf("compact, plain and tui are mutually exclusive")
	}
	return nil
}

// loadConfig reads the config file and lets explicitly set flags override it
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}

	m := &cfg.Main
	if c.IsSet("logFormat") {
		m.LogFormat = c.String("logFormat")
	}
	if c.IsSet("reportSize") {
		m.ReportSize = c.Int("reportSize")
	}
	if c.IsSet("maxErrorPerc") {
		m.MaxErrorPerc = c.Float64("maxErrorPerc")
	}
	if c.IsSet("maxLines") {
		m.MaxLines = c.Int("maxLines")
	}
	if c.IsSet("plotPath") {
		m.PlotPath = c.String("plotPath")
	}
	if c.IsSet("logLevel") {
		m.LogLevel = c.String("logLevel")
	}
	if c.IsSet("logDir") {
		m.LogDir = c.String("logDir")
	}
	if c.IsSet("reportDir") {
		m.ReportDir = c.String("reportDir")
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// exitCode maps a command error to the process exit status
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var gate *analysis.ErrorRateExceeded
	if errors.As(err, &gate) {
		return ExitErrorRate
	}
	return ExitFailure
}

func exit(err error) error {
	if err == nil {
		return nil
	}
	return cli.Exit(err.Error(), exitCode(err))
}

func handleReportCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return exit(fmt.Errorf("failed to load config: %w", err))
	}
	if err := validatePlotPath(cfg.Main.PlotPath); err != nil {
		return exit(err)
	}

	_, err = RunReport(cfg, logparser.NewCompiler())
	return exit(err)
}

func handleAnalyzeCommand(c *cli.Context) error {
	if !c.IsSet("logfile") {
		return exit(fmt.Errorf("logfile is required"))
	}
	if err := validateLogFileExists(c.String("logfile")); err != nil {
		return exit(err)
	}
	if err := validateOutputFlags(c); err != nil {
		return exit(err)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return exit(fmt.Errorf("failed to load config: %w", err))
	}
	if err := validatePlotPath(cfg.Main.PlotPath); err != nil {
		return exit(err)
	}

	outputConfig := OutputConfig{
		Compact: c.Bool("compact"),
		Plain:   c.Bool("plain"),
		TUI:     c.Bool("tui"),
	}
	return exit(RunAnalyze(cfg, c.String("logfile"), outputConfig, c.App.Writer))
}

var App = &cli.App{
	Name:     "logstat",
	Usage:    "Rank endpoints of nginx access logs by request time",
	Version:  version.Version,
	Compiled: parseDate(version.Date),
	Commands: []*cli.Command{
		{
			Name:  "report",
			Usage: "Build the HTML report for the latest log in log_dir",
			Flags: []cli.Flag{
				configFlag,
				logLevelFlag,
				logDirFlag,
				reportDirFlag,
				logFormatFlag,
				reportSizeFlag,
				maxErrorPercFlag,
				maxLinesFlag,
				plotPathFlag,
			},
			Action: handleReportCommand,
		},
		{
			Name:  "analyze",
			Usage: "Analyze a single log file and print the ranking",
			Flags: []cli.Flag{
				configFlag,
				logLevelFlag,
				logfileFlag,
				logFormatFlag,
				reportSizeFlag,
				maxErrorPercFlag,
				maxLinesFlag,
				plotPathFlag,
				compactFlag,
				plainFlag,
				tuiFlag,
			},
			Action: handleAnalyzeCommand,
		},
	},
}
