package ingestor

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// DefaultPrefix is the file name prefix of rotated nginx ui logs
const DefaultPrefix = "nginx-access-ui.log-"

const fileDateLayout = "20060102"

// LogFile is a rotated log file whose name carries its date
type LogFile struct {
	Path       string
	Name       string
	Date       time.Time
	Compressed bool
}

// ReportName returns the report file name for the log's date
func (lf LogFile) ReportName() string {
	return "report-" + lf.Date.Format("2006.01.02") + ".html"
}

// FindLatest returns the log in dir named <prefix>YYYYMMDD or <prefix>YYYYMMDD.gz
// with the most recent date. Names whose date is not a real calendar date are
// ignored. When a date exists both plain and compressed the plain file wins.
// found is false when no file matches.
func FindLatest(dir, prefix string) (latest LogFile, found bool, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return LogFile{}, false, fmt.Errorf("listing log directory: %w", err)
	}

	nameRe := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `(\d{8})(\.gz)?$`)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		m := nameRe.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}

		date, err := time.Parse(fileDateLayout, m[1])
		if err != nil {
			continue
		}

		if found && !date.After(latest.Date) {
			continue
		}

		latest = LogFile{
			Path:       filepath.Join(dir, entry.Name()),
			Name:       entry.Name(),
			Date:       date,
			Compressed: m[2] != "",
		}
		found = true
	}

	return latest, found, nil
}
