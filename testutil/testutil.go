package testutil

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
)

// IndexEndpoint is the endpoint GenerateLines repeats on every tenth line
const IndexEndpoint = "/index.html"

var lineTime = time.Date(2017, 6, 29, 3, 50, 22, 0, time.FixedZone("", 3*3600))

// Line renders one access log line in the default nginx "ui_short" format
func Line(ip, method, endpoint string, duration float64) string {
	return fmt.Sprintf(`%s -  - [%s] "%s %s HTTP/1.1" 200 %d "-" "-" "-" "-" "-" %.3f`,
		ip, lineTime.Format("02/Jan/2006:15:04:05 -0700"), method, endpoint, 42+len(endpoint), duration)
}

// GenerateLines returns numLines well formed lines. Lines 0, 10, 20, ... request
// IndexEndpoint, every other line requests a unique /banner/<uuid> endpoint.
// Durations are in [0.100, 0.999].
func GenerateLines(numLines int) []string {
	rng := rand.New(rand.NewSource(int64(numLines)))

	lines := make([]string, 0, numLines)
	for i := 0; i < numLines; i++ {
		ip := fmt.Sprintf("%d.%d.%d.%d", 1+rng.Intn(255), rng.Intn(256), rng.Intn(256), 1+rng.Intn(254))

		endpoint := IndexEndpoint
		if i%10 != 0 {
			endpoint = "/banner/" + strings.ReplaceAll(uuid.NewString(), "-", "")
		}

		duration := float64(100+rng.Intn(900)) / 1000
		lines = append(lines, Line(ip, "GET", endpoint, duration))
	}
	return lines
}

// WriteLogFile writes lines into dir/name, gzip-compressed when name ends in ".gz".
// Returns the full path.
func WriteLogFile(t testing.TB, dir, name string, lines []string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create log file: %v", err)
	}
	defer f.Close()

	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}

	if !strings.HasSuffix(name, ".gz") {
		if _, err := f.WriteString(content); err != nil {
			t.Fatalf("Failed to write log file: %v", err)
		}
		return path
	}

	gz := gzip.NewWriter(f)
	if _, err := gz.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write gzip log file: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("Failed to flush gzip log file: %v", err)
	}
	return path
}

// GenerateTestLogFile creates a temporary log file with numLines generated lines.
// Returns the file path; the file lives in t.TempDir and is removed with it.
func GenerateTestLogFile(t testing.TB, numLines int) string {
	t.Helper()
	return WriteLogFile(t, t.TempDir(), "access.log", GenerateLines(numLines))
}

// TempFilePath returns a path inside t.TempDir that does not exist yet
func TempFilePath(t testing.TB, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}
