package ingestor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

const maxLineBuffer = 2 * 1024 * 1024

// OversizedLine replaces a line longer than the read buffer. It is not valid
// UTF-8, so no log format accepts it and the line counts as malformed.
const OversizedLine = "\xff oversized line"

// LineSource streams the lines of one log file. Files ending in ".gz" are
// decompressed on the fly. It is single-pass: open the file again to restart.
type LineSource struct {
	path      string
	file      *os.File
	gz        *gzip.Reader
	reader    *bufio.Reader
	line      string
	count     int
	oversized int
	err       error
}

// Open opens path for line reading. A missing or unreadable file is returned
// as an error wrapping the os error, so errors.Is(err, fs.ErrNotExist) works.
func Open(path string) (*LineSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	src := &LineSource{path: path, file: f}

	var r io.Reader = f
	if IsCompressed(path) {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("reading gzip header of %s: %w", path, err)
		}
		src.gz = gz
		r = gz
	}

	src.reader = bufio.NewReaderSize(r, maxLineBuffer)

	return src, nil
}

// IsCompressed reports whether path names a gzip file
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, ".gz")
}

// Scan advances to the next line. It returns false at the end of the file or
// on a read error; check Err afterwards.
func (s *LineSource) Scan() bool {
	if s.err != nil {
		return false
	}

	chunk, err := s.reader.ReadSlice('\n')
	oversized := false
	for errors.Is(err, bufio.ErrBufferFull) {
		// drop the rest of the line, the next Scan starts after its newline
		oversized = true
		_, err = s.reader.ReadSlice('\n')
	}
	if err != nil && err != io.EOF {
		s.err = err
		return false
	}
	if err == io.EOF && len(chunk) == 0 && !oversized {
		return false
	}

	if oversized {
		s.line = OversizedLine
		s.oversized++
	} else {
		line := strings.TrimSuffix(string(chunk), "\n")
		s.line = strings.TrimSuffix(line, "\r")
	}
	s.count++
	return true
}

// Text returns the current line without its line terminator
func (s *LineSource) Text() string {
	return s.line
}

// Lines returns how many lines have been produced so far
func (s *LineSource) Lines() int {
	return s.count
}

// Oversized returns how many lines were replaced by OversizedLine
func (s *LineSource) Oversized() int {
	return s.oversized
}

// Path returns the file the source reads from
func (s *LineSource) Path() string {
	return s.path
}

// Err returns the first read or decompression error, if any
func (s *LineSource) Err() error {
	if s.err != nil {
		return fmt.Errorf("reading %s after line %d: %w", s.path, s.count, s.err)
	}
	return nil
}

// Close releases the file and the decompressor
func (s *LineSource) Close() error {
	if s.gz != nil {
		s.gz.Close()
	}
	return s.file.Close()
}

// ReadLines reads every line of path. Meant for small files such as templates
// and tests; the analysis pipeline streams through LineSource instead.
func ReadLines(path string) ([]string, error) {
	src, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var lines []string
	for src.Scan() {
		lines = append(lines, src.Text())
	}
	if err := src.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
