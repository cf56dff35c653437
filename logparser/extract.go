package logparser

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ParsedLine is the result of matching one log line. Endpoint is empty and
// Duration is zero whenever OK is false.
type ParsedLine struct {
	Endpoint string
	Duration float64 // seconds, rounded to milliseconds
	OK       bool
}

// Round3 rounds to three decimal places, the unit every duration is summed in
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Extract applies the grammar to the whole line.
//
// A line only succeeds if it conforms to the template from start to end; a valid
// prefix followed by trailing garbage is a failure. The endpoint is the second
// whitespace separated token of the request field and may be empty if the request
// line is degenerate, which still counts as a successful match.
func Extract(g *Grammar, line string) ParsedLine {
	if !utf8.ValidString(line) {
		return ParsedLine{}
	}

	m := g.re.FindStringSubmatch(line)
	if m == nil {
		return ParsedLine{}
	}

	durationIdx := g.roles[RoleDuration]
	duration, err := strconv.ParseFloat(m[durationIdx], 64)
	if err != nil || duration < 0 {
		return ParsedLine{}
	}

	return ParsedLine{
		Endpoint: requestPath(m[g.roles[RoleEndpoint]]),
		Duration: Round3(duration),
		OK:       true,
	}
}

// requestPath returns PATH from "METHOD PATH PROTOCOL"
func requestPath(request string) string {
	parts := strings.Fields(request)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
