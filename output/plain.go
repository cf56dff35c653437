package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

var plainHeader = []string{"url", "count", "count_perc", "time_sum", "time_avg", "time_perc", "time_max", "time_med"}

// WritePlain prints a short summary followed by the rows as an ASCII table
func WritePlain(w io.Writer, report *Report) {
	g := report.General
	fmt.Fprintf(w, "Log file:   %s\n", g.LogFile)
	if g.LogDate != "" {
		fmt.Fprintf(w, "Log date:   %s\n", g.LogDate)
	}
	fmt.Fprintf(w, "Lines:      %s (%s malformed, %.3f%%)\n", FormatNumber(g.TotalLines), FormatNumber(g.MalformedLines), g.ErrorPercent)
	fmt.Fprintf(w, "Endpoints:  %s\n", FormatNumber(g.UniqueEndpoints))
	fmt.Fprintf(w, "Parse time: %d ms\n\n", g.Parsing.DurationMS)

	table := tablewriter.NewWriter(w)
	table.SetHeader(plainHeader)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorder(true)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
	})

	for _, r := range report.Rows {
		table.Append(RowCells(r))
	}
	table.Render()

	for _, warn := range report.Warnings {
		fmt.Fprintf(w, "warning: %s: %s\n", warn.Type, warn.Message)
	}
	for _, e := range report.Errors {
		fmt.Fprintf(w, "error: %s: %s\n", e.Type, e.Message)
	}
}

// RowCells formats a row the way it is shown in tables
func RowCells(r Row) []string {
	return []string{
		r.URL,
		strconv.Itoa(r.Count),
		formatReal(r.CountPerc),
		formatReal(r.TimeSum),
		formatReal(r.TimeAvg),
		formatReal(r.TimePerc),
		formatReal(r.TimeMax),
		formatReal(r.TimeMed),
	}
}

func formatReal(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// FormatNumber renders n with thousands separators, 1234567 -> "1,234,567"
func FormatNumber(n int) string {
	s := strconv.Itoa(n)
	sign := ""
	if n < 0 {
		sign, s = "-", s[1:]
	}
	if len(s) <= 3 {
		return sign + s
	}

	b := make([]byte, 0, len(s)+len(s)/3)
	head := len(s) % 3
	if head > 0 {
		b = append(b, s[:head]...)
	}
	for i := head; i < len(s); i += 3 {
		if len(b) > 0 {
			b = append(b, ',')
		}
		b = append(b, s[i:i+3]...)
	}
	return sign + string(b)
}
