package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ChristianF88/logstat/output"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Column is a sortable report column
type Column int

const (
	ColumnTimeSum Column = iota
	ColumnCount
	ColumnTimeAvg
	ColumnTimeMax
	ColumnTimeMed
	ColumnURL
)

var columnNames = map[Column]string{
	ColumnTimeSum: "time_sum",
	ColumnCount:   "count",
	ColumnTimeAvg: "time_avg",
	ColumnTimeMax: "time_max",
	ColumnTimeMed: "time_med",
	ColumnURL:     "url",
}

// sort key cycle for 's'
var sortCycle = []Column{ColumnTimeSum, ColumnCount, ColumnTimeAvg, ColumnTimeMax, ColumnTimeMed, ColumnURL}

func (c Column) String() string {
	return columnNames[c]
}

var headers = []string{"url", "count", "count_perc", "time_sum", "time_avg", "time_perc", "time_max", "time_med"}

// App shows a finished report as a scrollable table
type App struct {
	app       *tview.Application
	pages     *tview.Pages
	summary   *tview.TextView
	table     *tview.Table
	statusBar *tview.TextView

	report *output.Report
	rows   []output.Row // rows in display order

	sortBy     Column
	descending bool
	filter     string
}

// NewApp builds the UI for report. The report rows are not modified.
func NewApp(report *output.Report) *App {
	a := &App{
		app:        tview.NewApplication(),
		pages:      tview.NewPages(),
		report:     report,
		sortBy:     ColumnTimeSum,
		descending: true,
	}
	a.setupUI()
	a.refresh()
	return a
}

func (a *App) setupUI() {
	a.summary = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	a.summary.SetBorder(true).SetTitle(" Summary ").SetTitleAlign(tview.AlignLeft)
	a.summary.SetText(SummaryText(a.report))

	a.table = tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 1)
	a.table.SetBorder(true).SetTitle(" Endpoints ").SetTitleAlign(tview.AlignLeft)

	a.statusBar = tview.NewTextView().
		SetDynamicColors(true)
	a.statusBar.SetBorder(false)

	main := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.summary, 7, 0, false).
		AddItem(a.table, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	filterInput := tview.NewInputField().
		SetLabel("Filter url: ").
		SetFieldWidth(60)
	filterInput.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			a.filter = filterInput.GetText()
			a.refresh()
		}
		a.pages.HidePage("filter")
		a.app.SetFocus(a.table)
	})
	filterBox := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(filterInput, 1, 0, true)

	a.pages.AddPage("results", main, true, true)
	a.pages.AddPage("filter", filterBox, true, false)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if front, _ := a.pages.GetFrontPage(); front == "filter" {
			return event
		}
		return a.handleKey(event)
	})

	a.app.SetRoot(a.pages, true)
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() == tcell.KeyEscape {
		a.app.Stop()
		return nil
	}

	switch event.Rune() {
	case 'q', 'Q':
		a.app.Stop()
		return nil
	case 's', 'S':
		a.nextSort()
		a.refresh()
		return nil
	case 'r', 'R':
		a.descending = !a.descending
		a.refresh()
		return nil
	case '/':
		a.pages.ShowPage("filter")
		return nil
	case 'c', 'C':
		a.filter = ""
		a.refresh()
		return nil
	}
	return event
}

func (a *App) nextSort() {
	for i, c := range sortCycle {
		if c == a.sortBy {
			a.sortBy = sortCycle[(i+1)%len(sortCycle)]
			a.descending = a.sortBy != ColumnURL
			return
		}
	}
	a.sortBy = ColumnTimeSum
}

func (a *App) refresh() {
	a.rows = SortRows(FilterRows(a.report.Rows, a.filter), a.sortBy, a.descending)
	FillTable(a.table, a.rows)
	a.table.ScrollToBeginning()
	a.updateStatusBar()
}

func (a *App) updateStatusBar() {
	dir := "desc"
	if !a.descending {
		dir = "asc"
	}
	var status strings.Builder
	status.WriteString(fmt.Sprintf("[yellow]%d/%d rows[white] | sort: %s %s", len(a.rows), len(a.report.Rows), a.sortBy, dir))
	if a.filter != "" {
		status.WriteString(fmt.Sprintf(" | filter: %s", tview.Escape(a.filter)))
	}
	status.WriteString(" | 's' sort, 'r' reverse, '/' filter, 'c' clear, 'q' quit")
	a.statusBar.SetText(status.String())
}

// Run starts the event loop and blocks until the user quits
func (a *App) Run() error {
	return a.app.Run()
}

// SummaryText renders the report header shown above the table
func SummaryText(report *output.Report) string {
	g := report.General

	var text strings.Builder
	text.WriteString(fmt.Sprintf("[dim]Log file:[white] %s", tview.Escape(g.LogFile)))
	if g.LogDate != "" {
		text.WriteString(fmt.Sprintf("  [dim]Date:[white] %s", g.LogDate))
	}
	text.WriteString("\n")
	text.WriteString(fmt.Sprintf("[dim]Lines:[white] %s  [dim]Malformed:[white] %s (%.3f%%)  [dim]Endpoints:[white] %s\n",
		output.FormatNumber(g.TotalLines), output.FormatNumber(g.MalformedLines), g.ErrorPercent,
		output.FormatNumber(g.UniqueEndpoints)))
	text.WriteString(fmt.Sprintf("[dim]Parse rate:[white] %s lines/sec  [dim]Parsing time:[white] %dms\n",
		output.FormatNumber(int(g.Parsing.RatePerSecond)), g.Parsing.DurationMS))

	for _, w := range report.Warnings {
		text.WriteString(fmt.Sprintf("[yellow]warning:[white] %s\n", tview.Escape(w.Message)))
	}
	for _, e := range report.Errors {
		text.WriteString(fmt.Sprintf("[red]error:[white] %s\n", tview.Escape(e.Message)))
	}
	return text.String()
}

// FillTable replaces the table content with a header row and one row per entry
func FillTable(table *tview.Table, rows []output.Row) {
	table.Clear()

	for col, h := range headers {
		align := tview.AlignRight
		if col == 0 {
			align = tview.AlignLeft
		}
		table.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).
			SetAlign(align).
			SetSelectable(false))
	}

	for i, r := range rows {
		for col, value := range output.RowCells(r) {
			cell := tview.NewTableCell(tview.Escape(value)).SetAlign(tview.AlignRight)
			if col == 0 {
				cell.SetAlign(tview.AlignLeft).SetExpansion(1).SetMaxWidth(80)
			}
			table.SetCell(i+1, col, cell)
		}
	}
}

// FilterRows keeps rows whose url contains substr
func FilterRows(rows []output.Row, substr string) []output.Row {
	out := make([]output.Row, 0, len(rows))
	for _, r := range rows {
		if substr == "" || strings.Contains(r.URL, substr) {
			out = append(out, r)
		}
	}
	return out
}

// SortRows returns a sorted copy of rows. Equal keys keep their report order.
func SortRows(rows []output.Row, by Column, descending bool) []output.Row {
	out := make([]output.Row, len(rows))
	copy(out, rows)

	less := func(x, y output.Row) bool {
		switch by {
		case ColumnCount:
			return x.Count < y.Count
		case ColumnTimeAvg:
			return x.TimeAvg < y.TimeAvg
		case ColumnTimeMax:
			return x.TimeMax < y.TimeMax
		case ColumnTimeMed:
			return x.TimeMed < y.TimeMed
		case ColumnURL:
			return x.URL < y.URL
		default:
			return x.TimeSumExact < y.TimeSumExact
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if descending {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}
