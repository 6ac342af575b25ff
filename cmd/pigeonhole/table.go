package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"pigeonhole/internal/runstore"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

func renderRunSummary(run *runstore.RunResult, colorize bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (%s)\n", run.RunID, run.MailboxID)
	fmt.Fprintf(&b, "  Status:     %s\n", colorizeStatus(run.Status, colorize))
	fmt.Fprintf(&b, "  Started:    %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if !run.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "  Finished:   %s (%s)\n",
			run.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			run.FinishedAt.Sub(run.StartedAt).Round(runDurationUnit(run)))
	}
	fmt.Fprintf(&b, "  Emails:     %d found, %d processed, %d skipped\n",
		run.EmailsFound, run.EmailsProcessed, run.EmailsSkipped)
	fmt.Fprintf(&b, "  Errors:     %d\n", run.Errors)
	if run.Quarantined > 0 {
		fmt.Fprintf(&b, "  Quarantined: %d\n", run.Quarantined)
	}
	if pending := reviewCount(run); pending > 0 {
		fmt.Fprintf(&b, "  Needs review: %d attachment(s); see `pigeonhole review list`", pending)
	}
	return strings.TrimRight(b.String(), "\n")
}

func runDurationUnit(run *runstore.RunResult) (unit time.Duration) {
	if run.FinishedAt.Sub(run.StartedAt) < time.Minute {
		return time.Millisecond
	}
	return time.Second
}

func reviewCount(run *runstore.RunResult) int {
	total := 0
	for _, detail := range run.Details {
		total += len(detail.NeedsReview)
	}
	return total
}

func colorizeStatus(status runstore.RunStatus, colorize bool) string {
	if !colorize {
		return string(status)
	}
	switch status {
	case runstore.StatusCompleted:
		return ansiGreen + string(status) + ansiReset
	case runstore.StatusCancelled:
		return ansiYellow + string(status) + ansiReset
	case runstore.StatusFailed:
		return ansiRed + string(status) + ansiReset
	default:
		return string(status)
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
