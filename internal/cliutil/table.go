package cliutil

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// maxColumnWidth caps a single column so one long value does not push the
// rest of the row off screen.
const maxColumnWidth = 60

var tableHeaderStyle = lipgloss.NewStyle().Bold(true)

// Table is the tabular projection of a command's output.
type Table struct {
	Columns []string
	Rows    [][]string
}

func NewTable(columns ...string) *Table {
	return &Table{Columns: columns}
}

func (t *Table) AddRow(cols ...string) {
	t.Rows = append(t.Rows, cols)
}

func renderTable(t *Table) string {
	var b strings.Builder

	colWidths := calculateColumnWidths(t)

	// Header
	var headerParts []string
	for i, col := range t.Columns {
		headerParts = append(headerParts, padRight(col, colWidths[i]))
	}
	b.WriteString(tableHeaderStyle.Render(strings.Join(headerParts, "  ")))
	b.WriteString("\n")

	// Rows
	for _, row := range t.Rows {
		var parts []string
		for ci, col := range row {
			if ci < len(colWidths) {
				parts = append(parts, padRight(col, colWidths[ci]))
			}
		}
		b.WriteString(strings.Join(parts, "  "))
		b.WriteString("\n")
	}

	return b.String()
}

func calculateColumnWidths(t *Table) []int {
	widths := make([]int, len(t.Columns))

	// Start with header widths
	for i, col := range t.Columns {
		widths[i] = len(col)
	}

	// Expand based on data
	for _, row := range t.Rows {
		for i, col := range row {
			if i < len(widths) && len(col) > widths[i] {
				widths[i] = len(col)
			}
		}
	}

	// Cap each column to a reasonable max
	for i := range widths {
		if widths[i] > maxColumnWidth {
			widths[i] = maxColumnWidth
		}
	}

	return widths
}

func padRight(s string, w int) string {
	if len(s) > w {
		if w > 3 {
			return s[:w-3] + "..."
		}
		return s[:w]
	}
	return s + strings.Repeat(" ", w-len(s))
}
