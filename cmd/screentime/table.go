package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/warp/screentime/screentime"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// renderTable writes rows under headers with sharp box borders.
func renderTable(w io.Writer, headers []string, rows [][]string) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func adjustmentTypeRows(types []screentime.AdjustmentType) [][]string {
	rows := make([][]string, len(types))
	for i, t := range types {
		rows[i] = []string{
			strconv.FormatInt(t.ID, 10),
			t.Description,
			t.Adjustment.Format(),
		}
	}
	return rows
}

func adjustmentRows(adjs []screentime.Adjustment, typeNames map[int64]string) [][]string {
	rows := make([][]string, len(adjs))
	for i, a := range adjs {
		description := ""
		if a.Description != nil {
			description = *a.Description
		}
		rows[i] = []string{
			strconv.FormatInt(a.ID, 10),
			typeNames[a.TypeID],
			description,
			a.Minutes.Format(),
			formatLocal(a.CreatedAt),
		}
	}
	return rows
}

func timeEntryRows(entries []screentime.TimeEntry) [][]string {
	rows := make([][]string, len(entries))
	for i, te := range entries {
		rows[i] = []string{
			strconv.FormatInt(te.ID, 10),
			te.Time.Format(),
			formatLocal(te.CreatedAt),
		}
	}
	return rows
}

func formatLocal(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}
