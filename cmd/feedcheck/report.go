package main

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"news-archiver/internal/infra/feed"
)

const maxURLWidth = 60

// renderTable lays the diagnostics out as a Markdown table padded to display width,
// so headlines and names in wide scripts stay aligned.
func renderTable(results []feed.Diagnostic) []string {
	rows := [][]string{{"Source", "Status", "HTTP", "Items", "Latest", "Time", "URL", "Detail"}}
	for _, d := range results {
		latest := "-"
		if d.Latest != nil {
			latest = d.Latest.Format("2006-01-02")
		}
		code := "-"
		if d.HTTPCode != 0 {
			code = fmt.Sprint(d.HTTPCode)
		}
		detail := d.Error
		if d.RedirectURL != "" {
			detail = "→ " + d.RedirectURL
		}
		rows = append(rows, []string{
			d.Source,
			d.Status,
			code,
			fmt.Sprint(d.Items),
			latest,
			fmt.Sprintf("%dms", d.ResponseTime),
			runewidth.Truncate(d.URL, maxURLWidth, "…"),
			runewidth.Truncate(detail, maxURLWidth, "…"),
		})
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell), 3)
		}
	}

	lines := make([]string, 0, len(rows)+2)
	for i, row := range rows {
		lines = append(lines, formatRow(row, widths))
		if i == 0 {
			sep := make([]string, len(widths))
			for j, w := range widths {
				sep[j] = strings.Repeat("-", w)
			}
			lines = append(lines, formatRow(sep, widths))
		}
	}

	healthy := 0
	for _, d := range results {
		if d.Healthy() {
			healthy++
		}
	}
	lines = append(lines, "", fmt.Sprintf("%d/%d feeds healthy", healthy, len(results)))
	return lines
}

func formatRow(cells []string, widths []int) string {
	var sb strings.Builder
	sb.WriteString("|")
	for i, cell := range cells {
		sb.WriteString(" ")
		sb.WriteString(runewidth.FillRight(cell, widths[i]))
		sb.WriteString(" |")
	}
	return sb.String()
}
