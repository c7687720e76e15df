// Package table prints compact, unpadded tables for credential and app
// listings, shrinking long columns so rows never wrap.
package table

import (
	"strings"
	"unicode/utf8"

	"github.com/pterm/pterm"
)

const (
	separatorWidth = 3
	minColumn      = 8
	shortColumn    = 15
)

// Print renders data to stdout. The first row is styled as a header when
// hasHeader is set.
func Print(data pterm.TableData, hasHeader bool) {
	width := pterm.GetTerminalWidth()
	if width <= 0 {
		width = 80
	}
	pterm.Print(Render(data, hasHeader, width))
}

// Render lays data out for a terminal width columns wide.
func Render(data pterm.TableData, hasHeader bool, width int) string {
	if len(data) == 0 || len(data[0]) == 0 {
		return ""
	}
	data = fit(data, width)
	widths := naturalWidths(data)
	sep := pterm.ThemeDefault.TableSeparatorStyle.Sprint(pterm.DefaultTable.Separator)

	var b strings.Builder
	for i, row := range data {
		cells := make([]string, len(widths))
		for c := range widths {
			var cell string
			if c < len(row) {
				cell, _, _ = strings.Cut(row[c], "\n")
			}
			pad := max(widths[c]-visibleLen(cell), 0)
			if c == len(widths)-1 {
				pad = 0
			}
			cells[c] = cell + strings.Repeat(" ", pad)
		}
		line := strings.Join(cells, sep)
		if hasHeader && i == 0 {
			line = pterm.ThemeDefault.TableHeaderStyle.Sprint(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func visibleLen(s string) int {
	return utf8.RuneCountInString(pterm.RemoveColorFromString(s))
}

func naturalWidths(data pterm.TableData) []int {
	widths := make([]int, len(data[0]))
	for _, row := range data {
		for c := 0; c < len(widths) && c < len(row); c++ {
			first, _, _ := strings.Cut(row[c], "\n")
			widths[c] = max(widths[c], visibleLen(first))
		}
	}
	return widths
}

// fit truncates cells so the table fits in width. The first column and
// short columns keep their natural width; long columns share the rest.
func fit(data pterm.TableData, width int) pterm.TableData {
	natural := naturalWidths(data)
	available := width - (len(natural)-1)*separatorWidth - 2

	total := 0
	for _, w := range natural {
		total += w
	}
	if total <= available {
		return data
	}

	limits := append([]int(nil), natural...)
	var long []int
	longNeed := 0
	for i, w := range natural {
		if i == 0 || w <= shortColumn {
			available -= w
			continue
		}
		long = append(long, i)
		longNeed += w
	}
	if len(long) == 0 {
		return data
	}
	if longNeed > available {
		for _, i := range long {
			share := available * natural[i] / longNeed
			limits[i] = max(share, min(minColumn, natural[i]), 5)
		}
	}

	out := make(pterm.TableData, len(data))
	for r, row := range data {
		out[r] = make([]string, len(row))
		for c, cell := range row {
			if c < len(limits) {
				cell = truncate(cell, limits[c])
			}
			out[r][c] = cell
		}
	}
	return out
}

// truncate shortens cell to limit visible runes, ending in "..." when there
// is room. Color codes are dropped from truncated cells.
func truncate(cell string, limit int) string {
	plain := pterm.RemoveColorFromString(cell)
	runes := []rune(plain)
	if len(runes) <= limit {
		return cell
	}
	if limit <= 3 {
		return string(runes[:max(limit, 0)])
	}
	return string(runes[:limit-3]) + "..."
}
