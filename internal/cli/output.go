package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/yiblet/clipstash/internal/store"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	pinStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

const timeLayout = "2006-01-02 15:04:05"

// renderRecords renders records as a table: id, pin marker, time, source,
// preview.
func renderRecords(records []*store.Record) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		pin := ""
		if r.Pinned {
			pin = "*"
		}
		source := "-"
		if r.SourceApp != "" {
			source = store.AppName(r.SourceApp)
		}
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			pin,
			r.CreatedAt.Local().Format(timeLayout),
			source,
			r.Preview(60),
		})
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("ID", "", "TIME", "SOURCE", "PREVIEW").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle.Padding(0, 1)
			case col == 1:
				return pinStyle.Padding(0, 1)
			case col == 2 || col == 3:
				return dimStyle.Padding(0, 1)
			default:
				return cellStyle
			}
		})
	return t.String()
}

// renderKeyValues renders a sorted two-column table.
func renderKeyValues(values map[string]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, values[k]})
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		})
	return t.String()
}

// formatBytes renders a byte count with a binary unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
