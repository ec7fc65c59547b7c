package cli

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

func formatTime(v time.Time) string {
	if v.IsZero() {
		return ""
	}
	return v.Format(time.RFC3339)
}

func formatTimeOrNil(v *time.Time) string {
	if v == nil {
		return ""
	}
	return formatTime(*v)
}

func newTable(headers []string) table {
	return table{rows: [][]string{headers}}
}

type table struct {
	rows [][]string
}

func (t *table) addRow(row []string) {
	t.rows = append(t.rows, row)
}

func (t *table) format() string {
	widths := make([]int, len(t.rows[0]))
	for _, row := range t.rows {
		for j, value := range row {
			if l := utf8.RuneCountInString(value); widths[j] < l {
				widths[j] = l
			}
		}
	}

	var sb strings.Builder
	for _, row := range t.rows {
		for j, value := range row {
			if j != 0 {
				sb.WriteString("   ")
			}
			sb.WriteString(fmt.Sprintf("%-*s", widths[j], value))
		}
		sb.WriteRune('\n')
	}

	return sb.String()
}
