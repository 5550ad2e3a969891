package report

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true).Padding(1, 0)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	lateStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Padding(0, 1)
	earlyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Padding(0, 1)
	onTimeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Padding(0, 1)
	staleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
)

// TableRenderer prints a report as a terminal table
type TableRenderer struct {
	Location *time.Location
}

// Render writes rep to w
func (r TableRenderer) Render(w io.Writer, rep *Report) error {
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}

	title := fmt.Sprintf("Delay report %s", rep.CapturedAt.In(loc).Format("02/01/2006 15:04"))
	if _, err := fmt.Fprintln(w, titleStyle.Render(title)); err != nil {
		return err
	}

	rows := make([][]string, 0, len(rep.Rows))
	for _, row := range rep.Rows {
		rows = append(rows, []string{row.Line, row.Destination, row.StopName, row.Lateness})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Line", "Destination", "Stop", "Delay").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col != 3 {
				return cellStyle
			}
			return latenessStyle(rep.Rows, row)
		})

	if _, err := fmt.Fprintln(w, t.String()); err != nil {
		return err
	}
	if rep.Stale {
		_, err := fmt.Fprintln(w, staleStyle.Render("No fresh data: showing the last saved report."))
		return err
	}
	return nil
}

func latenessStyle(rows []Row, row int) lipgloss.Style {
	i := row
	if table.HeaderRow == 0 {
		i = row - 1
	}
	if i < 0 || i >= len(rows) {
		return cellStyle
	}
	switch m := rows[i].DelayMinutes; {
	case m > 0:
		return lateStyle
	case m < 0:
		return earlyStyle
	default:
		return onTimeStyle
	}
}
