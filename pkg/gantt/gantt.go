// Package gantt draws tasks as a text Gantt chart running from each task's
// start date to its due date.
package gantt

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/harrisonrobin/priority-manager/pkg/model"
	"github.com/harrisonrobin/priority-manager/pkg/view"
)

const (
	labelWidth   = 24
	defaultWidth = 60
)

// Bar is one chart row.
type Bar struct {
	Name     string
	Status   string
	Start    time.Time
	Due      time.Time
	Priority int
}

var statusColors = []lipgloss.Color{"12", "11", "10", "13", "14", "9"}

// Build turns tasks into bars, highest priority first. Tasks without a
// due date, with an unparseable start or due date, or due before they
// start are left out.
func Build(tasks []model.Task) []Bar {
	var bars []Bar
	for _, t := range tasks {
		if !t.HasDueDate() {
			continue
		}
		start, err := time.Parse(time.DateOnly, t.StartDate)
		if err != nil {
			continue
		}
		due, err := time.Parse(time.DateOnly, t.DueDate)
		if err != nil || due.Before(start) {
			continue
		}
		bars = append(bars, Bar{Name: t.Name, Status: t.Status, Start: start, Due: due, Priority: t.PriorityScore})
	}
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Priority > bars[j].Priority
	})
	return bars
}

// Render writes the chart. width is the number of columns of the bar
// area; today is marked with "|" when it falls inside the chart.
func Render(w io.Writer, bars []Bar, width int, today time.Time) error {
	if len(bars) == 0 {
		return nil
	}
	if width <= 0 {
		width = defaultWidth
	}

	first, last := bars[0].Start, bars[0].Due
	for _, b := range bars[1:] {
		if b.Start.Before(first) {
			first = b.Start
		}
		if b.Due.After(last) {
			last = b.Due
		}
	}
	days := int(last.Sub(first).Hours()/24) + 1
	col := func(t time.Time) int {
		return int(t.Sub(first).Hours() / 24 * float64(width) / float64(days))
	}

	styles := map[string]lipgloss.Style{}
	var order []string
	for _, b := range bars {
		if _, ok := styles[b.Status]; !ok {
			styles[b.Status] = lipgloss.NewStyle().Foreground(statusColors[len(order)%len(statusColors)])
			order = append(order, b.Status)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-*s %s%s\n", labelWidth, "", first.Format(time.DateOnly),
		leftPad(last.Format(time.DateOnly), width-len(time.DateOnly)))

	todayDay := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	marker := -1
	if !todayDay.Before(first) && !todayDay.After(last) {
		marker = min(col(todayDay), width-1)
	}

	for _, b := range bars {
		from := col(b.Start)
		to := max(col(b.Due.AddDate(0, 0, 1)), from+1)
		to = min(to, width)

		cells := []rune(strings.Repeat(" ", width))
		for i := from; i < to; i++ {
			cells[i] = '█'
		}
		if marker >= 0 && cells[marker] == ' ' {
			cells[marker] = '|'
		}
		bar := string(cells[:from]) + styles[b.Status].Render(string(cells[from:to])) + string(cells[to:])
		fmt.Fprintf(&sb, "%-*s %s\n", labelWidth, view.Truncate(b.Name, labelWidth), bar)
	}

	sb.WriteString("\n")
	for _, status := range order {
		fmt.Fprintf(&sb, "%s %s\n", styles[status].Render("█"), status)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func leftPad(s string, width int) string {
	if len(s) >= width {
		return " " + s
	}
	return strings.Repeat(" ", width-len(s)) + s
}
