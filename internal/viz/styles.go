package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/symode/internal/integrators"
)

var (
	Subtle = lipgloss.NewStyle().Foreground(ThemeDefault.Muted)

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(ThemeDefault.Primary)

	MetricLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("#888899"))
	MetricValue = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ccff")).Bold(true)

	KeyHint = lipgloss.NewStyle().
		Foreground(ThemeDefault.Muted).
		Italic(true)

	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Padding(0, 1)
)

// StatusBadge renders status green on success, yellow when the run hit its
// step budget or was canceled, red otherwise.
func StatusBadge(status integrators.Status) string {
	return statusBadge(ThemeDefault, status)
}

func statusBadge(th Theme, status integrators.Status) string {
	color := th.Error
	switch status {
	case integrators.StatusSuccess:
		color = th.Success
	case integrators.StatusMaxSteps, integrators.StatusCanceled:
		color = th.Warning
	}
	return lipgloss.NewStyle().Bold(true).Foreground(color).Render(string(status))
}

// Metric renders "label value" pairs for summaries.
func Metric(label string, value any) string {
	return MetricLabel.Render(label+":") + " " + MetricValue.Render(fmt.Sprint(value))
}

// Sparkline maps values onto block characters, sampling to fit width.
func Sparkline(values []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	step := len(values) / width
	if step < 1 {
		step = 1
	}

	var sb strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		idx := int((values[i*step] - lo) / rng * float64(len(chars)-1))
		idx = max(0, min(idx, len(chars)-1))
		sb.WriteRune(chars[idx])
	}
	return sb.String()
}

func Separator(width int) string {
	if width < 8 {
		return Subtle.Render(strings.Repeat("─", max(width, 0)))
	}
	mid := width / 2
	return Subtle.Render(strings.Repeat("─", mid-3) + " ◆ " + strings.Repeat("─", width-mid-3))
}
