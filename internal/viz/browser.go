package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/symode/internal/analysis"
	"github.com/san-kum/symode/internal/integrators"
)

const minWindow = 8

// Browser pages through a finished trajectory one component at a time.
type Browser struct {
	title  string
	res    *integrators.Result
	names  []string
	comp   int
	start  int
	window int
	phase  bool
	theme  int

	width, height int
}

func NewBrowser(title string, res *integrators.Result, names []string) Browser {
	b := Browser{
		title:  title,
		res:    res,
		names:  names,
		window: res.Len(),
		width:  80,
		height: 24,
	}
	return b
}

func (b Browser) Init() tea.Cmd { return nil }

func (b Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return b.handleKey(msg)
	case tea.WindowSizeMsg:
		b.width, b.height = msg.Width, msg.Height
	}
	return b, nil
}

func (b Browser) handleKey(msg tea.KeyMsg) (Browser, tea.Cmd) {
	dim := b.dim()
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return b, tea.Quit
	case "tab", "down", "j":
		if dim > 0 {
			b.comp = (b.comp + 1) % dim
		}
	case "shift+tab", "up", "k":
		if dim > 0 {
			b.comp = (b.comp - 1 + dim) % dim
		}
	case "right", "l":
		b.start += max(1, b.window/4)
	case "left", "h":
		b.start -= max(1, b.window/4)
	case "+", "=":
		b.window = max(minWindow, b.window/2)
	case "-", "_":
		b.window *= 2
	case "p":
		b.phase = !b.phase
	case "t":
		b.theme = (b.theme + 1) % len(Themes)
	case "home", "g":
		b.start = 0
		b.window = b.res.Len()
	}
	b.clamp()
	return b, nil
}

func (b *Browser) clamp() {
	n := b.res.Len()
	b.window = min(b.window, n)
	b.start = max(0, min(b.start, n-b.window))
}

func (b Browser) dim() int {
	if b.res.Len() == 0 {
		return 0
	}
	return len(b.res.States[0])
}

// Component is the index of the component on screen.
func (b Browser) Component() int { return b.comp }

// Window returns the half-open range of samples on screen.
func (b Browser) Window() (from, to int) { return b.start, b.start + b.window }

func (b Browser) name(i int) string {
	if i < len(b.names) {
		return b.names[i]
	}
	return fmt.Sprintf("x%d", i)
}

func (b Browser) View() string {
	th := Themes[b.theme]
	title := lipgloss.NewStyle().Bold(true).Foreground(th.Primary)
	hint := lipgloss.NewStyle().Foreground(th.Muted).Italic(true)

	var sb strings.Builder
	sb.WriteString(title.Render(b.title))
	sb.WriteString("  ")
	sb.WriteString(statusBadge(th, b.res.Status))
	sb.WriteString("\n")

	if b.res.Len() == 0 {
		sb.WriteString("no data\n")
		sb.WriteString(hint.Render("q quit"))
		return sb.String()
	}

	from, to := b.Window()
	plotW := max(20, b.width-12)
	plotH := max(5, b.height-8)

	if b.phase && b.dim() > 1 {
		sb.WriteString(b.phaseView(from, to, plotW, plotH))
	} else {
		data := finiteOnly(b.res.Component(b.comp)[from:to])
		if len(data) > 0 {
			sb.WriteString(asciigraph.Plot(data,
				asciigraph.Height(plotH),
				asciigraph.Width(plotW),
				asciigraph.Caption(fmt.Sprintf("%s  t = %.4g .. %.4g", b.name(b.comp), b.res.Times[from], b.res.Times[to-1])),
			))
		}
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("samples %d-%d of %d  %s  %s\n",
		from, to-1, b.res.Len(),
		Metric("accepted", b.res.Stats.Accepted),
		Metric("rejected", b.res.Stats.Rejected)))
	sb.WriteString(hint.Render("tab component  ←/→ pan  +/- zoom  p phase  t theme  q quit"))
	return sb.String()
}

func (b Browser) phaseView(from, to, w, h int) string {
	other := (b.comp + 1) % b.dim()
	window := &integrators.Result{
		Times:  b.res.Times[from:to],
		States: b.res.States[from:to],
	}
	p, err := analysis.NewPhasePortrait(window, b.comp, other)
	if err != nil {
		return err.Error()
	}
	return fmt.Sprintf("%s vs %s\n%s", b.name(other), b.name(b.comp), p.ASCII(w, h))
}

// Browse runs the browser until the user quits.
func Browse(title string, res *integrators.Result, names []string) error {
	_, err := tea.NewProgram(NewBrowser(title, res, names), tea.WithAltScreen()).Run()
	return err
}
