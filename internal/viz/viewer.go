package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/motorsim/internal/sim"
)

const (
	graphWidth  = 72
	graphHeight = 14
	minWindow   = 16
)

type channel struct {
	name string
	unit string
	data []float64
}

// Viewer is a bubbletea model for browsing a finished run. It shows one
// channel at a time over a movable time window, or the current/speed
// phase plane.
type Viewer struct {
	title    string
	time     []float64
	channels []channel
	metrics  map[string]float64

	selected int
	start    int
	window   int
	phase    bool
	showHelp bool
}

func NewViewer(title string, traj *sim.Trajectory, metrics map[string]float64) *Viewer {
	chans := []channel{
		{name: "speed", unit: "rad/s", data: traj.Speed},
		{name: "current", unit: "A", data: traj.Current},
		{name: "voltage", unit: "V", data: traj.Voltage},
	}
	if traj.CurrentRef != nil {
		chans = append(chans, channel{name: "current_ref", unit: "A", data: traj.CurrentRef})
	}

	return &Viewer{
		title:    title,
		time:     traj.Time,
		channels: chans,
		metrics:  metrics,
		window:   traj.Len(),
	}
}

// RunViewer blocks until the user quits the viewer.
func RunViewer(v *Viewer) error {
	_, err := tea.NewProgram(v, tea.WithAltScreen()).Run()
	return err
}

func (v *Viewer) Init() tea.Cmd { return nil }

func (v *Viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return v, nil
	}

	switch key.String() {
	case "q", "ctrl+c", "esc":
		return v, tea.Quit
	case "tab":
		v.selected = (v.selected + 1) % len(v.channels)
	case "shift+tab":
		v.selected = (v.selected + len(v.channels) - 1) % len(v.channels)
	case "+", "=":
		v.zoom(0.5)
	case "-", "_":
		v.zoom(2)
	case "right", "l":
		v.pan(1)
	case "left", "h":
		v.pan(-1)
	case "home", "0":
		v.start = 0
		v.window = len(v.time)
	case "p":
		v.phase = !v.phase
	case "?":
		v.showHelp = !v.showHelp
	}
	return v, nil
}

// zoom scales the window around its center.
func (v *Viewer) zoom(factor float64) {
	n := len(v.time)
	center := v.start + v.window/2
	v.window = int(float64(v.window) * factor)
	v.window = max(min(v.window, n), min(minWindow, n))
	v.start = center - v.window/2
	v.clamp()
}

// pan moves the window by a quarter of its width in direction dir.
func (v *Viewer) pan(dir int) {
	v.start += dir * max(1, v.window/4)
	v.clamp()
}

func (v *Viewer) clamp() {
	n := len(v.time)
	if v.start+v.window > n {
		v.start = n - v.window
	}
	if v.start < 0 {
		v.start = 0
	}
}

// Window returns the sample range currently displayed.
func (v *Viewer) Window() (start, end int) { return v.start, v.start + v.window }

// Channel returns the name of the displayed channel.
func (v *Viewer) Channel() string { return v.channels[v.selected].name }

func (v *Viewer) View() string {
	var s strings.Builder
	s.WriteString(HeaderStyle.Render(v.title) + "\n\n")

	if len(v.time) == 0 {
		s.WriteString("empty trajectory\n")
		return s.String()
	}

	start, end := v.Window()
	if v.phase {
		c := NewCanvas(graphWidth/2, graphHeight)
		c.Trace(v.channels[1].data[start:end], v.channels[0].data[start:end])
		s.WriteString(GraphStyle.Render(c.String()) + "\n")
		s.WriteString(HelpStyle.Render("phase plane: current (x) vs speed (y)") + "\n")
	} else {
		ch := v.channels[v.selected]
		caption := fmt.Sprintf("%s [%s]  t = %.4g .. %.4g s", ch.name, ch.unit, v.time[start], v.time[end-1])
		s.WriteString(GraphStyle.Render(Graph(ch.data[start:end], graphWidth, graphHeight, caption)) + "\n")
	}

	tabs := make([]string, len(v.channels))
	for i, ch := range v.channels {
		if i == v.selected {
			tabs[i] = ActiveStyle.Render("[" + ch.name + "]")
		} else {
			tabs[i] = LabelStyle.UnsetWidth().Render(" " + ch.name + " ")
		}
	}
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n\n")

	if len(v.metrics) > 0 {
		s.WriteString(PanelStyle.Render(strings.TrimSuffix(MetricsTable(v.metrics), "\n")) + "\n")
	}

	if v.showHelp {
		s.WriteString(HelpStyle.Render("tab/shift+tab: channel  +/-: zoom  ←/→: pan  0: reset  p: phase plane  q: quit") + "\n")
	} else {
		s.WriteString(HelpStyle.Render("?: help  q: quit") + "\n")
	}
	return s.String()
}
