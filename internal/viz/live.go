package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/dpend/internal/pendulum"
	"github.com/san-kum/dpend/internal/sim"
)

const (
	width           = 60
	height          = 24
	historyCapacity = 600
	trailCapacity   = 200

	dampingStep = 0.0005
	minDamping  = 0.99
)

type TickMsg time.Time

// Options configure a Model.
type Options struct {
	FPS   int
	Title string
	Theme string
}

// Model contains simulation state, visualization buffers, and UI context.
type Model struct {
	stepper  pendulum.Stepper
	damping0 float64
	initial  pendulum.State
	state    pendulum.State
	t        float64
	lastDt   float64
	steps    int
	lastTick time.Time

	// source, when set, replaces local stepping.
	source *sim.Latest

	fps           int
	title         string
	theme         Theme
	canvas        *Canvas
	trail         []pendulum.Point
	energyHistory []float64
	running       bool
	showHelp      bool
}

// NewModel steps its own copy of stepper once per frame.
func NewModel(stepper *pendulum.Stepper, x0 pendulum.State, opts Options) Model {
	m := newModel(opts)
	m.stepper = *stepper
	m.damping0 = stepper.Damping
	m.initial = x0
	m.state = x0
	return m
}

// NewFollowModel draws the latest snapshot published by another loop.
// Pause, reset and damping keys have no effect on the source.
func NewFollowModel(source *sim.Latest, c pendulum.Constants, opts Options) Model {
	m := newModel(opts)
	m.source = source
	m.stepper.Constants = c
	return m
}

func newModel(opts Options) Model {
	if opts.FPS <= 0 {
		opts.FPS = 100
	}
	if opts.Title == "" {
		opts.Title = "double pendulum"
	}
	return Model{
		fps:           opts.FPS,
		title:         opts.Title,
		theme:         GetTheme(opts.Theme),
		canvas:        NewCanvas(width, height),
		trail:         make([]pendulum.Point, 0, trailCapacity),
		energyHistory: make([]float64, 0, historyCapacity),
		running:       true,
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			m.running = !m.running
			// Do not count the paused interval as one huge tick.
			m.lastTick = time.Time{}
		case "r":
			m.reset()
		case "+", "=":
			m.stepper.Damping = math.Max(minDamping, m.stepper.Damping-dampingStep)
		case "-", "_":
			m.stepper.Damping = math.Min(pendulum.NoDamping, m.stepper.Damping+dampingStep)
		case "t":
			m.theme = nextTheme(m.theme.Name)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		m.advance(time.Time(msg))
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) advance(now time.Time) {
	if m.source != nil {
		if snap, ok := m.source.Load(); ok {
			m.state, m.t, m.lastDt, m.steps = snap.State, snap.Time, snap.Dt, snap.Step
			m.record()
		}
		return
	}

	if !m.running {
		return
	}
	if m.lastTick.IsZero() {
		m.lastTick = now
		return
	}

	dt := now.Sub(m.lastTick).Seconds()
	m.lastTick = now

	m.state = m.stepper.Step(m.state, dt)
	m.t += dt
	m.lastDt = dt
	m.steps++
	m.record()
}

func (m *Model) record() {
	m.energyHistory = append(m.energyHistory, pendulum.Energy(m.state, m.stepper.Constants))
	if len(m.energyHistory) > historyCapacity {
		m.energyHistory = m.energyHistory[1:]
	}

	m.trail = append(m.trail, m.frame().Bob2)
	if len(m.trail) > trailCapacity {
		m.trail = m.trail[1:]
	}
}

// reset restores the initial state and damping.
func (m *Model) reset() {
	if m.source != nil {
		return
	}
	m.state = m.initial
	m.stepper.Damping = m.damping0
	m.t = 0
	m.lastDt = 0
	m.steps = 0
	m.lastTick = time.Time{}
	m.trail = m.trail[:0]
	m.energyHistory = m.energyHistory[:0]
}

func (m Model) State() pendulum.State { return m.state }
func (m Model) Time() float64          { return m.t }
func (m Model) Damping() float64       { return m.stepper.Damping }
func (m Model) Running() bool          { return m.running }

// frame lays the pendulum out on the canvas. The pivot sits in the upper
// middle of the canvas and both links together reach just short of the
// edge.
func (m Model) frame() pendulum.Frame {
	w, h := m.canvas.PixelSize()
	arm := 0.24 * float64(min(w, h))
	pivot := pendulum.Point{X: float64(w) / 2, Y: float64(h)/2 - arm/2}
	return pendulum.Layout(m.state, pivot, arm)
}

func (m Model) draw() string {
	m.canvas.Clear()
	for _, p := range m.trail {
		m.canvas.Set(round(p.X), round(p.Y))
	}
	trail := m.canvas.String()

	m.canvas.Clear()
	f := m.frame()
	m.canvas.Disc(round(f.Pivot.X), round(f.Pivot.Y), 1)
	m.canvas.DrawLine(round(f.Pivot.X), round(f.Pivot.Y), round(f.Bob1.X), round(f.Bob1.Y))
	m.canvas.DrawLine(round(f.Bob1.X), round(f.Bob1.Y), round(f.Bob2.X), round(f.Bob2.Y))
	m.canvas.Disc(round(f.Bob1.X), round(f.Bob1.Y), 2)
	m.canvas.Disc(round(f.Bob2.X), round(f.Bob2.Y), 2)

	return overlay(m.canvas.String(), trail,
		lipgloss.NewStyle().Foreground(m.theme.Links),
		lipgloss.NewStyle().Foreground(m.theme.Trail))
}

// overlay merges two braille renderings of the same size cell by cell,
// coloring cells that contain links differently from trail-only cells.
func overlay(links, trail string, linkStyle, trailStyle lipgloss.Style) string {
	lr := strings.Split(links, "\n")
	tr := strings.Split(trail, "\n")

	var b strings.Builder
	for i := range lr {
		lc := []rune(lr[i])
		var tc []rune
		if i < len(tr) {
			tc = []rune(tr[i])
		}
		for j, r := range lc {
			switch {
			case r != brailleBlank:
				b.WriteString(linkStyle.Render(string(r)))
			case j < len(tc) && tc[j] != brailleBlank:
				b.WriteString(trailStyle.Render(string(tc[j])))
			default:
				b.WriteRune(r)
			}
		}
		if i < len(lr)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// View renders the TUI interface.
func (m Model) View() string {
	canvasView := canvasStyle.Render(m.draw())

	var s strings.Builder
	s.WriteString(headerStyle(m.theme).Render(strings.ToUpper(m.title)) + "\n")

	status := "RUNNING"
	switch {
	case m.source != nil:
		status = "FOLLOWING"
	case !m.running:
		status = lipgloss.NewStyle().Foreground(m.theme.Warning).Render("PAUSED")
	}
	s.WriteString(status + "\n\n")

	if len(m.energyHistory) > 1 {
		chart := asciigraph.Plot(m.energyHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Energy"))
		s.WriteString(graphStyle.Render(chart) + "\n")
		s.WriteString(SparklineChart(m.energyHistory, 30) + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", m.t))
	row("Steps", fmt.Sprintf("%d", m.steps))
	row("dt", fmt.Sprintf("%.4fs", m.lastDt))
	row("φ", fmt.Sprintf("%8.2f°", Degrees(m.state.Phi)))
	row("ψ", fmt.Sprintf("%8.2f°", Degrees(m.state.Psi)))
	row("φ'", fmt.Sprintf("%8.3f rad/s", m.state.PhiDot))
	row("ψ'", fmt.Sprintf("%8.3f rad/s", m.state.PsiDot))
	if m.source == nil {
		row("Damping", lipgloss.NewStyle().Foreground(m.theme.Accent).Render(fmt.Sprintf("%.4f", m.stepper.Damping)))
	}
	energy := 0.0
	if n := len(m.energyHistory); n > 0 {
		energy = m.energyHistory[n-1]
	}
	row("Energy", fmt.Sprintf("%.3f", energy))

	s.WriteString(helpStyle(m.theme).Render("─────────────────────\nSP:Pause R:Reset Q:Quit\n+/-:Damping T:Theme ?:Help"))
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))

	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume simulation  ║
║  R        - Reset simulation         ║
║  +        - More damping             ║
║  -        - Less damping             ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝
` + "\n" + mainView
	}
	return mainView
}

// Degrees converts a link angle for display. Angles are not wrapped.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

func round(v float64) int {
	return int(math.Round(v))
}

// Run starts the program on the terminal and blocks until the user quits.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
