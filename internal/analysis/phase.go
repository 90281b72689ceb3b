package analysis

import (
	"fmt"
	"strings"

	"github.com/san-kum/dpend/internal/pendulum"
)

// Axis selects one component of a pendulum state.
type Axis int

const (
	AxisPhi Axis = iota
	AxisPsi
	AxisPhiDot
	AxisPsiDot
)

var axisNames = map[string]Axis{
	"phi":     AxisPhi,
	"psi":     AxisPsi,
	"phi_dot": AxisPhiDot,
	"psi_dot": AxisPsiDot,
}

func ParseAxis(name string) (Axis, error) {
	a, ok := axisNames[name]
	if !ok {
		return 0, fmt.Errorf("unknown axis %q (want phi, psi, phi_dot or psi_dot)", name)
	}
	return a, nil
}

func (a Axis) String() string {
	for name, v := range axisNames {
		if v == a {
			return name
		}
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// Of returns the selected component of s.
func (a Axis) Of(s pendulum.State) float64 {
	switch a {
	case AxisPsi:
		return s.Psi
	case AxisPhiDot:
		return s.PhiDot
	case AxisPsiDot:
		return s.PsiDot
	default:
		return s.Phi
	}
}

type Point struct {
	X, Y float64
}

// PhasePortrait2D holds data for a 2D phase space plot
type PhasePortrait2D struct {
	XAxis, YAxis Axis
	Points       []Point
}

// PhasePortraitFromStates projects a recorded trajectory.
func PhasePortraitFromStates(states []pendulum.State, x, y Axis) *PhasePortrait2D {
	portrait := &PhasePortrait2D{
		XAxis:  x,
		YAxis:  y,
		Points: make([]Point, 0, len(states)),
	}
	for _, s := range states {
		portrait.Points = append(portrait.Points, Point{X: x.Of(s), Y: y.Of(s)})
	}
	return portrait
}

// PhasePortraitToASCII converts phase portrait to ASCII art
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := portrait.Points[0].X, portrait.Points[0].X
	minY, maxY := portrait.Points[0].Y, portrait.Points[0].Y

	for _, p := range portrait.Points {
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for _, p := range portrait.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))

		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	// Axes only where they cross the visible area.
	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}

// PoincareSection records points when a trajectory crosses a plane
type PoincareSection struct {
	Points []Point
}

// GeneratePoincareSection records (recordX, recordY) each time the cross
// component passes threshold going upward.
func GeneratePoincareSection(
	st *pendulum.Stepper,
	x0 pendulum.State,
	cross Axis,
	threshold float64,
	recordX, recordY Axis,
	dt, duration float64,
) *PoincareSection {
	section := &PoincareSection{}

	s := x0
	prevVal := cross.Of(s)
	steps := stepsFor(dt, duration)

	for i := 0; i < steps; i++ {
		s = st.Step(s, dt)
		currVal := cross.Of(s)

		if prevVal < threshold && currVal >= threshold {
			section.Points = append(section.Points, Point{X: recordX.Of(s), Y: recordY.Of(s)})
		}

		prevVal = currVal
	}

	return section
}

// PoincareSectionToASCII converts section data to ASCII plot
func PoincareSectionToASCII(section *PoincareSection, width, height int) string {
	if section == nil || len(section.Points) == 0 {
		return "No crossings detected"
	}

	return PhasePortraitToASCII(&PhasePortrait2D{Points: section.Points}, width, height)
}

func stepsFor(dt, duration float64) int {
	if dt <= 0 || duration <= 0 {
		return 0
	}
	return int(duration/dt + 0.5)
}
