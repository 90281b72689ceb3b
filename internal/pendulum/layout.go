package pendulum

import "math"

// Anchor and arm length of the reference 1000x800 scene.
const (
	DefaultPivotX    = 500.0
	DefaultPivotY    = 280.0
	DefaultArmPixels = 185.0
)

// Point is a screen coordinate with y growing downwards.
type Point struct {
	X, Y float64
}

// Frame is everything a renderer needs for one picture. Rotations are in
// radians.
type Frame struct {
	Pivot     Point
	Bob1      Point
	Bob2      Point
	Rotation1 float64
	Rotation2 float64
}

// SecondPivotOffset is the displacement of the second link's pivot from its
// rest position (directly below the first pivot) when link one is at phi.
func SecondPivotOffset(phi, armPixels float64) (dx, dy float64) {
	return -armPixels * math.Sin(phi), -armPixels * (1 - math.Cos(phi))
}

// Layout places both links for drawing. A link at rest hangs straight down
// from its pivot and rotates with its angle.
func Layout(s State, pivot Point, armPixels float64) Frame {
	dx, dy := SecondPivotOffset(s.Phi, armPixels)
	bob1 := Point{X: pivot.X + dx, Y: pivot.Y + armPixels + dy}
	bob2 := Point{
		X: bob1.X - armPixels*math.Sin(s.Psi),
		Y: bob1.Y + armPixels*math.Cos(s.Psi),
	}
	return Frame{
		Pivot:     pivot,
		Bob1:      bob1,
		Bob2:      bob2,
		Rotation1: s.Phi,
		Rotation2: s.Psi,
	}
}
