// Package turtle implements the movable coordinate frame that L-system
// commands drive: a position, three orthonormal axes and a brush width.
package turtle

import "github.com/taigrr/sprout/pkg/math3d"

// State is a full snapshot of the turtle. It is a plain value; copies are
// independent of each other.
type State struct {
	Position math3d.Vec3
	Forward  math3d.Vec3
	Left     math3d.Vec3
	Up       math3d.Vec3

	BrushWidth float64
}

// DefaultState returns the origin state: at (0,0,0), heading +Y, left +Z,
// up +X, brush width 1.
func DefaultState() State {
	return State{
		Position:   math3d.V3(0, 0, 0),
		Forward:    math3d.V3(0, 1, 0),
		Left:       math3d.V3(0, 0, 1),
		Up:         math3d.V3(1, 0, 0),
		BrushWidth: 1,
	}
}

// Frame is a turtle with a save/restore stack.
// The zero value is not usable; create frames with New.
type Frame struct {
	current State
	stack   []State
}

// New creates a frame in the default state with an empty stack.
func New() *Frame {
	return &Frame{current: DefaultState()}
}

// State returns a copy of the current state.
func (f *Frame) State() State { return f.current }

// Position returns the current position.
func (f *Frame) Position() math3d.Vec3 { return f.current.Position }

// Forward returns the heading vector.
func (f *Frame) Forward() math3d.Vec3 { return f.current.Forward }

// Left returns the left vector.
func (f *Frame) Left() math3d.Vec3 { return f.current.Left }

// Up returns the up vector.
func (f *Frame) Up() math3d.Vec3 { return f.current.Up }

// BrushWidth returns the current brush width.
func (f *Frame) BrushWidth() float64 { return f.current.BrushWidth }

// StackDepth returns the number of saved states.
func (f *Frame) StackDepth() int { return len(f.stack) }

// Reset returns the frame to the default state and drops all saved states.
func (f *Frame) Reset() {
	f.current = DefaultState()
	f.stack = f.stack[:0]
}

// Move translates the position by distance along the normalized heading.
// Negative distances move backward.
func (f *Frame) Move(distance float64) {
	f.current.Position = f.current.Position.AddScaled(f.current.Forward.Normalize(), distance)
}

// Rotate turns the frame by angle radians around a unit axis.
//
// Only forward and left are transformed. Up is rebuilt from them, then left
// is rebuilt from up and forward, so repeated small rotations cannot drift
// away from an orthonormal basis.
func (f *Frame) Rotate(axis math3d.Vec3, angle float64) {
	m := math3d.Rotate(axis, angle)

	forward := m.MulVec3Dir(f.current.Forward)
	left := m.MulVec3Dir(f.current.Left)

	up := forward.Cross(left)
	left = up.Cross(forward)

	f.current.Forward = forward.Normalize()
	f.current.Left = left.Normalize()
	f.current.Up = up.Normalize()
}

// SetBrushWidth replaces the brush width. Non-positive widths are ignored.
func (f *Frame) SetBrushWidth(width float64) {
	if width > 0 {
		f.current.BrushWidth = width
	}
}

// Push saves a copy of the current state.
func (f *Frame) Push() {
	f.stack = append(f.stack, f.current)
}

// Pop restores the most recently saved state and discards it.
// Popping an empty stack does nothing, so unbalanced ']' in a grammar is harmless.
func (f *Frame) Pop() {
	n := len(f.stack)
	if n == 0 {
		return
	}
	f.current = f.stack[n-1]
	f.stack = f.stack[:n-1]
}
