package lsystem

import "github.com/taigrr/sprout/pkg/math3d"

// Branch is a rounded, possibly tapered cone from P1 (radius R1) to P2
// (radius R2).
type Branch struct {
	P1 math3d.Vec3
	R1 float64
	P2 math3d.Vec3
	R2 float64
}

// Length returns the distance between the branch endpoints.
func (b Branch) Length() float64 {
	return b.P1.Distance(b.P2)
}

// Leaf is a quad anchored at Position. It spans Size.Y along Direction and
// Size.X along Up.
type Leaf struct {
	Position  math3d.Vec3
	Direction math3d.Vec3
	Up        math3d.Vec3
	Size      math3d.Vec2 // X = width, Y = length
}

// Corners returns the four quad corners in winding order, starting at the
// anchor.
func (l Leaf) Corners() [4]math3d.Vec3 {
	along := l.Direction.Normalize().Scale(l.Size.Y)
	across := l.Up.Normalize().Scale(l.Size.X)
	return [4]math3d.Vec3{
		l.Position,
		l.Position.Add(along),
		l.Position.Add(along).Add(across),
		l.Position.Add(across),
	}
}

// Buffers holds the primitives emitted by a generation pass, in emission
// order. Entries are appended while generating and never modified after;
// renderers treat a filled Buffers as read-only.
type Buffers struct {
	Branches []Branch
	Leaves   []Leaf
}

// Len returns the total number of primitives.
func (b *Buffers) Len() int {
	return len(b.Branches) + len(b.Leaves)
}

// Reset empties both sequences, keeping their capacity, ready for the next
// generation pass.
func (b *Buffers) Reset() {
	b.Branches = b.Branches[:0]
	b.Leaves = b.Leaves[:0]
}

func (b *Buffers) addBranch(br Branch) {
	b.Branches = append(b.Branches, br)
}

func (b *Buffers) addLeaf(l Leaf) {
	b.Leaves = append(b.Leaves, l)
}
