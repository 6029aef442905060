// Package lsystem turns L-system grammars into plant geometry.
//
// A grammar is an axiom, a table of single-symbol rewrite rules and a Config.
// The Interpreter rewrites the axiom up to Config.MaxDepth and drives a
// turtle.Frame with the terminal symbols, emitting branches and leaves into
// a Buffers.
package lsystem

import "math"

// Config holds the scalars that shape a plant. Angles are in radians.
// A Config is never modified by the interpreter.
type Config struct {
	Radius          float64 // branch radius at brush width 1
	Distance        float64 // step length at brush width 1
	LeafSize        float64 // leaf width at brush width 1; length is twice this
	AngleWorldY     float64 // '+' and '-' turn about world up
	AngleTurtleLeft float64 // '&' and '^' turn about the turtle's left axis
	BrushDecay      float64 // '*' multiplies the brush width; also the branch taper
	MaxDepth        uint    // rewriting stops at this depth
}

// DefaultConfig returns a general purpose tree configuration.
func DefaultConfig() Config {
	return Config{
		Radius:          0.1,
		Distance:        1,
		LeafSize:        0.25,
		AngleWorldY:     Radians(30),
		AngleTurtleLeft: Radians(25),
		BrushDecay:      0.8,
		MaxDepth:        4,
	}
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Rules maps a symbol to its replacement. A symbol without a rule is a
// terminal and is executed as a turtle command.
type Rules map[rune]string
