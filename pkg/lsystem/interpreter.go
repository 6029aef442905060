package lsystem

import (
	"strings"

	"github.com/taigrr/sprout/internal/logging"
	"github.com/taigrr/sprout/pkg/math3d"
	"github.com/taigrr/sprout/pkg/turtle"
)

// Interpreter executes a grammar against a turtle and writes the resulting
// primitives into caller-owned Buffers.
//
// An Interpreter is not safe for concurrent use. Separate interpreters with
// separate Buffers may run in parallel.
type Interpreter struct {
	frame *turtle.Frame
	cfg   Config
	rules Rules
	out   *Buffers
}

// NewInterpreter creates an interpreter that writes into out for its whole
// lifetime. The rules map is copied.
func NewInterpreter(cfg Config, rules Rules, out *Buffers) *Interpreter {
	own := make(Rules, len(rules))
	for k, v := range rules {
		own[k] = v
	}
	return &Interpreter{
		frame: turtle.New(),
		cfg:   cfg,
		rules: own,
		out:   out,
	}
}

// Config returns the interpreter configuration.
func (in *Interpreter) Config() Config { return in.cfg }

// Frame returns a snapshot of the turtle state.
func (in *Interpreter) Frame() turtle.State { return in.frame.State() }

// Run rewrites and executes sentence, treating it as being at the given
// derivation depth. Call with depth 0 for an axiom.
//
// Below MaxDepth a symbol with a rule is replaced by recursing into its
// replacement at depth+1; a symbol without one is executed immediately. At
// or beyond MaxDepth every symbol is executed, rule or not.
func (in *Interpreter) Run(sentence string, depth uint) {
	if depth >= in.cfg.MaxDepth {
		for _, c := range sentence {
			in.Process(c)
		}
		return
	}

	for _, c := range sentence {
		if next, ok := in.rules[c]; ok {
			in.Run(next, depth+1)
			continue
		}
		in.Process(c)
	}
}

// Process executes a single terminal symbol. Unknown symbols are ignored.
func (in *Interpreter) Process(symbol rune) {
	f := in.frame
	cfg := in.cfg

	switch symbol {
	case 'L', 'l':
		size := cfg.LeafSize * f.BrushWidth()
		in.out.addLeaf(Leaf{
			Position:  f.Position(),
			Direction: f.Forward(),
			Up:        f.Left(),
			Size:      math3d.V2(size, size*2),
		})
		f.Move(cfg.Distance * f.BrushWidth())

	case 'B':
		step := cfg.Distance * f.BrushWidth()
		r1 := cfg.Radius * f.BrushWidth()
		in.out.addBranch(Branch{
			P1: f.Position(),
			R1: r1,
			P2: f.Position().AddScaled(f.Forward(), step),
			R2: r1 * cfg.BrushDecay,
		})
		f.Move(step)

	case 'M':
		f.Move(cfg.Distance * f.BrushWidth())

	case '+':
		f.Rotate(math3d.Up(), cfg.AngleWorldY)
	case '-':
		f.Rotate(math3d.Up(), -cfg.AngleWorldY)

	case '&':
		f.Rotate(f.Left().Normalize(), cfg.AngleTurtleLeft)
	case '^':
		f.Rotate(f.Left().Normalize(), -cfg.AngleTurtleLeft)

	case '*':
		f.SetBrushWidth(cfg.BrushDecay * f.BrushWidth())

	case '[':
		f.Push()
	case ']':
		f.Pop()
	}
}

// Generate runs axiom on a fresh turtle and returns the new buffers.
func Generate(cfg Config, rules Rules, axiom string) *Buffers {
	out := &Buffers{}
	NewInterpreter(cfg, rules, out).Run(axiom, 0)
	logging.L().Debug("lsystem: generated",
		"branches", len(out.Branches),
		"leaves", len(out.Leaves),
		"max_depth", cfg.MaxDepth)
	return out
}

// Derive returns the symbol string Run would execute for axiom, in
// execution order. Executing the result with MaxDepth 0 reproduces exactly
// the geometry and final turtle state of running axiom under rules.
func Derive(axiom string, rules Rules, maxDepth uint) string {
	var sb strings.Builder
	derive(&sb, axiom, rules, 0, maxDepth)
	return sb.String()
}

func derive(sb *strings.Builder, sentence string, rules Rules, depth, maxDepth uint) {
	if depth >= maxDepth {
		sb.WriteString(sentence)
		return
	}
	for _, c := range sentence {
		if next, ok := rules[c]; ok {
			derive(sb, next, rules, depth+1, maxDepth)
			continue
		}
		sb.WriteRune(c)
	}
}
