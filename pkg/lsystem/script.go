package lsystem

import (
	"context"
	"errors"
	"fmt"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/taigrr/sprout/internal/logging"
)

// ScriptTimeout is the hard limit for evaluating one grammar script.
const ScriptTimeout = 5 * time.Second

// ErrScriptTimeout is returned when a grammar script runs past its deadline.
var ErrScriptTimeout = errors.New("grammar script timed out")

// EvalGrammarScript evaluates a zygomys grammar script with ScriptTimeout.
//
// Scripts call builtins to describe the grammar; angles are in degrees:
//
//	(grammar_name "willow")
//	(axiom "BBA")
//	(rule "A" "*[&BAL]+[&BAL]")
//	(radius 0.1) (distance 1) (leaf_size 0.3)
//	(angle_y 120) (angle_left 30) (decay 0.8) (max_depth 5)
//
// Unset values keep DefaultConfig. The script runs in a sandbox without
// filesystem access.
func EvalGrammarScript(source string) (Grammar, error) {
	ctx, cancel := context.WithTimeout(context.Background(), ScriptTimeout)
	defer cancel()
	return EvalGrammarScriptContext(ctx, source)
}

// EvalGrammarScriptContext is EvalGrammarScript with a caller supplied
// deadline.
func EvalGrammarScriptContext(ctx context.Context, source string) (Grammar, error) {
	g, err := runWithDeadline(ctx, func() (Grammar, error) {
		return evalScript(source)
	})
	if err != nil {
		return Grammar{}, err
	}
	if err := g.Validate(); err != nil {
		return Grammar{}, err
	}
	return g, nil
}

type scriptResult struct {
	g   Grammar
	err error
}

// runWithDeadline runs fn on its own goroutine so a runaway script cannot
// block the caller past ctx. A timed out goroutine is abandoned; its result
// is dropped into the buffered channel and collected.
func runWithDeadline(ctx context.Context, fn func() (Grammar, error)) (Grammar, error) {
	ch := make(chan scriptResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- scriptResult{err: fmt.Errorf("panic during grammar script: %v", r)}
			}
		}()
		g, err := fn()
		ch <- scriptResult{g: g, err: err}
	}()

	select {
	case res := <-ch:
		return res.g, res.err
	case <-ctx.Done():
		logging.L().Warn("lsystem: grammar script abandoned", "err", ctx.Err())
		return Grammar{}, fmt.Errorf("%w: %w", ErrScriptTimeout, ctx.Err())
	}
}

func evalScript(source string) (Grammar, error) {
	def := DefaultConfig()
	g := Grammar{Rules: Rules{}, Config: def}

	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerGrammarBuiltins(env, &g)

	if err := env.LoadString(source); err != nil {
		return Grammar{}, fmt.Errorf("parse grammar script: %w", err)
	}
	if _, err := env.Run(); err != nil {
		return Grammar{}, fmt.Errorf("run grammar script: %w", err)
	}
	return g, nil
}

func registerGrammarBuiltins(env *zygo.Zlisp, g *Grammar) {
	env.AddFunction("grammar_name", stringSetter(func(s string) error {
		g.Name = s
		return nil
	}))
	env.AddFunction("axiom", stringSetter(func(s string) error {
		g.Axiom = s
		return nil
	}))

	env.AddFunction("rule", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("%s: want 2 arguments, got %d", name, len(args))
		}
		key, err := sexpString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: symbol: %w", name, err)
		}
		replacement, err := sexpString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: replacement: %w", name, err)
		}
		r, err := ruleKey(key)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
		}
		g.Rules[r] = replacement
		return zygo.SexpNull, nil
	})

	env.AddFunction("radius", floatSetter(func(v float64) { g.Config.Radius = v }))
	env.AddFunction("distance", floatSetter(func(v float64) { g.Config.Distance = v }))
	env.AddFunction("leaf_size", floatSetter(func(v float64) { g.Config.LeafSize = v }))
	env.AddFunction("angle_y", floatSetter(func(v float64) { g.Config.AngleWorldY = Radians(v) }))
	env.AddFunction("angle_left", floatSetter(func(v float64) { g.Config.AngleTurtleLeft = Radians(v) }))
	env.AddFunction("decay", floatSetter(func(v float64) { g.Config.BrushDecay = v }))
	env.AddFunction("max_depth", floatSetter(func(v float64) {
		if v < 0 {
			v = 0
		}
		g.Config.MaxDepth = uint(v)
	}))
}

// builtin matches the zygomys user function signature.
type builtin = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)

func stringSetter(set func(string) error) builtin {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("%s: want 1 argument, got %d", name, len(args))
		}
		s, err := sexpString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
		}
		if err := set(s); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
		}
		return zygo.SexpNull, nil
	}
}

func floatSetter(set func(float64)) builtin {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("%s: want 1 argument, got %d", name, len(args))
		}
		v, err := sexpFloat(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
		}
		set(v)
		return zygo.SexpNull, nil
	}
}

func sexpFloat(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T", s)
}

func sexpString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T", s)
}
