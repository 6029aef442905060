package lsystem

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ErrUnknownPreset is returned by Preset for names it does not know.
var ErrUnknownPreset = errors.New("unknown preset")

var presets = map[string]Grammar{
	// Three-way forks, each rotated 120° about the vertical.
	"tree": {
		Axiom: "BBBA",
		Rules: Rules{
			'A': "*[&BAL]+[&BAL]+[&BAL]",
		},
		Config: Config{
			Radius:          0.12,
			Distance:        1,
			LeafSize:        0.35,
			AngleWorldY:     Radians(120),
			AngleTurtleLeft: Radians(32),
			BrushDecay:      0.75,
			MaxDepth:        5,
		},
	},
	// Low and dense, four shoots per node.
	"bush": {
		Axiom: "BA",
		Rules: Rules{
			'A': "*[&&BLA]+[&BLA]+[&&BLA]+[&BLA]",
		},
		Config: Config{
			Radius:          0.08,
			Distance:        0.8,
			LeafSize:        0.3,
			AngleWorldY:     Radians(90),
			AngleTurtleLeft: Radians(28),
			BrushDecay:      0.8,
			MaxDepth:        4,
		},
	},
	// Alternating leaflets along a bending frond.
	"fern": {
		Axiom: "BBX",
		Rules: Rules{
			'X': "B[+&*LX][-&*LX]^*BX",
		},
		Config: Config{
			Radius:          0.05,
			Distance:        0.7,
			LeafSize:        0.3,
			AngleWorldY:     Radians(60),
			AngleTurtleLeft: Radians(40),
			BrushDecay:      0.85,
			MaxDepth:        5,
		},
	},
	// Self-similar stem: B rewrites itself until the depth cap executes it.
	"weed": {
		Axiom: "B",
		Rules: Rules{
			'B': "B[&*BL]B[^*BL]+B",
		},
		Config: Config{
			Radius:          0.04,
			Distance:        0.5,
			LeafSize:        0.4,
			AngleWorldY:     Radians(77),
			AngleTurtleLeft: Radians(26),
			BrushDecay:      0.9,
			MaxDepth:        4,
		},
	},
	// Whorls of four around a single leader that keeps narrowing.
	"pine": {
		Axiom: "BBA",
		Rules: Rules{
			'A': "B[&&&*BLL]+[&&&*BLL]+[&&&*BLL]+[&&&*BLL]+*A",
		},
		Config: Config{
			Radius:          0.15,
			Distance:        0.9,
			LeafSize:        0.2,
			AngleWorldY:     Radians(90),
			AngleTurtleLeft: Radians(24),
			BrushDecay:      0.88,
			MaxDepth:        10,
		},
	},
}

// DefaultPreset is the preset used when none is named.
const DefaultPreset = "tree"

// Preset returns the named built-in grammar.
func Preset(name string) (Grammar, error) {
	g, ok := presets[name]
	if !ok {
		return Grammar{}, fmt.Errorf("%w %q (have %v)", ErrUnknownPreset, name, PresetNames())
	}
	g.Name = name
	g.Rules = maps.Clone(g.Rules)
	return g, nil
}

// PresetNames returns the built-in grammar names in sorted order.
func PresetNames() []string {
	return slices.Sorted(maps.Keys(presets))
}
