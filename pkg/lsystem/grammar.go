package lsystem

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MaxDepthLimit bounds MaxDepth for grammars loaded from files and scripts.
// Expansion is exponential in depth.
const MaxDepthLimit = 16

var (
	// ErrInvalidRuleKey is returned when a rule key is not exactly one symbol.
	ErrInvalidRuleKey = errors.New("rule key must be a single symbol")

	// ErrInvalidGrammar is returned by Validate for unusable configurations.
	ErrInvalidGrammar = errors.New("invalid grammar")
)

// Grammar bundles everything needed to grow one plant.
type Grammar struct {
	Name   string
	Axiom  string
	Rules  Rules
	Config Config
}

// Validate checks the grammar for values that cannot produce a plant.
// The interpreter itself accepts anything; this guards loaded input.
func (g Grammar) Validate() error {
	switch {
	case g.Axiom == "":
		return fmt.Errorf("%w: empty axiom", ErrInvalidGrammar)
	case g.Config.Distance <= 0:
		return fmt.Errorf("%w: distance must be positive, got %v", ErrInvalidGrammar, g.Config.Distance)
	case g.Config.Radius <= 0:
		return fmt.Errorf("%w: radius must be positive, got %v", ErrInvalidGrammar, g.Config.Radius)
	case g.Config.LeafSize < 0:
		return fmt.Errorf("%w: leaf size must not be negative, got %v", ErrInvalidGrammar, g.Config.LeafSize)
	case g.Config.BrushDecay <= 0 || g.Config.BrushDecay > 1:
		return fmt.Errorf("%w: brush decay must be in (0, 1], got %v", ErrInvalidGrammar, g.Config.BrushDecay)
	case g.Config.MaxDepth > MaxDepthLimit:
		return fmt.Errorf("%w: max depth %d exceeds %d", ErrInvalidGrammar, g.Config.MaxDepth, MaxDepthLimit)
	}
	return nil
}

// WithDepth returns a copy of g with MaxDepth replaced.
func (g Grammar) WithDepth(depth uint) Grammar {
	g.Config.MaxDepth = depth
	return g
}

// Generate grows the plant into fresh buffers.
func (g Grammar) Generate() *Buffers {
	return Generate(g.Config, g.Rules, g.Axiom)
}

// Derive returns the fully rewritten sentence for g.
func (g Grammar) Derive() string {
	return Derive(g.Axiom, g.Rules, g.Config.MaxDepth)
}

// grammarFile is the JSON form of a Grammar. Angles are in degrees.
type grammarFile struct {
	Name            string            `json:"name"`
	Axiom           string            `json:"axiom"`
	Rules           map[string]string `json:"rules"`
	Radius          float64           `json:"radius"`
	Distance        float64           `json:"distance"`
	LeafSize        float64           `json:"leafSize"`
	AngleWorldY     float64           `json:"angleWorldY"`
	AngleTurtleLeft float64           `json:"angleTurtleLeft"`
	BrushDecay      float64           `json:"brushDecay"`
	MaxDepth        uint              `json:"maxDepth"`
}

// ParseGrammarJSON decodes a JSON grammar. Fields that are absent keep the
// values of DefaultConfig.
func ParseGrammarJSON(data []byte) (Grammar, error) {
	def := DefaultConfig()
	gf := grammarFile{
		Radius:          def.Radius,
		Distance:        def.Distance,
		LeafSize:        def.LeafSize,
		AngleWorldY:     Degrees(def.AngleWorldY),
		AngleTurtleLeft: Degrees(def.AngleTurtleLeft),
		BrushDecay:      def.BrushDecay,
		MaxDepth:        def.MaxDepth,
	}
	if err := json.Unmarshal(data, &gf); err != nil {
		return Grammar{}, fmt.Errorf("decode grammar: %w", err)
	}

	rules, err := rulesFromStrings(gf.Rules)
	if err != nil {
		return Grammar{}, err
	}

	g := Grammar{
		Name:  gf.Name,
		Axiom: gf.Axiom,
		Rules: rules,
		Config: Config{
			Radius:          gf.Radius,
			Distance:        gf.Distance,
			LeafSize:        gf.LeafSize,
			AngleWorldY:     Radians(gf.AngleWorldY),
			AngleTurtleLeft: Radians(gf.AngleTurtleLeft),
			BrushDecay:      gf.BrushDecay,
			MaxDepth:        gf.MaxDepth,
		},
	}
	if err := g.Validate(); err != nil {
		return Grammar{}, err
	}
	return g, nil
}

// MarshalJSON encodes g in the same form ParseGrammarJSON reads.
func (g Grammar) MarshalJSON() ([]byte, error) {
	rules := make(map[string]string, len(g.Rules))
	for k, v := range g.Rules {
		rules[string(k)] = v
	}
	return json.Marshal(grammarFile{
		Name:            g.Name,
		Axiom:           g.Axiom,
		Rules:           rules,
		Radius:          g.Config.Radius,
		Distance:        g.Config.Distance,
		LeafSize:        g.Config.LeafSize,
		AngleWorldY:     Degrees(g.Config.AngleWorldY),
		AngleTurtleLeft: Degrees(g.Config.AngleTurtleLeft),
		BrushDecay:      g.Config.BrushDecay,
		MaxDepth:        g.Config.MaxDepth,
	})
}

// LoadGrammarFile reads a grammar from disk. Files ending in .zy are
// evaluated as grammar scripts; anything else is parsed as JSON.
func LoadGrammarFile(path string) (Grammar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Grammar{}, fmt.Errorf("read grammar: %w", err)
	}

	var g Grammar
	if strings.EqualFold(filepath.Ext(path), ".zy") {
		g, err = EvalGrammarScript(string(data))
	} else {
		g, err = ParseGrammarJSON(data)
	}
	if err != nil {
		return Grammar{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if g.Name == "" {
		g.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return g, nil
}

func rulesFromStrings(in map[string]string) (Rules, error) {
	rules := make(Rules, len(in))
	for k, v := range in {
		r, err := ruleKey(k)
		if err != nil {
			return nil, err
		}
		rules[r] = v
	}
	return rules, nil
}

func ruleKey(k string) (rune, error) {
	r, size := utf8.DecodeRuneInString(k)
	if size == 0 || size != len(k) || r == utf8.RuneError {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRuleKey, k)
	}
	return r, nil
}
