// Package script decodes and replays YAML edit scripts.
//
// A script lists steps; each step names an operation and its arguments.
// Entities are referred to by display name (Bl0000, Ar0003, ...), which is
// stable across runs because names are issued deterministically:
//
//	name: split demo
//	geometry:
//	  - {name: floor, kind: patch, points: [{x: 0}, {x: 1}, {y: 1}]}
//	steps:
//	  - op: new_block
//	    hi: {x: 1, y: 1, z: 1}
//	    nb: 4
//	  - op: split_block
//	    block: Bl0000
//	    coedge: Ar0000
//	    ratio: 0.25
//	  - op: undo
package script

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/topoedit"
	"github.com/aretw0/topoedit/pkg/adapters/analytic"
)

// Script is a decoded edit script.
type Script struct {
	Name     string           `yaml:"name"`
	Geometry []analytic.Shape `yaml:"geometry"`
	Steps    []Step           `yaml:"steps"`

	model *analytic.Model
}

// Step is one operation with its raw arguments.
type Step struct {
	Op string
	// Preview runs the operation as a preview instead of a command.
	Preview bool
	Args    map[string]any

	action action
}

// UnmarshalYAML splits the op and preview keys from the arguments.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	op, ok := raw["op"].(string)
	if !ok || op == "" {
		return fmt.Errorf("line %d: step has no op", node.Line)
	}
	delete(raw, "op")
	if p, ok := raw["preview"]; ok {
		b, ok := p.(bool)
		if !ok {
			return fmt.Errorf("line %d: preview must be a boolean", node.Line)
		}
		s.Preview = b
		delete(raw, "preview")
	}
	s.Op = op
	s.Args = raw
	return nil
}

// Parse decodes a script and checks every step's arguments.
func Parse(data []byte) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("script is empty")
		}
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	model, err := analytic.NewModel(s.Geometry...)
	if err != nil {
		return nil, fmt.Errorf("invalid geometry: %w", err)
	}
	s.model = model
	for i := range s.Steps {
		st := &s.Steps[i]
		a, err := compile(st.Op, st.Args, model)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, st.Op, err)
		}
		if st.Preview && a.op == nil {
			return nil, fmt.Errorf("step %d (%s): only edit operations can be previewed", i+1, st.Op)
		}
		st.action = a
	}
	return &s, nil
}

// Load reads and parses the script at path.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Model returns the analytic geometry declared by the script.
func (s *Script) Model() *analytic.Model {
	return s.model
}

// Options returns the workspace options the script needs: its geometry as
// the oracle, when it declares any.
func (s *Script) Options() []topoedit.Option {
	if len(s.Geometry) == 0 {
		return nil
	}
	return []topoedit.Option{topoedit.WithOracle(s.model)}
}
