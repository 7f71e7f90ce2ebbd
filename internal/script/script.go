// Package script replays YAML operation scripts against an observed graph
// and records what the root channel and each monitor session emitted.
//
//	- op: monitor
//	  name: header
//	  reads: [user.name]
//	- op: set
//	  path: user.name
//	  value: Ada
//	- op: unmonitor
//	  name: header
package script

import (
	"fmt"
	"os"

	"github.com/vango-dev/pathwatch/internal/errors"
	"gopkg.in/yaml.v3"
)

// Op is a script operation.
type Op string

const (
	OpGet       Op = "get"
	OpSet       Op = "set"
	OpDelete    Op = "delete"
	OpMonitor   Op = "monitor"
	OpUnmonitor Op = "unmonitor"
)

// Step is one script operation.
type Step struct {
	Op Op `yaml:"op"`

	// Path is a dotted path for get, set and delete.
	Path string `yaml:"path"`

	// Value is the value for set. Mappings and sequences become
	// map[string]any and []any and are instrumented on assignment.
	Value any `yaml:"value"`

	// Name identifies a monitor session. Defaults to "monitor<N>".
	Name string `yaml:"name"`

	// Reads are the dotted paths a monitor step reads.
	Reads []string `yaml:"reads"`

	line   int
	column int
}

// Script is a parsed list of steps.
type Script struct {
	File  string
	Steps []Step
}

// Load reads and parses a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("P301").WithDetail(path).Wrap(err)
	}
	return Parse(path, data)
}

// Parse parses script data. file is used for error locations.
func Parse(file string, data []byte) (*Script, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.New("P302").WithDetail(err.Error())
	}

	s := &Script{File: file}
	if len(doc.Content) == 0 {
		return s, nil
	}
	list := doc.Content[0]
	if list.Kind != yaml.SequenceNode {
		return nil, errors.New("P302").WithLocation(file, list.Line, list.Column)
	}

	for i, item := range list.Content {
		var step Step
		if err := item.Decode(&step); err != nil {
			return nil, errors.New("P302").
				WithLocation(file, item.Line, item.Column).
				WithDetail(err.Error())
		}
		step.line, step.column = item.Line, item.Column

		switch step.Op {
		case OpGet, OpSet, OpDelete, OpUnmonitor:
		case OpMonitor:
			if step.Name == "" {
				step.Name = fmt.Sprintf("monitor%d", i+1)
			}
		default:
			return nil, errors.New("P303").
				WithLocation(file, item.Line, item.Column).
				WithDetail(fmt.Sprintf("op %q", step.Op))
		}
		s.Steps = append(s.Steps, step)
	}
	return s, nil
}
