package script

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vango-dev/pathwatch/internal/errors"
	"github.com/vango-dev/pathwatch/pkg/observe"
)

func newRoot(t *testing.T) *observe.Node {
	t.Helper()
	var doc map[string]any
	if err := json.Unmarshal([]byte(`{"a":"hello","b":{"c":"world"}}`), &doc); err != nil {
		t.Fatal(err)
	}
	root, _, err := observe.New().Wrap(doc)
	if err != nil {
		t.Fatal(err)
	}
	return root
}

func entry(step int, source string, kind observe.Kind, path ...string) Entry {
	return Entry{Step: step, Source: source, Event: observe.AccessEvent{Kind: kind, Path: path}}
}

const replay = `
- op: monitor
  name: view
  reads: [b.c]
- op: set
  path: a
  value: x
- op: set
  path: b.c
  value: y
- op: unmonitor
  name: view
- op: set
  path: b
  value: {c: z}
`

func TestRunnerTranscript(t *testing.T) {
	s, err := Parse("replay.yaml", []byte(replay))
	if err != nil {
		t.Fatal(err)
	}
	root := newRoot(t)
	r := NewRunner(root, nil)
	defer r.Close()

	tr, err := r.Run(context.Background(), s)
	if err != nil {
		t.Fatal(err)
	}

	want := []Entry{
		entry(1, RootSource, observe.Read, "b"),
		entry(1, RootSource, observe.Read, "b", "c"),
		entry(2, RootSource, observe.Write, "a"),
		entry(3, RootSource, observe.Read, "b"),
		entry(3, RootSource, observe.Write, "b", "c"),
		entry(3, "view", observe.Write, "b", "c"),
		entry(5, RootSource, observe.Write, "b"),
	}
	if diff := cmp.Diff(want, tr.Entries); diff != "" {
		t.Errorf("transcript mismatch (-want +got):\n%s", diff)
	}

	if _, ok := root.Peek("b").(*observe.Node); !ok {
		t.Error("mapping value should be instrumented on assignment")
	}
	if len(r.Sessions()) != 0 {
		t.Errorf("open sessions = %v, want none", r.Sessions())
	}

	var buf bytes.Buffer
	if err := tr.Write(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "view") || strings.Count(buf.String(), "\n") != len(want) {
		t.Errorf("Write output:\n%s", buf.String())
	}
}

func TestMonitorSameNameReplaces(t *testing.T) {
	s, err := Parse("s.yaml", []byte(`
- op: monitor
  name: v
  reads: [a]
- op: monitor
  name: v
  reads: [b.c]
- op: set
  path: a
  value: 1
`))
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(newRoot(t), nil)
	defer r.Close()

	tr, err := r.Run(context.Background(), s)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range tr.Entries {
		if e.Source == "v" {
			t.Errorf("replaced session still forwarded %v", e.Event)
		}
	}
	if len(r.Sessions()) != 1 {
		t.Errorf("sessions = %v", r.Sessions())
	}
}

func TestParseDefaultsMonitorName(t *testing.T) {
	s, err := Parse("s.yaml", []byte("- op: get\n  path: a\n- op: monitor\n  reads: [a]\n"))
	if err != nil {
		t.Fatal(err)
	}
	if s.Steps[1].Name != "monitor2" {
		t.Errorf("Name = %q, want monitor2", s.Steps[1].Name)
	}

	empty, err := Parse("empty.yaml", nil)
	if err != nil || len(empty.Steps) != 0 {
		t.Errorf("empty script = %+v, %v", empty, err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		code string
		line int
	}{
		{"unknown op", "- op: get\n  path: a\n- op: frob\n", "P303", 3},
		{"not a list", "op: get\n", "P302", 1},
		{"bad yaml", "- op: [\n", "P302", 0},
		{"bad field", "- op: get\n  reads: 5\n", "P302", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("s.yaml", []byte(tt.data))
			var te *errors.ToolError
			if !stderrors.As(err, &te) || te.Code != tt.code {
				t.Fatalf("err = %v, want %s", err, tt.code)
			}
			if tt.line > 0 && (te.Location == nil || te.Location.Line != tt.line) {
				t.Errorf("Location = %v, want line %d", te.Location, tt.line)
			}
		})
	}
}

func TestRunStepErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	data := "- op: set\n  path: a.x\n  value: 1\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	r := NewRunner(newRoot(t), nil)
	defer r.Close()
	_, err = r.Run(context.Background(), s)

	var te *errors.ToolError
	if !stderrors.As(err, &te) || te.Code != "P304" {
		t.Fatalf("err = %v, want P304", err)
	}
	if !stderrors.Is(err, observe.ErrNoPath) {
		t.Error("step error should wrap observe.ErrNoPath")
	}
	if te.Location == nil || te.Location.Line != 1 || len(te.Context) == 0 {
		t.Errorf("Location = %v, Context = %q", te.Location, te.Context)
	}

	unknown, _ := Parse("u.yaml", []byte("- op: unmonitor\n  name: ghost\n"))
	_, err = r.Run(context.Background(), unknown)
	if !stderrors.As(err, &te) || te.Code != "P305" {
		t.Errorf("err = %v, want P305", err)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); !stderrors.As(err, &te) || te.Code != "P301" {
		t.Errorf("Load(missing): err = %v, want P301", err)
	}
}
