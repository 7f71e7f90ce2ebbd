package observe

import (
	"encoding/json"
	"testing"
)

func TestPathCanonical(t *testing.T) {
	p := Path{"b", "c"}
	if got := p.Canonical(); got != "b"+Separator+"c" {
		t.Errorf("Canonical() = %q", got)
	}
	if got := p.String(); got != "b.c" {
		t.Errorf("String() = %q, want b.c", got)
	}
}

func TestPathPrependDoesNotAlias(t *testing.T) {
	p := make(Path, 1, 8)
	p[0] = "c"

	a := p.Prepend("b")
	b := p.Prepend("x")

	if a.String() != "b.c" || b.String() != "x.c" {
		t.Errorf("Prepend results = %v, %v", a, b)
	}
	if p.String() != "c" {
		t.Errorf("original modified: %v", p)
	}
}

func TestParsePath(t *testing.T) {
	if got := ParsePath(""); got != nil {
		t.Errorf("ParsePath(\"\") = %v, want nil", got)
	}
	if got := ParsePath("b.c"); len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("ParsePath(b.c) = %v", got)
	}
}

func TestAccessEventString(t *testing.T) {
	e := AccessEvent{Kind: Write, Path: Path{"b", "c"}}
	if got := e.String(); got != "write(b.c)" {
		t.Errorf("String() = %q", got)
	}
	if got := e.PathString(); got != e.Path.Canonical() {
		t.Errorf("PathString() = %q", got)
	}
	if Kind(0).String() != "unknown" {
		t.Error("zero Kind should be unknown")
	}
}

func TestAccessEventJSON(t *testing.T) {
	e := AccessEvent{Kind: Write, Path: Path{"b", "c"}}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"kind":"write","path":["b","c"]}` {
		t.Errorf("json = %s", data)
	}

	var back AccessEvent
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Kind != Write || back.Path.String() != "b.c" {
		t.Errorf("decoded = %v", back)
	}

	if err := json.Unmarshal([]byte(`{"kind":"poke"}`), &back); err == nil {
		t.Error("unknown kind should fail to decode")
	}
}
