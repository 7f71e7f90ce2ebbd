package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New("P303")

	if err.Code != "P303" {
		t.Errorf("Code = %q, want P303", err.Code)
	}
	if err.Category != CategoryScript {
		t.Errorf("Category = %q, want %q", err.Category, CategoryScript)
	}
	if err.Suggestion == "" {
		t.Error("registered suggestion should be copied")
	}

	unknown := New("X999")
	if unknown.Message != "Unknown error" {
		t.Errorf("unknown code Message = %q", unknown.Message)
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryCLI, "bad flag %q", "--x")
	if err.Message != `bad flag "--x"` || err.Code != "" {
		t.Errorf("Newf = %+v", err)
	}
}

func TestToolError_Error(t *testing.T) {
	inner := stderrors.New("disk on fire")
	err := New("P201").WithDetail("doc.json").Wrap(inner)

	want := "P201: Cannot read document: doc.json: disk on fire"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !stderrors.Is(err, inner) {
		t.Error("errors.Is should see the wrapped error")
	}
}

func TestToolError_WithLocation(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "steps.yaml")
	content := "- op: get\n  path: a\n- op: nope\n  path: b\n- op: set\n"
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	err := New("P303").WithLocation(file, 3, 7)

	if err.Location.String() != file+":3:7" {
		t.Errorf("Location = %q", err.Location.String())
	}
	if len(err.Context) != 5 || err.Context[2] != "- op: nope" {
		t.Errorf("Context = %q", err.Context)
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "P101") != nil {
		t.Error("FromError(nil) should be nil")
	}

	te := New("P102")
	if FromError(te, "P101") != te {
		t.Error("FromError should pass a ToolError through")
	}

	wrapped := FromError(stderrors.New("x"), "P101")
	if wrapped.Code != "P101" || wrapped.Wrapped == nil {
		t.Errorf("FromError = %+v", wrapped)
	}
}

func TestLocation_String(t *testing.T) {
	var nilLoc *Location
	if nilLoc.String() != "" {
		t.Error("nil location should format empty")
	}
	if got := (&Location{File: "a.yaml", Line: 2}).String(); got != "a.yaml:2" {
		t.Errorf("String() = %q", got)
	}
}

func TestFormat(t *testing.T) {
	err := New("P304").
		WithDetail("set b.c: observe: path does not resolve to a node").
		WithSuggestion("Create b first")
	err.Location = &Location{File: "steps.yaml", Line: 2}
	err.Context = []string{"- op: get", "- op: set", "  path: b.c"}

	out := err.Format()
	for _, want := range []string{
		"ERROR P304: Script step failed",
		"steps.yaml:2",
		"→    2 │ - op: set",
		"Hint: Create b first",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("P101").WithDetail("open pathwatch.json").Wrap(stderrors.New("denied"))
	err.Location = &Location{File: "pathwatch.json", Line: 1}

	want := "pathwatch.json:1: P101: Cannot read configuration file: open pathwatch.json: denied"
	if got := err.FormatCompact(); got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("P304").WithDetail("set a\x1fb: \"quoted\"")
	err.Location = &Location{File: "steps.yaml", Line: 3, Column: 5}

	out := err.FormatJSON()
	if !json.Valid([]byte(out)) {
		t.Fatalf("FormatJSON() is not valid JSON: %s", out)
	}

	var got map[string]any
	if e := json.Unmarshal([]byte(out), &got); e != nil {
		t.Fatal(e)
	}
	if got["code"] != "P304" || got["category"] != "script" {
		t.Errorf("code/category = %v/%v", got["code"], got["category"])
	}
	if got["detail"] != "set a\x1fb: \"quoted\"" {
		t.Errorf("detail = %q", got["detail"])
	}
	loc, _ := got["location"].(map[string]any)
	if loc["file"] != "steps.yaml" || loc["line"] != float64(3) {
		t.Errorf("location = %v", got["location"])
	}
}

func TestParseStyle(t *testing.T) {
	tests := []struct {
		in   string
		want Style
	}{
		{"", StyleText},
		{"text", StyleText},
		{"JSON", StyleJSON},
		{" compact ", StyleCompact},
	}
	for _, tt := range tests {
		got, err := ParseStyle(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseStyle(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}

	_, err := ParseStyle("xml")
	var te *ToolError
	if !stderrors.As(err, &te) || te.Category != CategoryCLI || te.Code != "" {
		t.Errorf("ParseStyle(xml) err = %#v", err)
	}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer

	Printer{Style: StyleText}.Print(&buf, New("P401"))
	if !strings.Contains(buf.String(), "ERROR P401: Cannot start change feed") {
		t.Errorf("text = %q", buf.String())
	}
	if strings.Contains(buf.String(), "\033[") {
		t.Error("text without Color should have no escapes")
	}

	buf.Reset()
	Printer{Style: StyleText, Color: true}.Print(&buf, New("P401"))
	if !strings.Contains(buf.String(), "\033[") {
		t.Error("colored text should have escapes")
	}

	buf.Reset()
	Printer{Style: StyleCompact}.Print(&buf, stderrors.New("plain"))
	if buf.String() != "plain\n" {
		t.Errorf("compact plain = %q", buf.String())
	}

	buf.Reset()
	Printer{Style: StyleJSON}.Print(&buf, stderrors.New("plain"))
	if strings.TrimSpace(buf.String()) != `{"message":"plain"}` {
		t.Errorf("json plain = %q", buf.String())
	}
}

func TestLookup(t *testing.T) {
	if _, ok := Lookup("P302"); !ok {
		t.Error("P302 should be registered")
	}
	if _, ok := Lookup("E001"); ok {
		t.Error("E001 should not be registered")
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five", 9)
	if len(lines) != 3 || lines[0] != "one two" {
		t.Errorf("wrapText = %q", lines)
	}
	if wrapText("", 10) != nil {
		t.Error("empty text should wrap to nil")
	}
}
