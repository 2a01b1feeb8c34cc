package prompt

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParse_ExtractsVariables(t *testing.T) {
	tpl := Parse("x.txt", "Hello {{author_name}}, you said {{content}} ({{content}})")
	want := []string{"author_name", "content"}
	if len(tpl.Variables) != len(want) {
		t.Fatalf("variables = %v, want %v", tpl.Variables, want)
	}
	for i := range want {
		if tpl.Variables[i] != want[i] {
			t.Fatalf("variables = %v, want %v", tpl.Variables, want)
		}
	}
}

func TestRender_Substitutes(t *testing.T) {
	tpl := Parse("x.txt", "Echo from {{author_name}}:\n{{content}}")
	got := tpl.Render(map[string]string{"author_name": "Alice", "content": "hi"})
	if got != "Echo from Alice:\nhi" {
		t.Fatalf("rendered %q", got)
	}
}

func TestRender_NoTokensIsIdentity(t *testing.T) {
	const text = "plain text, no placeholders { } {{not closed"
	tpl := Parse("x.txt", text)
	if got := tpl.Render(map[string]string{"content": "x"}); got != text {
		t.Fatalf("render changed token-free template: %q", got)
	}
}

func TestRender_UnknownVariableLeftVerbatim(t *testing.T) {
	tpl := Parse("x.txt", "Field: {{unknown_field}}")
	if got := tpl.Render(map[string]string{"content": "x"}); got != "Field: {{unknown_field}}" {
		t.Fatalf("unknown variable was not preserved: %q", got)
	}
}

func TestRegistry_LoadAndCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "greet.txt")
	if err := os.WriteFile(path, []byte("Hi {{author_name}}"), 0o644); err != nil {
		t.Fatal(err)
	}

	reg, err := NewRegistry(dir)
	if err != nil {
		t.Fatal(err)
	}

	out, err := reg.Render("greet.txt", map[string]string{"author_name": "Bob"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "Hi Bob" {
		t.Fatalf("rendered %q", out)
	}

	// Cached: editing the file is invisible until Invalidate.
	if err := os.WriteFile(path, []byte("Changed"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err = reg.Render("greet.txt", map[string]string{"author_name": "Bob"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "Hi Bob" {
		t.Fatalf("cache was bypassed, rendered %q", out)
	}

	reg.Invalidate()
	out, err = reg.Render("greet.txt", nil)
	if err != nil {
		t.Fatal(err)
	}
	if out != "Changed" {
		t.Fatalf("expected re-read after Invalidate, got %q", out)
	}
}

func TestRegistry_MissingFile(t *testing.T) {
	reg, err := NewRegistry(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Load("nope.txt"); err == nil {
		t.Fatal("expected error for missing prompt file")
	}
}
