package locale

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRussianIsValid(t *testing.T) {
	if err := Russian().Validate(); err != nil {
		t.Fatalf("built-in pack invalid: %v", err)
	}
}

func TestLoadEmptyPathReturnsBuiltIn(t *testing.T) {
	p, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if p.Words.Yes != "Да" {
		t.Fatalf("yes = %q", p.Words.Yes)
	}
}

func TestLoadOverridesOnlyGivenKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "en.toml")
	content := `
welcome = "Hi!"

[words]
yes = "Yes"
no = "No"

[commands]
help = "Show help"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.Welcome != "Hi!" || p.Words.Yes != "Yes" || p.Words.No != "No" {
		t.Fatalf("overrides not applied: %+v", p.Words)
	}
	if p.Words.Back != "Назад" {
		t.Fatalf("back = %q, want built-in", p.Words.Back)
	}
	if p.CommandDescriptions["help"] != "Show help" {
		t.Fatalf("help = %q", p.CommandDescriptions["help"])
	}
	if p.CommandDescriptions["start"] == "" {
		t.Fatal("start description lost on merge")
	}
}

func TestLoadRejectsCollidingWords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(path, []byte("[words]\nyes = \"Назад\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "both") {
		t.Fatalf("expected collision error, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
