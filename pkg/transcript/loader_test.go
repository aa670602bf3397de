package transcript

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoaderLoadAll(t *testing.T) {
	dir := t.TempDir()

	yamlContent := `
name: slang
currency_words:
  - bucks
  - buck
  - quid
fillers:
  - dropped
  - blew
  - spent
`

	if err := os.WriteFile(filepath.Join(dir, "slang.yaml"), []byte(yamlContent), 0644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	loader := NewLoader(dir)
	profiles, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	if len(profiles) != 1 {
		t.Fatalf("loaded %d profiles, want 1", len(profiles))
	}

	p, ok := loader.Get("slang")
	if !ok {
		t.Fatal("profile 'slang' not found")
	}

	// Unset fields fall back to the defaults.
	if len(p.Vocabulary.Delimiters) == 0 {
		t.Error("delimiters not defaulted")
	}
	if len(p.Vocabulary.CurrencySymbols) == 0 {
		t.Error("currency symbols not defaulted")
	}

	cmd, err := p.Parser.Parse("blew 12 quid on darts")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !cmd.Amount.Equal(decimal.RequireFromString("12")) {
		t.Errorf("amount = %s, want 12", cmd.Amount)
	}
	if cmd.Description != "darts" {
		t.Errorf("description = %q, want %q", cmd.Description, "darts")
	}
}

func TestLoaderNameFromFilename(t *testing.T) {
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "team.yml"), []byte("delimiters: [on, for, toward]\n"), 0644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	loader := NewLoader(dir)
	if _, err := loader.LoadAll(); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	if _, ok := loader.Get("team"); !ok {
		t.Error("profile 'team' not found")
	}
}

func TestLoaderInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("{{invalid yaml"), 0644)

	loader := NewLoader(dir)
	_, err := loader.LoadAll()
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoaderFailedReloadKeepsProfiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slang.yaml")

	if err := os.WriteFile(path, []byte("name: slang\ncurrency_words: [quid]\n"), 0644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	loader := NewLoader(dir)
	if _, err := loader.LoadAll(); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	if err := os.WriteFile(path, []byte("{{invalid yaml"), 0644); err != nil {
		t.Fatalf("corrupt yaml: %v", err)
	}
	if _, err := loader.LoadAll(); err == nil {
		t.Fatal("reload of corrupt file should fail")
	}

	// The last good profile set survives the failed reload.
	p, ok := loader.Get("slang")
	if !ok {
		t.Fatal("profile 'slang' lost after failed reload")
	}
	if _, err := p.Parser.Parse("blew 12 quid on darts"); err != nil {
		t.Errorf("surviving profile no longer parses: %v", err)
	}
}

func TestLoaderWatchAndReload(t *testing.T) {
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "slang.yaml"), []byte("name: slang\n"), 0644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	loader := NewLoader(dir)
	if _, err := loader.LoadAll(); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	reloaded := make(chan []string, 1)
	loader.OnReload = func(names []string) {
		select {
		case reloaded <- names:
		default:
		}
	}

	done := make(chan struct{})
	defer close(done)
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- loader.WatchAndReload(done)
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "team.yaml"), []byte("name: team\n"), 0644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	select {
	case names := <-reloaded:
		if len(names) != 2 {
			t.Errorf("reloaded profiles = %v, want slang and team", names)
		}
	case err := <-watchErr:
		t.Fatalf("WatchAndReload exited: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never reloaded after a new profile was written")
	}

	if _, ok := loader.Get("team"); !ok {
		t.Error("profile 'team' not available after reload")
	}
}

func TestLoaderEmptyDir(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(dir)
	profiles, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(profiles) != 0 {
		t.Errorf("loaded %d profiles, want 0", len(profiles))
	}
}
