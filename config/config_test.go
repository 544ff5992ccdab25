package config

import (
	"os"
	"path/filepath"
	"testing"
)

// writeConfig writes a fusabi.toml into dir.
func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[project]
name = "demo"

[assets]
dirs = ["scripts", "more-scripts"]
watch = true

[runner]
max-attempts = 5
tick-ms = 100
`)

	c, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	if c.Project.Name != "demo" {
		t.Errorf("Project.Name = %q, want %q", c.Project.Name, "demo")
	}
	if len(c.Assets.Dirs) != 2 || c.Assets.Dirs[1] != "more-scripts" {
		t.Errorf("Assets.Dirs = %v", c.Assets.Dirs)
	}
	if !c.Assets.Watch {
		t.Error("Assets.Watch = false")
	}
	if c.Runner.MaxAttempts != 5 {
		t.Errorf("Runner.MaxAttempts = %d, want 5", c.Runner.MaxAttempts)
	}
	if c.Runner.TickMillis != 100 {
		t.Errorf("Runner.TickMillis = %d, want 100", c.Runner.TickMillis)
	}
	if c.Dir == "" {
		t.Error("Dir not set")
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[project]
name = "minimal"
`)

	c, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	if len(c.Assets.Dirs) != 1 || c.Assets.Dirs[0] != "scripts" {
		t.Errorf("Assets.Dirs = %v, want [scripts]", c.Assets.Dirs)
	}
	if c.Assets.Watch {
		t.Error("Assets.Watch defaults to true")
	}
	if c.Runner.MaxAttempts != 3 {
		t.Errorf("Runner.MaxAttempts = %d, want 3", c.Runner.MaxAttempts)
	}
	if c.Runner.TickMillis != 16 {
		t.Errorf("Runner.TickMillis = %d, want 16", c.Runner.TickMillis)
	}
}

func TestLoadNegativeMaxAttemptsPreserved(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[runner]
max-attempts = -1
`)

	c, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	// Negative means retry forever; it must not be coerced to the default.
	if c.Runner.MaxAttempts != -1 {
		t.Errorf("Runner.MaxAttempts = %d, want -1", c.Runner.MaxAttempts)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Load succeeded without a fusabi.toml")
	}
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "not [valid toml")
	if _, err := Load(dir); err == nil {
		t.Error("Load accepted malformed TOML")
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
[project]
name = "nested"
`)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	c, err := FindAndLoad(nested)
	if err != nil {
		t.Fatal(err)
	}
	if c == nil {
		t.Fatal("config not found from nested directory")
	}
	if c.Project.Name != "nested" {
		t.Errorf("Project.Name = %q, want %q", c.Project.Name, "nested")
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	c, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if c != nil {
		t.Errorf("found unexpected config: %+v", c)
	}
}

func TestDefault(t *testing.T) {
	c := Default()
	if len(c.Assets.Dirs) != 1 || c.Assets.Dirs[0] != "scripts" {
		t.Errorf("Assets.Dirs = %v", c.Assets.Dirs)
	}
	if c.Runner.MaxAttempts != 3 || c.Runner.TickMillis != 16 {
		t.Errorf("Runner = %+v", c.Runner)
	}
}
