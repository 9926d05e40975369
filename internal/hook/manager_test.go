package hook

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func installManifest(t *testing.T, root string, m Manifest) string {
	t.Helper()
	dir := filepath.Join(root, m.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return dir
}

func TestManager_Discover(t *testing.T) {
	root := t.TempDir()
	dir := installManifest(t, root, Manifest{
		Name:        "announcer",
		Version:     "1.0.0",
		Description: "Calls pitches out loud",
		Executable:  "announcer",
	})
	installManifest(t, root, Manifest{Name: "scoreboard", Version: "0.1.0", Executable: "scoreboard"})

	m := NewManager(root)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := m.List()
	if len(plugins) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(plugins))
	}
	if plugins[0].Manifest.Name != "announcer" || plugins[1].Manifest.Name != "scoreboard" {
		t.Errorf("List() should be sorted by name, got %s, %s", plugins[0].Manifest.Name, plugins[1].Manifest.Name)
	}

	p, err := m.Get("announcer")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if p.Path != dir || p.Executable != filepath.Join(dir, "announcer") {
		t.Errorf("plugin paths = %q, %q", p.Path, p.Executable)
	}
	if p.Manifest.Description != "Calls pitches out loud" {
		t.Errorf("description = %q", p.Manifest.Description)
	}
}

func TestManager_Discover_Skips(t *testing.T) {
	root := t.TempDir()

	bad := filepath.Join(root, "bad")
	if err := os.MkdirAll(bad, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bad, ManifestFile), []byte("not valid json"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "no-manifest"), 0755); err != nil {
		t.Fatal(err)
	}
	installManifest(t, root, Manifest{Name: "no-exec"})
	if err := os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(root)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() failed unexpectedly: %v", err)
	}
	if n := len(m.List()); n != 0 {
		t.Fatalf("expected 0 plugins, got %d", n)
	}
}

func TestManager_Discover_Rescan(t *testing.T) {
	root := t.TempDir()
	dir := installManifest(t, root, Manifest{Name: "announcer", Executable: "announcer"})

	m := NewManager(root)
	if err := m.Discover(); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := m.Discover(); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get("announcer"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("removed plugin still listed: %v", err)
	}
}

func TestManager_Discover_NonExistentDir(t *testing.T) {
	m := NewManager("/path/that/does/not/exist")
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() failed on non-existent dir: %v", err)
	}
	if len(m.List()) != 0 {
		t.Fatal("expected no plugins")
	}
	if m.Dir() != "/path/that/does/not/exist" {
		t.Errorf("Dir() = %q", m.Dir())
	}
}
