package hook

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrPluginNotFound is returned when a requested plugin cannot be found.
var ErrPluginNotFound = errors.New("hook plugin not found")

// Manager discovers hook plugins on disk.
type Manager struct {
	dir     string
	plugins map[string]*Plugin
	mu      sync.RWMutex
}

// NewManager creates a Manager rooted at dir.
func NewManager(dir string) *Manager {
	return &Manager{
		dir:     dir,
		plugins: make(map[string]*Plugin),
	}
}

// Discover rescans dir. A missing dir yields no plugins; unreadable or
// malformed manifests are skipped.
func (m *Manager) Discover() error {
	found := make(map[string]*Plugin)

	info, err := os.Stat(m.dir)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return err
	case info.IsDir():
		entries, err := os.ReadDir(m.dir)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			if p, ok := loadPlugin(filepath.Join(m.dir, entry.Name())); ok {
				found[p.Manifest.Name] = p
			}
		}
	}

	m.mu.Lock()
	m.plugins = found
	m.mu.Unlock()
	log.Debug().Str("dir", m.dir).Int("count", len(found)).Msg("hook plugins discovered")
	return nil
}

func loadPlugin(dir string) (*Plugin, bool) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, false
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("skipping hook with invalid manifest")
		return nil, false
	}
	if manifest.Name == "" || manifest.Executable == "" {
		return nil, false
	}
	return &Plugin{
		Manifest:   manifest,
		Path:       dir,
		Executable: filepath.Join(dir, manifest.Executable),
	}, true
}

// Get returns a plugin by name.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugin, ok := m.plugins[name]
	if !ok {
		return nil, ErrPluginNotFound
	}
	return plugin, nil
}

// List returns all discovered plugins sorted by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugins := make([]*Plugin, 0, len(m.plugins))
	for _, plugin := range m.plugins {
		plugins = append(plugins, plugin)
	}
	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Manifest.Name < plugins[j].Manifest.Name })
	return plugins
}

// Dir returns the plugin directory.
func (m *Manager) Dir() string {
	return m.dir
}
