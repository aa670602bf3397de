package transcript

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Profile pairs a vocabulary with the parser compiled from it.
type Profile struct {
	Vocabulary *Vocabulary
	Parser     *Parser
}

// Loader loads and optionally hot-reloads vocabulary profiles from YAML
// files. A failed reload keeps the previously loaded profiles.
type Loader struct {
	dir string

	// OnReload, when set, receives the sorted profile names after each
	// successful reload triggered by the watcher.
	OnReload func(names []string)

	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewLoader creates a vocabulary loader for the given directory.
func NewLoader(dir string) *Loader {
	return &Loader{
		dir:      dir,
		profiles: make(map[string]*Profile),
	}
}

// LoadAll loads all .yaml and .yml files from the configured directory.
func (l *Loader) LoadAll() (map[string]*Profile, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary dir %q: %w", l.dir, err)
	}

	result := make(map[string]*Profile)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(l.dir, entry.Name())
		p, err := l.loadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load %q: %w", path, err)
		}
		result[p.Vocabulary.Name] = p
	}

	l.mu.Lock()
	l.profiles = result
	l.mu.Unlock()

	return result, nil
}

// Get returns a loaded profile by vocabulary name.
func (l *Loader) Get(name string) (*Profile, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.profiles[name]
	return p, ok
}

// All returns all loaded profiles.
func (l *Loader) All() map[string]*Profile {
	l.mu.RLock()
	defer l.mu.RUnlock()
	result := make(map[string]*Profile, len(l.profiles))
	for k, v := range l.profiles {
		result[k] = v
	}
	return result
}

func (l *Loader) loadFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	if v.Name == "" {
		base := filepath.Base(path)
		v.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	vocab := v.withDefaults()
	parser, err := NewParser(vocab)
	if err != nil {
		return nil, err
	}

	return &Profile{Vocabulary: vocab, Parser: parser}, nil
}

// WatchAndReload starts watching the vocabulary directory for changes and
// reloads. This blocks until the done channel is closed.
func (l *Loader) WatchAndReload(done <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(l.dir); err != nil {
		return fmt.Errorf("watch dir %q: %w", l.dir, err)
	}

	for {
		select {
		case <-done:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				ext := filepath.Ext(event.Name)
				if ext != ".yaml" && ext != ".yml" {
					continue
				}
				loaded, err := l.LoadAll()
				if err != nil {
					slog.Warn("vocabulary reload failed, keeping previous profiles",
						slog.String("dir", l.dir), slog.String("error", err.Error()))
					continue
				}
				if l.OnReload != nil {
					names := make([]string, 0, len(loaded))
					for name := range loaded {
						names = append(names, name)
					}
					sort.Strings(names)
					l.OnReload(names)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
