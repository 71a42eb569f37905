// Package template loads hypothesis template sets from YAML
// configuration. Template content is supplied by domain experts; the
// engine treats it as opaque seeds.
package template

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Harshitk-cp/prospector/internal/domain"
	"github.com/Harshitk-cp/prospector/internal/store"
	"gopkg.in/yaml.v3"
)

type templateFile struct {
	Templates []domain.TemplateSet `yaml:"templates"`
}

// Loader implements domain.TemplateSource over a directory of YAML files.
// Files are parsed once at construction; lookups are read-only after that.
type Loader struct {
	mu   sync.RWMutex
	sets map[string]*domain.TemplateSet
}

// NewLoader parses every *.yaml file in dir.
func NewLoader(dir string) (*Loader, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}

	l := &Loader{sets: make(map[string]*domain.TemplateSet)}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read template file %s: %w", path, err)
		}
		if err := l.addYAML(data); err != nil {
			return nil, fmt.Errorf("parse template file %s: %w", path, err)
		}
	}
	return l, nil
}

// NewLoaderFromBytes parses one in-memory YAML document, for tests and
// embedded defaults.
func NewLoaderFromBytes(data []byte) (*Loader, error) {
	l := &Loader{sets: make(map[string]*domain.TemplateSet)}
	if err := l.addYAML(data); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Loader) addYAML(data []byte) error {
	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}
	for i := range file.Templates {
		set := file.Templates[i]
		if err := validateSet(&set); err != nil {
			return err
		}
		l.sets[set.ID] = &set
	}
	return nil
}

func (l *Loader) Get(ctx context.Context, templateID string) (*domain.TemplateSet, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	set, ok := l.sets[templateID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return set, nil
}

// IDs lists the loaded template identifiers.
func (l *Loader) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.sets))
	for id := range l.sets {
		ids = append(ids, id)
	}
	return ids
}

func validateSet(set *domain.TemplateSet) error {
	if set.ID == "" {
		return fmt.Errorf("template set missing id")
	}
	if len(set.Seeds) == 0 {
		return fmt.Errorf("template set %q has no seeds", set.ID)
	}
	for i, seed := range set.Seeds {
		if seed.Category == "" || seed.Statement == "" {
			return fmt.Errorf("template set %q seed %d missing category or statement", set.ID, i)
		}
		if seed.Prior < 0 || seed.Prior > 1 {
			return fmt.Errorf("template set %q seed %d prior %.3f outside [0,1]", set.ID, i, seed.Prior)
		}
		if seed.PatternKey == "" {
			set.Seeds[i].PatternKey = seed.Category + "/" + seed.Statement
		}
	}
	return nil
}
