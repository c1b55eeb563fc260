package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed data/catalog.yaml
var defaultCatalogYAML []byte

// Loader fetches level definitions from a backing source (YAML file, Postgres, ...).
type Loader interface {
	LoadLevels(ctx context.Context) ([]LevelDefinition, error)
}

// Load builds the catalog from a loader.
func Load(ctx context.Context, loader Loader, defaultLocale string, locales []string) (*Catalog, error) {
	levels, err := loader.LoadLevels(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if len(levels) == 0 {
		return nil, fmt.Errorf("load catalog: no levels defined")
	}
	return New(levels, defaultLocale, locales)
}

// FileLoader reads a YAML catalog from disk, or the embedded default when no path is set.
type FileLoader struct {
	path string
}

func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

func (l *FileLoader) LoadLevels(_ context.Context) ([]LevelDefinition, error) {
	data := defaultCatalogYAML
	if l.path != "" {
		raw, err := os.ReadFile(l.path)
		if err != nil {
			return nil, err
		}
		data = raw
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) ([]LevelDefinition, error) {
	var doc struct {
		Levels []LevelDefinition `yaml:"levels"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return doc.Levels, nil
}

// StaticLoader serves fixed definitions (useful for tests/demos).
type StaticLoader struct {
	levels []LevelDefinition
}

func NewStaticLoader(levels []LevelDefinition) *StaticLoader {
	return &StaticLoader{levels: levels}
}

func (l *StaticLoader) LoadLevels(_ context.Context) ([]LevelDefinition, error) {
	return l.levels, nil
}
