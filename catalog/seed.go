package catalog

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

// SeedTools returns the built-in starter catalog.
func SeedTools() ([]*Tool, error) {
	return parseSeed(seedYAML)
}

// LoadSeedFile reads a seed catalog in the same YAML layout as the
// built-in one.
func LoadSeedFile(path string) ([]*Tool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("seed: open: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("seed: read: %w", err)
	}
	return parseSeed(data)
}

func parseSeed(data []byte) ([]*Tool, error) {
	var tools []*Tool
	if err := yaml.Unmarshal(data, &tools); err != nil {
		return nil, fmt.Errorf("seed: parse: %w", err)
	}
	for i, t := range tools {
		if t.Name == "" || t.URL == "" || t.Summary == "" {
			return nil, fmt.Errorf("seed: entry %d: name, url and summary are required", i)
		}
		if len(t.Categories) == 0 {
			t.Categories = []string{"uncategorized"}
		}
	}
	return tools, nil
}
