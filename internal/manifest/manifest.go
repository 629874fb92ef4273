// Package manifest loads the benchmark manifest: a mapping from language
// name to the ordered list of benchmark ids to run for it.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest maps a language name to its benchmark ids, in run order.
type Manifest map[string][]string

// Load reads a manifest file. Files ending in .yaml or .yml are decoded as
// YAML, everything else as JSON.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	default:
		err = json.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if m == nil {
		return nil, fmt.Errorf("manifest %s is empty", path)
	}
	return m, nil
}

// Languages returns the language names in sorted order.
func (m Manifest) Languages() []string {
	langs := make([]string, 0, len(m))
	for lang := range m {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Total returns the number of (language, id) pairs.
func (m Manifest) Total() int {
	n := 0
	for _, ids := range m {
		n += len(ids)
	}
	return n
}
