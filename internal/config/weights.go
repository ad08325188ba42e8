package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"github.com/sawpanic/signalrun/internal/domain/regime"
)

// weightMapFile is the on-disk shape of the trained weight artifact. Keys are
// regime labels; "default" is mandatory.
type weightMapFile struct {
	Default regime.WeightVector            `yaml:"default"`
	Regimes map[string]regime.WeightVector `yaml:"regimes"`
}

// LoadWeightMap reads and validates a trained weight map artifact. The map is
// validated whole before it is returned; a file with any invalid vector is
// rejected entirely.
func LoadWeightMap(path string) (regime.WeightMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return regime.WeightMap{}, fmt.Errorf("read weight map %s: %w", path, err)
	}

	var file weightMapFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return regime.WeightMap{}, fmt.Errorf("parse weight map %s: %w", path, err)
	}

	m := regime.WeightMap{Default: file.Default}
	if len(file.Regimes) > 0 {
		m.Regimes = make(map[regime.Type]regime.WeightVector, len(file.Regimes))
		for name, wv := range file.Regimes {
			m.Regimes[regime.Type(name)] = wv
		}
	}
	if err := m.Validate(); err != nil {
		return regime.WeightMap{}, fmt.Errorf("weight map %s: %w", path, err)
	}
	return m, nil
}

// SaveWeightMap writes the weight map artifact. Serializing and reloading
// reproduces identical vectors for every regime, including the default.
func SaveWeightMap(path string, m regime.WeightMap) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid weight map: %w", err)
	}

	file := weightMapFile{Default: m.Default}
	if len(m.Regimes) > 0 {
		file.Regimes = make(map[string]regime.WeightVector, len(m.Regimes))
		for r, wv := range m.Regimes {
			file.Regimes[r.String()] = wv
		}
	}

	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("marshal weight map: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create weight map directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write weight map %s: %w", path, err)
	}
	return nil
}
