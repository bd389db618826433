package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CatalogProduct is one product entry of the seed catalog file.
type CatalogProduct struct {
	Name            string  `yaml:"name"`
	Price           float64 `yaml:"price"`
	CooldownSeconds int64   `yaml:"cooldown_seconds"`
	Mode            string  `yaml:"mode"`
	PrecheckLevel   int     `yaml:"precheck_level"`
	PrecheckFormat  string  `yaml:"precheck_format"`
}

// Catalog is the YAML product seed file.
type Catalog struct {
	Products []CatalogProduct `yaml:"products"`
}

// LoadCatalog reads a product seed catalog.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}

	return catalog, nil
}
