package storage

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"ledgerbot/internal/core"
)

type categorySeedFile struct {
	Categories []struct {
		Name    string   `yaml:"name"`
		Aliases []string `yaml:"aliases"`
	} `yaml:"categories"`
}

// LoadCategorySeed reads the starter category list from a YAML file of the
// form:
//
//	categories:
//	  - name: transport
//	    aliases: [taxi, bus]
func LoadCategorySeed(path string) ([]core.Category, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open category seed: %w", err)
	}
	defer f.Close()
	return ParseCategorySeed(f)
}

// ParseCategorySeed decodes and normalizes a seed document. The reserved
// category is skipped; it always exists already.
func ParseCategorySeed(r io.Reader) ([]core.Category, error) {
	var doc categorySeedFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode category seed: %w", err)
	}

	out := []core.Category{{Name: core.OtherCategory}}
	for i, entry := range doc.Categories {
		name, err := core.NormalizeCategoryName(entry.Name)
		if err != nil {
			return nil, fmt.Errorf("category seed entry %d: %w", i+1, err)
		}
		if core.IsReserved(name) {
			continue
		}
		if err := core.CheckNameAvailable(name, out); err != nil {
			return nil, fmt.Errorf("category seed entry %d: %w", i+1, err)
		}
		c := core.Category{Name: name}
		for _, alias := range entry.Aliases {
			a, err := core.NormalizeCategoryName(alias)
			if err != nil {
				return nil, fmt.Errorf("category seed entry %d alias: %w", i+1, err)
			}
			if err := core.CheckNameAvailable(a, append(out, c)); err != nil {
				return nil, fmt.Errorf("category seed entry %d alias: %w", i+1, err)
			}
			c.Aliases = append(c.Aliases, a)
		}
		out = append(out, c)
	}
	return out[1:], nil
}
