// Package catalog holds the fixed choice lists shown to teachers: careers,
// quick edits, subjects, grades and semesters.
package catalog

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/truonghoc/studio/internal/model"
)

//go:embed catalog.yaml
var defaultYAML []byte

// Catalog is the set of enumerated inputs.
type Catalog struct {
	Careers         []string               `yaml:"careers" json:"careers"`
	QuickEdits      []string               `yaml:"quick_edits" json:"quick_edits"`
	Subjects        []model.Subject        `yaml:"subjects" json:"subjects"`
	Grades          []string               `yaml:"grades" json:"grades"`
	Semesters       []string               `yaml:"semesters" json:"semesters"`
	ResolutionTiers []model.ResolutionTier `yaml:"resolution_tiers" json:"resolution_tiers"`
	AspectRatios    []model.AspectRatio    `yaml:"aspect_ratios" json:"aspect_ratios"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("parse embedded catalog: %v", err))
	}
	return c
}

// Load reads a catalog file. Lists missing from the file keep their
// built-in values. An empty path returns the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	override, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}

	c := Default()
	c.merge(override)
	slog.Info("catalog loaded", "path", path, "careers", len(c.Careers), "subjects", len(c.Subjects))
	return c, nil
}

// Parse decodes a catalog document and checks its enumerated values.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	for _, t := range c.ResolutionTiers {
		if !t.Valid() {
			return nil, fmt.Errorf("unsupported resolution tier %q", t)
		}
	}
	for _, a := range c.AspectRatios {
		if !a.Valid() {
			return nil, fmt.Errorf("unsupported aspect ratio %q", a)
		}
	}
	return &c, nil
}

func (c *Catalog) merge(o *Catalog) {
	if len(o.Careers) > 0 {
		c.Careers = o.Careers
	}
	if len(o.QuickEdits) > 0 {
		c.QuickEdits = o.QuickEdits
	}
	if len(o.Subjects) > 0 {
		c.Subjects = o.Subjects
	}
	if len(o.Grades) > 0 {
		c.Grades = o.Grades
	}
	if len(o.Semesters) > 0 {
		c.Semesters = o.Semesters
	}
	if len(o.ResolutionTiers) > 0 {
		c.ResolutionTiers = o.ResolutionTiers
	}
	if len(o.AspectRatios) > 0 {
		c.AspectRatios = o.AspectRatios
	}
}

// HasCareer reports whether career is one of the listed careers.
func (c *Catalog) HasCareer(career string) bool {
	return slices.Contains(c.Careers, career)
}

// HasSubject reports whether s is one of the listed subjects.
func (c *Catalog) HasSubject(s model.Subject) bool {
	return slices.Contains(c.Subjects, s)
}
