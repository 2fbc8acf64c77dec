package rules

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/ppiankov/clawshield/internal/models"
	"gopkg.in/yaml.v3"
)

// Pack is the on-disk format for additional rules.
type Pack struct {
	Version string     `yaml:"version"`
	Rules   []PackRule `yaml:"rules"`
}

// PackRule is a single rule as written in a pack file.
type PackRule struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Tier        string `yaml:"tier"`
	Weight      int    `yaml:"weight"`
	Description string `yaml:"description"`
	Pattern     string `yaml:"pattern"`
}

// LoadPack reads and compiles a rule pack file.
func LoadPack(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule pack: %w", err)
	}
	return ParsePack(data)
}

// ParsePack compiles rules from pack YAML. Patterns are case-insensitive,
// like the built-in ones.
func ParsePack(data []byte) ([]Rule, error) {
	var p Pack
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse rule pack: %w", err)
	}

	out := make([]Rule, 0, len(p.Rules))
	for i, pr := range p.Rules {
		if strings.TrimSpace(pr.Pattern) == "" {
			return nil, fmt.Errorf("rule pack entry %d (%s): pattern is required", i, pr.ID)
		}
		re, err := regexp.Compile("(?i)" + pr.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule pack entry %d (%s): %w", i, pr.ID, err)
		}
		r := Rule{
			ID:          strings.TrimSpace(pr.ID),
			Name:        pr.Name,
			Tier:        models.Severity(strings.ToUpper(strings.TrimSpace(pr.Tier))),
			Weight:      pr.Weight,
			Description: pr.Description,
			Pattern:     re,
		}
		if r.Name == "" {
			r.Name = r.ID
		}
		if err := validate(r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Load returns the built-in catalog, extended with the rules from packPath
// when it is non-empty.
func Load(packPath string) (*Catalog, error) {
	c := Default()
	if packPath == "" {
		return c, nil
	}
	extra, err := LoadPack(packPath)
	if err != nil {
		return nil, err
	}
	return c.Merge(extra)
}
