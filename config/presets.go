package config

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"stockIndicators/internal/indicators"
	"stockIndicators/internal/ports"
	"stockIndicators/internal/theme"
)

// PresentationRules is the registry of presentation overrides per indicator kind.
type PresentationRules = theme.Registry[indicators.Kind, indicators.PresentationRule]

// presetEntry is one rule of a presets file:
//
//	rsi:
//	  - overBought: 75
//	  - tags: [dark, compact]
//	    color: "#ff0000"
type presetEntry struct {
	Tags                        []string `yaml:"tags"`
	indicators.PresentationRule `yaml:",inline"`
}

// LoadPresets reads a YAML presets file into a new registry. Entries sharing a
// kind and tag set are merged in file order.
func LoadPresets(path string) (*PresentationRules, error) {
	f, err := openPresets(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rules := theme.NewRegistry[indicators.Kind, indicators.PresentationRule]()
	if err := DecodePresets(f, rules); err != nil {
		return nil, fmt.Errorf("presets file '%s': %w", path, err)
	}
	return rules, nil
}

// DecodePresets adds the rules read from r to rules. Unknown kinds, unknown
// keys and two keys naming the same kind (such as rsi and RSI) are rejected.
func DecodePresets(r io.Reader, rules *PresentationRules) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc map[string][]presetEntry
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid presets YAML: %w: %w", ports.ErrConfigurationError, err)
	}

	// Keys are checked before any rule is merged so a rejected document
	// leaves rules untouched.
	names := slices.Sorted(maps.Keys(doc))
	kinds := make([]indicators.Kind, len(names))
	seen := make(map[indicators.Kind]string, len(names))
	for i, name := range names {
		kind, err := indicators.ParseKind(name)
		if err != nil {
			return err
		}
		if prev, ok := seen[kind]; ok {
			return fmt.Errorf("keys %q and %q both name %s: %w", prev, name, kind, ports.ErrConfigurationError)
		}
		seen[kind] = name
		kinds[i] = kind
	}

	for i, name := range names {
		for _, e := range doc[name] {
			rules.Rule(kinds[i], e.Tags...).Merge(e.PresentationRule)
		}
	}
	return nil
}

// LoadPresentationRules builds the registry used to resolve presentation: the
// env RSI thresholds form the untagged RSI base rule and the presets file,
// when configured, is layered on top.
func (c *Config) LoadPresentationRules() (*PresentationRules, error) {
	rules := theme.NewRegistry[indicators.Kind, indicators.PresentationRule]()
	overBought, overSold := c.RSIOverbought, c.RSIOversold
	rules.Rule(indicators.KindRSI).Merge(indicators.PresentationRule{OverBought: &overBought, OverSold: &overSold})

	if c.PresetsPath == "" {
		return rules, nil
	}
	f, err := openPresets(c.PresetsPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := DecodePresets(f, rules); err != nil {
		return nil, fmt.Errorf("presets file '%s': %w", c.PresetsPath, err)
	}
	return rules, nil
}

func openPresets(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open presets file '%s': %w", path, err)
	}
	return f, nil
}
