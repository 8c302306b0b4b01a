package domain

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Style holds the colors and line weights used to draw a drought map.
// Colors are hex strings ("#rrggbb") as understood by the rendering backend.
type Style struct {
	Background   string            // page background
	LandFill     string            // boundary layer fill
	BoundaryLine string            // boundary outline stroke
	TitleColor   string            // title text
	LineWidth    float64           // boundary outline width in pixels
	Categories   map[string]string // severity fill by category name, D0-D4
}

// DefaultStyle returns the standard USDM severity palette over a neutral
// boundary backdrop.
func DefaultStyle() Style {
	return Style{
		Background:   "#ffffff",
		LandFill:     "#ededed",
		BoundaryLine: "#999999",
		TitleColor:   "#333333",
		LineWidth:    0.6,
		Categories: map[string]string{
			"D0": "#ffff00",
			"D1": "#fcd37f",
			"D2": "#ffaa00",
			"D3": "#e60000",
			"D4": "#730000",
		},
	}
}

// CategoryColor returns the fill color for a severity category, or an error
// when the style does not define one.
func (s Style) CategoryColor(c Category) (string, error) {
	color, ok := s.Categories[c.String()]
	if !ok {
		return "", fmt.Errorf("style has no color for category %s", c)
	}
	return color, nil
}

// styleFile is the YAML shape of a stylesheet. Every field is optional;
// absent fields keep their default.
type styleFile struct {
	Background   string            `yaml:"background"`
	LandFill     string            `yaml:"land_fill"`
	BoundaryLine string            `yaml:"boundary_line"`
	TitleColor   string            `yaml:"title_color"`
	LineWidth    *float64          `yaml:"line_width"`
	Categories   map[string]string `yaml:"categories"`
}

// LoadStyle reads a YAML stylesheet and overlays it onto the defaults.
// Only keys present in the file are replaced. Category keys must name a
// known severity level.
func LoadStyle(path string) (Style, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Style{}, fmt.Errorf("read style %s: %w", path, err)
	}

	var file styleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Style{}, fmt.Errorf("parse style %s: %w", path, err)
	}

	style := DefaultStyle()
	if file.Background != "" {
		style.Background = file.Background
	}
	if file.LandFill != "" {
		style.LandFill = file.LandFill
	}
	if file.BoundaryLine != "" {
		style.BoundaryLine = file.BoundaryLine
	}
	if file.TitleColor != "" {
		style.TitleColor = file.TitleColor
	}
	if file.LineWidth != nil {
		style.LineWidth = *file.LineWidth
	}
	for key, color := range file.Categories {
		if _, err := CategoryFromAttribute(key); err != nil {
			return Style{}, fmt.Errorf("style %s: unknown category %q", path, key)
		}
		style.Categories[key] = color
	}
	return style, nil
}
