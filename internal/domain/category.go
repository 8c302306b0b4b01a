package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Category is a USDM drought severity level, D0 through D4.
type Category int

const (
	D0 Category = iota // Abnormally Dry
	D1                 // Moderate Drought
	D2                 // Severe Drought
	D3                 // Extreme Drought
	D4                 // Exceptional Drought
)

// Categories lists all severity levels in ascending order.
func Categories() []Category {
	return []Category{D0, D1, D2, D3, D4}
}

func (c Category) String() string {
	return fmt.Sprintf("D%d", int(c))
}

// Label returns the official USDM name for the category.
func (c Category) Label() string {
	switch c {
	case D0:
		return "Abnormally Dry"
	case D1:
		return "Moderate Drought"
	case D2:
		return "Severe Drought"
	case D3:
		return "Extreme Drought"
	case D4:
		return "Exceptional Drought"
	}
	return "Unknown"
}

// CategoryFromAttribute parses a shapefile DM attribute value. Source files
// store a bare integer ("2"); a "D" prefix is also accepted. Values outside
// the D0-D4 range are an error.
func CategoryFromAttribute(s string) (Category, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "D")
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("parse DM attribute %q: %w", s, err)
	}
	if n < 0 || n > 4 {
		return 0, fmt.Errorf("DM attribute %q outside D0-D4 range", s)
	}
	return Category(n), nil
}
