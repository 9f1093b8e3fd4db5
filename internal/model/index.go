package model

import (
	"fmt"
	"strings"
)

// Category selects the provider set and symbol-code convention of an index.
type Category string

const (
	CategoryDomestic    Category = "DOMESTIC"
	CategoryCrossBorder Category = "CROSS_BORDER"
)

var categoryAliases = map[string]Category{
	"domestic":     CategoryDomestic,
	"a_share":      CategoryDomestic,
	"cross_border": CategoryCrossBorder,
	"cross-border": CategoryCrossBorder,
	"hk":           CategoryCrossBorder,
}

// ParseCategory maps a config value to a Category.
func ParseCategory(s string) (Category, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if c, ok := categoryAliases[key]; ok {
		return c, nil
	}
	switch Category(strings.ToUpper(key)) {
	case CategoryDomestic, CategoryCrossBorder:
		return Category(strings.ToUpper(key)), nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// IndexSpec identifies one configured index. DisplayName is unique within a run
// and is part of the chart file name.
type IndexSpec struct {
	DisplayName string
	Category    Category
	SymbolCode  string
}

func (s IndexSpec) String() string {
	return fmt.Sprintf("%s(%s/%s)", s.DisplayName, s.Category, s.SymbolCode)
}
