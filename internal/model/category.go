package model

import "strings"

// Category classifies the kind of aid a Resource offers.
type Category string

const (
	CategoryHousing  Category = "housing"
	CategoryFood     Category = "food"
	CategoryClothing Category = "clothing"
	CategoryOther    Category = "other"
)

// Categories lists every known category in display order.
var Categories = []Category{CategoryHousing, CategoryFood, CategoryClothing, CategoryOther}

// ParseCategory matches s case-insensitively against the known categories.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}
