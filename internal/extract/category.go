package extract

import (
	"strings"
	"unicode"
)

// Category is a catalog category label.
type Category string

const (
	CategoryShirts      Category = "Shirts"
	CategoryPants       Category = "Pants"
	CategoryDresses     Category = "Dresses"
	CategoryShoes       Category = "Shoes"
	CategoryAccessories Category = "Accessories"
	CategoryOuterwear   Category = "Outerwear"
	CategoryIntimates   Category = "Intimates"
	CategoryClothing    Category = "Clothing"

	// CategoryUncategorized is the spreadsheet-import default; inference never
	// produces it.
	CategoryUncategorized Category = "uncategorized"
)

// CategoryBin maps a category to the lower-case keywords that select it.
type CategoryBin struct {
	Category Category
	Keywords []string
}

// CategoryBins are checked in order; the first bin with a keyword among the
// words of the name wins. A word matches a keyword exactly or as its plural.
var CategoryBins = []CategoryBin{
	{Category: CategoryShirts, Keywords: []string{"shirt", "blouse", "top"}},
	{Category: CategoryPants, Keywords: []string{"pant", "jean", "trouser"}},
	{Category: CategoryDresses, Keywords: []string{"dress", "gown"}},
	{Category: CategoryShoes, Keywords: []string{"shoe", "boot", "sneaker"}},
	{Category: CategoryAccessories, Keywords: []string{"bag", "purse", "wallet", "hat", "cap", "scarf"}},
	{Category: CategoryOuterwear, Keywords: []string{"jacket", "coat", "sweater"}},
	{Category: CategoryIntimates, Keywords: []string{"sock", "underwear", "bra"}},
}

// Categories lists every label a product may carry.
func Categories() []Category {
	out := make([]Category, 0, len(CategoryBins)+2)
	for _, bin := range CategoryBins {
		out = append(out, bin.Category)
	}
	return append(out, CategoryClothing, CategoryUncategorized)
}

// InferCategory classifies a product name, defaulting to Clothing.
func InferCategory(name string) Category {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, bin := range CategoryBins {
		for _, kw := range bin.Keywords {
			for _, w := range words {
				if keywordMatch(w, kw) {
					return bin.Category
				}
			}
		}
	}
	return CategoryClothing
}

func keywordMatch(word, kw string) bool {
	rest, ok := strings.CutPrefix(word, kw)
	return ok && (rest == "" || rest == "s" || rest == "es")
}

// IsKnownCategory reports whether label is one of Categories.
func IsKnownCategory(label string) bool {
	for _, c := range Categories() {
		if string(c) == label {
			return true
		}
	}
	return false
}
