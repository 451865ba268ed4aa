package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferCategory(t *testing.T) {
	tests := []struct {
		name string
		want Category
	}{
		{name: "Blue Cotton Shirt", want: CategoryShirts},
		{name: "Silk BLOUSE", want: CategoryShirts},
		{name: "Tank Top", want: CategoryShirts},
		{name: "Slim Jeans", want: CategoryPants},
		{name: "Wool Trousers", want: CategoryPants},
		{name: "Evening Gown", want: CategoryDresses},
		{name: "Ankle Boots", want: CategoryShoes},
		{name: "Leather Wallet", want: CategoryAccessories},
		{name: "Rain Coat", want: CategoryOuterwear},
		{name: "Cotton Socks", want: CategoryIntimates},
		{name: "Widget", want: CategoryClothing},
		{name: "T-Shirts", want: CategoryShirts},
		{name: "Summer Dresses", want: CategoryDresses},
		{name: "2 Pairs Sneakers", want: CategoryShoes},
		// Keywords inside longer words do not count.
		{name: "Gold Bracelet", want: CategoryClothing},
		{name: "Laptop Sleeve", want: CategoryClothing},
		{name: "Desktop Organizer", want: CategoryClothing},
		{name: "Chat Mug", want: CategoryClothing},
		{name: "Brand Sticker", want: CategoryClothing},
		{name: "Zebra Print", want: CategoryClothing},
		{name: "Escape Room Pass", want: CategoryClothing},
		{name: "围巾", want: CategoryClothing},
		// Bins are ordered; a shirt keyword beats a later bin.
		{name: "Shirt Dress", want: CategoryShirts},
		{name: "Dress Shoes", want: CategoryDresses},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferCategory(tt.name))
		})
	}
}

func TestInferCategory_TotalAndIdempotent(t *testing.T) {
	names := []string{"Widget", "Slim Jeans", "x", "LAPTOP SLEEVE", "Hat", "123", "Sweater Vest"}
	for _, name := range names {
		first := InferCategory(name)
		assert.True(t, IsKnownCategory(string(first)), name)
		assert.NotEqual(t, CategoryUncategorized, first, name)
		assert.Equal(t, first, InferCategory(name), name)
	}
}

func TestCategories(t *testing.T) {
	cats := Categories()

	assert.Len(t, cats, 9)
	assert.Equal(t, CategoryShirts, cats[0])
	assert.Contains(t, cats, CategoryClothing)
	assert.Contains(t, cats, CategoryUncategorized)
	assert.True(t, IsKnownCategory("Outerwear"))
	assert.False(t, IsKnownCategory("outerwear"))
}
