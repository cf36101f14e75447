package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", "Shoes", "shoes"},
		{"internal whitespace", "Summer   Dresses", "summer-dresses"},
		{"mixed scripts", "Tops & T-Shirts (تيشرتات)", "tops-t-shirts"},
		{"diacritics", "Café Crème", "cafe-creme"},
		{"repeated hyphens", "Kids -- Toys", "kids-toys"},
		{"leading and trailing", "  -Sale- ", "sale"},
		{"digits kept", "Size 42 Boots", "size-42-boots"},
		{"tabs and newlines", "Home\t\nGarden", "home-garden"},
		{"vertical tab", "Tops\vShirts", "tops-shirts"},
		{"no-break space", "Tops\u00a0Shirts", "tops-shirts"},
		{"em space", "Tops\u2003Shirts", "tops-shirts"},
		{"ideographic space", "Tops\u3000Shirts", "tops-shirts"},
		{"mixed unicode spaces", "Tops \u00a0\u2009 Shirts", "tops-shirts"},
		{"only symbols", "!!! ???", ""},
		{"only arabic", "تيشرتات", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Generate(tt.input))
		})
	}
}

func TestGenerate_OutputAlphabet(t *testing.T) {
	got := Generate("Ünïcödé — Ñame № 7 ✓")
	assert.Regexp(t, `^[a-z0-9]+(-[a-z0-9]+)*$`, got)
}
