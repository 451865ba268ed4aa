package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	minNameLength       = 2
	minBorrowLineLength = 3
	minFallbackName     = 4
	minFallbackDetail   = 6

	receiptDescriptionPrefix = "Extracted from receipt: "
)

var (
	quantityPrefix = regexp.MustCompile(`^\d+\s*[xX]?\s+`)
	nameNoise      = regexp.MustCompile(`[^\p{L}\p{N}_\s-]+`)
	spaceRun       = regexp.MustCompile(`\s+`)
	letter         = regexp.MustCompile(`\p{L}`)
)

// Product is a product record reconstructed from receipt text.
type Product struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Category    Category        `json:"category"`
	Description string          `json:"description"`
}

// PriceString is the canonical two-decimal price.
func (p Product) PriceString() string {
	return p.Price.StringFixed(2)
}

// ReceiptResult is the outcome of one receipt parse.
type ReceiptResult struct {
	Products []Product
	Lines    int
	// Fallback is set when the products came from the relaxed pass.
	Fallback bool
}

// ParseReceipt extracts products from recognized receipt text. source names the
// originating file and only feeds the fallback description.
func ParseReceipt(text, source string) ReceiptResult {
	lines := SplitLines(text)
	res := ReceiptResult{Lines: len(lines)}

	if products := primaryPass(lines); len(products) > 0 {
		res.Products = products
		return res
	}
	if p, ok := fallbackPass(lines, source); ok {
		res.Products = []Product{p}
		res.Fallback = true
	}
	return res
}

// ExtractProducts is ParseReceipt without the bookkeeping.
func ExtractProducts(text, source string) []Product {
	return ParseReceipt(text, source).Products
}

// CleanName strips a leading quantity token ("2x ", "3 x "), characters
// outside letters/digits/space/hyphen, and collapses whitespace.
func CleanName(raw string) string {
	s := strings.TrimSpace(raw)
	s = quantityPrefix.ReplaceAllString(s, "")
	s = nameNoise.ReplaceAllString(s, "")
	s = spaceRun.ReplaceAllString(s, " ")
	return strings.Trim(s, " -")
}

func primaryPass(lines []string) []Product {
	var products []Product
	for i, line := range lines {
		m, ok := MatchPrice(line)
		if !ok {
			continue
		}

		name := CleanName(stripPrices(line[:m.Start] + " " + line[m.End:]))
		if !usableName(name) {
			name = borrowName(lines, i)
		}
		if name == "" {
			continue
		}

		products = append(products, Product{
			Name:        name,
			Price:       m.Amount,
			Category:    InferCategory(name),
			Description: receiptDescriptionPrefix + line,
		})
	}
	return products
}

// borrowName looks at the previous line, then the next one, for a name that
// carries no price, currency or digit.
func borrowName(lines []string, i int) string {
	for _, j := range []int{i - 1, i + 1} {
		if j < 0 || j >= len(lines) {
			continue
		}
		neighbour := lines[j]
		if runeLen(neighbour) < minBorrowLineLength || hasPriceSignal(neighbour) {
			continue
		}
		if name := CleanName(neighbour); usableName(name) {
			return name
		}
	}
	return ""
}

// stripPrices blanks every remaining price on a line so a second amount
// never ends up in the name.
func stripPrices(s string) string {
	for _, p := range PricePatterns {
		s = p.Expr.ReplaceAllString(s, " ")
	}
	return s
}

// usableName requires the minimum length and at least one letter.
func usableName(name string) bool {
	return runeLen(name) >= minNameLength && letter.MatchString(name)
}

// fallbackPass produces at most one product: the first long non-price line
// is the name, the first usable price anywhere is the price, and the other
// long non-price lines become the description.
func fallbackPass(lines []string, source string) (Product, bool) {
	var (
		name      string
		price     decimal.Decimal
		havePrice bool
		descParts []string
	)

	for _, line := range lines {
		if HasPricePattern(line) {
			if !havePrice {
				if m, ok := MatchPrice(line); ok {
					price = m.Amount
					havePrice = true
				}
			}
			continue
		}
		if name == "" && runeLen(line) >= minFallbackName {
			if cleaned := CleanName(line); cleaned != "" {
				name = cleaned
				continue
			}
		}
		if runeLen(line) >= minFallbackDetail {
			descParts = append(descParts, line)
		}
	}

	if name == "" || !havePrice {
		return Product{}, false
	}

	desc := strings.Join(descParts, " ")
	if desc == "" {
		desc = fallbackDescription(source)
	}
	return Product{
		Name:        name,
		Price:       price,
		Category:    InferCategory(name),
		Description: desc,
	}, true
}

func fallbackDescription(source string) string {
	if source == "" {
		return "Product extracted from receipt image"
	}
	return "Product extracted from " + source
}
