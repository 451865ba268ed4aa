package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// PricePattern is one currency-anchored matcher. The first capture group of
// Expr must hold the numeric portion of the price.
type PricePattern struct {
	Name string
	Expr *regexp.Regexp
}

// PricePatterns are tried in order against a line; the first match wins.
var PricePatterns = []PricePattern{
	{
		Name: "symbol-prefix",
		Expr: regexp.MustCompile(`[$€£]\s?(\d{1,3}(?:,\d{3})+\.\d{2}|\d+\.\d{2})`),
	},
	{
		Name: "symbol-suffix",
		Expr: regexp.MustCompile(`(\d{1,3}(?:,\d{3})+(?:\.\d{2})?|\d+(?:\.\d{2})?)\s?[$€£¥￥]`),
	},
	{
		Name: "yen-prefix",
		Expr: regexp.MustCompile(`[¥￥]\s?(\d{1,3}(?:,\d{3})+(?:\.\d{2})?|\d+(?:\.\d{2})?)`),
	},
	{
		Name: "trailing-decimal",
		Expr: regexp.MustCompile(`(\d{1,3}(?:,\d{3})+\.\d{2}|\d+\.\d{2})\s*$`),
	},
}

var (
	// EmailPattern matches local@domain.tld shapes.
	EmailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	// PhonePattern is deliberately loose and will also hit SKUs or long
	// numbers. Callers keep the first candidate per record.
	PhonePattern = regexp.MustCompile(`\+?[1-9]?[\d\s\-()]{8,15}`)

	priceSignal = regexp.MustCompile(`[\d$€£¥￥]`)
	phoneFiller = regexp.MustCompile(`[\s\-()]+`)
)

// PriceMatch is a price located inside a line.
type PriceMatch struct {
	Amount  decimal.Decimal
	Text    string
	Start   int
	End     int
	Pattern string
}

// Canonical renders the amount with exactly two fractional digits.
func (m PriceMatch) Canonical() string {
	return m.Amount.StringFixed(2)
}

// MatchPrice runs PricePatterns against line. A matched amount that does not
// parse to a positive number disqualifies the line.
func MatchPrice(line string) (PriceMatch, bool) {
	for _, p := range PricePatterns {
		loc := p.Expr.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}
		amount, err := ParseAmount(line[loc[2]:loc[3]])
		if err != nil || !amount.IsPositive() {
			return PriceMatch{}, false
		}
		return PriceMatch{
			Amount:  amount,
			Text:    line[loc[0]:loc[1]],
			Start:   loc[0],
			End:     loc[1],
			Pattern: p.Name,
		}, true
	}
	return PriceMatch{}, false
}

// HasPricePattern reports whether any price pattern matches line, regardless
// of whether the amount is usable.
func HasPricePattern(line string) bool {
	for _, p := range PricePatterns {
		if p.Expr.MatchString(line) {
			return true
		}
	}
	return false
}

// ParseAmount strips thousands separators and parses the remainder.
func ParseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
}

// MatchEmail returns the first email in line and its byte offset.
func MatchEmail(line string) (string, int, bool) {
	loc := EmailPattern.FindStringIndex(line)
	if loc == nil {
		return "", -1, false
	}
	return line[loc[0]:loc[1]], loc[0], true
}

// MatchPhone returns the first phone candidate in line with spacing and
// separators removed. A candidate made only of separators still counts and is
// returned without its whitespace.
func MatchPhone(line string) (string, bool) {
	raw := PhonePattern.FindString(line)
	if raw == "" {
		return "", false
	}
	if phone := phoneFiller.ReplaceAllString(raw, ""); phone != "" {
		return phone, true
	}
	return strings.Join(strings.Fields(raw), ""), true
}

func hasPriceSignal(line string) bool {
	return priceSignal.MatchString(line) || HasPricePattern(line)
}
