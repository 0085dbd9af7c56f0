package pricing

import "github.com/shopspring/decimal"

// Line is the priced view of a quantity of one product.
type Line struct {
	Quantity    int             `json:"quantity"`
	BasePrice   decimal.Decimal `json:"base_price"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	AppliedRule *PromotionRule  `json:"applied_rule,omitempty"`
	Savings     decimal.Decimal `json:"savings"`
}

// PriceLine evaluates all three pricing operations for one line.
func PriceLine(quantity int, basePrice decimal.Decimal, rules []PromotionRule) Line {
	line := Line{
		Quantity:  quantity,
		BasePrice: basePrice,
		UnitPrice: UnitPriceFor(quantity, basePrice, rules),
		LineTotal: ComputeLineTotal(quantity, basePrice, rules),
	}
	if rule, ok := ApplicableRule(quantity, rules); ok {
		applied := rule
		line.AppliedRule = &applied
	}
	line.Savings = basePrice.Mul(decimal.NewFromInt(int64(quantity))).Sub(line.LineTotal)
	return line
}

// Subtotal sums the line totals.
func Subtotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.LineTotal)
	}
	return total
}
