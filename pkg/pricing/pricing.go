// Package pricing computes quantity-tiered promotional prices.
package pricing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// PromotionRule is a quantity break: at or above MinQuantity units the
// per-unit price becomes PricePerUnit.
type PromotionRule struct {
	MinQuantity  int             `json:"min_quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
}

// ApplicableRule returns the tier that applies to quantity. Rules are
// evaluated from the highest MinQuantity down; when two rules share a
// MinQuantity the lower PricePerUnit wins.
func ApplicableRule(quantity int, rules []PromotionRule) (PromotionRule, bool) {
	if len(rules) == 0 {
		return PromotionRule{}, false
	}
	for _, rule := range sortedRules(rules) {
		if rule.MinQuantity <= quantity {
			return rule, true
		}
	}
	return PromotionRule{}, false
}

// UnitPriceFor returns the per-unit price for quantity: the matching tier's
// price, or basePrice when no tier qualifies.
func UnitPriceFor(quantity int, basePrice decimal.Decimal, rules []PromotionRule) decimal.Decimal {
	if rule, ok := ApplicableRule(quantity, rules); ok {
		return rule.PricePerUnit
	}
	return basePrice
}

// ComputeLineTotal returns the extended price for quantity units.
func ComputeLineTotal(quantity int, basePrice decimal.Decimal, rules []PromotionRule) decimal.Decimal {
	return UnitPriceFor(quantity, basePrice, rules).Mul(decimal.NewFromInt(int64(quantity)))
}

// RoundCurrency rounds an amount to cents, half away from zero.
func RoundCurrency(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// ParseAmount normalizes a numeric value or decimal string into a Decimal.
func ParseAmount(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, fmt.Errorf("amount is nil")
		}
		return *v, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return decimal.Zero, fmt.Errorf("amount is empty")
		}
		parsed, err := decimal.NewFromString(trimmed)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid amount %q: %w", v, err)
		}
		return parsed, nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case nil:
		return decimal.Zero, fmt.Errorf("amount is nil")
	default:
		return decimal.Zero, fmt.Errorf("unsupported amount type %T", value)
	}
}

// sortedRules returns a copy of rules ordered by MinQuantity descending and,
// within equal MinQuantity, by PricePerUnit ascending.
func sortedRules(rules []PromotionRule) []PromotionRule {
	ordered := make([]PromotionRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].MinQuantity != ordered[j].MinQuantity {
			return ordered[i].MinQuantity > ordered[j].MinQuantity
		}
		return ordered[i].PricePerUnit.LessThan(ordered[j].PricePerUnit)
	})
	return ordered
}
