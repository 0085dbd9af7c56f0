package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func scenarioRules() []PromotionRule {
	return []PromotionRule{
		{MinQuantity: 3, PricePerUnit: d("9.00")},
		{MinQuantity: 10, PricePerUnit: d("8.00")},
	}
}

func TestScenarioTierMatches(t *testing.T) {
	rules := scenarioRules()

	rule, ok := ApplicableRule(5, rules)
	require.True(t, ok)
	assert.Equal(t, 3, rule.MinQuantity)
	assert.True(t, UnitPriceFor(5, d("10.00"), rules).Equal(d("9.00")))
	assert.True(t, ComputeLineTotal(5, d("10.00"), rules).Equal(d("45.00")))
}

func TestScenarioBelowEveryTier(t *testing.T) {
	rules := scenarioRules()

	_, ok := ApplicableRule(2, rules)
	assert.False(t, ok)
	assert.True(t, UnitPriceFor(2, d("10.00"), rules).Equal(d("10.00")))
	assert.True(t, ComputeLineTotal(2, d("10.00"), rules).Equal(d("20.00")))
}

func TestHighestQualifyingTierWins(t *testing.T) {
	rules := scenarioRules()

	rule, ok := ApplicableRule(10, rules)
	require.True(t, ok)
	assert.Equal(t, 10, rule.MinQuantity)
	assert.True(t, ComputeLineTotal(12, d("10.00"), rules).Equal(d("96.00")))
}

func TestNoRulesFallback(t *testing.T) {
	base := d("12.35")
	for q := 1; q <= 50; q++ {
		expected := base.Mul(decimal.NewFromInt(int64(q)))
		assert.True(t, ComputeLineTotal(q, base, nil).Equal(expected), "nil rules q=%d", q)
		assert.True(t, ComputeLineTotal(q, base, []PromotionRule{}).Equal(expected), "empty rules q=%d", q)
	}
}

func TestTierSelectionIsMonotonic(t *testing.T) {
	rules := []PromotionRule{
		{MinQuantity: 25, PricePerUnit: d("70")},
		{MinQuantity: 5, PricePerUnit: d("90")},
		{MinQuantity: 10, PricePerUnit: d("80")},
	}
	base := d("100")

	prev := UnitPriceFor(1, base, rules)
	for q := 2; q <= 40; q++ {
		current := UnitPriceFor(q, base, rules)
		assert.True(t, current.LessThanOrEqual(prev), "unit price rose at q=%d: %s > %s", q, current, prev)
		prev = current
	}
}

func TestPricingIsIdempotent(t *testing.T) {
	rules := scenarioRules()
	first := ComputeLineTotal(7, d("10"), rules)
	second := ComputeLineTotal(7, d("10"), rules)
	assert.True(t, first.Equal(second))

	r1, ok1 := ApplicableRule(7, rules)
	r2, ok2 := ApplicableRule(7, rules)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, r1.MinQuantity, r2.MinQuantity)
}

func TestDuplicateMinQuantityPrefersLowestPrice(t *testing.T) {
	rules := []PromotionRule{
		{MinQuantity: 5, PricePerUnit: d("9.50")},
		{MinQuantity: 5, PricePerUnit: d("8.75")},
		{MinQuantity: 5, PricePerUnit: d("9.00")},
	}
	rule, ok := ApplicableRule(6, rules)
	require.True(t, ok)
	assert.True(t, rule.PricePerUnit.Equal(d("8.75")))
}

func TestApplicableRuleDoesNotReorderInput(t *testing.T) {
	rules := scenarioRules()
	_, _ = ApplicableRule(5, rules)
	assert.Equal(t, 3, rules[0].MinQuantity)
	assert.Equal(t, 10, rules[1].MinQuantity)
}

func TestPriceLine(t *testing.T) {
	line := PriceLine(5, d("10.00"), scenarioRules())
	require.NotNil(t, line.AppliedRule)
	assert.Equal(t, 3, line.AppliedRule.MinQuantity)
	assert.True(t, line.UnitPrice.Equal(d("9")))
	assert.True(t, line.LineTotal.Equal(d("45")))
	assert.True(t, line.Savings.Equal(d("5")))

	plain := PriceLine(1, d("10.00"), nil)
	assert.Nil(t, plain.AppliedRule)
	assert.True(t, plain.Savings.IsZero())

	assert.True(t, Subtotal([]Line{line, plain}).Equal(d("55")))
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		name  string
		input any
		want  string
	}{
		{name: "string", input: "10.50", want: "10.5"},
		{name: "padded string", input: " 9.00 ", want: "9"},
		{name: "int", input: 12, want: "12"},
		{name: "float", input: 8.25, want: "8.25"},
		{name: "decimal", input: d("3.10"), want: "3.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAmount(tc.input)
			require.NoError(t, err)
			assert.True(t, got.Equal(d(tc.want)), "got %s", got)
		})
	}

	for _, bad := range []any{"", "abc", nil, struct{}{}} {
		_, err := ParseAmount(bad)
		assert.Error(t, err, "input %#v", bad)
	}
}

func TestRoundCurrency(t *testing.T) {
	assert.Equal(t, "10.13", RoundCurrency(d("10.125")).StringFixed(2))
	assert.Equal(t, "-10.13", RoundCurrency(d("-10.125")).StringFixed(2))
	assert.Equal(t, "3.00", RoundCurrency(d("2.999")).StringFixed(2))
}
