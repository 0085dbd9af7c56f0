package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dermafill/storefront-backend/pkg/db/models"
	"github.com/dermafill/storefront-backend/pkg/enums"
	"github.com/dermafill/storefront-backend/pkg/pricing"
)

// PriceItems prices items against the loaded products. Lines whose product is
// missing or inactive are dropped with a warning; over-stock lines are priced
// and flagged.
func PriceItems(items []ItemInput, products map[uuid.UUID]*models.Product) *CartDTO {
	out := &CartDTO{
		Lines:    make([]LineDTO, 0, len(items)),
		Warnings: []Warning{},
		Subtotal: decimal.Zero,
		Savings:  decimal.Zero,
		Currency: enums.CurrencyEUR,
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		product, ok := products[item.ProductID]
		if !ok || product == nil || !product.IsActive {
			out.Warnings = append(out.Warnings, Warning{ProductID: item.ProductID, Type: WarningProductUnavailable})
			continue
		}
		if item.Quantity > product.Stock {
			out.Warnings = append(out.Warnings, Warning{ProductID: item.ProductID, Type: WarningInsufficientStock, Available: product.Stock})
		}

		line := pricing.PriceLine(item.Quantity, product.BasePrice, product.PricingRules())
		out.Lines = append(out.Lines, LineDTO{
			ProductID: product.ID,
			SKU:       product.SKU,
			Name:      product.Name,
			ImageURL:  product.ImageURL,
			Line:      line,
		})
		out.ItemCount += item.Quantity
		out.Savings = out.Savings.Add(line.Savings)
	}

	lines := make([]pricing.Line, len(out.Lines))
	for i := range out.Lines {
		lines[i] = out.Lines[i].Line
	}
	out.Subtotal = pricing.Subtotal(lines)
	out.Total = pricing.RoundCurrency(out.Subtotal)
	return out
}

// mergeItems folds duplicate product ids into one line.
func mergeItems(items []ItemInput) []ItemInput {
	index := make(map[uuid.UUID]int, len(items))
	merged := make([]ItemInput, 0, len(items))
	for _, item := range items {
		if pos, ok := index[item.ProductID]; ok {
			merged[pos].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged
}
