package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	product "github.com/dermafill/storefront-backend/internal/products"
	"github.com/dermafill/storefront-backend/pkg/db"
	"github.com/dermafill/storefront-backend/pkg/db/models"
	"github.com/dermafill/storefront-backend/pkg/enums"
	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
)

type fixture struct {
	svc      Service
	tiered   *models.Product
	plain    *models.Product
	inactive *models.Product
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn, err := db.OpenSQLite("file:cart_" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)

	tiered := &models.Product{
		SKU: "HA-1", Name: "Lips 1ml", Slug: "lips-1ml", Category: enums.ProductCategoryDermalFiller,
		BasePrice: dec("10.00"), Currency: enums.CurrencyEUR, Stock: 20, IsActive: true,
		PromotionRules: []models.PromotionRule{
			{MinQuantity: 3, PricePerUnit: dec("9.00")},
			{MinQuantity: 10, PricePerUnit: dec("8.00")},
		},
	}
	plain := &models.Product{
		SKU: "SB-1", Name: "Booster", Slug: "booster", Category: enums.ProductCategorySkinBooster,
		BasePrice: dec("25.50"), Currency: enums.CurrencyEUR, Stock: 2, IsActive: true,
	}
	inactive := &models.Product{
		SKU: "OLD-1", Name: "Retired", Slug: "retired", Category: enums.ProductCategoryAccessory,
		BasePrice: dec("5.00"), Currency: enums.CurrencyEUR, Stock: 10, IsActive: false,
	}
	for _, p := range []*models.Product{tiered, plain, inactive} {
		require.NoError(t, conn.Create(p).Error)
	}

	svc, err := NewService(NewRepository(conn), product.NewRepository(conn), 100)
	require.NoError(t, err)
	return fixture{svc: svc, tiered: tiered, plain: plain, inactive: inactive}
}

func TestQuotePricesTiersAndMergesDuplicates(t *testing.T) {
	f := newFixture(t)
	quote, err := f.svc.Quote(context.Background(), QuoteRequest{Items: []ItemInput{
		{ProductID: f.tiered.ID, Quantity: 2},
		{ProductID: f.tiered.ID, Quantity: 3},
		{ProductID: f.plain.ID, Quantity: 1},
	}})
	require.NoError(t, err)
	require.Len(t, quote.Lines, 2)
	assert.Empty(t, quote.Warnings)
	assert.True(t, quote.Checkoutable())

	assert.Equal(t, 5, quote.Lines[0].Quantity)
	assert.True(t, quote.Lines[0].LineTotal.Equal(dec("45")))
	assert.True(t, quote.Lines[0].Savings.Equal(dec("5")))
	assert.True(t, quote.Subtotal.Equal(dec("70.5")), quote.Subtotal.String())
	assert.True(t, quote.Total.Equal(dec("70.50")))
	assert.Equal(t, 6, quote.ItemCount)
}

func TestQuoteFlagsUnavailableAndStock(t *testing.T) {
	f := newFixture(t)
	quote, err := f.svc.Quote(context.Background(), QuoteRequest{Items: []ItemInput{
		{ProductID: f.inactive.ID, Quantity: 1},
		{ProductID: uuid.New(), Quantity: 1},
		{ProductID: f.plain.ID, Quantity: 3},
	}})
	require.NoError(t, err)
	require.Len(t, quote.Lines, 1)
	require.Len(t, quote.Warnings, 3)
	assert.Equal(t, WarningProductUnavailable, quote.Warnings[0].Type)
	assert.Equal(t, WarningInsufficientStock, quote.Warnings[2].Type)
	assert.Equal(t, 2, quote.Warnings[2].Available)
	assert.False(t, quote.Checkoutable())

	_, err = f.svc.Quote(context.Background(), QuoteRequest{Items: []ItemInput{{ProductID: f.plain.ID, Quantity: 101}}})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestSavedCartLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()

	cart, err := f.svc.SetItem(ctx, user, ItemInput{ProductID: f.tiered.ID, Quantity: 10})
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.True(t, cart.Lines[0].UnitPrice.Equal(dec("8")))

	cart, err = f.svc.SetItem(ctx, user, ItemInput{ProductID: f.tiered.ID, Quantity: 4})
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.True(t, cart.Lines[0].LineTotal.Equal(dec("36")))

	cart, err = f.svc.SetItem(ctx, user, ItemInput{ProductID: f.plain.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 2)

	_, err = f.svc.SetItem(ctx, user, ItemInput{ProductID: f.inactive.ID, Quantity: 1})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	cart, err = f.svc.SetItem(ctx, user, ItemInput{ProductID: f.plain.ID, Quantity: 0})
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 1)

	cart, err = f.svc.RemoveItem(ctx, user, f.tiered.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)

	_, err = f.svc.SetItem(ctx, user, ItemInput{ProductID: f.tiered.ID, Quantity: 2})
	require.NoError(t, err)
	require.NoError(t, f.svc.Clear(ctx, user))
	cart, err = f.svc.Get(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
	assert.True(t, cart.Total.IsZero())
}
