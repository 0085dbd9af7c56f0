package product

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dermafill/storefront-backend/pkg/db"
	"github.com/dermafill/storefront-backend/pkg/enums"
	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	conn, err := db.OpenSQLite("file:products_" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	svc, err := NewService(NewRepository(conn), db.NewFromConn(conn), 1000)
	require.NoError(t, err)
	return svc
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func sampleInput(sku string) CreateProductInput {
	return CreateProductInput{
		SKU:       sku,
		Name:      "Volume Filler 1ml " + sku,
		Category:  enums.ProductCategoryDermalFiller,
		BasePrice: dec("10.00"),
		Stock:     50,
		PromotionRules: []PromotionRuleInput{
			{MinQuantity: 10, PricePerUnit: dec("8.00")},
			{MinQuantity: 3, PricePerUnit: dec("9.00")},
		},
	}
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
}

func TestCreateProductAndQuote(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, sampleInput("VF-1"))
	require.NoError(t, err)
	assert.Equal(t, "volume-filler-1ml-vf-1", created.Slug)
	assert.True(t, created.IsActive)
	require.Len(t, created.PromotionRules, 2)
	assert.Equal(t, 3, created.PromotionRules[0].MinQuantity)

	quote, err := svc.QuotePrice(ctx, created.ID, 5)
	require.NoError(t, err)
	require.NotNil(t, quote.AppliedRule)
	assert.Equal(t, 3, quote.AppliedRule.MinQuantity)
	assert.True(t, quote.UnitPrice.Equal(dec("9")), quote.UnitPrice.String())
	assert.True(t, quote.LineTotal.Equal(dec("45")), quote.LineTotal.String())

	quote, err = svc.QuotePrice(ctx, created.ID, 2)
	require.NoError(t, err)
	assert.Nil(t, quote.AppliedRule)
	assert.True(t, quote.LineTotal.Equal(dec("20")))

	_, err = svc.QuotePrice(ctx, created.ID, 0)
	assertCode(t, err, pkgerrors.CodeValidation)
	_, err = svc.QuotePrice(ctx, uuid.New(), 1)
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestCreateProductValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	dup := sampleInput("VF-2")
	dup.PromotionRules = append(dup.PromotionRules, PromotionRuleInput{MinQuantity: 3, PricePerUnit: dec("7.50")})
	_, err := svc.CreateProduct(ctx, dup)
	assertCode(t, err, pkgerrors.CodeValidation)

	free := sampleInput("VF-3")
	free.BasePrice = decimal.Zero
	_, err = svc.CreateProduct(ctx, free)
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.CreateProduct(ctx, sampleInput("VF-4"))
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, sampleInput("VF-4"))
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestUpdateProductReplacesRules(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	created, err := svc.CreateProduct(ctx, sampleInput("VF-5"))
	require.NoError(t, err)

	price := dec("12.50")
	rules := []PromotionRuleInput{{MinQuantity: 5, PricePerUnit: dec("11.00")}}
	updated, err := svc.UpdateProduct(ctx, created.ID, UpdateProductInput{BasePrice: &price, PromotionRules: &rules})
	require.NoError(t, err)
	assert.True(t, updated.BasePrice.Equal(price))
	require.Len(t, updated.PromotionRules, 1)
	assert.Equal(t, 5, updated.PromotionRules[0].MinQuantity)

	name := "Renamed"
	updated, err = svc.UpdateProduct(ctx, created.ID, UpdateProductInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Len(t, updated.PromotionRules, 1, "rules untouched when omitted")

	_, err = svc.UpdateProduct(ctx, uuid.New(), UpdateProductInput{Name: &name})
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestInactiveProductsHiddenFromShoppers(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	inactive := false
	inputA := sampleInput("VF-6")
	inputA.IsActive = &inactive
	hidden, err := svc.CreateProduct(ctx, inputA)
	require.NoError(t, err)
	assert.False(t, hidden.IsActive)
	_, err = svc.CreateProduct(ctx, sampleInput("VF-7"))
	require.NoError(t, err)

	_, err = svc.GetProduct(ctx, hidden.ID)
	assertCode(t, err, pkgerrors.CodeNotFound)
	_, err = svc.AdminGetProduct(ctx, hidden.ID)
	require.NoError(t, err)

	page, err := svc.ListProducts(ctx, ListProductsInput{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	page, err = svc.ListProducts(ctx, ListProductsInput{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	page, err = svc.ListProducts(ctx, ListProductsInput{IncludeInactive: true, Search: "vf-6"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	_, err = svc.ListProducts(ctx, ListProductsInput{Cursor: "%%%"})
	assertCode(t, err, pkgerrors.CodeValidation)

	require.NoError(t, svc.DeleteProduct(ctx, hidden.ID))
	assertCode(t, svc.DeleteProduct(ctx, hidden.ID), pkgerrors.CodeNotFound)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "hyaluronic-acid-2ml", Slugify("  Hyaluronic Acid (2ml) "))
	assert.Equal(t, "a-b", Slugify("--a__b--"))
}
