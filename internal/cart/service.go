package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dermafill/storefront-backend/pkg/db/models"
	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
)

type productLoader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
}

type cartRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

// Service exposes the saved cart and the guest quote.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	SetItem(ctx context.Context, userID uuid.UUID, input ItemInput) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	Quote(ctx context.Context, req QuoteRequest) (*CartDTO, error)
}

type service struct {
	repo        cartRepository
	products    productLoader
	maxQuantity int
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo cartRepository, products productLoader, maxQuantity int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if maxQuantity <= 0 {
		return nil, fmt.Errorf("max quantity must be positive")
	}
	return &service{repo: repo, products: products, maxQuantity: maxQuantity}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}
	items := make([]ItemInput, 0, len(rows))
	for _, row := range rows {
		items = append(items, ItemInput{ProductID: row.ProductID, Quantity: row.Quantity})
	}
	return s.price(ctx, items)
}

// SetItem overwrites the quantity of one line; zero removes it.
func (s *service) SetItem(ctx context.Context, userID uuid.UUID, input ItemInput) (*CartDTO, error) {
	if err := s.checkQuantity(input.Quantity); err != nil {
		return nil, err
	}
	if input.Quantity == 0 {
		return s.RemoveItem(ctx, userID, input.ProductID)
	}

	products, err := s.products.FindByIDs(ctx, []uuid.UUID{input.ProductID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if p, ok := products[input.ProductID]; !ok || !p.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	if err := s.repo.SetQuantity(ctx, userID, input.ProductID, input.Quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart item")
	}
	return s.Get(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error) {
	if err := s.repo.Remove(ctx, userID, productID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	return s.Get(ctx, userID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.Clear(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// Quote prices a cart sent by the client. Duplicate product ids are merged.
func (s *service) Quote(ctx context.Context, req QuoteRequest) (*CartDTO, error) {
	items := mergeItems(req.Items)
	for _, item := range items {
		if err := s.checkQuantity(item.Quantity); err != nil {
			return nil, err
		}
	}
	return s.price(ctx, items)
}

func (s *service) price(ctx context.Context, items []ItemInput) (*CartDTO, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	return PriceItems(items, products), nil
}

func (s *service) checkQuantity(quantity int) error {
	if quantity < 0 || quantity > s.maxQuantity {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity out of range").
			WithDetails(map[string]any{"quantity": quantity, "min": 0, "max": s.maxQuantity})
	}
	return nil
}
