package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tastebudhq/storefront-backend/internal/products"
	dbpkg "github.com/tastebudhq/storefront-backend/pkg/db"
	"github.com/tastebudhq/storefront-backend/pkg/db/models"
	pkgerrors "github.com/tastebudhq/storefront-backend/pkg/errors"
)

// errLineRace marks an insert beaten to the (cart_id, product_id) unique
// index by a concurrent add for the same product.
var errLineRace = errors.New("cart line inserted concurrently")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Totals aggregates a cart's line counts and value.
type Totals struct {
	TotalItemCount int             `json:"total_item_count"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

// Service defines the per-user cart operations.
type Service interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.CartItem, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.CartItem, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
	Totals(ctx context.Context, userID uuid.UUID) (Totals, error)
}

type service struct {
	repo     Repository
	products products.Repository
	tx       txRunner
}

// NewService builds a cart service with the required dependencies.
func NewService(repo Repository, productsRepo products.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, products: productsRepo, tx: tx}, nil
}

func (s *service) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	cart, err := s.repo.FindByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	created := &models.Cart{ID: uuid.New(), UserID: userID}
	if err := s.repo.Create(ctx, created); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	created.Items = []models.CartItem{}
	return created, nil
}

func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.CartItem, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	result, err := s.addItemOnce(ctx, userID, productID, quantity)
	if errors.Is(err, errLineRace) {
		// the rival's committed line is visible now, so a rerun merges
		// into it instead of inserting
		result, err = s.addItemOnce(ctx, userID, productID, quantity)
	}
	if errors.Is(err, errLineRace) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart line")
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) addItemOnce(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.CartItem, error) {
	var result *models.CartItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		productsRepo := s.products.WithTx(tx)

		product, err := productsRepo.FindActiveByID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if product.StockQuantity == 0 {
			return pkgerrors.New(pkgerrors.CodeOutOfStock, fmt.Sprintf("%s is out of stock", product.Name))
		}

		cart, err := getOrCreateTx(ctx, repo, userID)
		if err != nil {
			return err
		}

		existing, err := repo.FindItemByCartAndProduct(ctx, cart.ID, productID)
		switch {
		case err == nil:
			merged := existing.Quantity + quantity
			if merged > product.StockQuantity {
				return insufficientStock(product, merged, existing.Quantity)
			}
			if err := repo.UpdateItemQuantity(ctx, existing.ID, merged); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
			}
			existing.Quantity = merged
			result = existing
			return nil

		case errors.Is(err, gorm.ErrRecordNotFound):
			if quantity > product.StockQuantity {
				return insufficientStock(product, quantity, 0)
			}
			item := &models.CartItem{
				ID:              uuid.New(),
				CartID:          cart.ID,
				ProductID:       product.ID,
				Quantity:        quantity,
				PriceAtAddition: product.Price,
			}
			if err := repo.CreateItem(ctx, item); err != nil {
				if dbpkg.IsUniqueViolation(err, "") {
					return errLineRace
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart line")
			}
			result = item
			return nil

		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.CartItem, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var result *models.CartItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		productsRepo := s.products.WithTx(tx)

		item, err := repo.FindItemForUser(ctx, itemID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
		}

		product, err := productsRepo.FindActiveByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if quantity > product.StockQuantity {
			return insufficientStock(product, quantity, item.Quantity)
		}

		// quantity only; price_at_addition stays frozen
		if err := repo.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
		}
		item.Quantity = quantity
		result = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if itemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindItemForUser(ctx, itemID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
		}
		if err := repo.DeleteItem(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
		}
		return nil
	})
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.FindByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if err := repo.DeleteItemsByCart(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		return nil
	})
}

func (s *service) Totals(ctx context.Context, userID uuid.UUID) (Totals, error) {
	if userID == uuid.Nil {
		return Totals{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	cart, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Totals{Subtotal: decimal.Zero}, nil
		}
		return Totals{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return TotalsForItems(cart.Items), nil
}

// TotalsForItems derives the aggregate count and subtotal from cart lines.
func TotalsForItems(items []models.CartItem) Totals {
	totals := Totals{Subtotal: decimal.Zero}
	for _, item := range items {
		totals.TotalItemCount += item.Quantity
		lineTotal := item.PriceAtAddition.Mul(decimal.NewFromInt(int64(item.Quantity)))
		totals.Subtotal = totals.Subtotal.Add(lineTotal)
	}
	return totals
}

func getOrCreateTx(ctx context.Context, repo Repository, userID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	created := &models.Cart{ID: uuid.New(), UserID: userID}
	if err := repo.Create(ctx, created); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return created, nil
}

func insufficientStock(product *models.Product, requested, inCart int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("only %d of %s available", product.StockQuantity, product.Name)).WithDetails(map[string]any{
		"product_id": product.ID,
		"available":  product.StockQuantity,
		"requested":  requested,
		"in_cart":    inCart,
	})
}
