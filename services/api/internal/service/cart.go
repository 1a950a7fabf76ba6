package service

import (
	"context"
	"fmt"

	"github.com/Skotchmaster/storefront/pkg/events"
	"github.com/Skotchmaster/storefront/services/api/internal/models"
	"github.com/Skotchmaster/storefront/services/api/internal/repo"
)

type CartService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

type cartPayload struct {
	UserID    uint `json:"user_id"`
	CartID    uint `json:"cart_id,omitempty"`
	ItemID    uint `json:"item_id,omitempty"`
	ProductID uint `json:"product_id,omitempty"`
	Quantity  int  `json:"quantity,omitempty"`
}

func (s *CartService) GetCart(ctx context.Context, actor Actor, userID uint) (*models.Cart, error) {
	if !actor.CanAccess(userID) {
		return nil, fmt.Errorf("cart of another user: %w", ErrForbidden)
	}
	cart, err := s.Repo.GetCartByUser(ctx, userID)
	if err != nil {
		return nil, notFound(err, "cart")
	}
	return cart, nil
}

// AddItem adds quantity of a product to the user's cart, creating the cart on
// first use. Adding a product already in the cart increases its quantity.
func (s *CartService) AddItem(ctx context.Context, actor Actor, userID, productID uint, quantity int) (*models.CartItem, error) {
	if !actor.CanAccess(userID) {
		return nil, fmt.Errorf("cart of another user: %w", ErrForbidden)
	}
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be more than zero: %w", ErrValidation)
	}
	if productID == 0 {
		return nil, fmt.Errorf("product_id is required: %w", ErrValidation)
	}

	exists, err := s.Repo.ProductExists(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("product not found: %w", ErrNotFound)
	}

	item, err := s.Repo.AddItem(ctx, userID, productID, quantity)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Events, events.TopicCarts, userID, "cart_item_added", cartPayload{
		UserID: userID, CartID: item.CartID, ItemID: item.ID, ProductID: productID, Quantity: quantity,
	})
	return item, nil
}

// UpdateItem replaces the quantity of a line. Lines of other users' carts are
// reported as missing to non-admin callers.
func (s *CartService) UpdateItem(ctx context.Context, actor Actor, itemID uint, quantity int) (*models.CartItem, error) {
	owner, err := s.ownedItem(ctx, actor, itemID)
	if err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be more than zero: %w", ErrValidation)
	}

	item, err := s.Repo.UpdateItemQuantity(ctx, itemID, quantity)
	if err != nil {
		return nil, notFound(err, "cart item")
	}

	publish(ctx, s.Events, events.TopicCarts, owner, "cart_item_updated", cartPayload{
		UserID: owner, CartID: item.CartID, ItemID: item.ID, ProductID: item.ProductID, Quantity: item.Quantity,
	})
	return item, nil
}

func (s *CartService) RemoveItem(ctx context.Context, actor Actor, itemID uint) error {
	owner, err := s.ownedItem(ctx, actor, itemID)
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteItem(ctx, itemID); err != nil {
		return notFound(err, "cart item")
	}

	publish(ctx, s.Events, events.TopicCarts, owner, "cart_item_removed", cartPayload{UserID: owner, ItemID: itemID})
	return nil
}

func (s *CartService) ClearCart(ctx context.Context, actor Actor, userID uint) error {
	if !actor.CanAccess(userID) {
		return fmt.Errorf("cart of another user: %w", ErrForbidden)
	}
	removed, err := s.Repo.ClearCart(ctx, userID)
	if err != nil {
		return notFound(err, "cart")
	}

	publish(ctx, s.Events, events.TopicCarts, userID, "cart_cleared", cartPayload{UserID: userID, Quantity: int(removed)})
	return nil
}

func (s *CartService) ownedItem(ctx context.Context, actor Actor, itemID uint) (uint, error) {
	_, owner, err := s.Repo.GetItem(ctx, itemID)
	if err != nil {
		return 0, notFound(err, "cart item")
	}
	if !actor.CanAccess(owner) {
		return 0, fmt.Errorf("cart item not found: %w", ErrNotFound)
	}
	return owner, nil
}
