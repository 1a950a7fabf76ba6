package transport

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/services/api/internal/models"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      uint      `json:"user_id"`
	Username    string    `json:"username"`
	IsAdmin     bool      `json:"is_admin"`
}

type UpdateProfileRequest struct {
	Username        *string `json:"username"`
	Email           *string `json:"email"`
	CurrentPassword string  `json:"current_password"`
	NewPassword     string  `json:"new_password"`
}

type ProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	ImageURL    *string          `json:"image_url"`
}

type SearchResponse struct {
	Total    int64            `json:"total"`
	Products []models.Product `json:"products"`
}

type AddItemRequest struct {
	UserID    uint `json:"user_id"`
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

type UpdateItemRequest struct {
	Quantity *int `json:"quantity"`
}

type CartItemResponse struct {
	ID        uint      `json:"id"`
	CartID    uint      `json:"cart_id"`
	ProductID uint      `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

type CartResponse struct {
	CartID uint               `json:"cart_id"`
	UserID uint               `json:"user_id"`
	Items  []CartItemResponse `json:"items"`
}

type SetActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

type UserActionResponse struct {
	Message string      `json:"message"`
	User    models.User `json:"user"`
}

type ProductsResponse struct {
	Product  *models.Product  `json:"product,omitempty"`
	Products []models.Product `json:"products"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func ItemFromModel(it models.CartItem) CartItemResponse {
	return CartItemResponse{
		ID:        it.ID,
		CartID:    it.CartID,
		ProductID: it.ProductID,
		Quantity:  it.Quantity,
		AddedAt:   it.AddedAt,
	}
}

func CartFromModel(c *models.Cart) CartResponse {
	items := make([]CartItemResponse, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, ItemFromModel(it))
	}
	return CartResponse{CartID: c.ID, UserID: c.UserID, Items: items}
}
