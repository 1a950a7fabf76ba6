package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

func (c *Client) Register(ctx context.Context, username, email, password string) error {
	body := map[string]string{"username": username, "email": email, "password": password}
	return c.do(ctx, http.MethodPost, "/users/register", "", body, nil)
}

func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var out LoginResult
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/users/login", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Profile(ctx context.Context, token string, userID uint) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/profile/%d", userID), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, token string, userID uint, upd ProfileUpdate) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/users/profile/%d", userID), token, upd, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := c.do(ctx, http.MethodGet, "/products", "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	var out struct {
		Products []Product `json:"products"`
	}
	path := "/products/search?q=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

func (c *Client) Product(ctx context.Context, id uint) (*Product, error) {
	var out Product
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cart returns the user's cart. A user who never added anything gets an
// empty cart rather than an error.
func (c *Client) Cart(ctx context.Context, token string, userID uint) (*Cart, error) {
	var out Cart
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/carts?user_id=%d", userID), token, nil, &out)
	if StatusOf(err) == http.StatusNotFound {
		return &Cart{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AddToCart(ctx context.Context, token string, userID, productID uint, quantity int) (*CartItem, error) {
	var out CartItem
	body := map[string]any{"user_id": userID, "product_id": productID, "quantity": quantity}
	if err := c.do(ctx, http.MethodPost, "/carts/items", token, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCartItem(ctx context.Context, token string, itemID uint, quantity int) (*CartItem, error) {
	var out CartItem
	body := map[string]int{"quantity": quantity}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/carts/items/%d", itemID), token, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RemoveCartItem(ctx context.Context, token string, itemID uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/carts/items/%d", itemID), token, nil, nil)
}

// ClearCart empties the cart. Clearing a cart that was never created is a
// no-op.
func (c *Client) ClearCart(ctx context.Context, token string, userID uint) error {
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/carts?user_id=%d", userID), token, nil, nil)
	if StatusOf(err) == http.StatusNotFound {
		return nil
	}
	return err
}

func (c *Client) AdminUsers(ctx context.Context, token string) ([]User, error) {
	var out []User
	if err := c.do(ctx, http.MethodGet, "/admin/users", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AdminProducts(ctx context.Context, token string) ([]Product, error) {
	var out []Product
	if err := c.do(ctx, http.MethodGet, "/admin/products", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateProduct(ctx context.Context, token string, in ProductInput) error {
	return c.do(ctx, http.MethodPost, "/admin/products", token, in, nil)
}

func (c *Client) UpdateProduct(ctx context.Context, token string, id uint, in ProductInput) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/admin/products/%d", id), token, in, nil)
}

func (c *Client) DeleteProduct(ctx context.Context, token string, id uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/admin/products/%d", id), token, nil, nil)
}

type userAction struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

func (c *Client) userAction(ctx context.Context, method, path, token string, body any) (string, error) {
	var out userAction
	if err := c.do(ctx, method, path, token, body, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) MakeAdmin(ctx context.Context, token string, userID uint) (string, error) {
	return c.userAction(ctx, http.MethodPut, fmt.Sprintf("/admin/users/%d/make-admin", userID), token, nil)
}

func (c *Client) RemoveAdmin(ctx context.Context, token string, userID uint) (string, error) {
	return c.userAction(ctx, http.MethodPut, fmt.Sprintf("/admin/users/%d/remove-admin", userID), token, nil)
}

func (c *Client) SetActive(ctx context.Context, token string, userID uint, active bool) (string, error) {
	return c.userAction(ctx, http.MethodPut, fmt.Sprintf("/admin/users/%d/active", userID), token, map[string]bool{"is_active": active})
}
