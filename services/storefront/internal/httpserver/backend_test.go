package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/services/storefront/internal/apiclient"
)

// fakeBackend is an in-memory stand-in for the shop API.
type fakeBackend struct {
	mu       sync.Mutex
	users    []apiclient.User
	products []apiclient.Product
	carts    map[uint][]apiclient.CartItem
	nextItem uint
	revoked  map[string]bool
	calls    []string
}

func newFakeBackend() *fakeBackend {
	created := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	return &fakeBackend{
		users: []apiclient.User{
			{ID: 1, Username: "alice", Email: "alice@example.com", IsActive: true, CreatedAt: created},
			{ID: 2, Username: "root", Email: "root@example.com", IsActive: true, IsAdmin: true, CreatedAt: created},
		},
		products: []apiclient.Product{
			{ID: 1, Name: "Mug", Price: decimal.RequireFromString("9.99"), Stock: 10},
			{ID: 2, Name: "Tee", Price: decimal.RequireFromString("5.00"), Stock: 3},
			{ID: 3, Name: "Cap", Price: decimal.RequireFromString("12.50"), Stock: 1},
			{ID: 4, Name: "Pen", Price: decimal.RequireFromString("1.00"), Stock: 100},
		},
		carts:   map[uint][]apiclient.CartItem{},
		revoked: map[string]bool{},
	}
}

func token(id uint) string { return fmt.Sprintf("tok-%d", id) }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func (b *fakeBackend) called(r *http.Request) {
	b.calls = append(b.calls, r.Method+" "+r.URL.Path)
}

func (b *fakeBackend) caller(r *http.Request) (*apiclient.User, bool) {
	tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if b.revoked[tok] {
		return nil, false
	}
	for i := range b.users {
		if token(b.users[i].ID) == tok {
			return &b.users[i], true
		}
	}
	return nil, false
}

func (b *fakeBackend) product(id uint) *apiclient.Product {
	for i := range b.products {
		if b.products[i].ID == id {
			return &b.products[i]
		}
	}
	return nil
}

func (b *fakeBackend) user(id uint) *apiclient.User {
	for i := range b.users {
		if b.users[i].ID == id {
			return &b.users[i]
		}
	}
	return nil
}

func pathUint(r *http.Request, name string) uint {
	n, _ := strconv.ParseUint(r.PathValue(name), 10, 64)
	return uint(n)
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	const p = "/api/v1"

	// guard serializes handlers and enforces bearer auth when needed.
	guard := func(auth, admin bool, fn func(w http.ResponseWriter, r *http.Request, u *apiclient.User)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.called(r)
			var u *apiclient.User
			if auth {
				var ok bool
				if u, ok = b.caller(r); !ok {
					writeMessage(w, http.StatusUnauthorized, "invalid or expired token")
					return
				}
				if admin && !u.IsAdmin {
					writeMessage(w, http.StatusForbidden, "admin access required")
					return
				}
			}
			fn(w, r, u)
		}
	}

	mux.HandleFunc("POST "+p+"/users/login", guard(false, false, func(w http.ResponseWriter, r *http.Request, _ *apiclient.User) {
		var req struct{ Username, Password string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, u := range b.users {
			if u.Username == req.Username && req.Password == "secret" && u.IsActive {
				writeJSON(w, http.StatusOK, apiclient.LoginResult{
					AccessToken: token(u.ID), ExpiresAt: time.Now().Add(time.Hour),
					UserID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin,
				})
				return
			}
		}
		writeMessage(w, http.StatusUnauthorized, "invalid credentials")
	}))

	mux.HandleFunc("POST "+p+"/users/register", guard(false, false, func(w http.ResponseWriter, r *http.Request, _ *apiclient.User) {
		var req struct{ Username, Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, u := range b.users {
			if u.Username == req.Username {
				writeMessage(w, http.StatusConflict, "username already exists")
				return
			}
		}
		id := uint(len(b.users) + 1)
		b.users = append(b.users, apiclient.User{ID: id, Username: req.Username, Email: req.Email, IsActive: true})
		writeJSON(w, http.StatusCreated, map[string]any{"id": id, "username": req.Username, "email": req.Email})
	}))

	mux.HandleFunc("GET "+p+"/users/profile/{id}", guard(true, false, func(w http.ResponseWriter, r *http.Request, u *apiclient.User) {
		writeJSON(w, http.StatusOK, b.user(pathUint(r, "id")))
	}))

	mux.HandleFunc("PUT "+p+"/users/profile/{id}", guard(true, false, func(w http.ResponseWriter, r *http.Request, u *apiclient.User) {
		var upd apiclient.ProfileUpdate
		_ = json.NewDecoder(r.Body).Decode(&upd)
		if upd.NewPassword != "" && upd.CurrentPassword != "secret" {
			writeMessage(w, http.StatusUnauthorized, "current password is incorrect")
			return
		}
		target := b.user(pathUint(r, "id"))
		if upd.Username != nil {
			target.Username = *upd.Username
		}
		if upd.Email != nil {
			target.Email = *upd.Email
		}
		writeJSON(w, http.StatusOK, target)
	}))

	mux.HandleFunc("GET "+p+"/products", guard(false, false, func(w http.ResponseWriter, r *http.Request, _ *apiclient.User) {
		writeJSON(w, http.StatusOK, b.products)
	}))

	mux.HandleFunc("GET "+p+"/products/search", guard(false, false, func(w http.ResponseWriter, r *http.Request, _ *apiclient.User) {
		writeMessage(w, http.StatusServiceUnavailable, "search is disabled")
	}))

	mux.HandleFunc("GET "+p+"/products/{id}", guard(false, false, func(w http.ResponseWriter, r *http.Request, _ *apiclient.User) {
		if pr := b.product(pathUint(r, "id")); pr != nil {
			writeJSON(w, http.StatusOK, pr)
			return
		}
		writeMessage(w, http.StatusNotFound, "product not found")
	}))

	mux.HandleFunc("GET "+p+"/carts", guard(true, false, func(w http.ResponseWriter, r *http.Request, u *apiclient.User) {
		items, ok := b.carts[u.ID]
		if !ok {
			writeMessage(w, http.StatusNotFound, "cart not found")
			return
		}
		writeJSON(w, http.StatusOK, apiclient.Cart{CartID: u.ID, UserID: u.ID, Items: items})
	}))

	mux.HandleFunc("DELETE "+p+"/carts", guard(true, false, func(w http.ResponseWriter, r *http.Request, u *apiclient.User) {
		if _, ok := b.carts[u.ID]; !ok {
			writeMessage(w, http.StatusNotFound, "cart not found")
			return
		}
		b.carts[u.ID] = []apiclient.CartItem{}
		w.WriteHeader(http.StatusNoContent)
	}))

	mux.HandleFunc("POST "+p+"/carts/items", guard(true, false, func(w http.ResponseWriter, r *http.Request, u *apiclient.User) {
		var req struct {
			ProductID uint `json:"product_id"`
			Quantity  int  `json:"quantity"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if b.product(req.ProductID) == nil {
			writeMessage(w, http.StatusNotFound, "product not found")
			return
		}
		items := b.carts[u.ID]
		for i := range items {
			if items[i].ProductID == req.ProductID {
				items[i].Quantity += req.Quantity
				writeJSON(w, http.StatusCreated, items[i])
				return
			}
		}
		b.nextItem++
		it := apiclient.CartItem{ID: b.nextItem, CartID: u.ID, ProductID: req.ProductID, Quantity: req.Quantity}
		b.carts[u.ID] = append(items, it)
		writeJSON(w, http.StatusCreated, it)
	}))

	mux.HandleFunc("PUT "+p+"/carts/items/{id}", guard(true, false, func(w http.ResponseWriter, r *http.Request, u *apiclient.User) {
		var req struct {
			Quantity int `json:"quantity"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		items := b.carts[u.ID]
		for i := range items {
			if items[i].ID == pathUint(r, "id") {
				items[i].Quantity = req.Quantity
				writeJSON(w, http.StatusOK, items[i])
				return
			}
		}
		writeMessage(w, http.StatusNotFound, "cart item not found")
	}))

	mux.HandleFunc("DELETE "+p+"/carts/items/{id}", guard(true, false, func(w http.ResponseWriter, r *http.Request, u *apiclient.User) {
		items := b.carts[u.ID]
		id := pathUint(r, "id")
		i := slices.IndexFunc(items, func(it apiclient.CartItem) bool { return it.ID == id })
		if i < 0 {
			writeMessage(w, http.StatusNotFound, "cart item not found")
			return
		}
		b.carts[u.ID] = slices.Delete(items, i, i+1)
		w.WriteHeader(http.StatusNoContent)
	}))

	mux.HandleFunc("GET "+p+"/admin/users", guard(true, true, func(w http.ResponseWriter, r *http.Request, _ *apiclient.User) {
		writeJSON(w, http.StatusOK, b.users)
	}))

	mux.HandleFunc("GET "+p+"/admin/products", guard(true, true, func(w http.ResponseWriter, r *http.Request, _ *apiclient.User) {
		writeJSON(w, http.StatusOK, b.products)
	}))

	mux.HandleFunc("POST "+p+"/admin/products", guard(true, true, func(w http.ResponseWriter, r *http.Request, _ *apiclient.User) {
		var in apiclient.ProductInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		pr := apiclient.Product{ID: uint(len(b.products) + 1), Name: *in.Name, Price: *in.Price}
		if in.Stock != nil {
			pr.Stock = *in.Stock
		}
		b.products = append(b.products, pr)
		writeJSON(w, http.StatusCreated, map[string]any{"product": pr, "products": b.products})
	}))

	mux.HandleFunc("PUT "+p+"/admin/products/{id}", guard(true, true, func(w http.ResponseWriter, r *http.Request, _ *apiclient.User) {
		pr := b.product(pathUint(r, "id"))
		if pr == nil {
			writeMessage(w, http.StatusNotFound, "product not found")
			return
		}
		var in apiclient.ProductInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Name != nil {
			pr.Name = *in.Name
		}
		if in.Price != nil {
			pr.Price = *in.Price
		}
		writeJSON(w, http.StatusOK, map[string]any{"product": pr, "products": b.products})
	}))

	mux.HandleFunc("DELETE "+p+"/admin/products/{id}", guard(true, true, func(w http.ResponseWriter, r *http.Request, _ *apiclient.User) {
		id := pathUint(r, "id")
		b.products = slices.DeleteFunc(b.products, func(pr apiclient.Product) bool { return pr.ID == id })
		writeJSON(w, http.StatusOK, map[string]any{"products": b.products})
	}))

	mux.HandleFunc("PUT "+p+"/admin/users/{id}/make-admin", guard(true, true, func(w http.ResponseWriter, r *http.Request, _ *apiclient.User) {
		u := b.user(pathUint(r, "id"))
		u.IsAdmin = true
		writeJSON(w, http.StatusOK, map[string]any{"message": "User " + u.Username + " is now an administrator", "user": u})
	}))

	mux.HandleFunc("PUT "+p+"/admin/users/{id}/active", guard(true, true, func(w http.ResponseWriter, r *http.Request, _ *apiclient.User) {
		var req struct {
			IsActive bool `json:"is_active"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		u := b.user(pathUint(r, "id"))
		u.IsActive = req.IsActive
		writeJSON(w, http.StatusOK, map[string]any{"message": "User " + u.Username + " updated", "user": u})
	}))

	return mux
}
