package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           uint      `gorm:"primaryKey"                     json:"id"`
	Username     string    `gorm:"size:80;uniqueIndex;not null"   json:"username"`
	Email        string    `gorm:"size:120;uniqueIndex;not null"  json:"email"`
	PasswordHash string    `gorm:"size:255;not null"              json:"-"`
	IsActive     bool      `gorm:"not null;default:true"          json:"is_active"`
	IsAdmin      bool      `gorm:"not null;default:false"         json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

type Product struct {
	ID          uint            `gorm:"primaryKey"                   json:"id"`
	Name        string          `gorm:"size:100;not null"            json:"name"`
	Description string          `gorm:"type:text"                    json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"  json:"price"`
	Stock       int             `gorm:"not null;default:0"           json:"stock"`
	ImageURL    string          `gorm:"size:200"                     json:"image_url"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Cart belongs to exactly one user; user_id is unique so concurrent
// get-or-create calls converge on one row.
type Cart struct {
	ID        uint       `gorm:"primaryKey"             json:"id"`
	UserID    uint       `gorm:"uniqueIndex;not null"   json:"user_id"`
	User      *User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem references its product by id only, so a line survives
// deletion of the product it points at.
type CartItem struct {
	ID        uint      `gorm:"primaryKey"                                json:"id"`
	CartID    uint      `gorm:"uniqueIndex:idx_cart_product;not null"     json:"cart_id"`
	ProductID uint      `gorm:"uniqueIndex:idx_cart_product;not null"     json:"product_id"`
	Quantity  int       `gorm:"not null;default:1;check:quantity>0"       json:"quantity"`
	AddedAt   time.Time `gorm:"autoCreateTime"                            json:"added_at"`
}

func (CartItem) TableName() string {
	return "cart_items"
}
