package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/services/api/internal/models"
)

func (r *GormRepo) GetCartByUser(ctx context.Context, userID uint) (*models.Cart, error) {
	var cart models.Cart
	err := r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("cart_items.id ASC") }).
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddItem finds or lazily creates the user's cart and merges quantity into
// the (cart, product) line in one transaction. Both steps are single
// statements guarded by unique indexes, so concurrent callers cannot create
// a second cart or a duplicate line.
func (r *GormRepo) AddItem(ctx context.Context, userID, productID uint, quantity int) (*models.CartItem, error) {
	var item models.CartItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart := models.Cart{UserID: userID}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&cart).Error; err != nil {
			return err
		}

		var stored models.Cart
		if err := tx.Where("user_id = ?", userID).First(&stored).Error; err != nil {
			return err
		}

		line := models.CartItem{CartID: stored.ID, ProductID: productID, Quantity: quantity}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity": gorm.Expr("cart_items.quantity + excluded.quantity"),
			}),
		}).Create(&line).Error; err != nil {
			return err
		}

		return tx.Where("cart_id = ? AND product_id = ?", stored.ID, productID).First(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

type itemWithOwner struct {
	models.CartItem
	OwnerID uint
}

// GetItem returns a cart line together with the id of the user owning it.
func (r *GormRepo) GetItem(ctx context.Context, id uint) (*models.CartItem, uint, error) {
	var row itemWithOwner
	err := r.DB.WithContext(ctx).
		Table("cart_items").
		Select("cart_items.*, carts.user_id AS owner_id").
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("cart_items.id = ?", id).
		Take(&row).Error
	if err != nil {
		return nil, 0, err
	}
	return &row.CartItem, row.OwnerID, nil
}

func (r *GormRepo) UpdateItemQuantity(ctx context.Context, id uint, quantity int) (*models.CartItem, error) {
	var item models.CartItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.CartItem{}).Where("id = ?", id).Update("quantity", quantity)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Model(&models.Cart{}).Where("id = (?)",
			tx.Model(&models.CartItem{}).Select("cart_id").Where("id = ?", id),
		).Update("updated_at", tx.NowFunc()).Error; err != nil {
			return err
		}
		return tx.First(&item, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) DeleteItem(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.CartItem{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ClearCart deletes every line of the user's cart and keeps the cart row.
func (r *GormRepo) ClearCart(ctx context.Context, userID uint) (int64, error) {
	var removed int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		if err := tx.Where("user_id = ?", userID).First(&cart).Error; err != nil {
			return err
		}
		res := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{})
		removed = res.RowsAffected
		return res.Error
	})
	return removed, err
}
