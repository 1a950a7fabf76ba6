package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/services/api/internal/models"
)

func (r *GormRepo) CreateUser(ctx context.Context, user *models.User) error {
	return r.DB.WithContext(ctx).Create(user).Error
}

func (r *GormRepo) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UsernameTaken reports whether another account (id != exceptID) uses the name.
func (r *GormRepo) UsernameTaken(ctx context.Context, username string, exceptID uint) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("username = ? AND id <> ?", username, exceptID).
		Count(&n).Error
	return n > 0, err
}

func (r *GormRepo) EmailTaken(ctx context.Context, email string, exceptID uint) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("email = ? AND id <> ?", email, exceptID).
		Count(&n).Error
	return n > 0, err
}

func (r *GormRepo) ListUsers(ctx context.Context, adminsFirst bool) ([]models.User, error) {
	q := r.DB.WithContext(ctx).Model(&models.User{})
	if adminsFirst {
		q = q.Order("is_admin DESC")
	}
	var users []models.User
	if err := q.Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *GormRepo) SaveUser(ctx context.Context, user *models.User) error {
	return r.DB.WithContext(ctx).Save(user).Error
}

// UpdateUserFlags writes the given columns and returns the fresh row.
func (r *GormRepo) UpdateUserFlags(ctx context.Context, id uint, fields map[string]any) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.First(&user, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes the user together with its cart and cart items.
func (r *GormRepo) DeleteUser(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cartIDs := tx.Model(&models.Cart{}).Select("id").Where("user_id = ?", id)
		if err := tx.Where("cart_id IN (?)", cartIDs).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Cart{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// AccountState reports the live flags of an account. A missing account is
// neither active nor admin.
func (r *GormRepo) AccountState(ctx context.Context, id uint) (active, admin bool, err error) {
	var user models.User
	err = r.DB.WithContext(ctx).Select("id", "is_active", "is_admin").First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return user.IsActive, user.IsAdmin, nil
}
