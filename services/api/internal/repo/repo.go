package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/services/api/internal/models"
)

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) Migrate(ctx context.Context) error {
	return r.DB.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
	)
}
