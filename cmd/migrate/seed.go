package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tastebudhq/storefront-backend/pkg/config"
	"github.com/tastebudhq/storefront-backend/pkg/db/models"
	"github.com/tastebudhq/storefront-backend/pkg/enums"
	"github.com/tastebudhq/storefront-backend/pkg/security"
)

// runSeed inserts a local admin account and a small catalog so the ordering
// flow can be exercised end to end. Existing rows are left untouched.
func runSeed(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	password := os.Getenv("STOREFRONT_SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "admin-dev-password"
	}

	hash, err := security.HashPassword(password, cfg.Password)
	if err != nil {
		return fmt.Errorf("hashing seed password: %w", err)
	}

	var admin models.User
	if err := db.WithContext(ctx).
		Where(models.User{Email: "admin@storefront.local"}).
		Attrs(models.User{
			PasswordHash: hash,
			FullName:     "Storefront Admin",
			Role:         enums.UserRoleAdmin,
			IsActive:     true,
		}).
		FirstOrCreate(&admin).Error; err != nil {
		return fmt.Errorf("seeding admin user: %w", err)
	}

	products := []models.Product{
		{Name: "Jollof Rice Party Pack", Price: decimal.NewFromInt(8500), StockQuantity: 40},
		{Name: "Grilled Chicken (Whole)", Price: decimal.NewFromInt(6200), StockQuantity: 25},
		{Name: "Chapman Mix 1L", Price: decimal.NewFromInt(1800), StockQuantity: 60},
		{Name: "Meat Pie Box of 6", Price: decimal.NewFromInt(3600), StockQuantity: 35},
	}
	for _, p := range products {
		attrs := p
		attrs.IsActive = true
		var out models.Product
		if err := db.WithContext(ctx).
			Where(models.Product{Name: p.Name}).
			Attrs(attrs).
			FirstOrCreate(&out).Error; err != nil {
			return fmt.Errorf("seeding product %q: %w", p.Name, err)
		}
	}

	return nil
}
