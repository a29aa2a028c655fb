package database

import (
	"fmt"

	"github.com/groceryshare/backend/internal/config"
	"github.com/groceryshare/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate runs schema migration and seeds the category catalog. It is
// exported so the test harness can apply it to an in-memory database.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.GroceryList{},
		&models.ListMembership{},
		&models.Category{},
		&models.Item{},
		&models.ListItem{},
		&models.Notification{},
	); err != nil {
		return err
	}

	return seedCategories(db)
}

var defaultCategories = []string{
	"Fruits",
	"Vegetables",
	"Canned Goods",
	"Dairy",
	"Meat",
	"Fish/Seafood",
	"Deli",
	"Condiments/Spices",
	"Snacks",
	"Bread/Bakery",
	"Beverages",
	"Pasta/Rice/Cereal",
	"Baking",
	"Frozen",
	"Personal Care",
	"Cleaning/Household Items",
	"Pet Care",
}

func seedCategories(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Category{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	for _, name := range defaultCategories {
		if err := db.Create(&models.Category{Name: name}).Error; err != nil {
			return err
		}
	}
	return nil
}
