package services

import (
	"github.com/uchef/uchef-backend/internal/models"
	"gorm.io/gorm"
)

// CatalogService provides the read accessors the ordering flow and its
// controllers consume. Catalog CRUD itself is a restaurant-management
// concern handled elsewhere.
type CatalogService interface {
	// GetMeals retrieves meals, optionally filtered by restaurant.
	GetMeals(restaurantID *uint) ([]models.Meal, error)
	// GetMealByID retrieves a meal with its recipe lines.
	GetMealByID(id uint) (models.Meal, error)
	// GetCustomMealByID retrieves a custom meal with its recipe lines.
	// Private custom meals are only visible to their owner or an admin.
	GetCustomMealByID(id uint, actor models.Actor) (models.CustomMeal, error)
	// GetIngredients retrieves a restaurant's ingredient inventory.
	GetIngredients(restaurantID uint) ([]models.Ingredient, error)
}

type catalogService struct {
	db *gorm.DB
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(db *gorm.DB) CatalogService {
	return &catalogService{db: db}
}

func (s *catalogService) GetMeals(restaurantID *uint) ([]models.Meal, error) {
	query := s.db.Preload("Category").Preload("Ingredients.Ingredient")
	if restaurantID != nil {
		query = query.Where("restaurant_id = ?", *restaurantID)
	}
	var meals []models.Meal
	if err := query.Find(&meals).Error; err != nil {
		return nil, err
	}
	return meals, nil
}

func (s *catalogService) GetMealByID(id uint) (models.Meal, error) {
	var meal models.Meal
	err := s.db.Preload("Category").Preload("Ingredients.Ingredient").First(&meal, id).Error
	if err != nil {
		return models.Meal{}, err
	}
	return meal, nil
}

func (s *catalogService) GetCustomMealByID(id uint, actor models.Actor) (models.CustomMeal, error) {
	var customMeal models.CustomMeal
	err := s.db.Preload("Ingredients.Ingredient").First(&customMeal, id).Error
	if err != nil {
		return models.CustomMeal{}, err
	}
	if !customMeal.IsPublic && customMeal.UserID != actor.UserID && !actor.IsAdmin() {
		return models.CustomMeal{}, &models.ForbiddenError{Reason: "this custom meal is private"}
	}
	return customMeal, nil
}

func (s *catalogService) GetIngredients(restaurantID uint) ([]models.Ingredient, error) {
	var ingredients []models.Ingredient
	err := s.db.Where("restaurant_id = ?", restaurantID).Order("name").Find(&ingredients).Error
	if err != nil {
		return nil, err
	}
	return ingredients, nil
}
