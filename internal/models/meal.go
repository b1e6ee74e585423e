package models

import (
	"time"
)

type MealCategory struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
}

// Meal is a fixed menu item. Its availability flags are editorial and
// independent of ingredient stock; stock is checked on demand through the
// availability service rather than cached here.
type Meal struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	RestaurantID uint             `gorm:"index;not null" json:"restaurant"`
	Restaurant   Restaurant       `gorm:"foreignKey:RestaurantID" json:"-"`
	Name         string           `gorm:"not null" json:"name"`
	Description  string           `json:"description"`
	CategoryID   *uint            `json:"category"`
	Category     *MealCategory    `gorm:"foreignKey:CategoryID" json:"category_details,omitempty"`
	BasePrice    float64          `json:"base_price"`
	ImageURL     string           `json:"image_url"`
	IsAvailable  bool             `gorm:"default:true" json:"is_available"`
	IsFeatured   bool             `gorm:"default:false" json:"is_featured"`
	Ingredients  []MealIngredient `gorm:"foreignKey:MealID" json:"meal_ingredients,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// MealIngredient is one recipe line of a fixed meal: how much of an
// ingredient one unit of the meal consumes. Optional lines are excluded from
// availability checks and never decremented automatically.
type MealIngredient struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	MealID          uint       `gorm:"index;not null" json:"meal"`
	IngredientID    uint       `gorm:"index;not null" json:"ingredient"`
	Ingredient      Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient_details,omitempty"`
	Quantity        float64    `gorm:"not null" json:"quantity"`
	IsOptional      bool       `gorm:"default:false" json:"is_optional"`
	AdditionalPrice float64    `gorm:"default:0" json:"additional_price"`
}

// CustomMeal is a user-composed meal, optionally derived from a fixed base
// meal. Visibility is independent of stock.
type CustomMeal struct {
	ID          uint                   `gorm:"primaryKey" json:"id"`
	UserID      uint                   `gorm:"index;not null" json:"user"`
	Name        string                 `gorm:"not null" json:"name"`
	Description string                 `json:"description"`
	BaseMealID  *uint                  `json:"base_meal"`
	BaseMeal    *Meal                  `gorm:"foreignKey:BaseMealID" json:"base_meal_details,omitempty"`
	IsPublic    bool                   `gorm:"default:false" json:"is_public"`
	Ingredients []CustomMealIngredient `gorm:"foreignKey:CustomMealID" json:"ingredients,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// CustomMealIngredient has no optional flag: every line of a custom meal is
// required.
type CustomMealIngredient struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	CustomMealID uint       `gorm:"index;not null" json:"custom_meal"`
	IngredientID uint       `gorm:"index;not null" json:"ingredient"`
	Ingredient   Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient_details,omitempty"`
	Quantity     float64    `gorm:"not null" json:"quantity"`
}
