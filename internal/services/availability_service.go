package services

import (
	"github.com/uchef/uchef-backend/internal/models"
	"gorm.io/gorm"
)

// AvailabilityService answers whether a catalog item can be made at a
// requested quantity. It is strictly read-only with respect to inventory:
// it is used both for the standalone availability query and as the
// pre-flight gate of order placement, and must never mutate stock.
type AvailabilityService interface {
	// Check resolves the item's recipe lines and compares each required
	// line against current ingredient stock. The shortfall list is empty
	// iff the result is available.
	Check(ref models.ItemRef, quantity int) (models.AvailabilityResult, error)
}

type availabilityService struct {
	db *gorm.DB
}

// NewAvailabilityService creates a new instance of AvailabilityService
func NewAvailabilityService(db *gorm.DB) AvailabilityService {
	return &availabilityService{db: db}
}

// recipeLine is the common shape of a required ingredient demand, whether it
// came from a fixed meal or a custom meal.
type recipeLine struct {
	Ingredient models.Ingredient
	PerUnit    float64
}

func (s *availabilityService) Check(ref models.ItemRef, quantity int) (models.AvailabilityResult, error) {
	lines, err := resolveRequiredLines(s.db, ref)
	if err != nil {
		return models.AvailabilityResult{}, err
	}

	result := models.AvailabilityResult{
		IsAvailable: true,
		Unavailable: []models.IngredientShortfall{},
	}
	for _, line := range lines {
		required := line.PerUnit * float64(quantity)
		if !line.Ingredient.IsAvailable || line.Ingredient.Quantity < required {
			result.IsAvailable = false
			result.Unavailable = append(result.Unavailable, models.IngredientShortfall{
				IngredientID: line.Ingredient.ID,
				Name:         line.Ingredient.Name,
				IsAvailable:  line.Ingredient.IsAvailable,
				Required:     required,
				InStock:      line.Ingredient.Quantity,
			})
		}
	}
	return result, nil
}

// resolveRequiredLines loads the required recipe lines for a catalog item.
// Optional lines of fixed meals are excluded; custom meal lines are always
// required. Returns gorm.ErrRecordNotFound when the referenced item no
// longer exists.
func resolveRequiredLines(db *gorm.DB, ref models.ItemRef) ([]recipeLine, error) {
	switch ref.Kind() {
	case models.ItemKindMeal:
		var meal models.Meal
		if err := db.Select("id").First(&meal, ref.ID()).Error; err != nil {
			return nil, err
		}
		var recipe []models.MealIngredient
		err := db.Preload("Ingredient").
			Where("meal_id = ? AND is_optional = ?", ref.ID(), false).
			Order("id").
			Find(&recipe).Error
		if err != nil {
			return nil, err
		}
		lines := make([]recipeLine, 0, len(recipe))
		for _, mi := range recipe {
			lines = append(lines, recipeLine{Ingredient: mi.Ingredient, PerUnit: mi.Quantity})
		}
		return lines, nil

	case models.ItemKindCustomMeal:
		var customMeal models.CustomMeal
		if err := db.Select("id").First(&customMeal, ref.ID()).Error; err != nil {
			return nil, err
		}
		var recipe []models.CustomMealIngredient
		err := db.Preload("Ingredient").
			Where("custom_meal_id = ?", ref.ID()).
			Order("id").
			Find(&recipe).Error
		if err != nil {
			return nil, err
		}
		lines := make([]recipeLine, 0, len(recipe))
		for _, cmi := range recipe {
			lines = append(lines, recipeLine{Ingredient: cmi.Ingredient, PerUnit: cmi.Quantity})
		}
		return lines, nil

	default:
		return nil, models.ErrItemRefNone
	}
}
