package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/uchef/uchef-backend/internal/models"
	"github.com/uchef/uchef-backend/internal/services"
	"gorm.io/gorm"
)

// CatalogController handles HTTP requests for browsing meals and checking
// their availability against ingredient stock
type CatalogController interface {
	// GetAllMeals lists meals, optionally filtered by restaurant
	GetAllMeals(c *gin.Context)
	// GetMealByID retrieves a meal with its recipe
	GetMealByID(c *gin.Context)
	// MealAvailability runs the availability check for a fixed meal
	MealAvailability(c *gin.Context)
	// CustomMealAvailability runs the availability check for a custom meal
	CustomMealAvailability(c *gin.Context)
}

type catalogController struct {
	catalog      services.CatalogService
	availability services.AvailabilityService
}

// NewCatalogController creates a new instance of CatalogController
func NewCatalogController(catalog services.CatalogService, availability services.AvailabilityService) *catalogController {
	return &catalogController{catalog: catalog, availability: availability}
}

// GetAllMeals godoc
// @Summary List meals
// @Description Get all meals, optionally filtered by restaurant
// @Tags catalog
// @Accept json
// @Produce json
// @Param restaurant query int false "Filter by restaurant ID"
// @Success 200 {array} models.Meal
// @Failure 500 {object} map[string]string
// @Router /api/v1/public/meals [get]
func (c *catalogController) GetAllMeals(ctx *gin.Context) {
	var restaurantID *uint
	if raw := ctx.Query("restaurant"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid restaurant ID format"})
			return
		}
		value := uint(id)
		restaurantID = &value
	}

	meals, err := c.catalog.GetMeals(restaurantID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve meals"})
		return
	}
	ctx.JSON(http.StatusOK, meals)
}

// GetMealByID godoc
// @Summary Get meal by ID
// @Description Get a single meal with its recipe lines
// @Tags catalog
// @Accept json
// @Produce json
// @Param id path int true "Meal ID"
// @Success 200 {object} models.Meal
// @Failure 404 {object} map[string]string
// @Router /api/v1/public/meals/{id} [get]
func (c *catalogController) GetMealByID(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid meal ID format"})
		return
	}

	meal, err := c.catalog.GetMealByID(uint(id))
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Meal not found"})
		return
	}
	ctx.JSON(http.StatusOK, meal)
}

// MealAvailability godoc
// @Summary Check meal availability
// @Description Check whether the meal can be made at the requested quantity given current ingredient stock
// @Tags catalog
// @Accept json
// @Produce json
// @Param id path int true "Meal ID"
// @Param quantity query int false "Requested quantity (default 1)"
// @Success 200 {object} models.AvailabilityResult
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/public/meals/{id}/availability [get]
func (c *catalogController) MealAvailability(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid meal ID format"})
		return
	}
	c.checkAvailability(ctx, models.MealRef(uint(id)), "Meal not found")
}

// CustomMealAvailability godoc
// @Summary Check custom meal availability
// @Description Check whether the custom meal can be made at the requested quantity given current ingredient stock
// @Tags catalog
// @Accept json
// @Produce json
// @Param id path int true "Custom meal ID"
// @Param quantity query int false "Requested quantity (default 1)"
// @Success 200 {object} models.AvailabilityResult
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /api/v1/custom-meals/{id}/availability [get]
func (c *catalogController) CustomMealAvailability(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid custom meal ID format"})
		return
	}
	c.checkAvailability(ctx, models.CustomMealRef(uint(id)), "Custom meal not found")
}

func (c *catalogController) checkAvailability(ctx *gin.Context, ref models.ItemRef, notFoundMsg string) {
	quantity := 1
	if raw := ctx.Query("quantity"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quantity"})
			return
		}
		quantity = parsed
	}

	result, err := c.availability.Check(ref, quantity)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": notFoundMsg})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check availability"})
		return
	}
	ctx.JSON(http.StatusOK, result)
}
