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

// OrderController handles HTTP requests for order placement and fulfilment
type OrderController interface {
	// CreateOrder places a new order
	CreateOrder(c *gin.Context)
	// UpdateStatus changes the status of an order
	UpdateStatus(c *gin.Context)
	// GetOrderByID retrieves a single order
	GetOrderByID(c *gin.Context)
	// GetAllOrders lists the orders visible to the caller
	GetAllOrders(c *gin.Context)
}

type orderController struct {
	service services.OrderService
}

// NewOrderController creates a new instance of OrderController
func NewOrderController(service services.OrderService) *orderController {
	return &orderController{service: service}
}

// actorFromContext rebuilds the request actor from the values the auth
// middleware stored in the gin context.
func actorFromContext(ctx *gin.Context) (models.Actor, bool) {
	userID, exists := ctx.Get("userID")
	if !exists {
		return models.Actor{}, false
	}
	id, ok := userID.(uint)
	if !ok {
		return models.Actor{}, false
	}
	role, _ := ctx.Get("userRole")
	roleStr, _ := role.(string)
	return models.Actor{UserID: id, Role: roleStr}, true
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// CreateOrder godoc
// @Summary Place a new order
// @Description Validate ingredient availability for every line item, then create the order, decrement inventory, and notify the restaurant
// @Tags orders
// @Accept json
// @Produce json
// @Param order body services.PlaceOrderRequest true "Order request"
// @Param Idempotency-Key header string false "Idempotency key"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "Validation failed; body carries unavailable_ingredients"
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /api/v1/orders [post]
func (c *orderController) CreateOrder(ctx *gin.Context) {
	actor, ok := actorFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req services.PlaceOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	req.IdempotencyKey = ctx.GetHeader("Idempotency-Key")

	order, results, err := c.service.PlaceOrder(ctx.Request.Context(), actor, req)
	if err != nil {
		var validationErr *models.OrderValidationError
		var forbiddenErr *models.ForbiddenError
		switch {
		case errors.As(err, &validationErr):
			ctx.JSON(http.StatusBadRequest, gin.H{
				"unavailable_ingredients": validationErr.Unavailable,
				"message":                 validationErr.Error(),
			})
		case errors.As(err, &forbiddenErr):
			ctx.JSON(http.StatusForbidden, gin.H{"error": forbiddenErr.Reason})
		case errors.Is(err, services.ErrDuplicateOrder):
			ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, models.ErrItemRefBoth), errors.Is(err, models.ErrItemRefNone), errors.Is(err, models.ErrItemBadQuantity):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, gorm.ErrRecordNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Restaurant not found"})
		default:
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to place order"})
		}
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"order":             order,
		"line_item_results": results,
	})
}

// UpdateStatus godoc
// @Summary Update order status
// @Description Set a new status on an order; only the restaurant owner or an admin may do this. The customer is notified of the change.
// @Tags orders
// @Accept json
// @Produce json
// @Param id path int true "Order ID"
// @Param status body updateStatusRequest true "New status and optional reason"
// @Success 200 {object} models.Order
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /api/v1/orders/{id}/status [post]
func (c *orderController) UpdateStatus(ctx *gin.Context) {
	actor, ok := actorFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	orderID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID format"})
		return
	}

	var req updateStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	order, err := c.service.UpdateStatus(ctx.Request.Context(), actor, uint(orderID), req.Status, req.Reason)
	if err != nil {
		var invalidStatus *models.InvalidStatusError
		var forbiddenErr *models.ForbiddenError
		switch {
		case errors.As(err, &invalidStatus):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": invalidStatus.Error()})
		case errors.As(err, &forbiddenErr):
			ctx.JSON(http.StatusForbidden, gin.H{"error": forbiddenErr.Reason})
		case errors.Is(err, gorm.ErrRecordNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		default:
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order status"})
		}
		return
	}

	ctx.JSON(http.StatusOK, order)
}

// GetOrderByID godoc
// @Summary Get order by ID
// @Description Get a single order with its items and payment
// @Tags orders
// @Accept json
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} models.Order
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /api/v1/orders/{id} [get]
func (c *orderController) GetOrderByID(ctx *gin.Context) {
	actor, ok := actorFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	orderID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID format"})
		return
	}

	order, err := c.service.GetOrder(ctx.Request.Context(), actor, uint(orderID))
	if err != nil {
		var forbiddenErr *models.ForbiddenError
		switch {
		case errors.As(err, &forbiddenErr):
			ctx.JSON(http.StatusForbidden, gin.H{"error": forbiddenErr.Reason})
		case errors.Is(err, gorm.ErrRecordNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		default:
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve order"})
		}
		return
	}

	ctx.JSON(http.StatusOK, order)
}

// GetAllOrders godoc
// @Summary List orders
// @Description List the orders visible to the caller: customers see their own, restaurant owners their restaurant's, admins all
// @Tags orders
// @Accept json
// @Produce json
// @Success 200 {array} models.Order
// @Failure 401 {object} map[string]string
// @Security BearerAuth
// @Router /api/v1/orders [get]
func (c *orderController) GetAllOrders(ctx *gin.Context) {
	actor, ok := actorFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	orders, err := c.service.ListOrders(ctx.Request.Context(), actor)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve orders"})
		return
	}
	ctx.JSON(http.StatusOK, orders)
}
