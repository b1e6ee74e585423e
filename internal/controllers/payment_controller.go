package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/uchef/uchef-backend/internal/payments"
)

// PaymentController exposes payment-intent creation against the external
// processor
type PaymentController interface {
	CreateIntent(c *gin.Context)
}

type paymentController struct {
	client *payments.Client
}

// NewPaymentController creates a new instance of PaymentController
func NewPaymentController(client *payments.Client) *paymentController {
	return &paymentController{client: client}
}

type createIntentRequest struct {
	Amount   int64  `json:"amount" binding:"required,gt=0"` // minor currency units
	Currency string `json:"currency"`
}

// CreateIntent godoc
// @Summary Create a payment intent
// @Description Ask the payment processor for an intent and return its client secret
// @Tags payments
// @Accept json
// @Produce json
// @Param intent body createIntentRequest true "Amount in minor currency units"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Security BearerAuth
// @Router /api/v1/payments/intent [post]
func (c *paymentController) CreateIntent(ctx *gin.Context) {
	if _, ok := actorFromContext(ctx); !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req createIntentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	secret, err := c.client.CreateIntent(ctx.Request.Context(), req.Amount, req.Currency)
	if err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payment processor unavailable"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"client_secret": secret})
}
