package models

import (
	"fmt"
)

// APIError represents a standardized error response for the API
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error code constants
const (
	// General errors
	ErrBadRequest       = "BAD_REQUEST"
	ErrUnauthorized     = "UNAUTHORIZED"
	ErrForbidden        = "FORBIDDEN"
	ErrNotFound         = "NOT_FOUND"
	ErrConflict         = "CONFLICT"
	ErrInternalServer   = "INTERNAL_SERVER_ERROR"
	ErrValidationFailed = "VALIDATION_FAILED"

	// Ordering-specific errors
	ErrOrderNotFound       = "ORDER_NOT_FOUND"
	ErrInvalidOrderStatus  = "INVALID_ORDER_STATUS"
	ErrIngredientShortfall = "INGREDIENT_SHORTFALL"
	ErrDuplicateSubmission = "DUPLICATE_SUBMISSION"
	ErrPaymentUnavailable  = "PAYMENT_UNAVAILABLE"
)

// NewAPIError creates a new API error with the given code and message
func NewAPIError(code, message string, details ...map[string]interface{}) APIError {
	err := APIError{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// IngredientShortfall describes one recipe line that cannot be satisfied:
// either the ingredient is flagged unavailable or its stock is below the
// required amount for the requested order quantity.
type IngredientShortfall struct {
	IngredientID uint    `json:"ingredient_id"`
	Name         string  `json:"name"`
	IsAvailable  bool    `json:"available_flag"`
	Required     float64 `json:"required_amount"`
	InStock      float64 `json:"in_stock_amount"`
}

// AvailabilityResult is the outcome of checking one catalog item at a
// requested quantity. Unavailable is empty iff IsAvailable is true.
type AvailabilityResult struct {
	IsAvailable bool                  `json:"is_available"`
	Unavailable []IngredientShortfall `json:"unavailable_ingredients"`
}

// OrderValidationError rejects an order at the pre-flight gate. It carries
// the full shortfall list across all line items; no order rows exist when
// this error is returned.
type OrderValidationError struct {
	Unavailable []IngredientShortfall
}

func (e *OrderValidationError) Error() string {
	return fmt.Sprintf("order cannot be placed: %d ingredient(s) unavailable or under-stocked", len(e.Unavailable))
}

// ForbiddenError means the actor is not allowed to perform the operation.
// Nothing was mutated.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	return e.Reason
}

// InvalidStatusError means the requested order status is not one of the
// known values. Nothing was mutated.
type InvalidStatusError struct {
	Status string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid order status %q", e.Status)
}
