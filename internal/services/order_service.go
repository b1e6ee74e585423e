package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/uchef/uchef-backend/internal/events"
	"github.com/uchef/uchef-backend/internal/metrics"
	"github.com/uchef/uchef-backend/internal/models"
	"gorm.io/gorm"
)

// LineItemInput is one requested order line. Exactly one of MealID and
// CustomMealID must be set; Price is the per-unit price the client saw,
// snapshotted onto the order item.
type LineItemInput struct {
	MealID              *uint   `json:"meal"`
	CustomMealID        *uint   `json:"custom_meal"`
	Quantity            int     `json:"quantity" binding:"required,gt=0"`
	Price               float64 `json:"price"`
	SpecialInstructions string  `json:"special_instructions"`
}

// PaymentInput is the optional payment block of a placement request.
type PaymentInput struct {
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
	TransactionID string  `json:"transaction_id"`
}

// PlaceOrderRequest is the full placement request after binding.
type PlaceOrderRequest struct {
	RestaurantID    uint           `json:"restaurant" binding:"required"`
	TotalPrice      float64        `json:"total_price"`
	DeliveryAddress string         `json:"delivery_address" binding:"required"`
	DeliveryNotes   string         `json:"delivery_notes"`
	Items           []LineItemInput `json:"items" binding:"required,min=1"`
	Payment         *PaymentInput  `json:"payment"`
	IdempotencyKey  string         `json:"-"`
}

// LineItemOutcome classifies what happened to one line item during the
// commit pass.
type LineItemOutcome string

const (
	// LineItemFulfilled: the item was created and every required
	// ingredient was decremented.
	LineItemFulfilled LineItemOutcome = "fulfilled"
	// LineItemSkippedMissingReference: the referenced meal or custom meal
	// vanished between pre-flight and commit; no item row was created.
	LineItemSkippedMissingReference LineItemOutcome = "skipped_missing_reference"
	// LineItemSkippedInsufficientStock: the item row was created but at
	// least one required ingredient could not be decremented because a
	// concurrent order consumed the stock first.
	LineItemSkippedInsufficientStock LineItemOutcome = "skipped_insufficient_stock"
)

// LineItemResult reports the per-item outcome of the commit pass to the
// caller, so partial fulfilment is observable instead of log-only.
type LineItemResult struct {
	Index   int             `json:"index"`
	Outcome LineItemOutcome `json:"outcome"`
	Detail  string          `json:"detail,omitempty"`
}

// ErrDuplicateOrder rejects a placement whose idempotency key was already
// claimed by an earlier request.
var ErrDuplicateOrder = errors.New("an order with this idempotency key was already submitted")

var errInsufficientStock = errors.New("insufficient ingredient stock")

// OrderService is the order placement and fulfilment engine.
type OrderService interface {
	// PlaceOrder runs the two-pass placement flow: a read-only pre-flight
	// over every line item that accumulates all shortfalls, then a single
	// transaction creating the order, its items, and the optional payment,
	// decrementing ingredient stock with per-ingredient atomic updates.
	// A non-empty shortfall list aborts before any write with
	// *models.OrderValidationError.
	PlaceOrder(ctx context.Context, actor models.Actor, req PlaceOrderRequest) (*models.Order, []LineItemResult, error)
	// UpdateStatus sets a new status on the order and notifies the
	// customer. Only the order's restaurant owner or an admin may call it.
	UpdateStatus(ctx context.Context, actor models.Actor, orderID uint, newStatus, reason string) (*models.Order, error)
	// GetOrder loads one order with items and payment, enforcing
	// owner/restaurant-owner/admin visibility.
	GetOrder(ctx context.Context, actor models.Actor, orderID uint) (*models.Order, error)
	// ListOrders returns the orders the actor may see: admins all,
	// restaurant owners their restaurant's, customers their own.
	ListOrders(ctx context.Context, actor models.Actor) ([]models.Order, error)
}

type orderService struct {
	db            *gorm.DB
	availability  AvailabilityService
	notifications NotificationService
	publisher     events.Publisher
	rdb           *redis.Client
	log           *logrus.Logger
}

// NewOrderService creates a new instance of OrderService. rdb may be nil;
// idempotency keys are then not enforced.
func NewOrderService(db *gorm.DB, availability AvailabilityService, notifications NotificationService, publisher events.Publisher, rdb *redis.Client) OrderService {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	return &orderService{
		db:            db,
		availability:  availability,
		notifications: notifications,
		publisher:     publisher,
		rdb:           rdb,
		log:           log,
	}
}

func (s *orderService) PlaceOrder(ctx context.Context, actor models.Actor, req PlaceOrderRequest) (*models.Order, []LineItemResult, error) {
	if s.rdb != nil && req.IdempotencyKey != "" {
		claimed, err := s.claimIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, nil, err
		}
		if !claimed {
			return nil, nil, ErrDuplicateOrder
		}
	}

	var restaurant models.Restaurant
	if err := s.db.WithContext(ctx).First(&restaurant, req.RestaurantID).Error; err != nil {
		return nil, nil, err
	}

	refs, err := s.validateItems(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	// Pre-flight pass: accumulate every shortfall across all line items so
	// the rejection reports the complete picture, not just the first miss.
	var shortfalls []models.IngredientShortfall
	for i, item := range req.Items {
		result, err := s.availability.Check(refs[i], item.Quantity)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// The commit pass will skip it; a vanished reference is not
				// an availability shortfall.
				continue
			}
			return nil, nil, err
		}
		shortfalls = append(shortfalls, result.Unavailable...)
	}
	if len(shortfalls) > 0 {
		metrics.OrdersRejected.Inc()
		return nil, nil, &models.OrderValidationError{Unavailable: shortfalls}
	}

	// Commit pass: order, items, and payment are one transaction. Each
	// ingredient decrement inside it is a single conditional UPDATE, so two
	// concurrent orders can never drive shared stock negative.
	order := &models.Order{
		UserID:          actor.UserID,
		RestaurantID:    req.RestaurantID,
		Status:          models.StatusPending,
		TotalPrice:      req.TotalPrice,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryNotes:   req.DeliveryNotes,
	}
	results := make([]LineItemResult, 0, len(req.Items))

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		for i, item := range req.Items {
			results = append(results, s.commitLineItem(tx, order, refs[i], i, item))
		}
		if req.Payment != nil {
			payment := &models.Payment{
				OrderID:       order.ID,
				Amount:        req.Payment.Amount,
				PaymentMethod: req.Payment.PaymentMethod,
				TransactionID: req.Payment.TransactionID,
				Status:        models.PaymentStatusPending,
			}
			if err := tx.Create(payment).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	metrics.OrdersPlaced.Inc()
	s.notifyNewOrder(order, &restaurant)
	s.publishOrderEvent(ctx, order, "order_placed")

	full, err := s.loadOrder(ctx, order.ID)
	if err != nil {
		return nil, nil, err
	}
	return full, results, nil
}

// validateItems converts the nullable id pairs into validated refs and
// checks that fixed meals belong to the requested restaurant.
func (s *orderService) validateItems(ctx context.Context, req PlaceOrderRequest) ([]models.ItemRef, error) {
	refs := make([]models.ItemRef, len(req.Items))
	for i, item := range req.Items {
		ref, err := models.NewItemRef(item.MealID, item.CustomMealID)
		if err != nil {
			return nil, err
		}
		if item.Quantity <= 0 {
			return nil, models.ErrItemBadQuantity
		}
		if ref.Kind() == models.ItemKindMeal {
			var meal models.Meal
			err := s.db.WithContext(ctx).Select("id", "restaurant_id").First(&meal, ref.ID()).Error
			if err == nil && meal.RestaurantID != req.RestaurantID {
				return nil, &models.ForbiddenError{
					Reason: fmt.Sprintf("meal %d does not belong to restaurant %d", ref.ID(), req.RestaurantID),
				}
			}
			// A missing meal is tolerated here; the commit pass records it
			// as skipped_missing_reference.
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}
		refs[i] = ref
	}
	return refs, nil
}

// commitLineItem resolves one line item, decrements its required
// ingredients, and creates the order item row. Failures are isolated to the
// item: the order itself is never aborted once it exists.
func (s *orderService) commitLineItem(tx *gorm.DB, order *models.Order, ref models.ItemRef, index int, item LineItemInput) LineItemResult {
	result := LineItemResult{Index: index, Outcome: LineItemFulfilled}

	lines, err := resolveRequiredLines(tx, ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.WithFields(logrus.Fields{
				"order_id": order.ID,
				"kind":     ref.Kind(),
				"ref_id":   ref.ID(),
			}).Warn("Line item references a catalog item that no longer exists, skipping")
		} else {
			s.log.WithError(err).WithField("order_id", order.ID).
				Error("Failed to resolve line item recipe, skipping")
		}
		result.Outcome = LineItemSkippedMissingReference
		result.Detail = fmt.Sprintf("%s %d could not be resolved", ref.Kind(), ref.ID())
		return result
	}

	for _, line := range lines {
		subtract := line.PerUnit * float64(item.Quantity)
		if err := s.decrementIngredient(tx, line.Ingredient.ID, subtract); err != nil {
			if errors.Is(err, errInsufficientStock) {
				metrics.IngredientDecrements.WithLabelValues("contended").Inc()
				s.log.WithFields(logrus.Fields{
					"order_id":      order.ID,
					"ingredient_id": line.Ingredient.ID,
					"ingredient":    line.Ingredient.Name,
					"required":      subtract,
				}).Warn("Insufficient ingredient stock at commit time")
				result.Outcome = LineItemSkippedInsufficientStock
				if result.Detail != "" {
					result.Detail += "; "
				}
				result.Detail += fmt.Sprintf("insufficient stock of %s", line.Ingredient.Name)
			} else {
				s.log.WithError(err).WithFields(logrus.Fields{
					"order_id":      order.ID,
					"ingredient_id": line.Ingredient.ID,
				}).Error("Failed to update ingredient stock")
			}
			continue
		}
		metrics.IngredientDecrements.WithLabelValues("applied").Inc()
	}

	orderItem := models.OrderItem{
		OrderID:             order.ID,
		Quantity:            item.Quantity,
		Price:               item.Price,
		SpecialInstructions: item.SpecialInstructions,
	}
	id := ref.ID()
	if ref.Kind() == models.ItemKindMeal {
		orderItem.MealID = &id
	} else {
		orderItem.CustomMealID = &id
	}
	if err := tx.Create(&orderItem).Error; err != nil {
		s.log.WithError(err).WithField("order_id", order.ID).
			Error("Failed to create order item")
		result.Detail = err.Error()
	}
	return result
}

// decrementIngredient applies one conditional atomic decrement. The WHERE
// guard is what makes concurrent orders safe: quantity can never go
// negative, and zero affected rows means another order consumed the stock
// first. A successful decrement that leaves the quantity at or below
// StockEpsilon floors it to exactly zero and flips availability off.
func (s *orderService) decrementIngredient(tx *gorm.DB, ingredientID uint, amount float64) error {
	res := tx.Model(&models.Ingredient{}).
		Where("id = ? AND quantity >= ?", ingredientID, amount).
		Update("quantity", gorm.Expr("quantity - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errInsufficientStock
	}
	return tx.Model(&models.Ingredient{}).
		Where("id = ? AND quantity <= ?", ingredientID, models.StockEpsilon).
		Updates(map[string]interface{}{"quantity": 0, "is_available": false}).Error
}

func (s *orderService) UpdateStatus(ctx context.Context, actor models.Actor, orderID uint, newStatus, reason string) (*models.Order, error) {
	if !models.ValidOrderStatus(newStatus) {
		return nil, &models.InvalidStatusError{Status: newStatus}
	}

	var order models.Order
	err := s.db.WithContext(ctx).Preload("Restaurant").First(&order, orderID).Error
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin() && actor.UserID != order.Restaurant.OwnerID {
		return nil, &models.ForbiddenError{Reason: "only the restaurant owner or an admin may update order status"}
	}

	if err := s.db.WithContext(ctx).Model(&order).Update("status", newStatus).Error; err != nil {
		return nil, err
	}
	order.Status = newStatus

	s.notifyStatusChange(&order, actor, newStatus, reason)
	s.publishOrderEvent(ctx, &order, "order_status_changed")

	return s.loadOrder(ctx, order.ID)
}

func (s *orderService) GetOrder(ctx context.Context, actor models.Actor, orderID uint) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() || order.UserID == actor.UserID || order.Restaurant.OwnerID == actor.UserID {
		return order, nil
	}
	return nil, &models.ForbiddenError{Reason: "you do not have permission to view this order"}
}

func (s *orderService) ListOrders(ctx context.Context, actor models.Actor) ([]models.Order, error) {
	query := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Payment").
		Preload("Restaurant").
		Order("created_at DESC")

	switch actor.Role {
	case models.RoleAdmin:
		// Admins see everything.
	case models.RoleRestaurant:
		var restaurant models.Restaurant
		if err := s.db.WithContext(ctx).Where("owner_id = ?", actor.UserID).First(&restaurant).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return []models.Order{}, nil
			}
			return nil, err
		}
		query = query.Where("restaurant_id = ?", restaurant.ID)
	default:
		query = query.Where("user_id = ?", actor.UserID)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *orderService) loadOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Meal").
		Preload("Items.CustomMeal").
		Preload("Payment").
		Preload("Restaurant").
		First(&order, orderID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *orderService) claimIdempotencyKey(ctx context.Context, key string) (bool, error) {
	return s.rdb.SetNX(ctx, "uchef:order:idem:"+key, 1, 24*time.Hour).Result()
}

// notifyNewOrder tells the restaurant owner a new order arrived. Delivery
// failures are logged and swallowed: notification is a side effect, not
// part of the order's success contract.
func (s *orderService) notifyNewOrder(order *models.Order, restaurant *models.Restaurant) {
	message := fmt.Sprintf("Order #%d was placed at %s.", order.ID, restaurant.Name)
	_, err := s.notifications.Notify(restaurant.OwnerID, models.NotificationNewOrder, "New order received", message, NotificationOptions{
		SenderID:     &order.UserID,
		RestaurantID: &restaurant.ID,
		OrderID:      &order.ID,
	})
	if err != nil {
		metrics.NotificationFailures.Inc()
		s.log.WithError(err).WithField("order_id", order.ID).
			Warn("Failed to notify restaurant owner of new order")
	}
}

// notifyStatusChange emits exactly one notification to the order's
// customer, typed by the new status.
func (s *orderService) notifyStatusChange(order *models.Order, actor models.Actor, newStatus, reason string) {
	var notificationType, title, message string
	switch newStatus {
	case models.StatusConfirmed:
		notificationType = models.NotificationOrderAccepted
		title = "Order accepted"
		message = fmt.Sprintf("Your order #%d has been accepted by %s.", order.ID, order.Restaurant.Name)
	case models.StatusCancelled:
		notificationType = models.NotificationOrderRejected
		title = "Order cancelled"
		message = fmt.Sprintf("Your order #%d has been cancelled.", order.ID)
		if reason != "" {
			message += " Reason: " + reason
		}
	case models.StatusReady:
		notificationType = models.NotificationOrderReady
		title = "Order ready"
		message = fmt.Sprintf("Your order #%d is ready for pickup.", order.ID)
	case models.StatusDelivered:
		notificationType = models.NotificationOrderDelivered
		title = "Order delivered"
		message = fmt.Sprintf("Your order #%d has been delivered.", order.ID)
	default:
		notificationType = models.NotificationOrderStatusUpdate
		title = "Order status updated"
		message = fmt.Sprintf("Your order #%d status changed to %s.", order.ID, models.OrderStatusLabel(newStatus))
	}

	_, err := s.notifications.Notify(order.UserID, notificationType, title, message, NotificationOptions{
		SenderID:     &actor.UserID,
		RestaurantID: &order.RestaurantID,
		OrderID:      &order.ID,
	})
	if err != nil {
		metrics.NotificationFailures.Inc()
		s.log.WithError(err).WithFields(logrus.Fields{
			"order_id": order.ID,
			"status":   newStatus,
		}).Warn("Failed to notify customer of order status change")
	}
}

func (s *orderService) publishOrderEvent(ctx context.Context, order *models.Order, eventType string) {
	if s.publisher == nil {
		return
	}
	ev := events.OrderEvent{
		Type:         eventType,
		OrderID:      order.ID,
		RestaurantID: order.RestaurantID,
		UserID:       order.UserID,
		Status:       order.Status,
		OccurredAt:   time.Now().UTC(),
	}
	if err := s.publisher.PublishOrderEvent(ctx, ev); err != nil {
		s.log.WithError(err).WithField("order_id", order.ID).
			Warn("Failed to publish order event")
	}
}
