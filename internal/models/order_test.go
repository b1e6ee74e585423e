package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&Order{}, &OrderItem{}, &Meal{}, &CustomMeal{})
	require.NoError(t, err)

	return db
}

func uintPtr(v uint) *uint { return &v }

func TestOrderItemRequiresExactlyOneReference(t *testing.T) {
	db := setupTestDB(t)

	testCases := []struct {
		name         string
		mealID       *uint
		customMealID *uint
		quantity     int
		wantErr      error
	}{
		{
			name:     "meal only is valid",
			mealID:   uintPtr(1),
			quantity: 1,
		},
		{
			name:         "custom meal only is valid",
			customMealID: uintPtr(1),
			quantity:     2,
		},
		{
			name:         "both references rejected",
			mealID:       uintPtr(1),
			customMealID: uintPtr(2),
			quantity:     1,
			wantErr:      ErrItemRefBoth,
		},
		{
			name:     "neither reference rejected",
			quantity: 1,
			wantErr:  ErrItemRefNone,
		},
		{
			name:     "zero quantity rejected",
			mealID:   uintPtr(1),
			quantity: 0,
			wantErr:  ErrItemBadQuantity,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			item := OrderItem{
				OrderID:      1,
				MealID:       tt.mealID,
				CustomMealID: tt.customMealID,
				Quantity:     tt.quantity,
				Price:        9.99,
			}
			err := db.Create(&item).Error
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewItemRef(t *testing.T) {
	t.Run("meal reference", func(t *testing.T) {
		ref, err := NewItemRef(uintPtr(7), nil)
		require.NoError(t, err)
		assert.Equal(t, ItemKindMeal, ref.Kind())
		assert.Equal(t, uint(7), ref.ID())
	})

	t.Run("custom meal reference", func(t *testing.T) {
		ref, err := NewItemRef(nil, uintPtr(3))
		require.NoError(t, err)
		assert.Equal(t, ItemKindCustomMeal, ref.Kind())
		assert.Equal(t, uint(3), ref.ID())
	})

	t.Run("both set", func(t *testing.T) {
		_, err := NewItemRef(uintPtr(1), uintPtr(2))
		assert.ErrorIs(t, err, ErrItemRefBoth)
	})

	t.Run("neither set", func(t *testing.T) {
		_, err := NewItemRef(nil, nil)
		assert.ErrorIs(t, err, ErrItemRefNone)
	})
}

func TestOrderStatusValidation(t *testing.T) {
	for _, status := range []string{StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusDelivered, StatusCancelled} {
		assert.True(t, ValidOrderStatus(status), status)
	}
	assert.False(t, ValidOrderStatus("shipped"))
	assert.False(t, ValidOrderStatus(""))

	assert.Equal(t, "Ready for Pickup", OrderStatusLabel(StatusReady))
	assert.Equal(t, "unknown", OrderStatusLabel("unknown"))
}
