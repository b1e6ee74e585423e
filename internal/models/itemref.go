package models

// ItemKind discriminates what a line item points at.
type ItemKind string

const (
	ItemKindMeal       ItemKind = "meal"
	ItemKindCustomMeal ItemKind = "custom_meal"
)

// ItemRef is a validated reference to either a fixed meal or a custom meal.
// The request wire format carries two nullable ids; converting it into an
// ItemRef once, up front, makes the both-or-neither case unrepresentable in
// the rest of the flow.
type ItemRef struct {
	kind ItemKind
	id   uint
}

// MealRef builds a reference to a fixed meal.
func MealRef(id uint) ItemRef {
	return ItemRef{kind: ItemKindMeal, id: id}
}

// CustomMealRef builds a reference to a custom meal.
func CustomMealRef(id uint) ItemRef {
	return ItemRef{kind: ItemKindCustomMeal, id: id}
}

// NewItemRef validates the nullable id pair coming off the wire. Exactly one
// of mealID and customMealID must be set.
func NewItemRef(mealID, customMealID *uint) (ItemRef, error) {
	switch {
	case mealID != nil && customMealID != nil:
		return ItemRef{}, ErrItemRefBoth
	case mealID != nil:
		return MealRef(*mealID), nil
	case customMealID != nil:
		return CustomMealRef(*customMealID), nil
	default:
		return ItemRef{}, ErrItemRefNone
	}
}

func (r ItemRef) Kind() ItemKind { return r.kind }

func (r ItemRef) ID() uint { return r.id }
