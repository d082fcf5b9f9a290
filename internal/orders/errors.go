package orders

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrNotEnoughStock  = errors.New("not enough stock")
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidState    = errors.New("invalid state")
	ErrForbidden       = errors.New("forbidden")
)
