package contract

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrUnauthorized      = errors.New("customer not authorized for tenant")
	ErrToolInput         = errors.New("tool input invalid")
	ErrTransport         = errors.New("outbound transport failed")
	ErrModelInvoke       = errors.New("model invoke failed")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrValidation        = errors.New("validation failed")
)
