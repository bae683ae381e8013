package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/ventaluz/ventaluz/agent/contract"
)

func addToCartHandler(deps Deps, cfg *contractx.TenantConfig) handlerFunc {
	tenantID := cfg.ID
	return func(ctx context.Context, args map[string]any) contractx.ToolResult {
		customer, err := stringArg(args, "customer")
		if err != nil {
			return contractx.ToolResult{Tool: ToolAddToCart, Error: err.Error()}
		}
		productID, err := stringArg(args, "product_id")
		if err != nil {
			return contractx.ToolResult{Tool: ToolAddToCart, Error: err.Error()}
		}
		size, err := stringArg(args, "size")
		if err != nil {
			return contractx.ToolResult{Tool: ToolAddToCart, Error: err.Error()}
		}
		color, err := stringArg(args, "color")
		if err != nil {
			return contractx.ToolResult{Tool: ToolAddToCart, Error: err.Error()}
		}
		unitPrice, err := floatArg(args, "unit_price")
		if err != nil {
			return contractx.ToolResult{Tool: ToolAddToCart, Error: err.Error()}
		}
		quantity, err := intArg(args, "quantity", 1)
		if err != nil {
			return contractx.ToolResult{Tool: ToolAddToCart, Error: err.Error()}
		}
		if quantity < 1 {
			return contractx.ToolResult{Tool: ToolAddToCart, Error: "quantity must be >= 1"}
		}

		cart, err := deps.Checkout.AddItem(ctx, customer, tenantID, contractx.CartItem{
			ProductID: productID,
			Quantity:  quantity,
			Size:      size,
			Color:     color,
			UnitPrice: unitPrice,
		})
		if err != nil {
			return contractx.ToolResult{Tool: ToolAddToCart, Error: fmt.Sprintf("add to cart failed: %v", err)}
		}
		return contractx.ToolResult{
			Tool:   ToolAddToCart,
			Result: fmt.Sprintf("Producto agregado al carrito con exito. Total actual: %.2f", cart.Total),
		}
	}
}

func viewCartHandler(deps Deps, cfg *contractx.TenantConfig) handlerFunc {
	tenantID := cfg.ID
	return func(ctx context.Context, args map[string]any) contractx.ToolResult {
		customer, err := stringArg(args, "customer")
		if err != nil {
			return contractx.ToolResult{Tool: ToolViewCart, Error: err.Error()}
		}

		cart, err := deps.Checkout.ViewCart(ctx, customer, tenantID)
		if errors.Is(err, contractx.ErrNotFound) {
			return contractx.ToolResult{Tool: ToolViewCart, Result: "Tu carrito esta vacio."}
		}
		if err != nil {
			return contractx.ToolResult{Tool: ToolViewCart, Error: fmt.Sprintf("view cart failed: %v", err)}
		}
		return contractx.ToolResult{Tool: ToolViewCart, Result: cartSummary(cart)}
	}
}

func cartSummary(cart *contractx.Cart) string {
	if cart == nil || len(cart.Items) == 0 {
		return "Tu carrito esta vacio."
	}

	var b strings.Builder
	b.WriteString("Resumen de tu carrito:\n")
	for i, item := range cart.Items {
		fmt.Fprintf(&b, "%d. %s x%d (talla %s, color %s) - %.2f c/u\n",
			i+1, item.ProductID, item.Quantity, item.Size, item.Color, item.UnitPrice)
	}
	fmt.Fprintf(&b, "Total: %.2f", cart.Total)
	return b.String()
}
