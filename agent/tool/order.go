package tool

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/ventaluz/ventaluz/agent/contract"
)

func finalizeOrderHandler(deps Deps, cfg *contractx.TenantConfig, trace *TurnTrace) handlerFunc {
	tenantID := cfg.ID
	return func(ctx context.Context, args map[string]any) contractx.ToolResult {
		customer, err := stringArg(args, "customer")
		if err != nil {
			return contractx.ToolResult{Tool: ToolFinalizeOrder, Error: err.Error()}
		}
		customerName, err := stringArg(args, "customer_name")
		if err != nil {
			return contractx.ToolResult{Tool: ToolFinalizeOrder, Error: err.Error()}
		}
		address, err := stringArg(args, "address")
		if err != nil {
			return contractx.ToolResult{Tool: ToolFinalizeOrder, Error: err.Error()}
		}
		nationalID, err := optionalStringArg(args, "national_id")
		if err != nil {
			return contractx.ToolResult{Tool: ToolFinalizeOrder, Error: err.Error()}
		}
		district, err := optionalStringArg(args, "district")
		if err != nil {
			return contractx.ToolResult{Tool: ToolFinalizeOrder, Error: err.Error()}
		}

		order, err := deps.Checkout.Finalize(ctx, customer, tenantID, contractx.CustomerInfo{
			Name:       customerName,
			NationalID: nationalID,
			Address:    address,
			District:   district,
		})
		if errors.Is(err, contractx.ErrEmptyCart) {
			return contractx.ToolResult{
				Tool:  ToolFinalizeOrder,
				Error: "el carrito esta vacio, no hay nada que ordenar",
			}
		}
		if err != nil {
			return contractx.ToolResult{Tool: ToolFinalizeOrder, Error: fmt.Sprintf("finalize order failed: %v", err)}
		}

		if trace != nil {
			trace.recordOrderCreated(order.ID)
		}
		return contractx.ToolResult{
			Tool: ToolFinalizeOrder,
			Result: fmt.Sprintf(
				"Pedido creado con exito. ID: %s. Total: %.2f. Solicita confirmacion de pago.",
				order.ID, order.Total,
			),
		}
	}
}

func sendPaymentLinkHandler(deps Deps, cfg *contractx.TenantConfig, trace *TurnTrace) handlerFunc {
	return func(ctx context.Context, args map[string]any) contractx.ToolResult {
		orderID, err := stringArg(args, "order_id")
		if err != nil {
			return contractx.ToolResult{Tool: ToolSendPaymentLink, Error: err.Error()}
		}

		link, err := deps.Checkout.PaymentLink(ctx, orderID)
		if errors.Is(err, contractx.ErrNotFound) {
			return contractx.ToolResult{Tool: ToolSendPaymentLink, Error: "orden no encontrada"}
		}
		if err != nil {
			return contractx.ToolResult{Tool: ToolSendPaymentLink, Error: fmt.Sprintf("payment link failed: %v", err)}
		}

		if trace != nil {
			trace.recordLinkSent(orderID)
		}
		return contractx.ToolResult{
			Tool:   ToolSendPaymentLink,
			Result: fmt.Sprintf("Link de pago generado: %s. Por favor compartelo con el cliente.", link),
		}
	}
}

func createDeliveryOrderHandler(deps Deps, cfg *contractx.TenantConfig) handlerFunc {
	tenantID := cfg.ID
	return func(ctx context.Context, args map[string]any) contractx.ToolResult {
		items, err := itemsArg(args, "items")
		if err != nil {
			return contractx.ToolResult{Tool: ToolCreateDeliveryOrder, Error: err.Error()}
		}
		customerName, err := stringArg(args, "customer_name")
		if err != nil {
			return contractx.ToolResult{Tool: ToolCreateDeliveryOrder, Error: err.Error()}
		}
		customerPhone, err := stringArg(args, "customer_phone")
		if err != nil {
			return contractx.ToolResult{Tool: ToolCreateDeliveryOrder, Error: err.Error()}
		}
		address, err := stringArg(args, "delivery_address")
		if err != nil {
			return contractx.ToolResult{Tool: ToolCreateDeliveryOrder, Error: err.Error()}
		}
		district, err := stringArg(args, "district")
		if err != nil {
			return contractx.ToolResult{Tool: ToolCreateDeliveryOrder, Error: err.Error()}
		}

		order, err := deps.Checkout.CreateDirectOrder(ctx, customerPhone, tenantID, items, contractx.CustomerInfo{
			Name:     customerName,
			Address:  address,
			District: district,
		})
		if errors.Is(err, contractx.ErrProductNotFound) {
			return contractx.ToolResult{Tool: ToolCreateDeliveryOrder, Error: err.Error()}
		}
		if err != nil {
			return contractx.ToolResult{Tool: ToolCreateDeliveryOrder, Error: fmt.Sprintf("create delivery order failed: %v", err)}
		}

		return contractx.ToolResult{
			Tool: ToolCreateDeliveryOrder,
			Result: fmt.Sprintf(
				"Pedido de entrega creado. ID: %s. Total: %.2f. Confirma el pedido al cliente.",
				order.ID, order.Total,
			),
		}
	}
}
