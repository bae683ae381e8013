// Package tool builds the tenant- and variant-specific set of callable
// tools for one turn. Every handler closes over the resolved tenant id,
// so catalog, cart and order mutations never cross tenants.
package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	checkoutx "github.com/ventaluz/ventaluz/agent/checkout"
	contractx "github.com/ventaluz/ventaluz/agent/contract"
)

const (
	ToolSearchCatalog       = "search_catalog"
	ToolCheckStock          = "check_stock"
	ToolAddToCart           = "add_to_cart"
	ToolViewCart            = "view_cart"
	ToolFinalizeOrder       = "finalize_order"
	ToolSendPaymentLink     = "send_payment_link"
	ToolSendWelcomeCatalog  = "send_welcome_catalog"
	ToolCreateDeliveryOrder = "create_delivery_order"
)

const (
	defaultWelcomeInitialDelay = 2500 * time.Millisecond
	defaultWelcomeImageDelay   = 500 * time.Millisecond
	defaultSearchLimit         = 3
)

// Executor dispatches one tool invocation. Tool failures come back in
// ToolResult.Error; the error return is reserved for programming bugs.
type Executor func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error)

type Deps struct {
	Products contractx.ProductStore
	Checkout *checkoutx.Service
	Channel  contractx.Channel

	// Welcome image pacing; zero values take the defaults.
	WelcomeInitialDelay time.Duration
	WelcomeImageDelay   time.Duration
}

func (d Deps) welcomeInitialDelay() time.Duration {
	if d.WelcomeInitialDelay > 0 {
		return d.WelcomeInitialDelay
	}
	return defaultWelcomeInitialDelay
}

func (d Deps) welcomeImageDelay() time.Duration {
	if d.WelcomeImageDelay > 0 {
		return d.WelcomeImageDelay
	}
	return defaultWelcomeImageDelay
}

type handlerFunc func(ctx context.Context, args map[string]any) contractx.ToolResult

// BuildForTenant produces the tool infos visible to the model and the
// executor backing them, both bound to the given tenant. The trace
// records what ran so the orchestrator can enforce turn post-conditions.
func BuildForTenant(deps Deps, cfg *contractx.TenantConfig, trace *TurnTrace) ([]*schema.ToolInfo, Executor) {
	handlers := handlersForTenant(deps, cfg, trace)
	executor := func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
		if trace != nil {
			trace.recordCall(tool, args)
		}
		handler, ok := handlers[tool]
		if !ok {
			return contractx.ToolResult{
				Tool:  tool,
				Error: fmt.Sprintf("tool=%s is unavailable for tenant=%s", tool, cfg.ID),
			}, nil
		}
		return handler(ctx, args), nil
	}
	return infosForVariant(cfg.Variant), executor
}

func handlersForTenant(deps Deps, cfg *contractx.TenantConfig, trace *TurnTrace) map[string]handlerFunc {
	switch cfg.Variant {
	case contractx.VariantDirectOrder:
		return map[string]handlerFunc{
			ToolCreateDeliveryOrder: createDeliveryOrderHandler(deps, cfg),
		}
	default:
		return map[string]handlerFunc{
			ToolSearchCatalog:      searchCatalogHandler(deps, cfg),
			ToolCheckStock:         checkStockHandler(deps, cfg),
			ToolAddToCart:          addToCartHandler(deps, cfg),
			ToolViewCart:           viewCartHandler(deps, cfg),
			ToolFinalizeOrder:      finalizeOrderHandler(deps, cfg, trace),
			ToolSendPaymentLink:    sendPaymentLinkHandler(deps, cfg, trace),
			ToolSendWelcomeCatalog: sendWelcomeCatalogHandler(deps, cfg, trace),
		}
	}
}

func infosForVariant(variant contractx.AgentVariant) []*schema.ToolInfo {
	switch variant {
	case contractx.VariantDirectOrder:
		return []*schema.ToolInfo{
			{
				Name: ToolCreateDeliveryOrder,
				Desc: "Crea un pedido de entrega a domicilio con la lista completa de productos y los datos del cliente.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"items": {
						Type:     schema.Array,
						Desc:     "Productos del pedido",
						Required: true,
						ElemInfo: &schema.ParameterInfo{
							Type: schema.Object,
							SubParams: map[string]*schema.ParameterInfo{
								"product_id": {Type: schema.String, Desc: "El ID del producto", Required: true},
								"quantity":   {Type: schema.Integer, Desc: "La cantidad", Required: true},
							},
						},
					},
					"customer_name":    {Type: schema.String, Desc: "Nombre completo del cliente", Required: true},
					"customer_phone":   {Type: schema.String, Desc: "Telefono del cliente", Required: true},
					"delivery_address": {Type: schema.String, Desc: "Direccion de entrega", Required: true},
					"district":         {Type: schema.String, Desc: "Distrito de entrega", Required: true},
				}),
			},
		}
	default:
		return []*schema.ToolInfo{
			{
				Name: ToolSearchCatalog,
				Desc: "Busca productos en el catalogo por descripcion semantica o palabras clave.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"query": {Type: schema.String, Desc: "La descripcion del producto o consulta del cliente", Required: true},
				}),
			},
			{
				Name: ToolCheckStock,
				Desc: "Consulta el stock disponible (tallas y colores) de un producto especifico.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"product_id": {Type: schema.String, Desc: "El ID del producto", Required: true},
				}),
			},
			{
				Name: ToolAddToCart,
				Desc: "Agrega un producto al carrito de compras del cliente. Requiere talla y color ya elegidos.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"customer":   {Type: schema.String, Desc: "El numero de telefono del cliente", Required: true},
					"product_id": {Type: schema.String, Desc: "El ID del producto", Required: true},
					"quantity":   {Type: schema.Integer, Desc: "La cantidad (minimo 1)"},
					"size":       {Type: schema.String, Desc: "La talla elegida", Required: true},
					"color":      {Type: schema.String, Desc: "El color elegido", Required: true},
					"unit_price": {Type: schema.Number, Desc: "El precio unitario", Required: true},
				}),
			},
			{
				Name: ToolViewCart,
				Desc: "Muestra un resumen de los productos en el carrito del cliente.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"customer": {Type: schema.String, Desc: "El numero de telefono del cliente", Required: true},
				}),
			},
			{
				Name: ToolFinalizeOrder,
				Desc: "Crea una orden final con los datos del cliente a partir del carrito.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"customer":      {Type: schema.String, Desc: "El numero de telefono del cliente", Required: true},
					"customer_name": {Type: schema.String, Desc: "Nombre completo", Required: true},
					"national_id":   {Type: schema.String, Desc: "Documento de identidad (DNI)"},
					"address":       {Type: schema.String, Desc: "Direccion de entrega", Required: true},
					"district":      {Type: schema.String, Desc: "Distrito de entrega"},
				}),
			},
			{
				Name: ToolSendPaymentLink,
				Desc: "Genera y envia un link de pago para una orden especifica.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"order_id": {Type: schema.String, Desc: "El ID de la orden", Required: true},
				}),
			},
			{
				Name: ToolSendWelcomeCatalog,
				Desc: "Envia las imagenes del catalogo de bienvenida al cliente.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"customer": {Type: schema.String, Desc: "El numero de telefono del cliente", Required: true},
				}),
			},
		}
	}
}
