package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	contractx "github.com/ventaluz/ventaluz/agent/contract"
)

func searchCatalogHandler(deps Deps, cfg *contractx.TenantConfig) handlerFunc {
	tenantID := cfg.ID
	return func(ctx context.Context, args map[string]any) contractx.ToolResult {
		query, err := stringArg(args, "query")
		if err != nil {
			return contractx.ToolResult{Tool: ToolSearchCatalog, Error: err.Error()}
		}

		products, err := deps.Products.Search(ctx, tenantID, query, defaultSearchLimit)
		if err != nil {
			return contractx.ToolResult{Tool: ToolSearchCatalog, Error: fmt.Sprintf("catalog search failed: %v", err)}
		}
		if len(products) == 0 {
			return contractx.ToolResult{
				Tool:   ToolSearchCatalog,
				Result: "No encontre productos que coincidan con esa descripcion.",
			}
		}

		payload, err := json.Marshal(products)
		if err != nil {
			return contractx.ToolResult{Tool: ToolSearchCatalog, Error: fmt.Sprintf("encode products: %v", err)}
		}
		return contractx.ToolResult{
			Tool:   ToolSearchCatalog,
			Result: fmt.Sprintf("Productos encontrados:\n%s", payload),
		}
	}
}

func checkStockHandler(deps Deps, cfg *contractx.TenantConfig) handlerFunc {
	tenantID := cfg.ID
	return func(ctx context.Context, args map[string]any) contractx.ToolResult {
		productID, err := stringArg(args, "product_id")
		if err != nil {
			return contractx.ToolResult{Tool: ToolCheckStock, Error: err.Error()}
		}

		product, err := deps.Products.Get(ctx, tenantID, productID)
		if errors.Is(err, contractx.ErrNotFound) {
			return contractx.ToolResult{Tool: ToolCheckStock, Error: "producto no encontrado"}
		}
		if err != nil {
			return contractx.ToolResult{Tool: ToolCheckStock, Error: fmt.Sprintf("stock lookup failed: %v", err)}
		}

		stock, err := json.Marshal(product.Stock)
		if err != nil {
			return contractx.ToolResult{Tool: ToolCheckStock, Error: fmt.Sprintf("encode stock: %v", err)}
		}
		return contractx.ToolResult{
			Tool:   ToolCheckStock,
			Result: fmt.Sprintf("Stock disponible para %s:\n%s", product.Name, stock),
		}
	}
}
