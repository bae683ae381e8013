package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/ventaluz/ventaluz/agent/contract"
)

// sendWelcomeCatalogHandler dispatches the tenant's welcome images to the
// customer. The sends are deferred and paced so they trail the greeting
// text rather than racing it, and they never block or fail the turn.
func sendWelcomeCatalogHandler(deps Deps, cfg *contractx.TenantConfig, trace *TurnTrace) handlerFunc {
	images := append([]string(nil), cfg.WelcomeImages...)
	creds := cfg.Creds()
	tenantID := cfg.ID
	initialDelay := deps.welcomeInitialDelay()
	imageDelay := deps.welcomeImageDelay()

	return func(ctx context.Context, args map[string]any) contractx.ToolResult {
		customer, err := stringArg(args, "customer")
		if err != nil {
			return contractx.ToolResult{Tool: ToolSendWelcomeCatalog, Error: err.Error()}
		}
		if len(images) == 0 {
			return contractx.ToolResult{
				Tool:   ToolSendWelcomeCatalog,
				Result: "Este negocio no tiene imagenes de bienvenida configuradas.",
			}
		}

		if trace != nil {
			trace.recordWelcomeSend()
		}

		// Fire-and-forget: the turn's reply must not wait for image
		// delivery, so the dispatch detaches from the turn context.
		go func() {
			time.Sleep(initialDelay)
			for i, imageURL := range images {
				if i > 0 {
					time.Sleep(imageDelay)
				}
				if err := deps.Channel.SendImage(context.Background(), customer, imageURL, "", creds); err != nil {
					log.Error().Err(err).
						Str("tenant_id", tenantID).
						Str("customer", customer).
						Str("image", imageURL).
						Msg("welcome image send failed")
				}
			}
		}()

		return contractx.ToolResult{
			Tool:   ToolSendWelcomeCatalog,
			Result: fmt.Sprintf("Enviando el catalogo de bienvenida (%d imagenes).", len(images)),
		}
	}
}
