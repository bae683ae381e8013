package prompt

import (
	_ "embed"
	"strings"

	contractx "github.com/ventaluz/ventaluz/agent/contract"
)

var (
	//go:embed template/catalog.txt
	catalogRaw string

	//go:embed template/direct_order.txt
	directOrderRaw string
)

// WelcomePlaceholder is substituted with the tenant's configured welcome
// text when rendering the system prompt.
const WelcomePlaceholder = "{welcome_message}"

// RenderSystem produces the system prompt for one turn. Tenants may
// carry their own template; an empty template falls back to the embedded
// default for the tenant's agent variant.
func RenderSystem(cfg *contractx.TenantConfig) string {
	template := strings.TrimSpace(cfg.SystemPrompt)
	if template == "" {
		template = defaultTemplate(cfg.Variant)
	}
	return strings.ReplaceAll(template, WelcomePlaceholder, cfg.WelcomeMessage)
}

func defaultTemplate(variant contractx.AgentVariant) string {
	switch variant {
	case contractx.VariantDirectOrder:
		return strings.TrimSpace(directOrderRaw)
	default:
		return strings.TrimSpace(catalogRaw)
	}
}
