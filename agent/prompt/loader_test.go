package prompt

import (
	"strings"
	"testing"

	contractx "github.com/ventaluz/ventaluz/agent/contract"
)

func TestRenderSystemSubstitutesWelcome(t *testing.T) {
	t.Parallel()

	cfg := &contractx.TenantConfig{
		Variant:        contractx.VariantCatalog,
		SystemPrompt:   "Eres el asistente. Saluda con: {welcome_message}. Nada mas.",
		WelcomeMessage: "¡Bienvenida a Tienda Luz!",
	}

	got := RenderSystem(cfg)
	if strings.Contains(got, WelcomePlaceholder) {
		t.Fatalf("placeholder must be substituted, got %q", got)
	}
	if !strings.Contains(got, "¡Bienvenida a Tienda Luz!") {
		t.Fatalf("welcome text missing from prompt: %q", got)
	}
}

func TestRenderSystemFallsBackToDefaultTemplate(t *testing.T) {
	t.Parallel()

	catalog := RenderSystem(&contractx.TenantConfig{
		Variant:        contractx.VariantCatalog,
		WelcomeMessage: "Hola",
	})
	if catalog == "" {
		t.Fatal("catalog default template must not be empty")
	}

	direct := RenderSystem(&contractx.TenantConfig{
		Variant:        contractx.VariantDirectOrder,
		WelcomeMessage: "Hola",
	})
	if direct == "" {
		t.Fatal("direct order default template must not be empty")
	}
	if catalog == direct {
		t.Fatal("variants must render different default templates")
	}
}
