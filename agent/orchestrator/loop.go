package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	contractx "github.com/ventaluz/ventaluz/agent/contract"
	promptx "github.com/ventaluz/ventaluz/agent/prompt"
	toolx "github.com/ventaluz/ventaluz/agent/tool"
)

// runWelcome handles first contact: the reply is the tenant's configured
// welcome text verbatim, and the welcome-image dispatch is triggered in
// the same turn. The model is not consulted.
func (o *Orchestrator) runWelcome(ctx context.Context, st *turnState) (*turnState, error) {
	cfg := st.in.Tenant
	if strings.TrimSpace(cfg.WelcomeMessage) == "" {
		return nil, fmt.Errorf("%w: tenant %s has no welcome message", contractx.ErrValidation, cfg.ID)
	}

	st.trace = toolx.NewTurnTrace()
	_, st.executor = toolx.BuildForTenant(o.deps, cfg, st.trace)

	res, err := st.executor(ctx, toolx.ToolSendWelcomeCatalog, map[string]any{
		"customer": st.in.CustomerID,
	})
	if err != nil {
		return nil, err
	}
	if res.Error != "" {
		log.Warn().
			Str("tenant_id", cfg.ID).
			Str("customer", st.in.CustomerID).
			Str("reason", res.Error).
			Msg("welcome catalog dispatch skipped")
	}

	st.reply = cfg.WelcomeMessage
	return st, nil
}

// runAgent executes the tool-augmented reasoning loop: the model may emit
// tool calls instead of answering; each result is appended as a tool
// message and the model re-invoked, bounded by maxIterations.
func (o *Orchestrator) runAgent(ctx context.Context, st *turnState) (*turnState, error) {
	cfg := st.in.Tenant
	st.systemPrompt = promptx.RenderSystem(cfg)
	st.trace = toolx.NewTurnTrace()

	infos, executor := toolx.BuildForTenant(o.deps, cfg, st.trace)
	st.executor = executor

	toolModel, err := o.model.WithTools(infos)
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools for tenant=%s: %v", contractx.ErrModelInvoke, cfg.ID, err)
	}

	messages := assembleMessages(st)
	for i := 0; i < o.maxIterations; i++ {
		out, err := toolModel.Generate(ctx, messages)
		if err != nil {
			return nil, fmt.Errorf("%w: generate: %v", contractx.ErrModelInvoke, err)
		}
		if out == nil {
			return nil, fmt.Errorf("%w: empty model response", contractx.ErrModelInvoke)
		}

		if len(out.ToolCalls) == 0 {
			st.reply = out.Content
			return o.ensurePaymentLinks(ctx, st)
		}

		messages = append(messages, out)
		for _, call := range out.ToolCalls {
			messages = append(messages, o.executeToolCall(ctx, st, call))
		}
	}

	return nil, fmt.Errorf("%w: tool loop exceeded %d iterations", contractx.ErrModelInvoke, o.maxIterations)
}

func (o *Orchestrator) executeToolCall(ctx context.Context, st *turnState, call schema.ToolCall) *schema.Message {
	name := strings.TrimSpace(call.Function.Name)

	args := map[string]any{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return schema.ToolMessage(
				fmt.Sprintf("error: invalid arguments for tool=%s: %v", name, err),
				call.ID,
			)
		}
	}

	res, err := st.executor(ctx, name, args)
	if err != nil {
		// The executor reserves error returns for bugs; surface it to the
		// model as text so the turn survives.
		log.Error().Err(err).Str("tool", name).Msg("tool executor failed")
		return schema.ToolMessage(fmt.Sprintf("error: tool=%s failed internally", name), call.ID)
	}

	payload := res.Result
	if res.Error != "" {
		payload = "error: " + res.Error
	}
	return schema.ToolMessage(payload, call.ID)
}

// ensurePaymentLinks enforces the checkout ordering contract: an order
// finalized during this turn must not be left without a payment link. If
// the model stopped early, the link tool is executed here and the link
// appended to the reply.
func (o *Orchestrator) ensurePaymentLinks(ctx context.Context, st *turnState) (*turnState, error) {
	for _, orderID := range st.trace.OrdersAwaitingLink() {
		log.Warn().
			Str("tenant_id", st.in.Tenant.ID).
			Str("order_id", orderID).
			Msg("order finalized without payment link; generating")

		res, err := st.executor(ctx, toolx.ToolSendPaymentLink, map[string]any{
			"order_id": orderID,
		})
		if err != nil {
			return nil, err
		}
		if res.Error != "" {
			log.Error().
				Str("order_id", orderID).
				Str("reason", res.Error).
				Msg("payment link recovery failed")
			continue
		}
		st.reply = strings.TrimSpace(st.reply + "\n\n" + res.Result)
	}
	return st, nil
}

func assembleMessages(st *turnState) []*schema.Message {
	messages := make([]*schema.Message, 0, len(st.in.History)+2)
	messages = append(messages, schema.SystemMessage(st.systemPrompt))

	for _, turn := range st.in.History {
		switch turn.Role {
		case contractx.RoleHuman:
			messages = append(messages, schema.UserMessage(turn.Content))
		case contractx.RoleAI:
			messages = append(messages, schema.AssistantMessage(turn.Content, nil))
		}
	}

	// The customer id rides along so the model can fill tool arguments
	// that need it.
	messages = append(messages, schema.UserMessage(
		fmt.Sprintf("%s (Usuario: %s)", st.in.Text, st.in.CustomerID),
	))
	return messages
}
