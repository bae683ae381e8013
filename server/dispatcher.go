package server

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/ventaluz/ventaluz/agent/contract"
	"github.com/ventaluz/ventaluz/agent/orchestrator"
)

// TurnRunner produces the reply for one inbound turn.
type TurnRunner interface {
	RunTurn(ctx context.Context, in orchestrator.TurnInput) (orchestrator.TurnOutput, error)
}

// Dispatcher drives one inbound message through tenant resolution, the
// authorization gate, the agent turn and history persistence. Turns for
// the same (customer, tenant) pair are serialized; different customers
// run concurrently.
type Dispatcher struct {
	tenants contractx.TenantStore
	auth    contractx.AuthStore
	history contractx.HistoryStore
	channel contractx.Channel
	agent   TurnRunner

	locks *keyedLocks
	now   func() time.Time
}

func NewDispatcher(
	tenants contractx.TenantStore,
	auth contractx.AuthStore,
	history contractx.HistoryStore,
	channel contractx.Channel,
	agent TurnRunner,
) *Dispatcher {
	return &Dispatcher{
		tenants: tenants,
		auth:    auth,
		history: history,
		channel: channel,
		agent:   agent,
		locks:   newKeyedLocks(),
		now:     time.Now,
	}
}

// HandleInbound processes one normalized webhook message. Store and
// config failures abandon the turn without replying; only failures
// inside the reasoning loop fall back to the apology reply.
func (d *Dispatcher) HandleInbound(ctx context.Context, msg contractx.InboundMessage) error {
	if msg.Type != "" && msg.Type != "text" {
		log.Debug().
			Str("routing_key", msg.RoutingKey).
			Str("type", msg.Type).
			Msg("ignoring non-text message")
		return nil
	}
	if msg.Text == "" {
		return nil
	}

	// Tenant config is operator-mutable, so it is resolved fresh on every
	// turn instead of being cached.
	tenant, err := d.tenants.FindByRoutingKey(ctx, msg.RoutingKey)
	if err != nil {
		log.Error().Err(err).
			Str("routing_key", msg.RoutingKey).
			Msg("tenant resolution failed, turn abandoned")
		return fmt.Errorf("resolve tenant: %w", err)
	}
	if !tenant.IsActive {
		log.Warn().
			Str("tenant", tenant.ID).
			Str("customer", msg.From).
			Msg("tenant is inactive, turn abandoned")
		return nil
	}

	authorized, err := d.auth.IsAuthorized(ctx, msg.From, tenant.ID)
	if err != nil {
		log.Error().Err(err).
			Str("tenant", tenant.ID).
			Str("customer", msg.From).
			Msg("authorization check failed, turn abandoned")
		return fmt.Errorf("authorization check: %w", err)
	}
	if !authorized {
		log.Warn().
			Str("tenant", tenant.ID).
			Str("customer", msg.From).
			Msg("customer is not authorized, no reply sent")
		return fmt.Errorf("%w: customer=%s tenant=%s", contractx.ErrUnauthorized, msg.From, tenant.ID)
	}

	key := msg.From + "|" + tenant.ID
	d.locks.Lock(key)
	defer d.locks.Unlock(key)

	history, err := d.history.Read(ctx, msg.From, tenant.ID)
	if err != nil {
		log.Error().Err(err).
			Str("tenant", tenant.ID).
			Str("customer", msg.From).
			Msg("history read failed, turn abandoned")
		return fmt.Errorf("read history: %w", err)
	}

	out, err := d.agent.RunTurn(ctx, orchestrator.TurnInput{
		CustomerID: msg.From,
		SenderName: msg.SenderName,
		Text:       msg.Text,
		History:    history,
		Tenant:     tenant,
	})
	reply := out.Reply
	if err != nil {
		log.Error().Err(err).
			Str("tenant", tenant.ID).
			Str("customer", msg.From).
			Msg("agent turn failed, sending apology")
		reply = orchestrator.ApologyReply
	}

	receivedAt := msg.Timestamp
	if receivedAt.IsZero() {
		receivedAt = d.now()
	}
	humanTurn := contractx.ChatTurn{Role: contractx.RoleHuman, Content: msg.Text, Timestamp: receivedAt}
	if err := d.history.Append(ctx, msg.From, tenant.ID, humanTurn); err != nil {
		log.Error().Err(err).
			Str("tenant", tenant.ID).
			Str("customer", msg.From).
			Msg("history append failed, turn abandoned")
		return fmt.Errorf("append human turn: %w", err)
	}
	aiTurn := contractx.ChatTurn{Role: contractx.RoleAI, Content: reply, Timestamp: d.now()}
	if err := d.history.Append(ctx, msg.From, tenant.ID, aiTurn); err != nil {
		log.Error().Err(err).
			Str("tenant", tenant.ID).
			Str("customer", msg.From).
			Msg("history append failed, turn abandoned")
		return fmt.Errorf("append ai turn: %w", err)
	}

	if err := d.channel.SendText(ctx, msg.From, reply, tenant.Creds()); err != nil {
		log.Error().Err(err).
			Str("tenant", tenant.ID).
			Str("customer", msg.From).
			Msg("outbound send failed")
		return fmt.Errorf("send reply: %w", err)
	}

	log.Info().
		Str("tenant", tenant.ID).
		Str("customer", msg.From).
		Int("history_len", len(history)).
		Msg("turn completed")
	return nil
}
