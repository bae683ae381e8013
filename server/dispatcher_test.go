package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	contractx "github.com/ventaluz/ventaluz/agent/contract"
	"github.com/ventaluz/ventaluz/agent/orchestrator"
)

type fakeTenants struct {
	byRoutingKey map[string]*contractx.TenantConfig
	findErr      error
}

func (f *fakeTenants) Create(ctx context.Context, cfg *contractx.TenantConfig) error { return nil }

func (f *fakeTenants) List(ctx context.Context) ([]contractx.TenantConfig, error) {
	var out []contractx.TenantConfig
	for _, cfg := range f.byRoutingKey {
		out = append(out, *cfg)
	}
	return out, nil
}

func (f *fakeTenants) Get(ctx context.Context, id string) (*contractx.TenantConfig, error) {
	for _, cfg := range f.byRoutingKey {
		if cfg.ID == id {
			return cfg, nil
		}
	}
	return nil, fmt.Errorf("%w: tenant %s", contractx.ErrNotFound, id)
}

func (f *fakeTenants) FindByRoutingKey(ctx context.Context, routingKey string) (*contractx.TenantConfig, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	cfg, ok := f.byRoutingKey[routingKey]
	if !ok {
		return nil, fmt.Errorf("%w: tenant for routing key %s", contractx.ErrNotFound, routingKey)
	}
	return cfg, nil
}

func (f *fakeTenants) Update(ctx context.Context, cfg *contractx.TenantConfig) error { return nil }
func (f *fakeTenants) Delete(ctx context.Context, id string) error                   { return nil }

type fakeAuth struct {
	authorized map[string]bool
	err        error
}

func (f *fakeAuth) IsAuthorized(ctx context.Context, customerID, tenantID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.authorized[customerID+"|"+tenantID], nil
}

func (f *fakeAuth) Authorize(ctx context.Context, customerID, tenantID string, flowID int) error {
	if f.authorized == nil {
		f.authorized = make(map[string]bool)
	}
	f.authorized[customerID+"|"+tenantID] = true
	return nil
}

func (f *fakeAuth) Deauthorize(ctx context.Context, customerID, tenantID string) error {
	delete(f.authorized, customerID+"|"+tenantID)
	return nil
}

func (f *fakeAuth) ListAuthorized(ctx context.Context, tenantID string) ([]contractx.CustomerAuth, error) {
	return nil, nil
}

type fakeHistory struct {
	mu        sync.Mutex
	turns     map[string][]contractx.ChatTurn
	readErr   error
	appendErr error
}

func (f *fakeHistory) key(customerID, tenantID string) string { return customerID + "|" + tenantID }

func (f *fakeHistory) Read(ctx context.Context, customerID, tenantID string) ([]contractx.ChatTurn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	return append([]contractx.ChatTurn(nil), f.turns[f.key(customerID, tenantID)]...), nil
}

func (f *fakeHistory) Append(ctx context.Context, customerID, tenantID string, turn contractx.ChatTurn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	if f.turns == nil {
		f.turns = make(map[string][]contractx.ChatTurn)
	}
	key := f.key(customerID, tenantID)
	f.turns[key] = append(f.turns[key], turn)
	return nil
}

type sentText struct {
	to   string
	text string
}

type fakeChannel struct {
	mu    sync.Mutex
	texts []sentText
}

func (f *fakeChannel) SendText(ctx context.Context, to, text string, creds contractx.ChannelCreds) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, sentText{to: to, text: text})
	return nil
}

func (f *fakeChannel) SendImage(ctx context.Context, to, imageURL, caption string, creds contractx.ChannelCreds) error {
	return nil
}

func (f *fakeChannel) sent() []sentText {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentText(nil), f.texts...)
}

type fakeAgent struct {
	mu      sync.Mutex
	reply   string
	err     error
	active  int
	overlap bool
	calls   int
	delay   time.Duration
}

func (f *fakeAgent) RunTurn(ctx context.Context, in orchestrator.TurnInput) (orchestrator.TurnOutput, error) {
	f.mu.Lock()
	f.calls++
	f.active++
	if f.active > 1 {
		f.overlap = true
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.active--
	f.mu.Unlock()

	if f.err != nil {
		return orchestrator.TurnOutput{}, f.err
	}
	return orchestrator.TurnOutput{Reply: f.reply}, nil
}

func testMessage() contractx.InboundMessage {
	return contractx.InboundMessage{
		RoutingKey: "111222333",
		From:       "51999000111",
		SenderName: "Maria",
		Text:       "Hola",
		Type:       "text",
		Timestamp:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func testFixture(agent TurnRunner) (*Dispatcher, *fakeHistory, *fakeChannel) {
	tenants := &fakeTenants{byRoutingKey: map[string]*contractx.TenantConfig{
		"111222333": {
			ID:             "tenant-1",
			Name:           "Tienda Luz",
			RoutingKey:     "111222333",
			Variant:        contractx.VariantCatalog,
			WelcomeMessage: "¡Bienvenida!",
			IsActive:       true,
		},
	}}
	auth := &fakeAuth{authorized: map[string]bool{"51999000111|tenant-1": true}}
	history := &fakeHistory{}
	channel := &fakeChannel{}
	return NewDispatcher(tenants, auth, history, channel, agent), history, channel
}

func TestHandleInboundHappyPath(t *testing.T) {
	t.Parallel()

	dispatcher, history, channel := testFixture(&fakeAgent{reply: "Claro, tenemos vestidos."})

	if err := dispatcher.HandleInbound(context.Background(), testMessage()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sent := channel.sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 outbound text, got %d", len(sent))
	}
	if sent[0].to != "51999000111" || sent[0].text != "Claro, tenemos vestidos." {
		t.Fatalf("unexpected send: %+v", sent[0])
	}

	turns := history.turns["51999000111|tenant-1"]
	if len(turns) != 2 {
		t.Fatalf("expected 2 history turns, got %d", len(turns))
	}
	if turns[0].Role != contractx.RoleHuman || turns[0].Content != "Hola" {
		t.Fatalf("unexpected human turn: %+v", turns[0])
	}
	if turns[1].Role != contractx.RoleAI || turns[1].Content != "Claro, tenemos vestidos." {
		t.Fatalf("unexpected ai turn: %+v", turns[1])
	}
}

func TestHandleInboundAgentFailureSendsApology(t *testing.T) {
	t.Parallel()

	dispatcher, history, channel := testFixture(&fakeAgent{err: errors.New("model exploded")})

	if err := dispatcher.HandleInbound(context.Background(), testMessage()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sent := channel.sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 outbound text, got %d", len(sent))
	}
	if sent[0].text != orchestrator.ApologyReply {
		t.Fatalf("expected apology, got %q", sent[0].text)
	}

	turns := history.turns["51999000111|tenant-1"]
	if len(turns) != 2 || turns[1].Content != orchestrator.ApologyReply {
		t.Fatalf("apology must be persisted, got %+v", turns)
	}
}

func TestHandleInboundUnauthorizedCustomer(t *testing.T) {
	t.Parallel()

	dispatcher, history, channel := testFixture(&fakeAgent{reply: "nunca"})
	msg := testMessage()
	msg.From = "51700000000"

	err := dispatcher.HandleInbound(context.Background(), msg)
	if !errors.Is(err, contractx.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if len(channel.sent()) != 0 {
		t.Fatal("no reply must be sent to unauthorized customers")
	}
	if len(history.turns) != 0 {
		t.Fatal("no history must be written for unauthorized customers")
	}
}

func TestHandleInboundUnknownTenantAbandons(t *testing.T) {
	t.Parallel()

	dispatcher, _, channel := testFixture(&fakeAgent{reply: "nunca"})
	msg := testMessage()
	msg.RoutingKey = "999"

	if err := dispatcher.HandleInbound(context.Background(), msg); err == nil {
		t.Fatal("expected error")
	}
	if len(channel.sent()) != 0 {
		t.Fatal("no reply must be sent when the tenant cannot be resolved")
	}
}

func TestHandleInboundHistoryReadFailureAbandons(t *testing.T) {
	t.Parallel()

	agent := &fakeAgent{reply: "nunca"}
	dispatcher, history, channel := testFixture(agent)
	history.readErr = errors.New("connection reset")

	if err := dispatcher.HandleInbound(context.Background(), testMessage()); err == nil {
		t.Fatal("expected error")
	}
	if agent.calls != 0 {
		t.Fatal("agent must not run when history cannot be read")
	}
	if len(channel.sent()) != 0 {
		t.Fatal("no reply must be sent when history cannot be read")
	}
}

func TestHandleInboundAppendFailureSkipsSend(t *testing.T) {
	t.Parallel()

	dispatcher, history, channel := testFixture(&fakeAgent{reply: "Claro."})
	history.appendErr = errors.New("disk full")

	if err := dispatcher.HandleInbound(context.Background(), testMessage()); err == nil {
		t.Fatal("expected error")
	}
	if len(channel.sent()) != 0 {
		t.Fatal("no reply must be sent when history cannot be persisted")
	}
}

func TestHandleInboundIgnoresNonText(t *testing.T) {
	t.Parallel()

	agent := &fakeAgent{reply: "nunca"}
	dispatcher, _, channel := testFixture(agent)
	msg := testMessage()
	msg.Type = "audio"

	if err := dispatcher.HandleInbound(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if agent.calls != 0 || len(channel.sent()) != 0 {
		t.Fatal("non-text messages must be ignored silently")
	}
}

func TestHandleInboundSerializesPerCustomer(t *testing.T) {
	t.Parallel()

	agent := &fakeAgent{reply: "ok", delay: 20 * time.Millisecond}
	dispatcher, _, _ := testFixture(agent)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = dispatcher.HandleInbound(context.Background(), testMessage())
		}()
	}
	wg.Wait()

	if agent.overlap {
		t.Fatal("turns for the same customer must never interleave")
	}
	if agent.calls != 4 {
		t.Fatalf("expected 4 turns, got %d", agent.calls)
	}
}
