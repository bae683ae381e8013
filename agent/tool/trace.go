package tool

import contractx "github.com/ventaluz/ventaluz/agent/contract"

// TurnTrace records what the executor ran during a single turn. Tool
// execution within a turn is sequential, so no locking is needed; the
// welcome dispatcher records before it goes asynchronous.
type TurnTrace struct {
	calls         []contractx.ToolRequest
	ordersCreated []string
	linksSent     map[string]struct{}
	welcomeSends  int
}

func NewTurnTrace() *TurnTrace {
	return &TurnTrace{
		linksSent: make(map[string]struct{}),
	}
}

func (t *TurnTrace) recordCall(tool string, args map[string]any) {
	t.calls = append(t.calls, contractx.ToolRequest{Tool: tool, Args: args})
}

func (t *TurnTrace) recordOrderCreated(orderID string) {
	t.ordersCreated = append(t.ordersCreated, orderID)
}

func (t *TurnTrace) recordLinkSent(orderID string) {
	if t.linksSent == nil {
		t.linksSent = make(map[string]struct{})
	}
	t.linksSent[orderID] = struct{}{}
}

func (t *TurnTrace) recordWelcomeSend() {
	t.welcomeSends++
}

// Calls returns the invocations in execution order.
func (t *TurnTrace) Calls() []contractx.ToolRequest {
	return t.calls
}

// OrdersAwaitingLink lists orders finalized this turn for which no
// payment link call was recorded. A turn must not end with one of these.
func (t *TurnTrace) OrdersAwaitingLink() []string {
	var pending []string
	for _, id := range t.ordersCreated {
		if _, ok := t.linksSent[id]; !ok {
			pending = append(pending, id)
		}
	}
	return pending
}

func (t *TurnTrace) WelcomeSends() int {
	return t.welcomeSends
}
