package store

import (
	"fmt"
	"testing"

	contractx "github.com/ventaluz/ventaluz/agent/contract"
)

func turnsOf(n int) []contractx.ChatTurn {
	turns := make([]contractx.ChatTurn, 0, n)
	for i := 0; i < n; i++ {
		turns = append(turns, contractx.ChatTurn{
			Role:    contractx.RoleHuman,
			Content: fmt.Sprintf("mensaje %d", i),
		})
	}
	return turns
}

func TestTrimToLimitUnderLimit(t *testing.T) {
	t.Parallel()

	turns := turnsOf(5)
	trimmed := TrimToLimit(turns, contractx.HistoryLimit)
	if len(trimmed) != 5 {
		t.Fatalf("expected 5 turns, got %d", len(trimmed))
	}
}

func TestTrimToLimitDropsOldestFirst(t *testing.T) {
	t.Parallel()

	turns := turnsOf(contractx.HistoryLimit + 3)
	trimmed := TrimToLimit(turns, contractx.HistoryLimit)
	if len(trimmed) != contractx.HistoryLimit {
		t.Fatalf("expected %d turns, got %d", contractx.HistoryLimit, len(trimmed))
	}
	if trimmed[0].Content != "mensaje 3" {
		t.Fatalf("oldest turns must be dropped first, got %q", trimmed[0].Content)
	}
	if trimmed[len(trimmed)-1].Content != fmt.Sprintf("mensaje %d", contractx.HistoryLimit+2) {
		t.Fatalf("most recent turn must survive, got %q", trimmed[len(trimmed)-1].Content)
	}
}

func TestTrimToLimitZeroLimit(t *testing.T) {
	t.Parallel()

	turns := turnsOf(3)
	if got := TrimToLimit(turns, 0); len(got) != 3 {
		t.Fatalf("zero limit must not trim, got %d", len(got))
	}
}
