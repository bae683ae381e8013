package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	contractx "github.com/ventaluz/ventaluz/agent/contract"
)

// HistoryStore keeps the bounded per-(customer, tenant) message log.
type HistoryStore struct {
	db *bun.DB
}

var _ contractx.HistoryStore = (*HistoryStore)(nil)

func NewHistoryStore(db *bun.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Read returns the retained turns oldest-first. A customer with no
// history yet reads as an empty slice, not an error.
func (s *HistoryStore) Read(ctx context.Context, customerID, tenantID string) ([]contractx.ChatTurn, error) {
	row := new(historyRow)
	err := s.db.NewSelect().Model(row).
		Where("customer_id = ?", customerID).
		Where("tenant_id = ?", tenantID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read chat history: %w", err)
	}
	return append([]contractx.ChatTurn(nil), row.Messages...), nil
}

// Append adds one turn and prefix-drops anything past the retention
// limit. Turns are never reordered.
func (s *HistoryStore) Append(ctx context.Context, customerID, tenantID string, turn contractx.ChatTurn) error {
	row := new(historyRow)
	err := s.db.NewSelect().Model(row).
		Where("customer_id = ?", customerID).
		Where("tenant_id = ?", tenantID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		row = &historyRow{
			ID:         uuid.NewString(),
			CustomerID: customerID,
			TenantID:   tenantID,
		}
	} else if err != nil {
		return fmt.Errorf("load chat history: %w", err)
	}

	row.Messages = TrimToLimit(append(row.Messages, turn), contractx.HistoryLimit)
	row.UpdatedAt = time.Now().UTC()

	_, err = s.db.NewInsert().Model(row).
		On("CONFLICT (customer_id, tenant_id) DO UPDATE").
		Set("messages = EXCLUDED.messages").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("append chat history: %w", err)
	}
	return nil
}

// TrimToLimit keeps the most recent limit turns, dropping from the front.
func TrimToLimit(turns []contractx.ChatTurn, limit int) []contractx.ChatTurn {
	if limit <= 0 || len(turns) <= limit {
		return turns
	}
	return turns[len(turns)-limit:]
}
