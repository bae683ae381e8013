package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/uptrace/bun"
	contractx "github.com/ventaluz/ventaluz/agent/contract"
)

// Embedder turns text into a semantic vector. Implemented by
// pkg/openaix against the embeddings API.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// ProductStore serves tenant-scoped catalog reads. Search embeds the
// query and ranks the tenant's products by cosine similarity against
// their stored embeddings.
type ProductStore struct {
	db       *bun.DB
	embedder Embedder
}

var _ contractx.ProductStore = (*ProductStore)(nil)

func NewProductStore(db *bun.DB, embedder Embedder) *ProductStore {
	return &ProductStore{db: db, embedder: embedder}
}

func (s *ProductStore) Get(ctx context.Context, tenantID, productID string) (*contractx.Product, error) {
	row := new(productRow)
	err := s.db.NewSelect().Model(row).
		Where("id = ?", productID).
		Where("tenant_id = ?", tenantID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: product %s", contractx.ErrNotFound, productID)
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	product := row.toProduct()
	return &product, nil
}

func (s *ProductStore) Search(ctx context.Context, tenantID, query string, limit int) ([]contractx.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", contractx.ErrValidation)
	}
	if limit <= 0 {
		limit = 3
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var rows []productRow
	if err := s.db.NewSelect().Model(&rows).
		Where("tenant_id = ?", tenantID).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("load tenant products: %w", err)
	}

	type scored struct {
		product contractx.Product
		score   float64
	}
	ranked := make([]scored, 0, len(rows))
	for i := range rows {
		score := cosineSimilarity(queryVec, rows[i].Embedding)
		if score <= 0 {
			continue
		}
		ranked = append(ranked, scored{product: rows[i].toProduct(), score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	products := make([]contractx.Product, 0, len(ranked))
	for _, entry := range ranked {
		products = append(products, entry.product)
	}
	return products, nil
}
