// README: Rate table store backed by PostgreSQL.
package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"medquote/internal/modules/plan"
)

var ErrEmptyTable = errors.New("rate table has no items")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// LoadTable reads every rate item and validates the result like a YAML table.
func (s *Store) LoadTable(ctx context.Context, currency string) (*RateTable, error) {
	rows, err := s.db.Query(ctx, `
		SELECT category, item, unit_price::text, formula, qualifiers, bundle
		FROM rate_items
		ORDER BY category, position
	`)
	if err != nil {
		return nil, fmt.Errorf("query rate items: %w", err)
	}
	defer rows.Close()

	items := make(map[plan.Category][]RateItem)
	for rows.Next() {
		var (
			category, item, price, formula string
			qualifiers                     []byte
			bundle                         bool
		)
		if err := rows.Scan(&category, &item, &price, &formula, &qualifiers, &bundle); err != nil {
			return nil, fmt.Errorf("scan rate item: %w", err)
		}
		unit, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("rate item %q: %w", item, err)
		}
		ri := RateItem{Item: item, UnitPrice: unit, Formula: Formula(formula), Bundle: bundle}
		if len(qualifiers) > 0 && string(qualifiers) != "null" {
			var q Qualifiers
			if err := json.Unmarshal(qualifiers, &q); err != nil {
				return nil, fmt.Errorf("rate item %q qualifiers: %w", item, err)
			}
			ri.Qualifiers = &q
		}
		cat := plan.Category(category)
		items[cat] = append(items[cat], ri)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyTable
	}
	return NewRateTable(currency, items)
}

// ReplaceTable swaps the stored table for t in one transaction.
func (s *Store) ReplaceTable(ctx context.Context, t *RateTable) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM rate_items`); err != nil {
		return fmt.Errorf("clear rate items: %w", err)
	}
	for _, cat := range t.Categories() {
		for pos, it := range t.items[cat] {
			var qualifiers []byte
			if it.Qualifiers != nil {
				if qualifiers, err = json.Marshal(it.Qualifiers); err != nil {
					return err
				}
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO rate_items (category, position, item, unit_price, formula, qualifiers, bundle)
				VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)
			`, string(cat), pos, it.Item, it.UnitPrice.String(), string(it.Formula), qualifiers, it.Bundle); err != nil {
				return fmt.Errorf("insert rate item %s/%s: %w", cat, it.Item, err)
			}
		}
	}
	return tx.Commit(ctx)
}
