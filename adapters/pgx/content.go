package pgx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lborres/bantay/core"
)

// Items are stored whole as jsonb; id, type and date are lifted into
// columns for ordering and lookups.

func (a *Adapter) ListContent(ctx context.Context) ([]core.ContentItem, error) {
	rows, err := a.pool.Query(ctx, `SELECT data FROM public.content ORDER BY date DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []core.ContentItem
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var item core.ContentItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("failed to decode content item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (a *Adapter) SaveContent(ctx context.Context, item *core.ContentItem) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode content item: %w", err)
	}

	q := `INSERT INTO public.content (id, type, date, data) VALUES ($1, $2, $3, $4)
	      ON CONFLICT (id) DO UPDATE SET type = EXCLUDED.type, date = EXCLUDED.date, data = EXCLUDED.data`
	_, err = a.pool.Exec(ctx, q, item.ID, string(item.Type), item.Date, raw)
	return err
}
