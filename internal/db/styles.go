package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/quote-repost/internal/correction"
	"github.com/jonathan/quote-repost/internal/types"
)

// Style returns the author's stored style overlaid on the default style.
// Authors with no stored row get the default.
func (db *DB) Style(ctx context.Context, author string) (types.StyleGuidelines, error) {
	var raw []byte
	err := db.pool.QueryRow(ctx,
		`SELECT style FROM author_styles WHERE author = $1`, author,
	).Scan(&raw)
	if err != nil {
		if notFound(err) {
			return correction.DefaultStyle(), nil
		}
		return types.StyleGuidelines{}, fmt.Errorf("failed to get style for %s: %w", author, err)
	}

	var stored types.StyleGuidelines
	if err := json.Unmarshal(raw, &stored); err != nil {
		return types.StyleGuidelines{}, fmt.Errorf("failed to decode style for %s: %w", author, err)
	}
	return correction.Overlay(correction.DefaultStyle(), stored), nil
}

// SaveStyle stores an author's style after validating its patterns
func (db *DB) SaveStyle(ctx context.Context, author string, style types.StyleGuidelines) error {
	if err := correction.ValidateStyle(style); err != nil {
		return fmt.Errorf("invalid style for %s: %w", author, err)
	}
	raw, err := json.Marshal(style)
	if err != nil {
		return fmt.Errorf("failed to marshal style: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO author_styles (author, style) VALUES ($1, $2)
		 ON CONFLICT (author) DO UPDATE SET style = $2, updated_at = NOW()`,
		author, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to save style for %s: %w", author, err)
	}
	return nil
}
