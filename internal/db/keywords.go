package db

import (
	"context"
	"fmt"
	"strings"
)

// DefaultTrendKeywordLimit caps how many active keywords TrendKeywords returns
const DefaultTrendKeywordLimit = 50

// TrendKeywords returns active trend keywords, heaviest first
func (db *DB) TrendKeywords(ctx context.Context) ([]string, error) {
	return db.ActiveTrendKeywords(ctx, DefaultTrendKeywordLimit)
}

// ActiveTrendKeywords returns up to limit active keywords, heaviest first
func (db *DB) ActiveTrendKeywords(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultTrendKeywordLimit
	}

	rows, err := db.pool.Query(ctx,
		`SELECT keyword FROM trend_keywords
		 WHERE active ORDER BY weight DESC, updated_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list trend keywords: %w", err)
	}
	defer rows.Close()

	keywords := []string{}
	for rows.Next() {
		var kw string
		if err := rows.Scan(&kw); err != nil {
			return nil, fmt.Errorf("failed to scan trend keyword: %w", err)
		}
		keywords = append(keywords, kw)
	}
	return keywords, rows.Err()
}

// UpsertTrendKeyword activates a keyword with the given weight
func (db *DB) UpsertTrendKeyword(ctx context.Context, keyword string, weight float64) error {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return fmt.Errorf("trend keyword must not be empty")
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO trend_keywords (keyword, weight, active)
		 VALUES ($1, $2, TRUE)
		 ON CONFLICT (keyword) DO UPDATE SET weight = $2, active = TRUE, updated_at = NOW()`,
		keyword, weight,
	)
	if err != nil {
		return fmt.Errorf("failed to save trend keyword %q: %w", keyword, err)
	}
	return nil
}

// DeactivateTrendKeyword stops a keyword from being returned
func (db *DB) DeactivateTrendKeyword(ctx context.Context, keyword string) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE trend_keywords SET active = FALSE, updated_at = NOW() WHERE keyword = $1`,
		keyword,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate trend keyword: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("trend keyword %q: %w", keyword, ErrNotFound)
	}
	return nil
}
