package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"animal-quiz-service/internal/catalog"
	"github.com/jackc/pgx/v4/pgxpool"
)

// CatalogLoader loads level definitions stored as JSONB, one row per level.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadLevels(ctx context.Context) ([]catalog.LevelDefinition, error) {
	rows, err := l.pool.Query(ctx, `SELECT data FROM catalog_levels ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("load catalog levels: %w", err)
	}
	defer rows.Close()

	var levels []catalog.LevelDefinition
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan catalog level: %w", err)
		}
		var level catalog.LevelDefinition
		if err := json.Unmarshal(raw, &level); err != nil {
			return nil, fmt.Errorf("unmarshal catalog level: %w", err)
		}
		levels = append(levels, level)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load catalog levels: %w", err)
	}
	return levels, nil
}
