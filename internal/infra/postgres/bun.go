package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"animal-quiz-service/internal/catalog"
	"animal-quiz-service/internal/infra/postgres/migrations"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

// OpenBun opens a bun handle over the pgdriver connector.
func OpenBun(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// Migrate applies every pending catalog migration and returns the applied group.
func Migrate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("init migrations: %w", err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return group, nil
}

type catalogLevelRow struct {
	bun.BaseModel `bun:"table:catalog_levels"`

	ID        int                     `bun:"id,pk"`
	Position  int                     `bun:"position,notnull"`
	Data      catalog.LevelDefinition `bun:"data,type:jsonb,notnull"`
	UpdatedAt time.Time               `bun:"updated_at,notnull"`
}

// SeedCatalog replaces the stored catalog with levels, keeping their order.
// Levels missing from the new definitions are removed.
func SeedCatalog(ctx context.Context, db *bun.DB, levels []catalog.LevelDefinition) (int, error) {
	if len(levels) == 0 {
		return 0, fmt.Errorf("seed catalog: no levels")
	}
	now := time.Now().UTC()
	rows := make([]catalogLevelRow, 0, len(levels))
	ids := make([]int, 0, len(levels))
	for i, level := range levels {
		rows = append(rows, catalogLevelRow{ID: level.ID, Position: i, Data: level, UpdatedAt: now})
		ids = append(ids, level.ID)
	}

	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*catalogLevelRow)(nil)).
			Where("id NOT IN (?)", bun.In(ids)).
			Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewInsert().
			Model(&rows).
			On("CONFLICT (id) DO UPDATE").
			Set("position = EXCLUDED.position").
			Set("data = EXCLUDED.data").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("seed catalog: %w", err)
	}
	return len(rows), nil
}
