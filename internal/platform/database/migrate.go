package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed queries/schema.sql
var schemaDDL string

// Migrate는 kv_entries 스키마를 적용한다. 이미 있으면 그대로 둔다.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
