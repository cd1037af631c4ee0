package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// RequiredTables lists the tables the services expect after migrating.
var RequiredTables = []string{
	"users",
	"products",
	"product_variations",
	"carts",
	"cart_items",
	"orders",
	"shipments",
	"return_requests",
	"local_sales",
	"site_settings",
	"notifications",
	"outbox_events",
	"outbox_dlq",
}

// MissingTables returns the required tables postgres cannot resolve.
func MissingTables(ctx context.Context, db *sql.DB, tables []string) ([]string, error) {
	missing := []string{}
	for _, table := range tables {
		var found sql.NullString
		if err := db.QueryRowContext(ctx, "SELECT to_regclass($1)::text", pq.QuoteIdentifier(table)).Scan(&found); err != nil {
			return nil, fmt.Errorf("checking table %s: %w", table, err)
		}
		if !found.Valid {
			missing = append(missing, table)
		}
	}
	return missing, nil
}
