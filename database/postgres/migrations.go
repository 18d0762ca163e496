package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kjayal/clientvault"
)

func createClientsTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	indexCreatedAt := pgx.Identifier{fmt.Sprintf("idx_%s_created_at", tableName)}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL,
			external_id TEXT NOT NULL UNIQUE,
			address TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (created_at, id);
	`,
		quotedTable,
		indexCreatedAt, quotedTable,
	)

	_, err := pool.Exec(ctx, sql)
	if err != nil {
		return fmt.Errorf("create clients table: %w", err)
	}
	return nil
}

func createClientFilesTable(ctx context.Context, pool *pgxpool.Pool, tableName, clientsTable string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	quotedClients := pgx.Identifier{clientsTable}.Sanitize()
	indexClient := pgx.Identifier{fmt.Sprintf("idx_%s_client_position", tableName)}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			client_id UUID NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
			object_key TEXT NOT NULL UNIQUE,
			file_name TEXT NOT NULL,
			category TEXT NOT NULL,
			size_bytes BIGINT NOT NULL DEFAULT 0,
			position INTEGER NOT NULL,
			uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (client_id, position);
	`,
		quotedTable, quotedClients,
		indexClient, quotedTable,
	)

	_, err := pool.Exec(ctx, sql)
	if err != nil {
		return fmt.Errorf("create client files table: %w", err)
	}
	return nil
}

func Migrate(ctx context.Context, pool *pgxpool.Pool, tables clientvault.Tables) error {
	if err := tables.Validate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if err := createClientsTable(ctx, pool, tables.Clients); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if err := createClientFilesTable(ctx, pool, tables.ClientFiles, tables.Clients); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	return nil
}

func DropTables(ctx context.Context, pool *pgxpool.Pool, tables clientvault.Tables) error {
	if err := tables.Validate(); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}

	// Files first: they reference the clients table.
	for _, name := range []string{tables.ClientFiles, tables.Clients} {
		quoted := pgx.Identifier{name}.Sanitize()
		if _, err := pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quoted)); err != nil {
			return fmt.Errorf("drop tables: %s: %w", name, err)
		}
	}

	return nil
}
