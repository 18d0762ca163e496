package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kjayal/clientvault"
)

// quoteIdentifier safely quotes a SQLite identifier
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

type TableMigration struct {
	TableName string
	Up        func(ctx context.Context, db *sql.DB) error
	Down      func(ctx context.Context, db *sql.DB) error
}

// getTableMigrations returns all table migrations for the app
func getTableMigrations(tables clientvault.Tables) []TableMigration {
	return []TableMigration{
		{
			TableName: tables.Clients,
			Up:        createClientsTable(tables.Clients),
			Down:      dropTable(tables.Clients),
		},
		{
			TableName: tables.ClientFiles,
			Up:        createClientFilesTable(tables.ClientFiles),
			Down:      dropTable(tables.ClientFiles),
		},
	}
}

func Migrate(ctx context.Context, db *sql.DB, tables clientvault.Tables) error {
	migrations := getTableMigrations(tables)

	for _, migration := range migrations {
		if err := migration.Up(ctx, db); err != nil {
			return fmt.Errorf("migrate up %s: %w", migration.TableName, err)
		}
	}

	return nil
}

func DropTables(ctx context.Context, db *sql.DB, tables clientvault.Tables) error {
	migrations := getTableMigrations(tables)

	for i := len(migrations) - 1; i >= 0; i-- {
		migration := migrations[i]
		if err := migration.Down(ctx, db); err != nil {
			return fmt.Errorf("migrate down %s: %w", migration.TableName, err)
		}
	}

	return nil
}

func createClientsTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		quotedTable := quoteIdentifier(tableName)
		indexCreatedAt := quoteIdentifier(fmt.Sprintf("idx_%s_created_at", tableName))

		createTableSQL := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT NOT NULL PRIMARY KEY,
				name TEXT NOT NULL,
				external_id TEXT NOT NULL UNIQUE,
				address TEXT NOT NULL,
				email TEXT NOT NULL DEFAULT '',
				phone TEXT NOT NULL DEFAULT '',
				notes TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)
		`, quotedTable)

		if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
			return fmt.Errorf("create table: %w", err)
		}

		createIndexSQL := fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s ON %s (created_at, id)
		`, indexCreatedAt, quotedTable)

		if _, err := db.ExecContext(ctx, createIndexSQL); err != nil {
			return fmt.Errorf("create index: %w", err)
		}

		return nil
	}
}

func createClientFilesTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		quotedTable := quoteIdentifier(tableName)
		indexClient := quoteIdentifier(fmt.Sprintf("idx_%s_client_position", tableName))

		createTableSQL := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT NOT NULL PRIMARY KEY,
				client_id TEXT NOT NULL,
				object_key TEXT NOT NULL UNIQUE,
				file_name TEXT NOT NULL,
				category TEXT NOT NULL,
				size_bytes INTEGER NOT NULL DEFAULT 0,
				position INTEGER NOT NULL,
				uploaded_at TEXT NOT NULL
			)
		`, quotedTable)

		if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
			return fmt.Errorf("create table: %w", err)
		}

		createIndexSQL := fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s ON %s (client_id, position)
		`, indexClient, quotedTable)

		if _, err := db.ExecContext(ctx, createIndexSQL); err != nil {
			return fmt.Errorf("create index: %w", err)
		}

		return nil
	}
}

func dropTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		sql := fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quoteIdentifier(tableName))
		if _, err := db.ExecContext(ctx, sql); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
		return nil
	}
}
