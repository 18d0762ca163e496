// Package sqlite implements the metadata repository using SQLite
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kjayal/clientvault"
)

type repo struct {
	db     *sql.DB
	tables clientvault.Tables
}

func NewRepo(db *sql.DB, tables clientvault.Tables) (clientvault.MetadataRepo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return &repo{db: db, tables: tables}, nil
}

func (r *repo) Insert(ctx context.Context, nc clientvault.NewClient) (clientvault.ClientRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return clientvault.ClientRecord{}, fmt.Errorf("insert: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	nowStr := now.Format(time.RFC3339Nano)
	id := uuid.New()

	insertClient := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, name, external_id, address, email, phone, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, r.tables.Clients)

	_, err = tx.ExecContext(ctx, insertClient,
		id.String(), nc.Name, nc.ExternalID, nc.Address, nc.Email, nc.Phone, nc.Notes, nowStr, nowStr,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return clientvault.ClientRecord{}, fmt.Errorf("insert: external id %s: %w", nc.ExternalID, clientvault.ErrAlreadyExists)
		}
		return clientvault.ClientRecord{}, fmt.Errorf("insert: %w", err)
	}

	insertFile := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, client_id, object_key, file_name, category, size_bytes, position, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, r.tables.ClientFiles)

	rec := clientvault.ClientRecord{
		ID:         id,
		Name:       nc.Name,
		ExternalID: nc.ExternalID,
		Address:    nc.Address,
		Email:      nc.Email,
		Phone:      nc.Phone,
		Notes:      nc.Notes,
		Files:      make([]clientvault.FileReference, 0, len(nc.Files)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	for i, f := range nc.Files {
		_, err = tx.ExecContext(ctx, insertFile,
			uuid.New().String(), id.String(), f.Key, f.FileName, string(f.Category), f.SizeBytes, i, nowStr,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return clientvault.ClientRecord{}, fmt.Errorf("insert: object key %s: %w", f.Key, clientvault.ErrAlreadyExists)
			}
			return clientvault.ClientRecord{}, fmt.Errorf("insert: file %s: %w", f.Key, err)
		}
		rec.Files = append(rec.Files, clientvault.FileReference{
			Key:        f.Key,
			FileName:   f.FileName,
			Category:   f.Category,
			SizeBytes:  f.SizeBytes,
			UploadedAt: now,
		})
	}

	if err = tx.Commit(); err != nil {
		return clientvault.ClientRecord{}, fmt.Errorf("insert: commit: %w", err)
	}

	return rec, nil
}

func (r *repo) FindByID(ctx context.Context, id uuid.UUID) (clientvault.ClientRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, name, external_id, address, email, phone, notes, created_at, updated_at
		FROM %s
		WHERE id = ?`, r.tables.Clients)

	rec, err := r.scanClient(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return clientvault.ClientRecord{}, clientvault.ErrNotFound
		}
		return clientvault.ClientRecord{}, fmt.Errorf("find by id: %w", err)
	}

	rec.Files, err = r.filesFor(ctx, id)
	if err != nil {
		return clientvault.ClientRecord{}, fmt.Errorf("find by id: %w", err)
	}

	return rec, nil
}

func (r *repo) List(ctx context.Context, q clientvault.ListQuery) (clientvault.ListResult, error) {
	cursor, err := clientvault.DecodeCursor(q.Cursor)
	if err != nil {
		return clientvault.ListResult{}, fmt.Errorf("list: %w", err)
	}

	var query string
	var args []any

	if q.Cursor == "" {
		query = fmt.Sprintf(`
			SELECT id, name, external_id, address, email, phone, notes, created_at, updated_at
			FROM %s
			ORDER BY created_at, id
			LIMIT ?
		`, r.tables.Clients)
		args = []any{q.Limit + 1}
	} else {
		query = fmt.Sprintf(`
			SELECT id, name, external_id, address, email, phone, notes, created_at, updated_at
			FROM %s
			WHERE (created_at, id) > (?, ?)
			ORDER BY created_at, id
			LIMIT ?
		`, r.tables.Clients)
		args = []any{cursor.CreatedAt.Format(time.RFC3339Nano), cursor.ID.String(), q.Limit + 1}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return clientvault.ListResult{}, fmt.Errorf("list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]clientvault.ClientRecord, 0, q.Limit)
	for rows.Next() {
		rec, scanErr := r.scanClient(rows)
		if scanErr != nil {
			return clientvault.ListResult{}, fmt.Errorf("list: scan: %w", scanErr)
		}
		items = append(items, rec)
	}

	if err := rows.Err(); err != nil {
		return clientvault.ListResult{}, fmt.Errorf("list: rows: %w", err)
	}

	var nextCursor string
	if len(items) > q.Limit {
		// Cursor points to the last item of the current page
		lastItem := items[q.Limit-1]
		nextCursor = clientvault.EncodeCursor(lastItem.CreatedAt, lastItem.ID)
		items = items[:q.Limit]
	}

	for i := range items {
		items[i].Files, err = r.filesFor(ctx, items[i].ID)
		if err != nil {
			return clientvault.ListResult{}, fmt.Errorf("list: %w", err)
		}
	}

	return clientvault.ListResult{Items: items, NextCursor: nextCursor}, nil
}

func (r *repo) AppendFile(ctx context.Context, id uuid.UUID, ref clientvault.FileReference) (clientvault.ClientRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return clientvault.ClientRecord{}, fmt.Errorf("append file: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)

	touch := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s SET updated_at = ? WHERE id = ?`, r.tables.Clients)

	result, err := tx.ExecContext(ctx, touch, now, id.String())
	if err != nil {
		return clientvault.ClientRecord{}, fmt.Errorf("append file: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return clientvault.ClientRecord{}, fmt.Errorf("append file: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return clientvault.ClientRecord{}, fmt.Errorf("append file: %w", clientvault.ErrNotFound)
	}

	insert := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, client_id, object_key, file_name, category, size_bytes, position, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(position) + 1, 0) FROM %s WHERE client_id = ?),
			?)`, r.tables.ClientFiles, r.tables.ClientFiles)

	uploadedAt := ref.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx, insert,
		uuid.New().String(), id.String(), ref.Key, ref.FileName, string(ref.Category), ref.SizeBytes,
		id.String(), uploadedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return clientvault.ClientRecord{}, fmt.Errorf("append file: object key %s: %w", ref.Key, clientvault.ErrAlreadyExists)
		}
		return clientvault.ClientRecord{}, fmt.Errorf("append file: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return clientvault.ClientRecord{}, fmt.Errorf("append file: commit: %w", err)
	}

	return r.FindByID(ctx, id)
}

func (r *repo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete by id: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	deleteFiles := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`DELETE FROM %s WHERE client_id = ?`, r.tables.ClientFiles)
	if _, err := tx.ExecContext(ctx, deleteFiles, id.String()); err != nil {
		return fmt.Errorf("delete by id: files: %w", err)
	}

	deleteClient := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`DELETE FROM %s WHERE id = ?`, r.tables.Clients)

	result, err := tx.ExecContext(ctx, deleteClient, id.String())
	if err != nil {
		return fmt.Errorf("delete by id: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete by id: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("delete by id: %w", clientvault.ErrNotFound)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("delete by id: commit: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *repo) scanClient(row rowScanner) (clientvault.ClientRecord, error) {
	var rec clientvault.ClientRecord
	var idStr, createdAt, updatedAt string

	err := row.Scan(&idStr, &rec.Name, &rec.ExternalID, &rec.Address, &rec.Email, &rec.Phone,
		&rec.Notes, &createdAt, &updatedAt)
	if err != nil {
		return clientvault.ClientRecord{}, err
	}

	rec.ID, err = uuid.Parse(idStr)
	if err != nil {
		return clientvault.ClientRecord{}, fmt.Errorf("parse uuid: %w", err)
	}

	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return clientvault.ClientRecord{}, fmt.Errorf("parse created_at: %w", err)
	}

	rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return clientvault.ClientRecord{}, fmt.Errorf("parse updated_at: %w", err)
	}

	return rec, nil
}

func (r *repo) filesFor(ctx context.Context, id uuid.UUID) ([]clientvault.FileReference, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT object_key, file_name, category, size_bytes, uploaded_at
		FROM %s
		WHERE client_id = ?
		ORDER BY position`, r.tables.ClientFiles)

	rows, err := r.db.QueryContext(ctx, query, id.String())
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	files := []clientvault.FileReference{}
	for rows.Next() {
		var ref clientvault.FileReference
		var category, uploadedAt string

		if err := rows.Scan(&ref.Key, &ref.FileName, &category, &ref.SizeBytes, &uploadedAt); err != nil {
			return nil, fmt.Errorf("files: scan: %w", err)
		}

		ref.Category = clientvault.FileCategory(category)
		ref.UploadedAt, err = time.Parse(time.RFC3339Nano, uploadedAt)
		if err != nil {
			return nil, fmt.Errorf("files: parse uploaded_at: %w", err)
		}

		files = append(files, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("files: rows: %w", err)
	}

	return files, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
