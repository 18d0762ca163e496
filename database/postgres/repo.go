// Package postgres implements the metadata repository on PostgreSQL
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kjayal/clientvault"
)

// Tables is an alias for clientvault.Tables for package compatibility.
type Tables = clientvault.Tables

type Repo struct {
	pool   *pgxpool.Pool
	tables Tables
}

func NewRepo(pool *pgxpool.Pool, tables Tables) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return &Repo{pool: pool, tables: tables}, nil
}

// Ping verifies database connectivity
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repo) Insert(ctx context.Context, nc clientvault.NewClient) (clientvault.ClientRecord, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return clientvault.ClientRecord{}, fmt.Errorf("insert: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := fmt.Sprintf(`
		INSERT INTO %s (name, external_id, address, email, phone, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, r.tables.Clients)

	rec := clientvault.ClientRecord{
		Name:       nc.Name,
		ExternalID: nc.ExternalID,
		Address:    nc.Address,
		Email:      nc.Email,
		Phone:      nc.Phone,
		Notes:      nc.Notes,
		Files:      make([]clientvault.FileReference, 0, len(nc.Files)),
	}

	err = tx.QueryRow(ctx, query, nc.Name, nc.ExternalID, nc.Address, nc.Email, nc.Phone, nc.Notes).
		Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return clientvault.ClientRecord{}, fmt.Errorf("insert: external id %s: %w", nc.ExternalID, clientvault.ErrAlreadyExists)
		}
		return clientvault.ClientRecord{}, fmt.Errorf("insert: %w", err)
	}

	fileQuery := fmt.Sprintf(`
		INSERT INTO %s (client_id, object_key, file_name, category, size_bytes, position)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING uploaded_at
	`, r.tables.ClientFiles)

	for i, f := range nc.Files {
		ref := clientvault.FileReference{
			Key:       f.Key,
			FileName:  f.FileName,
			Category:  f.Category,
			SizeBytes: f.SizeBytes,
		}
		err = tx.QueryRow(ctx, fileQuery, rec.ID, f.Key, f.FileName, string(f.Category), f.SizeBytes, i).
			Scan(&ref.UploadedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return clientvault.ClientRecord{}, fmt.Errorf("insert: object key %s: %w", f.Key, clientvault.ErrAlreadyExists)
			}
			return clientvault.ClientRecord{}, fmt.Errorf("insert: file %s: %w", f.Key, err)
		}
		rec.Files = append(rec.Files, ref)
	}

	if err = tx.Commit(ctx); err != nil {
		return clientvault.ClientRecord{}, fmt.Errorf("insert: commit: %w", err)
	}

	return rec, nil
}

func (r *Repo) FindByID(ctx context.Context, id uuid.UUID) (clientvault.ClientRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, name, external_id, address, email, phone, notes, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tables.Clients)

	var rec clientvault.ClientRecord
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.Name, &rec.ExternalID, &rec.Address, &rec.Email, &rec.Phone, &rec.Notes,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return clientvault.ClientRecord{}, clientvault.ErrNotFound
		}
		return clientvault.ClientRecord{}, fmt.Errorf("find by id: %w", err)
	}

	files, err := r.filesFor(ctx, []uuid.UUID{id})
	if err != nil {
		return clientvault.ClientRecord{}, fmt.Errorf("find by id: %w", err)
	}
	rec.Files = files[id]
	if rec.Files == nil {
		rec.Files = []clientvault.FileReference{}
	}

	return rec, nil
}

func (r *Repo) List(ctx context.Context, q clientvault.ListQuery) (clientvault.ListResult, error) {
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
			LIMIT $1
		`, r.tables.Clients)
		args = []any{q.Limit + 1}
	} else {
		query = fmt.Sprintf(`
			SELECT id, name, external_id, address, email, phone, notes, created_at, updated_at
			FROM %s
			WHERE (created_at, id) > ($1, $2)
			ORDER BY created_at, id
			LIMIT $3
		`, r.tables.Clients)
		args = []any{cursor.CreatedAt, cursor.ID, q.Limit + 1}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return clientvault.ListResult{}, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	items := make([]clientvault.ClientRecord, 0, q.Limit)
	for rows.Next() {
		var rec clientvault.ClientRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.ExternalID, &rec.Address, &rec.Email, &rec.Phone,
			&rec.Notes, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return clientvault.ListResult{}, fmt.Errorf("list: scan: %w", err)
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

	ids := make([]uuid.UUID, 0, len(items))
	for _, rec := range items {
		ids = append(ids, rec.ID)
	}

	files, err := r.filesFor(ctx, ids)
	if err != nil {
		return clientvault.ListResult{}, fmt.Errorf("list: %w", err)
	}
	for i := range items {
		items[i].Files = files[items[i].ID]
		if items[i].Files == nil {
			items[i].Files = []clientvault.FileReference{}
		}
	}

	return clientvault.ListResult{Items: items, NextCursor: nextCursor}, nil
}

func (r *Repo) AppendFile(ctx context.Context, id uuid.UUID, ref clientvault.FileReference) (clientvault.ClientRecord, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return clientvault.ClientRecord{}, fmt.Errorf("append file: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	touch := fmt.Sprintf(`UPDATE %s SET updated_at = NOW() WHERE id = $1`, r.tables.Clients)
	result, err := tx.Exec(ctx, touch, id)
	if err != nil {
		return clientvault.ClientRecord{}, fmt.Errorf("append file: %w", err)
	}
	if result.RowsAffected() == 0 {
		return clientvault.ClientRecord{}, fmt.Errorf("append file: %w", clientvault.ErrNotFound)
	}

	insert := fmt.Sprintf(`
		INSERT INTO %s (client_id, object_key, file_name, category, size_bytes, position, uploaded_at)
		VALUES ($1, $2, $3, $4, $5,
			(SELECT COALESCE(MAX(position) + 1, 0) FROM %s WHERE client_id = $1),
			$6)
	`, r.tables.ClientFiles, r.tables.ClientFiles)

	_, err = tx.Exec(ctx, insert, id, ref.Key, ref.FileName, string(ref.Category), ref.SizeBytes, ref.UploadedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return clientvault.ClientRecord{}, fmt.Errorf("append file: object key %s: %w", ref.Key, clientvault.ErrAlreadyExists)
		}
		return clientvault.ClientRecord{}, fmt.Errorf("append file: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return clientvault.ClientRecord{}, fmt.Errorf("append file: commit: %w", err)
	}

	return r.FindByID(ctx, id)
}

func (r *Repo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	// File rows go with the record via ON DELETE CASCADE.
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Clients)

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete by id: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete by id: %w", clientvault.ErrNotFound)
	}

	return nil
}

func (r *Repo) filesFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]clientvault.FileReference, error) {
	files := make(map[uuid.UUID][]clientvault.FileReference, len(ids))
	if len(ids) == 0 {
		return files, nil
	}

	query := fmt.Sprintf(`
		SELECT client_id, object_key, file_name, category, size_bytes, uploaded_at
		FROM %s
		WHERE client_id = ANY($1)
		ORDER BY client_id, position
	`, r.tables.ClientFiles)

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var clientID uuid.UUID
		var ref clientvault.FileReference
		var category string
		if err := rows.Scan(&clientID, &ref.Key, &ref.FileName, &category, &ref.SizeBytes, &ref.UploadedAt); err != nil {
			return nil, fmt.Errorf("files: scan: %w", err)
		}
		ref.Category = clientvault.FileCategory(category)
		files[clientID] = append(files[clientID], ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("files: rows: %w", err)
	}

	return files, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
