package db

import (
	"context"
)

const upsertCredential = `-- name: UpsertCredential :exec
INSERT INTO portal_credentials (user_id, source, secret, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (user_id, source) DO UPDATE SET
    secret = excluded.secret,
    updated_at = excluded.updated_at
`

type UpsertCredentialParams struct {
	UserID    string
	Source    string
	Secret    string
	UpdatedAt int64
}

func (q *Queries) UpsertCredential(ctx context.Context, arg UpsertCredentialParams) error {
	_, err := q.db.ExecContext(ctx, upsertCredential,
		arg.UserID,
		arg.Source,
		arg.Secret,
		arg.UpdatedAt,
	)
	return err
}

const getCredential = `-- name: GetCredential :one
SELECT user_id, source, secret, updated_at FROM portal_credentials
WHERE user_id = ? AND source = ?
`

type GetCredentialParams struct {
	UserID string
	Source string
}

func (q *Queries) GetCredential(ctx context.Context, arg GetCredentialParams) (PortalCredential, error) {
	row := q.db.QueryRowContext(ctx, getCredential, arg.UserID, arg.Source)
	var i PortalCredential
	err := row.Scan(
		&i.UserID,
		&i.Source,
		&i.Secret,
		&i.UpdatedAt,
	)
	return i, err
}

const deleteCredential = `-- name: DeleteCredential :execrows
DELETE FROM portal_credentials
WHERE user_id = ? AND source = ?
`

type DeleteCredentialParams struct {
	UserID string
	Source string
}

func (q *Queries) DeleteCredential(ctx context.Context, arg DeleteCredentialParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteCredential, arg.UserID, arg.Source)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listUserCredentials = `-- name: ListUserCredentials :many
SELECT source, updated_at FROM portal_credentials
WHERE user_id = ?
ORDER BY source
`

type ListUserCredentialsRow struct {
	Source    string
	UpdatedAt int64
}

func (q *Queries) ListUserCredentials(ctx context.Context, userID string) ([]ListUserCredentialsRow, error) {
	rows, err := q.db.QueryContext(ctx, listUserCredentials, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListUserCredentialsRow
	for rows.Next() {
		var i ListUserCredentialsRow
		if err := rows.Scan(&i.Source, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listAllCredentials = `-- name: ListAllCredentials :many
SELECT user_id, source, secret, updated_at FROM portal_credentials
ORDER BY user_id, source
`

func (q *Queries) ListAllCredentials(ctx context.Context) ([]PortalCredential, error) {
	rows, err := q.db.QueryContext(ctx, listAllCredentials)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PortalCredential
	for rows.Next() {
		var i PortalCredential
		if err := rows.Scan(
			&i.UserID,
			&i.Source,
			&i.Secret,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
