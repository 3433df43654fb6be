package db

import (
	"context"
)

const createApiToken = `-- name: CreateApiToken :exec
INSERT INTO api_tokens (token, user_id, created_at) VALUES (?, ?, ?)
`

type CreateApiTokenParams struct {
	Token     string
	UserID    string
	CreatedAt int64
}

func (q *Queries) CreateApiToken(ctx context.Context, arg CreateApiTokenParams) error {
	_, err := q.db.ExecContext(ctx, createApiToken, arg.Token, arg.UserID, arg.CreatedAt)
	return err
}

const getApiToken = `-- name: GetApiToken :one
SELECT token, user_id, created_at FROM api_tokens
WHERE token = ?
`

func (q *Queries) GetApiToken(ctx context.Context, token string) (ApiToken, error) {
	row := q.db.QueryRowContext(ctx, getApiToken, token)
	var i ApiToken
	err := row.Scan(&i.Token, &i.UserID, &i.CreatedAt)
	return i, err
}

const deleteApiToken = `-- name: DeleteApiToken :execrows
DELETE FROM api_tokens WHERE token = ?
`

func (q *Queries) DeleteApiToken(ctx context.Context, token string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteApiToken, token)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
