package identity

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"gradesync-backend/internal/components/assert"
	"gradesync-backend/internal/components/chrono"
	"gradesync-backend/internal/components/db"

	"github.com/mazen160/go-random"
)

var ErrInvalidToken = errors.New("invalid api token")

const tokenLength = 40

// Verifier resolves bearer tokens to user ids. Only a hash of each token is
// kept in the database.
type Verifier struct {
	qry  *db.Queries
	time chrono.TimeAPI
}

func NewVerifier(qry *db.Queries, clock chrono.TimeAPI) Verifier {
	assert.NotNil(qry)
	assert.NotNil(clock)
	return Verifier{qry: qry, time: clock}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// VerifyToken returns the id of the user owning token.
func (v Verifier) VerifyToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	row, err := v.qry.GetApiToken(ctx, hashToken(token))
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", fmt.Errorf("verify token: %w", err)
	}
	return row.UserID, nil
}

// IssueToken mints a new token for userID, the plaintext token is only
// ever returned here.
func (v Verifier) IssueToken(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	token, err := random.String(tokenLength)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	err = v.qry.CreateApiToken(ctx, db.CreateApiTokenParams{
		Token:     hashToken(token),
		UserID:    userID,
		CreatedAt: v.time.Now().Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return token, nil
}

// RevokeToken reports whether the token existed.
func (v Verifier) RevokeToken(ctx context.Context, token string) (bool, error) {
	affected, err := v.qry.DeleteApiToken(ctx, hashToken(token))
	if err != nil {
		return false, fmt.Errorf("revoke token: %w", err)
	}
	return affected > 0, nil
}
