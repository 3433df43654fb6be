package identity

import (
	"context"
	"testing"
	"time"

	"gradesync-backend/internal/components/chrono"
	"gradesync-backend/internal/components/db"
	"gradesync-backend/internal/components/testutil"

	"github.com/stretchr/testify/require"
)

func TestTokens(t *testing.T) {
	clock := chrono.FixedTime{At: time.Date(2024, time.October, 14, 12, 0, 0, 0, time.UTC)}
	verifier := NewVerifier(db.New(testutil.SetupDB(t)), clock)
	ctx := context.Background()

	token, err := verifier.IssueToken(ctx, "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := verifier.VerifyToken(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "user-1", userID)

	_, err = verifier.VerifyToken(ctx, "not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
	_, err = verifier.VerifyToken(ctx, "")
	require.ErrorIs(t, err, ErrInvalidToken)

	revoked, err := verifier.RevokeToken(ctx, token)
	require.NoError(t, err)
	require.True(t, revoked)
	_, err = verifier.VerifyToken(ctx, token)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = verifier.IssueToken(ctx, "")
	require.Error(t, err)
}
