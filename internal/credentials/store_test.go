package credentials

import (
	"context"
	"strings"
	"testing"
	"time"

	"gradesync-backend/internal/components/chrono"
	"gradesync-backend/internal/components/db"
	"gradesync-backend/internal/components/telemetry"
	"gradesync-backend/internal/components/testutil"

	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestStore(t *testing.T, key []byte) (*Store, *db.Queries) {
	t.Helper()
	qry := db.New(testutil.SetupDB(t))
	clock := chrono.FixedTime{At: time.Date(2024, time.October, 14, 12, 0, 0, 0, time.UTC)}
	return NewStore(qry, key, telemetry.NewRecorder(), clock), qry
}

func TestSanitizeUsername(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected string
		err      error
	}{
		{name: "plain", input: "jon123", expected: "jon123"},
		{name: "trimmed", input: "  jonas.jonaitis  ", expected: "jonas.jonaitis"},
		{name: "quotes stripped", input: `jon'"123;`, expected: "jon123"},
		{name: "comments stripped", input: "jon--/*x*/", expected: "jonx"},
		{name: "keyword rejected", input: "jon; DROP table", err: ErrInvalidUsername},
		{name: "keyword inside word kept", input: "updater", expected: "updater"},
		{name: "too short", input: "jo", err: ErrInvalidUsername},
		{name: "too short after stripping", input: "j''''o", err: ErrInvalidUsername},
		{name: "too long", input: strings.Repeat("a", 101), err: ErrInvalidUsername},
		{name: "lithuanian letters count once", input: strings.Repeat("ž", 100), expected: strings.Repeat("ž", 100)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SanitizeUsername(tc.input)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, got)
		})
	}
}

func TestValidatePassword(t *testing.T) {
	require.NoError(t, ValidatePassword("x"))
	require.NoError(t, ValidatePassword(strings.Repeat("p", 200)))
	require.ErrorIs(t, ValidatePassword(""), ErrInvalidPassword)
	require.ErrorIs(t, ValidatePassword(strings.Repeat("p", 201)), ErrInvalidPassword)
}

func TestRoundTrip(t *testing.T) {
	store, qry := newTestStore(t, testKey)
	ctx := context.Background()
	user := store.ForUser("user-1")

	password := `Secret!1 'quoted'; --`
	require.NoError(t, user.Save(ctx, "tamo", "jon123", password))

	status, err := user.Check(ctx, "tamo")
	require.NoError(t, err)
	require.True(t, status.Exists)
	require.Equal(t, int64(1728907200), status.UpdatedAt.Unix())

	secret, err := user.Decrypt(ctx, "tamo")
	require.NoError(t, err)
	require.Equal(t, "jon123", secret.Username)
	require.Equal(t, password, secret.Password)

	// the row never holds the plaintext
	row, err := qry.GetCredential(ctx, db.GetCredentialParams{UserID: "user-1", Source: "tamo"})
	require.NoError(t, err)
	require.NotContains(t, row.Secret, "jon123")
	require.NotContains(t, row.Secret, "Secret")
}

func TestSaveReplaces(t *testing.T) {
	store, _ := newTestStore(t, testKey)
	ctx := context.Background()
	user := store.ForUser("user-1")

	require.NoError(t, user.Save(ctx, "tamo", "first", "one"))
	require.NoError(t, user.Save(ctx, "tamo", "second", "two"))

	secret, err := user.Decrypt(ctx, "tamo")
	require.NoError(t, err)
	require.Equal(t, Secret{Username: "second", Password: "two", SavedAt: 1728907200}, secret)

	sources, err := user.Sources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
}

func TestInvalidSaveWritesNothing(t *testing.T) {
	store, _ := newTestStore(t, testKey)
	ctx := context.Background()
	user := store.ForUser("user-1")

	require.ErrorIs(t, user.Save(ctx, "tamo", "jo", "secret"), ErrInvalidUsername)
	require.ErrorIs(t, user.Save(ctx, "tamo", "jonas", ""), ErrInvalidPassword)

	status, err := user.Check(ctx, "tamo")
	require.NoError(t, err)
	require.False(t, status.Exists)
}

func TestDeleteAndMissing(t *testing.T) {
	store, _ := newTestStore(t, testKey)
	ctx := context.Background()
	user := store.ForUser("user-1")

	_, err := user.Decrypt(ctx, "tamo")
	require.ErrorIs(t, err, ErrNotFound)

	deleted, err := user.Delete(ctx, "tamo")
	require.NoError(t, err)
	require.False(t, deleted)

	require.NoError(t, user.Save(ctx, "tamo", "jonas", "secret"))
	deleted, err = user.Delete(ctx, "tamo")
	require.NoError(t, err)
	require.True(t, deleted)

	_, err = user.Decrypt(ctx, "tamo")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUsersAreIsolated(t *testing.T) {
	store, _ := newTestStore(t, testKey)
	ctx := context.Background()

	require.NoError(t, store.ForUser("user-1").Save(ctx, "tamo", "jonas", "secret"))
	_, err := store.ForUser("user-2").Decrypt(ctx, "tamo")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceStore(t *testing.T) {
	store, _ := newTestStore(t, testKey)
	ctx := context.Background()

	require.NoError(t, store.ForUser("user-2").Save(ctx, "tamo", "petras", "b"))
	require.NoError(t, store.ForUser("user-1").Save(ctx, "manodienynas", "jonas", "a"))
	require.NoError(t, store.ForUser("user-1").Save(ctx, "tamo", "jonas", "a"))

	records, err := store.Service().ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "user-1", records[0].UserID)
	require.Equal(t, "manodienynas", records[0].Source)
	require.Equal(t, "user-2", records[2].UserID)

	secret, err := store.Service().Decrypt(ctx, "user-2", "tamo")
	require.NoError(t, err)
	require.Equal(t, "petras", secret.Username)
}

func TestKeyHandling(t *testing.T) {
	store, _ := newTestStore(t, nil)
	err := store.ForUser("user-1").Save(context.Background(), "tamo", "jonas", "secret")
	require.ErrorIs(t, err, ErrEncryptionKeyNotSet)

	key, err := ParseKey("")
	require.NoError(t, err)
	require.Nil(t, key)

	key, err = ParseKey("MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=")
	require.NoError(t, err)
	require.Equal(t, testKey, key)

	_, err = ParseKey("too-short")
	require.Error(t, err)

	sealed, err := seal(testKey, []byte("hello"))
	require.NoError(t, err)
	_, err = open([]byte("fedcba9876543210fedcba9876543210"), sealed)
	require.Error(t, err)
}
