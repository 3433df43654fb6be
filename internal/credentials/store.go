package credentials

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gradesync-backend/internal/components/assert"
	"gradesync-backend/internal/components/chrono"
	"gradesync-backend/internal/components/db"
	"gradesync-backend/internal/components/telemetry"
)

const (
	report_store_save    = "store.save"
	report_store_decrypt = "store.decrypt"
)

var ErrNotFound = errors.New("no credentials saved")

// Secret is what gets sealed into a credential row.
type Secret struct {
	Username string `json:"username"`
	Password string `json:"password"`
	SavedAt  int64  `json:"saved_at"`
}

// Status is credential metadata, it never carries the secret.
type Status struct {
	Source    string
	Exists    bool
	UpdatedAt time.Time
}

// Record is a credential row seen from the service path.
type Record struct {
	UserID    string
	Source    string
	UpdatedAt time.Time
}

// Store keeps one sealed Secret per (user, source). It is only reachable
// through ForUser or Service, the two paths carry different authority.
type Store struct {
	qry  *db.Queries
	key  []byte
	tel  telemetry.API
	time chrono.TimeAPI
}

func NewStore(qry *db.Queries, key []byte, tel telemetry.API, clock chrono.TimeAPI) *Store {
	assert.NotNil(qry)
	assert.NotNil(tel)
	assert.NotNil(clock)
	return &Store{
		qry:  qry,
		key:  key,
		tel:  telemetry.NewScopedAPI("credentials", tel),
		time: clock,
	}
}

func (s *Store) decrypt(ctx context.Context, userID, source string) (Secret, error) {
	row, err := s.qry.GetCredential(ctx, db.GetCredentialParams{UserID: userID, Source: source})
	if errors.Is(err, sql.ErrNoRows) {
		return Secret{}, ErrNotFound
	}
	if err != nil {
		return Secret{}, fmt.Errorf("get credential %s/%s: %w", userID, source, err)
	}

	plaintext, err := open(s.key, row.Secret)
	if err != nil {
		s.tel.ReportBroken(report_store_decrypt, userID, source, err)
		return Secret{}, fmt.Errorf("decrypt credential %s/%s: %w", userID, source, err)
	}
	var secret Secret
	if err := json.Unmarshal(plaintext, &secret); err != nil {
		s.tel.ReportBroken(report_store_decrypt, userID, source, err)
		return Secret{}, fmt.Errorf("decode credential %s/%s: %w", userID, source, err)
	}
	return secret, nil
}

// UserStore is the store as seen by one authenticated user.
type UserStore struct {
	store  *Store
	userID string
}

func (s *Store) ForUser(userID string) UserStore {
	assert.NotEmptyStr(userID)
	return UserStore{store: s, userID: userID}
}

// Save validates and seals the credentials, replacing whatever was saved
// for the source before. Nothing is written when validation fails.
func (u UserStore) Save(ctx context.Context, source, username, password string) error {
	username, err := SanitizeUsername(username)
	if err != nil {
		return err
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}

	now := u.store.time.Now().Unix()
	plaintext, err := json.Marshal(Secret{Username: username, Password: password, SavedAt: now})
	if err != nil {
		return err
	}
	sealed, err := seal(u.store.key, plaintext)
	if err != nil {
		return err
	}

	err = u.store.qry.UpsertCredential(ctx, db.UpsertCredentialParams{
		UserID:    u.userID,
		Source:    source,
		Secret:    sealed,
		UpdatedAt: now,
	})
	if err != nil {
		u.store.tel.ReportBroken(report_store_save, err)
		return fmt.Errorf("save credential %s: %w", source, err)
	}
	return nil
}

// Delete reports whether there was anything to delete.
func (u UserStore) Delete(ctx context.Context, source string) (bool, error) {
	affected, err := u.store.qry.DeleteCredential(ctx, db.DeleteCredentialParams{
		UserID: u.userID,
		Source: source,
	})
	if err != nil {
		return false, fmt.Errorf("delete credential %s: %w", source, err)
	}
	return affected > 0, nil
}

func (u UserStore) Check(ctx context.Context, source string) (Status, error) {
	row, err := u.store.qry.GetCredential(ctx, db.GetCredentialParams{UserID: u.userID, Source: source})
	if errors.Is(err, sql.ErrNoRows) {
		return Status{Source: source}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("check credential %s: %w", source, err)
	}
	return Status{
		Source:    source,
		Exists:    true,
		UpdatedAt: time.Unix(row.UpdatedAt, 0).In(chrono.Vilnius()),
	}, nil
}

// Sources lists the sources the user saved credentials for.
func (u UserStore) Sources(ctx context.Context) ([]Status, error) {
	rows, err := u.store.qry.ListUserCredentials(ctx, u.userID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	out := make([]Status, len(rows))
	for i, r := range rows {
		out[i] = Status{
			Source:    r.Source,
			Exists:    true,
			UpdatedAt: time.Unix(r.UpdatedAt, 0).In(chrono.Vilnius()),
		}
	}
	return out, nil
}

// Decrypt returns ErrNotFound when nothing is saved for the source.
func (u UserStore) Decrypt(ctx context.Context, source string) (Secret, error) {
	return u.store.decrypt(ctx, u.userID, source)
}

// ServiceStore is the store as seen by background jobs acting for every
// user.
type ServiceStore struct {
	store *Store
}

func (s *Store) Service() ServiceStore {
	return ServiceStore{store: s}
}

// ListAll returns every credential row ordered by user then source.
func (v ServiceStore) ListAll(ctx context.Context) ([]Record, error) {
	rows, err := v.store.qry.ListAllCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all credentials: %w", err)
	}
	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = Record{
			UserID:    r.UserID,
			Source:    r.Source,
			UpdatedAt: time.Unix(r.UpdatedAt, 0).In(chrono.Vilnius()),
		}
	}
	return out, nil
}

func (v ServiceStore) Decrypt(ctx context.Context, userID, source string) (Secret, error) {
	return v.store.decrypt(ctx, userID, source)
}
