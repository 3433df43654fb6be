package app

import (
	"database/sql"
	"fmt"

	"gradesync-backend/internal/components/assert"
	"gradesync-backend/internal/components/chrono"
	"gradesync-backend/internal/components/db"
	"gradesync-backend/internal/components/telemetry"
	"gradesync-backend/internal/credentials"
	"gradesync-backend/internal/gradestore"
	"gradesync-backend/internal/identity"
	"gradesync-backend/internal/portal"
	"gradesync-backend/internal/service"
)

// App holds every long lived component shared by the server and the cli.
type App struct {
	Config      Config
	DB          *sql.DB
	Credentials *credentials.Store
	Grades      *gradestore.Store
	Identity    identity.Verifier
	Adapters    map[string]*portal.Adapter
	Service     service.Service
}

// New opens the database and builds every component. output may be nil.
func New(cfg Config, tel telemetry.API, clock chrono.TimeAPI, output telemetry.MessageOutput) (App, error) {
	assert.NotNil(tel)
	assert.NotNil(clock)

	key, err := credentials.ParseKey(cfg.SecretKey)
	if err != nil {
		return App{}, err
	}
	if key == nil {
		return App{}, fmt.Errorf("%w, set secret_key or %s", credentials.ErrEncryptionKeyNotSet, SecretKeyEnv)
	}

	timeout, err := cfg.Sync.Timeout()
	if err != nil {
		return App{}, err
	}
	configs, options, err := cfg.portalOptions(timeout)
	if err != nil {
		return App{}, err
	}

	database, err := db.Open(cfg.Database.Url)
	if err != nil {
		return App{}, err
	}
	qry := db.New(database)

	creds := credentials.NewStore(qry, key, tel, clock)
	grades := gradestore.NewStore(qry, db.NewMakeTx(database), tel, clock)

	adapters := map[string]*portal.Adapter{}
	portals := map[string]service.Portal{}
	for i, pcfg := range configs {
		opts := options[i]
		opts.Output = output
		adapter := portal.NewAdapter(pcfg, tel, clock, opts)
		adapters[pcfg.Source] = adapter
		portals[pcfg.Source] = adapter
	}

	return App{
		Config:      cfg,
		DB:          database,
		Credentials: creds,
		Grades:      grades,
		Identity:    identity.NewVerifier(qry, clock),
		Adapters:    adapters,
		Service:     service.NewService(portals, creds, grades, tel, clock),
	}, nil
}

// Adapter returns the adapter of an active source.
func (a App) Adapter(source string) (*portal.Adapter, error) {
	if _, err := portal.Lookup(source); err != nil {
		return nil, err
	}
	adapter, ok := a.Adapters[source]
	if !ok {
		return nil, fmt.Errorf("%w: %q", portal.ErrUnknownSource, source)
	}
	return adapter, nil
}

func (a App) Close() error {
	return a.DB.Close()
}
