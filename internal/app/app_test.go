package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gradesync-backend/internal/components/chrono"
	"gradesync-backend/internal/components/telemetry"
	"gradesync-backend/internal/credentials"
	"gradesync-backend/internal/portal"
	"gradesync-backend/internal/runner"

	"github.com/stretchr/testify/require"
)

const testKey = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.json5")
	require.NoError(t, os.WriteFile(name, []byte(`{
		// comments are allowed
		database: { url: "grades.db" },
		secret_key: "from-file",
		sync: { cron: "0 6,18 * * *", delay: "3s" },
		portals: { tamo: { base_urls: ["https://mirror.tamo.lt"] } },
	}`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{
		port: 9000,
	}`), 0600))

	t.Setenv(SecretKeyEnv, testKey)
	cfg, err := ReadConfig(name)
	require.NoError(t, err)
	require.Equal(t, "grades.db", cfg.Database.Url)
	require.Equal(t, testKey, cfg.SecretKey)
	require.Equal(t, 9000, cfg.Port)
	require.Equal(t, DefaultDumpDir, cfg.DumpDir)
	require.Equal(t, "0 6,18 * * *", cfg.Sync.Cron)

	opts, err := cfg.Sync.RunnerOptions(nil)
	require.NoError(t, err)
	require.Equal(t, 3*time.Second, opts.Delay)
	require.Zero(t, opts.Cooldown)
}

func TestRunnerOptionsRejectsGarbage(t *testing.T) {
	_, err := SyncConfig{Delay: "soon"}.RunnerOptions(nil)
	require.ErrorContains(t, err, "sync.delay")

	_, err = SyncConfig{Cooldown: "-5m"}.RunnerOptions(nil)
	require.ErrorContains(t, err, "sync.cooldown")

	opts, err := SyncConfig{Cooldown: "10m", CooldownThreshold: 5}.RunnerOptions(nil)
	require.NoError(t, err)
	require.Equal(t, runner.Options{Cooldown: 10 * time.Minute, CooldownThreshold: 5}, opts)
}

func TestPortalOptions(t *testing.T) {
	cfg := Config{Portals: map[string]PortalConfig{
		portal.SourceTamo: {BaseUrls: []string{"http://127.0.0.1:1"}, MinInterval: "250ms", CloudflareBypass: true},
	}}
	configs, options, err := cfg.portalOptions(5 * time.Second)
	require.NoError(t, err)
	require.Len(t, configs, len(portal.Active()))
	require.Equal(t, []string{"http://127.0.0.1:1"}, configs[0].BaseURLs)
	require.Equal(t, portal.ManoDienynas.BaseURLs, configs[1].BaseURLs)
	require.Equal(t, portal.Options{Timeout: 5 * time.Second, MinInterval: 250 * time.Millisecond, CloudflareBypass: true}, options[0])

	_, _, err = Config{Portals: map[string]PortalConfig{"eduka": {}}}.portalOptions(0)
	require.ErrorIs(t, err, portal.ErrUnknownSource)

	_, _, err = Config{Portals: map[string]PortalConfig{portal.SourceSvietimoCentras: {}}}.portalOptions(0)
	require.ErrorIs(t, err, portal.ErrDeprecatedSource)
}

func TestNew(t *testing.T) {
	clock := chrono.FixedTime{At: time.Date(2024, time.October, 14, 12, 0, 0, 0, time.UTC)}
	cfg := Config{
		Database:  DatabaseConfig{Url: filepath.Join(t.TempDir(), "gradesync.db")},
		SecretKey: testKey,
	}.withDefaults()

	a, err := New(cfg, telemetry.NewRecorder(), clock, nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	require.Equal(t, portal.ActiveSources(), a.Service.Sources())
	adapter, err := a.Adapter(portal.SourceTamo)
	require.NoError(t, err)
	require.Equal(t, portal.SourceTamo, adapter.Config().Source)

	_, err = a.Adapter(portal.SourceSvietimoCentras)
	require.ErrorIs(t, err, portal.ErrDeprecatedSource)
}

func TestNewRequiresKey(t *testing.T) {
	clock := chrono.FixedTime{At: time.Now()}
	_, err := New(Config{Database: DatabaseConfig{Url: filepath.Join(t.TempDir(), "x.db")}}, telemetry.NewRecorder(), clock, nil)
	require.ErrorIs(t, err, credentials.ErrEncryptionKeyNotSet)

	_, err = New(Config{SecretKey: "short"}, telemetry.NewRecorder(), clock, nil)
	require.ErrorContains(t, err, "32 bytes")
}
