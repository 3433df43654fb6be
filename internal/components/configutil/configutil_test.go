package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Database string `json:"database"`
	Sync     struct {
		DelaySeconds int    `json:"delay_seconds"`
		Cron         string `json:"cron"`
	} `json:"sync"`
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")

	_, err := ReadConfig[testConfig](path)
	require.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(path, []byte(`{
		// comments are allowed
		database: "gradesync.db",
		sync: { delay_seconds: 2, cron: "0 6 * * *" },
	}`), 0600))

	cfg, err := ReadConfig[testConfig](path)
	require.NoError(t, err)
	require.Equal(t, "gradesync.db", cfg.Database)
	require.Equal(t, 2, cfg.Sync.DelaySeconds)

	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "config.local.json5"),
		[]byte(`{ sync: { delay_seconds: 5 } }`),
		0600,
	))

	cfg, err = ReadConfig[testConfig](path)
	require.NoError(t, err)
	require.Equal(t, "gradesync.db", cfg.Database)
	require.Equal(t, 5, cfg.Sync.DelaySeconds)
	require.Equal(t, "0 6 * * *", cfg.Sync.Cron)
}

func TestEnvOr(t *testing.T) {
	t.Setenv("GRADESYNC_TEST_VALUE", "")
	require.Equal(t, "fallback", EnvOr("GRADESYNC_TEST_VALUE", "fallback"))
	t.Setenv("GRADESYNC_TEST_VALUE", "set")
	require.Equal(t, "set", EnvOr("GRADESYNC_TEST_VALUE", "fallback"))
}
