package app

import (
	"fmt"
	"time"

	"gradesync-backend/internal/components/configutil"
	"gradesync-backend/internal/notify"
	"gradesync-backend/internal/portal"
	"gradesync-backend/internal/runner"
)

// SecretKeyEnv overrides Config.SecretKey when set.
const SecretKeyEnv = "GRADESYNC_SECRET_KEY"

type DatabaseConfig struct {
	// Url is a sqlite file path or a libsql url.
	Url string `json:"url"`
}

type PortalConfig struct {
	BaseUrls         []string `json:"base_urls"`
	CloudflareBypass bool     `json:"cloudflare_bypass"`
	// MinInterval is a duration string like "500ms".
	MinInterval string `json:"min_interval"`
}

type SyncConfig struct {
	// Cron is a robfig/cron spec evaluated in Europe/Vilnius, empty disables
	// scheduled runs.
	Cron string `json:"cron"`
	// Delay, RequestTimeout and Cooldown are duration strings.
	Delay             string `json:"delay"`
	RequestTimeout    string `json:"request_timeout"`
	Cooldown          string `json:"cooldown"`
	CooldownThreshold int    `json:"cooldown_threshold"`
}

type Config struct {
	Database  DatabaseConfig          `json:"database"`
	SecretKey string                  `json:"secret_key"`
	Port      int                     `json:"port"`
	Portals   map[string]PortalConfig `json:"portals"`
	Sync      SyncConfig              `json:"sync"`
	Notify    notify.Options          `json:"notify"`
	// DumpDir receives every HTTP exchange with the portals in verbose mode.
	DumpDir string `json:"dump_dir"`
}

const (
	DefaultPort     = 8000
	DefaultDatabase = "gradesync.db"
	DefaultDumpDir  = ".dev/resty"
)

// ReadConfig reads config.json5 (merged with config.local.json5) and fills in
// defaults.
func ReadConfig(name string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](name)
	if err != nil {
		return Config{}, err
	}
	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	c.SecretKey = configutil.EnvOr(SecretKeyEnv, c.SecretKey)
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Database.Url == "" {
		c.Database.Url = DefaultDatabase
	}
	if c.DumpDir == "" {
		c.DumpDir = DefaultDumpDir
	}
	return c
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", field)
	}
	return d, nil
}

// Timeout is the per request portal timeout, portal.DefaultTimeout when
// unset.
func (s SyncConfig) Timeout() (time.Duration, error) {
	return parseDuration("sync.request_timeout", s.RequestTimeout)
}

// RunnerOptions converts the sync section, zero values fall back to the
// runner defaults.
func (s SyncConfig) RunnerOptions(notifier runner.Notifier) (runner.Options, error) {
	delay, err := parseDuration("sync.delay", s.Delay)
	if err != nil {
		return runner.Options{}, err
	}
	cooldown, err := parseDuration("sync.cooldown", s.Cooldown)
	if err != nil {
		return runner.Options{}, err
	}
	return runner.Options{
		Delay:             delay,
		CooldownThreshold: s.CooldownThreshold,
		Cooldown:          cooldown,
		Notifier:          notifier,
	}, nil
}

// portalOptions resolves the configured overrides of every active portal.
func (c Config) portalOptions(timeout time.Duration) ([]portal.Config, []portal.Options, error) {
	for source := range c.Portals {
		if _, err := portal.Lookup(source); err != nil {
			return nil, nil, fmt.Errorf("portals.%s: %w", source, err)
		}
	}

	var (
		configs []portal.Config
		options []portal.Options
	)
	for _, cfg := range portal.Active() {
		override := c.Portals[cfg.Source]
		if len(override.BaseUrls) > 0 {
			cfg = cfg.WithBaseURLs(override.BaseUrls...)
		}
		interval, err := parseDuration(fmt.Sprintf("portals.%s.min_interval", cfg.Source), override.MinInterval)
		if err != nil {
			return nil, nil, err
		}
		configs = append(configs, cfg)
		options = append(options, portal.Options{
			Timeout:          timeout,
			MinInterval:      interval,
			CloudflareBypass: override.CloudflareBypass,
		})
	}
	return configs, options, nil
}
