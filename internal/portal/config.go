package portal

import (
	"fmt"
	"net/url"
	"strings"

	"gradesync-backend/internal/portal/gradeparse"
)

// Config is everything that differs between two portals. Every portal is
// driven by the same Adapter, adding a portal means adding a Config.
type Config struct {
	Source      string
	DisplayName string

	// BaseURLs are tried in order for the login page, the first one that
	// answers is used for the rest of the session.
	BaseURLs  []string
	LoginPath string
	// PostLoginFragments are path fragments a successful login redirects to.
	PostLoginFragments []string

	// UsernameFields and PasswordFields are every field name the portal
	// might expect, all of them are sent with each login.
	UsernameFields []string
	PasswordFields []string
	// FailureMarkers are lowercase substrings of a failed login page.
	FailureMarkers []string

	GradePaths    []string
	SchedulePaths []string
	HomeworkPaths []string
	Cascade       gradeparse.Cascade

	// ExtraSignals are appended to the default login signals.
	ExtraSignals []Signal

	Deprecated bool
	// Migration is shown to users of a deprecated portal.
	Migration string
}

// WithBaseURLs returns a copy of the config pointing at other hosts.
func (c Config) WithBaseURLs(urls ...string) Config {
	c.BaseURLs = append([]string(nil), urls...)
	return c
}

func (c Config) loginURL(base string) string {
	return joinURL(base, c.LoginPath)
}

// isLoginLocation reports whether a Location header leads back to the
// login page.
func (c Config) isLoginLocation(location string) bool {
	if location == "" {
		return false
	}
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	path := strings.ToLower(strings.TrimSuffix(u.Path, "/"))
	login := strings.ToLower(strings.TrimSuffix(c.LoginPath, "/"))
	return path == login || strings.HasPrefix(path, login+"/")
}

func joinURL(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(base, "/"), strings.TrimPrefix(path, "/"))
}

// resolveAction resolves a form action against the login page url.
func resolveAction(loginURL, action string) string {
	if action == "" {
		return loginURL
	}
	base, err := url.Parse(loginURL)
	if err != nil {
		return loginURL
	}
	ref, err := url.Parse(action)
	if err != nil {
		return loginURL
	}
	return base.ResolveReference(ref).String()
}
