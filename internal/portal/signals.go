package portal

import (
	"regexp"
	"strings"

	"gradesync-backend/internal/components/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// Observation is what the adapter saw after submitting the login form.
type Observation struct {
	StatusCode int
	// Location is the Location header of the login POST response.
	Location string
	// NewCookies are the cookie names set by the POST and every redirect
	// followed after it.
	NewCookies []string
	// Body is the body of the final page.
	Body string
}

// Vote is a single signal's opinion on a login attempt. A veto fails the
// attempt regardless of the score.
type Vote struct {
	Score int
	Veto  bool
}

// Signal is one login success heuristic. Portals may add their own through
// Config.ExtraSignals.
type Signal interface {
	Name() string
	Vote(obs Observation) Vote
}

// Decision is the outcome of scoring an Observation.
type Decision struct {
	Success bool
	Score   int
	Vetoed  bool
	Votes   map[string]Vote
}

// Decide sums the votes of every signal. A login succeeds when no signal
// vetoed and the score is positive.
func Decide(signals []Signal, obs Observation) Decision {
	d := Decision{Votes: make(map[string]Vote, len(signals))}
	for _, s := range signals {
		v := s.Vote(obs)
		d.Votes[s.Name()] = v
		d.Score += v.Score
		d.Vetoed = d.Vetoed || v.Veto
	}
	d.Success = !d.Vetoed && d.Score > 0
	return d
}

// RedirectSignal votes for a redirect towards a known post-login page and
// against a redirect back to the login page.
type RedirectSignal struct {
	cfg Config
}

func (RedirectSignal) Name() string { return "redirect" }

func (s RedirectSignal) Vote(obs Observation) Vote {
	if obs.Location == "" {
		return Vote{}
	}
	if s.cfg.isLoginLocation(obs.Location) {
		return Vote{Score: -1}
	}
	location := strings.ToLower(obs.Location)
	for _, fragment := range s.cfg.PostLoginFragments {
		if strings.Contains(location, strings.ToLower(fragment)) {
			return Vote{Score: 1}
		}
	}
	return Vote{}
}

var (
	sessionCookiePattern = regexp.MustCompile(`(?i)(sess|auth|token|identity|login|remember)`)
	// anti-forgery cookies are handed out to anonymous visitors too
	csrfCookiePattern = regexp.MustCompile(`(?i)(csrf|xsrf|verification)`)
)

// CookieSignal votes for a login response that set a session-like cookie.
type CookieSignal struct{}

func (CookieSignal) Name() string { return "cookie" }

func (CookieSignal) Vote(obs Observation) Vote {
	for _, name := range obs.NewCookies {
		if sessionCookiePattern.MatchString(name) && !csrfCookiePattern.MatchString(name) {
			return Vote{Score: 1}
		}
	}
	return Vote{}
}

// FailureTextSignal vetoes a login whose final page mentions a failure.
type FailureTextSignal struct {
	markers []string
}

func (FailureTextSignal) Name() string { return "failure-text" }

func (s FailureTextSignal) Vote(obs Observation) Vote {
	text := strings.ToLower(visibleText(obs.Body))
	for _, marker := range s.markers {
		if strings.Contains(text, strings.ToLower(marker)) {
			return Vote{Veto: true}
		}
	}
	return Vote{}
}

// visibleText drops scripts and styles, dashboards routinely ship inline
// javascript mentioning "error".
func visibleText(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return body
	}
	doc.Find("script, style, noscript, template").Remove()
	return htmlutil.Text(doc.Selection)
}

// DefaultSignals are the signals used for every portal before its
// ExtraSignals.
func DefaultSignals(cfg Config) []Signal {
	signals := []Signal{
		RedirectSignal{cfg: cfg},
		CookieSignal{},
		FailureTextSignal{markers: cfg.FailureMarkers},
	}
	return append(signals, cfg.ExtraSignals...)
}
