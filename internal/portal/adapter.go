package portal

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"gradesync-backend/internal/components/assert"
	"gradesync-backend/internal/components/chrono"
	"gradesync-backend/internal/components/telemetry"
	"gradesync-backend/internal/portal/gradeparse"
	"gradesync-backend/internal/portal/session"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_adapter_login         = "adapter.login"
	report_adapter_login_page    = "adapter.login-page"
	report_adapter_fetch         = "adapter.fetch"
	report_adapter_login_signals = "adapter.login-signals"
)

const (
	DefaultTimeout = 20 * time.Second
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	maxRedirects   = 3
)

type Options struct {
	// Timeout bounds every single request, DefaultTimeout when zero.
	Timeout time.Duration
	// MinInterval is the minimum delay between two requests of the adapter,
	// zero means unlimited.
	MinInterval time.Duration
	// CloudflareBypass wraps the transport with a browser-like TLS
	// fingerprint.
	CloudflareBypass bool
	// Output receives a dump of every HTTP exchange when set.
	Output telemetry.MessageOutput
}

// Adapter speaks to one portal. It is stateless between calls, every
// login+fetch sequence carries its own session.State.
type Adapter struct {
	cfg     Config
	client  *resty.Client
	signals []Signal
	tel     telemetry.API
	time    chrono.TimeAPI
}

func NewAdapter(cfg Config, tel telemetry.API, clock chrono.TimeAPI, opts Options) *Adapter {
	assert.NotNil(tel)
	assert.NotNil(clock)
	assert.NotEmptyStr(cfg.Source)
	assert.NotEmptySlice("base urls", cfg.BaseURLs)

	tel = telemetry.NewScopedAPI(fmt.Sprintf("portal: %s", cfg.Source), tel)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := resty.New()
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	// cookies are managed by session.Jar, redirects are followed by hand so
	// the jar sees every hop
	client.SetCookieJar(nil)
	client.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))
	client.SetHeader("user-agent", userAgent)
	client.SetTimeout(timeout)

	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}
	limiter := rate.NewLimiter(limit, 1)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})
	telemetry.InstrumentResty(client, tel, opts.Output)

	return &Adapter{
		cfg:     cfg,
		client:  client,
		signals: DefaultSignals(cfg),
		tel:     tel,
		time:    clock,
	}
}

func (a *Adapter) Config() Config {
	return a.cfg
}

func (a *Adapter) request(ctx context.Context, state *session.State) *resty.Request {
	req := a.client.R().SetContext(ctx)
	if state.Jar.Len() > 0 {
		req.SetHeader("cookie", state.Jar.Header())
	}
	return req
}

func isRedirect(status int) bool {
	return status >= 300 && status < 400
}

// follow follows up to maxRedirects redirects starting at res, collecting
// the cookies set along the way.
func (a *Adapter) follow(ctx context.Context, state *session.State, res *resty.Response) (*resty.Response, []string, error) {
	var cookies []string
	for hop := 0; hop < maxRedirects && isRedirect(res.StatusCode()); hop++ {
		location, err := res.RawResponse.Location()
		if err != nil {
			break
		}
		res, err = a.request(ctx, state).Get(location.String())
		if err != nil {
			return nil, cookies, classifyTransport(err)
		}
		cookies = append(cookies, state.Jar.Update(res.Header())...)
	}
	return res, cookies, nil
}

// openLoginPage tries every base url in order and pins the first one that
// answers to the session.
func (a *Adapter) openLoginPage(ctx context.Context, state *session.State) (*resty.Response, error) {
	var lastErr error
	for _, base := range a.cfg.BaseURLs {
		res, err := a.request(ctx, state).Get(a.cfg.loginURL(base))
		if err != nil {
			lastErr = classifyTransport(err)
			a.tel.ReportDebug(report_adapter_login_page, base, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		state.BaseURL = base
		state.Jar.Update(res.Header())

		res, _, err = a.follow(ctx, state, res)
		if err != nil {
			return nil, err
		}
		return res, nil
	}
	return nil, lastErr
}

// Login submits the credentials and decides whether the portal accepted
// them. A rejected login is (false, nil), errors are reserved for transport
// failures.
func (a *Adapter) Login(ctx context.Context, state *session.State, username, password string) (bool, error) {
	state.LoggedIn = false

	page, err := a.openLoginPage(ctx, state)
	if err != nil {
		a.tel.ReportWarning(report_adapter_login, err)
		return false, err
	}

	fields := session.ExtractFields(page.String())
	state.Token = fields.Token

	form := make(map[string]string, len(fields.Hidden)+len(a.cfg.UsernameFields)+len(a.cfg.PasswordFields))
	for name, value := range fields.Hidden {
		form[name] = value
	}
	if fields.TokenName != "" {
		form[fields.TokenName] = fields.Token
	}
	for _, name := range a.cfg.UsernameFields {
		form[name] = username
	}
	for _, name := range a.cfg.PasswordFields {
		form[name] = password
	}

	// the form action is relative to wherever the login page redirected to
	pageURL := a.cfg.loginURL(state.BaseURL)
	if page.Request != nil && page.Request.URL != "" {
		pageURL = page.Request.URL
	}
	target := resolveAction(pageURL, fields.Action)
	res, err := a.request(ctx, state).SetFormData(form).Post(target)
	if err != nil {
		err = classifyTransport(err)
		a.tel.ReportWarning(report_adapter_login, err)
		return false, err
	}

	obs := Observation{
		StatusCode: res.StatusCode(),
		Location:   res.Header().Get("Location"),
		NewCookies: state.Jar.Update(res.Header()),
	}
	final, cookies, err := a.follow(ctx, state, res)
	if err != nil {
		a.tel.ReportWarning(report_adapter_login, err)
		return false, err
	}
	obs.NewCookies = append(obs.NewCookies, cookies...)
	obs.Body = final.String()

	decision := Decide(a.signals, obs)
	a.tel.ReportDebug(report_adapter_login_signals, decision.Score, decision.Vetoed, decision.Votes)

	state.LoggedIn = decision.Success
	return decision.Success, nil
}

// fetchFirst requests each path in order and returns the first non-empty
// parse. A redirect to the login page means the session is gone.
func fetchFirst[T any](ctx context.Context, a *Adapter, state *session.State, paths []string, parse func(body string) []T) ([]T, error) {
	if !state.LoggedIn || state.BaseURL == "" {
		return nil, ErrNotLoggedIn
	}

	var lastErr error
	answered := false
	for _, path := range paths {
		if ctx.Err() != nil {
			return nil, classifyTransport(ctx.Err())
		}

		res, err := a.request(ctx, state).Get(joinURL(state.BaseURL, path))
		if err != nil {
			lastErr = classifyTransport(err)
			a.tel.ReportDebug(report_adapter_fetch, path, err)
			continue
		}
		answered = true
		state.Jar.Update(res.Header())

		switch {
		case res.StatusCode() == http.StatusUnauthorized:
			state.LoggedIn = false
			return nil, ErrSessionExpired
		case isRedirect(res.StatusCode()):
			if a.cfg.isLoginLocation(res.Header().Get("Location")) {
				state.LoggedIn = false
				return nil, ErrSessionExpired
			}
			continue
		case res.StatusCode() != http.StatusOK:
			a.tel.ReportDebug(report_adapter_fetch, path, res.Status())
			continue
		}

		if items := parse(res.String()); len(items) > 0 {
			return items, nil
		}
	}

	if !answered && lastErr != nil {
		a.tel.ReportWarning(report_adapter_fetch, lastErr)
		return nil, lastErr
	}
	return []T{}, nil
}

// FetchGrades returns an empty slice when the portal answered but no page
// contained grades.
func (a *Adapter) FetchGrades(ctx context.Context, state *session.State) ([]gradeparse.Grade, error) {
	today := a.time.Now()
	return fetchFirst(ctx, a, state, a.cfg.GradePaths, func(body string) []gradeparse.Grade {
		return gradeparse.Parse(body, a.cfg.Cascade, today)
	})
}

func (a *Adapter) FetchSchedule(ctx context.Context, state *session.State) ([]gradeparse.Lesson, error) {
	return fetchFirst(ctx, a, state, a.cfg.SchedulePaths, gradeparse.ParseSchedule)
}

func (a *Adapter) FetchHomework(ctx context.Context, state *session.State) ([]gradeparse.Assignment, error) {
	return fetchFirst(ctx, a, state, a.cfg.HomeworkPaths, gradeparse.ParseHomework)
}
