package portal_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gradesync-backend/internal/components/chrono"
	"gradesync-backend/internal/components/telemetry"
	"gradesync-backend/internal/portal"
	"gradesync-backend/internal/portal/gradeparse"
	"gradesync-backend/internal/portal/portaltest"
	"gradesync-backend/internal/portal/session"

	"github.com/stretchr/testify/require"
)

var testClock = chrono.FixedTime{At: time.Date(2024, time.October, 14, 12, 0, 0, 0, time.UTC)}

func newAdapter(t *testing.T, cfg portal.Config, opts portal.Options) (*portal.Adapter, *telemetry.Recorder) {
	t.Helper()
	rec := telemetry.NewRecorder()
	return portal.NewAdapter(cfg, rec, testClock, opts), rec
}

func closedURL() string {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	return srv.URL
}

func TestLoginAndFetch(t *testing.T) {
	srv := portaltest.NewServer(t, map[string]string{"jonas": "slaptas"})
	adapter, rec := newAdapter(t, srv.Config(), portal.Options{})
	ctx := context.Background()

	state := session.NewState()
	ok, err := adapter.Login(ctx, state, "jonas", "slaptas")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, state.LoggedIn)
	require.Equal(t, srv.URL, state.BaseURL)
	require.Equal(t, "tok-7f3a", state.Token)

	_, hasAuth := state.Jar.Get(".ASPXAUTH")
	require.True(t, hasAuth)
	require.NotEmpty(t, rec.Find("debug", "adapter.login-signals"))

	grades, err := adapter.FetchGrades(ctx, state)
	require.NoError(t, err)
	require.Equal(t, []gradeparse.Grade{
		{Subject: "Matematika", Value: 9, Type: gradeparse.DefaultType, Date: "2024-10-14", Semester: "I", Teacher: "J. Jonaitis"},
		{Subject: "Matematika", Value: 10, Type: gradeparse.DefaultType, Date: "2024-10-14", Semester: "I", Teacher: "J. Jonaitis"},
		{Subject: "Fizika", Value: 7, Type: gradeparse.DefaultType, Date: "2024-10-14", Semester: "I", Teacher: "P. Petraitė"},
	}, grades)

	lessons, err := adapter.FetchSchedule(ctx, state)
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	require.Equal(t, "Matematika", lessons[0].Subject)

	homework, err := adapter.FetchHomework(ctx, state)
	require.NoError(t, err)
	require.Len(t, homework, 1)
	require.Equal(t, "2024-10-08", homework[0].Due)
}

func TestLoginRejected(t *testing.T) {
	srv := portaltest.NewServer(t, map[string]string{"jonas": "slaptas"})
	adapter, _ := newAdapter(t, srv.Config(), portal.Options{})

	state := session.NewState()
	ok, err := adapter.Login(context.Background(), state, "jonas", "neteisingas")
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, state.LoggedIn)

	_, err = adapter.FetchGrades(context.Background(), state)
	require.ErrorIs(t, err, portal.ErrNotLoggedIn)
}

func TestLoginFallsBackToNextBaseURL(t *testing.T) {
	srv := portaltest.NewServer(t, map[string]string{"jonas": "slaptas"})
	cfg := srv.Config().WithBaseURLs(closedURL(), srv.URL)
	adapter, _ := newAdapter(t, cfg, portal.Options{})

	state := session.NewState()
	ok, err := adapter.Login(context.Background(), state, "jonas", "slaptas")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, srv.URL, state.BaseURL)
}

func TestLoginFormActionFollowsRedirect(t *testing.T) {
	srv := portaltest.NewServer(t, map[string]string{"jonas": "slaptas"})
	srv.UseSingleSignOn()
	adapter, _ := newAdapter(t, srv.Config(), portal.Options{})

	state := session.NewState()
	ok, err := adapter.Login(context.Background(), state, "jonas", "slaptas")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, srv.Logins())

	grades, err := adapter.FetchGrades(context.Background(), state)
	require.NoError(t, err)
	require.Len(t, grades, 3)
}

func TestLoginUnreachable(t *testing.T) {
	cfg := portal.Tamo.WithBaseURLs(closedURL(), closedURL())
	adapter, rec := newAdapter(t, cfg, portal.Options{})

	ok, err := adapter.Login(context.Background(), session.NewState(), "jonas", "slaptas")
	require.False(t, ok)
	require.ErrorIs(t, err, portal.ErrPortalUnreachable)
	require.True(t, portal.IsTransport(err))
	require.NotEmpty(t, rec.Find("warning", "adapter.login"))
}

func TestLoginTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(slow.Close)

	adapter, _ := newAdapter(t, portal.Tamo.WithBaseURLs(slow.URL), portal.Options{Timeout: 50 * time.Millisecond})
	_, err := adapter.Login(context.Background(), session.NewState(), "jonas", "slaptas")
	require.ErrorIs(t, err, portal.ErrPortalTimeout)
}

func TestFetchSessionExpired(t *testing.T) {
	srv := portaltest.NewServer(t, map[string]string{"jonas": "slaptas"})
	adapter, _ := newAdapter(t, srv.Config(), portal.Options{})
	ctx := context.Background()

	state := session.NewState()
	ok, err := adapter.Login(ctx, state, "jonas", "slaptas")
	require.NoError(t, err)
	require.True(t, ok)

	srv.ExpireSessions()
	_, err = adapter.FetchGrades(ctx, state)
	require.ErrorIs(t, err, portal.ErrSessionExpired)
	require.False(t, state.LoggedIn)
}

func TestFetchWithoutGrades(t *testing.T) {
	srv := portaltest.NewServer(t, map[string]string{"jonas": "slaptas"})
	srv.SetGrades("<html><body><p>Pažymių nėra</p></body></html>")
	adapter, _ := newAdapter(t, srv.Config(), portal.Options{})
	ctx := context.Background()

	state := session.NewState()
	_, err := adapter.Login(ctx, state, "jonas", "slaptas")
	require.NoError(t, err)

	grades, err := adapter.FetchGrades(ctx, state)
	require.NoError(t, err)
	require.NotNil(t, grades)
	require.Empty(t, grades)
}

func TestMinInterval(t *testing.T) {
	srv := portaltest.NewServer(t, map[string]string{"jonas": "slaptas"})
	adapter, _ := newAdapter(t, srv.Config(), portal.Options{MinInterval: 40 * time.Millisecond})

	start := time.Now()
	// login page, login post, redirect
	_, err := adapter.Login(context.Background(), session.NewState(), "jonas", "slaptas")
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

type fixedSignal struct {
	name string
	vote portal.Vote
}

func (s fixedSignal) Name() string { return s.name }

func (s fixedSignal) Vote(portal.Observation) portal.Vote { return s.vote }

func TestDecide(t *testing.T) {
	cases := []struct {
		name    string
		votes   []portal.Vote
		success bool
	}{
		{name: "no signals", success: false},
		{name: "single positive", votes: []portal.Vote{{Score: 1}}, success: true},
		{name: "cancelled out", votes: []portal.Vote{{Score: 1}, {Score: -1}}, success: false},
		{name: "veto wins", votes: []portal.Vote{{Score: 1}, {Score: 1}, {Veto: true}}, success: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var signals []portal.Signal
			for i, v := range tc.votes {
				signals = append(signals, fixedSignal{name: fmt.Sprint(i), vote: v})
			}
			d := portal.Decide(signals, portal.Observation{})
			require.Equal(t, tc.success, d.Success)
			require.Len(t, d.Votes, len(tc.votes))
		})
	}
}

func TestDefaultSignals(t *testing.T) {
	signals := portal.DefaultSignals(portal.Tamo)

	cases := []struct {
		name    string
		obs     portal.Observation
		success bool
	}{
		{
			name: "redirect to dashboard with session cookie",
			obs: portal.Observation{
				StatusCode: http.StatusFound,
				Location:   "/DienynasUnified/Index",
				NewCookies: []string{".ASPXAUTH"},
				Body:       "<h1>Sveiki</h1><script>console.error('error')</script>",
			},
			success: true,
		},
		{
			name: "redirect back to login",
			obs: portal.Observation{
				StatusCode: http.StatusFound,
				Location:   "https://dienynas.tamo.lt/Prisijungimas/Login?ReturnUrl=%2F",
				NewCookies: []string{"ASP.NET_SessionId"},
			},
			success: false,
		},
		{
			name: "anti-forgery cookie only",
			obs: portal.Observation{
				StatusCode: http.StatusOK,
				NewCookies: []string{"__RequestVerificationToken"},
			},
			success: false,
		},
		{
			name: "failure text vetoes",
			obs: portal.Observation{
				StatusCode: http.StatusFound,
				Location:   "/Pradzia",
				NewCookies: []string{".ASPXAUTH"},
				Body:       "<p>Klaida: bandykite vėliau</p>",
			},
			success: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.success, portal.Decide(signals, tc.obs).Success)
		})
	}
}

func TestLookup(t *testing.T) {
	cfg, err := portal.Lookup(portal.SourceTamo)
	require.NoError(t, err)
	require.Equal(t, "Tamo", cfg.DisplayName)

	_, err = portal.Lookup(portal.SourceSvietimoCentras)
	require.ErrorIs(t, err, portal.ErrDeprecatedSource)
	require.Contains(t, err.Error(), "tamo")

	_, err = portal.Lookup("eduka")
	require.ErrorIs(t, err, portal.ErrUnknownSource)

	deprecated, ok := portal.IsDeprecated(portal.SourceSvietimoCentras)
	require.True(t, ok)
	require.NotEmpty(t, deprecated.Migration)

	require.Equal(t, []string{portal.SourceTamo, portal.SourceManoDienynas}, portal.ActiveSources())
}
