// Package portaltest serves a fake portal modeled after the Tamo markup for
// tests of everything sitting on top of the portal adapter.
package portaltest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"gradesync-backend/internal/portal"
)

const (
	token      = "tok-7f3a"
	csrfCookie = "__RequestVerificationToken_Lw__"
	authCookie = ".ASPXAUTH"
)

const loginPage = `<html><body>
<form action="%s" method="post">
	<input type="hidden" name="__RequestVerificationToken" value="%s">
	<input type="hidden" name="ReturnUrl" value="">
	<input type="text" name="UserName">
	<input type="password" name="Password">
	%s
</form>
</body></html>`

const GradesPage = `<html><body>
<table>
	<thead><tr><th>Dalykas</th><th>Pažymiai</th><th>Mokytojas</th></tr></thead>
	<tbody>
		<tr><td>Matematika</td><td>9 10</td><td>J. Jonaitis</td></tr>
		<tr><td>Fizika</td><td>7</td><td>P. Petraitė</td></tr>
	</tbody>
</table>
</body></html>`

const SchedulePage = `<html><body>
<table>
	<tr><td colspan="3">Pirmadienis</td></tr>
	<tr><td>8:00-8:45</td><td>Matematika</td><td>Kab. 12</td></tr>
</table>
</body></html>`

const HomeworkPage = `<html><body>
<table>
	<thead><tr><th>Dalykas</th><th>Užduotis</th><th>Atlikti iki</th></tr></thead>
	<tbody><tr><td>Fizika</td><td>Išspręsti 5 uždavinius</td><td>2024-10-08</td></tr></tbody>
</table>
</body></html>`

// Server is a fake portal. Its handlers follow the paths of portal.Tamo.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	accounts map[string]string
	sessions map[string]string
	logins   int
	grades   string
	sso      bool
}

// NewServer starts a fake portal accepting the given username to password
// pairs, it is closed when the test ends.
func NewServer(t testing.TB, accounts map[string]string) *Server {
	s := &Server{
		accounts: accounts,
		sessions: map[string]string{},
		grades:   GradesPage,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /Prisijungimas/Login", s.loginPage)
	mux.HandleFunc("POST /Prisijungimas/Login", s.login)
	mux.HandleFunc("GET /sso/Prisijungimas", s.ssoPage)
	mux.HandleFunc("POST /sso/Patvirtinti", s.login)
	mux.HandleFunc("GET /Pradzia", s.authed(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html><body><h1>Sveiki sugrįžę</h1></body></html>")
	}))
	mux.HandleFunc("GET /Pazymiai", s.authed(func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		fmt.Fprint(w, s.grades)
	}))
	mux.HandleFunc("GET /Tvarkarastis", s.authed(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, SchedulePage)
	}))
	mux.HandleFunc("GET /NamuDarbai", s.authed(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, HomeworkPage)
	}))

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Config is portal.Tamo pointed at the fake portal.
func (s *Server) Config() portal.Config {
	return portal.Tamo.WithBaseURLs(s.URL)
}

// SetGrades replaces the markup of the grades page.
func (s *Server) SetGrades(html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grades = html
}

// ExpireSessions forgets every logged in session.
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = map[string]string{}
}

// UseSingleSignOn makes the login page redirect to a form under /sso whose
// action is relative to that page.
func (s *Server) UseSingleSignOn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sso = true
}

// Logins is the number of login attempts received.
func (s *Server) Logins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sso := s.sso
	s.mu.Unlock()
	if sso {
		http.Redirect(w, r, "/sso/Prisijungimas", http.StatusFound)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: csrfCookie, Value: "csrf-cookie", Path: "/"})
	fmt.Fprintf(w, loginPage, "/Prisijungimas/Login", token, "")
}

func (s *Server) ssoPage(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: csrfCookie, Value: "csrf-cookie", Path: "/"})
	fmt.Fprintf(w, loginPage, "Patvirtinti", token, "")
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.logins++
	s.mu.Unlock()

	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	csrf, err := r.Cookie(csrfCookie)
	if err != nil || csrf.Value != "csrf-cookie" || r.PostForm.Get("__RequestVerificationToken") != token {
		http.Error(w, "bad anti-forgery token", http.StatusBadRequest)
		return
	}

	username := r.PostForm.Get("UserName")
	password := r.PostForm.Get("Password")
	s.mu.Lock()
	expected, ok := s.accounts[username]
	s.mu.Unlock()
	if !ok || expected != password {
		http.SetCookie(w, &http.Cookie{Name: csrfCookie, Value: "csrf-cookie", Path: "/"})
		fmt.Fprintf(w, loginPage, "/Prisijungimas/Login", token, `<p class="validation">Neteisingas prisijungimo vardas arba slaptažodis</p>`)
		return
	}

	value := fmt.Sprintf("auth-%s", username)
	s.mu.Lock()
	s.sessions[value] = username
	s.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: authCookie, Value: value, Path: "/"})
	http.Redirect(w, r, "/Pradzia", http.StatusFound)
}

func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(authCookie)
		s.mu.Lock()
		_, ok := s.sessions[cookieValue(cookie, err)]
		s.mu.Unlock()
		if !ok {
			http.Redirect(w, r, "/Prisijungimas/Login?ReturnUrl=%2F", http.StatusFound)
			return
		}
		next(w, r)
	}
}

func cookieValue(cookie *http.Cookie, err error) string {
	if err != nil {
		return ""
	}
	return cookie.Value
}
