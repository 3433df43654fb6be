package httpapi

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"gradesync-backend/internal/components/telemetry"
	"gradesync-backend/internal/identity"
)

const (
	report_httpapi_auth  = "httpapi.auth"
	report_httpapi_panic = "httpapi.panic"
)

// TokenVerifier resolves a bearer token to the id of its user.
//
// note: fault injection point
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

type userIDKeyType int

var userIDKey userIDKeyType

// UserID returns the user authenticated by bearerAuth.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func bearerAuth(verifier TokenVerifier, tel telemetry.API) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) || strings.TrimSpace(auth[len(prefix):]) == "" {
				httpError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			userID, err := verifier.VerifyToken(r.Context(), strings.TrimSpace(auth[len(prefix):]))
			if errors.Is(err, identity.ErrInvalidToken) {
				httpError(w, http.StatusUnauthorized, "invalid bearer token")
				return
			}
			if err != nil {
				tel.ReportBroken(report_httpapi_auth, err)
				httpError(w, http.StatusInternalServerError, "internal error")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

func logRequests(tel telemetry.API) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			tel.ReportDebug(
				"http request",
				r.Method, r.URL.Path, sw.status,
				time.Since(start).Round(time.Microsecond).String(),
			)
		})
	}
}

// recoverer turns a panicking handler into a 500 with a JSON body.
func recoverer(tel telemetry.API) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					tel.ReportBroken(report_httpapi_panic, v, r.URL.Path, string(debug.Stack()))
					httpError(w, http.StatusInternalServerError, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
