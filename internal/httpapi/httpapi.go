package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"gradesync-backend/internal/components/assert"
	"gradesync-backend/internal/components/telemetry"
	"gradesync-backend/internal/service"

	"github.com/go-chi/chi/v5"
)

const report_httpapi_handle = "httpapi.handle"

// maxBodySize bounds the request body, requests only ever carry a source,
// an action and a credential pair.
const maxBodySize = 64 << 10

// Handler performs one action of the sync endpoint.
type Handler interface {
	Handle(ctx context.Context, userID string, req service.Request) (service.Response, error)
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"internal error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func httpError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// NewRouter serves the grade sync endpoint, every route except /healthz
// requires a bearer token.
func NewRouter(handler Handler, verifier TokenVerifier, tel telemetry.API) http.Handler {
	assert.NotNil(handler)
	assert.NotNil(verifier)
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("httpapi", tel)

	r := chi.NewRouter()
	r.Use(recoverer(tel))
	r.Use(logRequests(tel))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(verifier, tel))
		r.Post("/sync-grades", handleSyncGrades(handler, tel))
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func handleSyncGrades(handler Handler, tel telemetry.API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserID(r.Context())
		if !ok {
			httpError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		var req service.Request
		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req)
		if err != nil {
			writeJSON(w, http.StatusOK, service.Response{
				Reason: service.ReasonInvalidInput,
				Error:  "request body must be a JSON object",
			})
			return
		}

		res, err := handler.Handle(r.Context(), userID, req)
		if err != nil {
			tel.ReportBroken(report_httpapi_handle, err, req.Action, req.Source)
			httpError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
