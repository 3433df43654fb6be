package service

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"gradesync-backend/internal/components/assert"
	"gradesync-backend/internal/components/chrono"
	"gradesync-backend/internal/components/telemetry"
	"gradesync-backend/internal/credentials"
	"gradesync-backend/internal/gradestore"
	"gradesync-backend/internal/portal"
	"gradesync-backend/internal/portal/gradeparse"
	"gradesync-backend/internal/portal/session"
)

const (
	report_service_sync        = "service.sync"
	report_service_credentials = "service.credentials"
	report_service_grades      = "service.grades"
	report_service_panic       = "service.panic"
)

// Portal is the part of a portal adapter the service drives.
//
// note: fault injection point
type Portal interface {
	Login(ctx context.Context, state *session.State, username, password string) (bool, error)
	FetchGrades(ctx context.Context, state *session.State) ([]gradeparse.Grade, error)
}

const (
	ActionSaveCredentials   = "save_credentials"
	ActionDeleteCredentials = "delete_credentials"
	ActionCheckCredentials  = "check_credentials"
	ActionTestLogin         = "test_login"
	ActionSync              = "sync"
	ActionSyncAvailable     = "sync_available"
	ActionSyncAll           = "sync_all"
	ActionGetGrades         = "get_grades"
	ActionGetAllGrades      = "get_all_grades"
)

// Actions lists every valid action in the order they are documented.
var Actions = []string{
	ActionSaveCredentials,
	ActionDeleteCredentials,
	ActionCheckCredentials,
	ActionTestLogin,
	ActionSync,
	ActionGetGrades,
	ActionGetAllGrades,
	ActionSyncAll,
	ActionSyncAvailable,
}

// actions that work across every source and ignore the source field
var crossSource = []string{ActionSyncAvailable, ActionSyncAll, ActionGetAllGrades}

// Reasons are machine readable failure categories for clients.
const (
	ReasonInvalidInput   = "invalid_input"
	ReasonRequiresSetup  = "requires_setup"
	ReasonLoginRejected  = "login_rejected"
	ReasonSessionExpired = "session_expired"
	ReasonTimeout        = "timeout"
	ReasonNetwork        = "network"
	ReasonInternal       = "internal"
)

type Request struct {
	Source   string `json:"source"`
	Action   string `json:"action"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// SourceResult is the outcome of syncing one source.
type SourceResult struct {
	Source        string              `json:"source"`
	Success       bool                `json:"success"`
	Error         string              `json:"error,omitempty"`
	Reason        string              `json:"reason,omitempty"`
	RequiresSetup bool                `json:"requiresSetup,omitempty"`
	SessionValid  *bool               `json:"sessionValid,omitempty"`
	GradesCount   int                 `json:"gradesCount"`
	Grades        []gradestore.Stored `json:"grades,omitempty"`
}

// Response is always returned for business outcomes, Error is set exactly
// when Success is false.
type Response struct {
	Success        bool                `json:"success"`
	Error          string              `json:"error,omitempty"`
	Reason         string              `json:"reason,omitempty"`
	Message        string              `json:"message,omitempty"`
	HasCredentials *bool               `json:"hasCredentials,omitempty"`
	LastUpdated    *time.Time          `json:"lastUpdated,omitempty"`
	RequiresSetup  bool                `json:"requiresSetup,omitempty"`
	SessionValid   *bool               `json:"sessionValid,omitempty"`
	GradesCount    *int                `json:"gradesCount,omitempty"`
	Grades         []gradestore.Stored `json:"grades,omitempty"`
	Results        []SourceResult      `json:"results,omitempty"`
}

func ptr[T any](v T) *T {
	return &v
}

func fail(reason, format string, args ...any) Response {
	return Response{Reason: reason, Error: fmt.Sprintf(format, args...)}
}

// Service routes every action of the sync endpoint.
type Service struct {
	portals map[string]Portal
	sources []string
	creds   *credentials.Store
	grades  *gradestore.Store
	tel     telemetry.API
	time    chrono.TimeAPI
}

func NewService(
	portals map[string]Portal,
	creds *credentials.Store,
	grades *gradestore.Store,
	tel telemetry.API,
	clock chrono.TimeAPI,
) Service {
	assert.NotNil(creds)
	assert.NotNil(grades)
	assert.NotNil(tel)
	assert.NotNil(clock)
	if len(portals) == 0 {
		panic("expected at least one portal")
	}

	return Service{
		portals: portals,
		sources: slices.Sorted(maps.Keys(portals)),
		creds:   creds,
		grades:  grades,
		tel:     telemetry.NewScopedAPI("service", tel),
		time:    clock,
	}
}

// Sources lists the configured sources in a stable order.
func (s Service) Sources() []string {
	return slices.Clone(s.sources)
}

// validate checks a request before anything is read or sent anywhere.
func (s Service) validate(req Request) (Response, bool) {
	if cfg, deprecated := portal.IsDeprecated(req.Source); deprecated {
		return fail(ReasonInvalidInput, "%s", cfg.Migration), false
	}
	if !slices.Contains(Actions, req.Action) {
		return fail(
			ReasonInvalidInput,
			"unknown action %q, valid actions are: %s",
			req.Action, strings.Join(Actions, ", "),
		), false
	}

	_, known := s.portals[req.Source]
	needsSource := !slices.Contains(crossSource, req.Action)
	if (needsSource || req.Source != "") && !known {
		return fail(
			ReasonInvalidInput,
			"unsupported source %q, supported sources are: %s",
			req.Source, strings.Join(s.sources, ", "),
		), false
	}

	switch req.Action {
	case ActionSaveCredentials, ActionTestLogin:
		if req.Username == "" || req.Password == "" {
			return fail(ReasonInvalidInput, "username and password are required"), false
		}
	}
	return Response{}, true
}

// Handle performs one action for userID. Business failures are reported
// through the Response, the error is reserved for internal failures.
func (s Service) Handle(ctx context.Context, userID string, req Request) (Response, error) {
	if res, ok := s.validate(req); !ok {
		return res, nil
	}

	switch req.Action {
	case ActionSaveCredentials:
		return s.saveCredentials(ctx, userID, req)
	case ActionDeleteCredentials:
		return s.deleteCredentials(ctx, userID, req.Source)
	case ActionCheckCredentials:
		return s.checkCredentials(ctx, userID, req.Source)
	case ActionTestLogin:
		return s.testLogin(ctx, req)
	case ActionSync:
		result, err := s.syncSource(ctx, userID, req.Source, s.creds.ForUser(userID).Decrypt)
		if err != nil {
			return Response{}, err
		}
		return result.response(), nil
	case ActionSyncAvailable:
		return s.syncAvailable(ctx, userID)
	case ActionSyncAll:
		return s.syncAll(ctx, userID)
	case ActionGetGrades:
		return s.getGrades(ctx, userID, req.Source)
	case ActionGetAllGrades:
		return s.getAllGrades(ctx, userID)
	}
	return Response{}, fmt.Errorf("action %q passed validation but has no handler", req.Action)
}
