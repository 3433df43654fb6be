package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"gradesync-backend/internal/credentials"
	"gradesync-backend/internal/gradestore"
	"gradesync-backend/internal/portal"
	"gradesync-backend/internal/portal/session"
)

type decryptFunc func(ctx context.Context, source string) (credentials.Secret, error)

func transportFailure(source string, err error) (reason, message string) {
	if errors.Is(err, portal.ErrPortalTimeout) {
		return ReasonTimeout, fmt.Sprintf("%s did not respond in time, try again later", source)
	}
	return ReasonNetwork, fmt.Sprintf("could not reach %s, try again later", source)
}

func (r SourceResult) response() Response {
	res := Response{
		Success:       r.Success,
		Error:         r.Error,
		Reason:        r.Reason,
		RequiresSetup: r.RequiresSetup,
		SessionValid:  r.SessionValid,
		Grades:        r.Grades,
	}
	if r.Success {
		res.GradesCount = ptr(r.GradesCount)
		res.Message = fmt.Sprintf("synced %d grades from %s", r.GradesCount, r.Source)
	}
	return res
}

// syncSource logs in with the saved credentials, fetches grades and
// persists them. Nothing touches the network when no credentials are
// saved. The error is reserved for internal failures.
func (s Service) syncSource(ctx context.Context, userID, source string, decrypt decryptFunc) (SourceResult, error) {
	result := SourceResult{Source: source}

	secret, err := decrypt(ctx, source)
	if errors.Is(err, credentials.ErrNotFound) {
		result.RequiresSetup = true
		result.Reason = ReasonRequiresSetup
		result.Error = fmt.Sprintf("no credentials saved for %s", source)
		return result, nil
	}
	if err != nil {
		s.tel.ReportBroken(report_service_sync, err, userID, source)
		return SourceResult{}, err
	}

	adapter := s.portals[source]
	state := session.NewState()

	ok, err := adapter.Login(ctx, state, secret.Username, secret.Password)
	if err != nil {
		if !portal.IsTransport(err) {
			s.tel.ReportBroken(report_service_sync, err, userID, source)
			return SourceResult{}, err
		}
		s.tel.ReportWarning(report_service_sync, err, userID, source)
		result.Reason, result.Error = transportFailure(source, err)
		return result, nil
	}
	if !ok {
		result.SessionValid = ptr(false)
		result.Reason = ReasonLoginRejected
		result.Error = fmt.Sprintf("%s rejected the saved credentials, update them and try again", source)
		return result, nil
	}

	grades, err := adapter.FetchGrades(ctx, state)
	switch {
	case errors.Is(err, portal.ErrSessionExpired):
		result.SessionValid = ptr(false)
		result.Reason = ReasonSessionExpired
		result.Error = fmt.Sprintf("the %s session expired while fetching grades, try again", source)
		return result, nil
	case portal.IsTransport(err):
		s.tel.ReportWarning(report_service_sync, err, userID, source)
		result.Reason, result.Error = transportFailure(source, err)
		return result, nil
	case err != nil:
		s.tel.ReportBroken(report_service_sync, err, userID, source)
		return SourceResult{}, err
	}

	err = s.grades.Save(ctx, userID, source, grades)
	if err != nil {
		return SourceResult{}, err
	}

	syncedAt := s.time.Now()
	stored := make([]gradestore.Stored, len(grades))
	for i, g := range grades {
		stored[i] = gradestore.Stored{Source: source, Grade: g, SyncedAt: syncedAt}
	}

	result.Success = true
	result.SessionValid = ptr(true)
	result.GradesCount = len(grades)
	result.Grades = stored
	return result, nil
}

// SyncAs syncs source for userID reading credentials through the service
// path of the credential store, it is meant for background jobs.
func (s Service) SyncAs(ctx context.Context, userID, source string) (SourceResult, error) {
	if _, ok := s.portals[source]; !ok {
		return SourceResult{
			Source: source,
			Reason: ReasonInvalidInput,
			Error:  fmt.Sprintf("unsupported source %q", source),
		}, nil
	}
	store := s.creds.Service()
	return s.syncSource(ctx, userID, source, func(ctx context.Context, source string) (credentials.Secret, error) {
		return store.Decrypt(ctx, userID, source)
	})
}

// syncIsolated turns internal failures and panics into a failed result so
// one source can never take down the others.
func (s Service) syncIsolated(ctx context.Context, userID, source string) (result SourceResult) {
	defer func() {
		if r := recover(); r != nil {
			s.tel.ReportBroken(report_service_panic, r, userID, source, string(debug.Stack()))
			result = SourceResult{Source: source, Reason: ReasonInternal, Error: "internal error"}
		}
	}()

	result, err := s.syncSource(ctx, userID, source, s.creds.ForUser(userID).Decrypt)
	if err != nil {
		return SourceResult{Source: source, Reason: ReasonInternal, Error: "internal error"}
	}
	return result
}

func aggregate(results []SourceResult) Response {
	res := Response{Results: results}

	succeeded, needSetup, count := 0, 0, 0
	for _, r := range results {
		if r.Success {
			succeeded++
			count += r.GradesCount
		}
		if r.RequiresSetup {
			needSetup++
		}
	}

	switch {
	case succeeded > 0:
		res.Success = true
		res.GradesCount = ptr(count)
		res.Message = fmt.Sprintf("synced %d of %d sources", succeeded, len(results))
	case needSetup == len(results):
		res.RequiresSetup = true
		res.Reason = ReasonRequiresSetup
		res.Error = "no credentials saved for any source"
	default:
		res.Error = "no source could be synced"
	}
	return res
}

// syncAvailable syncs every source the user saved credentials for.
func (s Service) syncAvailable(ctx context.Context, userID string) (Response, error) {
	saved, err := s.creds.ForUser(userID).Sources(ctx)
	if err != nil {
		s.tel.ReportBroken(report_service_credentials, err, userID)
		return Response{}, err
	}

	var results []SourceResult
	for _, status := range saved {
		if _, ok := s.portals[status.Source]; !ok {
			continue
		}
		results = append(results, s.syncIsolated(ctx, userID, status.Source))
	}
	if len(results) == 0 {
		res := fail(ReasonRequiresSetup, "no credentials saved for any source")
		res.RequiresSetup = true
		return res, nil
	}
	return aggregate(results), nil
}

// syncAll walks every configured source, the ones without credentials are
// reported as requiring setup.
func (s Service) syncAll(ctx context.Context, userID string) (Response, error) {
	results := make([]SourceResult, 0, len(s.sources))
	for _, source := range s.sources {
		results = append(results, s.syncIsolated(ctx, userID, source))
	}
	return aggregate(results), nil
}
