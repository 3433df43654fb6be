package service

import (
	"context"
	"errors"
	"fmt"

	"gradesync-backend/internal/credentials"
	"gradesync-backend/internal/portal"
	"gradesync-backend/internal/portal/session"
)

func (s Service) saveCredentials(ctx context.Context, userID string, req Request) (Response, error) {
	user := s.creds.ForUser(userID)
	err := user.Save(ctx, req.Source, req.Username, req.Password)
	if errors.Is(err, credentials.ErrInvalidUsername) || errors.Is(err, credentials.ErrInvalidPassword) {
		return fail(ReasonInvalidInput, "%s", err.Error()), nil
	}
	if err != nil {
		s.tel.ReportBroken(report_service_credentials, err, req.Source)
		return Response{}, err
	}

	status, err := user.Check(ctx, req.Source)
	if err != nil {
		return Response{}, err
	}
	return Response{
		Success:        true,
		Message:        fmt.Sprintf("credentials for %s saved", req.Source),
		HasCredentials: ptr(true),
		LastUpdated:    ptr(status.UpdatedAt),
	}, nil
}

func (s Service) deleteCredentials(ctx context.Context, userID, source string) (Response, error) {
	deleted, err := s.creds.ForUser(userID).Delete(ctx, source)
	if err != nil {
		s.tel.ReportBroken(report_service_credentials, err, source)
		return Response{}, err
	}
	message := fmt.Sprintf("credentials for %s deleted", source)
	if !deleted {
		message = fmt.Sprintf("no credentials were saved for %s", source)
	}
	return Response{
		Success:        true,
		Message:        message,
		HasCredentials: ptr(false),
	}, nil
}

func (s Service) checkCredentials(ctx context.Context, userID, source string) (Response, error) {
	status, err := s.creds.ForUser(userID).Check(ctx, source)
	if err != nil {
		s.tel.ReportBroken(report_service_credentials, err, source)
		return Response{}, err
	}
	res := Response{
		Success:        true,
		HasCredentials: ptr(status.Exists),
		RequiresSetup:  !status.Exists,
	}
	if status.Exists {
		res.LastUpdated = ptr(status.UpdatedAt)
	}
	return res, nil
}

// testLogin tries the given credentials without saving them.
func (s Service) testLogin(ctx context.Context, req Request) (Response, error) {
	username, err := credentials.SanitizeUsername(req.Username)
	if err != nil {
		return fail(ReasonInvalidInput, "%s", err.Error()), nil
	}
	if err := credentials.ValidatePassword(req.Password); err != nil {
		return fail(ReasonInvalidInput, "%s", err.Error()), nil
	}

	ok, err := s.portals[req.Source].Login(ctx, session.NewState(), username, req.Password)
	if err != nil {
		if portal.IsTransport(err) {
			reason, message := transportFailure(req.Source, err)
			return fail(reason, "%s", message), nil
		}
		return Response{}, err
	}
	if !ok {
		res := fail(ReasonLoginRejected, "%s rejected the username or password", req.Source)
		res.SessionValid = ptr(false)
		return res, nil
	}
	return Response{
		Success:      true,
		Message:      fmt.Sprintf("logged in to %s", req.Source),
		SessionValid: ptr(true),
	}, nil
}
