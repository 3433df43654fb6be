package portal

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	ErrUnknownSource     = errors.New("unknown source")
	ErrDeprecatedSource  = errors.New("deprecated source")
	ErrNotLoggedIn       = errors.New("session is not logged in")
	ErrSessionExpired    = errors.New("portal session expired")
	ErrPortalTimeout     = errors.New("portal request timed out")
	ErrPortalUnreachable = errors.New("portal unreachable")
)

// classifyTransport wraps a transport level error as either ErrPortalTimeout
// or ErrPortalUnreachable.
func classifyTransport(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", ErrPortalTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrPortalUnreachable, err)
}

// IsTransport reports whether err is a timeout or connectivity failure
// rather than a decision made by the portal.
func IsTransport(err error) bool {
	return errors.Is(err, ErrPortalTimeout) || errors.Is(err, ErrPortalUnreachable)
}
