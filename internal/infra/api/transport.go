package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	domainerrors "portal/internal/domain/errors"
	"portal/internal/domain/service"
	"portal/internal/errors"

	"golang.org/x/sync/singleflight"
)

// expiryErrorCode is the backend's business code for an expired access
// credential. A 401 carrying any other code (or none) is a plain
// authorization failure and must not trigger a refresh.
const expiryErrorCode = "TOKEN_EXPIRED"

// maxSignalBody bounds how much of a 401 body is read to find the expiry
// signal.
const maxSignalBody = 1 << 16

// refreshKey is the singleflight key: all callers share one refresh.
const refreshKey = "refresh"

// authTransport decorates every outgoing request with the stored access
// credential and owns the expired-credential recovery protocol: on a 401 that
// carries the expiry signal it runs a single deduplicated refresh and retries
// the original request exactly once. An unrecoverable 401 clears the store
// and fires the session-expired callback.
type authTransport struct {
	base  http.RoundTripper
	store service.CredentialStore

	// refresh exchanges the stored refresh credential for a new pair. It is
	// performed over a bare client so the interceptor never re-enters itself.
	refresh func(ctx context.Context) error

	// onExpired is invoked at most once per unrecoverable 401, after the
	// store has been cleared.
	onExpired func()

	// cookieMode suppresses the bearer header: the backend cookie carried by
	// the client's jar is the credential.
	cookieMode bool

	group  singleflight.Group
	logger *slog.Logger
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	creds, err := t.store.Credentials(ctx)
	if err != nil {
		// The store contract degrades read failures to absent, so this is
		// unexpected. Send the request unauthenticated rather than fail it.
		t.logger.Warn("Credential store read failed, sending request unauthenticated", slog.Any("error", err))
		creds = nil
	}

	attempt := req
	if creds != nil && !t.cookieMode {
		attempt = cloneWithBearer(req, creds.AccessToken)
	}

	resp, err := t.base.RoundTrip(attempt)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	expired, restoreErr := isExpirySignal(resp)
	if restoreErr != nil {
		return nil, restoreErr
	}
	if !expired {
		// Plain authorization failure (bad password, revoked account). Not
		// ours to handle.
		return resp, nil
	}

	if creds == nil || creds.RefreshToken == "" || !canReplay(req) {
		resp.Body.Close()
		t.failSession(ctx)

		return nil, domainerrors.ErrSessionExpired
	}

	resp.Body.Close()

	if err := t.refreshShared(ctx); err != nil {
		if isTransportFailure(err) {
			// The exchange never completed. Unreachability and cancelled or
			// timed-out requests are not a verdict on the session, so the
			// credentials stay.
			return nil, err
		}
		t.failSession(ctx)

		return nil, domainerrors.ErrSessionExpired
	}

	retry, err := replay(req)
	if err != nil {
		return nil, err
	}

	renewed, err := t.store.Credentials(ctx)
	if err == nil && renewed != nil && !t.cookieMode {
		retry = cloneWithBearer(retry, renewed.AccessToken)
	}

	resp, err = t.base.RoundTrip(retry)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// The renewed credential was rejected too. One retry is the budget.
		resp.Body.Close()
		t.failSession(ctx)

		return nil, domainerrors.ErrSessionExpired
	}

	return resp, nil
}

// refreshShared collapses concurrent refresh attempts into one upstream call.
// Losers of the race share the winner's outcome.
func (t *authTransport) refreshShared(ctx context.Context) error {
	_, err, shared := t.group.Do(refreshKey, func() (any, error) {
		return nil, t.refresh(ctx)
	})
	if shared {
		t.logger.Debug("Credential refresh shared with concurrent request")
	}

	return err
}

func (t *authTransport) failSession(ctx context.Context) {
	if err := t.store.Clear(ctx); err != nil {
		t.logger.Warn("Clearing credentials after session expiry failed", slog.Any("error", err))
	}
	if t.onExpired != nil {
		t.onExpired()
	}
}

// isTransportFailure reports whether a refresh exchange ended without the
// backend ruling on the credential: the backend was unreachable, or the
// caller's context was cancelled or timed out first.
func isTransportFailure(err error) bool {
	return errors.Is(err, domainerrors.ErrUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// isExpirySignal inspects a 401 body for the expiry business code and
// restores the body for downstream readers.
func isExpirySignal(resp *http.Response) (bool, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSignalBody))
	resp.Body.Close()
	if err != nil {
		return false, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	var envelope domainerrors.Response
	if err := json.Unmarshal(body, &envelope); err != nil {
		return false, nil
	}

	return envelope.Error != nil && envelope.Error.Code == expiryErrorCode, nil
}

func canReplay(req *http.Request) bool {
	return req.Body == nil || req.GetBody != nil
}

func replay(req *http.Request) (*http.Request, error) {
	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}

	return retry, nil
}

func cloneWithBearer(req *http.Request, token string) *http.Request {
	// RoundTrippers must not mutate the caller's request.
	cloned := req.Clone(req.Context())
	cloned.Header.Set("Authorization", "Bearer "+token)

	return cloned
}
