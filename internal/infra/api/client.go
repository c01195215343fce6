// Package api implements the marketplace backend gateway over HTTP, including
// the credential-attaching transport and the refresh protocol.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"portal/config"
	deliverycontext "portal/internal/delivery/context"
	"portal/internal/domain/entity"
	domainerrors "portal/internal/domain/errors"
	"portal/internal/domain/service"
	"portal/internal/errors"

	"github.com/google/uuid"
)

// Backend endpoints.
const (
	pathSignIn         = "/auth/login"
	pathSignUp         = "/auth/register"
	pathSignOut        = "/auth/logout"
	pathRefresh        = "/auth/refresh"
	pathFederatedLogin = "/auth/federated-login"
	pathForgotPassword = "/auth/forgot-password"
	pathVerifyOTP      = "/auth/verify-otp"
	pathResetPassword  = "/auth/reset-password"
	pathResendOTP      = "/auth/resend-otp"
	pathCurrentUser    = "/users/me"
)

// Client talks to the marketplace backend. All authenticated calls go through
// the intercepted HTTP client; the refresh exchange uses a bare client so it
// can never recurse into the interceptor.
type Client struct {
	baseURL    *url.URL
	http       *http.Client
	bare       *http.Client
	store      service.CredentialStore
	transport  *authTransport
	cookieMode bool
	logger     *slog.Logger
}

var _ service.AuthGateway = (*Client)(nil)

// NewClient is the constructor for Client.
func NewClient(cfg *config.Config, store service.CredentialStore, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(cfg.API.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse api base url")
	}

	client := &Client{
		baseURL:    base,
		store:      store,
		cookieMode: cfg.API.CookieSession,
		logger:     logger,
	}

	transport := &authTransport{
		base:       http.DefaultTransport,
		store:      store,
		refresh:    client.refreshCredentials,
		cookieMode: cfg.API.CookieSession,
		logger:     logger,
	}
	client.transport = transport

	client.http = &http.Client{
		Transport: transport,
		Timeout:   cfg.API.Timeout,
	}
	client.bare = &http.Client{
		Timeout: cfg.API.Timeout,
	}

	if cfg.API.CookieSession {
		// In cookie mode the backend cookie is the credential, shared by both
		// clients so the refresh exchange sees it too.
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, errors.Wrap(err, "create cookie jar")
		}
		client.http.Jar = jar
		client.bare.Jar = jar
	}

	return client, nil
}

// OnSessionExpired registers the callback fired when a session becomes
// unrecoverable. Must be called before the client serves requests.
func (c *Client) OnSessionExpired(fn func()) {
	c.transport.onExpired = fn
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	User         *entity.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// SignIn exchanges email and password for a user and a credential pair.
func (c *Client) SignIn(ctx context.Context, input *service.SignInInput) (*service.SignInResult, error) {
	var payload signInResponse
	if err := c.do(ctx, c.http, http.MethodPost, pathSignIn, signInRequest{
		Email:    input.Email,
		Password: input.Password,
	}, &payload); err != nil {
		return nil, err
	}

	result := &service.SignInResult{User: payload.User}
	if !c.cookieMode {
		result.Credentials = &entity.Credentials{
			AccessToken:  payload.AccessToken,
			RefreshToken: payload.RefreshToken,
		}
	}

	return result, nil
}

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhoneNo  string `json:"phoneNo"`
	Password string `json:"password"`
}

func (c *Client) SignUp(ctx context.Context, input *service.SignUpInput) error {
	return c.do(ctx, c.http, http.MethodPost, pathSignUp, signUpRequest{
		Name:     input.Name,
		Email:    input.Email,
		PhoneNo:  input.Phone,
		Password: input.Password,
	}, nil)
}

func (c *Client) SignOut(ctx context.Context) error {
	return c.do(ctx, c.http, http.MethodPost, pathSignOut, nil, nil)
}

func (c *Client) CurrentUser(ctx context.Context) (*entity.User, error) {
	var user entity.User
	if err := c.do(ctx, c.http, http.MethodGet, pathCurrentUser, nil, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

type federatedLoginRequest struct {
	Assertion string `json:"assertion"`
	Provider  string `json:"provider"`
	Role      string `json:"role"`
}

type federatedLoginResponse struct {
	NeedsPhone   bool         `json:"needsPhone"`
	Partner      *entity.User `json:"partner"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// FederatedLogin exchanges an external identity assertion for a first-party
// session. The backend treats repeated submissions of the same assertion as
// conflicts, so callers must submit each assertion at most once.
func (c *Client) FederatedLogin(ctx context.Context, assertion, provider, role string) (*service.FederatedLoginResult, error) {
	var payload federatedLoginResponse
	if err := c.do(ctx, c.http, http.MethodPost, pathFederatedLogin, federatedLoginRequest{
		Assertion: assertion,
		Provider:  provider,
		Role:      role,
	}, &payload); err != nil {
		return nil, err
	}

	result := &service.FederatedLoginResult{
		NeedsPhone: payload.NeedsPhone,
		Partner:    payload.Partner,
	}
	if !c.cookieMode && payload.AccessToken != "" {
		result.Credentials = &entity.Credentials{
			AccessToken:  payload.AccessToken,
			RefreshToken: payload.RefreshToken,
		}
	}

	return result, nil
}

type emailRequest struct {
	Email string `json:"email"`
}

type otpRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type resetPasswordRequest struct {
	Email    string `json:"email"`
	OTP      string `json:"otp"`
	Password string `json:"password"`
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, c.http, http.MethodPost, pathForgotPassword, emailRequest{Email: email}, nil)
}

func (c *Client) VerifyOTP(ctx context.Context, email, code string) error {
	return c.do(ctx, c.http, http.MethodPost, pathVerifyOTP, otpRequest{Email: email, OTP: code}, nil)
}

func (c *Client) ResetPassword(ctx context.Context, email, code, password string) error {
	return c.do(ctx, c.http, http.MethodPost, pathResetPassword, resetPasswordRequest{
		Email:    email,
		OTP:      code,
		Password: password,
	}, nil)
}

func (c *Client) ResendOTP(ctx context.Context, email string) error {
	return c.do(ctx, c.http, http.MethodPost, pathResendOTP, emailRequest{Email: email}, nil)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// refreshCredentials exchanges the stored refresh credential for a fresh pair
// and persists it. Called by the transport under singleflight.
func (c *Client) refreshCredentials(ctx context.Context) error {
	creds, err := c.store.Credentials(ctx)
	if err != nil {
		return errors.Wrap(err, "read stored credentials")
	}
	if creds == nil || creds.RefreshToken == "" {
		return domainerrors.ErrRefreshFailed
	}

	var payload refreshResponse
	if err := c.do(ctx, c.bare, http.MethodPost, pathRefresh, refreshRequest{
		RefreshToken: creds.RefreshToken,
	}, &payload); err != nil {
		if isTransportFailure(err) {
			// The exchange never completed, so nothing was decided about the
			// refresh credential.
			return err
		}

		return domainerrors.ErrRefreshFailed
	}

	if payload.AccessToken == "" {
		return domainerrors.ErrRefreshFailed
	}

	renewed := &entity.Credentials{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
	}
	if renewed.RefreshToken == "" {
		// Backend rotated only the access credential.
		renewed.RefreshToken = creds.RefreshToken
	}

	if err := c.store.Save(ctx, renewed); err != nil {
		return errors.Wrap(err, "persist renewed credentials")
	}

	c.logger.Debug("Credential pair renewed")

	return nil
}

// do executes one JSON round trip against the backend and decodes the
// response envelope into out.
func (c *Client) do(ctx context.Context, client *http.Client, method, path string, in, out any) error {
	endpoint := c.baseURL.JoinPath(path)

	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "encode %s request", path)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return errors.Wrapf(err, "build %s request", path)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Propagate the request ID so backend logs correlate with ours.
	requestID := deliverycontext.GetRequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	req.Header.Set(deliverycontext.HeaderXRequestID, requestID)

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, domainerrors.ErrSessionExpired) {
			return domainerrors.ErrSessionExpired
		}
		if ctx.Err() != nil {
			return errors.Wrapf(ctx.Err(), "%s %s", method, path)
		}

		c.logger.Warn("Backend request failed", slog.String("path", path), slog.Any("error", err))

		return domainerrors.ErrUnavailable
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domainerrors.ErrUnavailable
	}

	var envelope struct {
		domainerrors.Response
		Data json.RawMessage `json:"data"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &envelope); err != nil {
			if resp.StatusCode >= http.StatusBadRequest {
				return c.mapError(resp.StatusCode, nil)
			}

			return errors.Wrapf(err, "decode %s response", path)
		}
	}

	if resp.StatusCode >= http.StatusBadRequest || (len(raw) > 0 && !envelope.Success) {
		return c.mapError(resp.StatusCode, &envelope.Response)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return errors.Wrapf(err, "decode %s payload", path)
		}
	}

	return nil
}

// mapError converts a backend failure envelope into a typed domain error,
// carrying the backend's message verbatim when one is present.
func (c *Client) mapError(status int, envelope *domainerrors.Response) error {
	base := baseForStatus(status)

	if envelope != nil && envelope.Error != nil {
		if byCode, ok := errorsByCode[envelope.Error.Code]; ok {
			base = byCode
		}
	}

	if envelope != nil && envelope.Message != "" {
		return base.WithMessage(envelope.Message)
	}

	return base
}

var errorsByCode = map[string]*domainerrors.BaseError{
	"INVALID_CREDENTIALS": domainerrors.ErrInvalidCredentials,
	"TOKEN_EXPIRED":       domainerrors.ErrSessionExpired,
	"SESSION_EXPIRED":     domainerrors.ErrSessionExpired,
	"NOT_AUTHENTICATED":   domainerrors.ErrNotAuthenticated,
	"VALIDATION_FAILED":   domainerrors.ErrValidationFailed,
	"OAUTH_FAILED":        domainerrors.ErrOAuthFailed,
}

func baseForStatus(status int) *domainerrors.BaseError {
	switch status {
	case http.StatusUnauthorized:
		return domainerrors.ErrNotAuthenticated
	case http.StatusForbidden:
		return domainerrors.ErrForbidden
	case http.StatusNotFound:
		return domainerrors.ErrNotFound
	case http.StatusConflict:
		return domainerrors.ErrConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domainerrors.ErrValidationFailed
	default:
		if status >= http.StatusInternalServerError {
			return domainerrors.ErrUnavailable
		}

		return domainerrors.ErrInternalError
	}
}
