package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"portal/config"
	"portal/internal/domain/entity"
	"portal/internal/domain/service"
	"portal/internal/infra/storage"
	"portal/internal/usecase"
)

// fakeGateway is a hand-rolled AuthGateway double. Per-operation function
// hooks allow tests to block or sequence individual calls.
type fakeGateway struct {
	mu sync.Mutex

	signInResult *service.SignInResult
	signInErr    error
	signInFn     func(ctx context.Context, input *service.SignInInput) (*service.SignInResult, error)
	signInCalls  int

	signOutErr   error
	signOutCalls int

	currentUser      *entity.User
	currentUserErr   error
	currentUserFn    func(ctx context.Context) (*entity.User, error)
	currentUserCalls int

	federatedResult *service.FederatedLoginResult
	federatedErr    error
	federatedCalls  int
	lastAssertion   string
	lastProvider    string
	lastRole        string

	signUpErr   error
	signUpCalls int
	lastSignUp  *service.SignUpInput

	recoveryErr   error
	recoveryCalls int
}

func (g *fakeGateway) SignIn(ctx context.Context, input *service.SignInInput) (*service.SignInResult, error) {
	g.mu.Lock()
	g.signInCalls++
	fn := g.signInFn
	result, err := g.signInResult, g.signInErr
	g.mu.Unlock()

	if fn != nil {
		return fn(ctx, input)
	}

	return result, err
}

func (g *fakeGateway) SignUp(_ context.Context, input *service.SignUpInput) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.signUpCalls++
	g.lastSignUp = input

	return g.signUpErr
}

func (g *fakeGateway) SignOut(_ context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.signOutCalls++

	return g.signOutErr
}

func (g *fakeGateway) CurrentUser(ctx context.Context) (*entity.User, error) {
	g.mu.Lock()
	g.currentUserCalls++
	fn := g.currentUserFn
	user, err := g.currentUser, g.currentUserErr
	g.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}

	return user, err
}

func (g *fakeGateway) FederatedLogin(_ context.Context, assertion, provider, role string) (*service.FederatedLoginResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.federatedCalls++
	g.lastAssertion = assertion
	g.lastProvider = provider
	g.lastRole = role

	return g.federatedResult, g.federatedErr
}

func (g *fakeGateway) ForgotPassword(_ context.Context, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.recoveryCalls++

	return g.recoveryErr
}

func (g *fakeGateway) VerifyOTP(_ context.Context, _, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.recoveryCalls++

	return g.recoveryErr
}

func (g *fakeGateway) ResetPassword(_ context.Context, _, _, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.recoveryCalls++

	return g.recoveryErr
}

func (g *fakeGateway) ResendOTP(_ context.Context, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.recoveryCalls++

	return g.recoveryErr
}

func (g *fakeGateway) calls(read func(*fakeGateway) int) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return read(g)
}

// fakeProvider is a hand-rolled IdentityProvider double.
type fakeProvider struct {
	mu           sync.Mutex
	assertion    string
	assertionErr error
	signOutErr   error
	signOutCalls int
}

func (p *fakeProvider) Assertion(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.assertion, p.assertionErr
}

func (p *fakeProvider) SignOut(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signOutCalls++
	p.assertion = ""

	return p.signOutErr
}

func (p *fakeProvider) Provider() string {
	return "google"
}

func (p *fakeProvider) signOuts() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.signOutCalls
}

// fakeNavigator records every forced navigation.
type fakeNavigator struct {
	mu     sync.Mutex
	routes []string
}

func (n *fakeNavigator) Navigate(_ context.Context, route string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, route)
}

func (n *fakeNavigator) recorded() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]string(nil), n.routes...)
}

// fakeBridge is a hand-rolled OAuthBridge double.
type fakeBridge struct {
	mu     sync.Mutex
	result *service.FederatedLoginResult
	err    error
	calls  int
}

func (b *fakeBridge) Exchange(_ context.Context) (*service.FederatedLoginResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++

	return b.result, b.err
}

type controllerFixture struct {
	controller usecase.SessionUsecase
	gateway    *fakeGateway
	store      service.CredentialStore
	provider   *fakeProvider
	bridge     *fakeBridge
	navigator  *fakeNavigator
}

func newControllerFixture(t *testing.T, gateway *fakeGateway) *controllerFixture {
	t.Helper()

	if gateway == nil {
		gateway = &fakeGateway{}
	}

	f := &controllerFixture{
		gateway:   gateway,
		store:     storage.NewMemoryStore(),
		provider:  &fakeProvider{},
		bridge:    &fakeBridge{},
		navigator: &fakeNavigator{},
	}

	cfg := &config.Config{API: &config.APIConfig{BaseURL: "http://localhost"}}

	f.controller = NewSessionController(
		gateway,
		f.store,
		f.provider,
		f.bridge,
		f.navigator,
		cfg,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	return f
}

func (f *controllerFixture) seedCredentials(t *testing.T, access, refresh string) {
	t.Helper()

	if err := f.store.Save(context.Background(), &entity.Credentials{
		AccessToken:  access,
		RefreshToken: refresh,
	}); err != nil {
		t.Fatalf("seed credentials: %v", err)
	}
}

func (f *controllerFixture) storedCredentials(t *testing.T) *entity.Credentials {
	t.Helper()

	creds, err := f.store.Credentials(context.Background())
	if err != nil {
		t.Fatalf("read credentials: %v", err)
	}

	return creds
}

func testUser(id, name string) *entity.User {
	phone := "+886900000000"

	return &entity.User{
		ID:       id,
		Name:     name,
		Email:    name + "@example.com",
		PhoneNo:  &phone,
		Role:     "partner",
		IsActive: true,
		UserType: "partner",
	}
}
