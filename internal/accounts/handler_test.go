package accounts

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-auth/sentinel/internal/authz"
	"github.com/sentinel-auth/sentinel/internal/shared"
)

type stubNotifier struct {
	sent []*User
	err  error
}

func (s *stubNotifier) SendVerification(ctx context.Context, user *User) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, user)
	return nil
}

type denyAllStore struct{}

func (denyAllStore) UserHasPermission(ctx context.Context, userID int64, resource authz.ResourceCode, action authz.Action) (bool, error) {
	return false, nil
}

func (denyAllStore) UserHasRole(ctx context.Context, userID int64, slug authz.RoleSlug) (bool, error) {
	return false, nil
}

type accountsFixture struct {
	repo     *mockUserRepo
	service  *Service
	notifier *stubNotifier
	router   chi.Router
}

func newAccountsFixture(t *testing.T) *accountsFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMockUserRepo()
	service := NewService(repo)
	notifier := &stubNotifier{}
	logger := slog.New(slog.NewTextHandler(nopWriter{}, nil))
	sessions := shared.NewSessionManager(client, "sentinel_session", "test-secret", time.Hour, false)

	guard := authz.Guard{
		Service:  authz.NewService(denyAllStore{}),
		Resolver: &repoResolver{repo: repo},
		Logger:   logger,
	}
	handler := NewHandler(logger, service, sessions, notifier, guard)

	router := chi.NewRouter()
	router.Route("/auth", handler.MountAuthRoutes)
	router.Route("/profile", handler.MountProfileRoutes)
	return &accountsFixture{repo: repo, service: service, notifier: notifier, router: router}
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

type repoResolver struct {
	repo *mockUserRepo
}

func (r *repoResolver) FindPrincipal(ctx context.Context, id int64) (authz.Principal, error) {
	return r.repo.FindByID(ctx, id)
}

func (f *accountsFixture) do(t *testing.T, method, path, body string, sess *shared.Session) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sess != nil {
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	return res
}

func sessionOf(user *User) *shared.Session {
	sess := &shared.Session{ID: "test-session"}
	sess.SetUser(strconv.FormatInt(user.ID, 10))
	return sess
}

func detailOf(t *testing.T, res *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	return body["detail"]
}

func TestRegisterEndpoint(t *testing.T) {
	f := newAccountsFixture(t)

	res := f.do(t, http.MethodPost, "/auth/register",
		`{"email":"user@example.com","username":"tester","password1":"supersecret","password2":"supersecret"}`, nil)
	require.Equal(t, http.StatusCreated, res.Code)
	assert.Equal(t, "Registration successful. Check your email to verify your account.", detailOf(t, res))
	require.Len(t, f.notifier.sent, 1, "registration must trigger a verification email")
	assert.Equal(t, "user@example.com", f.notifier.sent[0].Email)
}

func TestRegisterValidation(t *testing.T) {
	f := newAccountsFixture(t)

	res := f.do(t, http.MethodPost, "/auth/register",
		`{"email":"not-an-email","username":"tester","password1":"supersecret","password2":"supersecret"}`, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = f.do(t, http.MethodPost, "/auth/register",
		`{"email":"user@example.com","username":"tester","password1":"short","password2":"short"}`, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = f.do(t, http.MethodPost, "/auth/register",
		`{"email":"user@example.com","username":"tester","password1":"supersecret","password2":"different11"}`, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "The two password fields didn't match.", detailOf(t, res))

	assert.Empty(t, f.repo.byEmail, "no account may be created from a rejected payload")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAccountsFixture(t)
	payload := `{"email":"user@example.com","username":"tester","password1":"supersecret","password2":"supersecret"}`

	res := f.do(t, http.MethodPost, "/auth/register", payload, nil)
	require.Equal(t, http.StatusCreated, res.Code)

	res = f.do(t, http.MethodPost, "/auth/register", payload, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "A user with that email already exists.", detailOf(t, res))
}

func TestLoginEndpoint(t *testing.T) {
	f := newAccountsFixture(t)
	user := registerVerified(t, f.service, f.repo, "user@example.com", "supersecret")

	sess := &shared.Session{ID: "test-session"}
	res := f.do(t, http.MethodPost, "/auth/login",
		`{"email":"user@example.com","password":"supersecret"}`, sess)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "Login successful.", detailOf(t, res))
	assert.Equal(t, strconv.FormatInt(user.ID, 10), sess.User(), "login binds the user to the session")

	res = f.do(t, http.MethodPost, "/auth/login",
		`{"email":"user@example.com","password":"wrong-password"}`, &shared.Session{ID: "s2"})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Invalid email or password.", detailOf(t, res))
}

func TestLoginUnverifiedResendsVerification(t *testing.T) {
	f := newAccountsFixture(t)
	_, err := f.service.Register(context.Background(), "user@example.com", "tester", "supersecret")
	require.NoError(t, err)

	sess := &shared.Session{ID: "test-session"}
	res := f.do(t, http.MethodPost, "/auth/login",
		`{"email":"user@example.com","password":"supersecret"}`, sess)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Email not verified. A new verification link has been sent.", detailOf(t, res))
	assert.Len(t, f.notifier.sent, 1)
	assert.Empty(t, sess.User(), "a rejected login must not establish a session")
}

func TestProfileRoutesRequireAuthentication(t *testing.T) {
	f := newAccountsFixture(t)

	res := f.do(t, http.MethodGet, "/profile/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "Authentication credentials were not provided.", detailOf(t, res))
}

func TestShowAndUpdateProfile(t *testing.T) {
	f := newAccountsFixture(t)
	user := registerVerified(t, f.service, f.repo, "user@example.com", "supersecret")
	sess := sessionOf(user)

	res := f.do(t, http.MethodGet, "/profile/", "", sess)
	require.Equal(t, http.StatusOK, res.Code)
	var profile profileResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &profile))
	assert.Equal(t, "user@example.com", profile.Email)
	assert.True(t, profile.EmailVerified)

	res = f.do(t, http.MethodPut, "/profile/",
		`{"first_name":"Ada","last_name":"Lovelace","username":"ada"}`, sess)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "Profile updated.", detailOf(t, res))
	assert.Equal(t, "Ada", f.repo.byID[user.ID].FirstName)

	res = f.do(t, http.MethodPut, "/profile/", `{"first_name":"Ada"}`, sess)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "username is required.", detailOf(t, res))
}

func TestDeactivateEndpoint(t *testing.T) {
	f := newAccountsFixture(t)
	user := registerVerified(t, f.service, f.repo, "user@example.com", "supersecret")
	sess := sessionOf(user)

	res := f.do(t, http.MethodPost, "/profile/deactivate", `{"password":"wrong-password"}`, sess)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Incorrect password.", detailOf(t, res))

	res = f.do(t, http.MethodPost, "/profile/deactivate", `{"password":"supersecret"}`, sess)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "Account deactivated.", detailOf(t, res))
	assert.False(t, f.repo.byID[user.ID].IsActive)

	// A deactivated account no longer passes the guard.
	res = f.do(t, http.MethodGet, "/profile/", "", sessionOf(user))
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}
