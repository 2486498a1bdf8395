package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/salonbook/salonbook/libs/auth"
	"github.com/salonbook/salonbook/libs/outbox"
	"github.com/salonbook/salonbook/services/auth-service/internal/otp"
	"github.com/salonbook/salonbook/services/auth-service/internal/sessions"
	"github.com/salonbook/salonbook/services/auth-service/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

type recordingSMS struct {
	mu   sync.Mutex
	sent map[string]string
	err  error
}

func (s *recordingSMS) Send(_ context.Context, to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.sent == nil {
		s.sent = map[string]string{}
	}
	s.sent[to] = body
	return nil
}

func (s *recordingSMS) ProviderID() string { return "test" }

type testEnv struct {
	router http.Handler
	mock   pgxmock.PgxPoolIface
	signer auth.Signer
	sms    *recordingSMS
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	signer := auth.NewHS256Signer("test-secret")
	smsSender := &recordingSMS{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewAuthHandler(signer, storage.NewRepository(mock), sessions.NewRefreshRepository(mock), outbox.NewRepository(),
		otp.NewStore(rdb, otp.Config{}), smsSender, logger, Config{BcryptCost: bcrypt.MinCost})

	r := chi.NewRouter()
	h.Routes(r)
	return testEnv{router: r, mock: mock, signer: signer, sms: smsSender}
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return rec
}

func TestRegisterCreatesTenantAndOwner(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery("INSERT INTO tenants").WithArgs("Salon A").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("t-1"))
	env.mock.ExpectQuery("INSERT INTO users").WithArgs("t-1", "owner@example.com", pgxmock.AnyArg(), "owner").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("u-1"))
	env.mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs("tenant", "t-1", "t-1", "auth.tenant.registered.v1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	env.mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs(pgxmock.AnyArg(), "u-1", "t-1", "owner", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	env.mock.ExpectCommit()

	rec := post(t, env.router, "/api/v1/auth/register", `{"business_name":"Salon A","email":"Owner@Example.com","password":"correct-horse"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var tokens tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &tokens); err != nil {
		t.Fatalf("decode: %v", err)
	}
	claims, err := env.signer.Verify(tokens.AccessToken)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.TenantID != "t-1" || claims.Role != "owner" || claims.Subject != "u-1" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if tokens.RefreshToken == "" {
		t.Fatal("expected refresh token")
	}
	if err := env.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery("INSERT INTO tenants").WithArgs("Salon A").WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("t-1"))
	env.mock.ExpectQuery("INSERT INTO users").WithArgs("t-1", "owner@example.com", pgxmock.AnyArg(), "owner").WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
	env.mock.ExpectRollback()

	rec := post(t, env.router, "/api/v1/auth/register", `{"business_name":"Salon A","email":"owner@example.com","password":"correct-horse"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if err := env.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRegisterValidates(t *testing.T) {
	env := newTestEnv(t)

	rec := post(t, env.router, "/api/v1/auth/register", `{"business_name":"Salon A","email":"not-an-email","password":"correct-horse"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)

	env.mock.ExpectQuery("FROM users").WithArgs("owner@example.com").WillReturnRows(
		pgxmock.NewRows([]string{"id", "tenant_id", "email", "password_hash", "role"}).
			AddRow("u-1", "t-1", "owner@example.com", string(hash), "owner"),
	)

	rec := post(t, env.router, "/api/v1/auth/login", `{"email":"owner@example.com","password":"battery-staple"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestLoginUnknownUserIsUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	env.mock.ExpectQuery("FROM users").WithArgs("nobody@example.com").WillReturnRows(
		pgxmock.NewRows([]string{"id", "tenant_id", "email", "password_hash", "role"}),
	)

	rec := post(t, env.router, "/api/v1/auth/login", `{"email":"nobody@example.com","password":"whatever1"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRefreshRejectsRevokedToken(t *testing.T) {
	env := newTestEnv(t)
	revoked := time.Now().Add(-time.Minute)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery("FROM refresh_tokens").WithArgs(sessions.HashToken("raw-token")).WillReturnRows(
		pgxmock.NewRows([]string{"id", "subject", "tenant_id", "role", "customer_id", "expires_at", "revoked_at"}).
			AddRow("r-1", "u-1", "t-1", "owner", (*string)(nil), time.Now().Add(time.Hour), &revoked),
	)
	env.mock.ExpectRollback()

	rec := post(t, env.router, "/api/v1/auth/refresh", `{"refresh_token":"raw-token"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	token, err := env.signer.Sign(auth.NewClaims("c-1", "t-1", "customer", "c-1", time.Now(), time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var me meResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &me)
	if me.CustomerID != "c-1" || me.Role != "customer" {
		t.Fatalf("unexpected me %+v", me)
	}
}

func TestJWKSEmptyForHS256(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"keys":[]`) {
		t.Fatalf("unexpected jwks response %d %s", rec.Code, rec.Body.String())
	}
}

func TestOTPFlowIssuesCustomerToken(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectQuery("FROM tenants").WithArgs("t-1").WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	rec := post(t, env.router, "/api/v1/auth/otp/request", `{"tenant_id":"t-1","phone":"0532 123 45 67"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	body := env.sms.sent["+905321234567"]
	if !strings.HasPrefix(body, "Your SalonBook code is ") {
		t.Fatalf("expected sms to normalized number, got %v", env.sms.sent)
	}
	code := strings.TrimPrefix(body, "Your SalonBook code is ")

	env.mock.ExpectQuery("INSERT INTO customers").WithArgs("t-1", "+905321234567").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("c-1"))
	env.mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs(pgxmock.AnyArg(), "c-1", "t-1", "customer", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec = post(t, env.router, "/api/v1/auth/otp/verify", `{"tenant_id":"t-1","phone":"+90 532 123 45 67","code":"`+code+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var tokens tokenResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &tokens)
	claims, err := env.signer.Verify(tokens.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Role != "customer" || claims.CustomerID != "c-1" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if err := env.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOTPUnknownTenant(t *testing.T) {
	env := newTestEnv(t)
	env.mock.ExpectQuery("FROM tenants").WithArgs("t-9").WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	rec := post(t, env.router, "/api/v1/auth/otp/request", `{"tenant_id":"t-9","phone":"05321234567"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestOTPWrongCode(t *testing.T) {
	env := newTestEnv(t)

	rec := post(t, env.router, "/api/v1/auth/otp/verify", `{"tenant_id":"t-1","phone":"05321234567","code":"000000"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestOTPFailedSendCanBeRetried(t *testing.T) {
	env := newTestEnv(t)
	env.sms.err = errors.New("provider down")

	env.mock.ExpectQuery("FROM tenants").WithArgs("t-1").WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	rec := post(t, env.router, "/api/v1/auth/otp/request", `{"tenant_id":"t-1","phone":"05321234567"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", rec.Code, rec.Body.String())
	}

	env.sms.mu.Lock()
	env.sms.err = nil
	env.sms.mu.Unlock()
	env.mock.ExpectQuery("FROM tenants").WithArgs("t-1").WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	rec = post(t, env.router, "/api/v1/auth/otp/request", `{"tenant_id":"t-1","phone":"05321234567"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected retry to be accepted, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := env.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
