package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"corisa-backend/internal/config"
	"corisa-backend/internal/engine"
)

func TestTokens_RoundTrip(t *testing.T) {
	tokens := NewTokens(config.AuthConfig{JWTSecret: "secret"})
	if tokens.TTL() != 15*time.Minute {
		t.Fatalf("expected default ttl, got %v", tokens.TTL())
	}
	token, err := tokens.Issue(AdminSubject, AdminRole)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != AdminSubject || !claims.HasRole(AdminRole) {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ID == "" || claims.Issuer != "corisa" {
		t.Fatalf("expected id and issuer, got %+v", claims.RegisteredClaims)
	}
	other := NewTokens(config.AuthConfig{JWTSecret: "other"})
	if _, err := other.Verify(token); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestTokens_RejectsExpiredAndForeign(t *testing.T) {
	tokens := NewTokens(config.AuthConfig{JWTSecret: "secret"})
	sign := func(claims jwt.Claims, method jwt.SigningMethod) string {
		signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte("secret"))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return signed
	}

	expired := sign(Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer: "corisa", Subject: "admin", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}}, jwt.SigningMethodHS256)
	if _, err := tokens.Verify(expired); err == nil {
		t.Fatal("expected error for expired token")
	}

	foreign := sign(Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer: "someone-else", Subject: "admin", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}, jwt.SigningMethodHS256)
	if _, err := tokens.Verify(foreign); err == nil {
		t.Fatal("expected error for foreign issuer")
	}

	hs512 := sign(Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer: "corisa", Subject: "admin", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}, jwt.SigningMethodHS512)
	if _, err := tokens.Verify(hs512); err == nil {
		t.Fatal("expected error for unexpected algorithm")
	}
}

func TestHashPassword(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Fatal("expected error for empty password")
	}
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword("hunter2", hash) || CheckPassword("hunter3", hash) {
		t.Fatal("password check mismatch")
	}
}

func newTestApp(t *testing.T, cfg config.AuthConfig) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{ErrorHandler: engine.ErrorHandler})
	RegisterAuthRoutes(app, NewAuthHandler(cfg))
	app.Get("/api/_admin/ping", Middleware(cfg), func(c *fiber.Ctx) error {
		return c.SendString("pong:" + GetUser(c))
	})
	return app
}

func send(t *testing.T, app *fiber.App, req *http.Request) (int, string) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func login(password string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"password":"`+password+`"}`))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestLoginAndMiddleware(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	app := newTestApp(t, config.AuthConfig{JWTSecret: "secret", AdminPasswordHash: hash})

	status, body := send(t, app, login("wrong"))
	if status != 401 {
		t.Fatalf("expected 401 for wrong password, got %d: %s", status, body)
	}

	status, body = send(t, app, login("hunter2"))
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	start := strings.Index(body, `"access_token":"`) + len(`"access_token":"`)
	token := body[start : start+strings.Index(body[start:], `"`)]

	req := httptest.NewRequest(http.MethodGet, "/api/_admin/ping", nil)
	status, _ = send(t, app, req)
	if status != 401 {
		t.Fatalf("expected 401 without token, got %d", status)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/_admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	status, body = send(t, app, req)
	if status != 200 || body != "pong:admin" {
		t.Fatalf("expected pong:admin, got %d %s", status, body)
	}

	viewer, _ := NewTokens(config.AuthConfig{JWTSecret: "secret"}).Issue("viewer", "viewer")
	req = httptest.NewRequest(http.MethodGet, "/api/_admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+viewer)
	status, _ = send(t, app, req)
	if status != 403 {
		t.Fatalf("expected 403 for non-admin, got %d", status)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/_admin/ping", nil)
	req.Header.Set("Authorization", "Token "+token)
	status, _ = send(t, app, req)
	if status != 401 {
		t.Fatalf("expected 401 for bad scheme, got %d", status)
	}
}

func TestAuthDisabled(t *testing.T) {
	app := newTestApp(t, config.AuthConfig{JWTSecret: "secret"})

	status, body := send(t, app, httptest.NewRequest(http.MethodGet, "/api/_admin/ping", nil))
	if status != 200 || body != "pong:" {
		t.Fatalf("expected open route, got %d %s", status, body)
	}
	status, _ = send(t, app, login("anything"))
	if status != 404 {
		t.Fatalf("expected 404 when auth disabled, got %d", status)
	}
}
