package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

const (
	testKeyID  = "test-key-cb"
	testIssuer = "https://clerk.cloudbox.test"
	testOrigin = "https://app.cloudbox.test"
)

func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

// buildJWKSetJSON строит JWKS JSON из RSA публичного ключа.
func buildJWKSetJSON(pub *rsa.PublicKey, kid string) json.RawMessage {
	jwks := map[string]any{
		"keys": []map[string]any{
			{
				"kty": "RSA",
				"kid": kid,
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			},
		},
	}
	data, _ := json.Marshal(jwks)
	return data
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAuthConfig() JWTAuthConfig {
	return JWTAuthConfig{
		Issuer:            testIssuer,
		AuthorizedParties: []string{testOrigin},
		SessionCookie:     "__session",
		Leeway:            5 * time.Second,
	}
}

func newTestJWTAuth(t *testing.T, key *rsa.PrivateKey, cfg JWTAuthConfig) *JWTAuth {
	t.Helper()
	kf, err := keyfunc.NewJWKSetJSON(buildJWKSetJSON(&key.PublicKey, testKeyID))
	if err != nil {
		t.Fatalf("не удалось создать keyfunc: %v", err)
	}
	return NewJWTAuthWithKeyfunc(kf, cfg, testLogger())
}

// signToken подписывает claims ключом key; базовые claims можно переопределить.
func signToken(t *testing.T, key *rsa.PrivateKey, override jwt.MapClaims) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   "user_2abc",
		"sid":   "sess_1",
		"azp":   testOrigin,
		"email": "user@cloudbox.test",
		"iss":   testIssuer,
		"exp":   jwt.NewNumericDate(time.Now().Add(time.Hour)),
		"nbf":   jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		"iat":   jwt.NewNumericDate(time.Now()),
	}
	for k, v := range override {
		if v == nil {
			delete(claims, k)
			continue
		}
		claims[k] = v
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID
	s, err := token.SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// serve пропускает запрос через middleware и возвращает ответ и claims,
// увиденные обработчиком (nil — обработчик не вызывался).
func serve(auth *JWTAuth, req *http.Request) (*httptest.ResponseRecorder, *AuthClaims, bool) {
	var (
		seen   *AuthClaims
		called bool
	)
	handler := auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		seen = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen, called
}

func assertUnauthorized(t *testing.T, rec *httptest.ResponseRecorder, called bool) {
	t.Helper()
	if called {
		t.Fatal("обработчик не должен вызываться")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("ожидался 401, получен %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("невалидный JSON: %v", err)
	}
	if body["error"] != "Unauthorized" {
		t.Errorf("error = %q, ожидалось Unauthorized", body["error"])
	}
}

func TestJWTAuth_ValidBearerToken(t *testing.T) {
	key := generateTestKey(t)
	auth := newTestJWTAuth(t, key, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/files", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+signToken(t, key, nil))

	rec, claims, called := serve(auth, req)
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d", rec.Code)
	}
	if claims == nil {
		t.Fatal("claims не найдены в контексте")
	}
	if claims.Subject != "user_2abc" {
		t.Errorf("Subject = %q", claims.Subject)
	}
	if claims.SessionID != "sess_1" {
		t.Errorf("SessionID = %q", claims.SessionID)
	}
	if claims.AuthorizedParty != testOrigin {
		t.Errorf("AuthorizedParty = %q", claims.AuthorizedParty)
	}
	if claims.Email != "user@cloudbox.test" {
		t.Errorf("Email = %q", claims.Email)
	}
}

func TestJWTAuth_SessionCookieFallback(t *testing.T) {
	key := generateTestKey(t)
	auth := newTestJWTAuth(t, key, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/files", http.NoBody)
	req.AddCookie(&http.Cookie{Name: "__session", Value: signToken(t, key, nil)})

	rec, claims, called := serve(auth, req)
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d", rec.Code)
	}
	if claims.Subject != "user_2abc" {
		t.Errorf("Subject = %q", claims.Subject)
	}
}

func TestJWTAuth_HeaderTakesPrecedenceOverCookie(t *testing.T) {
	key := generateTestKey(t)
	auth := newTestJWTAuth(t, key, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/files", http.NoBody)
	req.Header.Set("Authorization", "Bearer garbage")
	req.AddCookie(&http.Cookie{Name: "__session", Value: signToken(t, key, nil)})

	rec, _, called := serve(auth, req)
	assertUnauthorized(t, rec, called)
}

func TestJWTAuth_Rejections(t *testing.T) {
	key := generateTestKey(t)
	otherKey := generateTestKey(t)
	auth := newTestJWTAuth(t, key, testAuthConfig())

	tests := []struct {
		name   string
		header string
	}{
		{"без токена", ""},
		{"не Bearer", "Basic dXNlcjpwYXNz"},
		{"мусор", "Bearer not.a.jwt"},
		{"истёкший", "Bearer " + signToken(t, key, jwt.MapClaims{"exp": jwt.NewNumericDate(time.Now().Add(-time.Hour))})},
		{"без exp", "Bearer " + signToken(t, key, jwt.MapClaims{"exp": nil})},
		{"чужой ключ", "Bearer " + signToken(t, otherKey, nil)},
		{"чужой issuer", "Bearer " + signToken(t, key, jwt.MapClaims{"iss": "https://evil.test"})},
		{"без sub", "Bearer " + signToken(t, key, jwt.MapClaims{"sub": nil})},
		{"чужой azp", "Bearer " + signToken(t, key, jwt.MapClaims{"azp": "https://evil.test"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPatch, "/api/files/x/trash", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec, _, called := serve(auth, req)
			assertUnauthorized(t, rec, called)
		})
	}
}

func TestJWTAuth_HS256Rejected(t *testing.T) {
	key := generateTestKey(t)
	auth := newTestJWTAuth(t, key, testAuthConfig())

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user_2abc",
		"exp": jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	token.Header["kid"] = testKeyID
	s, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/files", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+s)
	rec, _, called := serve(auth, req)
	assertUnauthorized(t, rec, called)
}

func TestJWTAuth_OptionalChecksDisabled(t *testing.T) {
	key := generateTestKey(t)
	auth := newTestJWTAuth(t, key, JWTAuthConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/files", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+signToken(t, key, jwt.MapClaims{"iss": "any", "azp": nil}))

	rec, _, called := serve(auth, req)
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d", rec.Code)
	}
}

func TestSubjectFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	if got := SubjectFromContext(req.Context()); got != "" {
		t.Errorf("ожидалась пустая строка, получено %q", got)
	}
	ctx := ContextWithClaims(req.Context(), &AuthClaims{Subject: "user_1"})
	if got := SubjectFromContext(ctx); got != "user_1" {
		t.Errorf("SubjectFromContext = %q", got)
	}
}

func TestIdPReadinessChecker(t *testing.T) {
	key := generateTestKey(t)
	jwks := buildJWKSetJSON(&key.PublicKey, testKeyID)

	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"ok", http.StatusOK, string(jwks), "ok"},
		{"нет ключей", http.StatusOK, `{"keys":[]}`, "degraded"},
		{"невалидный JSON", http.StatusOK, `{`, "degraded"},
		{"ошибка IdP", http.StatusBadGateway, ``, "fail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			checker, err := NewIdPReadinessChecker(srv.URL, "", time.Second)
			if err != nil {
				t.Fatal(err)
			}
			status, msg := checker.CheckReady()
			if status != tt.want {
				t.Errorf("status = %q (%s), ожидался %q", status, msg, tt.want)
			}
		})
	}
}

func TestIdPReadinessChecker_BadCACert(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(path, []byte("not a pem"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewIdPReadinessChecker("https://idp.test/.well-known/jwks.json", path, time.Second); err == nil {
		t.Fatal("ожидалась ошибка для файла без PEM")
	}
	if _, err := NewIdPReadinessChecker("https://idp.test", filepath.Join(t.TempDir(), "missing.pem"), time.Second); err == nil ||
		!strings.Contains(err.Error(), "readiness") {
		t.Fatalf("ожидалась ошибка для отсутствующего файла, получено %v", err)
	}
}
