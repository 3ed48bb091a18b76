// auth.go — JWT middleware для аутентификации пользователей cloudbox.
// Сессионный токен Identity Provider берётся из заголовка Authorization
// (Bearer) или, если заголовка нет, из сессионной cookie.
// Подпись проверяется через JWKS Identity Provider (RS256).
// Любая ошибка аутентификации — 401 {"error":"Unauthorized"}; детали только в логе.
package middleware

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/bigkaa/cloudbox/internal/api/errors"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

const (
	// ContextKeyClaims — извлечённые claims в контексте запроса.
	ContextKeyClaims contextKey = "jwt_claims"

	contextKeyClaimsHolder contextKey = "jwt_claims_holder"
)

// AuthClaims — claims сессионного токена, помещаемые в контекст запроса.
type AuthClaims struct {
	// Subject — sub из JWT, идентификатор пользователя и ключ владельца записей.
	Subject string
	// SessionID — sid из JWT.
	SessionID string
	// AuthorizedParty — azp из JWT (origin фронтенда, выпустившего сессию).
	AuthorizedParty string
	// Email — email из JWT (если IdP его включает).
	Email string
}

// sessionClaims — raw claims сессионного токена для парсинга.
type sessionClaims struct {
	jwt.RegisteredClaims
	SessionID       string `json:"sid,omitempty"`
	AuthorizedParty string `json:"azp,omitempty"`
	Email           string `json:"email,omitempty"`
}

// JWTAuthConfig — параметры JWT middleware.
type JWTAuthConfig struct {
	// JWKSURL — URL JWKS endpoint Identity Provider
	JWKSURL string
	// CACertPath — опциональный путь к CA-сертификату для TLS
	CACertPath string
	// Issuer — ожидаемый iss (пусто — не проверяется)
	Issuer string
	// AuthorizedParties — допустимые azp (пусто — не проверяется)
	AuthorizedParties []string
	// SessionCookie — имя cookie с токеном (пусто — только заголовок)
	SessionCookie string
	// ClientTimeout — таймаут HTTP-клиента JWKS
	ClientTimeout time.Duration
	// RefreshInterval — интервал обновления JWKS-ключей
	RefreshInterval time.Duration
	// Leeway — допустимое отклонение времени при проверке exp/nbf
	Leeway time.Duration
}

// JWTAuth — middleware для JWT-аутентификации через JWKS Identity Provider.
type JWTAuth struct {
	jwks              keyfunc.Keyfunc
	logger            *slog.Logger
	issuer            string
	authorizedParties []string
	sessionCookie     string
	leeway            time.Duration
}

// NewJWTAuth создаёт JWT middleware с JWKS из Identity Provider.
// Ключи загружаются в фоне; старт не блокируется недоступностью IdP.
func NewJWTAuth(cfg JWTAuthConfig, logger *slog.Logger) (*JWTAuth, error) {
	httpClient := &http.Client{Timeout: cfg.ClientTimeout}
	if cfg.CACertPath != "" {
		var err error
		httpClient, err = httpClientWithCA(cfg.CACertPath, cfg.ClientTimeout)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата %s: %w", cfg.CACertPath, err)
		}
		logger.Info("CA-сертификат для JWKS добавлен в пул доверия",
			slog.String("ca_cert", cfg.CACertPath),
		)
	}

	storage, err := jwkset.NewStorageFromHTTP(cfg.JWKSURL, jwkset.HTTPClientStorageOptions{
		Client:                    httpClient,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           cfg.RefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", cfg.JWKSURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return newJWTAuth(k, cfg, logger), nil
}

// NewJWTAuthWithKeyfunc создаёт JWT middleware с предоставленной keyfunc.
// Используется в тестах для подстановки mock JWKS.
func NewJWTAuthWithKeyfunc(kf keyfunc.Keyfunc, cfg JWTAuthConfig, logger *slog.Logger) *JWTAuth {
	return newJWTAuth(kf, cfg, logger)
}

func newJWTAuth(kf keyfunc.Keyfunc, cfg JWTAuthConfig, logger *slog.Logger) *JWTAuth {
	return &JWTAuth{
		jwks:              kf,
		logger:            logger.With(slog.String("component", "jwt_auth")),
		issuer:            cfg.Issuer,
		authorizedParties: cfg.AuthorizedParties,
		sessionCookie:     cfg.SessionCookie,
		leeway:            cfg.Leeway,
	}
}

// httpClientWithCA создаёт HTTP-клиент с кастомным CA-сертификатом.
func httpClientWithCA(caCertPath string, timeout time.Duration) (*http.Client, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, err
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("в файле нет PEM-сертификатов")
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				RootCAs:    caCertPool,
				MinVersion: tls.VersionTLS12,
			},
		},
	}, nil
}

// Middleware возвращает HTTP middleware для JWT-аутентификации.
// При успехе AuthClaims помещаются в контекст; иначе обработчик не вызывается.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, source := j.extractToken(r)
			if tokenString == "" {
				j.reject(w, r, "токен отсутствует")
				return
			}

			raw := &sessionClaims{}
			parserOpts := []jwt.ParserOption{
				jwt.WithValidMethods([]string{"RS256"}),
				jwt.WithExpirationRequired(),
				jwt.WithLeeway(j.leeway),
			}
			if j.issuer != "" {
				parserOpts = append(parserOpts, jwt.WithIssuer(j.issuer))
			}

			token, err := jwt.ParseWithClaims(tokenString, raw, j.jwks.KeyfuncCtx(r.Context()), parserOpts...)
			if err != nil || !token.Valid {
				reason := "невалидный токен"
				if err != nil {
					reason = err.Error()
				}
				j.reject(w, r, reason, slog.String("source", source))
				return
			}

			if raw.Subject == "" {
				j.reject(w, r, "отсутствует sub в токене")
				return
			}

			if len(j.authorizedParties) > 0 && !slices.Contains(j.authorizedParties, raw.AuthorizedParty) {
				j.reject(w, r, "azp не входит в список допустимых",
					slog.String("azp", raw.AuthorizedParty))
				return
			}

			claims := &AuthClaims{
				Subject:         raw.Subject,
				SessionID:       raw.SessionID,
				AuthorizedParty: raw.AuthorizedParty,
				Email:           raw.Email,
			}
			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

// extractToken возвращает токен и его источник ("header" или "cookie").
// Заголовок Authorization имеет приоритет над cookie.
func (j *JWTAuth) extractToken(r *http.Request) (token, source string) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", "header"
		}
		return strings.TrimSpace(parts[1]), "header"
	}

	if j.sessionCookie != "" {
		if c, err := r.Cookie(j.sessionCookie); err == nil {
			return c.Value, "cookie"
		}
	}
	return "", ""
}

// reject логирует причину и отвечает 401.
func (j *JWTAuth) reject(w http.ResponseWriter, r *http.Request, reason string, attrs ...slog.Attr) {
	attrs = append(attrs,
		slog.String("reason", reason),
		slog.String("path", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
	)
	j.logger.LogAttrs(r.Context(), slog.LevelDebug, "Аутентификация не пройдена", attrs...)
	apierrors.Unauthorized(w, apierrors.MsgUnauthorized)
}

// --- Context helpers ---

// ContextWithClaims возвращает контекст с AuthClaims.
// Если выше по цепочке стоит RequestLogger, claims передаются и ему.
func ContextWithClaims(ctx context.Context, claims *AuthClaims) context.Context {
	if holder, ok := ctx.Value(contextKeyClaimsHolder).(*claimsHolder); ok {
		holder.claims = claims
	}
	return context.WithValue(ctx, ContextKeyClaims, claims)
}

// claimsHolder — слот для claims, видимый внешним middleware.
type claimsHolder struct {
	claims *AuthClaims
}

func withClaimsHolder(ctx context.Context, h *claimsHolder) context.Context {
	return context.WithValue(ctx, contextKeyClaimsHolder, h)
}

// ClaimsFromContext извлекает AuthClaims из контекста запроса.
// Возвращает nil, если claims не найдены.
func ClaimsFromContext(ctx context.Context) *AuthClaims {
	claims, _ := ctx.Value(ContextKeyClaims).(*AuthClaims)
	return claims
}

// SubjectFromContext извлекает sub из контекста запроса.
// Возвращает пустую строку, если claims не найдены.
func SubjectFromContext(ctx context.Context) string {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return ""
	}
	return claims.Subject
}

// --- ReadinessChecker для Identity Provider ---

// IdPReadinessChecker — проверка доступности Identity Provider через JWKS.
type IdPReadinessChecker struct {
	jwksURL string
	client  *http.Client
}

// NewIdPReadinessChecker создаёт checker доступности Identity Provider.
func NewIdPReadinessChecker(jwksURL, caCertPath string, readinessTimeout time.Duration) (*IdPReadinessChecker, error) {
	client := &http.Client{Timeout: readinessTimeout}
	if caCertPath != "" {
		var err error
		client, err = httpClientWithCA(caCertPath, readinessTimeout)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA для readiness checker: %w", err)
		}
	}

	return &IdPReadinessChecker{
		jwksURL: jwksURL,
		client:  client,
	}, nil
}

const statusFail = "fail"

// CheckReady проверяет доступность JWKS endpoint Identity Provider.
func (k *IdPReadinessChecker) CheckReady() (status, message string) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, k.jwksURL, http.NoBody)
	if err != nil {
		return statusFail, "ошибка создания запроса: " + err.Error()
	}
	resp, err := k.client.Do(req) //nolint:gosec // URL из конфигурации
	if err != nil {
		return statusFail, fmt.Sprintf("JWKS недоступен: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusFail, fmt.Sprintf("JWKS вернул статус %d", resp.StatusCode)
	}

	var jwksResp struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwksResp); err != nil {
		return "degraded", fmt.Sprintf("JWKS: невалидный JSON: %v", err)
	}

	if len(jwksResp.Keys) == 0 {
		return "degraded", "JWKS: нет ключей"
	}

	return "ok", fmt.Sprintf("JWKS доступен, ключей: %d", len(jwksResp.Keys))
}
