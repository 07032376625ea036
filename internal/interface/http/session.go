package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yanqian/thermostraw/internal/domain/dashboard"
	"github.com/yanqian/thermostraw/internal/infra/config"
)

const (
	sessionIDKey  = "session_id"
	sessionIssuer = "thermostraw"
)

type sessionClaims struct {
	jwt.RegisteredClaims
}

// sessionManager issues and verifies the signed cookie that names a dashboard session.
type sessionManager struct {
	cookieName string
	secret     []byte
	ttl        time.Duration
	secure     bool
	now        func() time.Time
}

func newSessionManager(cfg config.SessionConfig) *sessionManager {
	return &sessionManager{
		cookieName: cfg.CookieName,
		secret:     []byte(cfg.Secret),
		ttl:        cfg.TTL,
		secure:     cfg.Secure,
		now:        time.Now,
	}
}

func (m *sessionManager) issue(sessionID string) (string, error) {
	now := m.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func (m *sessionManager) parse(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || claims.Subject == "" {
		return "", errors.New("session token has no subject")
	}
	return claims.Subject, nil
}

// sessionMiddleware resolves the session of the request, starting a new one when the cookie
// is missing, expired or forged. Every response refreshes the cookie.
func sessionMiddleware(m *sessionManager, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var sessionID string
		if raw, err := c.Cookie(m.cookieName); err == nil && raw != "" {
			id, err := m.parse(raw)
			if err != nil {
				logger.Debug("discarding session cookie", "error", err)
			} else {
				sessionID = id
			}
		}
		if sessionID == "" {
			sessionID = dashboard.NewSessionID()
		}

		token, err := m.issue(sessionID)
		if err != nil {
			abortWithError(c, NewHTTPError(http.StatusInternalServerError, "session_failed", "could not start a session", err))
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(m.cookieName, token, int(m.ttl.Seconds()), "/", "", m.secure, true)

		c.Set(sessionIDKey, sessionID)
		c.Next()
	}
}

func currentSession(c *gin.Context) string {
	return c.GetString(sessionIDKey)
}
