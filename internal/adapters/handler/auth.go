package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/DanielPopoola/coach-settlement/internal/metrics"
	"github.com/golang-jwt/jwt/v5"
)

const adminRole = "admin"

type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminAuth accepts HS256 bearer tokens whose role claim is admin.
type AdminAuth struct {
	secret []byte
	logger *slog.Logger
}

func NewAdminAuth(secret string, logger *slog.Logger) *AdminAuth {
	return &AdminAuth{secret: []byte(secret), logger: logger}
}

func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.parseFromRequest(r)
		if err != nil {
			metrics.IncSignatureFailure("admin_token")
			a.logger.Warn("rejected admin request", "path", r.URL.Path, "reason", err.Error())
			respondWithError(w, a.logger, domain.NewUnauthorizedError("admin token required"))
			return
		}
		a.logger.Debug("admin request", "subject", claims.Subject, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (a *AdminAuth) parseFromRequest(r *http.Request) (*AdminClaims, error) {
	hdr := r.Header.Get("Authorization")
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return nil, errors.New("missing bearer token")
	}
	return a.parse(strings.TrimSpace(hdr[7:]))
}

func (a *AdminAuth) parse(tok string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Role != adminRole {
		return nil, errors.New("token lacks admin role")
	}
	return claims, nil
}
