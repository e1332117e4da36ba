package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	HeaderDevUserID = "X-User-ID"
	HeaderDevRole   = "X-User-Role"
)

// Claims carries the caller's user id in sub and their role.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

type JWTConfig struct {
	Issuer     string
	Audience   string
	SigningKey []byte
	Skipper    func(echo.Context) bool
}

// JWTMiddleware verifies an HS256 bearer token and stores the Principal on
// the request context.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			p, err := principalFromBearer(authHeader, cfg)
			if err != nil {
				return err
			}

			c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), p)))
			return next(c)
		}
	}
}

func principalFromBearer(authHeader string, cfg JWTConfig) (Principal, error) {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(*jwt.Token) (interface{}, error) {
		return cfg.SigningKey, nil
	}, opts...)
	if err != nil || !token.Valid {
		return Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
	}
	role, err := ParseRole(claims.Role)
	if err != nil {
		return Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid token role")
	}
	return Principal{UserID: uid, Role: role}, nil
}

// DevAuthMiddleware is a permissive middleware for development. A bearer
// token is still verified when present; otherwise the principal comes from
// the X-User-ID and X-User-Role headers, defaulting to an admin.
func DevAuthMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			req := c.Request()
			var p Principal
			if h := req.Header.Get("Authorization"); h != "" && len(cfg.SigningKey) > 0 {
				var err error
				if p, err = principalFromBearer(h, cfg); err != nil {
					return err
				}
			} else {
				p = Principal{UserID: uuid.Nil, Role: RoleAdmin}
				if v := req.Header.Get(HeaderDevUserID); v != "" {
					uid, err := uuid.Parse(v)
					if err != nil {
						return echo.NewHTTPError(http.StatusUnauthorized, "invalid "+HeaderDevUserID)
					}
					p.UserID = uid
				}
				if v := req.Header.Get(HeaderDevRole); v != "" {
					role, err := ParseRole(v)
					if err != nil {
						return echo.NewHTTPError(http.StatusUnauthorized, "invalid "+HeaderDevRole)
					}
					p.Role = role
				}
			}

			c.SetRequest(req.WithContext(WithPrincipal(req.Context(), p)))
			return next(c)
		}
	}
}

// IssueToken signs a token for p. Used by the token command and tests.
func IssueToken(cfg JWTConfig, p Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID.String(),
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: p.Role.String(),
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.SigningKey)
}
