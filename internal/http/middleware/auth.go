package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jubileesolutions/overlay-backend/internal/services"
)

const (
	// HeaderActor names the caller recorded in audit rows for unauthenticated
	// authoring requests.
	HeaderActor = "X-Actor"

	actorKey       = "actor"
	maxActorLength = 128

	// RoleAdmin is the role claim required by RequireAdmin.
	RoleAdmin   = "admin"
	adminIssuer = "overlayd"
)

// AdminClaims is the JWT payload accepted on admin routes.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueAdminToken signs an HS256 admin token for subject valid for ttl.
func IssueAdminToken(secret, subject string, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("admin secret is empty")
	}
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("subject is required")
	}
	claims := AdminClaims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    adminIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// parseAdminToken validates signature, algorithm, expiry and issuer.
func parseAdminToken(secret, raw string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(adminIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Actor records the X-Actor header as the request's actor, both in the Gin
// context and in the request context read by the services' audit trail.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		a := strings.TrimSpace(c.GetHeader(HeaderActor))
		if len(a) > maxActorLength {
			a = a[:maxActorLength]
		}
		if a != "" {
			setActor(c, a)
		}
		c.Next()
	}
}

// ActorFrom returns the actor set by Actor or RequireAdmin, or "".
func ActorFrom(c *gin.Context) string {
	if v, ok := c.Get(actorKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func setActor(c *gin.Context, a string) {
	c.Set(actorKey, a)
	c.Request = c.Request.WithContext(services.WithActor(c.Request.Context(), a))
}

// RequireAdmin gates a route behind an HS256 bearer token carrying the
// admin role. The token subject becomes the actor. An empty secret closes
// the route entirely.
func RequireAdmin(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			abort(c, http.StatusForbidden, "forbidden", "admin endpoints are disabled")
			return
		}
		h := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(h, "Bearer ")
		if !found || strings.TrimSpace(raw) == "" {
			abort(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		claims, err := parseAdminToken(secret, strings.TrimSpace(raw))
		if err != nil {
			LoggerFrom(c).Warn().Err(err).Msg("admin token rejected")
			abort(c, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}
		if claims.Role != RoleAdmin || claims.Subject == "" {
			abort(c, http.StatusForbidden, "forbidden", "admin role required")
			return
		}
		setActor(c, claims.Subject)
		c.Next()
	}
}

// abort writes the API error envelope from middleware, which cannot import
// the handlers package.
func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": requestID(c),
		"code":       code,
		"message":    msg,
	})
}
