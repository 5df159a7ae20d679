// Package auth resolves the acting agent of a request into an explicit
// model.Session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/psds-microservice/casework-service/internal/errs"
	"github.com/psds-microservice/casework-service/internal/model"
	"go.uber.org/zap"
)

// HeaderCallerID names the agent when no JWT secret is configured.
const HeaderCallerID = "X-Caller-ID"

const sessionKey = "casework.session"

// AgentResolver loads agent records by stable id or by login email.
type AgentResolver interface {
	Agent(ctx context.Context, id string) (*model.Agent, error)
	AgentByEmail(ctx context.Context, email string) (*model.Agent, error)
}

// Claims are the token claims. Subject is the agent id; Email is used when
// the subject is not a known agent.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
	agents AgentResolver
	logger *zap.Logger
}

// New returns an authenticator. An empty secret switches to header identity.
func New(secret string, agents AgentResolver, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{secret: []byte(secret), agents: agents, logger: logger}
}

// Authenticate builds the session for r.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) (model.Session, error) {
	if len(a.secret) == 0 {
		id := strings.TrimSpace(r.Header.Get(HeaderCallerID))
		if id == "" {
			return model.Session{}, fmt.Errorf("%w: %s header is required", errs.ErrUnauthenticated, HeaderCallerID)
		}
		return a.resolve(ctx, id, "")
	}
	raw := bearerToken(r)
	if raw == "" {
		return model.Session{}, fmt.Errorf("%w: bearer token is required", errs.ErrUnauthenticated)
	}
	claims, err := a.parse(raw)
	if err != nil {
		return model.Session{}, err
	}
	return a.resolve(ctx, claims.Subject, claims.Email)
}

func (a *Authenticator) parse(raw string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnauthenticated, err)
	}
	if claims.Subject == "" && claims.Email == "" {
		return nil, fmt.Errorf("%w: token has no subject", errs.ErrUnauthenticated)
	}
	return &claims, nil
}

func (a *Authenticator) resolve(ctx context.Context, id, email string) (model.Session, error) {
	if id != "" {
		agent, err := a.agents.Agent(ctx, id)
		if err == nil {
			return model.Session{Agent: *agent}, nil
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return model.Session{}, err
		}
	}
	if email != "" {
		agent, err := a.agents.AgentByEmail(ctx, email)
		if err == nil {
			return model.Session{Agent: *agent}, nil
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return model.Session{}, err
		}
	}
	return model.Session{}, fmt.Errorf("%w: unknown agent", errs.ErrUnauthenticated)
}

// Middleware rejects unauthenticated requests with 401 and stores the
// session for SessionFrom.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := a.Authenticate(c.Request.Context(), c.Request)
		if err != nil {
			if errors.Is(err, errs.ErrUnauthenticated) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
				return
			}
			a.logger.Error("auth: resolve agent", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve agent"})
			return
		}
		c.Set(sessionKey, session)
		c.Next()
	}
}

// SessionFrom returns the session stored by Middleware.
func SessionFrom(c *gin.Context) (model.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return model.Session{}, false
	}
	s, ok := v.(model.Session)
	return s, ok
}

// IssueToken signs an HS256 token for agentID.
func IssueToken(secret, agentID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   agentID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// bearerToken reads the Authorization header, or access_token on websocket
// upgrades where browsers cannot set headers.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if t, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(t)
		}
		return ""
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("access_token")
	}
	return ""
}
