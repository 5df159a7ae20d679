package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/casework-service/internal/errs"
	"github.com/psds-microservice/casework-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAgents map[string]model.Agent

func (f fakeAgents) Agent(_ context.Context, id string) (*model.Agent, error) {
	if a, ok := f[id]; ok {
		return &a, nil
	}
	return nil, errs.ErrNotFound
}

func (f fakeAgents) AgentByEmail(_ context.Context, email string) (*model.Agent, error) {
	for _, a := range f {
		if a.Email == email {
			return &a, nil
		}
	}
	return nil, errs.ErrNotFound
}

var agents = fakeAgents{"ag1": {ID: "ag1", Email: "dana@example.org", DisplayName: "Dana Reyes"}}

func TestAuthenticate_Header(t *testing.T) {
	a := New("", agents, nil)
	r := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)

	_, err := a.Authenticate(context.Background(), r)
	assert.True(t, errors.Is(err, errs.ErrUnauthenticated))

	r.Header.Set(HeaderCallerID, "ag1")
	s, err := a.Authenticate(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "ag1", s.AgentID())

	r.Header.Set(HeaderCallerID, "nobody")
	_, err = a.Authenticate(context.Background(), r)
	assert.True(t, errors.Is(err, errs.ErrUnauthenticated))
}

func TestAuthenticate_JWT(t *testing.T) {
	a := New("s3cret", agents, nil)

	token, err := IssueToken("s3cret", "ag1", "", time.Hour)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	s, err := a.Authenticate(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "Dana Reyes", s.Agent.DisplayName)

	// Identity provider subjects that are not agent ids fall back to email.
	token, err = IssueToken("s3cret", "idp|123", "dana@example.org", time.Hour)
	require.NoError(t, err)
	r.Header.Set("Authorization", "Bearer "+token)
	s, err = a.Authenticate(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "ag1", s.AgentID())
}

func TestAuthenticate_JWTRejections(t *testing.T) {
	a := New("s3cret", agents, nil)
	cases := map[string]func() string{
		"wrong secret": func() string {
			tok, _ := IssueToken("other", "ag1", "", time.Hour)
			return tok
		},
		"expired": func() string {
			tok, _ := IssueToken("s3cret", "ag1", "", -time.Minute)
			return tok
		},
		"garbage": func() string { return "not-a-token" },
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("Authorization", "Bearer "+tok())
			_, err := a.Authenticate(context.Background(), r)
			assert.True(t, errors.Is(err, errs.ErrUnauthenticated))
		})
	}
}

func TestBearerToken_WebsocketQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/chats/c1/ws?access_token=abc", nil)
	assert.Equal(t, "", bearerToken(r))
	r.Header.Set("Upgrade", "websocket")
	assert.Equal(t, "abc", bearerToken(r))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New("", agents, nil).Middleware())
	r.GET("/me", func(c *gin.Context) {
		s, ok := SessionFrom(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": s.AgentID()})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(HeaderCallerID, "ag1")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"ag1"}`, w.Body.String())
}
