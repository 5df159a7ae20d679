package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/psds-microservice/casework-service/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/compare", r.URL.Path)
		var req CompareRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Prompts, 4)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"reasons":["r0","r1","r2","r3"],"suggestedProgram":"CAPP Youth Services"}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, time.Second, nil).Compare(context.Background(), []string{"a", "b", "c", "d"})
	require.NoError(t, err)
	assert.Equal(t, "CAPP Youth Services", res.SuggestedProgram)
	assert.Equal(t, []string{"r0", "r1", "r2", "r3"}, res.Reasons)
}

func TestCompare_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second, nil).Compare(context.Background(), []string{"a"})
	assert.True(t, errors.Is(err, errs.ErrExternalService))
}

func TestCompare_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 20*time.Millisecond, nil).Compare(context.Background(), []string{"a"})
	assert.True(t, errors.Is(err, errs.ErrExternalService))
}

func TestBuildPrompts(t *testing.T) {
	prompts := BuildPrompts(
		[4]string{"no insurance", "age 30", "Putnam", "income 20k"},
		[4]string{"uninsured", "adult", "county", "low income"},
	)
	require.Len(t, prompts, 4)
	assert.Contains(t, prompts[0], "Answer_1: 'no insurance'")
	assert.Contains(t, prompts[0], "criteria_1: 'uninsured'")
	assert.Contains(t, prompts[0], "6) Healthy Families NY Putnam County")
	assert.True(t, strings.HasPrefix(prompts[3], "Compare the value in Answer_4: 'income 20k'"))
	assert.Contains(t, prompts[3], "criteria_4: 'low income'")
}
