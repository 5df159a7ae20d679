package searchindex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/psds-microservice/casework-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexApplication(t *testing.T) {
	var got IndexApplicationPayload
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	program := "Insurance Navigation"
	NewClient(srv.URL, nil).IndexApplication(context.Background(), &model.Application{
		ID:                 "a1",
		ClientID:           "c1",
		Status:             model.ApplicationStatusApproved,
		FinalProgramName:   &program,
		AgentServiceSubmit: []string{"Service X"},
	})

	assert.Equal(t, "/search/index/application", path)
	assert.Equal(t, "a1", got.ApplicationID)
	assert.Equal(t, "approved", got.Status)
	assert.Equal(t, program, got.FinalProgramName)
	assert.Equal(t, []string{"Service X"}, got.Services)
}

func TestIndexTicket_ServerErrorIsSwallowed(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/search/index/ticket", r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	NewClient(srv.URL, nil).IndexTicket(context.Background(), &model.Ticket{ID: "t1", Status: model.TicketStatusOpen})
	assert.Equal(t, 1, calls)
}

func TestEmptyBaseURLIsNoop(t *testing.T) {
	c := NewClient("", nil)
	c.IndexTicket(context.Background(), &model.Ticket{ID: "t1"})
	c.IndexApplicationAsync(&model.Application{ID: "a1"})
}
