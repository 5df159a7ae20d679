package service

import (
	"context"
	"errors"
	"testing"

	"github.com/psds-microservice/casework-service/internal/errs"
	"github.com/psds-microservice/casework-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestDirectory_Agents(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, err := e.directory.Agent(ctx, "ag1")
	require.NoError(t, err)
	assert.Equal(t, "Dana Reyes", a.DisplayName)

	a, err = e.directory.AgentByEmail(ctx, "luis@example.org")
	require.NoError(t, err)
	assert.Equal(t, "ag2", a.ID)

	_, err = e.directory.AgentByEmail(ctx, "nobody@example.org")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestDirectory_UpdateAgentProfile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, err := e.directory.UpdateAgentProfile(ctx, dana, ProfileUpdate{
		DisplayName: ptr(" Dana R. "),
		Address:     &model.Address{City: "Austin", State: "TX"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Dana R.", a.DisplayName)
	assert.Equal(t, "dana@example.org", a.Email)
	require.NotNil(t, a.Address)
	assert.Equal(t, "Austin", a.Address.City)

	_, err = e.directory.UpdateAgentProfile(ctx, dana, ProfileUpdate{DisplayName: ptr("")})
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
	_, err = e.directory.UpdateAgentProfile(ctx, dana, ProfileUpdate{Email: ptr("not-an-email")})
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
	_, err = e.directory.UpdateAgentProfile(ctx, dana, ProfileUpdate{})
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
}

func TestDirectory_Clients(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	all, err := e.directory.Clients(ctx, dana, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Ana Lopez", all[0].FullName)
	assert.Equal(t, "Ben Okafor", all[1].FullName)

	found, err := e.directory.Clients(ctx, dana, "OKA")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "c2", found[0].ClientID)

	c, err := e.directory.Client(ctx, dana, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Lopez", c.FullName)

	_, err = e.directory.Client(ctx, dana, "c3")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestDirectory_ClientHistory(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.put(t, model.CollectionApplications, "a1", map[string]any{
		"client_id":            "c1",
		"status":               "service_submitted",
		"final_program_name":   "Meals on Wheels",
		"agent_service_submit": []string{"Hot meals"},
		"uploaded_documents_path": map[string]string{
			"proof_of_income": "docs/c1/income.pdf",
			"id_card":         "docs/c1/id.png",
		},
	})
	e.application(t, "a2", "c2", model.ApplicationStatusSubmitted)

	h, err := e.directory.ClientHistory(ctx, dana, "c1")
	require.NoError(t, err)
	require.Len(t, h, 1)
	assert.Equal(t, model.ServiceHistory{
		ApplicationID: "a1",
		Status:        model.ApplicationStatusServiceSubmitted,
		ProgramName:   "Meals on Wheels",
		Services:      []string{"Hot meals"},
		Documents:     []string{"id_card", "proof_of_income"},
	}, h[0])

	_, err = e.directory.ClientHistory(ctx, luis, "c1")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}
