package service

import (
	"context"
	"testing"

	"github.com/psds-microservice/casework-service/internal/kafka"
	"github.com/psds-microservice/casework-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingIndexer struct {
	apps    []string
	tickets []string
}

func (r *recordingIndexer) IndexApplication(_ context.Context, a *model.Application) {
	r.apps = append(r.apps, a.ID)
}

func (r *recordingIndexer) IndexTicket(_ context.Context, t *model.Ticket) {
	r.tickets = append(r.tickets, t.ID)
}

func TestReindexer_PrefersEvents(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.application(t, "a1", "c1", model.ApplicationStatusSubmitted)
	e.application(t, "a2", "c3", model.ApplicationStatusApproved)
	_, err := e.tickets.Create(ctx, "c1", "broken heater")
	require.NoError(t, err)
	e.events.events = nil

	idx := &recordingIndexer{}
	apps, tickets, err := NewReindexer(e.mem, e.events, idx, nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, apps)
	assert.Equal(t, 1, tickets)
	assert.Equal(t, []string{
		kafka.EventApplicationUpdated,
		kafka.EventApplicationUpdated,
		kafka.EventTicketUpdated,
	}, e.events.names())
	assert.Empty(t, idx.apps)
}

func TestReindexer_Indexer(t *testing.T) {
	e := newEnv(t)
	e.application(t, "a1", "c1", model.ApplicationStatusSubmitted)

	idx := &recordingIndexer{}
	apps, tickets, err := NewReindexer(e.mem, nil, idx, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, apps)
	assert.Equal(t, 0, tickets)
	assert.Equal(t, []string{"a1"}, idx.apps)
}
