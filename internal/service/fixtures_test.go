package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/psds-microservice/casework-service/internal/inference"
	"github.com/psds-microservice/casework-service/internal/model"
	"github.com/psds-microservice/casework-service/internal/store"
	"github.com/stretchr/testify/require"
)

var (
	dana = model.Session{Agent: model.Agent{ID: "ag1", Email: "dana@example.org", DisplayName: "Dana Reyes"}}
	luis = model.Session{Agent: model.Agent{ID: "ag2", Email: "luis@example.org", DisplayName: "Luis Park"}}
)

type recordedEvent struct {
	name    string
	key     string
	payload map[string]any
}

type fakeEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeEvents) ProduceEvent(_ context.Context, event, key string, payload map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{name: event, key: key, payload: payload})
}

func (f *fakeEvents) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.name)
	}
	return out
}

type fakeComparer struct {
	res     *inference.CompareResult
	err     error
	prompts []string
}

func (f *fakeComparer) Compare(_ context.Context, prompts []string) (*inference.CompareResult, error) {
	f.prompts = prompts
	return f.res, f.err
}

// failingStore fails Update calls that write field.
type failingStore struct {
	store.Store
	field string
}

func (f failingStore) Update(ctx context.Context, collection, id string, fields map[string]any) (*store.Document, error) {
	if _, ok := fields[f.field]; ok {
		return nil, errors.New("write refused")
	}
	return f.Store.Update(ctx, collection, id, fields)
}

type env struct {
	mem       *store.Memory
	events    *fakeEvents
	comparer  *fakeComparer
	directory *DirectoryService
	apps      *ApplicationService
	tickets   *TicketService
	visits    *VisitService
	dashboard *DashboardService
	chats     *ChatService
}

var fixedNow = time.Date(2024, 5, 1, 15, 30, 0, 0, time.UTC)

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWithStore(t, nil)
}

// newEnvWithStore builds the services over wrap(mem) when wrap is set.
func newEnvWithStore(t *testing.T, wrap func(store.Store) store.Store) *env {
	t.Helper()
	mem := store.NewMemory(nil)
	var s store.Store = mem
	if wrap != nil {
		s = wrap(mem)
	}
	e := &env{mem: mem, events: &fakeEvents{}, comparer: &fakeComparer{}}
	e.directory = NewDirectoryService(s, nil)
	e.apps = NewApplicationService(s, e.directory, e.comparer, e.events, nil, "misn", nil)
	e.apps.now = func() time.Time { return fixedNow }
	e.tickets = NewTicketService(s, e.directory, e.events, nil, nil)
	e.tickets.now = func() time.Time { return fixedNow }
	e.visits = NewVisitService(s, time.UTC, e.events, nil)
	e.visits.now = func() time.Time { return fixedNow }
	e.dashboard = NewDashboardService(s, e.directory, e.visits)
	e.chats = NewChatService(s, e.directory, nil)

	e.put(t, model.CollectionAgents, "ag1", dana.Agent)
	e.put(t, model.CollectionAgents, "ag2", luis.Agent)
	e.put(t, model.CollectionClients, "c1", model.Client{ClientID: "c1", FullName: "Ana Lopez", AssignedAgentID: "ag1"})
	e.put(t, model.CollectionClients, "c2", model.Client{ClientID: "c2", FullName: "Ben Okafor", AssignedAgentID: "ag1"})
	e.put(t, model.CollectionClients, "c3", model.Client{ClientID: "c3", FullName: "Cleo Diaz", AssignedAgentID: "ag2"})
	return e
}

func (e *env) put(t *testing.T, collection, id string, v any) {
	t.Helper()
	data, err := store.ToMap(v)
	require.NoError(t, err)
	_, err = e.mem.Create(context.Background(), collection, id, data)
	require.NoError(t, err)
}

func (e *env) application(t *testing.T, id, clientID string, status model.ApplicationStatus) {
	t.Helper()
	e.put(t, model.CollectionApplications, id, map[string]any{
		"client_id":  clientID,
		"status":     string(status),
		"updated_at": fixedNow.Add(-time.Hour),
	})
}

func (e *env) raw(t *testing.T, collection, id string) *store.Document {
	t.Helper()
	doc, err := e.mem.Get(context.Background(), collection, id)
	require.NoError(t, err)
	return doc
}
