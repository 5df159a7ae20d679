package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/psds-microservice/casework-service/internal/errs"
	"github.com/psds-microservice/casework-service/internal/model"
	"github.com/psds-microservice/casework-service/internal/store"
	"go.uber.org/zap"
)

// DirectoryService reads agents and their client rosters.
type DirectoryService struct {
	store  store.Store
	logger *zap.Logger
}

func NewDirectoryService(s store.Store, logger *zap.Logger) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryService{store: s, logger: logger}
}

func (s *DirectoryService) Agent(ctx context.Context, id string) (*model.Agent, error) {
	doc, err := s.store.Get(ctx, model.CollectionAgents, id)
	if err != nil {
		return nil, err
	}
	return decodeAgent(doc)
}

func (s *DirectoryService) AgentByEmail(ctx context.Context, email string) (*model.Agent, error) {
	docs, err := s.store.Query(ctx, model.CollectionAgents, store.Eq("email", email))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("agent with email %s: %w", email, errs.ErrNotFound)
	}
	if len(docs) > 1 {
		s.logger.Warn("directory: several agents share an email", zap.String("email", email), zap.Int("count", len(docs)))
	}
	return decodeAgent(docs[0])
}

// ProfileUpdate lists the editable profile fields. Nil means unchanged.
type ProfileUpdate struct {
	DisplayName *string        `json:"displayName,omitempty"`
	Email       *string        `json:"email,omitempty"`
	PhoneNumber *string        `json:"phoneNumber,omitempty"`
	Address     *model.Address `json:"address,omitempty"`
	PhotoURL    *string        `json:"photoURL,omitempty"`
}

// UpdateAgentProfile edits the acting agent's own profile. References to the
// agent use its id, so renaming breaks nothing.
func (s *DirectoryService) UpdateAgentProfile(ctx context.Context, sess model.Session, upd ProfileUpdate) (*model.Agent, error) {
	fields := map[string]any{}
	if upd.DisplayName != nil {
		name := strings.TrimSpace(*upd.DisplayName)
		if name == "" {
			return nil, errs.Invalid("displayName must not be empty")
		}
		fields["displayName"] = name
	}
	if upd.Email != nil {
		email := strings.TrimSpace(*upd.Email)
		if !strings.Contains(email, "@") {
			return nil, errs.Invalid("email %q", email)
		}
		fields["email"] = email
	}
	if upd.PhoneNumber != nil {
		fields["phoneNumber"] = strings.TrimSpace(*upd.PhoneNumber)
	}
	if upd.Address != nil {
		fields["address"] = upd.Address
	}
	if upd.PhotoURL != nil {
		fields["photoURL"] = *upd.PhotoURL
	}
	if len(fields) == 0 {
		return nil, errs.Invalid("no changes")
	}
	doc, err := s.store.Update(ctx, model.CollectionAgents, sess.AgentID(), fields)
	if err != nil {
		return nil, err
	}
	return decodeAgent(doc)
}

// Clients lists the agent's clients by name. search filters on a
// case-insensitive substring of the full name.
func (s *DirectoryService) Clients(ctx context.Context, sess model.Session, search string) ([]model.Client, error) {
	clients, err := s.clientsOf(ctx, sess.AgentID())
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]model.Client, 0, len(clients))
	for _, c := range clients {
		if needle != "" && !strings.Contains(strings.ToLower(c.FullName), needle) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FullName != out[j].FullName {
			return out[i].FullName < out[j].FullName
		}
		return out[i].ClientID < out[j].ClientID
	})
	return out, nil
}

// Client returns one of the agent's clients. Clients of other agents are
// reported as not found.
func (s *DirectoryService) Client(ctx context.Context, sess model.Session, id string) (*model.Client, error) {
	doc, err := s.store.Get(ctx, model.CollectionClients, id)
	if err != nil {
		return nil, err
	}
	c, err := decodeClient(doc)
	if err != nil {
		return nil, err
	}
	if c.AssignedAgentID != sess.AgentID() {
		return nil, fmt.Errorf("client %s: %w", id, errs.ErrNotFound)
	}
	return c, nil
}

// ClientHistory lists the client's applications with program, services and
// uploaded document names.
func (s *DirectoryService) ClientHistory(ctx context.Context, sess model.Session, id string) ([]model.ServiceHistory, error) {
	if _, err := s.Client(ctx, sess, id); err != nil {
		return nil, err
	}
	docs, err := s.store.Query(ctx, model.CollectionApplications, store.Eq(model.FieldClientID, id))
	if err != nil {
		return nil, err
	}
	out := make([]model.ServiceHistory, 0, len(docs))
	for _, doc := range docs {
		a, err := decodeApplication(doc)
		if err != nil {
			s.logger.Warn("directory: skip undecodable application", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		h := model.ServiceHistory{
			ApplicationID: a.ID,
			Status:        a.Status,
			Services:      a.AgentServiceSubmit,
			Documents:     sortedKeys(a.UploadedDocumentsPath),
		}
		if a.FinalProgramName != nil {
			h.ProgramName = *a.FinalProgramName
		}
		out = append(out, h)
	}
	return out, nil
}

// clientsOf returns the agent's clients keyed by client id.
func (s *DirectoryService) clientsOf(ctx context.Context, agentID string) (map[string]model.Client, error) {
	docs, err := s.store.Query(ctx, model.CollectionClients, store.Eq("assigned_agent_id", agentID))
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Client, len(docs))
	for _, doc := range docs {
		c, err := decodeClient(doc)
		if err != nil {
			s.logger.Warn("directory: skip undecodable client", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		out[c.ClientID] = *c
	}
	return out, nil
}

// ClientIDs returns the ids of the agent's clients, sorted.
func (s *DirectoryService) ClientIDs(ctx context.Context, agentID string) ([]string, map[string]model.Client, error) {
	clients, err := s.clientsOf(ctx, agentID)
	if err != nil {
		return nil, nil, err
	}
	return sortedKeys(clients), clients, nil
}
