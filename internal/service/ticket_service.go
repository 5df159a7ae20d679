package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/psds-microservice/casework-service/internal/chat"
	"github.com/psds-microservice/casework-service/internal/errs"
	"github.com/psds-microservice/casework-service/internal/kafka"
	"github.com/psds-microservice/casework-service/internal/model"
	"github.com/psds-microservice/casework-service/internal/searchindex"
	"github.com/psds-microservice/casework-service/internal/store"
	"go.uber.org/zap"
)

var errNoChange = errors.New("no change")

// TicketService runs ticket comment threads. The thread itself is a chat
// engine over the ticket layout.
type TicketService struct {
	store     store.Store
	thread    *chat.Engine
	directory *DirectoryService
	events    kafka.EventProducer
	search    searchindex.Indexer
	logger    *zap.Logger
	now       func() time.Time
}

func NewTicketService(s store.Store, directory *DirectoryService, events kafka.EventProducer, search searchindex.Indexer, logger *zap.Logger) *TicketService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		store:     s,
		thread:    chat.NewEngine(s, chat.TicketLayout, logger),
		directory: directory,
		events:    orNoopEvents(events),
		search:    orNoopIndexer(search),
		logger:    logger,
		now:       time.Now,
	}
}

// Create records a client-reported issue. Intake normally happens in the
// client app; the API exposes it for tooling.
func (s *TicketService) Create(ctx context.Context, clientID, issue string) (*model.Ticket, error) {
	clientID = strings.TrimSpace(clientID)
	issue = strings.TrimSpace(issue)
	if clientID == "" || issue == "" {
		return nil, errs.Invalid("client_id and issue_description are required")
	}
	now := s.now().UTC()
	doc, err := s.store.Create(ctx, model.CollectionTickets, "", map[string]any{
		"client_id":         clientID,
		"issue_description": issue,
		"status":            string(model.TicketStatusOpen),
		"chat_log":          []any{},
		"created_at":        now,
		"updated_at":        now,
	})
	if err != nil {
		return nil, err
	}
	t, err := decodeTicket(doc)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, kafka.EventTicketCreated, t, "")
	return t, nil
}

// Open returns the ticket with its thread, seeding chat_log[0] from the
// issue description the first time. Calling it again never duplicates the
// seed.
func (s *TicketService) Open(ctx context.Context, id string) (*model.Ticket, error) {
	doc, err := s.store.Get(ctx, model.CollectionTickets, id)
	if err != nil {
		return nil, err
	}
	t, err := decodeTicket(doc)
	if err != nil {
		return nil, err
	}
	seeded, err := s.thread.Seed(ctx, id, model.RoleClient, model.Participant{ID: t.ClientID}, t.IssueDescription)
	if err != nil {
		return nil, err
	}
	if seeded {
		if doc, err = s.store.Get(ctx, model.CollectionTickets, id); err != nil {
			return nil, err
		}
		if t, err = decodeTicket(doc); err != nil {
			return nil, err
		}
	}
	if t.ChatLog, err = s.thread.Messages(ctx, id); err != nil {
		return nil, err
	}
	return t, nil
}

// PostComment appends an agent reply. Closed tickets take no comments; the
// status is checked in the same write as the append.
func (s *TicketService) PostComment(ctx context.Context, sess model.Session, id, message string) (model.ChatMessage, error) {
	from := model.Participant{ID: sess.AgentID(), Name: sess.Agent.DisplayName}
	msg, err := s.thread.SendIf(ctx, id, model.RoleAgent, from, message, func(data map[string]any) error {
		if data["status"] == string(model.TicketStatusClosed) {
			return errs.ErrTicketClosed
		}
		return nil
	})
	if err != nil {
		return model.ChatMessage{}, err
	}
	s.events.ProduceEvent(ctx, kafka.EventTicketUpdated, id, map[string]any{
		"ticket_id": id,
		"agent_id":  sess.AgentID(),
		"seq":       msg.Seq,
	})
	return msg, nil
}

// Close marks the ticket closed. Closing a closed ticket changes nothing.
func (s *TicketService) Close(ctx context.Context, sess model.Session, id string) (*model.Ticket, error) {
	now := s.now().UTC()
	doc, err := s.store.Mutate(ctx, model.CollectionTickets, id, func(data map[string]any) error {
		if data["status"] == string(model.TicketStatusClosed) {
			return errNoChange
		}
		data["status"] = string(model.TicketStatusClosed)
		data["closed_at"] = now
		data["updated_at"] = now
		return nil
	})
	if errors.Is(err, errNoChange) {
		doc, err = s.store.Get(ctx, model.CollectionTickets, id)
		if err != nil {
			return nil, err
		}
		return decodeTicket(doc)
	}
	if err != nil {
		return nil, err
	}
	t, err := decodeTicket(doc)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, kafka.EventTicketClosed, t, sess.AgentID())
	return t, nil
}

// ListOpen lists the open tickets of the agent's clients, newest first.
func (s *TicketService) ListOpen(ctx context.Context, sess model.Session) ([]model.Ticket, error) {
	ids, _, err := s.directory.ClientIDs(ctx, sess.AgentID())
	if err != nil {
		return nil, err
	}
	docs, err := store.QueryIn(ctx, s.store, model.CollectionTickets, model.FieldClientID, ids,
		store.Eq("status", string(model.TicketStatusOpen)))
	if err != nil {
		return nil, err
	}
	out := make([]model.Ticket, 0, len(docs))
	for _, doc := range docs {
		t, err := decodeTicket(doc)
		if err != nil {
			s.logger.Warn("ticket: skip undecodable record", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		out = append(out, *t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Subscribe streams the ticket thread. See store.Cancel.
func (s *TicketService) Subscribe(ctx context.Context, id string, fn func([]model.ChatMessage)) (store.Cancel, error) {
	if _, err := s.store.Get(ctx, model.CollectionTickets, id); err != nil {
		return nil, err
	}
	return s.thread.Subscribe(ctx, id, fn)
}

func (s *TicketService) changed(ctx context.Context, event string, t *model.Ticket, agentID string) {
	payload := map[string]any{
		"ticket_id": t.ID,
		"client_id": t.ClientID,
		"status":    string(t.Status),
	}
	if agentID != "" {
		payload["agent_id"] = agentID
	}
	s.events.ProduceEvent(ctx, event, t.ID, payload)
	s.search.IndexTicketAsync(t)
}
