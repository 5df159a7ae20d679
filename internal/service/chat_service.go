package service

import (
	"context"

	"github.com/psds-microservice/casework-service/internal/chat"
	"github.com/psds-microservice/casework-service/internal/model"
	"github.com/psds-microservice/casework-service/internal/store"
	"go.uber.org/zap"
)

// ChatService is the agent side of agent/client chats. Threads are keyed by
// client id and only open to the client's assigned agent.
type ChatService struct {
	engine    *chat.Engine
	directory *DirectoryService
}

func NewChatService(s store.Store, directory *DirectoryService, logger *zap.Logger) *ChatService {
	return &ChatService{engine: chat.NewEngine(s, chat.DualLayout, logger), directory: directory}
}

func (s *ChatService) participant(ctx context.Context, sess model.Session, clientID string) (model.Participant, error) {
	if _, err := s.directory.Client(ctx, sess, clientID); err != nil {
		return model.Participant{}, err
	}
	return model.Participant{ID: sess.AgentID(), Name: sess.Agent.DisplayName}, nil
}

// Open starts the chat with a client, creating the thread when needed.
func (s *ChatService) Open(ctx context.Context, sess model.Session, clientID string) ([]model.ChatMessage, error) {
	if _, err := s.participant(ctx, sess, clientID); err != nil {
		return nil, err
	}
	if err := s.engine.Open(ctx, clientID); err != nil {
		return nil, err
	}
	return s.engine.Messages(ctx, clientID)
}

func (s *ChatService) Send(ctx context.Context, sess model.Session, clientID, text string) (model.ChatMessage, error) {
	from, err := s.participant(ctx, sess, clientID)
	if err != nil {
		return model.ChatMessage{}, err
	}
	return s.engine.Send(ctx, clientID, model.RoleAgent, from, text)
}

func (s *ChatService) Messages(ctx context.Context, sess model.Session, clientID string) ([]model.ChatMessage, error) {
	if _, err := s.participant(ctx, sess, clientID); err != nil {
		return nil, err
	}
	return s.engine.Messages(ctx, clientID)
}

// MarkRead marks the client's messages read for the agent.
func (s *ChatService) MarkRead(ctx context.Context, sess model.Session, clientID string) (int, error) {
	if _, err := s.participant(ctx, sess, clientID); err != nil {
		return 0, err
	}
	return s.engine.MarkRead(ctx, clientID, model.RoleAgent)
}

func (s *ChatService) Subscribe(ctx context.Context, sess model.Session, clientID string, fn func([]model.ChatMessage)) (store.Cancel, error) {
	if _, err := s.participant(ctx, sess, clientID); err != nil {
		return nil, err
	}
	return s.engine.Subscribe(ctx, clientID, fn)
}
