package searchindex

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/psds-microservice/casework-service/internal/model"
	"go.uber.org/zap"
)

// Indexer pushes records to the search service. Calls never fail the caller.
type Indexer interface {
	IndexApplicationAsync(a *model.Application)
	IndexTicketAsync(t *model.Ticket)
}

// Client отправляет заявки и тикеты в search-service для индексации (best-effort, не блокирует API).
type Client struct {
	baseURL string
	http    *resty.Client
	logger  *zap.Logger
}

// NewClient возвращает клиент. Если baseURL пустой, вызовы no-op.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		logger:  logger,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(5*time.Second).
			SetHeader("Content-Type", "application/json"),
	}
}

// IndexApplicationPayload is the body of POST /search/index/application.
type IndexApplicationPayload struct {
	ApplicationID    string   `json:"application_id"`
	ClientID         string   `json:"client_id"`
	Status           string   `json:"status"`
	FinalProgramName string   `json:"final_program_name,omitempty"`
	Services         []string `json:"services,omitempty"`
	Summary          string   `json:"summary,omitempty"`
}

// IndexTicketPayload — тело POST /search/index/ticket.
type IndexTicketPayload struct {
	TicketID         string `json:"ticket_id"`
	ClientID         string `json:"client_id"`
	IssueDescription string `json:"issue_description"`
	Status           string `json:"status"`
}

func (c *Client) IndexApplication(ctx context.Context, a *model.Application) {
	if c.baseURL == "" {
		return
	}
	payload := IndexApplicationPayload{
		ApplicationID: a.ID,
		ClientID:      a.ClientID,
		Status:        string(a.Status),
		Services:      a.AgentServiceSubmit,
		Summary:       a.ApplicationSummary,
	}
	if a.FinalProgramName != nil {
		payload.FinalProgramName = *a.FinalProgramName
	}
	c.post(ctx, "/search/index/application", a.ID, payload)
}

func (c *Client) IndexTicket(ctx context.Context, t *model.Ticket) {
	if c.baseURL == "" {
		return
	}
	c.post(ctx, "/search/index/ticket", t.ID, IndexTicketPayload{
		TicketID:         t.ID,
		ClientID:         t.ClientID,
		IssueDescription: t.IssueDescription,
		Status:           string(t.Status),
	})
}

func (c *Client) post(ctx context.Context, path, id string, body any) {
	resp, err := c.http.R().SetContext(ctx).SetBody(body).Post(path)
	if err != nil {
		c.logger.Warn("searchindex: request failed", zap.String("path", path), zap.String("id", id), zap.Error(err))
		return
	}
	if resp.StatusCode() != http.StatusOK {
		c.logger.Warn("searchindex: unexpected status", zap.String("path", path), zap.String("id", id), zap.Int("status", resp.StatusCode()))
	}
}

// IndexApplicationAsync вызывает IndexApplication в отдельной горутине
// со своим таймаутом (не блокирует ответ API).
func (c *Client) IndexApplicationAsync(a *model.Application) {
	if c.baseURL == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.IndexApplication(ctx, a)
	}()
}

func (c *Client) IndexTicketAsync(t *model.Ticket) {
	if c.baseURL == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.IndexTicket(ctx, t)
	}()
}
