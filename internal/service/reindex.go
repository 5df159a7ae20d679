package service

import (
	"context"

	"github.com/psds-microservice/casework-service/internal/kafka"
	"github.com/psds-microservice/casework-service/internal/model"
	"github.com/psds-microservice/casework-service/internal/store"
	"go.uber.org/zap"
)

// SyncIndexer indexes one record and waits for the search service.
type SyncIndexer interface {
	IndexApplication(ctx context.Context, a *model.Application)
	IndexTicket(ctx context.Context, t *model.Ticket)
}

// Reindexer replays every application and ticket to search, through Kafka
// events when events is set and directly through the indexer otherwise.
type Reindexer struct {
	store   store.Store
	events  kafka.EventProducer
	indexer SyncIndexer
	logger  *zap.Logger
}

func NewReindexer(s store.Store, events kafka.EventProducer, indexer SyncIndexer, logger *zap.Logger) *Reindexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reindexer{store: s, events: events, indexer: indexer, logger: logger}
}

// Run returns how many applications and tickets were replayed.
func (r *Reindexer) Run(ctx context.Context) (apps, tickets int, err error) {
	appDocs, err := r.store.Query(ctx, model.CollectionApplications)
	if err != nil {
		return 0, 0, err
	}
	for i, doc := range appDocs {
		a, err := decodeApplication(doc)
		if err != nil {
			r.logger.Warn("reindex: skip undecodable application", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		if r.events != nil {
			payload := map[string]any{
				"application_id": a.ID,
				"client_id":      a.ClientID,
				"status":         string(a.Status),
				"services":       a.AgentServiceSubmit,
				"summary":        a.ApplicationSummary,
			}
			if a.FinalProgramName != nil {
				payload["final_program_name"] = *a.FinalProgramName
			}
			r.events.ProduceEvent(ctx, kafka.EventApplicationUpdated, a.ID, payload)
		} else if r.indexer != nil {
			r.indexer.IndexApplication(ctx, a)
		}
		apps++
		if (i+1)%50 == 0 {
			r.logger.Info("reindex: applications", zap.Int("done", i+1), zap.Int("total", len(appDocs)))
		}
	}

	ticketDocs, err := r.store.Query(ctx, model.CollectionTickets)
	if err != nil {
		return apps, 0, err
	}
	for _, doc := range ticketDocs {
		t, err := decodeTicket(doc)
		if err != nil {
			r.logger.Warn("reindex: skip undecodable ticket", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		if r.events != nil {
			r.events.ProduceEvent(ctx, kafka.EventTicketUpdated, t.ID, map[string]any{
				"ticket_id":         t.ID,
				"client_id":         t.ClientID,
				"issue_description": t.IssueDescription,
				"status":            string(t.Status),
			})
		} else if r.indexer != nil {
			r.indexer.IndexTicket(ctx, t)
		}
		tickets++
	}
	return apps, tickets, nil
}
