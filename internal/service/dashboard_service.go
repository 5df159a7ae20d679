package service

import (
	"context"

	"github.com/psds-microservice/casework-service/internal/model"
	"github.com/psds-microservice/casework-service/internal/store"
)

// DashboardService computes the agent's pending-task counters.
type DashboardService struct {
	store     store.Store
	directory *DirectoryService
	visits    *VisitService
}

func NewDashboardService(s store.Store, directory *DirectoryService, visits *VisitService) *DashboardService {
	return &DashboardService{store: s, directory: directory, visits: visits}
}

// PendingTasks counts, over the agent's clients: applications awaiting
// approval (submitted or waiting on documents), awaiting matching
// (approved), awaiting delivery (service_submitted); proposed visits; and
// open tickets.
func (s *DashboardService) PendingTasks(ctx context.Context, sess model.Session) (model.PendingTasks, error) {
	var out model.PendingTasks
	ids, _, err := s.directory.ClientIDs(ctx, sess.AgentID())
	if err != nil {
		return out, err
	}
	apps, err := store.QueryIn(ctx, s.store, model.CollectionApplications, model.FieldClientID, ids,
		store.In(model.FieldStatus, []string{
			string(model.ApplicationStatusSubmitted),
			string(model.ApplicationStatusRequestDocs),
			string(model.ApplicationStatusApproved),
			string(model.ApplicationStatusServiceSubmitted),
		}))
	if err != nil {
		return out, err
	}
	for _, doc := range apps {
		status, _ := doc.Data[model.FieldStatus].(string)
		switch model.ApplicationStatus(status) {
		case model.ApplicationStatusSubmitted, model.ApplicationStatusRequestDocs:
			out.ApplicationApproval++
		case model.ApplicationStatusApproved:
			out.ServiceMatching++
		case model.ApplicationStatusServiceSubmitted:
			out.ServiceDelivery++
		}
	}
	if out.RoutineCheckup, err = s.visits.CountProposed(ctx, sess.AgentID()); err != nil {
		return out, err
	}
	tickets, err := store.QueryIn(ctx, s.store, model.CollectionTickets, model.FieldClientID, ids,
		store.Eq("status", string(model.TicketStatusOpen)))
	if err != nil {
		return out, err
	}
	out.ServiceIssues = len(tickets)
	return out, nil
}
