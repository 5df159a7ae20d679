package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/psds-microservice/casework-service/internal/errs"
	"github.com/psds-microservice/casework-service/internal/kafka"
	"github.com/psds-microservice/casework-service/internal/model"
	"github.com/psds-microservice/casework-service/internal/store"
	"github.com/psds-microservice/casework-service/internal/workflow"
	"go.uber.org/zap"
)

const clockLayout = "15:04"

// VisitProposal is the input of Propose.
type VisitProposal struct {
	ClientID    string
	Date        time.Time
	StartTime   string
	EndTime     string
	Topic       string
	InitiatedBy string
}

// VisitService schedules agent/client visits.
type VisitService struct {
	store  store.Store
	loc    *time.Location
	events kafka.EventProducer
	logger *zap.Logger
	now    func() time.Time
}

// NewVisitService returns a coordinator whose day filters use loc.
func NewVisitService(s store.Store, loc *time.Location, events kafka.EventProducer, logger *zap.Logger) *VisitService {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VisitService{store: s, loc: loc, events: orNoopEvents(events), logger: logger, now: time.Now}
}

func (s *VisitService) Location() *time.Location { return s.loc }

// Propose creates a proposed visit and notes the contact on the client's
// first application. The note is best-effort.
func (s *VisitService) Propose(ctx context.Context, sess model.Session, p VisitProposal) (*model.Visit, error) {
	if err := s.validate(&p); err != nil {
		return nil, err
	}
	clientDoc, err := s.store.Get(ctx, model.CollectionClients, p.ClientID)
	if err != nil {
		return nil, err
	}
	client, err := decodeClient(clientDoc)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	doc, err := s.store.Create(ctx, model.CollectionVisits, "", map[string]any{
		"agent_id":         sess.AgentID(),
		"client_id":        p.ClientID,
		"client_full_name": client.FullName,
		"scheduled_date":   p.Date,
		"start_time":       p.StartTime,
		"end_time":         p.EndTime,
		"topic":            p.Topic,
		"status":           string(model.VisitStatusProposed),
		"initiated_by":     p.InitiatedBy,
		"created_at":       now,
		"updated_at":       now,
	})
	if err != nil {
		return nil, err
	}
	v, err := decodeVisit(doc)
	if err != nil {
		return nil, err
	}
	s.noteContact(ctx, client, now)
	s.changed(ctx, v, sess)
	return v, nil
}

func (s *VisitService) validate(p *VisitProposal) error {
	p.ClientID = strings.TrimSpace(p.ClientID)
	p.Topic = strings.TrimSpace(p.Topic)
	if p.ClientID == "" {
		return errs.Invalid("client_id is required")
	}
	if p.Date.IsZero() {
		return errs.Invalid("date is required")
	}
	start, err := time.Parse(clockLayout, p.StartTime)
	if err != nil {
		return errs.Invalid("start_time %q, want HH:MM", p.StartTime)
	}
	end, err := time.Parse(clockLayout, p.EndTime)
	if err != nil {
		return errs.Invalid("end_time %q, want HH:MM", p.EndTime)
	}
	if !end.After(start) {
		return errs.Invalid("end_time must be after start_time")
	}
	if p.Topic == "" {
		return errs.Invalid("topic is required")
	}
	switch p.InitiatedBy {
	case "":
		p.InitiatedBy = model.InitiatedByAgent
	case model.InitiatedByAgent, model.InitiatedByClient:
	default:
		return errs.Invalid("initiated_by %q", p.InitiatedBy)
	}
	return nil
}

func (s *VisitService) noteContact(ctx context.Context, client *model.Client, at time.Time) {
	apps, err := s.store.Query(ctx, model.CollectionApplications, store.Eq(model.FieldClientID, client.ClientID))
	if err != nil {
		s.logger.Warn("visit: look up application for contact note", zap.String("client_id", client.ClientID), zap.Error(err))
		return
	}
	if len(apps) == 0 {
		s.logger.Info("visit: client has no application, contact not noted", zap.String("client_id", client.ClientID))
		return
	}
	event := model.ContactEvent{Timestamp: at, Topic: "Contact client " + client.FullName}
	if _, err := s.store.AppendToArray(ctx, model.CollectionApplications, apps[0].ID, model.FieldContactBackTimestamps, event); err != nil {
		s.logger.Warn("visit: note contact", zap.String("application_id", apps[0].ID), zap.Error(err))
	}
}

func (s *VisitService) Confirm(ctx context.Context, sess model.Session, id string) (*model.Visit, error) {
	return s.move(ctx, sess, id, model.VisitStatusConfirmed, nil)
}

func (s *VisitService) Reject(ctx context.Context, sess model.Session, id string) (*model.Visit, error) {
	return s.move(ctx, sess, id, model.VisitStatusRejected, nil)
}

// Complete records the outcome of a confirmed visit. An empty result means
// successful; a failed visit needs reasons.
func (s *VisitService) Complete(ctx context.Context, sess model.Session, id, result, reasons string) (*model.Visit, error) {
	reasons = strings.TrimSpace(reasons)
	switch result {
	case "":
		result = model.VisitResultSuccessful
	case model.VisitResultSuccessful:
	case model.VisitResultFailed:
		if reasons == "" {
			return nil, errs.Invalid("reasons are required for a failed visit")
		}
	default:
		return nil, errs.Invalid("visit result %q", result)
	}
	return s.move(ctx, sess, id, model.VisitStatusVisited, func(data map[string]any) {
		data["visit_result"] = result
		if result == model.VisitResultFailed {
			data["visit_result_reasons"] = reasons
		} else {
			delete(data, "visit_result_reasons")
		}
	})
}

func (s *VisitService) move(ctx context.Context, sess model.Session, id string, to model.VisitStatus, edit func(map[string]any)) (*model.Visit, error) {
	doc, err := s.store.Mutate(ctx, model.CollectionVisits, id, func(data map[string]any) error {
		from, _ := data["status"].(string)
		if err := workflow.CheckVisit(model.VisitStatus(from), to); err != nil {
			return err
		}
		data["status"] = string(to)
		data["updated_at"] = s.now().UTC()
		if edit != nil {
			edit(data)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	v, err := decodeVisit(doc)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, v, sess)
	return v, nil
}

// Delete removes the visit whatever its status.
func (s *VisitService) Delete(ctx context.Context, sess model.Session, id string) error {
	if err := s.store.Delete(ctx, model.CollectionVisits, id); err != nil {
		return err
	}
	s.events.ProduceEvent(ctx, kafka.EventVisitChanged, id, map[string]any{
		"visit_id": id,
		"deleted":  true,
		"agent_id": sess.AgentID(),
	})
	return nil
}

// ListByAgent returns the agent's visits, latest scheduled first.
func (s *VisitService) ListByAgent(ctx context.Context, agentID string) ([]model.Visit, error) {
	visits, err := s.list(ctx, agentID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(visits, func(i, j int) bool {
		if !visits[i].ScheduledDate.Equal(visits[j].ScheduledDate) {
			return visits[i].ScheduledDate.After(visits[j].ScheduledDate)
		}
		return visits[i].StartTime > visits[j].StartTime
	})
	return visits, nil
}

// ListForDay returns the agent's visits whose scheduled date falls on the
// calendar day of day, both compared in the coordinator's time zone, in
// start time order.
func (s *VisitService) ListForDay(ctx context.Context, agentID string, day time.Time) ([]model.Visit, error) {
	visits, err := s.list(ctx, agentID)
	if err != nil {
		return nil, err
	}
	y, m, d := day.In(s.loc).Date()
	out := visits[:0]
	for _, v := range visits {
		vy, vm, vd := v.ScheduledDate.In(s.loc).Date()
		if vy == y && vm == m && vd == d {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (s *VisitService) list(ctx context.Context, agentID string) ([]model.Visit, error) {
	docs, err := s.store.Query(ctx, model.CollectionVisits, store.Eq("agent_id", agentID))
	if err != nil {
		return nil, err
	}
	out := make([]model.Visit, 0, len(docs))
	for _, doc := range docs {
		v, err := decodeVisit(doc)
		if err != nil {
			s.logger.Warn("visit: skip undecodable record", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		out = append(out, *v)
	}
	return out, nil
}

// CountProposed counts the agent's visits still waiting for confirmation.
func (s *VisitService) CountProposed(ctx context.Context, agentID string) (int, error) {
	docs, err := s.store.Query(ctx, model.CollectionVisits,
		store.Eq("agent_id", agentID), store.Eq("status", string(model.VisitStatusProposed)))
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (s *VisitService) changed(ctx context.Context, v *model.Visit, sess model.Session) {
	s.events.ProduceEvent(ctx, kafka.EventVisitChanged, v.ID, map[string]any{
		"visit_id":  v.ID,
		"client_id": v.ClientID,
		"status":    string(v.Status),
		"agent_id":  sess.AgentID(),
	})
}

