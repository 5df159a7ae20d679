package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/psds-microservice/casework-service/internal/errs"
	"github.com/psds-microservice/casework-service/internal/inference"
	"github.com/psds-microservice/casework-service/internal/kafka"
	"github.com/psds-microservice/casework-service/internal/model"
	"github.com/psds-microservice/casework-service/internal/searchindex"
	"github.com/psds-microservice/casework-service/internal/store"
	"github.com/psds-microservice/casework-service/internal/workflow"
	"go.uber.org/zap"
)

// StepCopyProgramForm names the second step of Approve.
const StepCopyProgramForm = "copy_program_form"

// Document request kinds accepted by RequestDocs.
const (
	DocsKindInitial    = "docs"
	DocsKindAdditional = "additional_docs"
)

// ApplicationService moves applications through the status graph.
type ApplicationService struct {
	store      store.Store
	directory  *DirectoryService
	comparer   inference.Comparer
	events     kafka.EventProducer
	search     searchindex.Indexer
	criteriaID string
	logger     *zap.Logger
	now        func() time.Time
}

func NewApplicationService(
	s store.Store,
	directory *DirectoryService,
	comparer inference.Comparer,
	events kafka.EventProducer,
	search searchindex.Indexer,
	criteriaID string,
	logger *zap.Logger,
) *ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApplicationService{
		store:      s,
		directory:  directory,
		comparer:   comparer,
		events:     orNoopEvents(events),
		search:     orNoopIndexer(search),
		criteriaID: criteriaID,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *ApplicationService) Get(ctx context.Context, id string) (*model.Application, error) {
	doc, err := s.store.Get(ctx, model.CollectionApplications, id)
	if err != nil {
		return nil, err
	}
	return decodeApplication(doc)
}

// Transition moves the application to target. The current status is checked
// against the graph inside the same atomic write that sets the new status,
// the extra fields and the appended comment; an illegal move leaves the
// record untouched.
func (s *ApplicationService) Transition(ctx context.Context, sess model.Session, id string, target model.ApplicationStatus, comment string, extra map[string]any) (*model.Application, error) {
	return s.transition(ctx, sess, id, target, comment, extra, nil)
}

var reservedFields = map[string]bool{
	model.FieldStatus:       true,
	model.FieldAgentComment: true,
	model.FieldUpdatedAt:    true,
	model.FieldClientID:     true,
}

func (s *ApplicationService) transition(
	ctx context.Context,
	sess model.Session,
	id string,
	target model.ApplicationStatus,
	comment string,
	extra map[string]any,
	edit store.Mutator,
) (*model.Application, error) {
	if !workflow.KnownApplicationStatus(target) {
		return nil, errs.Invalid("unknown status %q", target)
	}
	for k := range extra {
		if err := store.CheckField(k); err != nil {
			return nil, err
		}
		if reservedFields[strings.SplitN(k, ".", 2)[0]] {
			return nil, errs.Invalid("field %s cannot be set directly", k)
		}
	}
	comment = strings.TrimSpace(comment)
	var from model.ApplicationStatus
	doc, err := s.store.Mutate(ctx, model.CollectionApplications, id, func(data map[string]any) error {
		current, _ := data[model.FieldStatus].(string)
		from = model.ApplicationStatus(current)
		if err := workflow.CheckApplication(from, target); err != nil {
			return err
		}
		if edit != nil {
			if err := edit(data); err != nil {
				return err
			}
		}
		var comments []any
		if cur, ok := data[model.FieldAgentComment]; ok && cur != nil {
			list, ok := cur.([]any)
			if !ok {
				return errs.Invalid("field %s is not a list", model.FieldAgentComment)
			}
			comments = list
		}
		data[model.FieldStatus] = string(target)
		for k, v := range extra {
			store.SetPath(data, k, v)
		}
		if comment != "" {
			data[model.FieldAgentComment] = append(comments, comment)
		}
		data[model.FieldUpdatedAt] = s.now().UTC()
		return nil
	})
	if err != nil {
		if errors.Is(err, errs.ErrInvalidTransition) {
			s.logger.Info("application: transition refused",
				zap.String("application_id", id), zap.String("agent_id", sess.AgentID()), zap.Error(err))
		}
		return nil, err
	}
	app, err := decodeApplication(doc)
	if err != nil {
		return nil, err
	}
	s.statusChanged(ctx, sess, app, from)
	return app, nil
}

func (s *ApplicationService) statusChanged(ctx context.Context, sess model.Session, app *model.Application, from model.ApplicationStatus) {
	s.logger.Info("application: status changed",
		zap.String("application_id", app.ID),
		zap.String("from", string(from)),
		zap.String("to", string(app.Status)),
		zap.String("agent_id", sess.AgentID()))
	payload := map[string]any{
		"application_id": app.ID,
		"client_id":      app.ClientID,
		"from":           string(from),
		"status":         string(app.Status),
		"agent_id":       sess.AgentID(),
	}
	if app.FinalProgramName != nil {
		payload["final_program_name"] = *app.FinalProgramName
	}
	s.events.ProduceEvent(ctx, kafka.EventApplicationStatusChanged, app.ID, payload)
	s.search.IndexApplicationAsync(app)
}

// Approve approves the application for program and then copies the
// program's form template onto it as formData. The two writes are
// sequential: when the copy fails the approved application is returned
// together with a *errs.PartialWriteError. A program without a template is
// not an error.
func (s *ApplicationService) Approve(ctx context.Context, sess model.Session, id, program, comment string) (*model.Application, error) {
	program = strings.TrimSpace(program)
	if program == "" {
		return nil, errs.Invalid("program name is required")
	}
	app, err := s.Transition(ctx, sess, id, model.ApplicationStatusApproved, comment, map[string]any{
		model.FieldFinalProgramName: program,
	})
	if err != nil {
		return nil, err
	}
	return s.copyProgramForm(ctx, app, program)
}

// CopyProgramForm repeats the template copy of Approve for an application
// that already has a final program, repairing a partial approval. Copying
// twice leaves the same formData.
func (s *ApplicationService) CopyProgramForm(ctx context.Context, sess model.Session, id string) (*model.Application, error) {
	app, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.FinalProgramName == nil || *app.FinalProgramName == "" {
		return nil, errs.Invalid("application %s has no final program", id)
	}
	s.logger.Info("application: copy form template",
		zap.String("application_id", id), zap.String("agent_id", sess.AgentID()))
	return s.copyProgramForm(ctx, app, *app.FinalProgramName)
}

func (s *ApplicationService) copyProgramForm(ctx context.Context, app *model.Application, program string) (*model.Application, error) {
	tpl, err := s.store.Get(ctx, model.CollectionProgramForms, program)
	if errors.Is(err, errs.ErrNotFound) {
		s.logger.Info("application: no form template for program",
			zap.String("application_id", app.ID), zap.String("program", program))
		return app, nil
	}
	if err != nil {
		s.logger.Warn("application: read form template", zap.String("application_id", app.ID), zap.Error(err))
		return app, &errs.PartialWriteError{Step: StepCopyProgramForm, Err: err}
	}
	doc, err := s.store.Update(ctx, model.CollectionApplications, app.ID, map[string]any{
		model.FieldFormData: tpl.Data,
	})
	if err != nil {
		s.logger.Warn("application: copy form template", zap.String("application_id", app.ID), zap.Error(err))
		return app, &errs.PartialWriteError{Step: StepCopyProgramForm, Err: err}
	}
	return decodeApplication(doc)
}

func (s *ApplicationService) Reject(ctx context.Context, sess model.Session, id, comment string) (*model.Application, error) {
	return s.Transition(ctx, sess, id, model.ApplicationStatusRejected, comment, nil)
}

// MarkHandled closes an application the agent resolved outside the
// programs, the pre-reject screen's alternative to rejection.
func (s *ApplicationService) MarkHandled(ctx context.Context, sess model.Session, id, comment string) (*model.Application, error) {
	return s.Transition(ctx, sess, id, model.ApplicationStatusHandledByAgent, comment, nil)
}

func (s *ApplicationService) RequestDocs(ctx context.Context, sess model.Session, id, kind, comment string) (*model.Application, error) {
	var target model.ApplicationStatus
	switch kind {
	case DocsKindInitial:
		target = model.ApplicationStatusRequestDocs
	case DocsKindAdditional:
		target = model.ApplicationStatusRequestAdditionalDocs
	default:
		return nil, errs.Invalid("document request kind %q", kind)
	}
	return s.Transition(ctx, sess, id, target, comment, nil)
}

// MatchServices adds services to agent_service_submit, never removing any,
// and marks the application service_submitted.
func (s *ApplicationService) MatchServices(ctx context.Context, sess model.Session, id string, services []string) (*model.Application, error) {
	services = cleanStrings(services)
	if len(services) == 0 {
		return nil, errs.Invalid("at least one service is required")
	}
	return s.transition(ctx, sess, id, model.ApplicationStatusServiceSubmitted, "", nil, func(data map[string]any) error {
		current := stringList(data[model.FieldAgentServiceSubmit])
		data[model.FieldAgentServiceSubmit] = union(current, services)
		return nil
	})
}

func (s *ApplicationService) ConfirmDelivery(ctx context.Context, sess model.Session, id, comment string) (*model.Application, error) {
	return s.Transition(ctx, sess, id, model.ApplicationStatusServiceReceived, comment, nil)
}

// Suggest asks the inference service to score the four screening answers
// against the screening criteria and stores the summary, the suggested
// program and three reasons. On any failure the record is left as it was.
func (s *ApplicationService) Suggest(ctx context.Context, sess model.Session, id string) (*model.Application, error) {
	app, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(app.FormScreeningData) < 4 {
		return nil, errs.Invalid("application %s has %d screening answers, need 4", id, len(app.FormScreeningData))
	}
	critDoc, err := s.store.Get(ctx, model.CollectionScreeningCriteria, s.criteriaID)
	if err != nil {
		return nil, fmt.Errorf("screening criteria: %w", err)
	}
	var crit model.ScreeningCriteria
	if err := critDoc.Decode(&crit); err != nil {
		return nil, err
	}
	if s.comparer == nil {
		return nil, fmt.Errorf("%w: inference service is not configured", errs.ErrExternalService)
	}

	var answers [4]string
	for i := range answers {
		answers[i] = app.FormScreeningData[i].Answer
	}
	prompts := inference.BuildPrompts(answers, [4]string{crit.Criteria1, crit.Criteria2, crit.Criteria3, crit.Criteria4})
	res, err := s.comparer.Compare(ctx, prompts)
	if err != nil {
		s.logger.Warn("application: suggestion failed", zap.String("application_id", id), zap.Error(err))
		if !errors.Is(err, errs.ErrExternalService) {
			err = fmt.Errorf("%w: %v", errs.ErrExternalService, err)
		}
		return nil, err
	}

	fields := map[string]any{
		model.FieldApplicationSummary:   answers[0],
		model.FieldSystemSuggestProgram: res.SuggestedProgram,
	}
	// reasons[0] answers the program question; the rest are the per-criterion reasons.
	for i := 1; i <= 3; i++ {
		if i < len(res.Reasons) {
			fields[fmt.Sprintf("%s.reason_%d", model.FieldReasonApprove, i)] = res.Reasons[i]
		}
	}
	doc, err := s.store.Update(ctx, model.CollectionApplications, id, fields)
	if err != nil {
		return nil, err
	}
	updated, err := decodeApplication(doc)
	if err != nil {
		return nil, err
	}
	s.events.ProduceEvent(ctx, kafka.EventApplicationSuggested, id, map[string]any{
		"application_id":         id,
		"system_suggest_program": res.SuggestedProgram,
		"agent_id":               sess.AgentID(),
	})
	return updated, nil
}

// Queue lists the applications of the agent's clients that are in one of
// statuses, newest first.
func (s *ApplicationService) Queue(ctx context.Context, sess model.Session, statuses ...model.ApplicationStatus) ([]model.QueueItem, error) {
	ids, clients, err := s.directory.ClientIDs(ctx, sess.AgentID())
	if err != nil {
		return nil, err
	}
	var extra []store.Predicate
	if len(statuses) > 0 {
		values := make([]string, 0, len(statuses))
		for _, st := range statuses {
			if !workflow.KnownApplicationStatus(st) {
				return nil, errs.Invalid("unknown status %q", st)
			}
			values = append(values, string(st))
		}
		extra = append(extra, store.In(model.FieldStatus, values))
	}
	docs, err := store.QueryIn(ctx, s.store, model.CollectionApplications, model.FieldClientID, ids, extra...)
	if err != nil {
		return nil, err
	}
	out := make([]model.QueueItem, 0, len(docs))
	for _, doc := range docs {
		a, err := decodeApplication(doc)
		if err != nil {
			s.logger.Warn("application: skip undecodable record", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		item := model.QueueItem{
			ID:             a.ID,
			ClientID:       a.ClientID,
			ClientFullName: clients[a.ClientID].FullName,
			Status:         a.Status,
			UpdatedAt:      a.UpdatedAt,
		}
		if a.FinalProgramName != nil {
			item.FinalProgramName = *a.FinalProgramName
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return timeOrZero(out[i].UpdatedAt).After(timeOrZero(out[j].UpdatedAt))
	})
	return out, nil
}

// ProgramServices returns the service catalogue of program. Catalogue
// records map program names, matched case-insensitively, to service names.
func (s *ApplicationService) ProgramServices(ctx context.Context, program string) ([]string, error) {
	program = strings.TrimSpace(program)
	if program == "" {
		return nil, errs.Invalid("program name is required")
	}
	docs, err := s.store.Query(ctx, model.CollectionServices)
	if err != nil {
		return nil, err
	}
	set := map[string]struct{}{}
	for _, doc := range docs {
		for key, v := range doc.Data {
			if !strings.EqualFold(key, program) {
				continue
			}
			switch t := v.(type) {
			case map[string]any:
				for name := range t {
					set[name] = struct{}{}
				}
			case []any:
				for _, name := range stringList(t) {
					set[name] = struct{}{}
				}
			}
		}
	}
	return sortedKeys(set), nil
}
