// Package workflow holds the status graphs of applications and visits.
package workflow

import (
	"github.com/psds-microservice/casework-service/internal/errs"
	"github.com/psds-microservice/casework-service/internal/model"
)

var applicationGraph = map[model.ApplicationStatus][]model.ApplicationStatus{
	model.ApplicationStatusSubmitted: {
		model.ApplicationStatusApproved,
		model.ApplicationStatusRejected,
		model.ApplicationStatusRequestDocs,
		model.ApplicationStatusRequestAdditionalDocs,
		model.ApplicationStatusHandledByAgent,
	},
	// Matching may find documents missing and send the client back.
	model.ApplicationStatusApproved: {
		model.ApplicationStatusServiceSubmitted,
		model.ApplicationStatusRequestAdditionalDocs,
	},
	// A matched application can go through further matching rounds.
	model.ApplicationStatusServiceSubmitted: {
		model.ApplicationStatusServiceSubmitted,
		model.ApplicationStatusServiceReceived,
	},
	model.ApplicationStatusRequestDocs:           {model.ApplicationStatusSubmitted},
	model.ApplicationStatusRequestAdditionalDocs: {model.ApplicationStatusSubmitted},
}

var visitGraph = map[model.VisitStatus][]model.VisitStatus{
	model.VisitStatusProposed:  {model.VisitStatusConfirmed, model.VisitStatusRejected},
	model.VisitStatusConfirmed: {model.VisitStatusVisited},
}

// ApplicationStatuses lists every known application status.
func ApplicationStatuses() []model.ApplicationStatus {
	return []model.ApplicationStatus{
		model.ApplicationStatusSubmitted,
		model.ApplicationStatusApproved,
		model.ApplicationStatusRejected,
		model.ApplicationStatusRequestDocs,
		model.ApplicationStatusRequestAdditionalDocs,
		model.ApplicationStatusServiceSubmitted,
		model.ApplicationStatusServiceReceived,
		model.ApplicationStatusHandledByAgent,
	}
}

func VisitStatuses() []model.VisitStatus {
	return []model.VisitStatus{
		model.VisitStatusProposed,
		model.VisitStatusConfirmed,
		model.VisitStatusRejected,
		model.VisitStatusVisited,
	}
}

func KnownApplicationStatus(s model.ApplicationStatus) bool {
	for _, k := range ApplicationStatuses() {
		if k == s {
			return true
		}
	}
	return false
}

func CanTransitionApplication(from, to model.ApplicationStatus) bool {
	return contains(applicationGraph[from], to)
}

// CheckApplication returns ErrInvalidTransition unless to is reachable from
// from in one step.
func CheckApplication(from, to model.ApplicationStatus) error {
	if !CanTransitionApplication(from, to) {
		return errs.Transition(string(from), string(to))
	}
	return nil
}

// TerminalApplication reports whether no transition leaves s.
func TerminalApplication(s model.ApplicationStatus) bool {
	return len(applicationGraph[s]) == 0
}

func CanTransitionVisit(from, to model.VisitStatus) bool {
	return contains(visitGraph[from], to)
}

func CheckVisit(from, to model.VisitStatus) error {
	if !CanTransitionVisit(from, to) {
		return errs.Transition(string(from), string(to))
	}
	return nil
}

func contains[T comparable](list []T, v T) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}
