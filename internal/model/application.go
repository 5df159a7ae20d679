package model

import "time"

type ApplicationStatus string

const (
	ApplicationStatusSubmitted             ApplicationStatus = "submitted"
	ApplicationStatusApproved              ApplicationStatus = "approved"
	ApplicationStatusRejected              ApplicationStatus = "rejected"
	ApplicationStatusRequestDocs           ApplicationStatus = "request_docs"
	ApplicationStatusRequestAdditionalDocs ApplicationStatus = "request_additional_docs"
	ApplicationStatusServiceSubmitted      ApplicationStatus = "service_submitted"
	ApplicationStatusServiceReceived       ApplicationStatus = "service_received"
	ApplicationStatusHandledByAgent        ApplicationStatus = "handled_by_agent"
)

// Application field names as stored in the record store.
const (
	FieldStatus                = "status"
	FieldClientID              = "client_id"
	FieldFinalProgramName      = "final_program_name"
	FieldAgentComment          = "agent_comment"
	FieldAgentServiceSubmit    = "agent_service_submit"
	FieldFormData              = "formData"
	FieldApplicationSummary    = "application_summary"
	FieldSystemSuggestProgram  = "system_suggest_program"
	FieldReasonApprove         = "reason_approve"
	FieldContactBackTimestamps = "agent_contact_back.timestamps"
	FieldUpdatedAt             = "updated_at"
)

// ScreeningAnswer is one question/answer pair of the intake screening form.
type ScreeningAnswer struct {
	Question string `json:"Question"`
	Answer   string `json:"Answer"`
}

// ContactEvent records an agent reaching out to the client.
type ContactEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Topic     string    `json:"topic"`
}

type ContactBack struct {
	Timestamps []ContactEvent `json:"timestamps,omitempty"`
}

// Application is one client's service request.
type Application struct {
	ID                    string            `json:"id"`
	ClientID              string            `json:"client_id"`
	Status                ApplicationStatus `json:"status"`
	FinalProgramName      *string           `json:"final_program_name,omitempty"`
	SystemSuggestProgram  string            `json:"system_suggest_program,omitempty"`
	SystemMatchedServices []string          `json:"system_matched_services,omitempty"`
	AgentServiceSubmit    []string          `json:"agent_service_submit,omitempty"`
	ApplicationSummary    string            `json:"application_summary,omitempty"`
	AgentComment          []string          `json:"agent_comment,omitempty"`
	ReasonApprove         map[string]string `json:"reason_approve,omitempty"`
	ReasonReject          map[string]string `json:"reason_reject,omitempty"`
	UploadedDocumentsPath map[string]string `json:"uploaded_documents_path,omitempty"`
	FormScreeningData     []ScreeningAnswer `json:"form_screening_data,omitempty"`
	AgentContactBack      ContactBack       `json:"agent_contact_back"`
	FormData              map[string]any    `json:"formData,omitempty"`
	CreatedAt             *time.Time        `json:"created_at,omitempty"`
	UpdatedAt             *time.Time        `json:"updated_at,omitempty"`
	Version               int64             `json:"version"`
}

// QueueItem is an application row in an agent's work queue.
type QueueItem struct {
	ID               string            `json:"id"`
	ClientID         string            `json:"client_id"`
	ClientFullName   string            `json:"client_full_name"`
	Status           ApplicationStatus `json:"status"`
	FinalProgramName string            `json:"final_program_name,omitempty"`
	UpdatedAt        *time.Time        `json:"updated_at,omitempty"`
}

// ScreeningCriteria holds the four eligibility criteria used by the
// suggestion step.
type ScreeningCriteria struct {
	Criteria1 string `json:"criteria_1"`
	Criteria2 string `json:"criteria_2"`
	Criteria3 string `json:"criteria_3"`
	Criteria4 string `json:"criteria_4"`
}

// Suggestion is what the inference service returned for an application.
type Suggestion struct {
	Summary          string            `json:"application_summary"`
	SuggestedProgram string            `json:"system_suggest_program"`
	Reasons          map[string]string `json:"reason_approve"`
}
