package model

import "time"

type VisitStatus string

const (
	VisitStatusProposed  VisitStatus = "proposed"
	VisitStatusConfirmed VisitStatus = "confirmed"
	VisitStatusRejected  VisitStatus = "rejected"
	VisitStatusVisited   VisitStatus = "visited"
)

const (
	VisitResultSuccessful = "successful"
	VisitResultFailed     = "failed"
)

const (
	InitiatedByAgent  = "agent"
	InitiatedByClient = "client"
)

// Visit is an appointment between an agent and a client.
type Visit struct {
	ID                 string      `json:"id"`
	AgentID            string      `json:"agent_id"`
	ClientID           string      `json:"client_id"`
	ClientFullName     string      `json:"client_full_name,omitempty"`
	ScheduledDate      time.Time   `json:"scheduled_date"`
	StartTime          string      `json:"start_time"`
	EndTime            string      `json:"end_time"`
	Topic              string      `json:"topic"`
	Status             VisitStatus `json:"status"`
	InitiatedBy        string      `json:"initiated_by"`
	VisitResult        string      `json:"visit_result,omitempty"`
	VisitResultReasons string      `json:"visit_result_reasons,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}
