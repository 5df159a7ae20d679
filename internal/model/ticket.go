package model

import "time"

type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
)

type Ticket struct {
	ID               string        `json:"id"`
	ClientID         string        `json:"client_id"`
	IssueDescription string        `json:"issue_description"`
	Status           TicketStatus  `json:"status"`
	ChatLog          []ChatMessage `json:"chat_log"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	ClosedAt         *time.Time    `json:"closed_at,omitempty"`
	Version          int64         `json:"version"`
}
