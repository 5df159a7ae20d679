package model

import "time"

type Role string

const (
	RoleAgent  Role = "agent"
	RoleClient Role = "client"
)

func (r Role) Valid() bool { return r == RoleAgent || r == RoleClient }

// Other returns the counterpart role.
func (r Role) Other() Role {
	if r == RoleAgent {
		return RoleClient
	}
	return RoleAgent
}

// Participant identifies the author of a message.
type Participant struct {
	ID   string
	Name string
}

// ChatMessage is one entry of a message log.
type ChatMessage struct {
	Seq        int64     `json:"seq"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
	Sender     string    `json:"sender"`
	SenderName string    `json:"sender_name,omitempty"`
	Role       Role      `json:"role"`
	Read       bool      `json:"read"`
}
