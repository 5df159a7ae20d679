package chat

import "github.com/psds-microservice/casework-service/internal/model"

// Layout maps participant roles onto the array fields of a thread record.
// Two roles may share one field; entries then tell roles apart by their
// role tag.
type Layout struct {
	Collection string
	Fields     map[model.Role]string
	// CreateMissing lets Open and Send create the thread record.
	CreateMissing bool
}

// DualLayout is the agent/client chat: one sequence per side, keyed by
// client id, created on first use.
var DualLayout = Layout{
	Collection: model.CollectionAgentChat,
	Fields: map[model.Role]string{
		model.RoleAgent:  "Agent_chat",
		model.RoleClient: "Client_chat",
	},
	CreateMissing: true,
}

// TicketLayout is the ticket comment log: both roles append to chat_log.
// Tickets are created by intake, never by the engine.
var TicketLayout = Layout{
	Collection: model.CollectionTickets,
	Fields: map[model.Role]string{
		model.RoleAgent:  "chat_log",
		model.RoleClient: "chat_log",
	},
}

// fields returns each distinct field once, in a stable order.
func (l Layout) fields() []string {
	var out []string
	for _, r := range []model.Role{model.RoleAgent, model.RoleClient} {
		f := l.Fields[r]
		if f == "" || containsString(out, f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// fieldRole returns the only role writing to field, if there is one.
func (l Layout) fieldRole(field string) (model.Role, bool) {
	var role model.Role
	n := 0
	for r, f := range l.Fields {
		if f == field {
			role = r
			n++
		}
	}
	return role, n == 1
}

func containsString(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
