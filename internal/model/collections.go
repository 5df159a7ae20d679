package model

// Record store collections.
const (
	CollectionAgents            = "Agents"
	CollectionClients           = "Clients"
	CollectionApplications      = "Applications"
	CollectionAgentChat         = "AgentChat"
	CollectionTickets           = "Tickets"
	CollectionVisits            = "Visits"
	CollectionProgramForms      = "ProgramForms"
	CollectionScreeningCriteria = "ScreeningCriteria"
	CollectionServices          = "Services"
)
