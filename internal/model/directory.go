package model

// Address is a postal address on an agent or client profile.
type Address struct {
	Line1 string `json:"line1,omitempty"`
	Line2 string `json:"line2,omitempty"`
	City  string `json:"city,omitempty"`
	State string `json:"state,omitempty"`
	Zip   string `json:"zip,omitempty"`
}

// Agent is a staff user. ID is the stable identity key; DisplayName is a
// mutable profile attribute.
type Agent struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	DisplayName string   `json:"displayName"`
	PhoneNumber string   `json:"phoneNumber,omitempty"`
	Address     *Address `json:"address,omitempty"`
	PhotoURL    string   `json:"photoURL,omitempty"`
}

// Client is a served individual owned by one agent at a time.
type Client struct {
	ClientID        string   `json:"client_id"`
	FullName        string   `json:"full_name"`
	AssignedAgentID string   `json:"assigned_agent_id"`
	Email           string   `json:"email,omitempty"`
	PhoneNumber     string   `json:"phone_number,omitempty"`
	Address         *Address `json:"address,omitempty"`
	DateOfBirth     string   `json:"date_of_birth,omitempty"`
	Gender          string   `json:"gender,omitempty"`
	ProfilePhotoURL string   `json:"profile_photo_url,omitempty"`
}

// ServiceHistory summarises one application on a client profile.
type ServiceHistory struct {
	ApplicationID string            `json:"application_id"`
	Status        ApplicationStatus `json:"status"`
	ProgramName   string            `json:"program_name,omitempty"`
	Services      []string          `json:"services,omitempty"`
	Documents     []string          `json:"documents,omitempty"`
}

// PendingTasks are the dashboard counters of an agent.
type PendingTasks struct {
	ApplicationApproval int `json:"application_approval"`
	ServiceMatching     int `json:"service_matching"`
	ServiceDelivery     int `json:"service_delivery"`
	RoutineCheckup      int `json:"routine_checkup"`
	ServiceIssues       int `json:"service_issues"`
}

// Session is the acting agent of one request, resolved once and passed into
// every operation.
type Session struct {
	Agent Agent
}

func (s Session) AgentID() string { return s.Agent.ID }
