package assessment

import "time"

type Competency struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Category     Category       `json:"category"`
	Weight       float64        `json:"weight"`
	Guidelines   map[int]string `json:"guidelines,omitempty"`
	DepartmentID string         `json:"departmentId,omitempty"`
	RoleSpecific bool           `json:"roleSpecific"`
	Active       bool           `json:"active"`
}

type Assessment struct {
	ID                  string    `json:"id"`
	TenantID            string    `json:"tenantId"`
	EmployeeID          string    `json:"employeeId"`
	AssessorID          string    `json:"assessorId"`
	CompetencyID        string    `json:"competencyId"`
	CycleID             string    `json:"cycleId,omitempty"`
	Type                Type      `json:"assessmentType"`
	Rating              *int      `json:"rating"`
	Comments            string    `json:"comments"`
	DevelopmentNotes    string    `json:"developmentNotes"`
	Status              Status    `json:"status"`
	LastRejectionReason string    `json:"lastRejectionReason,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// Snapshot is the flattened, pre-loaded view of an assessment that the
// policy functions consume. It carries ids and display strings only.
type Snapshot struct {
	ID               string
	TenantID         string
	EmployeeID       string
	EmployeeName     string
	AssessorID       string
	AssessorName     string
	ManagerID        string
	CompetencyID     string
	CompetencyName   string
	CompetencyWeight float64
	CycleID          string
	Type             Type
	Status           Status
	Rating           *int
}

func (s Snapshot) Dated() bool {
	return s.CycleID != ""
}

type HistoryEntry struct {
	AssessmentID string    `json:"assessmentId"`
	From         Status    `json:"from"`
	To           Status    `json:"to"`
	ActorID      string    `json:"actorId"`
	Reason       string    `json:"reason,omitempty"`
	At           time.Time `json:"at"`
}

type Submission struct {
	Rating           *int
	Comments         string
	DevelopmentNotes string
}

// Change is the field set written together with a status swap.
type Change struct {
	Submission      *Submission
	RejectionReason string
	History         HistoryEntry
}

type AssignInput struct {
	EmployeeID   string
	AssessorID   string
	CompetencyID string
	CycleID      string
	Type         Type
}

type TransitionRequest struct {
	TenantID     string
	ActorID      string
	AssessmentID string
	Action       Action
	// Expected is the status the caller last observed. Empty means the
	// status read by the service is used as the precondition.
	Expected   Status
	Submission Submission
	Reason     string
}
