package feedback

import "time"

type Employee struct {
	ID         string `json:"id"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department"`
	ManagerID  string `json:"managerId"`
	IsActive   bool   `json:"isActive"`
}

type Goal struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employeeId"`
	ManagerID  string `json:"managerId"`
	Title      string `json:"title"`
	Category   string `json:"category"`
	Status     string `json:"status"`
}

type Cycle struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Type          string    `json:"type"`
	StartDate     time.Time `json:"startDate"`
	EndDate       time.Time `json:"endDate"`
	Status        string    `json:"status"`
	CreatedBy     string    `json:"createdBy"`
	GoalID        string    `json:"goalId,omitempty"`
	GoalCategory  string    `json:"goalCategory,omitempty"`
	CompetencyIDs []string  `json:"competencyIds"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Assignment is a persisted feedback360 row.
type Assignment struct {
	ID           string     `json:"id"`
	CycleID      string     `json:"cycleId"`
	EmployeeID   string     `json:"employeeId"`
	ReviewerID   string     `json:"reviewerId"`
	ReviewerType string     `json:"reviewerType"`
	IsAnonymous  bool       `json:"isAnonymous"`
	IsCompleted  bool       `json:"isCompleted"`
	SubmittedAt  *time.Time `json:"submittedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// AssignmentIntent is an assignment the engine wants written.
type AssignmentIntent struct {
	EmployeeID   string `json:"employeeId"`
	ReviewerID   string `json:"reviewerId"`
	ReviewerType string `json:"reviewerType"`
	IsAnonymous  bool   `json:"isAnonymous"`
}

type Config struct {
	IncludeSelf         bool
	IncludeManager      bool
	IncludePeers        bool
	IncludeSubordinates bool
	MaxPeers            int
}

func DefaultConfig() Config {
	return Config{
		IncludeSelf:    true,
		IncludeManager: true,
		IncludePeers:   true,
		MaxPeers:       DefaultMaxPeers,
	}
}

// Cohort is the selected employees plus, for subordinate feedback, the active
// direct reports of every manager in it.
type Cohort struct {
	Members []Employee
	Reports map[string][]string
}

// Target says which employees a cycle is about. Fields are resolved in
// precedence order: EmployeeIDs, GoalID, GoalCategory, requester default.
type Target struct {
	EmployeeIDs  []string
	GoalID       string
	GoalCategory string
}

type CreateCycleInput struct {
	Name          string
	Description   string
	Type          string
	StartDate     time.Time
	EndDate       time.Time
	CompetencyIDs []string
	Target        Target
	Config        Config
}

type AssignmentFailure struct {
	EmployeeID   string `json:"employeeId"`
	ReviewerID   string `json:"reviewerId"`
	ReviewerType string `json:"reviewerType"`
	Error        string `json:"error"`
}

type BatchResult struct {
	Succeeded []Assignment
	Failed    []AssignmentFailure
}

type Breakdown struct {
	Self        int `json:"self"`
	Manager     int `json:"manager"`
	Peer        int `json:"peer"`
	Subordinate int `json:"subordinate"`
}

type Summary struct {
	TotalEmployees     int       `json:"totalEmployees"`
	AssignmentsCreated int       `json:"assignmentsCreated"`
	Errors             int       `json:"errors"`
	Breakdown          Breakdown `json:"breakdown"`
}

type CreateCycleResult struct {
	Cycle          Cycle
	TotalEmployees int
	Batch          BatchResult
}

func (r CreateCycleResult) Summary() Summary {
	summary := Summary{
		TotalEmployees:     r.TotalEmployees,
		AssignmentsCreated: len(r.Batch.Succeeded),
		Errors:             len(r.Batch.Failed),
	}
	for _, assignment := range r.Batch.Succeeded {
		switch assignment.ReviewerType {
		case ReviewerSelf:
			summary.Breakdown.Self++
		case ReviewerManager:
			summary.Breakdown.Manager++
		case ReviewerPeer:
			summary.Breakdown.Peer++
		case ReviewerSubordinate:
			summary.Breakdown.Subordinate++
		}
	}
	return summary
}

// FirstAssignments returns at most limit created assignments.
func (r CreateCycleResult) FirstAssignments(limit int) []Assignment {
	if len(r.Batch.Succeeded) <= limit {
		return r.Batch.Succeeded
	}
	return r.Batch.Succeeded[:limit]
}

// Reviewers returns each reviewer id once, in assignment order.
func (r CreateCycleResult) Reviewers() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, assignment := range r.Batch.Succeeded {
		if _, ok := seen[assignment.ReviewerID]; ok {
			continue
		}
		seen[assignment.ReviewerID] = struct{}{}
		out = append(out, assignment.ReviewerID)
	}
	return out
}
