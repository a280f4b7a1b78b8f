package feedback

const (
	ReviewerSelf        = "SELF"
	ReviewerManager     = "MANAGER"
	ReviewerPeer        = "PEER"
	ReviewerSubordinate = "SUBORDINATE"

	GoalStatusPending   = "PENDING"
	GoalStatusApproved  = "APPROVED"
	GoalStatusRejected  = "REJECTED"
	GoalStatusModified  = "MODIFIED"
	GoalStatusCompleted = "COMPLETED"
	GoalStatusDraft     = "DRAFT"

	CycleStatusActive = "ACTIVE"

	DefaultMaxPeers = 2

	// ResponseAssignmentLimit caps the assignments echoed back to the caller.
	ResponseAssignmentLimit = 10
)

// TargetableGoalStatuses are the goal states that put an owner into a
// category cohort.
var TargetableGoalStatuses = []string{GoalStatusApproved, GoalStatusCompleted}
