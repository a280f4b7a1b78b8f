package notifications

const (
	TypeReviewAssigned = "review_assigned"
	TypeManagerChanged = "manager_changed"
	TypeManagerRemoved = "manager_removed"
)
