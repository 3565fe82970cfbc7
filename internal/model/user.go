package model

import "time"

// Plan is a subscription tier.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPlus Plan = "plus"
	PlanPro  Plan = "pro"
)

// FreeHistoryRetention is how long snapshots are kept for free-plan users.
const FreeHistoryRetention = 7 * 24 * time.Hour

// HistoryRetention returns how long snapshots are kept for the plan.
// Zero means they are never pruned.
func (p Plan) HistoryRetention() time.Duration {
	switch p {
	case PlanPlus, PlanPro:
		return 0
	default:
		return FreeHistoryRetention
	}
}

// User is an account holder, identified by the subject of their auth token.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;size:128"`
	Email     string    `json:"email" gorm:"size:320"`
	Plan      Plan      `json:"plan" gorm:"size:16;not null;default:free"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
