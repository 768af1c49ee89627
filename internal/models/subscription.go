package models

// Subscription tracks a user's consent to receive digests for a context.
// TimeLastSent is the watermark: only items with time_modified at or after it
// count as new. On insert the watermark equals TimeCreated, so a fresh
// subscriber only receives strictly-future activity.
type Subscription struct {
	ID           uint  `gorm:"primaryKey" json:"id"`
	CourseID     uint  `gorm:"index;not null" json:"course_id"`
	ContextID    uint  `gorm:"not null;uniqueIndex:idx_subscriptions_context_user" json:"context_id"`
	UserID       uint  `gorm:"not null;uniqueIndex:idx_subscriptions_context_user;index" json:"user_id"`
	TimeLastSent int64 `gorm:"not null" json:"time_last_sent"`
	TimeCreated  int64 `gorm:"not null" json:"time_created"`
	TimeModified int64 `gorm:"not null" json:"time_modified"`
}
