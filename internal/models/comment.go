// Package models defines the persistent records and shared domain types.
package models

// Comment is a top-level post attached to a course or activity context.
// CourseID is denormalized from the context at creation time so course-level
// cleanup does not need a join; it is never client-settable. GroupID 0 means
// visible to all groups.
type Comment struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	ContextID    uint   `gorm:"index;not null" json:"context_id"`
	CourseID     uint   `gorm:"index;not null" json:"course_id"`
	Content      string `gorm:"type:text;not null" json:"content"`
	Format       string `gorm:"size:20;not null;default:plain" json:"format"`
	UserID       uint   `gorm:"index;not null" json:"user_id"`
	GroupID      uint   `gorm:"not null;default:0" json:"group_id"`
	TimeCreated  int64  `gorm:"not null" json:"time_created"`
	TimeModified int64  `gorm:"not null;index" json:"time_modified"`
}

// Reply is a single-level response to a comment. Replies have no group or
// context of their own; visibility is inherited from the parent comment.
type Reply struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	CommentID    uint   `gorm:"index;not null" json:"comment_id"`
	Content      string `gorm:"type:text;not null" json:"content"`
	Format       string `gorm:"size:20;not null;default:plain" json:"format"`
	UserID       uint   `gorm:"index;not null" json:"user_id"`
	TimeCreated  int64  `gorm:"not null" json:"time_created"`
	TimeModified int64  `gorm:"not null;index" json:"time_modified"`
}

// GroupSet is the set of group ids a viewer may see in a context.
// A nil GroupSet means the viewer is unrestricted. A non-nil set always
// contains 0, the "visible to everyone" group.
type GroupSet []uint

// Unrestricted reports whether the viewer may see every group's comments.
func (s GroupSet) Unrestricted() bool {
	return s == nil
}

// Contains reports whether the set allows the given group id.
func (s GroupSet) Contains(groupID uint) bool {
	if s == nil {
		return true
	}
	for _, id := range s {
		if id == groupID {
			return true
		}
	}
	return false
}
