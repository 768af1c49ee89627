package models

// Course group modes.
const (
	GroupModeNone     = 0
	GroupModeVisible  = 1
	GroupModeSeparate = 2
)

// Context levels.
const (
	ContextLevelCourse = "course"
	ContextLevelModule = "module"
)

// Role archetypes granted per course (or site-wide with CourseID 0).
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

// SiteCourseID is the pseudo course id for site-wide role assignments.
const SiteCourseID = 0

// User is a snapshot of a host-platform account. Deleted users are kept as
// tombstones so authorship survives, but they are skipped by the digest run.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"size:100;uniqueIndex;not null" json:"username"`
	Email    string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password string `gorm:"size:255" json:"-"`
	IsAdmin  bool   `gorm:"not null;default:false" json:"is_admin"`
	Deleted  bool   `gorm:"not null;default:false" json:"deleted"`
}

// Course is a snapshot of a host-platform course.
type Course struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"size:255;not null" json:"name"`
	GroupMode int    `gorm:"not null;default:0" json:"group_mode"`
}

// CourseContext is the scope comments attach to: either the course itself or
// a single activity within it.
type CourseContext struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	CourseID uint   `gorm:"index;not null" json:"course_id"`
	Level    string `gorm:"size:20;not null;default:course" json:"level"`
	Name     string `gorm:"size:255;not null" json:"name"`
}

// TableName keeps the table name clear of GORM's default pluralization of
// the Go type name.
func (CourseContext) TableName() string {
	return "contexts"
}

// Group is a participation group within a course.
type Group struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	CourseID uint   `gorm:"index;not null" json:"course_id"`
	Name     string `gorm:"size:255;not null" json:"name"`
}

// GroupMember links a user to a group.
type GroupMember struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	GroupID uint `gorm:"not null;uniqueIndex:idx_group_members_group_user" json:"group_id"`
	UserID  uint `gorm:"not null;uniqueIndex:idx_group_members_group_user;index" json:"user_id"`
}

// RoleAssignment grants a role archetype to a user in a course. CourseID 0
// grants the role site-wide.
type RoleAssignment struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	UserID   uint   `gorm:"not null;uniqueIndex:idx_role_assignments_user_course_role" json:"user_id"`
	CourseID uint   `gorm:"not null;uniqueIndex:idx_role_assignments_user_course_role" json:"course_id"`
	Role     string `gorm:"size:30;not null;uniqueIndex:idx_role_assignments_user_course_role" json:"role"`
}
