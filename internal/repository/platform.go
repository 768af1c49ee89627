package repository

import (
	"context"
	"errors"

	"socialcomments/internal/cache"
	"socialcomments/internal/models"

	"gorm.io/gorm"
)

// PlatformRepository reads the host-platform snapshot tables: users, courses,
// contexts, groups and role assignments.
type PlatformRepository interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetCourse(ctx context.Context, id uint) (*models.Course, error)
	GetContext(ctx context.Context, id uint) (*models.CourseContext, error)
	ContextsByCourse(ctx context.Context, courseID uint) ([]models.CourseContext, error)
	CourseGroups(ctx context.Context, courseID uint) ([]models.Group, error)
	UserGroupIDs(ctx context.Context, courseID, userID uint) ([]uint, error)
	UserRoles(ctx context.Context, userID, courseID uint) ([]string, error)
	MarkUserDeleted(ctx context.Context, id uint) error
}

type platformRepository struct {
	db *gorm.DB
}

// NewPlatformRepository returns a new PlatformRepository implementation.
func NewPlatformRepository(db *gorm.DB) PlatformRepository {
	return &platformRepository{db: db}
}

func (r *platformRepository) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *platformRepository) GetCourse(ctx context.Context, id uint) (*models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Course", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &course, nil
}

func (r *platformRepository) GetContext(ctx context.Context, id uint) (*models.CourseContext, error) {
	var cc models.CourseContext
	if err := r.db.WithContext(ctx).First(&cc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Context", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &cc, nil
}

func (r *platformRepository) ContextsByCourse(ctx context.Context, courseID uint) ([]models.CourseContext, error) {
	var contexts []models.CourseContext
	if err := r.db.WithContext(ctx).Where("course_id = ?", courseID).
		Order("id ASC").Find(&contexts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return contexts, nil
}

func (r *platformRepository) CourseGroups(ctx context.Context, courseID uint) ([]models.Group, error) {
	var groups []models.Group
	key := cache.CourseGroupsKey(courseID)

	err := cache.Aside(ctx, key, &groups, cache.GroupsTTL, func() error {
		return r.db.WithContext(ctx).Where("course_id = ?", courseID).
			Order("name ASC").Find(&groups).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return groups, nil
}

// UserGroupIDs returns the ids of the groups the user belongs to in a course.
// Group membership is read on every comment page load, so it sits behind the
// cache-aside helper.
func (r *platformRepository) UserGroupIDs(ctx context.Context, courseID, userID uint) ([]uint, error) {
	ids := []uint{}
	key := cache.UserGroupsKey(courseID, userID)

	err := cache.Aside(ctx, key, &ids, cache.GroupsTTL, func() error {
		return r.db.WithContext(ctx).Model(&models.GroupMember{}).
			Joins("JOIN groups ON groups.id = group_members.group_id").
			Where("groups.course_id = ? AND group_members.user_id = ?", courseID, userID).
			Order("group_members.group_id ASC").
			Pluck("group_members.group_id", &ids).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

// UserRoles returns the role archetypes assigned to the user in the given
// course plus any site-wide assignments (course id 0).
func (r *platformRepository) UserRoles(ctx context.Context, userID, courseID uint) ([]string, error) {
	roles := []string{}
	key := cache.UserRolesKey(userID, courseID)

	err := cache.Aside(ctx, key, &roles, cache.RolesTTL, func() error {
		return r.db.WithContext(ctx).Model(&models.RoleAssignment{}).
			Where("user_id = ? AND course_id IN ?", userID, []uint{courseID, models.SiteCourseID}).
			Pluck("role", &roles).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return roles, nil
}

func (r *platformRepository) MarkUserDeleted(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Update("deleted", true)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}
