package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	userGroupsKeyPrefix   = "groups:course:%d:user:%d"
	courseGroupsKeyPrefix = "groups:course:%d"
	userRolesKeyPrefix    = "roles:user:%d:course:%d"
)

const (
	GroupsTTL = 5 * time.Minute
	RolesTTL  = 5 * time.Minute
)

func UserGroupsKey(courseID, userID uint) string {
	return fmt.Sprintf(userGroupsKeyPrefix, courseID, userID)
}

func CourseGroupsKey(courseID uint) string {
	return fmt.Sprintf(courseGroupsKeyPrefix, courseID)
}

func UserRolesKey(userID, courseID uint) string {
	return fmt.Sprintf(userRolesKeyPrefix, userID, courseID)
}

// Aside implements the cache-aside pattern: return the cached value if
// present, otherwise call fill and store the result. A nil client degrades to
// calling fill directly. Cache errors are never surfaced to the caller.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fill func() error) error {
	if client == nil {
		return fill()
	}

	if raw, err := client.Get(ctx, key).Bytes(); err == nil {
		if json.Unmarshal(raw, dest) == nil {
			return nil
		}
	}

	if err := fill(); err != nil {
		return err
	}

	if raw, err := json.Marshal(dest); err == nil {
		client.Set(ctx, key, raw, ttl)
	}
	return nil
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateUserGroups drops the cached group membership for one user in a course.
func InvalidateUserGroups(ctx context.Context, courseID, userID uint) {
	Invalidate(ctx, UserGroupsKey(courseID, userID))
}

// InvalidateCourseGroups drops the cached group list for a course.
func InvalidateCourseGroups(ctx context.Context, courseID uint) {
	Invalidate(ctx, CourseGroupsKey(courseID))
}
