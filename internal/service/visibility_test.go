package service

import (
	"context"
	"testing"

	"socialcomments/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisibilityService_RestrictedGroupIDs(t *testing.T) {
	t.Parallel()

	separate := &models.Course{ID: 1, GroupMode: models.GroupModeSeparate}
	visible := &models.Course{ID: 1, GroupMode: models.GroupModeVisible}

	t.Run("access all groups is unrestricted", func(t *testing.T) {
		t.Parallel()
		svc := NewVisibilityService(noopPlatformRepo(), grantCaps(CapAccessAllGroups))
		set, err := svc.RestrictedGroupIDs(context.Background(), separate, 3)
		require.NoError(t, err)
		assert.True(t, set.Unrestricted())
	})

	t.Run("non-separate mode is unrestricted", func(t *testing.T) {
		t.Parallel()
		svc := NewVisibilityService(noopPlatformRepo(), grantCaps(CapView))
		set, err := svc.RestrictedGroupIDs(context.Background(), visible, 3)
		require.NoError(t, err)
		assert.True(t, set.Unrestricted())
	})

	t.Run("separate mode restricts to member groups plus zero", func(t *testing.T) {
		t.Parallel()
		platform := noopPlatformRepo()
		platform.userGroupIDsFn = func(_ context.Context, _, _ uint) ([]uint, error) {
			return []uint{4, 9}, nil
		}
		svc := NewVisibilityService(platform, grantCaps(CapView))
		set, err := svc.RestrictedGroupIDs(context.Background(), separate, 3)
		require.NoError(t, err)
		assert.False(t, set.Unrestricted())
		assert.True(t, set.Contains(0))
		assert.True(t, set.Contains(4))
		assert.True(t, set.Contains(9))
		assert.False(t, set.Contains(5))
	})

	t.Run("no memberships still sees group zero", func(t *testing.T) {
		t.Parallel()
		svc := NewVisibilityService(noopPlatformRepo(), grantCaps(CapView))
		set, err := svc.RestrictedGroupIDs(context.Background(), separate, 3)
		require.NoError(t, err)
		assert.False(t, set.Unrestricted())
		assert.True(t, set.Contains(0))
	})
}

func TestVisibilityService_AccessibleGroups(t *testing.T) {
	t.Parallel()

	separate := &models.Course{ID: 1, GroupMode: models.GroupModeSeparate}

	platform := noopPlatformRepo()
	platform.courseGroupsFn = func(_ context.Context, _ uint) ([]models.Group, error) {
		return []models.Group{{ID: 4, Name: "Group A"}, {ID: 9, Name: "Group B"}}, nil
	}
	platform.userGroupIDsFn = func(_ context.Context, _, _ uint) ([]uint, error) {
		return []uint{4}, nil
	}

	t.Run("non-separate offers all participants only", func(t *testing.T) {
		t.Parallel()
		svc := NewVisibilityService(platform, grantCaps(CapPostComments))
		groups, err := svc.AccessibleGroups(context.Background(), &models.Course{ID: 1}, 3)
		require.NoError(t, err)
		assert.Equal(t, map[uint]string{0: "All participants"}, groups)
	})

	t.Run("privileged user gets every group and all participants", func(t *testing.T) {
		t.Parallel()
		svc := NewVisibilityService(platform, grantCaps(CapAccessAllGroups))
		groups, err := svc.AccessibleGroups(context.Background(), separate, 3)
		require.NoError(t, err)
		assert.Len(t, groups, 3)
		assert.Contains(t, groups, uint(0))
		assert.Contains(t, groups, uint(4))
		assert.Contains(t, groups, uint(9))
	})

	t.Run("member gets own groups without all participants", func(t *testing.T) {
		t.Parallel()
		svc := NewVisibilityService(platform, grantCaps(CapPostComments))
		groups, err := svc.AccessibleGroups(context.Background(), separate, 3)
		require.NoError(t, err)
		assert.Equal(t, map[uint]string{4: "Group A"}, groups)
	})
}

func TestVisibilityService_CanCreate(t *testing.T) {
	t.Parallel()

	separate := &models.Course{ID: 1, GroupMode: models.GroupModeSeparate}

	platform := noopPlatformRepo()
	platform.courseGroupsFn = func(_ context.Context, _ uint) ([]models.Group, error) {
		return []models.Group{{ID: 4, Name: "Group A"}}, nil
	}
	platform.userGroupIDsFn = func(_ context.Context, _, _ uint) ([]uint, error) {
		return []uint{4}, nil
	}

	t.Run("member may post into own group", func(t *testing.T) {
		t.Parallel()
		svc := NewVisibilityService(platform, grantCaps(CapPostComments))
		can, err := svc.CanCreate(context.Background(), separate, 3, 4)
		require.NoError(t, err)
		assert.True(t, can)
	})

	t.Run("member may not post into foreign group", func(t *testing.T) {
		t.Parallel()
		svc := NewVisibilityService(platform, grantCaps(CapPostComments))
		can, err := svc.CanCreate(context.Background(), separate, 3, 9)
		require.NoError(t, err)
		assert.False(t, can)
	})

	t.Run("groupless user in separate mode cannot post", func(t *testing.T) {
		t.Parallel()
		lonely := noopPlatformRepo()
		lonely.courseGroupsFn = platform.courseGroupsFn
		svc := NewVisibilityService(lonely, grantCaps(CapPostComments))
		can, err := svc.CanCreate(context.Background(), separate, 3, -1)
		require.NoError(t, err)
		assert.False(t, can)
	})

	t.Run("no posting capability", func(t *testing.T) {
		t.Parallel()
		svc := NewVisibilityService(platform, grantCaps(CapView))
		can, err := svc.CanCreate(context.Background(), separate, 3, -1)
		require.NoError(t, err)
		assert.False(t, can)
	})
}

func TestCapabilityChecker(t *testing.T) {
	t.Parallel()

	t.Run("admin holds everything", func(t *testing.T) {
		t.Parallel()
		platform := noopPlatformRepo()
		platform.getUserFn = func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, IsAdmin: true}, nil
		}
		checker := NewCapabilityChecker(platform)
		has, err := checker.Has(context.Background(), 1, 1, CapDeleteComments)
		require.NoError(t, err)
		assert.True(t, has)
	})

	t.Run("deleted user holds nothing", func(t *testing.T) {
		t.Parallel()
		platform := noopPlatformRepo()
		platform.getUserFn = func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, IsAdmin: true, Deleted: true}, nil
		}
		checker := NewCapabilityChecker(platform)
		has, err := checker.Has(context.Background(), 1, 1, CapView)
		require.NoError(t, err)
		assert.False(t, has)
	})

	t.Run("student archetype", func(t *testing.T) {
		t.Parallel()
		platform := noopPlatformRepo()
		platform.userRolesFn = func(_ context.Context, _, _ uint) ([]string, error) {
			return []string{models.RoleStudent}, nil
		}
		checker := NewCapabilityChecker(platform)

		has, err := checker.Has(context.Background(), 1, 1, CapPostComments)
		require.NoError(t, err)
		assert.True(t, has)

		has, err = checker.Has(context.Background(), 1, 1, CapDeleteComments)
		require.NoError(t, err)
		assert.False(t, has)
	})

	t.Run("teacher archetype", func(t *testing.T) {
		t.Parallel()
		platform := noopPlatformRepo()
		platform.userRolesFn = func(_ context.Context, _, _ uint) ([]string, error) {
			return []string{models.RoleTeacher}, nil
		}
		checker := NewCapabilityChecker(platform)

		for _, cap := range []Capability{CapDeleteComments, CapAccessAllGroups, CapViewReport} {
			has, err := checker.Has(context.Background(), 1, 1, cap)
			require.NoError(t, err)
			assert.True(t, has, "teacher should hold %s", cap)
		}
	})

	t.Run("unenrolled user", func(t *testing.T) {
		t.Parallel()
		checker := NewCapabilityChecker(noopPlatformRepo())
		has, err := checker.Has(context.Background(), 1, 1, CapView)
		require.NoError(t, err)
		assert.False(t, has)
	})
}
