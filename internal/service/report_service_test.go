package service

import (
	"context"
	"testing"

	"socialcomments/internal/models"
	"socialcomments/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReportService(comments *commentRepoStub, replies *replyRepoStub, pins *pinRepoStub, platform *platformRepoStub, caps CapabilityChecker) *ReportService {
	if comments == nil {
		comments = noopCommentRepo()
	}
	if replies == nil {
		replies = noopReplyRepo()
	}
	if pins == nil {
		pins = noopPinRepo()
	}
	if platform == nil {
		platform = noopPlatformRepo()
	}
	if caps == nil {
		caps = grantAllCaps()
	}
	return NewReportService(comments, replies, pins, platform, caps,
		NewVisibilityService(platform, caps), 25)
}

func TestReportService_CourseComments(t *testing.T) {
	t.Parallel()

	t.Run("requires report capability", func(t *testing.T) {
		t.Parallel()
		svc := newTestReportService(nil, nil, nil, nil, grantCaps(CapView))
		_, err := svc.CourseComments(context.Background(), repository.ReportFilter{CourseID: 1}, 3, 0)
		assertPermissionError(t, err)
	})

	t.Run("passes filter through and pages", func(t *testing.T) {
		t.Parallel()
		var gotFilter repository.ReportFilter
		var gotOffset int

		comments := noopCommentRepo()
		comments.listReportFn = func(_ context.Context, f repository.ReportFilter, _ models.GroupSet, offset, _ int) ([]models.Comment, int64, error) {
			gotFilter = f
			gotOffset = offset
			return []models.Comment{{ID: 1}}, 60, nil
		}

		svc := newTestReportService(comments, nil, nil, nil, nil)
		filter := repository.ReportFilter{CourseID: 1, AuthorPrefix: "ava", FromTime: 100}

		page, err := svc.CourseComments(context.Background(), filter, 3, 1)
		require.NoError(t, err)
		assert.Equal(t, filter, gotFilter)
		assert.Equal(t, 25, gotOffset)
		assert.Equal(t, 1, page.CurrentPage)
		assert.Equal(t, 3, page.PageCount)
		assert.Equal(t, int64(60), page.Total)
	})
}

func TestReportService_CourseNewItems(t *testing.T) {
	t.Parallel()

	comments := noopCommentRepo()
	comments.listByCourseSinceFn = func(_ context.Context, _ uint, _ models.GroupSet, since int64) ([]models.Comment, error) {
		assert.Equal(t, int64(500), since)
		return []models.Comment{{ID: 1}, {ID: 2}}, nil
	}
	replies := noopReplyRepo()
	replies.countByCommentsFn = func(_ context.Context, _ []uint) (map[uint]int64, error) {
		return map[uint]int64{1: 3}, nil
	}

	svc := newTestReportService(comments, replies, nil, nil, nil)
	feed, err := svc.CourseNewItems(context.Background(), 1, 3, 500)
	require.NoError(t, err)
	require.Len(t, feed.Items, 2)
	assert.Equal(t, int64(3), feed.Items[0].ReplyCount)
	assert.Equal(t, int64(0), feed.Items[1].ReplyCount)
}

func TestReportService_PinnedCourseComments(t *testing.T) {
	t.Parallel()

	pins := noopPinRepo()
	pins.listByUserTypeFn = func(_ context.Context, _ uint, itemType int) ([]models.Pin, error) {
		if itemType == models.PinItemTypeComment {
			return []models.Pin{{ItemType: itemType, ItemID: 5}, {ItemType: itemType, ItemID: 6}}, nil
		}
		return []models.Pin{{ItemType: itemType, ItemID: 7}, {ItemType: itemType, ItemID: 99}}, nil
	}

	comments := noopCommentRepo()
	comments.listByIDsFn = func(_ context.Context, ids []uint) ([]models.Comment, error) {
		// Comment 6 belongs to another course and must be filtered out.
		return []models.Comment{
			{ID: 5, CourseID: 1, GroupID: 0},
			{ID: 6, CourseID: 2, GroupID: 0},
		}, nil
	}
	comments.countByContextsFn = func(_ context.Context, ids []uint) (map[uint]int64, error) {
		assert.Equal(t, []uint{7}, ids)
		return map[uint]int64{7: 12}, nil
	}

	platform := noopPlatformRepo()
	platform.contextsByCourseFn = func(_ context.Context, _ uint) ([]models.CourseContext, error) {
		// Context 99 is in another course.
		return []models.CourseContext{{ID: 7, CourseID: 1}}, nil
	}

	svc := newTestReportService(comments, nil, pins, platform, nil)
	overview, err := svc.PinnedCourseComments(context.Background(), 1, 3)
	require.NoError(t, err)

	require.Len(t, overview.Comments, 1)
	assert.Equal(t, uint(5), overview.Comments[0].ID)
	require.Len(t, overview.Pages, 1)
	assert.Equal(t, uint(7), overview.Pages[0].ContextID)
	assert.Equal(t, int64(12), overview.Pages[0].CommentCount)
}

func TestLifecycleService(t *testing.T) {
	t.Parallel()

	t.Run("course deleted purges everything", func(t *testing.T) {
		t.Parallel()
		var deletedCourse uint
		var purgedContexts []uint
		var deletedSubsCourse uint

		comments := noopCommentRepo()
		comments.deleteByCourseFn = func(_ context.Context, id uint) error {
			deletedCourse = id
			return nil
		}
		pins := noopPinRepo()
		pins.deletePagePinsFn = func(_ context.Context, ids []uint) error {
			purgedContexts = ids
			return nil
		}
		subs := noopSubscriptionRepo()
		subs.deleteByCourseFn = func(_ context.Context, id uint) error {
			deletedSubsCourse = id
			return nil
		}
		platform := noopPlatformRepo()
		platform.contextsByCourseFn = func(_ context.Context, _ uint) ([]models.CourseContext, error) {
			return []models.CourseContext{{ID: 7}, {ID: 8}}, nil
		}

		svc := NewLifecycleService(comments, pins, subs, platform)
		require.NoError(t, svc.HandleCourseDeleted(context.Background(), 1))
		assert.Equal(t, uint(1), deletedCourse)
		assert.Equal(t, []uint{7, 8}, purgedContexts)
		assert.Equal(t, uint(1), deletedSubsCourse)
	})

	t.Run("user deleted keeps content", func(t *testing.T) {
		t.Parallel()
		var marked uint
		var pinsDropped, subsDropped bool

		pins := noopPinRepo()
		pins.deleteByUserFn = func(_ context.Context, _ uint) error {
			pinsDropped = true
			return nil
		}
		subs := noopSubscriptionRepo()
		subs.deleteByUserFn = func(_ context.Context, _ uint) error {
			subsDropped = true
			return nil
		}
		platform := noopPlatformRepo()
		platform.markUserDeletedFn = func(_ context.Context, id uint) error {
			marked = id
			return nil
		}

		svc := NewLifecycleService(noopCommentRepo(), pins, subs, platform)
		require.NoError(t, svc.HandleUserDeleted(context.Background(), 3))
		assert.True(t, pinsDropped)
		assert.True(t, subsDropped)
		assert.Equal(t, uint(3), marked)
	})
}
