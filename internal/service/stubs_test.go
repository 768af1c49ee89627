package service

import (
	"context"
	"errors"
	"testing"

	"socialcomments/internal/models"
	"socialcomments/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock returns a Clock frozen at ts.
func fixedClock(ts int64) Clock {
	return func() int64 { return ts }
}

// capsStub grants a fixed capability set to every user.
type capsStub struct {
	granted map[Capability]bool
	hasFn   func(ctx context.Context, userID, courseID uint, cap Capability) (bool, error)
}

func (s *capsStub) Has(ctx context.Context, userID, courseID uint, cap Capability) (bool, error) {
	if s.hasFn != nil {
		return s.hasFn(ctx, userID, courseID, cap)
	}
	return s.granted[cap], nil
}

func grantCaps(caps ...Capability) *capsStub {
	granted := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		granted[c] = true
	}
	return &capsStub{granted: granted}
}

func grantAllCaps() *capsStub {
	return grantCaps(CapView, CapPostComments, CapPinItems, CapSubscribe,
		CapDeleteOwnComments, CapDeleteComments, CapDeleteOwnReplies,
		CapDeleteReplies, CapAccessAllGroups, CapViewReport)
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	getByIDFn           func(context.Context, uint) (*models.Comment, error)
	createFn            func(context.Context, *models.Comment) error
	updateContentFn     func(context.Context, uint, string, int64) error
	deleteCascadeFn     func(context.Context, uint) error
	countVisibleFn      func(context.Context, uint, models.GroupSet) (int64, error)
	listPageFn          func(context.Context, uint, models.GroupSet, int, int) ([]models.Comment, error)
	listReportFn        func(context.Context, repository.ReportFilter, models.GroupSet, int, int) ([]models.Comment, int64, error)
	listByIDsFn         func(context.Context, []uint) ([]models.Comment, error)
	countByContextsFn   func(context.Context, []uint) (map[uint]int64, error)
	listByCourseSinceFn func(context.Context, uint, models.GroupSet, int64) ([]models.Comment, error)
	deleteByCourseFn    func(context.Context, uint) error
}

func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment) error {
	return s.createFn(ctx, c)
}
func (s *commentRepoStub) UpdateContent(ctx context.Context, id uint, content string, tm int64) error {
	return s.updateContentFn(ctx, id, content, tm)
}
func (s *commentRepoStub) DeleteCascade(ctx context.Context, id uint) error {
	return s.deleteCascadeFn(ctx, id)
}
func (s *commentRepoStub) CountVisible(ctx context.Context, contextID uint, groups models.GroupSet) (int64, error) {
	return s.countVisibleFn(ctx, contextID, groups)
}
func (s *commentRepoStub) ListPage(ctx context.Context, contextID uint, groups models.GroupSet, offset, limit int) ([]models.Comment, error) {
	return s.listPageFn(ctx, contextID, groups, offset, limit)
}
func (s *commentRepoStub) ListReport(ctx context.Context, f repository.ReportFilter, groups models.GroupSet, offset, limit int) ([]models.Comment, int64, error) {
	return s.listReportFn(ctx, f, groups, offset, limit)
}
func (s *commentRepoStub) ListByIDs(ctx context.Context, ids []uint) ([]models.Comment, error) {
	return s.listByIDsFn(ctx, ids)
}
func (s *commentRepoStub) CountByContexts(ctx context.Context, ids []uint) (map[uint]int64, error) {
	return s.countByContextsFn(ctx, ids)
}
func (s *commentRepoStub) ListByCourseSince(ctx context.Context, courseID uint, groups models.GroupSet, since int64) ([]models.Comment, error) {
	return s.listByCourseSinceFn(ctx, courseID, groups, since)
}
func (s *commentRepoStub) DeleteByCourse(ctx context.Context, courseID uint) error {
	return s.deleteByCourseFn(ctx, courseID)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		getByIDFn:       func(_ context.Context, id uint) (*models.Comment, error) { return &models.Comment{ID: id}, nil },
		createFn:        func(_ context.Context, _ *models.Comment) error { return nil },
		updateContentFn: func(_ context.Context, _ uint, _ string, _ int64) error { return nil },
		deleteCascadeFn: func(_ context.Context, _ uint) error { return nil },
		countVisibleFn:  func(_ context.Context, _ uint, _ models.GroupSet) (int64, error) { return 0, nil },
		listPageFn: func(_ context.Context, _ uint, _ models.GroupSet, _, _ int) ([]models.Comment, error) {
			return nil, nil
		},
		listReportFn: func(_ context.Context, _ repository.ReportFilter, _ models.GroupSet, _, _ int) ([]models.Comment, int64, error) {
			return nil, 0, nil
		},
		listByIDsFn: func(_ context.Context, _ []uint) ([]models.Comment, error) { return nil, nil },
		countByContextsFn: func(_ context.Context, _ []uint) (map[uint]int64, error) {
			return map[uint]int64{}, nil
		},
		listByCourseSinceFn: func(_ context.Context, _ uint, _ models.GroupSet, _ int64) ([]models.Comment, error) {
			return nil, nil
		},
		deleteByCourseFn: func(_ context.Context, _ uint) error { return nil },
	}
}

// replyRepoStub is a stub for repository.ReplyRepository.
type replyRepoStub struct {
	getByIDFn         func(context.Context, uint) (*models.Reply, error)
	createFn          func(context.Context, *models.Reply) error
	updateContentFn   func(context.Context, uint, string, int64) error
	deleteFn          func(context.Context, uint) error
	listByCommentsFn  func(context.Context, []uint) ([]models.Reply, error)
	countByCommentsFn func(context.Context, []uint) (map[uint]int64, error)
}

func (s *replyRepoStub) GetByID(ctx context.Context, id uint) (*models.Reply, error) {
	return s.getByIDFn(ctx, id)
}
func (s *replyRepoStub) Create(ctx context.Context, r *models.Reply) error { return s.createFn(ctx, r) }
func (s *replyRepoStub) UpdateContent(ctx context.Context, id uint, content string, tm int64) error {
	return s.updateContentFn(ctx, id, content, tm)
}
func (s *replyRepoStub) Delete(ctx context.Context, id uint) error { return s.deleteFn(ctx, id) }
func (s *replyRepoStub) ListByComments(ctx context.Context, ids []uint) ([]models.Reply, error) {
	return s.listByCommentsFn(ctx, ids)
}
func (s *replyRepoStub) CountByComments(ctx context.Context, ids []uint) (map[uint]int64, error) {
	return s.countByCommentsFn(ctx, ids)
}

func noopReplyRepo() *replyRepoStub {
	return &replyRepoStub{
		getByIDFn:        func(_ context.Context, id uint) (*models.Reply, error) { return &models.Reply{ID: id}, nil },
		createFn:         func(_ context.Context, _ *models.Reply) error { return nil },
		updateContentFn:  func(_ context.Context, _ uint, _ string, _ int64) error { return nil },
		deleteFn:         func(_ context.Context, _ uint) error { return nil },
		listByCommentsFn: func(_ context.Context, _ []uint) ([]models.Reply, error) { return nil, nil },
		countByCommentsFn: func(_ context.Context, _ []uint) (map[uint]int64, error) {
			return map[uint]int64{}, nil
		},
	}
}

// pinRepoStub is a stub for repository.PinRepository.
type pinRepoStub struct {
	existsFn           func(context.Context, uint, int, uint) (bool, error)
	createFn           func(context.Context, *models.Pin) error
	removeFn           func(context.Context, uint, int, uint) error
	pinnedCommentIDsFn func(context.Context, uint, []uint) (map[uint]bool, error)
	listByUserTypeFn   func(context.Context, uint, int) ([]models.Pin, error)
	deleteByUserFn     func(context.Context, uint) error
	deletePagePinsFn   func(context.Context, []uint) error
}

func (s *pinRepoStub) Exists(ctx context.Context, userID uint, itemType int, itemID uint) (bool, error) {
	return s.existsFn(ctx, userID, itemType, itemID)
}
func (s *pinRepoStub) Create(ctx context.Context, p *models.Pin) error { return s.createFn(ctx, p) }
func (s *pinRepoStub) Remove(ctx context.Context, userID uint, itemType int, itemID uint) error {
	return s.removeFn(ctx, userID, itemType, itemID)
}
func (s *pinRepoStub) PinnedCommentIDs(ctx context.Context, userID uint, ids []uint) (map[uint]bool, error) {
	return s.pinnedCommentIDsFn(ctx, userID, ids)
}
func (s *pinRepoStub) ListByUserAndType(ctx context.Context, userID uint, itemType int) ([]models.Pin, error) {
	return s.listByUserTypeFn(ctx, userID, itemType)
}
func (s *pinRepoStub) DeleteByUser(ctx context.Context, userID uint) error {
	return s.deleteByUserFn(ctx, userID)
}
func (s *pinRepoStub) DeletePagePins(ctx context.Context, contextIDs []uint) error {
	return s.deletePagePinsFn(ctx, contextIDs)
}

func noopPinRepo() *pinRepoStub {
	return &pinRepoStub{
		existsFn: func(_ context.Context, _ uint, _ int, _ uint) (bool, error) { return false, nil },
		createFn: func(_ context.Context, _ *models.Pin) error { return nil },
		removeFn: func(_ context.Context, _ uint, _ int, _ uint) error { return nil },
		pinnedCommentIDsFn: func(_ context.Context, _ uint, _ []uint) (map[uint]bool, error) {
			return map[uint]bool{}, nil
		},
		listByUserTypeFn: func(_ context.Context, _ uint, _ int) ([]models.Pin, error) { return nil, nil },
		deleteByUserFn:   func(_ context.Context, _ uint) error { return nil },
		deletePagePinsFn: func(_ context.Context, _ []uint) error { return nil },
	}
}

// subscriptionRepoStub is a stub for repository.SubscriptionRepository.
type subscriptionRepoStub struct {
	getByContextAndUserFn func(context.Context, uint, uint) (*models.Subscription, error)
	createFn              func(context.Context, *models.Subscription) error
	removeFn              func(context.Context, uint, uint) error
	advanceWatermarkFn    func(context.Context, uint, []uint, int64) error
	listSubscriberIDsFn   func(context.Context, int) ([]uint, error)
	deleteByCourseFn      func(context.Context, uint) error
	deleteByUserFn        func(context.Context, uint) error
}

func (s *subscriptionRepoStub) GetByContextAndUser(ctx context.Context, contextID, userID uint) (*models.Subscription, error) {
	return s.getByContextAndUserFn(ctx, contextID, userID)
}
func (s *subscriptionRepoStub) Create(ctx context.Context, sub *models.Subscription) error {
	return s.createFn(ctx, sub)
}
func (s *subscriptionRepoStub) Remove(ctx context.Context, contextID, userID uint) error {
	return s.removeFn(ctx, contextID, userID)
}
func (s *subscriptionRepoStub) AdvanceWatermark(ctx context.Context, userID uint, contextIDs []uint, ts int64) error {
	return s.advanceWatermarkFn(ctx, userID, contextIDs, ts)
}
func (s *subscriptionRepoStub) ListSubscriberIDs(ctx context.Context, limit int) ([]uint, error) {
	return s.listSubscriberIDsFn(ctx, limit)
}
func (s *subscriptionRepoStub) DeleteByCourse(ctx context.Context, courseID uint) error {
	return s.deleteByCourseFn(ctx, courseID)
}
func (s *subscriptionRepoStub) DeleteByUser(ctx context.Context, userID uint) error {
	return s.deleteByUserFn(ctx, userID)
}

func noopSubscriptionRepo() *subscriptionRepoStub {
	return &subscriptionRepoStub{
		getByContextAndUserFn: func(_ context.Context, _, _ uint) (*models.Subscription, error) { return nil, nil },
		createFn:              func(_ context.Context, _ *models.Subscription) error { return nil },
		removeFn:              func(_ context.Context, _, _ uint) error { return nil },
		advanceWatermarkFn:    func(_ context.Context, _ uint, _ []uint, _ int64) error { return nil },
		listSubscriberIDsFn:   func(_ context.Context, _ int) ([]uint, error) { return nil, nil },
		deleteByCourseFn:      func(_ context.Context, _ uint) error { return nil },
		deleteByUserFn:        func(_ context.Context, _ uint) error { return nil },
	}
}

// platformRepoStub is a stub for repository.PlatformRepository.
type platformRepoStub struct {
	getUserFn          func(context.Context, uint) (*models.User, error)
	getCourseFn        func(context.Context, uint) (*models.Course, error)
	getContextFn       func(context.Context, uint) (*models.CourseContext, error)
	contextsByCourseFn func(context.Context, uint) ([]models.CourseContext, error)
	courseGroupsFn     func(context.Context, uint) ([]models.Group, error)
	userGroupIDsFn     func(context.Context, uint, uint) ([]uint, error)
	userRolesFn        func(context.Context, uint, uint) ([]string, error)
	markUserDeletedFn  func(context.Context, uint) error
}

func (s *platformRepoStub) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.getUserFn(ctx, id)
}
func (s *platformRepoStub) GetCourse(ctx context.Context, id uint) (*models.Course, error) {
	return s.getCourseFn(ctx, id)
}
func (s *platformRepoStub) GetContext(ctx context.Context, id uint) (*models.CourseContext, error) {
	return s.getContextFn(ctx, id)
}
func (s *platformRepoStub) ContextsByCourse(ctx context.Context, courseID uint) ([]models.CourseContext, error) {
	return s.contextsByCourseFn(ctx, courseID)
}
func (s *platformRepoStub) CourseGroups(ctx context.Context, courseID uint) ([]models.Group, error) {
	return s.courseGroupsFn(ctx, courseID)
}
func (s *platformRepoStub) UserGroupIDs(ctx context.Context, courseID, userID uint) ([]uint, error) {
	return s.userGroupIDsFn(ctx, courseID, userID)
}
func (s *platformRepoStub) UserRoles(ctx context.Context, userID, courseID uint) ([]string, error) {
	return s.userRolesFn(ctx, userID, courseID)
}
func (s *platformRepoStub) MarkUserDeleted(ctx context.Context, id uint) error {
	return s.markUserDeletedFn(ctx, id)
}

func noopPlatformRepo() *platformRepoStub {
	return &platformRepoStub{
		getUserFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Email: "user@example.edu"}, nil
		},
		getCourseFn: func(_ context.Context, id uint) (*models.Course, error) {
			return &models.Course{ID: id, Name: "Course"}, nil
		},
		getContextFn: func(_ context.Context, id uint) (*models.CourseContext, error) {
			return &models.CourseContext{ID: id, CourseID: 1}, nil
		},
		contextsByCourseFn: func(_ context.Context, _ uint) ([]models.CourseContext, error) { return nil, nil },
		courseGroupsFn:     func(_ context.Context, _ uint) ([]models.Group, error) { return nil, nil },
		userGroupIDsFn:     func(_ context.Context, _, _ uint) ([]uint, error) { return nil, nil },
		userRolesFn:        func(_ context.Context, _, _ uint) ([]string, error) { return nil, nil },
		markUserDeletedFn:  func(_ context.Context, _ uint) error { return nil },
	}
}

// digestRepoStub is a stub for repository.DigestRepository.
type digestRepoStub struct {
	newRepliesFn  func(context.Context, uint) ([]repository.DigestReply, error)
	newCommentsFn func(context.Context, uint, []uint) ([]models.Comment, error)
}

func (s *digestRepoStub) NewReplies(ctx context.Context, userID uint) ([]repository.DigestReply, error) {
	return s.newRepliesFn(ctx, userID)
}
func (s *digestRepoStub) NewComments(ctx context.Context, userID uint, neededIDs []uint) ([]models.Comment, error) {
	return s.newCommentsFn(ctx, userID, neededIDs)
}

func noopDigestRepo() *digestRepoStub {
	return &digestRepoStub{
		newRepliesFn:  func(_ context.Context, _ uint) ([]repository.DigestReply, error) { return nil, nil },
		newCommentsFn: func(_ context.Context, _ uint, _ []uint) ([]models.Comment, error) { return nil, nil },
	}
}

// mailerStub records sends and can be told to fail.
type mailerStub struct {
	sendFn func(ctx context.Context, to, subject, htmlBody, textBody string) (string, error)
	sent   []string
}

func (s *mailerStub) Send(ctx context.Context, to, subject, htmlBody, textBody string) (string, error) {
	if s.sendFn != nil {
		return s.sendFn(ctx, to, subject, htmlBody, textBody)
	}
	s.sent = append(s.sent, subject)
	return "msg-1", nil
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

// assertPermissionError asserts that err is an AppError with code PERMISSION_DENIED.
func assertPermissionError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, "PERMISSION_DENIED", appErr.Code)
}

// assertNotFoundError asserts that err is an AppError with code NOT_FOUND.
func assertNotFoundError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}
