package service

import (
	"context"

	"socialcomments/internal/models"
	"socialcomments/internal/observability"
	"socialcomments/internal/repository"
	"socialcomments/internal/validation"
)

// Event names emitted on the comment write path.
const (
	EventCommentCreated = "comment_created"
	EventReplyCreated   = "reply_created"
)

// EventPublisher is the fire-and-forget event emitter for observers
// (digest/notification side channel). A nil publisher is valid.
type EventPublisher func(ctx context.Context, event string, contextID, objectID, userID uint)

// CommentServiceDeps bundles the collaborators of CommentService.
type CommentServiceDeps struct {
	Comments      repository.CommentRepository
	Replies       repository.ReplyRepository
	Pins          repository.PinRepository
	Subscriptions repository.SubscriptionRepository
	Platform      repository.PlatformRepository
	Capabilities  CapabilityChecker
	Visibility    *VisibilityService
	Clock         Clock
	Publish       EventPublisher

	CommentsPerPage int
	RepliesLimit    int
}

// CommentService implements the comment, reply, pin and subscription
// operations.
type CommentService struct {
	comments      repository.CommentRepository
	replies       repository.ReplyRepository
	pins          repository.PinRepository
	subscriptions repository.SubscriptionRepository
	platform      repository.PlatformRepository
	caps          CapabilityChecker
	visibility    *VisibilityService
	clock         Clock
	publish       EventPublisher

	commentsPerPage int
	repliesLimit    int
}

// NewCommentService returns a new CommentService.
func NewCommentService(d CommentServiceDeps) *CommentService {
	clock := d.Clock
	if clock == nil {
		clock = SystemClock
	}
	perPage := d.CommentsPerPage
	if perPage <= 0 {
		perPage = 10
	}
	return &CommentService{
		comments:        d.Comments,
		replies:         d.Replies,
		pins:            d.Pins,
		subscriptions:   d.Subscriptions,
		platform:        d.Platform,
		caps:            d.Capabilities,
		visibility:      d.Visibility,
		clock:           clock,
		publish:         d.Publish,
		commentsPerPage: perPage,
		repliesLimit:    d.RepliesLimit,
	}
}

// SaveCommentInput carries a create (ID 0) or update (ID > 0) request.
// GroupID below 0 means no group was chosen.
type SaveCommentInput struct {
	ContextID uint
	Content   string
	Format    string
	GroupID   int64
	ID        uint
	UserID    uint
}

// SaveCommentResult is the save_comment payload: the stored record plus the
// new total of comments visible to the acting user in the context.
type SaveCommentResult struct {
	Comment *models.Comment `json:"comment"`
	Count   int64           `json:"count"`
}

// SaveComment creates or updates a comment. On create the author is always
// the acting user and the author is subscribed to the context before the
// comment is stored. On update only content and time_modified change;
// identity fields are re-read from the stored record and preserved.
func (s *CommentService) SaveComment(ctx context.Context, in SaveCommentInput) (*SaveCommentResult, error) {
	if err := validation.Content(in.Content); err != nil {
		return nil, err
	}

	if in.ID > 0 {
		return s.updateComment(ctx, in)
	}
	return s.createComment(ctx, in)
}

func (s *CommentService) createComment(ctx context.Context, in SaveCommentInput) (*SaveCommentResult, error) {
	cc, err := s.platform.GetContext(ctx, in.ContextID)
	if err != nil {
		return nil, err
	}
	course, err := s.platform.GetCourse(ctx, cc.CourseID)
	if err != nil {
		return nil, err
	}

	can, err := s.visibility.CanCreate(ctx, course, in.UserID, in.GroupID)
	if err != nil {
		return nil, err
	}
	if !can {
		return nil, models.NewPermissionError("You are not allowed to post comments here")
	}

	groupID := uint(0)
	if course.GroupMode == models.GroupModeSeparate && in.GroupID > 0 {
		groupID = uint(in.GroupID)
	}

	now := s.clock()

	// Posting implies interest: subscribe the author before the comment is
	// stored, so the author's own post backdates the watermark and does not
	// show up in their next digest.
	if err := s.ensureSubscription(ctx, course.ID, in.ContextID, in.UserID, now); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ContextID:    in.ContextID,
		CourseID:     course.ID,
		Content:      in.Content,
		Format:       validation.NormalizeFormat(in.Format),
		UserID:       in.UserID,
		GroupID:      groupID,
		TimeCreated:  now,
		TimeModified: now,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	observability.CommentsCreated.Inc()

	if s.publish != nil {
		s.publish(ctx, EventCommentCreated, in.ContextID, comment.ID, in.UserID)
	}

	count, err := s.visibleCount(ctx, course, in.ContextID, in.UserID)
	if err != nil {
		return nil, err
	}
	return &SaveCommentResult{Comment: comment, Count: count}, nil
}

func (s *CommentService) updateComment(ctx context.Context, in SaveCommentInput) (*SaveCommentResult, error) {
	existing, err := s.comments.GetByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	can, err := s.visibility.CanEdit(ctx, existing.CourseID, existing.UserID, in.UserID)
	if err != nil {
		return nil, err
	}
	if !can {
		return nil, models.NewPermissionError("You can only edit your own comments")
	}

	now := s.clock()
	if err := s.comments.UpdateContent(ctx, existing.ID, in.Content, now); err != nil {
		return nil, err
	}

	// Overlay only the mutable fields on the stored record. Whatever the
	// caller supplied for context, group or author is ignored.
	existing.Content = in.Content
	existing.TimeModified = now

	course, err := s.platform.GetCourse(ctx, existing.CourseID)
	if err != nil {
		return nil, err
	}
	count, err := s.visibleCount(ctx, course, existing.ContextID, in.UserID)
	if err != nil {
		return nil, err
	}
	return &SaveCommentResult{Comment: existing, Count: count}, nil
}

// DeleteCommentResult is the delete_comment payload.
type DeleteCommentResult struct {
	DeletedID uint  `json:"deleted_id"`
	Count     int64 `json:"count"`
}

// DeleteComment removes a comment with its replies and pins.
func (s *CommentService) DeleteComment(ctx context.Context, id, userID uint) (*DeleteCommentResult, error) {
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	can, err := s.visibility.CanDeleteComment(ctx, comment.CourseID, comment.UserID, userID)
	if err != nil {
		return nil, err
	}
	if !can {
		return nil, models.NewPermissionError("You are not allowed to delete this comment")
	}

	if err := s.comments.DeleteCascade(ctx, id); err != nil {
		return nil, err
	}

	course, err := s.platform.GetCourse(ctx, comment.CourseID)
	if err != nil {
		return nil, err
	}
	count, err := s.visibleCount(ctx, course, comment.ContextID, userID)
	if err != nil {
		return nil, err
	}
	return &DeleteCommentResult{DeletedID: id, Count: count}, nil
}

// SaveReplyInput carries a create (ID 0) or update (ID > 0) reply request.
type SaveReplyInput struct {
	ContextID uint
	CommentID uint
	Content   string
	Format    string
	ID        uint
	UserID    uint
}

// SaveReply creates or updates a reply. A reply inherits context and
// visibility from its parent comment.
func (s *CommentService) SaveReply(ctx context.Context, in SaveReplyInput) (*models.Reply, error) {
	if err := validation.Content(in.Content); err != nil {
		return nil, err
	}

	if in.ID > 0 {
		return s.updateReply(ctx, in)
	}

	parent, err := s.comments.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if in.ContextID != 0 && parent.ContextID != in.ContextID {
		return nil, models.NewValidationError("Comment does not belong to the given context")
	}

	course, err := s.platform.GetCourse(ctx, parent.CourseID)
	if err != nil {
		return nil, err
	}
	can, err := s.visibility.CanCreate(ctx, course, in.UserID, -1)
	if err != nil {
		return nil, err
	}
	if !can {
		return nil, models.NewPermissionError("You are not allowed to post replies here")
	}

	now := s.clock()
	if err := s.ensureSubscription(ctx, course.ID, parent.ContextID, in.UserID, now); err != nil {
		return nil, err
	}

	reply := &models.Reply{
		CommentID:    parent.ID,
		Content:      in.Content,
		Format:       validation.NormalizeFormat(in.Format),
		UserID:       in.UserID,
		TimeCreated:  now,
		TimeModified: now,
	}
	if err := s.replies.Create(ctx, reply); err != nil {
		return nil, err
	}
	observability.RepliesCreated.Inc()

	if s.publish != nil {
		s.publish(ctx, EventReplyCreated, parent.ContextID, reply.ID, in.UserID)
	}
	return reply, nil
}

func (s *CommentService) updateReply(ctx context.Context, in SaveReplyInput) (*models.Reply, error) {
	existing, err := s.replies.GetByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	parent, err := s.comments.GetByID(ctx, existing.CommentID)
	if err != nil {
		return nil, err
	}

	can, err := s.visibility.CanEdit(ctx, parent.CourseID, existing.UserID, in.UserID)
	if err != nil {
		return nil, err
	}
	if !can {
		return nil, models.NewPermissionError("You can only edit your own replies")
	}

	now := s.clock()
	if err := s.replies.UpdateContent(ctx, existing.ID, in.Content, now); err != nil {
		return nil, err
	}
	existing.Content = in.Content
	existing.TimeModified = now
	return existing, nil
}

// DeleteReplyResult is the delete_reply payload.
type DeleteReplyResult struct {
	DeletedID uint `json:"deleted_id"`
}

// DeleteReply removes one reply.
func (s *CommentService) DeleteReply(ctx context.Context, id, userID uint) (*DeleteReplyResult, error) {
	reply, err := s.replies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	parent, err := s.comments.GetByID(ctx, reply.CommentID)
	if err != nil {
		return nil, err
	}

	can, err := s.visibility.CanDeleteReply(ctx, parent.CourseID, reply.UserID, userID)
	if err != nil {
		return nil, err
	}
	if !can {
		return nil, models.NewPermissionError("You are not allowed to delete this reply")
	}

	if err := s.replies.Delete(ctx, id); err != nil {
		return nil, err
	}
	return &DeleteReplyResult{DeletedID: id}, nil
}

// SetPinnedInput toggles a page pin (CommentID 0) or a comment pin.
type SetPinnedInput struct {
	ContextID uint
	UserID    uint
	Checked   bool
	CommentID uint
}

// SetPinnedResult reports the resulting pin state.
type SetPinnedResult struct {
	Checked   bool `json:"checked"`
	IsPagePin bool `json:"is_page_pin"`
}

// SetPinned is an idempotent toggle: pinning an already-pinned item or
// unpinning an absent one returns the current state without error.
func (s *CommentService) SetPinned(ctx context.Context, in SetPinnedInput) (*SetPinnedResult, error) {
	cc, err := s.platform.GetContext(ctx, in.ContextID)
	if err != nil {
		return nil, err
	}

	can, err := s.caps.Has(ctx, in.UserID, cc.CourseID, CapPinItems)
	if err != nil {
		return nil, err
	}
	if !can {
		return nil, models.NewPermissionError("You are not allowed to pin items here")
	}

	itemType := models.PinItemTypePage
	itemID := in.ContextID
	if in.CommentID > 0 {
		if _, err := s.comments.GetByID(ctx, in.CommentID); err != nil {
			return nil, err
		}
		itemType = models.PinItemTypeComment
		itemID = in.CommentID
	}

	result := &SetPinnedResult{Checked: in.Checked, IsPagePin: itemType == models.PinItemTypePage}

	if !in.Checked {
		return result, s.pins.Remove(ctx, in.UserID, itemType, itemID)
	}

	exists, err := s.pins.Exists(ctx, in.UserID, itemType, itemID)
	if err != nil {
		return nil, err
	}
	if exists {
		return result, nil
	}
	return result, s.pins.Create(ctx, &models.Pin{
		ItemType:    itemType,
		ItemID:      itemID,
		UserID:      in.UserID,
		TimeCreated: s.clock(),
	})
}

// SetSubscribed is the idempotent subscription toggle for a context.
func (s *CommentService) SetSubscribed(ctx context.Context, contextID, userID uint, checked bool) (bool, error) {
	cc, err := s.platform.GetContext(ctx, contextID)
	if err != nil {
		return false, err
	}

	can, err := s.caps.Has(ctx, userID, cc.CourseID, CapSubscribe)
	if err != nil {
		return false, err
	}
	if !can {
		return false, models.NewPermissionError("You are not allowed to subscribe here")
	}

	if !checked {
		return false, s.subscriptions.Remove(ctx, contextID, userID)
	}
	return true, s.ensureSubscription(ctx, cc.CourseID, contextID, userID, s.clock())
}

// ensureSubscription creates the subscription if absent. The watermark is
// backdated to the creation time so only strictly-future activity is "new".
func (s *CommentService) ensureSubscription(ctx context.Context, courseID, contextID, userID uint, now int64) error {
	existing, err := s.subscriptions.GetByContextAndUser(ctx, contextID, userID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	return s.subscriptions.Create(ctx, &models.Subscription{
		CourseID:     courseID,
		ContextID:    contextID,
		UserID:       userID,
		TimeLastSent: now,
		TimeCreated:  now,
		TimeModified: now,
	})
}

// LastPage is the sentinel page number meaning "last page".
const LastPage = -1

// CommentItem is one comment on a page, annotated with the viewer's pin
// state and the replies for this page only.
type CommentItem struct {
	models.Comment
	Pinned  bool           `json:"pinned"`
	Replies []models.Reply `json:"replies"`
}

// CommentsPage is the get_comments_page payload.
type CommentsPage struct {
	CurrentPage int           `json:"current_page"`
	PageCount   int           `json:"page_count"`
	Total       int64         `json:"total"`
	PagePinned  bool          `json:"page_pinned"`
	Subscribed  bool          `json:"subscribed"`
	Items       []CommentItem `json:"items"`
}

// GetCommentsPage returns one page of visible comments ordered by creation
// time ascending. Page LastPage (-1) selects the last page; out-of-range
// pages clamp into [0, pageCount-1]. Replies are attached only for the
// comments on this page and are capped by the configured replies limit.
func (s *CommentService) GetCommentsPage(ctx context.Context, contextID, userID uint, page int) (*CommentsPage, error) {
	cc, err := s.platform.GetContext(ctx, contextID)
	if err != nil {
		return nil, err
	}
	course, err := s.platform.GetCourse(ctx, cc.CourseID)
	if err != nil {
		return nil, err
	}

	can, err := s.caps.Has(ctx, userID, course.ID, CapView)
	if err != nil {
		return nil, err
	}
	if !can {
		return nil, models.NewPermissionError("You are not allowed to view comments here")
	}

	groups, err := s.visibility.RestrictedGroupIDs(ctx, course, userID)
	if err != nil {
		return nil, err
	}

	total, err := s.comments.CountVisible(ctx, contextID, groups)
	if err != nil {
		return nil, err
	}

	pageCount := int((total + int64(s.commentsPerPage) - 1) / int64(s.commentsPerPage))
	if page == LastPage {
		page = pageCount - 1
	}
	if page < 0 {
		page = 0
	}
	if pageCount > 0 && page > pageCount-1 {
		page = pageCount - 1
	}

	pagePinned, err := s.pins.Exists(ctx, userID, models.PinItemTypePage, contextID)
	if err != nil {
		return nil, err
	}
	sub, err := s.subscriptions.GetByContextAndUser(ctx, contextID, userID)
	if err != nil {
		return nil, err
	}

	result := &CommentsPage{
		CurrentPage: page,
		PageCount:   pageCount,
		Total:       total,
		PagePinned:  pagePinned,
		Subscribed:  sub != nil,
		Items:       []CommentItem{},
	}
	if total == 0 {
		return result, nil
	}

	comments, err := s.comments.ListPage(ctx, contextID, groups, page*s.commentsPerPage, s.commentsPerPage)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID)
	}

	pinned, err := s.pins.PinnedCommentIDs(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	replies, err := s.replies.ListByComments(ctx, ids)
	if err != nil {
		return nil, err
	}

	byComment := make(map[uint][]models.Reply, len(ids))
	for _, r := range replies {
		if s.repliesLimit > 0 && len(byComment[r.CommentID]) >= s.repliesLimit {
			continue
		}
		byComment[r.CommentID] = append(byComment[r.CommentID], r)
	}

	for _, c := range comments {
		result.Items = append(result.Items, CommentItem{
			Comment: c,
			Pinned:  pinned[c.ID],
			Replies: byComment[c.ID],
		})
	}
	return result, nil
}

func (s *CommentService) visibleCount(ctx context.Context, course *models.Course, contextID, userID uint) (int64, error) {
	groups, err := s.visibility.RestrictedGroupIDs(ctx, course, userID)
	if err != nil {
		return 0, err
	}
	return s.comments.CountVisible(ctx, contextID, groups)
}
