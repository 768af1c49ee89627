package service

import (
	"context"

	"socialcomments/internal/cache"
	"socialcomments/internal/middleware"
	"socialcomments/internal/repository"
)

// LifecycleService handles host-platform lifecycle events: course deletion
// and user deletion must clean up every row this module owns.
type LifecycleService struct {
	comments      repository.CommentRepository
	pins          repository.PinRepository
	subscriptions repository.SubscriptionRepository
	platform      repository.PlatformRepository
}

// NewLifecycleService returns a new LifecycleService.
func NewLifecycleService(
	comments repository.CommentRepository,
	pins repository.PinRepository,
	subscriptions repository.SubscriptionRepository,
	platform repository.PlatformRepository,
) *LifecycleService {
	return &LifecycleService{
		comments:      comments,
		pins:          pins,
		subscriptions: subscriptions,
		platform:      platform,
	}
}

// HandleCourseDeleted removes all comments, replies, pins and subscriptions
// belonging to a course.
func (s *LifecycleService) HandleCourseDeleted(ctx context.Context, courseID uint) error {
	contexts, err := s.platform.ContextsByCourse(ctx, courseID)
	if err != nil {
		return err
	}

	if err := s.comments.DeleteByCourse(ctx, courseID); err != nil {
		return err
	}

	contextIDs := make([]uint, 0, len(contexts))
	for _, cc := range contexts {
		contextIDs = append(contextIDs, cc.ID)
	}
	if err := s.pins.DeletePagePins(ctx, contextIDs); err != nil {
		return err
	}

	if err := s.subscriptions.DeleteByCourse(ctx, courseID); err != nil {
		return err
	}

	cache.InvalidateCourseGroups(ctx, courseID)
	middleware.Logger.InfoContext(ctx, "course cleanup done",
		"course_id", courseID, "contexts", len(contextIDs))
	return nil
}

// HandleUserDeleted drops the user's subscriptions and pins and marks the
// user deleted. Their comments and replies stay; authored content survives
// its author.
func (s *LifecycleService) HandleUserDeleted(ctx context.Context, userID uint) error {
	if err := s.subscriptions.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	if err := s.pins.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	if err := s.platform.MarkUserDeleted(ctx, userID); err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "user cleanup done", "user_id", userID)
	return nil
}
