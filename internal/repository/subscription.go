package repository

import (
	"context"
	"errors"

	"socialcomments/internal/models"

	"gorm.io/gorm"
)

// SubscriptionRepository defines persistence operations for digest subscriptions.
type SubscriptionRepository interface {
	GetByContextAndUser(ctx context.Context, contextID, userID uint) (*models.Subscription, error)
	Create(ctx context.Context, sub *models.Subscription) error
	Remove(ctx context.Context, contextID, userID uint) error
	AdvanceWatermark(ctx context.Context, userID uint, contextIDs []uint, ts int64) error
	ListSubscriberIDs(ctx context.Context, limit int) ([]uint, error)
	DeleteByCourse(ctx context.Context, courseID uint) error
	DeleteByUser(ctx context.Context, userID uint) error
}

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository returns a new SubscriptionRepository implementation.
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// GetByContextAndUser returns nil, nil when no subscription exists.
func (r *subscriptionRepository) GetByContextAndUser(ctx context.Context, contextID, userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where("context_id = ? AND user_id = ?", contextID, userID).
		First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &sub, nil
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		// Concurrent toggle race: the unique (context_id, user_id) index is the
		// backstop and the subscription already exists, which is what the
		// caller wanted.
		if isUniqueConstraintError(err) {
			return nil
		}
		return models.NewInternalError(err)
	}
	return nil
}

// Remove deletes the subscription row. A missing row is a no-op.
func (r *subscriptionRepository) Remove(ctx context.Context, contextID, userID uint) error {
	if err := r.db.WithContext(ctx).
		Where("context_id = ? AND user_id = ?", contextID, userID).
		Delete(&models.Subscription{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// AdvanceWatermark moves time_last_sent forward for the user's subscriptions
// on the given contexts. The guard keeps the watermark monotonic under
// overlapping digest runs.
func (r *subscriptionRepository) AdvanceWatermark(ctx context.Context, userID uint, contextIDs []uint, ts int64) error {
	if len(contextIDs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND context_id IN ? AND time_last_sent <= ?", userID, contextIDs, ts).
		Updates(map[string]any{"time_last_sent": ts, "time_modified": ts}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ListSubscriberIDs returns distinct subscriber user ids ordered by their
// oldest watermark ascending, so the longest-waiting users are served first.
// A limit of 0 means unlimited.
func (r *subscriptionRepository) ListSubscriberIDs(ctx context.Context, limit int) ([]uint, error) {
	var ids []uint
	q := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Select("user_id").
		Group("user_id").
		Order("MIN(time_last_sent) ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("user_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *subscriptionRepository) DeleteByCourse(ctx context.Context, courseID uint) error {
	if err := r.db.WithContext(ctx).Where("course_id = ?", courseID).
		Delete(&models.Subscription{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *subscriptionRepository) DeleteByUser(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Delete(&models.Subscription{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
