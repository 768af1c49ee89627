package repository

import (
	"context"

	"socialcomments/internal/models"

	"gorm.io/gorm"
)

// PinRepository defines persistence operations for pins.
type PinRepository interface {
	Exists(ctx context.Context, userID uint, itemType int, itemID uint) (bool, error)
	Create(ctx context.Context, pin *models.Pin) error
	Remove(ctx context.Context, userID uint, itemType int, itemID uint) error
	PinnedCommentIDs(ctx context.Context, userID uint, commentIDs []uint) (map[uint]bool, error)
	ListByUserAndType(ctx context.Context, userID uint, itemType int) ([]models.Pin, error)
	DeleteByUser(ctx context.Context, userID uint) error
	DeletePagePins(ctx context.Context, contextIDs []uint) error
}

type pinRepository struct {
	db *gorm.DB
}

// NewPinRepository returns a new PinRepository implementation.
func NewPinRepository(db *gorm.DB) PinRepository {
	return &pinRepository{db: db}
}

func (r *pinRepository) Exists(ctx context.Context, userID uint, itemType int, itemID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Pin{}).
		Where("user_id = ? AND item_type = ? AND item_id = ?", userID, itemType, itemID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *pinRepository) Create(ctx context.Context, pin *models.Pin) error {
	if err := r.db.WithContext(ctx).Create(pin).Error; err != nil {
		// The unique index is the backstop for a concurrent toggle race; the
		// row already existing is the state the caller asked for.
		if isUniqueConstraintError(err) {
			return nil
		}
		return models.NewInternalError(err)
	}
	return nil
}

// Remove deletes the matching pin row. A missing row is a no-op.
func (r *pinRepository) Remove(ctx context.Context, userID uint, itemType int, itemID uint) error {
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND item_type = ? AND item_id = ?", userID, itemType, itemID).
		Delete(&models.Pin{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// PinnedCommentIDs returns which of the given comment ids the user has pinned.
func (r *pinRepository) PinnedCommentIDs(ctx context.Context, userID uint, commentIDs []uint) (map[uint]bool, error) {
	pinned := make(map[uint]bool, len(commentIDs))
	if len(commentIDs) == 0 {
		return pinned, nil
	}

	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.Pin{}).
		Where("user_id = ? AND item_type = ? AND item_id IN ?", userID, models.PinItemTypeComment, commentIDs).
		Pluck("item_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, id := range ids {
		pinned[id] = true
	}
	return pinned, nil
}

func (r *pinRepository) ListByUserAndType(ctx context.Context, userID uint, itemType int) ([]models.Pin, error) {
	var pins []models.Pin
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND item_type = ?", userID, itemType).
		Order("time_created ASC").Find(&pins).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return pins, nil
}

func (r *pinRepository) DeleteByUser(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Pin{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *pinRepository) DeletePagePins(ctx context.Context, contextIDs []uint) error {
	if len(contextIDs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).
		Where("item_type = ? AND item_id IN ?", models.PinItemTypePage, contextIDs).
		Delete(&models.Pin{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
