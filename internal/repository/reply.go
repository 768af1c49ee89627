package repository

import (
	"context"
	"errors"

	"socialcomments/internal/models"

	"gorm.io/gorm"
)

// ReplyRepository defines persistence operations for replies.
type ReplyRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Reply, error)
	Create(ctx context.Context, reply *models.Reply) error
	UpdateContent(ctx context.Context, id uint, content string, timeModified int64) error
	Delete(ctx context.Context, id uint) error
	ListByComments(ctx context.Context, commentIDs []uint) ([]models.Reply, error)
	CountByComments(ctx context.Context, commentIDs []uint) (map[uint]int64, error)
}

type replyRepository struct {
	db *gorm.DB
}

// NewReplyRepository returns a new ReplyRepository implementation.
func NewReplyRepository(db *gorm.DB) ReplyRepository {
	return &replyRepository{db: db}
}

func (r *replyRepository) GetByID(ctx context.Context, id uint) (*models.Reply, error) {
	var reply models.Reply
	if err := r.db.WithContext(ctx).First(&reply, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Reply", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &reply, nil
}

func (r *replyRepository) Create(ctx context.Context, reply *models.Reply) error {
	if err := r.db.WithContext(ctx).Create(reply).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *replyRepository) UpdateContent(ctx context.Context, id uint, content string, timeModified int64) error {
	result := r.db.WithContext(ctx).Model(&models.Reply{}).Where("id = ?", id).
		Updates(map[string]any{"content": content, "time_modified": timeModified})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Reply", id)
	}
	return nil
}

// Delete removes one reply. A missing id is a no-op.
func (r *replyRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Reply{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *replyRepository) ListByComments(ctx context.Context, commentIDs []uint) ([]models.Reply, error) {
	if len(commentIDs) == 0 {
		return nil, nil
	}
	var replies []models.Reply
	if err := r.db.WithContext(ctx).Where("comment_id IN ?", commentIDs).
		Order("time_created ASC").Find(&replies).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return replies, nil
}

func (r *replyRepository) CountByComments(ctx context.Context, commentIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(commentIDs))
	if len(commentIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		CommentID uint
		Total     int64
	}
	if err := r.db.WithContext(ctx).Model(&models.Reply{}).
		Select("comment_id, COUNT(*) AS total").
		Where("comment_id IN ?", commentIDs).
		Group("comment_id").
		Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range rows {
		counts[row.CommentID] = row.Total
	}
	return counts, nil
}
