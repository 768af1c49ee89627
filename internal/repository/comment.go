package repository

import (
	"context"
	"errors"

	"socialcomments/internal/models"

	"gorm.io/gorm"
)

// ReportFilter narrows the course report query. Zero values mean "no filter".
// Group visibility is applied separately via the viewer's GroupSet.
type ReportFilter struct {
	CourseID     uint
	ContextID    uint
	AuthorPrefix string
	Content      string
	FromTime     int64
	ToTime       int64
}

// CommentRepository defines persistence operations for comments.
type CommentRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	Create(ctx context.Context, comment *models.Comment) error
	UpdateContent(ctx context.Context, id uint, content string, timeModified int64) error
	DeleteCascade(ctx context.Context, id uint) error
	CountVisible(ctx context.Context, contextID uint, groups models.GroupSet) (int64, error)
	ListPage(ctx context.Context, contextID uint, groups models.GroupSet, offset, limit int) ([]models.Comment, error)
	ListReport(ctx context.Context, f ReportFilter, groups models.GroupSet, offset, limit int) ([]models.Comment, int64, error)
	ListByIDs(ctx context.Context, ids []uint) ([]models.Comment, error)
	CountByContexts(ctx context.Context, contextIDs []uint) (map[uint]int64, error)
	ListByCourseSince(ctx context.Context, courseID uint, groups models.GroupSet, since int64) ([]models.Comment, error)
	DeleteByCourse(ctx context.Context, courseID uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository returns a new CommentRepository implementation.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &comment, nil
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// UpdateContent mutates only content and time_modified. Identity fields
// (context_id, user_id, course_id, group_id) are never written on update.
func (r *commentRepository) UpdateContent(ctx context.Context, id uint, content string, timeModified int64) error {
	result := r.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).
		Updates(map[string]any{"content": content, "time_modified": timeModified})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	return nil
}

// DeleteCascade removes a comment together with its replies and any pin
// referencing it, in one transaction. Deleting an absent id is a no-op.
func (r *commentRepository) DeleteCascade(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id = ?", id).Delete(&models.Reply{}).Error; err != nil {
			return err
		}
		if err := tx.Where("item_type = ? AND item_id = ?", models.PinItemTypeComment, id).
			Delete(&models.Pin{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Comment{}, id).Error
	})
	if err != nil {
		return models.NewIntegrityError("Comment cascade delete failed", err)
	}
	return nil
}

func (r *commentRepository) CountVisible(ctx context.Context, contextID uint, groups models.GroupSet) (int64, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Comment{}).Where("context_id = ?", contextID)
	if err := groupScope(q, groups).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *commentRepository) ListPage(ctx context.Context, contextID uint, groups models.GroupSet, offset, limit int) ([]models.Comment, error) {
	var comments []models.Comment
	q := r.db.WithContext(ctx).Where("context_id = ?", contextID)
	q = groupScope(q, groups)
	if err := q.Order("time_created ASC").Offset(offset).Limit(limit).Find(&comments).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) ListReport(ctx context.Context, f ReportFilter, groups models.GroupSet, offset, limit int) ([]models.Comment, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Comment{}).Where("comments.course_id = ?", f.CourseID)
	if f.ContextID != 0 {
		q = q.Where("comments.context_id = ?", f.ContextID)
	}
	if f.AuthorPrefix != "" {
		q = q.Joins("JOIN users ON users.id = comments.user_id").
			Where("users.username ILIKE ?", f.AuthorPrefix+"%")
	}
	if f.Content != "" {
		q = q.Where("comments.content ILIKE ?", "%"+f.Content+"%")
	}
	if f.FromTime > 0 {
		q = q.Where("comments.time_created >= ?", f.FromTime)
	}
	if f.ToTime > 0 {
		q = q.Where("comments.time_created <= ?", f.ToTime)
	}
	q = groupScope(q, groups)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var comments []models.Comment
	if err := q.Order("comments.time_created DESC").Offset(offset).Limit(limit).Find(&comments).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return comments, total, nil
}

func (r *commentRepository) ListByIDs(ctx context.Context, ids []uint) ([]models.Comment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var comments []models.Comment
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).
		Order("time_created ASC").Find(&comments).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) CountByContexts(ctx context.Context, contextIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(contextIDs))
	if len(contextIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		ContextID uint
		Total     int64
	}
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Select("context_id, COUNT(*) AS total").
		Where("context_id IN ?", contextIDs).
		Group("context_id").
		Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range rows {
		counts[row.ContextID] = row.Total
	}
	return counts, nil
}

func (r *commentRepository) ListByCourseSince(ctx context.Context, courseID uint, groups models.GroupSet, since int64) ([]models.Comment, error) {
	var comments []models.Comment
	q := r.db.WithContext(ctx).
		Where("course_id = ? AND time_modified >= ?", courseID, since)
	q = groupScope(q, groups)
	if err := q.Order("time_created ASC").Find(&comments).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

// DeleteByCourse removes every comment of a course with its replies and
// comment pins. Runs in one transaction; course-level cleanup must not leave
// orphaned rows behind.
func (r *commentRepository) DeleteByCourse(ctx context.Context, courseID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("course_id = ?", courseID)
		if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.Reply{}).Error; err != nil {
			return err
		}
		if err := tx.Where("item_type = ? AND item_id IN (?)", models.PinItemTypeComment, commentIDs).
			Delete(&models.Pin{}).Error; err != nil {
			return err
		}
		return tx.Where("course_id = ?", courseID).Delete(&models.Comment{}).Error
	})
	if err != nil {
		return models.NewIntegrityError("Course comment cleanup failed", err)
	}
	return nil
}
