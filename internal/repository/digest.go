package repository

import (
	"context"

	"socialcomments/internal/models"

	"gorm.io/gorm"
)

// DigestReply is a reply row joined with its parent comment's scope, as
// selected by the new-items query.
type DigestReply struct {
	ID           uint   `json:"id"`
	CommentID    uint   `json:"comment_id"`
	Content      string `json:"content"`
	Format       string `json:"format"`
	UserID       uint   `json:"user_id"`
	TimeCreated  int64  `json:"time_created"`
	TimeModified int64  `json:"time_modified"`
	ContextID    uint   `json:"context_id"`
	CourseID     uint   `json:"course_id"`
	GroupID      uint   `json:"group_id"`
}

// DigestRepository runs the watermark-joined queries feeding the digest.
// Both queries deliberately ignore group visibility; the digest service
// re-applies it after the fetch.
type DigestRepository interface {
	NewReplies(ctx context.Context, userID uint) ([]DigestReply, error)
	NewComments(ctx context.Context, userID uint, neededIDs []uint) ([]models.Comment, error)
}

type digestRepository struct {
	db *gorm.DB
}

// NewDigestRepository returns a new DigestRepository implementation.
func NewDigestRepository(db *gorm.DB) DigestRepository {
	return &digestRepository{db: db}
}

// NewReplies returns every reply whose time_modified is at or past the
// watermark of the user's subscription on the parent comment's context.
func (r *digestRepository) NewReplies(ctx context.Context, userID uint) ([]DigestReply, error) {
	var rows []DigestReply
	err := r.db.WithContext(ctx).Raw(`
		SELECT r.id, r.comment_id, r.content, r.format, r.user_id,
		       r.time_created, r.time_modified,
		       c.context_id, c.course_id, c.group_id
		FROM replies r
		JOIN comments c ON c.id = r.comment_id
		JOIN subscriptions s ON s.context_id = c.context_id AND s.user_id = ?
		WHERE r.time_modified >= s.time_last_sent
		ORDER BY r.time_created ASC`, userID).Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

// NewComments returns comments in the user's subscribed contexts that are
// either past the watermark themselves or needed because one of their replies
// is (the neededIDs set from NewReplies).
func (r *digestRepository) NewComments(ctx context.Context, userID uint, neededIDs []uint) ([]models.Comment, error) {
	var comments []models.Comment

	query := `
		SELECT c.id, c.context_id, c.course_id, c.content, c.format,
		       c.user_id, c.group_id, c.time_created, c.time_modified
		FROM comments c
		JOIN subscriptions s ON s.context_id = c.context_id AND s.user_id = ?`
	args := []any{userID}

	if len(neededIDs) > 0 {
		query += ` WHERE (c.time_modified >= s.time_last_sent OR c.id IN ?)`
		args = append(args, neededIDs)
	} else {
		query += ` WHERE c.time_modified >= s.time_last_sent`
	}
	query += ` ORDER BY c.time_created ASC`

	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&comments).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}
