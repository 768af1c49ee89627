package service

import (
	"context"

	"socialcomments/internal/models"
	"socialcomments/internal/repository"
)

// ReportPage is one page of the course comments report.
type ReportPage struct {
	CurrentPage int              `json:"current_page"`
	PageCount   int              `json:"page_count"`
	Total       int64            `json:"total"`
	Items       []models.Comment `json:"items"`
}

// NewsFeed is the recent-activity view of a course: comments created or
// modified since a timestamp, annotated with reply counts.
type NewsFeed struct {
	Since int64          `json:"since"`
	Items []NewsFeedItem `json:"items"`
}

// NewsFeedItem is one comment in the news feed.
type NewsFeedItem struct {
	models.Comment
	ReplyCount int64 `json:"reply_count"`
}

// PinnedOverview lists the viewer's pinned comments in a course plus the
// pinned pages with their visible comment counts.
type PinnedOverview struct {
	Comments []models.Comment `json:"comments"`
	Pages    []PinnedPage     `json:"pages"`
}

// PinnedPage is one pinned context with its comment count.
type PinnedPage struct {
	ContextID    uint  `json:"context_id"`
	CommentCount int64 `json:"comment_count"`
}

// ReportService serves the teacher-facing report and the per-user pinned and
// news-feed views.
type ReportService struct {
	comments   repository.CommentRepository
	replies    repository.ReplyRepository
	pins       repository.PinRepository
	platform   repository.PlatformRepository
	caps       CapabilityChecker
	visibility *VisibilityService
	perPage    int
}

// NewReportService returns a new ReportService.
func NewReportService(
	comments repository.CommentRepository,
	replies repository.ReplyRepository,
	pins repository.PinRepository,
	platform repository.PlatformRepository,
	caps CapabilityChecker,
	visibility *VisibilityService,
	perPage int,
) *ReportService {
	if perPage <= 0 {
		perPage = 25
	}
	return &ReportService{
		comments:   comments,
		replies:    replies,
		pins:       pins,
		platform:   platform,
		caps:       caps,
		visibility: visibility,
		perPage:    perPage,
	}
}

// CourseComments returns one page of the filtered course report. Requires the
// report capability; results are still narrowed to the viewer's group set.
func (s *ReportService) CourseComments(ctx context.Context, f repository.ReportFilter, userID uint, page int) (*ReportPage, error) {
	course, err := s.platform.GetCourse(ctx, f.CourseID)
	if err != nil {
		return nil, err
	}

	can, err := s.caps.Has(ctx, userID, course.ID, CapViewReport)
	if err != nil {
		return nil, err
	}
	if !can {
		return nil, models.NewPermissionError("You are not allowed to view the comments report")
	}

	groups, err := s.visibility.RestrictedGroupIDs(ctx, course, userID)
	if err != nil {
		return nil, err
	}

	if page < 0 {
		page = 0
	}
	items, total, err := s.comments.ListReport(ctx, f, groups, page*s.perPage, s.perPage)
	if err != nil {
		return nil, err
	}

	pageCount := int((total + int64(s.perPage) - 1) / int64(s.perPage))
	if pageCount > 0 && page > pageCount-1 {
		page = pageCount - 1
		items, total, err = s.comments.ListReport(ctx, f, groups, page*s.perPage, s.perPage)
		if err != nil {
			return nil, err
		}
	}

	if items == nil {
		items = []models.Comment{}
	}
	return &ReportPage{CurrentPage: page, PageCount: pageCount, Total: total, Items: items}, nil
}

// CourseNewItems returns the viewer's news feed for a course: visible
// comments touched at or after since.
func (s *ReportService) CourseNewItems(ctx context.Context, courseID, userID uint, since int64) (*NewsFeed, error) {
	course, err := s.platform.GetCourse(ctx, courseID)
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

	comments, err := s.comments.ListByCourseSince(ctx, courseID, groups, since)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID)
	}
	replyCounts, err := s.replies.CountByComments(ctx, ids)
	if err != nil {
		return nil, err
	}

	feed := &NewsFeed{Since: since, Items: []NewsFeedItem{}}
	for _, c := range comments {
		feed.Items = append(feed.Items, NewsFeedItem{Comment: c, ReplyCount: replyCounts[c.ID]})
	}
	return feed, nil
}

// PinnedCourseComments returns the viewer's pinned comments and pages,
// narrowed to one course. Pins may point at comments the viewer can no longer
// see (group membership changed); those are filtered out here.
func (s *ReportService) PinnedCourseComments(ctx context.Context, courseID, userID uint) (*PinnedOverview, error) {
	course, err := s.platform.GetCourse(ctx, courseID)
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

	overview := &PinnedOverview{Comments: []models.Comment{}, Pages: []PinnedPage{}}

	commentPins, err := s.pins.ListByUserAndType(ctx, userID, models.PinItemTypeComment)
	if err != nil {
		return nil, err
	}
	if len(commentPins) > 0 {
		ids := make([]uint, 0, len(commentPins))
		for _, p := range commentPins {
			ids = append(ids, p.ItemID)
		}
		comments, err := s.comments.ListByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, c := range comments {
			if c.CourseID != courseID {
				continue
			}
			if !groups.Unrestricted() && !groups.Contains(c.GroupID) {
				continue
			}
			overview.Comments = append(overview.Comments, c)
		}
	}

	pagePins, err := s.pins.ListByUserAndType(ctx, userID, models.PinItemTypePage)
	if err != nil {
		return nil, err
	}
	if len(pagePins) > 0 {
		courseContexts, err := s.platform.ContextsByCourse(ctx, courseID)
		if err != nil {
			return nil, err
		}
		inCourse := make(map[uint]bool, len(courseContexts))
		for _, cc := range courseContexts {
			inCourse[cc.ID] = true
		}

		var contextIDs []uint
		for _, p := range pagePins {
			if inCourse[p.ItemID] {
				contextIDs = append(contextIDs, p.ItemID)
			}
		}
		counts, err := s.comments.CountByContexts(ctx, contextIDs)
		if err != nil {
			return nil, err
		}
		for _, id := range contextIDs {
			overview.Pages = append(overview.Pages, PinnedPage{ContextID: id, CommentCount: counts[id]})
		}
	}
	return overview, nil
}
