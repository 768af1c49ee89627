package service

import (
	"context"

	"socialcomments/internal/models"
	"socialcomments/internal/repository"
)

// AllGroupsID is the virtual "all participants" group choice offered when a
// post is not restricted to a single group.
const AllGroupsID = 0

// VisibilityService computes group restrictions: which comments a viewer may
// see in a context and which groups they may post into.
type VisibilityService struct {
	platform repository.PlatformRepository
	caps     CapabilityChecker
}

// NewVisibilityService returns a new VisibilityService.
func NewVisibilityService(platform repository.PlatformRepository, caps CapabilityChecker) *VisibilityService {
	return &VisibilityService{platform: platform, caps: caps}
}

// RestrictedGroupIDs returns the set of group ids the viewer may see, or nil
// when unrestricted. A restricted set always contains group 0 so posts to
// "all participants" stay visible to everyone.
func (s *VisibilityService) RestrictedGroupIDs(ctx context.Context, course *models.Course, userID uint) (models.GroupSet, error) {
	all, err := s.caps.Has(ctx, userID, course.ID, CapAccessAllGroups)
	if err != nil {
		return nil, err
	}
	if all {
		return nil, nil
	}

	if course.GroupMode != models.GroupModeSeparate {
		return nil, nil
	}

	ids, err := s.platform.UserGroupIDs(ctx, course.ID, userID)
	if err != nil {
		return nil, err
	}
	set := make(models.GroupSet, 0, len(ids)+1)
	set = append(set, AllGroupsID)
	set = append(set, ids...)
	return set, nil
}

// AccessibleGroups returns the group choices the user may post into, keyed by
// group id. This is distinct from the read-path restriction: the choices
// offered when posting reflect membership (or privilege), not visibility.
func (s *VisibilityService) AccessibleGroups(ctx context.Context, course *models.Course, userID uint) (map[uint]string, error) {
	if course.GroupMode != models.GroupModeSeparate {
		return map[uint]string{AllGroupsID: "All participants"}, nil
	}

	all, err := s.caps.Has(ctx, userID, course.ID, CapAccessAllGroups)
	if err != nil {
		return nil, err
	}

	groups, err := s.platform.CourseGroups(ctx, course.ID)
	if err != nil {
		return nil, err
	}

	if all {
		out := make(map[uint]string, len(groups)+1)
		out[AllGroupsID] = "All participants"
		for _, g := range groups {
			out[g.ID] = g.Name
		}
		return out, nil
	}

	memberIDs, err := s.platform.UserGroupIDs(ctx, course.ID, userID)
	if err != nil {
		return nil, err
	}
	member := make(map[uint]bool, len(memberIDs))
	for _, id := range memberIDs {
		member[id] = true
	}

	out := make(map[uint]string, len(memberIDs))
	for _, g := range groups {
		if member[g.ID] {
			out[g.ID] = g.Name
		}
	}
	return out, nil
}

// CanCreate reports whether the user may post a comment into the course,
// optionally into a specific group. Pass a negative targetGroupID when no
// group has been chosen yet.
func (s *VisibilityService) CanCreate(ctx context.Context, course *models.Course, userID uint, targetGroupID int64) (bool, error) {
	can, err := s.caps.Has(ctx, userID, course.ID, CapPostComments)
	if err != nil || !can {
		return false, err
	}

	accessible, err := s.AccessibleGroups(ctx, course, userID)
	if err != nil {
		return false, err
	}
	if len(accessible) == 0 {
		return false, nil
	}

	if targetGroupID >= 0 {
		if _, ok := accessible[uint(targetGroupID)]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// CanEdit applies the fixed edit policy: only the original author, and only
// while they still hold the posting capability.
func (s *VisibilityService) CanEdit(ctx context.Context, courseID, authorID, userID uint) (bool, error) {
	if authorID != userID {
		return false, nil
	}
	return s.caps.Has(ctx, userID, courseID, CapPostComments)
}

// CanDeleteComment applies the fixed delete policy: the author with
// "delete own comments", or anyone with "delete comments".
func (s *VisibilityService) CanDeleteComment(ctx context.Context, courseID, authorID, userID uint) (bool, error) {
	if authorID == userID {
		own, err := s.caps.Has(ctx, userID, courseID, CapDeleteOwnComments)
		if err != nil {
			return false, err
		}
		if own {
			return true, nil
		}
	}
	return s.caps.Has(ctx, userID, courseID, CapDeleteComments)
}

// CanDeleteReply mirrors CanDeleteComment for replies.
func (s *VisibilityService) CanDeleteReply(ctx context.Context, courseID, authorID, userID uint) (bool, error) {
	if authorID == userID {
		own, err := s.caps.Has(ctx, userID, courseID, CapDeleteOwnReplies)
		if err != nil {
			return false, err
		}
		if own {
			return true, nil
		}
	}
	return s.caps.Has(ctx, userID, courseID, CapDeleteReplies)
}
