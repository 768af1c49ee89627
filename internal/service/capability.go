package service

import (
	"context"

	"socialcomments/internal/models"
	"socialcomments/internal/repository"
)

// Capability names checked throughout the service layer.
type Capability string

const (
	CapView              Capability = "view"
	CapPostComments      Capability = "postcomments"
	CapPinItems          Capability = "pinitems"
	CapSubscribe         Capability = "subscribe"
	CapDeleteOwnComments Capability = "deleteowncomments"
	CapDeleteComments    Capability = "deletecomments"
	CapDeleteOwnReplies  Capability = "deleteownreplies"
	CapDeleteReplies     Capability = "deletereplies"
	CapAccessAllGroups   Capability = "accessallgroups"
	CapViewReport        Capability = "viewreport"
)

// CapabilityChecker answers whether a user holds a capability in a course.
type CapabilityChecker interface {
	Has(ctx context.Context, userID, courseID uint, cap Capability) (bool, error)
}

// roleCapabilities maps role archetypes to the capabilities they grant.
var roleCapabilities = map[string]map[Capability]bool{
	models.RoleStudent: {
		CapView:              true,
		CapPostComments:      true,
		CapPinItems:          true,
		CapSubscribe:         true,
		CapDeleteOwnComments: true,
		CapDeleteOwnReplies:  true,
	},
	models.RoleTeacher: {
		CapView:              true,
		CapPostComments:      true,
		CapPinItems:          true,
		CapSubscribe:         true,
		CapDeleteOwnComments: true,
		CapDeleteOwnReplies:  true,
		CapDeleteComments:    true,
		CapDeleteReplies:     true,
		CapAccessAllGroups:   true,
		CapViewReport:        true,
	},
}

type roleCapabilityChecker struct {
	platform repository.PlatformRepository
}

// NewCapabilityChecker builds the role-assignment backed CapabilityChecker.
func NewCapabilityChecker(platform repository.PlatformRepository) CapabilityChecker {
	return &roleCapabilityChecker{platform: platform}
}

// Has resolves the user's roles in the course (site-wide assignments
// included) and checks the archetype grants. Admins hold every capability,
// deleted users none.
func (c *roleCapabilityChecker) Has(ctx context.Context, userID, courseID uint, cap Capability) (bool, error) {
	user, err := c.platform.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	if user.Deleted {
		return false, nil
	}
	if user.IsAdmin {
		return true, nil
	}

	roles, err := c.platform.UserRoles(ctx, userID, courseID)
	if err != nil {
		return false, err
	}
	for _, role := range roles {
		if roleCapabilities[role][cap] {
			return true, nil
		}
	}
	return false, nil
}
