// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"
	"time"

	"socialcomments/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var courseNames = []string{
	"Introduction to Biology", "Linear Algebra", "World History",
	"Creative Writing", "Data Structures",
}

var moduleNames = []string{"Week 1 Forum", "Week 2 Quiz", "Group Project"}

var usernames = []string{
	"ava.morris", "ben.tucker", "carla.diaz", "dan.wheeler",
	"elena.petrov", "felix.nguyen", "grace.osei", "henrik.larsen",
}

// Demo populates a development database with a small LMS snapshot: courses
// with contexts and groups, enrolled users and a spread of comments, replies
// and subscriptions. Idempotent: an already-seeded database is left alone.
func Demo(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Course{}).Count(&count).Error; err != nil {
		return fmt.Errorf("check existing courses: %w", err)
	}
	if count > 0 {
		log.Println("seed: courses already present, skipping demo seed")
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		users, err := seedUsers(tx)
		if err != nil {
			return err
		}

		now := time.Now().Unix()
		for i, name := range courseNames {
			groupMode := models.GroupModeNone
			if i%2 == 1 {
				groupMode = models.GroupModeSeparate
			}
			course := models.Course{Name: name, GroupMode: groupMode}
			if err := tx.Create(&course).Error; err != nil {
				return fmt.Errorf("create course %q: %w", name, err)
			}

			contexts, err := seedContexts(tx, course.ID, name)
			if err != nil {
				return err
			}
			groups, err := seedGroups(tx, course, users)
			if err != nil {
				return err
			}
			if err := seedEnrollments(tx, course.ID, users, i); err != nil {
				return err
			}
			if err := seedComments(tx, course, contexts, groups, users, now); err != nil {
				return err
			}
		}

		log.Printf("seed: created %d courses and %d users", len(courseNames), len(users))
		return nil
	})
}

func seedUsers(tx *gorm.DB) ([]models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("changeme123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	users := make([]models.User, 0, len(usernames))
	for _, name := range usernames {
		user := models.User{
			Username: name,
			Email:    name + "@example.edu",
			Password: string(hashed),
		}
		if err := tx.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user %q: %w", name, err)
		}
		users = append(users, user)
	}
	return users, nil
}

func seedContexts(tx *gorm.DB, courseID uint, courseName string) ([]models.CourseContext, error) {
	contexts := []models.CourseContext{
		{CourseID: courseID, Level: models.ContextLevelCourse, Name: courseName},
	}
	for _, name := range moduleNames {
		contexts = append(contexts, models.CourseContext{
			CourseID: courseID, Level: models.ContextLevelModule, Name: name,
		})
	}
	for i := range contexts {
		if err := tx.Create(&contexts[i]).Error; err != nil {
			return nil, fmt.Errorf("create context for course %d: %w", courseID, err)
		}
	}
	return contexts, nil
}

func seedGroups(tx *gorm.DB, course models.Course, users []models.User) ([]models.Group, error) {
	if course.GroupMode != models.GroupModeSeparate {
		return nil, nil
	}

	groups := make([]models.Group, 0, 2)
	for _, name := range []string{"Group A", "Group B"} {
		g := models.Group{CourseID: course.ID, Name: name}
		if err := tx.Create(&g).Error; err != nil {
			return nil, fmt.Errorf("create group %q: %w", name, err)
		}
		groups = append(groups, g)
	}

	// Split the users between the two groups, last user in neither.
	for i := 0; i < len(users)-1; i++ {
		member := models.GroupMember{GroupID: groups[i%2].ID, UserID: users[i].ID}
		if err := tx.Create(&member).Error; err != nil {
			return nil, fmt.Errorf("create group member: %w", err)
		}
	}
	return groups, nil
}

func seedEnrollments(tx *gorm.DB, courseID uint, users []models.User, courseIdx int) error {
	for i, user := range users {
		role := models.RoleStudent
		if i == courseIdx%len(users) {
			role = models.RoleTeacher
		}
		assignment := models.RoleAssignment{UserID: user.ID, CourseID: courseID, Role: role}
		if err := tx.Create(&assignment).Error; err != nil {
			return fmt.Errorf("create role assignment: %w", err)
		}
	}
	return nil
}

func seedComments(tx *gorm.DB, course models.Course, contexts []models.CourseContext, groups []models.Group, users []models.User, now int64) error {
	for i, cc := range contexts {
		for j := 0; j < 3+i; j++ {
			author := users[(i+j)%len(users)]
			groupID := uint(0)
			if course.GroupMode == models.GroupModeSeparate && len(groups) > 0 && j%3 != 0 {
				groupID = groups[j%len(groups)].ID
			}

			created := now - int64((len(contexts)-i)*3600+(10-j)*60)
			comment := models.Comment{
				ContextID:    cc.ID,
				CourseID:     course.ID,
				Content:      fmt.Sprintf("Seed comment %d on context %d", j+1, cc.ID),
				Format:       "plain",
				UserID:       author.ID,
				GroupID:      groupID,
				TimeCreated:  created,
				TimeModified: created,
			}
			if err := tx.Create(&comment).Error; err != nil {
				return fmt.Errorf("create comment: %w", err)
			}

			sub := models.Subscription{
				CourseID:     course.ID,
				ContextID:    cc.ID,
				UserID:       author.ID,
				TimeLastSent: created,
				TimeCreated:  created,
				TimeModified: created,
			}
			if err := tx.Where("context_id = ? AND user_id = ?", cc.ID, author.ID).
				FirstOrCreate(&sub).Error; err != nil {
				return fmt.Errorf("create subscription: %w", err)
			}

			if j%2 == 0 {
				replier := users[(i+j+1)%len(users)]
				reply := models.Reply{
					CommentID:    comment.ID,
					Content:      fmt.Sprintf("Seed reply to comment %d", comment.ID),
					Format:       "plain",
					UserID:       replier.ID,
					TimeCreated:  created + 120,
					TimeModified: created + 120,
				}
				if err := tx.Create(&reply).Error; err != nil {
					return fmt.Errorf("create reply: %w", err)
				}
			}
		}
	}
	return nil
}
