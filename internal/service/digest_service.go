package service

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"socialcomments/internal/config"
	"socialcomments/internal/mailer"
	"socialcomments/internal/middleware"
	"socialcomments/internal/models"
	"socialcomments/internal/observability"
	"socialcomments/internal/repository"
)

// DigestPost is one comment with the replies that belong to it in a digest.
type DigestPost struct {
	Comment models.Comment
	Replies []models.Reply
}

// ContextDigest groups the new posts of one context.
type ContextDigest struct {
	ContextID uint
	Posts     []DigestPost
}

// CourseDigest groups the new activity of one course.
type CourseDigest struct {
	CourseID   uint
	CourseName string
	Contexts   []ContextDigest
}

// DigestItems is the visible new activity for one subscriber. CollectedAt is
// captured once, after the visibility filter, and becomes the new watermark
// for every context that appears here when the send succeeds.
type DigestItems struct {
	Courses     []CourseDigest
	CollectedAt int64
}

// Empty reports whether the digest has nothing to send.
func (d *DigestItems) Empty() bool {
	return len(d.Courses) == 0
}

// ContextIDs returns every context id appearing in the digest.
func (d *DigestItems) ContextIDs() []uint {
	var ids []uint
	for _, course := range d.Courses {
		for _, cc := range course.Contexts {
			ids = append(ids, cc.ContextID)
		}
	}
	return ids
}

// DigestRunStats summarizes one scheduler pass.
type DigestRunStats struct {
	Users    int   `json:"users"`
	Sent     int   `json:"sent"`
	Failed   int   `json:"failed"`
	Skipped  int   `json:"skipped"`
	Duration int64 `json:"duration_ms"`
}

// DigestServiceDeps bundles the collaborators of DigestService.
type DigestServiceDeps struct {
	Subscriptions repository.SubscriptionRepository
	Digests       repository.DigestRepository
	Platform      repository.PlatformRepository
	Visibility    *VisibilityService
	Mailer        mailer.Mailer
	Clock         Clock

	// DigestType selects one site-wide mail per user or one mail per course.
	DigestType  string
	UsersPerRun int
}

// DigestService collects new comments and replies for subscribers and mails
// them out, advancing each subscription's watermark on success.
type DigestService struct {
	subscriptions repository.SubscriptionRepository
	digests       repository.DigestRepository
	platform      repository.PlatformRepository
	visibility    *VisibilityService
	mailer        mailer.Mailer
	clock         Clock
	digestType    string
	usersPerRun   int
}

// NewDigestService returns a new DigestService.
func NewDigestService(d DigestServiceDeps) *DigestService {
	clock := d.Clock
	if clock == nil {
		clock = SystemClock
	}
	digestType := d.DigestType
	if digestType == "" {
		digestType = config.DigestTypeSite
	}
	return &DigestService{
		subscriptions: d.Subscriptions,
		digests:       d.Digests,
		platform:      d.Platform,
		visibility:    d.Visibility,
		mailer:        d.Mailer,
		clock:         clock,
		digestType:    digestType,
		usersPerRun:   d.UsersPerRun,
	}
}

// CollectNewItems gathers everything new for one subscriber since their
// per-context watermarks. Replies drive the collection: a reply past the
// watermark pulls in its parent comment even when the comment itself is old.
// Group visibility is applied here, after the fetch, because the watermark
// queries ignore it on purpose. A comment and its replies are filtered as one
// unit by the parent's group.
func (s *DigestService) CollectNewItems(ctx context.Context, userID uint) (*DigestItems, error) {
	replies, err := s.digests.NewReplies(ctx, userID)
	if err != nil {
		return nil, err
	}

	neededSet := make(map[uint]bool, len(replies))
	var neededIDs []uint
	for _, r := range replies {
		if !neededSet[r.CommentID] {
			neededSet[r.CommentID] = true
			neededIDs = append(neededIDs, r.CommentID)
		}
	}

	comments, err := s.digests.NewComments(ctx, userID, neededIDs)
	if err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return &DigestItems{CollectedAt: s.clock()}, nil
	}

	posts := make(map[uint]*DigestPost, len(comments))
	for i := range comments {
		posts[comments[i].ID] = &DigestPost{Comment: comments[i]}
	}
	for _, r := range replies {
		post, ok := posts[r.CommentID]
		if !ok {
			continue
		}
		post.Replies = append(post.Replies, models.Reply{
			ID:           r.ID,
			CommentID:    r.CommentID,
			Content:      r.Content,
			Format:       r.Format,
			UserID:       r.UserID,
			TimeCreated:  r.TimeCreated,
			TimeModified: r.TimeModified,
		})
	}

	visibleSets := make(map[uint]models.GroupSet)
	courseNames := make(map[uint]string)

	byCourse := make(map[uint]map[uint][]DigestPost)
	for _, c := range comments {
		groups, ok := visibleSets[c.CourseID]
		if !ok {
			course, err := s.platform.GetCourse(ctx, c.CourseID)
			if err != nil {
				return nil, err
			}
			groups, err = s.visibility.RestrictedGroupIDs(ctx, course, userID)
			if err != nil {
				return nil, err
			}
			visibleSets[c.CourseID] = groups
			courseNames[c.CourseID] = course.Name
		}

		if !groups.Unrestricted() && !groups.Contains(c.GroupID) {
			continue
		}

		if byCourse[c.CourseID] == nil {
			byCourse[c.CourseID] = make(map[uint][]DigestPost)
		}
		byCourse[c.CourseID][c.ContextID] = append(byCourse[c.CourseID][c.ContextID], *posts[c.ID])
	}

	items := &DigestItems{CollectedAt: s.clock()}
	courseIDs := make([]uint, 0, len(byCourse))
	for id := range byCourse {
		courseIDs = append(courseIDs, id)
	}
	sort.Slice(courseIDs, func(i, j int) bool { return courseIDs[i] < courseIDs[j] })

	for _, courseID := range courseIDs {
		course := CourseDigest{CourseID: courseID, CourseName: courseNames[courseID]}

		contextIDs := make([]uint, 0, len(byCourse[courseID]))
		for id := range byCourse[courseID] {
			contextIDs = append(contextIDs, id)
		}
		sort.Slice(contextIDs, func(i, j int) bool { return contextIDs[i] < contextIDs[j] })

		for _, contextID := range contextIDs {
			course.Contexts = append(course.Contexts, ContextDigest{
				ContextID: contextID,
				Posts:     byCourse[courseID][contextID],
			})
		}
		items.Courses = append(items.Courses, course)
	}
	return items, nil
}

// SendDigestForUser collects, renders and mails one user's digest. The
// watermark advances only for the contexts that were actually delivered, so a
// failed send retries the same items next run. Returns the number of mails
// sent.
func (s *DigestService) SendDigestForUser(ctx context.Context, userID uint) (int, error) {
	user, err := s.platform.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if user.Deleted {
		return 0, nil
	}

	items, err := s.CollectNewItems(ctx, userID)
	if err != nil {
		return 0, err
	}
	if items.Empty() {
		// Nothing visible is still progress: advancing here would be wrong
		// because invisible items may become visible when group membership
		// changes, so the watermark stays put.
		return 0, nil
	}

	if s.digestType == config.DigestTypeCourse {
		return s.sendPerCourse(ctx, user, items)
	}
	return s.sendSite(ctx, user, items)
}

func (s *DigestService) sendSite(ctx context.Context, user *models.User, items *DigestItems) (int, error) {
	htmlBody, textBody, err := renderDigest(items.Courses)
	if err != nil {
		return 0, err
	}

	if _, err := s.mailer.Send(ctx, user.Email, "New comments digest", htmlBody, textBody); err != nil {
		observability.DigestFailures.WithLabelValues("site").Inc()
		return 0, fmt.Errorf("digest delivery for user %d: %w", user.ID, err)
	}
	observability.DigestsSent.WithLabelValues("site").Inc()

	if err := s.subscriptions.AdvanceWatermark(ctx, user.ID, items.ContextIDs(), items.CollectedAt); err != nil {
		return 1, err
	}
	return 1, nil
}

// sendPerCourse mails one digest per course. A failing course does not block
// the others; its watermark stays put and its items retry next run.
func (s *DigestService) sendPerCourse(ctx context.Context, user *models.User, items *DigestItems) (int, error) {
	sent := 0
	var errs []error

	for _, course := range items.Courses {
		htmlBody, textBody, err := renderDigest([]CourseDigest{course})
		if err != nil {
			errs = append(errs, err)
			continue
		}

		subject := fmt.Sprintf("New comments in %s", course.CourseName)
		if _, err := s.mailer.Send(ctx, user.Email, subject, htmlBody, textBody); err != nil {
			observability.DigestFailures.WithLabelValues("course").Inc()
			errs = append(errs, fmt.Errorf("digest delivery for user %d course %d: %w", user.ID, course.CourseID, err))
			continue
		}
		observability.DigestsSent.WithLabelValues("course").Inc()

		var contextIDs []uint
		for _, cc := range course.Contexts {
			contextIDs = append(contextIDs, cc.ContextID)
		}
		if err := s.subscriptions.AdvanceWatermark(ctx, user.ID, contextIDs, items.CollectedAt); err != nil {
			errs = append(errs, err)
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

// RunScheduledDigests processes subscribers ordered by their oldest watermark,
// longest-waiting first, optionally capped per run. Failures are isolated per
// user: one broken mailbox never stalls the queue.
func (s *DigestService) RunScheduledDigests(ctx context.Context) (*DigestRunStats, error) {
	start := time.Now()
	stats := &DigestRunStats{}

	userIDs, err := s.subscriptions.ListSubscriberIDs(ctx, s.usersPerRun)
	if err != nil {
		observability.DigestRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	stats.Users = len(userIDs)

	for _, userID := range userIDs {
		sent, err := s.SendDigestForUser(ctx, userID)
		switch {
		case err != nil:
			stats.Failed++
			middleware.Logger.ErrorContext(ctx, "digest failed for user",
				"user_id", userID, "error", err)
		case sent == 0:
			stats.Skipped++
		default:
			stats.Sent += sent
		}
	}

	stats.Duration = time.Since(start).Milliseconds()
	observability.DigestRunDuration.Observe(time.Since(start).Seconds())

	outcome := "ok"
	if stats.Failed > 0 {
		outcome = "partial"
	}
	observability.DigestRuns.WithLabelValues(outcome).Inc()

	middleware.Logger.InfoContext(ctx, "digest run finished",
		"users", stats.Users,
		"sent", stats.Sent,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
		"duration_ms", stats.Duration)
	return stats, nil
}

var digestHTMLTemplate = template.Must(template.New("digest").Parse(`<html>
<body>
{{range .}}<h2>{{.CourseName}}</h2>
{{range .Contexts}}{{range .Posts}}<div>
<p>{{.Comment.Content}}</p>
{{range .Replies}}<blockquote>{{.Content}}</blockquote>
{{end}}</div>
{{end}}{{end}}{{end}}</body>
</html>
`))

func renderDigest(courses []CourseDigest) (string, string, error) {
	var html strings.Builder
	if err := digestHTMLTemplate.Execute(&html, courses); err != nil {
		return "", "", fmt.Errorf("render digest: %w", err)
	}

	var text strings.Builder
	for _, course := range courses {
		fmt.Fprintf(&text, "%s\n%s\n\n", course.CourseName, strings.Repeat("=", len(course.CourseName)))
		for _, cc := range course.Contexts {
			for _, post := range cc.Posts {
				fmt.Fprintf(&text, "%s\n", post.Comment.Content)
				for _, reply := range post.Replies {
					fmt.Fprintf(&text, "  > %s\n", reply.Content)
				}
				text.WriteString("\n")
			}
		}
	}
	return html.String(), text.String(), nil
}
