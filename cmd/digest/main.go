// Command digest runs one digest pass and exits. Intended for cron-style
// scheduling where the in-process ticker of the API server is not wanted.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"socialcomments/internal/bootstrap"
	"socialcomments/internal/config"
	"socialcomments/internal/mailer"
	"socialcomments/internal/repository"
	"socialcomments/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, _, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	platformRepo := repository.NewPlatformRepository(db)
	caps := service.NewCapabilityChecker(platformRepo)
	visibility := service.NewVisibilityService(platformRepo, caps)

	digests := service.NewDigestService(service.DigestServiceDeps{
		Subscriptions: repository.NewSubscriptionRepository(db),
		Digests:       repository.NewDigestRepository(db),
		Platform:      platformRepo,
		Visibility:    visibility,
		Mailer:        mailer.NewSMTPMailer(cfg),
		DigestType:    cfg.DigestType,
		UsersPerRun:   cfg.DigestUsersPerRun,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	stats, err := digests.RunScheduledDigests(ctx)
	if err != nil {
		log.Printf("digest run failed: %v", err)
		os.Exit(1)
	}

	log.Printf("digest run: users=%d sent=%d failed=%d skipped=%d duration_ms=%d",
		stats.Users, stats.Sent, stats.Failed, stats.Skipped, stats.Duration)
	if stats.Failed > 0 {
		os.Exit(1)
	}
}
