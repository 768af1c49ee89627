// Command seed populates a development database with demo data.
package main

import (
	"log"

	"socialcomments/internal/bootstrap"
	"socialcomments/internal/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Env == "production" || cfg.Env == "prod" {
		log.Fatal("refusing to seed a production database")
	}

	if _, _, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedDemo: true}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Seeding complete")
}
