package main

import (
	"flag"
	"log"
	"time"

	"github.com/oggyb/wholikeme/internal/auth"
	"github.com/oggyb/wholikeme/internal/config"
	"github.com/oggyb/wholikeme/internal/db"
)

func main() {
	minimal := flag.Bool("minimal", false, "seed only the alice/bob/carol demo users")
	flag.Parse()

	// Load configuration
	cfg := config.New()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Fatalf("failed to init db: %v", err)
	}

	seed := db.SeedTestData
	if *minimal {
		seed = db.SeedMinimalTestData
	}
	if err := seed(database); err != nil {
		log.Fatalf("failed to seed: %v", err)
	}

	log.Println("Seeding completed.")

	if cfg.Auth.JWTSecret == "" {
		return
	}

	// dev tokens so the seeded users can call the authenticated API
	var users []db.User
	if err := database.Order("email").Limit(5).Find(&users).Error; err != nil {
		log.Fatalf("failed to list users: %v", err)
	}
	v := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	for _, u := range users {
		token, err := v.Issue(u.ID, u.Email, 24*time.Hour)
		if err != nil {
			log.Fatalf("failed to issue token for %s: %v", u.Email, err)
		}
		log.Printf("%s\t%s\t%s", u.Email, u.ID, token)
	}
}
