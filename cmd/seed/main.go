// Command main runs the database seeder for Odinbook.
package main

import (
	"context"
	"flag"
	"log"

	"odinbook/internal/auth"
	"odinbook/internal/bootstrap"
	"odinbook/internal/config"
	"odinbook/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	numUsers := flag.Int("users", 3, "Number of random users to create")
	shouldClean := flag.Bool("clean", true, "Delete users, posts, comments and images first")
	fixture := flag.String("fixture", "", "Optional YAML file of extra users")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	db, _, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}

	log.Printf("Seeding %d users (clean=%v)", *numUsers, *shouldClean)
	opts := seed.Options{
		NumUsers:    *numUsers,
		ShouldClean: *shouldClean,
		FixturePath: *fixture,
	}
	if cfg.AdminPassword != "" {
		opts.AdminUsername = cfg.AdminUsername
		opts.AdminPassword = cfg.AdminPassword
	}

	if err := seed.NewSeeder(db, auth.NewBcryptHasher()).Run(ctx, opts); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Println("Done.")
}
