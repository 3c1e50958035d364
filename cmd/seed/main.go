// Command main runs the database seeder for Unheard.
package main

import (
	"context"
	"flag"
	"log"

	"unheard/internal/config"
	"unheard/internal/database"
	"unheard/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	devices := flag.Int("devices", defaults.Devices, "Number of simulated devices")
	confessions := flag.Int("confessions", defaults.Confessions, "Number of confessions to create")
	legacy := flag.Int("legacy", 0, "Number of ownerless legacy confessions to add")
	clean := flag.Bool("clean", true, "Delete confessions, comments and reactions first")
	dryRun := flag.Bool("dry-run", false, "Generate rows without writing them")
	preset := flag.String("preset", "", "Apply a named preset (demo, busy, legacy, empty)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	opts := defaults
	if *preset != "" {
		log.Printf("Applying preset: %s (ignoring size flags)", *preset)
		if opts, err = seed.Preset(*preset); err != nil {
			log.Fatalf("❌ %v", err)
		}
	} else {
		opts.Devices = *devices
		opts.Confessions = *confessions
		opts.LegacyRows = *legacy
		opts.HighlightThreshold = cfg.HighlightThreshold
		log.Printf("Target: %d devices, %d confessions, clean=%v", opts.Devices, opts.Confessions, *clean)
	}
	// a preset decides clean unless --clean was given explicitly
	cleanSet := false
	flag.Visit(func(f *flag.Flag) { cleanSet = cleanSet || f.Name == "clean" })
	if *preset == "" || cleanSet {
		opts.Clean = *clean
	}
	opts.DryRun = *dryRun
	opts.AvatarKey = cfg.JWTSecret

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	ctx := context.Background()
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		log.Fatalf("❌ Schema apply failed: %v", err)
	}

	report, err := seed.NewSeeder(db, opts).Run(ctx)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ Done: %d confessions, %d comments, %d reactions, %d highlighted",
		report.Confessions, report.Comments, report.Reactions, report.Highlighted)
}
