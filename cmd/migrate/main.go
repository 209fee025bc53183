package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"echoscribe/internal/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	var (
		command = flag.String("command", "", "Migration command: up, down, version, force, create")
		steps   = flag.Int("steps", 0, "Number of migration steps (for up/down)")
		version = flag.Int("version", 0, "Migration version (for force)")
		name    = flag.String("name", "", "Migration name (for create)")
	)
	flag.Parse()

	if *command == "" {
		fmt.Println("Usage: go run cmd/migrate/main.go -command [up|down|version|force|create] [options]")
		fmt.Println("Commands:")
		fmt.Println("  up             - Apply all pending migrations")
		fmt.Println("  down           - Rollback migrations")
		fmt.Println("  version        - Show current migration version")
		fmt.Println("  force VERSION  - Force set migration version")
		fmt.Println("  create NAME    - Create new migration files")
		fmt.Println("")
		fmt.Println("Options:")
		fmt.Println("  -steps N       - Number of steps for up/down")
		fmt.Println("  -version N     - Version number for force")
		fmt.Println("  -name NAME     - Migration name for create")
		os.Exit(1)
	}

	cfg := config.NewConfig()

	dsn := fmt.Sprintf("pgx5://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		log.Fatalf("Failed to create migration instance: %v", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Printf("Failed to close migration instance: %v / %v", srcErr, dbErr)
		}
	}()

	switch *command {
	case "up":
		if *steps > 0 {
			err = m.Steps(*steps)
		} else {
			err = m.Up()
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("Migration up failed: %v", err)
		}
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("No migrations to apply")
		} else {
			fmt.Println("Migrations applied successfully")
		}

	case "down":
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Steps(-1)
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("Migration down failed: %v", err)
		}
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("No migrations to rollback")
		} else {
			fmt.Println("Migrations rolled back successfully")
		}

	case "version":
		v, dirty, err := m.Version()
		if err != nil {
			log.Fatalf("Failed to get version: %v", err)
		}
		fmt.Printf("Current version: %d (dirty=%t)\n", v, dirty)

	case "force":
		if *version == 0 {
			log.Fatal("Version number required for force command")
		}
		if err := m.Force(*version); err != nil {
			log.Fatalf("Force migration failed: %v", err)
		}
		fmt.Printf("Migration version forced to %d\n", *version)

	case "create":
		if *name == "" {
			log.Fatal("Migration name required for create command")
		}

		nextNum := getNextMigrationNumber()
		upFile := fmt.Sprintf("migrations/%06d_%s.up.sql", nextNum, *name)
		downFile := fmt.Sprintf("migrations/%06d_%s.down.sql", nextNum, *name)

		if err := os.WriteFile(upFile, []byte("-- Migration up\n\n"), 0644); err != nil {
			log.Fatalf("Failed to create up migration file: %v", err)
		}
		if err := os.WriteFile(downFile, []byte("-- Migration down\n\n"), 0644); err != nil {
			log.Fatalf("Failed to create down migration file: %v", err)
		}

		fmt.Println("Created migration files:")
		fmt.Printf("  %s\n", upFile)
		fmt.Printf("  %s\n", downFile)

	default:
		log.Fatalf("Unknown command: %s", *command)
	}
}

// getNextMigrationNumber returns the next migration number based on existing files
func getNextMigrationNumber() int {
	files, err := os.ReadDir("migrations")
	if err != nil {
		return 1
	}

	maxNum := 0
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		var num int
		if _, err := fmt.Sscanf(file.Name(), "%d_", &num); err == nil && num > maxNum {
			maxNum = num
		}
	}

	return maxNum + 1
}
