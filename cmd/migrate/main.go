// Package main provides the relay journal migration runner.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cory-johannsen/battlemap/internal/config"
	"github.com/cory-johannsen/battlemap/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	source := flag.String("source", "file://migrations", "migration source URL")
	direction := flag.String("direction", "up", "migration direction: up or down")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	flag.Parse()

	if *steps < 0 {
		log.Fatalf("invalid steps %d: must not be negative", *steps)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	dsn := cfg.Database.DSN()

	var version uint
	var dirty bool
	switch *direction {
	case "up":
		version, dirty, err = postgres.Migrate(*source, dsn, *steps)
	case "down":
		if *steps > 0 {
			version, dirty, err = postgres.Migrate(*source, dsn, -*steps)
		} else {
			version, dirty, err = postgres.Rollback(*source, dsn)
		}
	default:
		log.Fatalf("invalid direction %q: must be 'up' or 'down'", *direction)
	}
	if err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	fmt.Fprintf(os.Stdout, "migrated %s to version=%d dirty=%v [%s]\n", *direction, version, dirty, time.Since(start))
}
