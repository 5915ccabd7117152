package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"bankledger/internal/config"
	"bankledger/internal/db"
)

func main() {
	direction := flag.String("direction", string(db.Up), "up applies pending migrations, down reverts the last one")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	changed, err := db.Migrate(cfg.DatabaseURL, cfg.MigrationsPath, db.Direction(*direction))
	if err != nil {
		slog.Error("migration failed", "direction", *direction, "error", err)
		os.Exit(1)
	}
	if !changed {
		fmt.Println("no change")
		return
	}
	fmt.Printf("migrated %s\n", *direction)
}
