// Command migrate applies the Bodega schema migrations and seed data.
//
// Usage:
//
//	migrate -dsn postgres://... up|down|seed|status
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"bodega.org/internal/migrate"
	"bodega.org/internal/store/pg"
)

func main() {
	var (
		dsn        = flag.String("dsn", os.Getenv("BODEGA_PG_DSN"), "postgres connection string (defaults to BODEGA_PG_DSN)")
		migrations = flag.String("migrations", "ops/migrations/sql", "directory with .up.sql/.down.sql files")
		seeds      = flag.String("seeds", "ops/migrations/seeds", "directory with seed .sql files")
	)
	flag.Parse()

	cmd := flag.Arg(0)
	if cmd == "" {
		fmt.Fprintln(os.Stderr, "usage: migrate [flags] up|down|seed|status")
		os.Exit(2)
	}
	if *dsn == "" {
		log.Fatal("migrate: -dsn or BODEGA_PG_DSN is required")
	}

	store, err := pg.Open(*dsn)
	if err != nil {
		log.Fatalf("migrate: open database: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	runner := migrate.NewRunner(store.DB(), *migrations, *seeds)

	switch cmd {
	case "up":
		err = runner.Up(ctx)
	case "down":
		err = runner.Down(ctx)
	case "seed":
		err = runner.Seed(ctx)
	case "status":
		var applied []string
		applied, err = runner.Applied(ctx)
		if err == nil {
			if len(applied) == 0 {
				fmt.Println("no migrations applied")
			}
			for _, name := range applied {
				fmt.Println(name)
			}
		}
	default:
		log.Fatalf("migrate: unknown command %q", cmd)
	}
	if err != nil {
		log.Fatalf("migrate: %s: %v", cmd, err)
	}
}
