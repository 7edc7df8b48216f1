package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/planpoker/go/internal/dbconfig"
)

func main() {
	retention := flag.Duration("retention", 7*24*time.Hour, "delete rooms idle for longer than this")
	dryRun := flag.Bool("dry-run", false, "report what would be deleted without deleting")
	flag.Parse()

	if *retention <= 0 {
		fmt.Fprintln(os.Stderr, "retention must be positive")
		os.Exit(2)
	}

	cfg, err := dbconfig.NewConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	cutoff := time.Now().Add(-*retention)
	query := `DELETE FROM rooms WHERE last_activity_at < $1 RETURNING code`
	if *dryRun {
		query = `SELECT code FROM rooms WHERE last_activity_at < $1 ORDER BY code`
	}

	rows, err := pool.Query(ctx, query, cutoff)
	if err != nil {
		fmt.Fprintf(os.Stderr, "purge rooms: %v\n", err)
		os.Exit(1)
	}
	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			rows.Close()
			fmt.Fprintf(os.Stderr, "scan room code: %v\n", err)
			os.Exit(1)
		}
		codes = append(codes, code)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "purge rooms: %v\n", err)
		os.Exit(1)
	}

	for _, code := range codes {
		fmt.Println(code)
	}
	verb := "deleted"
	if *dryRun {
		verb = "would delete"
	}
	fmt.Printf("Purge complete: %s %d rooms idle since before %s\n", verb, len(codes), cutoff.Format(time.RFC3339))
}
