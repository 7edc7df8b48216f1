package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/planpoker/go/internal/auth"
	"github.com/mcdev12/planpoker/go/internal/dbconfig"
	"github.com/mcdev12/planpoker/go/internal/models"
	"github.com/mcdev12/planpoker/go/internal/rooms"
)

// Backlog mirrors the JSON snapshot of a demo room
type Backlog struct {
	HostName string               `json:"host_name"`
	Settings *models.RoomSettings `json:"settings,omitempty"`
	Stories  []struct {
		Title       string  `json:"title"`
		Description *string `json:"description,omitempty"`
	} `json:"stories"`
}

func main() {
	file := flag.String("file", "go/internal/assets/demo_backlog.json", "backlog JSON to seed")
	flag.Parse()

	// 1) Load the JSON snapshot
	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read JSON: %v\n", err)
		os.Exit(1)
	}
	var backlog Backlog
	if err := json.Unmarshal(data, &backlog); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal JSON: %v\n", err)
		os.Exit(1)
	}
	if backlog.HostName == "" {
		backlog.HostName = "Demo Host"
	}
	settings := models.DefaultRoomSettings()
	if backlog.Settings != nil {
		settings = *backlog.Settings
	}
	rawSettings, err := json.Marshal(settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal settings: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
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

	code, err := rooms.GenerateCode()
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate room code: %v\n", err)
		os.Exit(1)
	}
	hostID := uuid.New()
	now := time.Now().UTC()

	// 3) Insert room, host and stories together
	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
            INSERT INTO rooms (code, host_id, settings, created_at, last_activity_at)
            VALUES ($1, $2, $3, $4, $4)
        `, code, hostID, rawSettings, now); err != nil {
			return fmt.Errorf("insert room: %w", err)
		}
		if _, err := tx.Exec(ctx, `
            INSERT INTO participants (room_code, user_id, display_name, role, joined_at, last_activity_at)
            VALUES ($1, $2, $3, $4, $5, $5)
        `, code, hostID, backlog.HostName, string(models.RoleHost), now); err != nil {
			return fmt.Errorf("insert host: %w", err)
		}
		for i, s := range backlog.Stories {
			// Stagger creation times so the backlog keeps its file order.
			at := now.Add(time.Duration(i) * time.Millisecond)
			if _, err := tx.Exec(ctx, `
                INSERT INTO stories (id, room_code, title, description, status, created_by, created_at, updated_at)
                VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
            `, uuid.New(), code, s.Title, s.Description, string(models.StoryStatusBacklog), hostID, at); err != nil {
				return fmt.Errorf("insert story %q: %w", s.Title, err)
			}
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed room: %v\n", err)
		os.Exit(1)
	}

	// 4) Print summary, with a host token when the server secret is set
	fmt.Printf("Room seed complete: room %s with %d stories\n", code, len(backlog.Stories))
	if secret := os.Getenv("JOIN_TOKEN_SECRET"); secret != "" {
		issuer, err := auth.NewTokenIssuer(secret, 7*24*time.Hour, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "token issuer: %v\n", err)
			os.Exit(1)
		}
		token, err := issuer.Issue(hostID, code)
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue host token: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Host token: %s\n", token)
	}
}
