package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"givebox/backend/internal/auth"
	"givebox/backend/internal/config"
	"givebox/backend/internal/push"
	"givebox/backend/internal/storage"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const usage = `Usage: admin <command> [args]

Commands:
  issue-token <user_id>            print a bearer token for a user
  audit [caller_id] [limit]        show recent gate decisions
  sweep-locations                  mark expired live locations as stopped
  registrations <user_id>          list a user's push registrations
  vapid-keys                       generate a VAPID key pair`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}
	command := os.Args[1]

	// Key generation needs no configuration.
	if command == "vapid-keys" {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			log.Fatalf("Error generating VAPID keys: %v", err)
		}
		fmt.Printf("VAPID_PUBLIC_KEY=%s\nVAPID_PRIVATE_KEY=%s\n", pub, priv)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	ctx := context.Background()

	switch command {
	case "issue-token":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin issue-token <user_id>")
			os.Exit(1)
		}
		token, err := auth.NewIssuer(cfg.JWT).Issue(os.Args[2])
		if err != nil {
			log.Fatalf("Error issuing token: %v", err)
		}
		fmt.Println(token)
	case "audit":
		var callerID string
		limit := 20
		if len(os.Args) > 2 {
			callerID = os.Args[2]
		}
		if len(os.Args) > 3 {
			limit, err = strconv.Atoi(os.Args[3])
			if err != nil || limit <= 0 {
				fmt.Println("Invalid limit. Please provide a positive integer.")
				os.Exit(1)
			}
		}
		if err := showAudit(ctx, openStorage(cfg), callerID, limit); err != nil {
			log.Fatalf("Error listing audit: %v", err)
		}
	case "sweep-locations":
		n, err := openStorage(cfg).ExpireLiveLocations(ctx, time.Now().UTC())
		if err != nil {
			log.Fatalf("Error sweeping live locations: %v", err)
		}
		fmt.Printf("%d expired live location(s) stopped.\n", n)
	case "registrations":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin registrations <user_id>")
			os.Exit(1)
		}
		if err := showRegistrations(ctx, openStorage(cfg), os.Args[2]); err != nil {
			log.Fatalf("Error listing registrations: %v", err)
		}
	default:
		fmt.Println("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}
}

// openStorage connects without Redis; writes are not announced to live
// subscribers.
func openStorage(cfg config.Config) *storage.Service {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Error),
	})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	return storage.NewStorageService(db, nil, nil)
}

func showAudit(ctx context.Context, s storage.Storage, callerID string, limit int) error {
	rows, err := s.ListGateAudits(ctx, callerID, limit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tCALLER\tVARIANT\tAUTHORIZED\tIDS")
	for _, a := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\n",
			a.CreatedAt.Format(time.RFC3339), a.CallerID, a.Variant, a.Authorized, a.Requested, strings.Join(a.AuthorizedIDs, ","))
	}
	return w.Flush()
}

func showRegistrations(ctx context.Context, s storage.Storage, userID string) error {
	regs, err := s.ListPushRegistrations(ctx, []string{userID})
	if err != nil {
		return err
	}
	if len(regs) == 0 {
		fmt.Printf("User %s has no push registrations.\n", userID)
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCHANNEL\tENDPOINT\tCREATED")
	for _, r := range regs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.Channel, r.Endpoint, r.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}
