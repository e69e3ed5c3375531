package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"authcore.org/internal/auth"
	"authcore.org/internal/config"
	"authcore.org/internal/mail"
	"authcore.org/internal/migrate"
	"authcore.org/internal/store/pg"
)

func main() {
	log.SetFlags(0)
	var (
		dsn            = flag.String("dsn", os.Getenv("AUTHCORE_PG_DSN"), "PostgreSQL DSN")
		migrationsPath = flag.String("migrations", "ops/migrations/sql", "Path to SQL migrations")
		seedsPath      = flag.String("seeds", "ops/migrations/seeds", "Path to SQL seeds")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or AUTHCORE_PG_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|seed|status|provision]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	mgr := migrate.NewManager(db, *migrationsPath, *seedsPath)

	switch flag.Arg(0) {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "seed":
		err = mgr.Seed(ctx)
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		if err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	case "provision":
		err = provision(ctx)
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}

// provision bootstraps the first application and auth client so the API
// is usable right after migrations. Safe to re-run: existing records are
// left untouched, but a client secret is only printed on creation.
func provision(ctx context.Context) error {
	appName := os.Getenv("AUTHCORE_SEED_APPLICATION")
	clientName := os.Getenv("AUTHCORE_SEED_CLIENT")
	if appName == "" || clientName == "" {
		return errors.New("provision requires AUTHCORE_SEED_APPLICATION and AUTHCORE_SEED_CLIENT")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, err := pg.Open(cfg.PGDSN)
	if err != nil {
		return err
	}
	defer store.Close()

	sender, err := mail.New(mail.Config{Provider: mail.ProviderLog})
	if err != nil {
		return err
	}
	issuer, err := auth.NewJWTIssuer(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return err
	}
	svc, err := auth.NewService(store, auth.NewBcryptHasher(cfg.BcryptCost), auth.SHA256TokenHasher{}, issuer, sender)
	if err != nil {
		return err
	}

	slug := auth.Slugify(appName)
	app, err := svc.CreateApplication(ctx, auth.CreateApplicationInput{Name: appName})
	switch {
	case err == nil:
		log.Printf("created application %s (slug %s)", app.Name, app.Slug)
	case auth.KindOf(err) == auth.KindConflict:
		log.Printf("application %s already exists", slug)
	default:
		return err
	}

	// Client ids are random, so a rerun mints a fresh credential pair.
	client, err := svc.CreateAuthClient(ctx, auth.CreateAuthClientInput{Name: clientName})
	if err != nil {
		return err
	}
	// The secret is shown exactly once; only its hash is stored.
	log.Printf("client_id:     %s", client.ClientID)
	log.Printf("client_secret: %s", client.ClientSecret)
	if err := svc.GrantClientAccess(ctx, client.ClientID, slug); err != nil {
		return err
	}
	log.Printf("granted %s access to %s", client.ClientID, slug)
	return nil
}
