package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"authcore.org/internal/auth"
	"authcore.org/internal/config"
	"authcore.org/internal/httpapi"
	"authcore.org/internal/mail"
	"authcore.org/internal/obs"
	"authcore.org/internal/store/pg"
)

var commit = "unknown"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(cfg.Version, commit)

	store, err := pg.Open(cfg.PGDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	sender, err := mail.New(mail.Config{
		Provider: cfg.MailProvider,
		APIKey:   cfg.MailAPIKey,
		Domain:   cfg.MailDomain,
		FromName: cfg.MailFromName,
	})
	if err != nil {
		log.Fatalf("mail: %v", err)
	}

	issuer, err := auth.NewJWTIssuer(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		log.Fatalf("issuer: %v", err)
	}

	svc, err := auth.NewService(store,
		auth.NewBcryptHasher(cfg.BcryptCost),
		auth.SHA256TokenHasher{},
		issuer,
		sender,
		auth.WithAccessTTL(cfg.AccessTTL),
		auth.WithRefreshTTL(cfg.RefreshTTL),
		auth.WithResetTTL(cfg.ResetTTL),
		auth.WithVerificationTTL(cfg.VerificationTTL),
		auth.WithPublicBaseURL(cfg.PublicBaseURL),
	)
	if err != nil {
		log.Fatalf("service: %v", err)
	}

	api := httpapi.New(svc, httpapi.ReadyProbe{Pinger: store}, httpapi.Options{
		Version:        cfg.Version,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting authcore-api %s on %s", cfg.Version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
