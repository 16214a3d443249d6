package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arkiva.org/internal/archive"
	"arkiva.org/internal/auth"
	"arkiva.org/internal/config"
	"arkiva.org/internal/httpapi"
	"arkiva.org/internal/obs"
	"arkiva.org/internal/storage"
	"arkiva.org/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	cfg := config.Load()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	if cfg.PostgresDSN == "" {
		log.Fatal("missing DSN: set ARKIVA_PG_DSN")
	}
	store, err := pg.Open(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	issuer, err := auth.NewTokenIssuer(cfg.AuthSecret, "arkiva", auth.WithTokenTTL(cfg.TokenTTL))
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}
	authSvc := auth.NewService(store, issuer)

	blobs, err := storage.NewLocal(cfg.UploadDir, cfg.MaxUploadSize)
	if err != nil {
		log.Fatalf("upload dir: %v", err)
	}
	docs := archive.NewService(store, blobs)

	api := httpapi.New(authSvc, docs, httpapi.ReadyProbe{DB: store.DB()}, version, httpapi.Options{
		MaxBodyBytes: cfg.MaxUploadSize,
		RateBurst:    cfg.RateBurst,
		RatePerSec:   cfg.RatePerSec,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting arkiva-api %s on %s", version, srv.Addr)

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
