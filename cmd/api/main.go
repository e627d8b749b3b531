package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bodega.org/internal/auth"
	"bodega.org/internal/httpapi"
	"bodega.org/internal/inventory"
	"bodega.org/internal/item"
	"bodega.org/internal/location"
	"bodega.org/internal/obs"
	"bodega.org/internal/store/pg"
	"bodega.org/internal/user"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	secret := os.Getenv("BODEGA_AUTH_SECRET")
	if secret == "" {
		log.Fatal("BODEGA_AUTH_SECRET is required")
	}

	// Without a DSN the API runs against the in-memory store. Useful for
	// local development and smoke tests; nothing survives a restart.
	var (
		store   inventory.Store
		pgStore *pg.Store
	)
	if dsn := os.Getenv("BODEGA_PG_DSN"); dsn != "" {
		var err error
		pgStore, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		store = pgStore
	} else {
		log.Print("BODEGA_PG_DSN not set, using in-memory store")
		store = inventory.NewInMemory()
	}

	blacklist := auth.NewBlacklist()
	authSvc, err := auth.NewService(store, secret, blacklist)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	perms := auth.NewPermissions(store)
	users, err := user.NewService(store)
	if err != nil {
		log.Fatalf("users: %v", err)
	}
	locations, err := location.NewService(store, perms)
	if err != nil {
		log.Fatalf("locations: %v", err)
	}
	items, err := item.NewService(store, perms)
	if err != nil {
		log.Fatalf("items: %v", err)
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	blacklist.Start(sweepCtx, auth.SweepInterval)

	ready := httpapi.ReadyProbe{}
	if pgStore != nil {
		ready.DB = pgStore.DB()
	}
	api := httpapi.New(httpapi.Config{
		Auth:      authSvc,
		Users:     users,
		Locations: locations,
		Items:     items,
		Ready:     ready,
		Version:   version,
	})

	addr := os.Getenv("BODEGA_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting bodega-api %s on %s", version, srv.Addr)

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
	if pgStore != nil {
		_ = pgStore.Close()
	}
	log.Println("Stopped")
}
