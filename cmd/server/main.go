package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	"join/internal/config"
	"join/internal/serverapp"
	"join/internal/store"
)

func main() {
	cfg, err := config.LoadOrDefault(configPath())
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	backend, err := store.Open(cfg.Store)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}

	handler, err := serverapp.NewHandler(serverapp.Options{
		Config:        cfg,
		DataDir:       cfg.Store.DataDir,
		StaticDir:     cfg.Server.StaticDir,
		UseDiskStatic: cfg.Server.DevStatic,
		Logger:        log.Default(),
		Backend:       backend,
	})
	if err != nil {
		log.Fatalf("build server: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("listening on http://localhost%s (store driver %s)", cfg.Server.Addr, cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	timeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	wait := gfshutdown.GracefulShutdown(context.Background(), timeout, map[string]gfshutdown.Operation{
		// store closes after in-flight requests drain
		"http": func(ctx context.Context) error {
			err := srv.Shutdown(ctx)
			if cerr := backend.Close(); cerr != nil && err == nil {
				err = cerr
			}
			return err
		},
	})
	os.Exit(<-wait)
}

func configPath() string {
	if p := os.Getenv("JOIN_CONFIG"); p != "" {
		return p
	}
	return "join_config.yml"
}
