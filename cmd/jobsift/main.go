package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobsift/internal/config"
	"jobsift/internal/db"
	"jobsift/internal/evict"
	"jobsift/internal/fetch"
	"jobsift/internal/logging"
	"jobsift/internal/scheduler"
	"jobsift/internal/server"
	"jobsift/internal/store"
	"jobsift/internal/triage"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.json", "path to config file")
	flag.Parse()

	cfg, created, err := config.LoadOrInit(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if created {
		fmt.Printf("Created default config at %s. Review it, then rerun.\n", configPath)
		os.Exit(0)
	}

	log := logging.New(cfg.LogLevel)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handle := db.NewHandle(cfg.DatabasePath)
	if err := handle.Open(ctx); err != nil {
		log.Error("open store", "err", err)
		os.Exit(1)
	}
	defer handle.Close()

	st := store.New(handle)
	fetcher := fetch.NewHTTPFetcher(time.Duration(cfg.FetchTimeoutSec) * time.Second)
	tr := triage.New(st, fetcher, log)
	sched := scheduler.New(evict.New(st), cfg, log)
	if err := sched.Start(ctx); err != nil {
		log.Error("start scheduler", "err", err)
		os.Exit(1)
	}
	defer sched.Stop()

	api := server.New(cfg, st, tr, sched, log)
	httpServer := api.Server()

	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shCtx)
	}()

	log.Info("jobsift listening", "addr", cfg.ListenAddress, "db", cfg.DatabasePath)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("http server", "err", err)
		os.Exit(1)
	}
}
