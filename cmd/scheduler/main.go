package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"autoblog/cmd/internal/app"
	"autoblog/config"
	"autoblog/logger"
	"autoblog/scheduler"
)

func main() {
	config.InitApp()
	cfg := config.GetConfig()
	logger.Init(cfg.Logging.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, app.Options{Source: "scheduler", Generator: true})
	if err != nil {
		logger.Log.Errorf("failed to initialize app: %v", err)
		os.Exit(1)
	}
	defer a.Close(context.Background())

	s, err := scheduler.New(cfg, scheduler.Deps{
		Runner:    a.Runner,
		Tenants:   a.Repos.Users,
		Sitemaps:  a.Sitemaps,
		Domains:   a.Domains,
		Histories: a.Repos.Histories,
	})
	if err != nil {
		logger.Log.Errorf("failed to create scheduler: %v", err)
		os.Exit(1)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := s.Start(ctx); err != nil {
			logger.Log.Errorf("scheduler error: %v", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
		logger.Log.Info("received shutdown signal, shutting down scheduler service...")
	case <-ctx.Done():
	}

	cancel()
	<-done

	logger.Log.Info("scheduler service stopped")
}
