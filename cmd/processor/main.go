package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"autoblog/cmd/internal/app"
	"autoblog/cmd/processor/handlers"
	"autoblog/config"
	"autoblog/eventbus"
	"autoblog/events"
	"autoblog/logger"
)

func main() {
	config.InitApp()
	cfg := config.GetConfig()
	logger.Init(cfg.Logging.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, app.Options{Source: "processor"})
	if err != nil {
		logger.Log.Errorf("failed to initialize app: %v", err)
		os.Exit(1)
	}
	defer a.Close(context.Background())

	h := handlers.NewEventHandlers(a.Sitemaps, a.HostCache)
	groupID := cfg.Kafka.GroupID + "-processor"

	runners := map[string]func() error{
		eventbus.TopicPostEvents.Base(): func() error {
			return a.Bus.Subscribe(ctx, groupID, eventbus.TopicPostEvents, func(ctx context.Context, ev eventbus.Event) error {
				t, err := events.PeekType(ev)
				if err != nil {
					return err
				}
				switch t {
				case events.PostCreated, events.PostPublished, events.PostUnpublished, events.PostDeleted:
					e, err := eventbus.DecodeJSON[events.PostEvent](ev)
					if err != nil {
						return err
					}
					return h.HandlePost(ctx, e)
				default:
					// 다른 서비스용 이벤트는 무시 (커밋)
					return nil
				}
			})
		},
		eventbus.TopicDomainEvents.Base(): func() error {
			return eventbus.SubscribeJSON(ctx, a.Bus, groupID, eventbus.TopicDomainEvents, func(ctx context.Context, e events.DomainEvent, _ eventbus.Event) error {
				return h.HandleDomain(ctx, e)
			})
		},
		eventbus.TopicGenerationEvents.Base(): func() error {
			return eventbus.SubscribeJSON(ctx, a.Bus, groupID, eventbus.TopicGenerationEvents, func(ctx context.Context, e events.BatchEvent, _ eventbus.Event) error {
				return h.HandleBatch(ctx, e)
			})
		},
	}

	logger.Log.Info("starting processor service with eventbus...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup
	for topic, run := range runners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(); err != nil && !errors.Is(err, context.Canceled) {
				logger.Log.Errorf("eventbus subscribe error on %s: %v", topic, err)
			}
		}()
	}

	<-sigChan
	logger.Log.Info("received shutdown signal, shutting down processor service...")

	cancel()
	wg.Wait()

	logger.Log.Info("processor service stopped")
}
