package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/aneshas/esgate"
	"github.com/aneshas/esgate/config"
	"github.com/aneshas/esgate/eventstore"
	"github.com/aneshas/esgate/notify"
)

// app holds the process wide dependencies, created once and shared
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *eventstore.EventStore
	publisher notify.Publisher
	svc       *esgate.Service
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}

	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func openApp(logOut io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg, logOut)
	if err != nil {
		return nil, err
	}

	store, err := eventstore.New(cfg.StoreOptions()...)
	if err != nil {
		return nil, fmt.Errorf("opening event store: %w", err)
	}

	var publisher notify.Publisher = &notify.NoopPublisher{}

	if cfg.NATSURL != "" {
		pub, err := notify.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			store.Close()
			return nil, err
		}
		publisher = pub
		logger.Info("notifications enabled", "nats_url", cfg.NATSURL)
	} else {
		logger.Debug("notifications disabled (ESGATE_NATS_URL not set)")
	}

	svc, err := esgate.New(
		store,
		esgate.WithLogger(logger),
		esgate.WithPublisher(publisher),
		esgate.WithMaxAge(cfg.MaxStreamAge.Duration),
	)
	if err != nil {
		publisher.Close()
		store.Close()
		return nil, err
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		publisher: publisher,
		svc:       svc,
	}, nil
}

func (a *app) Close() {
	if err := a.publisher.Close(); err != nil {
		a.logger.Error("error closing publisher", "err", err)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("error closing store", "err", err)
	}
}
