package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"alexa-gateway/internal/config"
	"alexa-gateway/internal/devices"
	"alexa-gateway/internal/gateway"
	"alexa-gateway/internal/logger"
	"alexa-gateway/internal/server"
	"alexa-gateway/internal/skill"
)

// changeQueueSize bounds the entity changes waiting for a ChangeReport.
const changeQueueSize = 128

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "alexa-gateway: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("starting alexa gateway",
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("mqtt_broker", cfg.MQTTBroker),
		zap.String("mqtt_client_id", cfg.MQTTClientID),
		zap.String("topic_prefix", cfg.TopicPrefix),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := devices.NewRegistry()
	bridge := devices.NewBridge(devices.BridgeOptions{
		Broker:      cfg.MQTTBroker,
		ClientID:    cfg.MQTTClientID,
		Username:    cfg.MQTTUsername,
		Password:    cfg.MQTTPassword,
		TopicPrefix: cfg.TopicPrefix,
	}, registry, log.Named("mqtt"))

	events := gateway.NewClient(gateway.Options{
		EventURL:     cfg.EventURL,
		AuthURL:      cfg.AuthURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenCache:   cfg.TokenCache,
	}, log.Named("gateway"))

	var handlerOpts []skill.Option
	if cfg.RequestCounter != "" {
		handlerOpts = append(handlerOpts, skill.WithRequestCounter(cfg.RequestCounter))
	}
	handler := skill.NewHandler(registry, bridge, events, log.Named("skill"), handlerOpts...)

	srv := server.New(server.Options{
		Addr:       cfg.HTTPAddr,
		Directives: handler,
		Events:     events,
		Broker:     bridge,
		Logger:     log.Named("http"),
	})

	changes := make(chan string, changeQueueSize)
	bridge.OnChange(func(entityID string) {
		select {
		case changes <- entityID:
		default:
			log.Warn("change queue full, report dropped", zap.String("entityId", entityID))
		}
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(ctx)
	})

	g.Go(func() error {
		if err := bridge.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		<-ctx.Done()
		log.Info("disconnecting from MQTT broker")
		bridge.Close()
		return nil
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case entityID := <-changes:
				reportChange(ctx, log, srv, entityID)
			}
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("alexa gateway stopped")
	return nil
}

func reportChange(ctx context.Context, log *zap.Logger, srv *server.Server, entityID string) {
	docs, err := srv.Report(ctx, entityID)
	switch {
	case errors.Is(err, gateway.ErrNoToken):
		log.Debug("change not reported, account not linked", zap.String("entityId", entityID))
	case err != nil:
		log.Warn("failed to report change", zap.String("entityId", entityID), zap.Error(err))
	default:
		log.Debug("change reported", zap.String("entityId", entityID), zap.Int("events", len(docs)))
	}
}
