package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/negotiation-relay/config"
	"github.com/example/negotiation-relay/modules/negotiator"
	"github.com/example/negotiation-relay/modules/relay"
	"github.com/example/negotiation-relay/modules/wsserver"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	relayModule := relay.NewModule(cfg)
	negotiatorModule, err := negotiator.NewModule(cfg)
	if err != nil {
		log.Fatalf("Failed to create negotiator module: %v", err)
	}
	wsModule := wsserver.NewModule(cfg, relayModule, negotiatorModule.Service())

	// Order: the relay core first, then the orchestrator consuming its
	// events, then the transport driving both.
	app.Register(relayModule)
	app.Register(negotiatorModule)
	app.Register(wsModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	log.Printf("Negotiation relay listening on :%s (ws://localhost:%s/ws, GET /health)",
		cfg.Port, cfg.Port)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}
