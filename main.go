package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"parley/app/config"
	"parley/app/server"
	"parley/app/service/conversation"
	"parley/app/service/engine"
	"parley/app/service/responder"
	"parley/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, conversation.New)
	do.Provide(di, responder.New)
	do.Provide(di, engine.New)
	do.Provide(di, server.New)

	slog.Info("Service started", "address", cfg.Server.Address)

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	go do.MustInvoke[*engine.Service](di).Run(appCtx)

	go func() {
		if err := do.MustInvoke[*server.Service](di).Run(appCtx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Server stopped", "error", err)
			cancel()
		}
	}()

	<-appCtx.Done()
}
