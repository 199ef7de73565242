package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/techfranca/francaverso/server/common/log"
	"github.com/techfranca/francaverso/server/portal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Errorf("load config: %v", err)
		os.Exit(1)
	}

	if err := app.Run(ctx, cfg); err != nil {
		log.Errorf("portal exited: %v", err)
		os.Exit(1)
	}
}
