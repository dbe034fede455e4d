package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/deskline/ticket-sync/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(config.Load).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
