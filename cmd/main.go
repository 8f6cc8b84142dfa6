package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/beyondbrewing/brewery-odm/pkg/logger"
)

func main() {
	logger.SetDefault(logger.MustProduction())
	defer logger.SyncDefault()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		logger.Fatal("odm failed", "error", err)
	}
}
