package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	logx "homeworkbot/pkg/logx"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logx.NewConsole("INFO").With(logx.String("comp", "main")).Error("fatal", logx.Err(err))
		cancel()
		os.Exit(1)
	}
}
