package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/overfly42/found-gems/internal/app"
	"github.com/overfly42/found-gems/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		// After the first signal a second one kills the process.
		<-ctx.Done()
		stop()
	}()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	if err := app.Run(ctx, app.Config{Logger: telemetry.WrapLogger(logger)}); err != nil {
		stop()
		logger.Fatalf("%v", err)
	}
}
